// Package google mirrors ledger entries into a Google Sheet, one tab per year.
package google

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	oauth2google "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"moneymanager/internal/log"
	ports "moneymanager/internal/sheets"
)

var _ ports.LedgerWriter = (*Client)(nil)

// Header is written by operators as the first row of each yearly tab.
var Header = []any{"Recorded At", "Op", "User", "Transaction", "Transfer", "Type",
	"Date", "Account", "Division", "Category", "Description", "Amount"}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	ledgerBase    string
	logger        *log.Logger
}

// Credentials locates the service account key. JSON wins over File.
type Credentials struct {
	JSON string
	File string
}

// CredentialsFromEnv reads GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE
// and, as a fallback, GOOGLE_APPLICATION_CREDENTIALS.
func CredentialsFromEnv() Credentials {
	c := Credentials{
		JSON: strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")),
		File: strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE")),
	}
	if c.JSON == "" && c.File == "" {
		c.File = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	return c
}

func (c Credentials) load() ([]byte, error) {
	switch {
	case c.JSON != "":
		return []byte(c.JSON), nil
	case c.File != "":
		data, err := os.ReadFile(c.File)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// New creates a client writing to "<year> <ledgerBase>" tabs of spreadsheetID.
func New(ctx context.Context, spreadsheetID, ledgerBase string, creds Credentials, logger *log.Logger) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	if strings.TrimSpace(ledgerBase) == "" {
		ledgerBase = "Ledger"
	}
	if logger == nil {
		logger = log.Discard()
	}

	credentialsJSON, err := creds.load()
	if err != nil {
		return nil, err
	}

	jwtCfg, err := oauth2google.JWTConfigFromJSON(credentialsJSON, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse service account key: %w", err)
	}
	// token refreshes and API calls share the pooled transport
	authCtx := context.WithValue(context.Background(), oauth2.HTTPClient, newHTTPClientWithPooling())

	svc, err := gsheet.NewService(ctx, goption.WithHTTPClient(jwtCfg.Client(authCtx)))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		ledgerBase:    strings.TrimSpace(ledgerBase),
		logger:        logger.WithComponent(log.ComponentSheets),
	}, nil
}

// newHTTPClientWithPooling keeps connections to the Sheets API warm between events.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	return &http.Client{
		Transport: &http.Transport{
			DialContext:           dialer.DialContext,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			MaxConnsPerHost:       50,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 30 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
			ForceAttemptHTTP2:     true,
		},
		Timeout: 60 * time.Second,
	}
}

// AppendEntries appends entries to the tab of the year of their transaction date.
func (c *Client) AppendEntries(ctx context.Context, entries []ports.LedgerEntry) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	for _, batch := range groupByTab(entries, c.ledgerBase) {
		rng := fmt.Sprintf("%s!A:L", batch.tab)
		vr := &gsheet.ValueRange{Values: batch.rows}
		_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
			ValueInputOption("USER_ENTERED").
			InsertDataOption("INSERT_ROWS").
			Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("append to sheet %s: %w", batch.tab, err)
		}
		c.logger.DebugContext(ctx, "Ledger rows appended", "sheet", batch.tab, log.FieldCount, len(batch.rows))
	}
	return nil
}

type tabBatch struct {
	tab  string
	rows [][]any
}

// groupByTab splits entries per yearly tab, keeping input order inside each tab.
func groupByTab(entries []ports.LedgerEntry, base string) []tabBatch {
	byTab := map[string]*tabBatch{}
	var order []string
	for _, e := range entries {
		tab := yearPrefixedName(base, e.Date.Year())
		b, ok := byTab[tab]
		if !ok {
			b = &tabBatch{tab: tab}
			byTab[tab] = b
			order = append(order, tab)
		}
		b.rows = append(b.rows, entryRow(e))
	}
	sort.Strings(order)
	out := make([]tabBatch, 0, len(order))
	for _, tab := range order {
		out = append(out, *byTab[tab])
	}
	return out
}

func entryRow(e ports.LedgerEntry) []any {
	return []any{
		e.RecordedAt.UTC().Format(time.RFC3339),
		e.Op,
		e.UserID,
		e.TransactionID,
		e.TransferID,
		e.Type,
		e.Date.UTC().Format(time.DateOnly),
		e.Account,
		e.Division,
		e.Category,
		e.Description,
		e.Amount,
	}
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
