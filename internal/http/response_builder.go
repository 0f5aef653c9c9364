// Package http provides the JSON API server and its handlers.
//
// This file implements the Builder Pattern for constructing API responses.
// Every body carries a "success" flag; errors add a "message" and successful
// responses add named payload fields.

package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"moneymanager/internal/auth"
	"moneymanager/internal/core"
	"moneymanager/internal/log"
)

// errBadRequest marks malformed request bodies and query strings.
var errBadRequest = errors.New("invalid request")

// ResponseBuilder provides a fluent API for building JSON responses.
type ResponseBuilder struct {
	statusCode int
	body       gin.H
	headers    map[string]string
}

// NewResponse creates a successful response builder with default 200 status.
func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		statusCode: http.StatusOK,
		body:       gin.H{"success": true},
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

// Message sets the human readable message.
func (b *ResponseBuilder) Message(msg string) *ResponseBuilder {
	b.body["message"] = msg
	return b
}

// With adds a named payload field.
func (b *ResponseBuilder) With(key string, value any) *ResponseBuilder {
	b.body[key] = value
	return b
}

// Header adds a custom header to the response.
func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// Write sends the built response and stops the handler chain.
func (b *ResponseBuilder) Write(c *gin.Context) {
	for name, value := range b.headers {
		c.Header(name, value)
	}
	c.AbortWithStatusJSON(b.statusCode, b.body)
}

// ErrorResponse creates a failed response with the given status.
func ErrorResponse(statusCode int, message string) *ResponseBuilder {
	return &ResponseBuilder{
		statusCode: statusCode,
		body:       gin.H{"success": false, "message": message},
		headers:    make(map[string]string),
	}
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

// UnauthorizedError creates a 401 Unauthorized error response.
func UnauthorizedError() *ResponseBuilder {
	return ErrorResponse(http.StatusUnauthorized, "Not authorized").
		Header("WWW-Authenticate", `Bearer realm="moneymanager"`)
}

// NotFoundError creates a 404 Not Found error response.
func NotFoundError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

// TooManyRequestsError creates a 429 Too Many Requests error response.
func TooManyRequestsError() *ResponseBuilder {
	return ErrorResponse(http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
}

// InternalServerError creates a 500 response. Internal details never reach the client.
func InternalServerError() *ResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, "Server error occurred")
}

// ErrorFor maps a service error to its response.
func ErrorFor(err error) *ResponseBuilder {
	switch {
	case errors.Is(err, core.ErrNotFound):
		return NotFoundError("Transaction not found")
	case errors.Is(err, core.ErrEditWindowExpired):
		return ErrorResponse(http.StatusForbidden, core.ErrEditWindowExpired.Error())
	case core.IsValidation(err), errors.Is(err, core.ErrInvalidPeriod), errors.Is(err, errBadRequest):
		return BadRequestError(err.Error())
	case errors.Is(err, auth.ErrMissingToken), errors.Is(err, auth.ErrInvalidToken):
		return UnauthorizedError()
	default:
		return InternalServerError()
	}
}

// respondError logs unexpected failures and writes the mapped response.
func respondError(c *gin.Context, op string, err error) {
	resp := ErrorFor(err)
	if resp.statusCode >= http.StatusInternalServerError {
		logger := log.FromContext(c.Request.Context())
		logger.ErrorContext(c.Request.Context(), "Request failed",
			log.FieldOperation, op,
			log.FieldUserID, c.GetString(userIDKey),
			log.FieldError, err.Error())
	}
	resp.Write(c)
}

// transactionJSON is the wire form of a transaction.
type transactionJSON struct {
	ID            string          `json:"id"`
	UserID        string          `json:"userId"`
	Type          core.TxType     `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	Category      string          `json:"category"`
	Division      core.Division   `json:"division"`
	Account       core.Account    `json:"account"`
	Description   string          `json:"description"`
	Date          time.Time       `json:"date"`
	TransferID    string          `json:"transferId,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
	EditableUntil time.Time       `json:"editableUntil"`
}

func toJSON(tx core.Transaction) transactionJSON {
	return transactionJSON{
		ID:            tx.ID,
		UserID:        tx.UserID,
		Type:          tx.Type,
		Amount:        tx.Amount,
		Category:      tx.Category,
		Division:      tx.Division,
		Account:       tx.Account,
		Description:   tx.Description,
		Date:          tx.Date,
		TransferID:    tx.TransferID,
		CreatedAt:     tx.CreatedAt,
		UpdatedAt:     tx.UpdatedAt,
		EditableUntil: tx.CreatedAt.Add(core.EditWindow),
	}
}

func toJSONList(txs []core.Transaction) []transactionJSON {
	out := make([]transactionJSON, 0, len(txs))
	for _, tx := range txs {
		out = append(out, toJSON(tx))
	}
	return out
}

type paginationJSON struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Pages int `json:"pages"`
	Limit int `json:"limit"`
}
