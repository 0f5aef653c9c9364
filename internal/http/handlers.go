package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"moneymanager/internal/core"
	"moneymanager/internal/log"
	"moneymanager/internal/report"
	"moneymanager/internal/services"
)

// TransactionAPI is the service surface the handlers drive.
type TransactionAPI interface {
	Create(ctx context.Context, userID string, in services.NewTransaction) (core.Transaction, error)
	Transfer(ctx context.Context, userID string, req services.TransferRequest) ([]core.Transaction, error)
	Get(ctx context.Context, userID, id string) (core.Transaction, error)
	List(ctx context.Context, userID string, p services.ListParams) ([]core.Transaction, error)
	History(ctx context.Context, userID string, page, limit int) (core.Page, error)
	Update(ctx context.Context, userID, id string, patch services.Patch) (core.Transaction, error)
	Delete(ctx context.Context, userID, id string) error
	Summary(ctx context.Context, userID string, p report.PeriodParams, f core.Filters) (core.Summary, core.DateRange, error)
}

// Reconciler checks the caller's transfers.
type Reconciler interface {
	Reconcile(ctx context.Context, userID string) (services.ReconcileReport, error)
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type handlers struct {
	svc        TransactionAPI
	reconciler Reconciler
	store      Pinger
}

func (h *handlers) health(c *gin.Context) {
	if err := h.store.Ping(c.Request.Context()); err != nil {
		log.FromContext(c.Request.Context()).WarnContext(c.Request.Context(), "Health check failed",
			log.FieldError, err.Error())
		ErrorResponse(http.StatusServiceUnavailable, "Storage unavailable").Write(c)
		return
	}
	NewResponse().Message("Server is running").Write(c)
}

// bind decodes the JSON body into dst. Amount and date errors keep their own
// meaning; anything else is a malformed body.
func bind(c *gin.Context, dst any) error {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return nil
	}
	if core.IsValidation(err) || errors.Is(err, errBadRequest) {
		return err
	}
	return fmt.Errorf("%w: malformed JSON body", errBadRequest)
}

func (h *handlers) create(c *gin.Context) {
	var req createRequest
	if err := bind(c, &req); err != nil {
		respondError(c, log.OpCreate, err)
		return
	}

	tx, err := h.svc.Create(c.Request.Context(), userID(c), req.toService())
	if err != nil {
		respondError(c, log.OpCreate, err)
		return
	}
	NewResponse().
		Status(http.StatusCreated).
		Message("Transaction created successfully").
		With("transaction", toJSON(tx)).
		Write(c)
}

func (h *handlers) list(c *gin.Context) {
	params, err := ParseListParams(c.Request.URL.Query())
	if err != nil {
		respondError(c, log.OpList, err)
		return
	}

	txs, err := h.svc.List(c.Request.Context(), userID(c), params)
	if err != nil {
		respondError(c, log.OpList, err)
		return
	}
	NewResponse().
		With("transactions", toJSONList(txs)).
		With("count", len(txs)).
		Write(c)
}

func (h *handlers) summary(c *gin.Context) {
	q := c.Request.URL.Query()
	period, err := report.ParsePeriodParams(q)
	if err != nil {
		respondError(c, log.OpSummarize, err)
		return
	}

	sum, rng, err := h.svc.Summary(c.Request.Context(), userID(c), period, ParseFilters(q))
	if err != nil {
		respondError(c, log.OpSummarize, err)
		return
	}
	NewResponse().
		With("summary", sum).
		With("range", rng).
		Write(c)
}

func (h *handlers) history(c *gin.Context) {
	page, limit := ParsePageParams(c.Request.URL.Query())

	p, err := h.svc.History(c.Request.Context(), userID(c), page, limit)
	if err != nil {
		respondError(c, log.OpList, err)
		return
	}
	NewResponse().
		With("transactions", toJSONList(p.Transactions)).
		With("pagination", paginationJSON{Total: p.Total, Page: p.Page, Pages: p.Pages, Limit: p.Limit}).
		Write(c)
}

func (h *handlers) transfer(c *gin.Context) {
	var req transferRequest
	if err := bind(c, &req); err != nil {
		respondError(c, log.OpTransfer, err)
		return
	}

	legs, err := h.svc.Transfer(c.Request.Context(), userID(c), req.toService())
	if err != nil {
		respondError(c, log.OpTransfer, err)
		return
	}
	NewResponse().
		Status(http.StatusCreated).
		Message("Transfer completed successfully").
		With("transactions", toJSONList(legs)).
		Write(c)
}

func (h *handlers) reconcile(c *gin.Context) {
	rep, err := h.reconciler.Reconcile(c.Request.Context(), userID(c))
	if err != nil {
		respondError(c, log.OpReconcile, err)
		return
	}
	NewResponse().
		With("healthy", rep.Healthy()).
		With("report", rep).
		Write(c)
}

func (h *handlers) get(c *gin.Context) {
	tx, err := h.svc.Get(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		respondError(c, log.OpRead, err)
		return
	}
	NewResponse().With("transaction", toJSON(tx)).Write(c)
}

func (h *handlers) update(c *gin.Context) {
	var req updateRequest
	if err := bind(c, &req); err != nil {
		respondError(c, log.OpUpdate, err)
		return
	}

	tx, err := h.svc.Update(c.Request.Context(), userID(c), c.Param("id"), req.toPatch())
	if err != nil {
		respondError(c, log.OpUpdate, err)
		return
	}
	NewResponse().
		Message("Transaction updated successfully").
		With("transaction", toJSON(tx)).
		Write(c)
}

func (h *handlers) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), userID(c), c.Param("id")); err != nil {
		respondError(c, log.OpDelete, err)
		return
	}
	NewResponse().Message("Transaction deleted successfully").Write(c)
}
