package server

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"kos-manager/internal/billing"
	"kos-manager/internal/finance"
	"kos-manager/models"
)

type Biller interface {
	GenerateMonthlyInvoices(ctx context.Context, date time.Time) (billing.Result, error)
}

type RunLister interface {
	ListRuns(ctx context.Context, limit int) ([]models.BillingRun, error)
}

type Finance interface {
	RecordPayment(ctx context.Context, req finance.PaymentRequest) (models.Invoice, error)
	ListInvoices(ctx context.Context, filter finance.InvoiceFilter) ([]models.Invoice, error)
	GetInvoice(ctx context.Context, id uint) (models.Invoice, error)
	MonthlyReport(ctx context.Context, period time.Time) (finance.Report, error)
}

type Handler struct {
	biller  Biller
	runs    RunLister
	finance Finance
	today   func() time.Time
	logger  *slog.Logger
}

func NewHandler(biller Biller, runs RunLister, fin Finance, today func() time.Time, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{biller: biller, runs: runs, finance: fin, today: today, logger: logger}
}

func abort(c *gin.Context, e apiError) {
	c.AbortWithStatusJSON(e.Status, e)
}

// financeReady reports whether the finance endpoints can be served; they are
// off when invoices are issued to a store the ledger cannot read.
func (h *Handler) financeReady(c *gin.Context) bool {
	if h.finance == nil {
		abort(c, errFinanceUnavailable)
		return false
	}
	return true
}

func (h *Handler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}

// GenerateInvoices runs the billing generator for the requested day, or today
// when the body carries no date.
func (h *Handler) GenerateInvoices(c *gin.Context) {
	var payload generateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&payload); err != nil {
			abort(c, errInvalidPayload)
			return
		}
	}

	date := h.today()
	if payload.Date != "" {
		d, err := time.Parse(time.DateOnly, payload.Date)
		if err != nil {
			abort(c, errInvalidDate)
			return
		}
		date = d
	}

	res, err := h.biller.GenerateMonthlyInvoices(c.Request.Context(), date)
	if err != nil {
		h.logger.Error("billing run failed", "run_id", res.RunID, "error", err)
		abort(c, errBillingRunFailed(res.RunID))
		return
	}
	c.JSON(http.StatusCreated, fromResult(res))
}

func (h *Handler) ListRuns(c *gin.Context) {
	limit := 20
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			abort(c, errInvalidPayload)
			return
		}
		limit = n
	}

	runs, err := h.runs.ListRuns(c.Request.Context(), limit)
	if err != nil {
		abort(c, mapFinanceError(err))
		return
	}
	out := make([]runResponse, 0, len(runs))
	for _, r := range runs {
		out = append(out, fromRun(r, h.logger))
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) ListInvoices(c *gin.Context) {
	if !h.financeReady(c) {
		return
	}
	var filter finance.InvoiceFilter
	if s := c.Query("period"); s != "" {
		period, err := billing.ParsePeriod(s)
		if err != nil {
			abort(c, errInvalidPeriod)
			return
		}
		filter.Period = period
	}
	if s := strings.TrimSpace(c.Query("status")); s != "" {
		switch status := models.InvoiceStatus(s); status {
		case models.InvoiceUnpaid, models.InvoicePaid, models.InvoiceOverdue:
			filter.Status = status
		default:
			abort(c, newAPIError(http.StatusBadRequest, "INVALID_STATUS", "status must be unpaid, paid or overdue"))
			return
		}
	}

	invoices, err := h.finance.ListInvoices(c.Request.Context(), filter)
	if err != nil {
		abort(c, mapFinanceError(err))
		return
	}
	out := make([]invoiceResponse, 0, len(invoices))
	for _, inv := range invoices {
		out = append(out, fromInvoice(inv))
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) GetInvoice(c *gin.Context) {
	if !h.financeReady(c) {
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		abort(c, errInvalidPayload)
		return
	}

	inv, err := h.finance.GetInvoice(c.Request.Context(), uint(id))
	if err != nil {
		abort(c, mapFinanceError(err))
		return
	}
	c.JSON(http.StatusOK, fromInvoice(inv))
}

func (h *Handler) RecordPayment(c *gin.Context) {
	if !h.financeReady(c) {
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		abort(c, errInvalidPayload)
		return
	}
	var payload paymentRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		abort(c, errInvalidPayload)
		return
	}

	req := finance.PaymentRequest{
		InvoiceID: uint(id),
		Amount:    payload.Amount,
		Method:    payload.Method,
	}
	if payload.PaidAt != nil {
		req.PaidAt = *payload.PaidAt
	}

	inv, err := h.finance.RecordPayment(c.Request.Context(), req)
	if err != nil {
		abort(c, mapFinanceError(err))
		return
	}
	c.JSON(http.StatusCreated, fromInvoice(inv))
}

func (h *Handler) MonthlyReport(c *gin.Context) {
	if !h.financeReady(c) {
		return
	}
	period, err := billing.ParsePeriod(c.Query("period"))
	if err != nil {
		abort(c, errInvalidPeriod)
		return
	}

	report, err := h.finance.MonthlyReport(c.Request.Context(), period)
	if err != nil {
		abort(c, mapFinanceError(err))
		return
	}
	c.JSON(http.StatusOK, report)
}
