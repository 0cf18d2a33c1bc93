package server

import (
	"errors"
	"net/http"

	"kos-manager/internal/finance"
)

// apiError is the JSON error body returned by every endpoint.
type apiError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func newAPIError(status int, code, message string) apiError {
	return apiError{Status: status, Code: code, Message: message}
}

var (
	errInvalidPayload = newAPIError(http.StatusBadRequest, "INVALID_REQUEST", "Invalid request")
	errInvalidPeriod  = newAPIError(http.StatusBadRequest, "INVALID_PERIOD", "period must be YYYY-MM")
	errInvalidDate    = newAPIError(http.StatusBadRequest, "INVALID_DATE", "date must be YYYY-MM-DD")

	errFinanceUnavailable = newAPIError(http.StatusServiceUnavailable, "FINANCE_UNAVAILABLE", "payments and reports require the SQL invoice store")
)

// errBillingRunFailed points at the journal entry instead of exposing the
// storage error.
func errBillingRunFailed(runID string) apiError {
	msg := "Billing run failed"
	if runID != "" {
		msg += ", see billing run " + runID
	}
	return newAPIError(http.StatusInternalServerError, "BILLING_RUN_FAILED", msg)
}

func mapFinanceError(err error) apiError {
	switch {
	case errors.Is(err, finance.ErrInvoiceNotFound):
		return newAPIError(http.StatusNotFound, "INVOICE_NOT_FOUND", "Invoice not found")
	case errors.Is(err, finance.ErrInvoiceAlreadyPaid):
		return newAPIError(http.StatusConflict, "INVOICE_ALREADY_PAID", "Invoice already paid")
	case errors.Is(err, finance.ErrInvalidAmount):
		return newAPIError(http.StatusBadRequest, "INVALID_AMOUNT", err.Error())
	case errors.Is(err, finance.ErrOverpayment):
		return newAPIError(http.StatusUnprocessableEntity, "OVERPAYMENT", err.Error())
	default:
		return newAPIError(http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}
