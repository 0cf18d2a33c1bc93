package server

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"kos-manager/internal/billing"
	"kos-manager/models"
)

type generateRequest struct {
	Date string `json:"date"`
}

type paymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Method string          `json:"method"`
	PaidAt *time.Time      `json:"paid_at"`
}

type paymentResponse struct {
	Reference string          `json:"reference"`
	Amount    decimal.Decimal `json:"amount"`
	Method    string          `json:"method"`
	PaidAt    time.Time       `json:"paid_at"`
}

type invoiceResponse struct {
	ID            uint                 `json:"id"`
	TenancyID     uint                 `json:"tenancy_id"`
	Room          string               `json:"room,omitempty"`
	Resident      string               `json:"resident,omitempty"`
	BillingPeriod string               `json:"billing_period"`
	DueDate       string               `json:"due_date"`
	Amount        decimal.Decimal      `json:"amount"`
	Status        models.InvoiceStatus `json:"status"`
	Payments      []paymentResponse    `json:"payments"`
}

func fromInvoice(inv models.Invoice) invoiceResponse {
	out := invoiceResponse{
		ID:            inv.ID,
		TenancyID:     inv.TenancyID,
		BillingPeriod: inv.Period().Format(time.DateOnly),
		DueDate:       inv.Due().Format(time.DateOnly),
		Amount:        inv.Amount,
		Status:        inv.Status,
		Payments:      make([]paymentResponse, 0, len(inv.Payments)),
	}
	if inv.Tenancy != nil {
		if inv.Tenancy.Room != nil {
			out.Room = inv.Tenancy.Room.Number
		}
		if inv.Tenancy.Resident != nil {
			out.Resident = inv.Tenancy.Resident.Name
		}
	}
	for _, p := range inv.Payments {
		out.Payments = append(out.Payments, paymentResponse{
			Reference: p.Reference,
			Amount:    p.Amount,
			Method:    p.Method,
			PaidAt:    p.PaidAt,
		})
	}
	return out
}

type runResponse struct {
	ID           string            `json:"id"`
	Date         string            `json:"date"`
	Period       string            `json:"period"`
	RoomsChecked int               `json:"rooms_checked"`
	Created      int               `json:"created"`
	Skipped      int               `json:"skipped"`
	Anomalies    []billing.Anomaly `json:"anomalies"`
	Error        string            `json:"error,omitempty"`
	StartedAt    time.Time         `json:"started_at"`
	FinishedAt   time.Time         `json:"finished_at"`
}

func fromResult(res billing.Result) runResponse {
	anomalies := res.Anomalies
	if anomalies == nil {
		anomalies = []billing.Anomaly{}
	}
	return runResponse{
		ID:           res.RunID,
		Date:         res.Date.Format(time.DateOnly),
		Period:       res.Period.Format("2006-01"),
		RoomsChecked: res.RoomsChecked,
		Created:      res.Created(),
		Skipped:      res.Skipped,
		Anomalies:    anomalies,
		StartedAt:    res.StartedAt,
		FinishedAt:   res.FinishedAt,
	}
}

// fromRun renders a journal entry. A corrupt anomalies payload is logged and
// rendered as an empty list.
func fromRun(run models.BillingRun, logger *slog.Logger) runResponse {
	anomalies := []billing.Anomaly{}
	if len(run.Anomalies) > 0 {
		if err := json.Unmarshal(run.Anomalies, &anomalies); err != nil {
			logger.Error("unreadable anomalies in billing run journal", "run_id", run.ID, "error", err)
			anomalies = []billing.Anomaly{}
		}
	}
	return runResponse{
		ID:           run.ID,
		Date:         time.Time(run.ReferenceDay).Format(time.DateOnly),
		Period:       time.Time(run.Period).Format("2006-01"),
		RoomsChecked: run.RoomsChecked,
		Created:      run.Created,
		Skipped:      run.Skipped,
		Anomalies:    anomalies,
		Error:        run.Error,
		StartedAt:    run.StartedAt,
		FinishedAt:   run.FinishedAt,
	}
}
