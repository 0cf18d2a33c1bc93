package finance

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"kos-manager/models"
)

// Report is the financial summary of one billing period
type Report struct {
	Period      time.Time                    `json:"period"`
	Invoices    int                          `json:"invoices"`
	Billed      decimal.Decimal              `json:"billed"`
	Collected   decimal.Decimal              `json:"collected"`
	Outstanding decimal.Decimal              `json:"outstanding"`
	ByStatus    map[models.InvoiceStatus]int `json:"by_status"`
}

func (s *Service) MonthlyReport(ctx context.Context, period time.Time) (Report, error) {
	invoices, err := s.ledger.ListInvoices(ctx, InvoiceFilter{Period: period})
	if err != nil {
		return Report{}, fmt.Errorf("failed to load invoices: %w", err)
	}
	return summarize(period, invoices), nil
}

func summarize(period time.Time, invoices []models.Invoice) Report {
	r := Report{
		Period:      period,
		Invoices:    len(invoices),
		Billed:      decimal.Zero,
		Collected:   decimal.Zero,
		Outstanding: decimal.Zero,
		ByStatus:    map[models.InvoiceStatus]int{},
	}
	for _, inv := range invoices {
		r.Billed = r.Billed.Add(inv.Amount)
		for _, p := range inv.Payments {
			r.Collected = r.Collected.Add(p.Amount)
		}
		r.Outstanding = r.Outstanding.Add(Outstanding(inv))
		r.ByStatus[inv.Status]++
	}
	return r
}
