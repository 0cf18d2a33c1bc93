package finance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"kos-manager/models"
)

var (
	ErrInvoiceNotFound    = errors.New("invoice not found")
	ErrInvoiceAlreadyPaid = errors.New("invoice already paid")
	ErrInvalidAmount      = errors.New("payment amount must be greater than zero")
	ErrOverpayment        = errors.New("payment exceeds outstanding balance")
)

// InvoiceFilter narrows ListInvoices. Zero fields match everything.
type InvoiceFilter struct {
	Period time.Time
	Status models.InvoiceStatus
}

// PaymentDecision turns a locked invoice (with its payments loaded) into the
// payment to store and the invoice's resulting status.
type PaymentDecision func(invoice models.Invoice) (models.Payment, models.InvoiceStatus, error)

// Ledger abstracts invoice and payment persistence.
//
// ApplyPayment must load and lock the invoice, call decide, then store the
// payment and status atomically.
type Ledger interface {
	ApplyPayment(ctx context.Context, invoiceID uint, decide PaymentDecision) (models.Invoice, error)
	MarkOverdue(ctx context.Context, asOf time.Time) (int64, error)
	ListInvoices(ctx context.Context, filter InvoiceFilter) ([]models.Invoice, error)
	GetInvoice(ctx context.Context, id uint) (models.Invoice, error)
}

type PaymentRequest struct {
	InvoiceID uint
	Amount    decimal.Decimal
	Method    string
	PaidAt    time.Time
}

type Service struct {
	ledger Ledger
	logger *slog.Logger
	now    func() time.Time
	newRef func() string
}

func NewService(ledger Ledger, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		ledger: ledger,
		logger: logger.With("component", "finance"),
		now:    time.Now,
		newRef: uuid.NewString,
	}
}

// Outstanding is what remains to be paid on an invoice, never below zero.
func Outstanding(invoice models.Invoice) decimal.Decimal {
	paid := decimal.Zero
	for _, p := range invoice.Payments {
		paid = paid.Add(p.Amount)
	}
	left := invoice.Amount.Sub(paid)
	if left.IsNegative() {
		return decimal.Zero
	}
	return left
}

// RecordPayment stores a payment against an invoice. The invoice becomes paid
// once its payments cover the billed amount.
func (s *Service) RecordPayment(ctx context.Context, req PaymentRequest) (models.Invoice, error) {
	if !req.Amount.IsPositive() {
		return models.Invoice{}, ErrInvalidAmount
	}
	paidAt := req.PaidAt
	if paidAt.IsZero() {
		paidAt = s.now()
	}

	invoice, err := s.ledger.ApplyPayment(ctx, req.InvoiceID, func(inv models.Invoice) (models.Payment, models.InvoiceStatus, error) {
		if inv.Status == models.InvoicePaid {
			return models.Payment{}, "", ErrInvoiceAlreadyPaid
		}
		left := Outstanding(inv)
		if req.Amount.GreaterThan(left) {
			return models.Payment{}, "", fmt.Errorf("%w: outstanding %s", ErrOverpayment, left.StringFixed(2))
		}

		status := inv.Status
		if req.Amount.Equal(left) {
			status = models.InvoicePaid
		}
		return models.Payment{
			Reference: s.newRef(),
			Amount:    req.Amount,
			Method:    strings.TrimSpace(req.Method),
			PaidAt:    paidAt,
		}, status, nil
	})
	if err != nil {
		s.logger.Warn("payment rejected", "invoice_id", req.InvoiceID, "amount", req.Amount.String(), "error", err)
		return models.Invoice{}, err
	}

	s.logger.Info("payment recorded",
		"invoice_id", invoice.ID,
		"amount", req.Amount.String(),
		"status", invoice.Status,
	)
	return invoice, nil
}

// MarkOverdue flags unpaid invoices whose due date is before asOf.
func (s *Service) MarkOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	n, err := s.ledger.MarkOverdue(ctx, asOf)
	if err != nil {
		return 0, fmt.Errorf("failed to mark overdue invoices: %w", err)
	}
	s.logger.Info("overdue invoices marked", "as_of", asOf.Format(time.DateOnly), "count", n)
	return n, nil
}

// GetInvoice returns an invoice with its payments, or ErrInvoiceNotFound.
func (s *Service) GetInvoice(ctx context.Context, id uint) (models.Invoice, error) {
	return s.ledger.GetInvoice(ctx, id)
}

func (s *Service) ListInvoices(ctx context.Context, filter InvoiceFilter) ([]models.Invoice, error) {
	return s.ledger.ListInvoices(ctx, filter)
}
