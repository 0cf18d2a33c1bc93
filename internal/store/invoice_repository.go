package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"kos-manager/internal/billing"
	"kos-manager/internal/finance"
	"kos-manager/models"
)

type InvoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

// InvoiceExists also sees soft-deleted invoices, matching the unique index.
func (r *InvoiceRepository) InvoiceExists(ctx context.Context, tenancyID uint, period time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Unscoped().
		Model(&models.Invoice{}).
		Where("tenancy_id = ? AND billing_period = ?", tenancyID, datatypes.Date(billing.PeriodOf(period))).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// CreateInvoiceIfAbsent inserts the invoice unless one already exists for its
// (tenancy, billing period); the unique index decides, so concurrent callers
// cannot both succeed.
func (r *InvoiceRepository) CreateInvoiceIfAbsent(ctx context.Context, invoice *models.Invoice) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tenancy_id"}, {Name: "billing_period"}},
			DoNothing: true,
		}).
		Create(invoice)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *InvoiceRepository) GetInvoice(ctx context.Context, id uint) (models.Invoice, error) {
	var inv models.Invoice
	err := r.db.WithContext(ctx).Preload("Payments").First(&inv, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Invoice{}, finance.ErrInvoiceNotFound
	}
	if err != nil {
		return models.Invoice{}, err
	}
	return inv, nil
}

// FindInvoice looks an invoice up by its natural key. ok is false when none
// was issued.
func (r *InvoiceRepository) FindInvoice(ctx context.Context, tenancyID uint, period time.Time) (models.Invoice, bool, error) {
	var invoices []models.Invoice
	err := r.db.WithContext(ctx).
		Preload("Payments").
		Where("tenancy_id = ? AND billing_period = ?", tenancyID, datatypes.Date(billing.PeriodOf(period))).
		Limit(1).
		Find(&invoices).Error
	if err != nil {
		return models.Invoice{}, false, err
	}
	if len(invoices) == 0 {
		return models.Invoice{}, false, nil
	}
	return invoices[0], true, nil
}

func (r *InvoiceRepository) ListInvoices(ctx context.Context, filter finance.InvoiceFilter) ([]models.Invoice, error) {
	q := r.db.WithContext(ctx).
		Preload("Payments").
		Preload("Tenancy.Room").
		Preload("Tenancy.Resident")
	if !filter.Period.IsZero() {
		q = q.Where("billing_period = ?", datatypes.Date(billing.PeriodOf(filter.Period)))
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}

	var invoices []models.Invoice
	if err := q.Order("billing_period DESC").Order("id").Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

// ApplyPayment locks the invoice row, lets decide build the payment, then
// writes the payment and the new status in one transaction.
func (r *InvoiceRepository) ApplyPayment(ctx context.Context, invoiceID uint, decide finance.PaymentDecision) (models.Invoice, error) {
	var out models.Invoice
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var inv models.Invoice
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&inv, invoiceID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return finance.ErrInvoiceNotFound
		}
		if err != nil {
			return err
		}
		if err := tx.Where("invoice_id = ?", inv.ID).Order("id").Find(&inv.Payments).Error; err != nil {
			return err
		}

		payment, status, err := decide(inv)
		if err != nil {
			return err
		}
		payment.InvoiceID = inv.ID
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}
		if status != inv.Status {
			if err := tx.Model(&inv).Update("status", status).Error; err != nil {
				return err
			}
		}

		inv.Status = status
		inv.Payments = append(inv.Payments, payment)
		out = inv
		return nil
	})
	if err != nil {
		return models.Invoice{}, err
	}
	return out, nil
}

func (r *InvoiceRepository) MarkOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Invoice{}).
		Where("status = ? AND due_date < ?", models.InvoiceUnpaid, datatypes.Date(billing.Day(asOf))).
		Update("status", models.InvoiceOverdue)
	return result.RowsAffected, result.Error
}
