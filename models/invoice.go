package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type InvoiceStatus string

const (
	InvoiceUnpaid  InvoiceStatus = "unpaid"
	InvoicePaid    InvoiceStatus = "paid"
	InvoiceOverdue InvoiceStatus = "overdue"
)

// Invoice is the monthly bill of a tenancy.
//
// BillingPeriod is always the first day of the covered month and, together with
// TenancyID, forms the natural key of the invoice.
type Invoice struct {
	gorm.Model
	TenancyID     uint            `gorm:"not null;uniqueIndex:idx_invoices_tenancy_period"`
	Tenancy       *Tenancy        `gorm:"foreignKey:TenancyID"`
	BillingPeriod datatypes.Date  `gorm:"not null;uniqueIndex:idx_invoices_tenancy_period"`
	Amount        decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	DueDate       datatypes.Date  `gorm:"not null"`
	Status        InvoiceStatus   `gorm:"type:varchar(16);not null;index"`
	Payments      []Payment       `gorm:"foreignKey:InvoiceID"`
}

// Period returns the billing period as a time.Time in UTC.
func (i Invoice) Period() time.Time {
	return time.Time(i.BillingPeriod).UTC()
}

// Due returns the due date as a time.Time in UTC.
func (i Invoice) Due() time.Time {
	return time.Time(i.DueDate).UTC()
}

// Payment records money received against an invoice
type Payment struct {
	gorm.Model
	InvoiceID uint            `gorm:"not null;index"`
	Reference string          `gorm:"type:varchar(64);not null;uniqueIndex"`
	Amount    decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Method    string          `gorm:"type:varchar(32)"`
	PaidAt    time.Time       `gorm:"not null"`
}
