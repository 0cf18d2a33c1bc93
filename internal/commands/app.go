package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"kos-manager/internal/billing"
	"kos-manager/internal/config"
	"kos-manager/internal/finance"
	"kos-manager/internal/store"
	"kos-manager/internal/store/dynamo"
	"kos-manager/models"
)

// App carries what every command needs. The database is opened on first use so
// that commands like --help work without one.
type App struct {
	Config config.Config
	Logger *slog.Logger

	db *gorm.DB
}

func NewApp(cfg config.Config, logger *slog.Logger) *App {
	return &App{Config: cfg, Logger: logger}
}

func (a *App) DB() (*gorm.DB, error) {
	if a.db != nil {
		return a.db, nil
	}
	db, err := store.Open(a.Config)
	if err != nil {
		return nil, err
	}
	a.db = db
	return db, nil
}

// Today is the current calendar day in the configured time zone.
func (a *App) Today() time.Time {
	return billing.Day(time.Now().In(a.Config.Location()))
}

// invoiceLedger is the invoice store selected by INVOICE_STORE.
type invoiceLedger interface {
	billing.InvoiceStore
	FindInvoice(ctx context.Context, tenancyID uint, period time.Time) (models.Invoice, bool, error)
}

func (a *App) invoiceStore(ctx context.Context, db *gorm.DB) (invoiceLedger, error) {
	if a.Config.InvoiceStore != config.InvoiceStoreDynamoDB {
		return store.NewInvoiceRepository(db), nil
	}
	client, err := dynamo.NewClient(ctx, a.Config.DynamoDB)
	if err != nil {
		return nil, fmt.Errorf("failed to create dynamodb client: %w", err)
	}
	return dynamo.NewInvoiceRepository(client, a.Config.DynamoDB.InvoicesTable), nil
}

func (a *App) Generator(ctx context.Context) (*billing.Generator, error) {
	db, err := a.DB()
	if err != nil {
		return nil, err
	}
	invoices, err := a.invoiceStore(ctx, db)
	if err != nil {
		return nil, err
	}
	return billing.NewGenerator(store.NewRoomRepository(db), invoices, store.NewRunRepository(db), a.Logger), nil
}

// Invoices returns the configured invoice store, SQL or DynamoDB.
func (a *App) Invoices(ctx context.Context) (invoiceLedger, error) {
	db, err := a.DB()
	if err != nil {
		return nil, err
	}
	return a.invoiceStore(ctx, db)
}

func (a *App) Runs() (*store.RunRepository, error) {
	db, err := a.DB()
	if err != nil {
		return nil, err
	}
	return store.NewRunRepository(db), nil
}

// Finance works on the SQL ledger only; invoices issued to DynamoDB are not
// payable through it.
func (a *App) Finance() (*finance.Service, error) {
	if a.Config.InvoiceStore != config.InvoiceStoreSQL {
		return nil, fmt.Errorf("payments and reports require INVOICE_STORE=%s", config.InvoiceStoreSQL)
	}
	db, err := a.DB()
	if err != nil {
		return nil, err
	}
	return finance.NewService(store.NewInvoiceRepository(db), a.Logger), nil
}
