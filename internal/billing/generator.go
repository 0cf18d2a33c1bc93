package billing

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
	"gorm.io/datatypes"

	"kos-manager/models"
)

// RoomSource lists the rooms to bill on a given day of month: occupied rooms whose
// BillingDate equals day, with RoomType, CurrentTenancy (active only) and the
// tenancy's Resident preloaded.
type RoomSource interface {
	ListBillableRooms(ctx context.Context, day int) ([]models.Room, error)
}

// InvoiceStore persists invoices keyed on (tenancy, billing period).
//
// CreateInvoiceIfAbsent must be atomic: it reports false, without error, when an
// invoice for the same key already exists.
type InvoiceStore interface {
	InvoiceExists(ctx context.Context, tenancyID uint, period time.Time) (bool, error)
	CreateInvoiceIfAbsent(ctx context.Context, invoice *models.Invoice) (bool, error)
}

// RunJournal keeps a record of every run.
type RunJournal interface {
	RecordRun(ctx context.Context, run models.BillingRun) error
}

// Generator issues the monthly invoices of every room whose billing date is today.
type Generator struct {
	rooms    RoomSource
	invoices InvoiceStore
	journal  RunJournal
	logger   *slog.Logger

	group   singleflight.Group
	waiting atomic.Int64
	now     func() time.Time
	newID   func() string
}

// NewGenerator builds a Generator. journal may be nil.
func NewGenerator(rooms RoomSource, invoices InvoiceStore, journal RunJournal, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		rooms:    rooms,
		invoices: invoices,
		journal:  journal,
		logger:   logger.With("component", "billing"),
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// GenerateMonthlyInvoices bills every due room for the calendar day of date.
//
// Overlapping calls for the same day share one execution and its result. The
// shared run is detached from the callers' cancellation: a caller whose ctx is
// done stops waiting and gets ctx.Err(), while the run carries on for the
// others. Rooms with consistency problems are reported in Result.Anomalies and
// skipped; a storage error stops the run and is returned together with the
// partial result.
func (g *Generator) GenerateMonthlyInvoices(ctx context.Context, date time.Time) (Result, error) {
	day := Day(date)
	key := day.Format(time.DateOnly)
	runCtx := context.WithoutCancel(ctx)

	ch := g.group.DoChan(key, func() (interface{}, error) {
		return g.run(runCtx, day)
	})
	g.waiting.Add(1)
	defer g.waiting.Add(-1)

	select {
	case r := <-ch:
		return g.shared(key, r)
	case <-ctx.Done():
		select {
		case r := <-ch:
			return g.shared(key, r)
		default:
		}
		g.logger.Warn("stopped waiting for billing run", "date", key, "error", ctx.Err())
		return Result{}, ctx.Err()
	}
}

func (g *Generator) shared(key string, r singleflight.Result) (Result, error) {
	if r.Shared {
		g.logger.Debug("joined in-flight billing run", "date", key)
	}
	res, _ := r.Val.(Result)
	return res, r.Err
}

func (g *Generator) run(ctx context.Context, day time.Time) (Result, error) {
	res := Result{
		RunID:     g.newID(),
		Date:      day,
		Period:    PeriodOf(day),
		StartedAt: g.now(),
	}
	logger := g.logger.With("run_id", res.RunID, "date", day.Format(time.DateOnly))
	logger.Info("billing run started", "period", res.Period.Format("2006-01"))

	err := g.bill(ctx, logger, &res)
	res.FinishedAt = g.now()

	if g.journal != nil {
		// an aborted run is journaled too, even when ctx is what aborted it
		if jerr := g.journal.RecordRun(context.WithoutCancel(ctx), res.toRecord(err)); jerr != nil {
			logger.Error("failed to record billing run", "error", jerr)
		}
	}

	if err != nil {
		logger.Error("billing run aborted",
			"rooms_checked", res.RoomsChecked,
			"created", res.Created(),
			"error", err,
		)
		return res, err
	}

	logger.Info("billing run finished",
		"rooms_checked", res.RoomsChecked,
		"created", res.Created(),
		"skipped", res.Skipped,
		"anomalies", len(res.Anomalies),
	)
	return res, nil
}

func (g *Generator) bill(ctx context.Context, logger *slog.Logger, res *Result) error {
	rooms, err := g.rooms.ListBillableRooms(ctx, res.Date.Day())
	if err != nil {
		return fmt.Errorf("failed to list billable rooms: %w", err)
	}
	res.RoomsChecked = len(rooms)

	for _, room := range rooms {
		tenancy := room.CurrentTenancy
		if tenancy == nil {
			res.addAnomaly(room, 0, AnomalyNoActiveTenancy, "room is occupied but has no active tenancy")
			logger.Warn("room occupied without active tenancy", "room_id", room.ID, "room", room.Number)
			continue
		}

		exists, err := g.invoices.InvoiceExists(ctx, tenancy.ID, res.Period)
		if err != nil {
			return fmt.Errorf("failed to check invoice for tenancy %d: %w", tenancy.ID, err)
		}
		if exists {
			res.Skipped++
			logger.Debug("invoice already issued", "room_id", room.ID, "tenancy_id", tenancy.ID)
			continue
		}

		status, err := ResidentStatusOf(tenancy)
		if err != nil {
			res.addAnomaly(room, tenancy.ID, AnomalyUnknownResidentStatus, err.Error())
			logger.Warn("resident status not billable", "room_id", room.ID, "tenancy_id", tenancy.ID, "error", err)
			continue
		}

		amount, err := MonthlyAmount(room.DailyRate(), status, res.Period)
		if err != nil {
			return err
		}

		invoice := models.Invoice{
			TenancyID:     tenancy.ID,
			BillingPeriod: datatypes.Date(res.Period),
			Amount:        amount,
			DueDate:       datatypes.Date(DueDateOf(res.Period)),
			Status:        models.InvoiceUnpaid,
		}
		created, err := g.invoices.CreateInvoiceIfAbsent(ctx, &invoice)
		if err != nil {
			return fmt.Errorf("failed to create invoice for tenancy %d: %w", tenancy.ID, err)
		}
		if !created {
			res.Skipped++
			logger.Debug("invoice created concurrently", "room_id", room.ID, "tenancy_id", tenancy.ID)
			continue
		}

		res.Invoices = append(res.Invoices, invoice)
		logger.Info("invoice created",
			"room_id", room.ID,
			"room", room.Number,
			"tenancy_id", tenancy.ID,
			"resident_status", status,
			"amount", amount.String(),
		)
	}
	return nil
}
