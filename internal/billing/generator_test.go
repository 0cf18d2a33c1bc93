package billing

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kos-manager/models"
)

type fakeRooms struct {
	rooms []models.Room
	err   error
	calls int
	mu    sync.Mutex
	gate  chan struct{}
}

func (f *fakeRooms) ListBillableRooms(_ context.Context, day int) ([]models.Room, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.gate != nil {
		<-f.gate
	}
	if f.err != nil {
		return nil, f.err
	}
	var out []models.Room
	for _, r := range f.rooms {
		if r.Status == models.RoomOccupied && r.BillingDate == day {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRooms) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type invoiceKey struct {
	tenancyID uint
	period    string
}

type fakeInvoices struct {
	mu        sync.Mutex
	invoices  map[invoiceKey]models.Invoice
	nextID    uint
	existsErr error
	createErr map[uint]error
	// existsLies makes InvoiceExists always answer false, like a check that
	// raced with another writer.
	existsLies bool
}

func newFakeInvoices() *fakeInvoices {
	return &fakeInvoices{invoices: map[invoiceKey]models.Invoice{}, createErr: map[uint]error{}}
}

func (f *fakeInvoices) InvoiceExists(ctx context.Context, tenancyID uint, period time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.existsErr != nil {
		return false, f.existsErr
	}
	if f.existsLies {
		return false, nil
	}
	_, ok := f.invoices[invoiceKey{tenancyID, period.Format(time.DateOnly)}]
	return ok, nil
}

func (f *fakeInvoices) CreateInvoiceIfAbsent(_ context.Context, inv *models.Invoice) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.createErr[inv.TenancyID]; err != nil {
		return false, err
	}
	key := invoiceKey{inv.TenancyID, inv.Period().Format(time.DateOnly)}
	if _, ok := f.invoices[key]; ok {
		return false, nil
	}
	f.nextID++
	inv.ID = f.nextID
	f.invoices[key] = *inv
	return true, nil
}

func (f *fakeInvoices) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.invoices)
}

type fakeJournal struct {
	runs []models.BillingRun
}

// RecordRun fails like a real database would when ctx is already done.
func (f *fakeJournal) RecordRun(ctx context.Context, run models.BillingRun) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.runs = append(f.runs, run)
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func roomType(rate int64) *models.RoomType {
	return &models.RoomType{DailyRate: decimal.NewFromInt(rate)}
}

func occupiedRoom(id uint, billingDate int, rt *models.RoomType, tenancy *models.Tenancy) models.Room {
	r := models.Room{
		Number:         "A" + string(rune('0'+id)),
		BillingDate:    billingDate,
		Status:         models.RoomOccupied,
		RoomType:       rt,
		CurrentTenancy: tenancy,
	}
	r.ID = id
	return r
}

func tenancy(id uint, status models.ResidentStatus) *models.Tenancy {
	t := &models.Tenancy{Status: models.TenancyActive}
	t.ID = id
	if status != "" {
		t.Resident = &models.Resident{Status: status}
	}
	return t
}

func newTestGenerator(rooms RoomSource, invoices InvoiceStore, journal RunJournal) *Generator {
	g := NewGenerator(rooms, invoices, journal, quietLogger())
	g.newID = func() string { return "run-1" }
	return g
}

func TestGenerateMonthlyInvoices_ConfirmedResident(t *testing.T) {
	rooms := &fakeRooms{rooms: []models.Room{
		occupiedRoom(1, 15, roomType(50000), tenancy(10, models.ResidentConfirmed)),
	}}
	invoices := newFakeInvoices()
	g := newTestGenerator(rooms, invoices, nil)

	res, err := g.GenerateMonthlyInvoices(context.Background(), date("2026-03-15"))
	require.NoError(t, err)
	require.Equal(t, 1, res.Created())

	inv := res.Invoices[0]
	assert.Equal(t, uint(10), inv.TenancyID)
	assert.True(t, decimal.NewFromInt(1500000).Equal(inv.Amount), "amount %s", inv.Amount)
	assert.Equal(t, date("2026-03-01"), inv.Period())
	assert.Equal(t, date("2026-03-10"), inv.Due())
	assert.Equal(t, models.InvoiceUnpaid, inv.Status)
}

func TestGenerateMonthlyInvoices_ProspectiveResident(t *testing.T) {
	tests := []struct {
		name string
		date string
		want int64
	}{
		{"31-day month", "2026-03-05", 1550000},
		{"february non-leap", "2026-02-05", 1400000},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rooms := &fakeRooms{rooms: []models.Room{
				occupiedRoom(1, 5, roomType(50000), tenancy(10, models.ResidentProspective)),
			}}
			g := newTestGenerator(rooms, newFakeInvoices(), nil)

			res, err := g.GenerateMonthlyInvoices(context.Background(), date(tc.date))
			require.NoError(t, err)
			require.Equal(t, 1, res.Created())
			assert.True(t, decimal.NewFromInt(tc.want).Equal(res.Invoices[0].Amount))
		})
	}
}

func TestGenerateMonthlyInvoices_MissingResidentBillsByDayCount(t *testing.T) {
	rooms := &fakeRooms{rooms: []models.Room{
		occupiedRoom(1, 5, roomType(50000), tenancy(10, "")),
	}}
	g := newTestGenerator(rooms, newFakeInvoices(), nil)

	res, err := g.GenerateMonthlyInvoices(context.Background(), date("2026-04-05"))
	require.NoError(t, err)
	require.Equal(t, 1, res.Created())
	assert.True(t, decimal.NewFromInt(1500000).Equal(res.Invoices[0].Amount))
}

func TestGenerateMonthlyInvoices_Idempotent(t *testing.T) {
	rooms := &fakeRooms{rooms: []models.Room{
		occupiedRoom(1, 15, roomType(50000), tenancy(10, models.ResidentConfirmed)),
	}}
	invoices := newFakeInvoices()
	g := newTestGenerator(rooms, invoices, nil)

	first, err := g.GenerateMonthlyInvoices(context.Background(), date("2026-03-15"))
	require.NoError(t, err)
	second, err := g.GenerateMonthlyInvoices(context.Background(), date("2026-03-15"))
	require.NoError(t, err)

	assert.Equal(t, 1, first.Created())
	assert.Equal(t, 0, second.Created())
	assert.Equal(t, 1, second.Skipped)
	assert.Equal(t, 1, invoices.count())
}

func TestGenerateMonthlyInvoices_BillingDate31NeverMatchesIn30DayMonth(t *testing.T) {
	rooms := &fakeRooms{rooms: []models.Room{
		occupiedRoom(1, 31, roomType(50000), tenancy(10, models.ResidentConfirmed)),
	}}
	invoices := newFakeInvoices()
	g := newTestGenerator(rooms, invoices, nil)

	for d := date("2026-04-01"); d.Month() == time.April; d = d.AddDate(0, 0, 1) {
		res, err := g.GenerateMonthlyInvoices(context.Background(), d)
		require.NoError(t, err)
		assert.Equal(t, 0, res.Created(), d.Format(time.DateOnly))
	}
	assert.Equal(t, 0, invoices.count())
}

func TestGenerateMonthlyInvoices_AnomalyDoesNotHaltRun(t *testing.T) {
	rooms := &fakeRooms{rooms: []models.Room{
		occupiedRoom(1, 15, roomType(50000), nil),
		occupiedRoom(2, 15, roomType(50000), tenancy(20, models.ResidentConfirmed)),
		occupiedRoom(3, 15, roomType(50000), tenancy(30, "alumni")),
		occupiedRoom(4, 15, roomType(50000), tenancy(40, models.ResidentProspective)),
	}}
	invoices := newFakeInvoices()
	journal := &fakeJournal{}
	g := newTestGenerator(rooms, invoices, journal)

	res, err := g.GenerateMonthlyInvoices(context.Background(), date("2026-03-15"))
	require.NoError(t, err)

	assert.Equal(t, 4, res.RoomsChecked)
	assert.Equal(t, 2, res.Created())
	require.Len(t, res.Anomalies, 2)
	assert.Equal(t, AnomalyNoActiveTenancy, res.Anomalies[0].Kind)
	assert.Equal(t, uint(1), res.Anomalies[0].RoomID)
	assert.Equal(t, AnomalyUnknownResidentStatus, res.Anomalies[1].Kind)
	assert.Equal(t, uint(30), res.Anomalies[1].TenancyID)

	require.Len(t, journal.runs, 1)
	run := journal.runs[0]
	assert.Equal(t, "run-1", run.ID)
	assert.Equal(t, 2, run.Created)
	assert.Empty(t, run.Error)
	assert.Contains(t, string(run.Anomalies), string(AnomalyNoActiveTenancy))
}

func TestGenerateMonthlyInvoices_NoRoomTypeBillsZero(t *testing.T) {
	rooms := &fakeRooms{rooms: []models.Room{
		occupiedRoom(1, 15, nil, tenancy(10, models.ResidentConfirmed)),
	}}
	g := newTestGenerator(rooms, newFakeInvoices(), nil)

	res, err := g.GenerateMonthlyInvoices(context.Background(), date("2026-03-15"))
	require.NoError(t, err)
	require.Equal(t, 1, res.Created())
	assert.True(t, res.Invoices[0].Amount.IsZero())
}

func TestGenerateMonthlyInvoices_OnlyDueOccupiedRooms(t *testing.T) {
	available := occupiedRoom(2, 15, roomType(50000), tenancy(20, models.ResidentConfirmed))
	available.Status = models.RoomAvailable
	rooms := &fakeRooms{rooms: []models.Room{
		occupiedRoom(1, 14, roomType(50000), tenancy(10, models.ResidentConfirmed)),
		available,
	}}
	g := newTestGenerator(rooms, newFakeInvoices(), nil)

	res, err := g.GenerateMonthlyInvoices(context.Background(), date("2026-03-15"))
	require.NoError(t, err)
	assert.Equal(t, 0, res.RoomsChecked)
	assert.Equal(t, 0, res.Created())
}

func TestGenerateMonthlyInvoices_WriteFailureAbortsRun(t *testing.T) {
	rooms := &fakeRooms{rooms: []models.Room{
		occupiedRoom(1, 15, roomType(50000), tenancy(10, models.ResidentConfirmed)),
		occupiedRoom(2, 15, roomType(50000), tenancy(20, models.ResidentConfirmed)),
		occupiedRoom(3, 15, roomType(50000), tenancy(30, models.ResidentConfirmed)),
	}}
	invoices := newFakeInvoices()
	dbErr := errors.New("disk full")
	invoices.createErr[20] = dbErr
	journal := &fakeJournal{}
	g := newTestGenerator(rooms, invoices, journal)

	res, err := g.GenerateMonthlyInvoices(context.Background(), date("2026-03-15"))
	require.Error(t, err)
	assert.ErrorIs(t, err, dbErr)
	assert.Equal(t, 1, res.Created(), "invoices written before the failure stay")
	assert.Equal(t, 1, invoices.count())

	require.Len(t, journal.runs, 1)
	assert.Contains(t, journal.runs[0].Error, "disk full")
}

func TestGenerateMonthlyInvoices_ReadFailure(t *testing.T) {
	g := newTestGenerator(&fakeRooms{err: errors.New("connection refused")}, newFakeInvoices(), nil)

	_, err := g.GenerateMonthlyInvoices(context.Background(), date("2026-03-15"))
	assert.ErrorContains(t, err, "failed to list billable rooms")

	invoices := newFakeInvoices()
	invoices.existsErr = errors.New("timeout")
	rooms := &fakeRooms{rooms: []models.Room{
		occupiedRoom(1, 15, roomType(50000), tenancy(10, models.ResidentConfirmed)),
	}}
	g = newTestGenerator(rooms, invoices, nil)

	_, err = g.GenerateMonthlyInvoices(context.Background(), date("2026-03-15"))
	assert.ErrorContains(t, err, "timeout")
	assert.Equal(t, 0, invoices.count())
}

func TestGenerateMonthlyInvoices_LostRaceCountsAsSkipped(t *testing.T) {
	rooms := &fakeRooms{rooms: []models.Room{
		occupiedRoom(1, 15, roomType(50000), tenancy(10, models.ResidentConfirmed)),
	}}
	invoices := newFakeInvoices()
	invoices.existsLies = true

	first := newTestGenerator(rooms, invoices, nil)
	second := newTestGenerator(rooms, invoices, nil)

	_, err := first.GenerateMonthlyInvoices(context.Background(), date("2026-03-15"))
	require.NoError(t, err)
	res, err := second.GenerateMonthlyInvoices(context.Background(), date("2026-03-15"))
	require.NoError(t, err)

	assert.Equal(t, 0, res.Created())
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 1, invoices.count())
}

func TestGenerateMonthlyInvoices_OverlappingRunsShareExecution(t *testing.T) {
	rooms := &fakeRooms{
		rooms: []models.Room{
			occupiedRoom(1, 15, roomType(50000), tenancy(10, models.ResidentConfirmed)),
		},
		gate: make(chan struct{}),
	}
	invoices := newFakeInvoices()
	g := newTestGenerator(rooms, invoices, nil)

	const callers = 5
	var wg sync.WaitGroup
	results := make([]Result, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = g.GenerateMonthlyInvoices(context.Background(), date("2026-03-15"))
		}(i)
	}

	// release the run only once every caller waits on it
	require.Eventually(t, func() bool { return g.waiting.Load() == callers }, 5*time.Second, time.Millisecond)
	close(rooms.gate)
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, 1, results[i].Created())
	}
	assert.Equal(t, 1, rooms.callCount())
	assert.Equal(t, 1, invoices.count())
}

func TestGenerateMonthlyInvoices_FollowerSurvivesLeaderCancel(t *testing.T) {
	rooms := &fakeRooms{
		rooms: []models.Room{
			occupiedRoom(1, 15, roomType(50000), tenancy(10, models.ResidentConfirmed)),
		},
		gate: make(chan struct{}),
	}
	invoices := newFakeInvoices()
	journal := &fakeJournal{}
	g := newTestGenerator(rooms, invoices, journal)

	leaderCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	leaderErr := make(chan error, 1)
	go func() {
		_, err := g.GenerateMonthlyInvoices(leaderCtx, date("2026-03-15"))
		leaderErr <- err
	}()
	require.Eventually(t, func() bool { return rooms.callCount() == 1 }, 5*time.Second, time.Millisecond)

	type outcome struct {
		res Result
		err error
	}
	follower := make(chan outcome, 1)
	go func() {
		res, err := g.GenerateMonthlyInvoices(context.Background(), date("2026-03-15"))
		follower <- outcome{res, err}
	}()
	require.Eventually(t, func() bool { return g.waiting.Load() == 2 }, 5*time.Second, time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-leaderErr, context.Canceled)

	close(rooms.gate)
	got := <-follower
	require.NoError(t, got.err)
	assert.Equal(t, 1, got.res.Created())
	assert.Equal(t, 1, invoices.count())
	assert.Equal(t, 1, rooms.callCount())
	require.Len(t, journal.runs, 1)
	assert.Empty(t, journal.runs[0].Error)
}

func TestGenerateMonthlyInvoices_CancelledRunIsJournaled(t *testing.T) {
	rooms := &fakeRooms{rooms: []models.Room{
		occupiedRoom(1, 15, roomType(50000), tenancy(10, models.ResidentConfirmed)),
	}}
	journal := &fakeJournal{}
	g := newTestGenerator(rooms, newFakeInvoices(), journal)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := g.run(ctx, date("2026-03-15"))
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, res.RoomsChecked)

	require.Len(t, journal.runs, 1)
	assert.Equal(t, "run-1", journal.runs[0].ID)
	assert.Contains(t, journal.runs[0].Error, "context canceled")
}
