package billing

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"kos-manager/models"
)

type AnomalyKind string

const (
	AnomalyNoActiveTenancy       AnomalyKind = "occupied_without_tenancy"
	AnomalyUnknownResidentStatus AnomalyKind = "unknown_resident_status"
)

// Anomaly is a data-consistency problem found on a single room. The room is
// skipped and the run carries on.
type Anomaly struct {
	RoomID     uint        `json:"room_id"`
	RoomNumber string      `json:"room_number"`
	TenancyID  uint        `json:"tenancy_id,omitempty"`
	Kind       AnomalyKind `json:"kind"`
	Message    string      `json:"message"`
}

// Result summarises one invoice generation run
type Result struct {
	RunID        string
	Date         time.Time
	Period       time.Time
	RoomsChecked int
	Skipped      int
	Anomalies    []Anomaly
	Invoices     []models.Invoice
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Created is the number of invoices issued by the run.
func (r Result) Created() int {
	return len(r.Invoices)
}

func (r *Result) addAnomaly(room models.Room, tenancyID uint, kind AnomalyKind, msg string) {
	r.Anomalies = append(r.Anomalies, Anomaly{
		RoomID:     room.ID,
		RoomNumber: room.Number,
		TenancyID:  tenancyID,
		Kind:       kind,
		Message:    msg,
	})
}

func (r Result) toRecord(runErr error) models.BillingRun {
	anomalies, _ := json.Marshal(r.Anomalies)
	rec := models.BillingRun{
		ID:           r.RunID,
		ReferenceDay: datatypes.Date(r.Date),
		Period:       datatypes.Date(r.Period),
		RoomsChecked: r.RoomsChecked,
		Created:      r.Created(),
		Skipped:      r.Skipped,
		Anomalies:    datatypes.JSON(anomalies),
		StartedAt:    r.StartedAt,
		FinishedAt:   r.FinishedAt,
	}
	if runErr != nil {
		rec.Error = runErr.Error()
	}
	return rec
}
