package models

import (
	"time"

	"gorm.io/datatypes"
)

// BillingRun is the journal entry written after every invoice generation run
type BillingRun struct {
	ID           string         `gorm:"type:varchar(36);primaryKey"`
	ReferenceDay datatypes.Date `gorm:"not null;index"`
	Period       datatypes.Date `gorm:"not null"`
	RoomsChecked int
	Created      int
	Skipped      int
	Anomalies    datatypes.JSON
	Error        string
	StartedAt    time.Time `gorm:"not null"`
	FinishedAt   time.Time
}
