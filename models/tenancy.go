package models

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ResidentStatus string

const (
	ResidentConfirmed   ResidentStatus = "confirmed_resident"
	ResidentProspective ResidentStatus = "prospective_resident"
)

type TenancyStatus string

const (
	TenancyActive TenancyStatus = "active"
	TenancyEnded  TenancyStatus = "ended"
)

// Resident represents a person renting (or about to rent) a room
type Resident struct {
	gorm.Model
	Name   string `gorm:"not null"`
	Phone  string
	Status ResidentStatus `gorm:"type:varchar(32);not null"`
}

// Tenancy links a resident to a room for a stretch of time.
// A room has at most one active tenancy; that rule is kept by the admin side.
type Tenancy struct {
	gorm.Model
	RoomID     uint          `gorm:"not null;index"`
	Room       *Room         `gorm:"foreignKey:RoomID"`
	ResidentID *uint         `gorm:"index"`
	Resident   *Resident     `gorm:"foreignKey:ResidentID"`
	Status     TenancyStatus `gorm:"type:varchar(16);not null;index"`
	StartDate  datatypes.Date
	EndDate    *datatypes.Date
}
