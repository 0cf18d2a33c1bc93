package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type RoomStatus string

const (
	RoomAvailable   RoomStatus = "available"
	RoomOccupied    RoomStatus = "occupied"
	RoomUnderRepair RoomStatus = "under_repair"
)

// RoomType holds the per-day price shared by rooms of the same kind
type RoomType struct {
	gorm.Model
	Name      string          `gorm:"not null;uniqueIndex"`
	DailyRate decimal.Decimal `gorm:"type:decimal(18,2);not null"`
}

// Room represents a rentable room within a kos.
//
// BillingDate is the day of month on which the room's monthly invoice is issued.
// CurrentTenancy is only populated when preloaded with the active-status condition.
type Room struct {
	gorm.Model
	Number         string     `gorm:"not null;uniqueIndex"`
	BillingDate    int        `gorm:"not null;index"`
	Status         RoomStatus `gorm:"type:varchar(20);not null;index"`
	RoomTypeID     *uint
	RoomType       *RoomType `gorm:"foreignKey:RoomTypeID"`
	CurrentTenancy *Tenancy  `gorm:"foreignKey:RoomID"`
}

// DailyRate returns the room type rate, or zero when no type is assigned.
func (r Room) DailyRate() decimal.Decimal {
	if r.RoomType == nil {
		return decimal.Zero
	}
	return r.RoomType.DailyRate
}
