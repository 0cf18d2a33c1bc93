package store

import (
	"context"

	"gorm.io/gorm"

	"kos-manager/models"
)

type RoomRepository struct {
	db *gorm.DB
}

func NewRoomRepository(db *gorm.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

// ListBillableRooms returns occupied rooms billed on the given day of month,
// with room type, active tenancy and resident preloaded.
func (r *RoomRepository) ListBillableRooms(ctx context.Context, day int) ([]models.Room, error) {
	var rooms []models.Room
	err := r.db.WithContext(ctx).
		Preload("RoomType").
		Preload("CurrentTenancy", "status = ?", models.TenancyActive).
		Preload("CurrentTenancy.Resident").
		Where("status = ? AND billing_date = ?", models.RoomOccupied, day).
		Order("id").
		Find(&rooms).Error
	if err != nil {
		return nil, err
	}
	return rooms, nil
}
