package store

import (
	"context"

	"gorm.io/gorm"

	"kos-manager/models"
)

// RunRepository is the billing run journal
type RunRepository struct {
	db *gorm.DB
}

func NewRunRepository(db *gorm.DB) *RunRepository {
	return &RunRepository{db: db}
}

func (r *RunRepository) RecordRun(ctx context.Context, run models.BillingRun) error {
	return r.db.WithContext(ctx).Create(&run).Error
}

func (r *RunRepository) ListRuns(ctx context.Context, limit int) ([]models.BillingRun, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []models.BillingRun
	err := r.db.WithContext(ctx).Order("started_at DESC").Limit(limit).Find(&runs).Error
	if err != nil {
		return nil, err
	}
	return runs, nil
}
