package migrations

import (
	"time"

	"gorm.io/gorm"

	"kos-manager/migration"
	"kos-manager/models"
)

func init() {
	migration.RegisterMigration(&migration.Migration{
		Version:   "20250101000004",
		Name:      "create_billing_runs",
		CreatedAt: time.Date(2025, 1, 1, 0, 0, 4, 0, time.UTC),
		Up: func(db *gorm.DB) error {
			return db.Migrator().CreateTable(&models.BillingRun{})
		},
		Down: func(db *gorm.DB) error {
			return db.Migrator().DropTable(&models.BillingRun{})
		},
	})
}
