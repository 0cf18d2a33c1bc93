package migrations

import (
	"time"

	"gorm.io/gorm"

	"kos-manager/migration"
	"kos-manager/models"
)

// The unique (tenancy_id, billing_period) index created here is what makes
// invoice generation safe to run twice.
func init() {
	migration.RegisterMigration(&migration.Migration{
		Version:   "20250101000003",
		Name:      "create_invoices",
		CreatedAt: time.Date(2025, 1, 1, 0, 0, 3, 0, time.UTC),
		Up: func(db *gorm.DB) error {
			if err := db.Migrator().CreateTable(&models.Invoice{}); err != nil {
				return err
			}
			return db.Migrator().CreateTable(&models.Payment{})
		},
		Down: func(db *gorm.DB) error {
			return db.Migrator().DropTable(&models.Payment{}, &models.Invoice{})
		},
	})
}
