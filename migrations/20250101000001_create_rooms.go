package migrations

import (
	"time"

	"gorm.io/gorm"

	"kos-manager/migration"
	"kos-manager/models"
)

func init() {
	migration.RegisterMigration(&migration.Migration{
		Version:   "20250101000001",
		Name:      "create_rooms",
		CreatedAt: time.Date(2025, 1, 1, 0, 0, 1, 0, time.UTC),
		Up: func(db *gorm.DB) error {
			if err := db.Migrator().CreateTable(&models.RoomType{}); err != nil {
				return err
			}
			return db.Migrator().CreateTable(&models.Room{})
		},
		Down: func(db *gorm.DB) error {
			return db.Migrator().DropTable(&models.Room{}, &models.RoomType{})
		},
	})
}
