package store

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"kos-manager/internal/config"
)

// Open connects to the database configured by DB_DRIVER and DATABASE_URL.
func Open(cfg config.Config) (*gorm.DB, error) {
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL not set in environment or .env file")
	}

	gormCfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)}
	switch cfg.DBDriver {
	case config.DriverSQLite:
		db, err := gorm.Open(sqlite.Open(cfg.DatabaseURL), gormCfg)
		if err != nil {
			return nil, err
		}
		// sqlite allows a single writer; more connections only produce SQLITE_BUSY
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
		return db, nil
	case config.DriverPostgres:
		return gorm.Open(postgres.Open(cfg.DatabaseURL), gormCfg)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
}
