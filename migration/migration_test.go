package migration

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// TestModel is a simple test model
type TestModel struct {
	ID   int    `gorm:"primaryKey"`
	Name string `gorm:"not null"`
}

// MockModelRegistry implements ModelRegistry for testing
type MockModelRegistry struct{}

func (r *MockModelRegistry) GetModels() map[string]interface{} {
	return map[string]interface{}{
		"TestModel": TestModel{},
	}
}

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	// every pooled connection would otherwise get its own empty database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	return db
}

func tableMigration(version, table string) *Migration {
	return &Migration{
		Version:   version,
		Name:      "create_" + table,
		CreatedAt: time.Now(),
		Up: func(db *gorm.DB) error {
			return db.Exec("CREATE TABLE " + table + " (id INTEGER PRIMARY KEY)").Error
		},
		Down: func(db *gorm.DB) error {
			return db.Exec("DROP TABLE " + table).Error
		},
	}
}

func hasTable(t *testing.T, db *gorm.DB, name string) bool {
	var count int64
	err := db.Raw("SELECT count(*) FROM sqlite_master WHERE type='table' AND name=?", name).Count(&count).Error
	require.NoError(t, err)
	return count == 1
}

func TestValidateRegistry(t *testing.T) {
	defer func() { GlobalModelRegistry = nil }()

	GlobalModelRegistry = nil
	assert.Error(t, ValidateRegistry())

	GlobalModelRegistry = &MockModelRegistry{}
	assert.NoError(t, ValidateRegistry())
}

func TestRegisteredMigrationsAreSorted(t *testing.T) {
	ResetMigrations()
	defer ResetMigrations()

	RegisterMigration(tableMigration("20240315000002", "second"))
	RegisterMigration(tableMigration("20240315000001", "first"))

	migrations := GetRegisteredMigrations()
	require.Len(t, migrations, 2)
	assert.Equal(t, "20240315000001", migrations[0].Version)
	assert.Equal(t, "20240315000002", migrations[1].Version)
}

func TestMigrator_Up(t *testing.T) {
	db := setupTestDB(t)
	migrator := NewMigrator(db)
	migrator.Register(tableMigration("20240315000001", "test"))

	applied, err := migrator.Up()
	require.NoError(t, err)
	require.Len(t, applied, 1)

	var record MigrationRecord
	err = db.Where("version = ?", "20240315000001").First(&record).Error
	require.NoError(t, err)
	assert.Equal(t, "create_test", record.Name)
	assert.True(t, hasTable(t, db, "test"))

	// a second run has nothing left to apply
	applied, err = migrator.Up()
	require.NoError(t, err)
	assert.Empty(t, applied)
}

func TestMigrator_UpStopsOnFailure(t *testing.T) {
	db := setupTestDB(t)
	migrator := NewMigrator(db)
	migrator.Register(tableMigration("20240315000001", "ok"))
	migrator.Register(&Migration{
		Version: "20240315000002",
		Name:    "broken",
		Up: func(db *gorm.DB) error {
			return db.Exec("CREATE TABLE broken (").Error
		},
		Down: func(db *gorm.DB) error { return nil },
	})

	applied, err := migrator.Up()
	assert.Error(t, err)
	assert.Len(t, applied, 1)

	pending, err := migrator.Pending()
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "broken", pending[0].Name)
}

func TestMigrator_Down(t *testing.T) {
	db := setupTestDB(t)
	migrator := NewMigrator(db)
	migrator.Register(tableMigration("20240315000001", "first"))
	migrator.Register(tableMigration("20240315000002", "second"))

	_, err := migrator.Up()
	require.NoError(t, err)

	reverted, err := migrator.Down()
	require.NoError(t, err)
	require.NotNil(t, reverted)
	assert.Equal(t, "create_second", reverted.Name)
	assert.False(t, hasTable(t, db, "second"))
	assert.True(t, hasTable(t, db, "first"))

	history, err := migrator.History()
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "20240315000001", history[0].Version)
}

func TestMigrator_DownWithNothingApplied(t *testing.T) {
	db := setupTestDB(t)
	migrator := NewMigrator(db)

	reverted, err := migrator.Down()
	assert.NoError(t, err)
	assert.Nil(t, reverted)
}

func TestMissingTables(t *testing.T) {
	defer func() { GlobalModelRegistry = nil }()
	db := setupTestDB(t)

	GlobalModelRegistry = &MockModelRegistry{}
	missing, err := MissingTables(db)
	require.NoError(t, err)
	assert.Equal(t, []string{"TestModel"}, missing)

	require.NoError(t, db.AutoMigrate(&TestModel{}))
	missing, err = MissingTables(db)
	require.NoError(t, err)
	assert.Empty(t, missing)
}
