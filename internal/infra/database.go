package infra

import (
	"fmt"

	"tillsync/internal/model"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase opens the terminal's local SQLite store and migrates the schema.
// WAL mode keeps the UI thread readable while the flusher writes; the busy
// timeout covers the short overlap windows between workers.
func NewDatabase(path string) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	// SQLite serializes writers; a single connection avoids SQLITE_BUSY
	// churn between the flusher, the puller, and the API handlers.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := RunMigrations(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// RunMigrations creates or updates every table. Unlike a server deployment
// there is no migration pipeline in front of a terminal — each process owns
// its schema and AutoMigrate on boot is the upgrade path.
func RunMigrations(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Product{},
		&model.Category{},
		&model.Brand{},
		&model.Customer{},
		&model.User{},
		&model.Sale{},
		&model.SaleLine{},
		&model.SalePayment{},
		&model.CashSession{},
		&model.CashMovement{},
		&model.SessionSummary{},
		&model.QueueEntry{},
		&model.SyncCursor{},
	)
}
