package testsupport

import (
	"fmt"
	"sync/atomic"
	"testing"

	"avault-backend/internal/config"
	"avault-backend/internal/database"

	"gorm.io/gorm"
)

var dbSeq atomic.Int64

// OpenDB opens a migrated in-memory SQLite database private to the test.
func OpenDB(t testing.TB) *gorm.DB {
	t.Helper()

	cfg := config.Default()
	cfg.DatabaseDriver = config.DriverSQLite
	cfg.DatabaseDSN = fmt.Sprintf("file:avault_test_%d?mode=memory&cache=shared", dbSeq.Add(1))

	db, err := database.Open(cfg)
	if err != nil {
		t.Fatalf("database.Open: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("database.Migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// UseGlobalDB points database.DB at db for handler tests and restores it afterwards.
func UseGlobalDB(t testing.TB, db *gorm.DB) {
	t.Helper()
	prev := database.DB
	database.DB = db
	t.Cleanup(func() { database.DB = prev })
}
