package database

import (
	"fmt"
	"time"

	"avault-backend/internal/config"
	"avault-backend/internal/logging"
	"avault-backend/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

// Init opens the configured database, migrates it and stores it in DB.
func Init(cfg *config.Config) {
	log := logging.GetLogger()

	db, err := Open(cfg)
	if err != nil {
		log.Fatalf("could not connect to database: %v", err)
	}
	if err := Migrate(db); err != nil {
		log.Fatalf("AutoMigrate failed: %v", err)
	}

	DB = db
	log.WithField("driver", cfg.DatabaseDriver).Info("database connected, migration complete")
}

func Open(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DatabaseDriver {
	case config.DriverPostgres:
		dialector = postgres.Open(cfg.DatabaseDSN)
	case config.DriverMySQL:
		dialector = mysql.Open(cfg.DatabaseDSN)
	case config.DriverSQLite:
		dialector = sqlite.Open(cfg.DatabaseDSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logging.GormLogger(logging.GetLogger(), 500*time.Millisecond),
	})
	if err != nil {
		return nil, err
	}

	if cfg.DatabaseDriver == config.DriverSQLite {
		// SQLite serializes writers; a single connection avoids SQLITE_BUSY
		// and keeps :memory: databases alive.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
		if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
			return nil, err
		}
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.AcademicTerm{},
		&models.Item{},
		&models.HistoricalCount{},
		&models.InventorySession{},
		&models.InventoryCount{},
		&models.AuditLog{},
	)
}
