package database

import (
	"context"
	"fmt"
	"testing"
	"time"

	"avault-backend/internal/config"
	"avault-backend/internal/models"

	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	cfg := config.Default()
	cfg.DatabaseDriver = config.DriverSQLite
	cfg.DatabaseDSN = fmt.Sprintf("file:helpers_%s?mode=memory&cache=shared", t.Name())

	db, err := Open(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := Migrate(db); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func TestFirstOrCreate(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	cat := models.Category{Name: "MIXERS"}
	created, err := FirstOrCreate(ctx, db, &cat, "name = ?", "MIXERS")
	if err != nil || !created || cat.ID == 0 {
		t.Fatalf("first call = %v, %v, %+v", created, err, cat)
	}

	again := models.Category{Name: "MIXERS"}
	created, err = FirstOrCreate(ctx, db, &again, "name = ?", "MIXERS")
	if err != nil || created || again.ID != cat.ID {
		t.Fatalf("second call = %v, %v, %+v", created, err, again)
	}
}

// A concurrent writer inserts the same name between the lookup and the
// insert. The transaction must stay usable and see the winner.
func TestFirstOrCreateLostRaceInsideTransaction(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	raced := false
	err := db.Callback().Create().Before("gorm:create").Register("test:race", func(tx *gorm.DB) {
		if _, ok := tx.Statement.Dest.(*models.Category); !ok || raced {
			return
		}
		raced = true
		now := time.Now()
		tx.Session(&gorm.Session{NewDB: true}).
			Exec("INSERT INTO categories (name, created_at, updated_at) VALUES (?, ?, ?)", "AUDIO", now, now)
	})
	if err != nil {
		t.Fatal(err)
	}

	var got models.Category
	err = db.Transaction(func(tx *gorm.DB) error {
		cat := models.Category{Name: "AUDIO"}
		created, err := FirstOrCreate(ctx, tx, &cat, "name = ?", "AUDIO")
		if err != nil {
			return err
		}
		if created {
			t.Error("created = true, want the concurrent row")
		}
		got = cat
		return tx.Create(&models.Category{Name: "VIDEO"}).Error
	})
	if err != nil {
		t.Fatal(err)
	}
	if !raced || got.ID == 0 || got.Name != "AUDIO" {
		t.Fatalf("raced=%v got=%+v", raced, got)
	}

	var n int64
	db.Model(&models.Category{}).Count(&n)
	if n != 2 {
		t.Fatalf("categories = %d, want 2", n)
	}
}
