package testsupport

import (
	"context"
	"testing"
	"time"

	"avault-backend/internal/models"

	"gorm.io/gorm"
)

func NewCategory(t testing.TB, db *gorm.DB, name string) models.Category {
	t.Helper()
	cat := models.Category{Name: name}
	if err := db.Create(&cat).Error; err != nil {
		t.Fatalf("create category %q: %v", name, err)
	}
	return cat
}

func NewItem(t testing.TB, db *gorm.DB, cat models.Category, name string) models.Item {
	t.Helper()
	item := models.Item{Name: name, CategoryID: cat.ID}
	if err := db.Create(&item).Error; err != nil {
		t.Fatalf("create item %q: %v", name, err)
	}
	return item
}

func NewTerm(t testing.TB, db *gorm.DB, season models.Season, year int) models.AcademicTerm {
	t.Helper()
	term := models.AcademicTerm{Season: season, Year: year}
	if err := db.Create(&term).Error; err != nil {
		t.Fatalf("create term %s %d: %v", season, year, err)
	}
	return term
}

func NewHistoricalCount(t testing.TB, db *gorm.DB, item models.Item, term models.AcademicTerm, qty int) models.HistoricalCount {
	t.Helper()
	hc := models.HistoricalCount{ItemID: item.ID, TermID: term.ID, Quantity: qty, ImportedAt: time.Now()}
	if err := db.Create(&hc).Error; err != nil {
		t.Fatalf("create historical count: %v", err)
	}
	return hc
}

func NewSession(t testing.TB, db *gorm.DB, name string, date time.Time, complete bool) models.InventorySession {
	t.Helper()
	s := models.InventorySession{Name: name, Date: date, IsComplete: complete}
	if err := db.Create(&s).Error; err != nil {
		t.Fatalf("create session %q: %v", name, err)
	}
	return s
}

func NewCount(t testing.TB, db *gorm.DB, session models.InventorySession, item models.Item, qty int) models.InventoryCount {
	t.Helper()
	c := models.InventoryCount{SessionID: session.ID, ItemID: item.ID, Quantity: qty}
	if err := db.Create(&c).Error; err != nil {
		t.Fatalf("create count: %v", err)
	}
	return c
}

// Ctx returns a context that is cancelled when the test ends.
func Ctx(t testing.TB) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}
