package importer

import (
	"errors"
	"testing"
	"time"

	"avault-backend/internal/ledger"
	"avault-backend/internal/logging"
	"avault-backend/internal/models"
	"avault-backend/internal/testsupport"

	"gorm.io/gorm"
)

var fixedNow = time.Date(2024, time.December, 2, 14, 30, 0, 0, time.UTC)

func newTestImporter(db *gorm.DB) *Importer {
	im := New(db, logging.GetLogger())
	im.now = func() time.Time { return fixedNow }
	return im
}

func scenarioTable() Table {
	return Table{
		Headers: []string{"Item", "LOCATION", "CONDITION", "S/N - FREQUENCY", "Spring 2024", "Fall 2024", "Comments"},
		Rows: [][]string{
			{"WIRED MICS", "", "", "", "", "", ""},
			{"SM-57", "Closet A", "Good", "", "3", "5", "one dented grille"},
		},
	}
}

func count(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	if err := db.Model(model).Count(&n).Error; err != nil {
		t.Fatal(err)
	}
	return n
}

func TestImportScenario(t *testing.T) {
	db := testsupport.OpenDB(t)
	ctx := testsupport.Ctx(t)

	res, err := newTestImporter(db).Import(ctx, scenarioTable(), Options{FileName: "closet.xlsx"})
	if err != nil {
		t.Fatalf("Import: %v", err)
	}

	if res.CategoriesCreated != 1 || res.ItemsCreated != 1 || res.TermsCreated != 2 || res.HistoricalCountsCreated != 2 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(res.SkippedColumns) != 1 || res.SkippedColumns[0] != "Comments" {
		t.Fatalf("SkippedColumns = %q", res.SkippedColumns)
	}
	if len(res.Errors) != 0 || len(res.OrphanRows) != 0 {
		t.Fatalf("errors=%v orphans=%v", res.Errors, res.OrphanRows)
	}
	if res.SessionName != "Import - 2024-12-02 14:30" || res.ImportID == "" {
		t.Fatalf("session %q import id %q", res.SessionName, res.ImportID)
	}

	if n := count(t, db, &models.Category{}); n != 1 {
		t.Fatalf("categories = %d", n)
	}
	if n := count(t, db, &models.AcademicTerm{}); n != 2 {
		t.Fatalf("terms = %d", n)
	}
	if n := count(t, db, &models.HistoricalCount{}); n != 2 {
		t.Fatalf("historical counts = %d", n)
	}

	var item models.Item
	if err := db.Preload("Category").Where("name = ?", "SM-57").First(&item).Error; err != nil {
		t.Fatal(err)
	}
	if item.Location != "Closet A" || item.Condition != "Good" || item.Category.Name != "WIRED MICS" {
		t.Fatalf("item = %+v", item)
	}

	latest, err := ledger.New(db).LatestCount(ctx, item.ID)
	if err != nil || latest != 5 {
		t.Fatalf("LatestCount = %d, %v; want 5", latest, err)
	}

	var session models.InventorySession
	if err := db.Preload("Term").First(&session, res.SessionID).Error; err != nil {
		t.Fatal(err)
	}
	if !session.IsComplete || session.ImportID != res.ImportID || session.Term == nil || session.Term.Name != "FALL 2024" {
		t.Fatalf("session = %+v", session)
	}
	var sc models.InventoryCount
	if err := db.Where("session_id = ? AND item_id = ?", session.ID, item.ID).First(&sc).Error; err != nil {
		t.Fatalf("session count: %v", err)
	}
	if sc.Quantity != 5 {
		t.Fatalf("session count = %d, want 5", sc.Quantity)
	}
}

func TestImportIsIdempotent(t *testing.T) {
	db := testsupport.OpenDB(t)
	ctx := testsupport.Ctx(t)
	im := newTestImporter(db)

	if _, err := im.Import(ctx, scenarioTable(), Options{}); err != nil {
		t.Fatal(err)
	}
	res, err := im.Import(ctx, scenarioTable(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if res.HistoricalCountsCreated != 0 || res.HistoricalCountsUpdated != 0 || len(res.Changes) != 0 {
		t.Fatalf("second run changed the ledger: %+v", res)
	}
	if res.CategoriesCreated != 0 || res.CategoriesUpdated != 1 || res.ItemsCreated != 0 || res.ItemsUpdated != 0 || res.TermsCreated != 0 {
		t.Fatalf("second run: %+v", res)
	}
	if n := count(t, db, &models.Item{}); n != 1 {
		t.Fatalf("items = %d", n)
	}
}

func TestImportUpdatesChangedCounts(t *testing.T) {
	db := testsupport.OpenDB(t)
	ctx := testsupport.Ctx(t)
	im := newTestImporter(db)

	if _, err := im.Import(ctx, scenarioTable(), Options{}); err != nil {
		t.Fatal(err)
	}
	tbl := scenarioTable()
	tbl.Rows[1][1] = "Closet B"
	tbl.Rows[1][5] = "4"

	res, err := im.Import(ctx, tbl, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if res.HistoricalCountsUpdated != 1 || res.HistoricalCountsCreated != 0 || res.ItemsUpdated != 1 {
		t.Fatalf("result = %+v", res)
	}
	if len(res.Changes) != 1 || res.Changes[0].Previous != 5 || res.Changes[0].Quantity != 4 {
		t.Fatalf("changes = %+v", res.Changes)
	}
}

func TestImportCellsAndRowKinds(t *testing.T) {
	db := testsupport.OpenDB(t)
	ctx := testsupport.Ctx(t)

	tbl := Table{
		Headers: []string{"Item", "Spring 2024", "Fall 2024"},
		Rows: [][]string{
			{"HDMI 6ft", "2", "3"},    // orphan: no category yet
			{"CABLES", "n/a", ""},     // category header
			{"", "9", "9"},            // blank name
			{"XLR 25ft", "n/a", "12"}, // one count
			{"AB", "", ""},            // too short for a header
			{"DI box", "lots", "2.5"}, // invalid cell skipped, 2.5 -> 2
			{"Broken", "-3", "na"},    // nothing numeric: becomes a category
		},
	}

	res, err := newTestImporter(db).Import(ctx, tbl, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.OrphanRows) != 1 || res.OrphanRows[0] != 2 {
		t.Fatalf("OrphanRows = %v, want [2]", res.OrphanRows)
	}
	if res.CategoriesCreated != 2 || res.ItemsCreated != 2 || res.HistoricalCountsCreated != 2 {
		t.Fatalf("result = %+v", res)
	}

	var di models.Item
	if err := db.Where("name = ?", "DI box").First(&di).Error; err != nil {
		t.Fatal(err)
	}
	hist, err := ledger.New(db).History(ctx, di.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(hist) != 1 || hist[0].Term.Name != "FALL 2024" || hist[0].Quantity != 2 {
		t.Fatalf("DI box history = %+v", hist)
	}

	var orphan int64
	db.Model(&models.Item{}).Where("name = ?", "HDMI 6ft").Count(&orphan)
	if orphan != 0 {
		t.Fatal("orphan row must not create an item")
	}
}

func TestImportMalformedWritesNothing(t *testing.T) {
	db := testsupport.OpenDB(t)
	tbl := Table{
		Headers: []string{"Name", "Spring 2024"},
		Rows:    [][]string{{"WIRED MICS", ""}, {"SM-57", "3"}},
	}

	_, err := newTestImporter(db).Import(testsupport.Ctx(t), tbl, Options{})
	if !errors.Is(err, ErrMalformedInput) || !IsMalformed(err) {
		t.Fatalf("err = %v, want ErrMalformedInput", err)
	}
	for _, m := range []interface{}{&models.Category{}, &models.AcademicTerm{}, &models.InventorySession{}} {
		if n := count(t, db, m); n != 0 {
			t.Fatalf("%T rows = %d after malformed import", m, n)
		}
	}
}

func TestImportRowErrorRollsBackOnlyThatRow(t *testing.T) {
	db := testsupport.OpenDB(t)
	ctx := testsupport.Ctx(t)

	err := db.Callback().Create().Before("gorm:create").Register("test:fail_item", func(tx *gorm.DB) {
		if item, ok := tx.Statement.Dest.(*models.Item); ok && item.Name == "Cursed" {
			tx.AddError(errors.New("disk on fire"))
		}
	})
	if err != nil {
		t.Fatal(err)
	}

	tbl := Table{
		Headers: []string{"Item", "Fall 2024"},
		Rows: [][]string{
			{"MIXERS", ""},
			{"Cursed", "1"},
			{"MG10XU", "2"},
		},
	}
	res, err := newTestImporter(db).Import(ctx, tbl, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Errors) != 1 || res.Errors[0].Row != 3 {
		t.Fatalf("Errors = %+v", res.Errors)
	}
	if res.ItemsCreated != 1 || res.HistoricalCountsCreated != 1 {
		t.Fatalf("result = %+v", res)
	}
	if n := count(t, db, &models.Item{}); n != 1 {
		t.Fatalf("items = %d, want 1", n)
	}
}

func TestImportReportsRowsWhenSessionFails(t *testing.T) {
	db := testsupport.OpenDB(t)
	ctx := testsupport.Ctx(t)

	err := db.Callback().Create().Before("gorm:create").Register("test:fail_session", func(tx *gorm.DB) {
		if _, ok := tx.Statement.Dest.(*models.InventorySession); ok {
			tx.AddError(errors.New("sessions table locked"))
		}
	})
	if err != nil {
		t.Fatal(err)
	}

	res, err := newTestImporter(db).Import(ctx, scenarioTable(), Options{})
	if !errors.Is(err, ErrSessionNotRecorded) {
		t.Fatalf("err = %v, want ErrSessionNotRecorded", err)
	}
	if res == nil {
		t.Fatal("no result returned with the session error")
	}
	if res.ItemsCreated != 1 || res.HistoricalCountsCreated != 2 || res.SessionID != 0 {
		t.Fatalf("result = %+v", res)
	}
	if res.Error == "" {
		t.Fatal("result carries no error message")
	}
	if n := count(t, db, &models.HistoricalCount{}); n != 2 {
		t.Fatalf("ledger rows = %d, want 2", n)
	}
}

func TestImportTermFailureLeavesNoTerms(t *testing.T) {
	db := testsupport.OpenDB(t)
	ctx := testsupport.Ctx(t)

	err := db.Callback().Create().Before("gorm:create").Register("test:fail_term", func(tx *gorm.DB) {
		if at, ok := tx.Statement.Dest.(*models.AcademicTerm); ok && at.Season == models.SeasonFall {
			tx.AddError(errors.New("terms table locked"))
		}
	})
	if err != nil {
		t.Fatal(err)
	}

	res, err := newTestImporter(db).Import(ctx, scenarioTable(), Options{})
	if err == nil || res != nil {
		t.Fatalf("Import = %+v, %v; want an error", res, err)
	}
	if n := count(t, db, &models.AcademicTerm{}); n != 0 {
		t.Fatalf("terms = %d after failed registration, want 0", n)
	}
}

func TestImportHugeCellSkipsOnlyThatCell(t *testing.T) {
	db := testsupport.OpenDB(t)
	ctx := testsupport.Ctx(t)

	tbl := Table{
		Headers: []string{"Item", "Spring 2024", "Fall 2024"},
		Rows: [][]string{
			{"WIRED MICS", "", ""},
			{"SM-57", "3", "9223372036854775808"},
		},
	}
	res, err := newTestImporter(db).Import(ctx, tbl, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Errors) != 0 || res.ItemsCreated != 1 || res.HistoricalCountsCreated != 1 {
		t.Fatalf("result = %+v", res)
	}
	if n := count(t, db, &models.HistoricalCount{}); n != 1 {
		t.Fatalf("ledger rows = %d, want 1", n)
	}
}
