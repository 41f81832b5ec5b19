package ledger

import (
	"testing"
	"time"

	"avault-backend/internal/models"
	"avault-backend/internal/testsupport"
)

func TestUpsertOutcomes(t *testing.T) {
	db := testsupport.OpenDB(t)
	ctx := testsupport.Ctx(t)
	l := New(db)

	cat := testsupport.NewCategory(t, db, "wired mics")
	item := testsupport.NewItem(t, db, cat, "SM-57")
	fall := testsupport.NewTerm(t, db, models.SeasonFall, 2024)

	steps := []struct {
		qty  int
		want Outcome
		prev int
	}{
		{3, Created, 0},
		{3, Unchanged, 3},
		{5, Updated, 3},
		{5, Unchanged, 5},
	}
	for i, s := range steps {
		ch, err := l.Upsert(ctx, item.ID, fall.ID, s.qty, UpsertOptions{})
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if ch.Outcome != s.want || ch.Previous != s.prev {
			t.Fatalf("step %d: outcome=%s previous=%d, want %s/%d", i, ch.Outcome, ch.Previous, s.want, s.prev)
		}
	}

	got, err := l.CountAtTerm(ctx, item.ID, fall.ID)
	if err != nil || got != 5 {
		t.Fatalf("CountAtTerm = %d, %v", got, err)
	}

	if _, err := l.Upsert(ctx, item.ID, fall.ID, -1, UpsertOptions{}); err != ErrNegativeQuantity {
		t.Fatalf("negative quantity: %v", err)
	}
}

func TestLatestFollowsTermOrderNotInsertOrder(t *testing.T) {
	db := testsupport.OpenDB(t)
	ctx := testsupport.Ctx(t)
	l := New(db)

	cat := testsupport.NewCategory(t, db, "MIXERS")
	item := testsupport.NewItem(t, db, cat, "MG10XU")

	// WINTER 2024 gets the lowest id but is the latest term.
	winter := testsupport.NewTerm(t, db, models.SeasonWinter, 2024)
	spring := testsupport.NewTerm(t, db, models.SeasonSpring, 2024)
	fall := testsupport.NewTerm(t, db, models.SeasonFall, 2024)

	testsupport.NewHistoricalCount(t, db, item, fall, 4)
	testsupport.NewHistoricalCount(t, db, item, winter, 7)
	testsupport.NewHistoricalCount(t, db, item, spring, 2)

	latest, err := l.LatestCount(ctx, item.ID)
	if err != nil || latest != 7 {
		t.Fatalf("LatestCount = %d, %v; want 7", latest, err)
	}

	hist, err := l.History(ctx, item.ID)
	if err != nil {
		t.Fatal(err)
	}
	want := []int{2, 4, 7}
	if len(hist) != len(want) {
		t.Fatalf("history len = %d", len(hist))
	}
	for i, e := range hist {
		if e.Quantity != want[i] {
			t.Fatalf("history[%d] = %d (%s), want %d", i, e.Quantity, e.Term.Name, want[i])
		}
	}

	all, err := l.LatestCounts(ctx, LatestOptions{})
	if err != nil || all[item.ID] != 7 {
		t.Fatalf("LatestCounts = %v, %v", all, err)
	}
}

func TestLatestCountWithoutHistory(t *testing.T) {
	db := testsupport.OpenDB(t)
	cat := testsupport.NewCategory(t, db, "CABLES")
	item := testsupport.NewItem(t, db, cat, "XLR 25ft")

	got, err := New(db).LatestCount(testsupport.Ctx(t), item.ID)
	if err != nil || got != 0 {
		t.Fatalf("LatestCount = %d, %v", got, err)
	}
}

func TestExpectedFallsBackToCompletedSession(t *testing.T) {
	db := testsupport.OpenDB(t)
	ctx := testsupport.Ctx(t)
	l := New(db)

	cat := testsupport.NewCategory(t, db, "PROJECTORS")
	withLedger := testsupport.NewItem(t, db, cat, "Epson 1")
	legacy := testsupport.NewItem(t, db, cat, "Epson 2")
	neither := testsupport.NewItem(t, db, cat, "Epson 3")

	fall := testsupport.NewTerm(t, db, models.SeasonFall, 2024)
	testsupport.NewHistoricalCount(t, db, withLedger, fall, 6)

	day := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	older := testsupport.NewSession(t, db, "older", day, true)
	newer := testsupport.NewSession(t, db, "newer", day.AddDate(0, 1, 0), true)
	open := testsupport.NewSession(t, db, "open", day.AddDate(0, 2, 0), false)
	testsupport.NewCount(t, db, older, legacy, 1)
	testsupport.NewCount(t, db, newer, legacy, 2)
	testsupport.NewCount(t, db, open, legacy, 9)
	testsupport.NewCount(t, db, newer, withLedger, 99)

	exp, err := l.Expected(ctx, ExpectedOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if exp[withLedger.ID] != 6 {
		t.Fatalf("ledger item expected = %d, want 6", exp[withLedger.ID])
	}
	if exp[legacy.ID] != 2 {
		t.Fatalf("legacy item expected = %d, want 2", exp[legacy.ID])
	}
	if _, ok := exp[neither.ID]; ok {
		t.Fatal("item without data should have no expected quantity")
	}

	got, err := l.ExpectedFor(ctx, legacy.ID, ExpectedOptions{ExcludeSessionID: newer.ID})
	if err != nil || got != 1 {
		t.Fatalf("ExpectedFor excluding newer = %d, %v; want 1", got, err)
	}
}

func TestPromoteAndRevert(t *testing.T) {
	db := testsupport.OpenDB(t)
	ctx := testsupport.Ctx(t)
	l := New(db)

	cat := testsupport.NewCategory(t, db, "SPEAKERS")
	a := testsupport.NewItem(t, db, cat, "QSC K12")
	b := testsupport.NewItem(t, db, cat, "JBL EON")
	fall := testsupport.NewTerm(t, db, models.SeasonFall, 2024)
	spring := testsupport.NewTerm(t, db, models.SeasonSpring, 2024)
	testsupport.NewHistoricalCount(t, db, a, spring, 2)
	testsupport.NewHistoricalCount(t, db, b, fall, 3)

	s := testsupport.NewSession(t, db, "Fall count", time.Now(), false)
	testsupport.NewCount(t, db, s, a, 4)
	testsupport.NewCount(t, db, s, b, 3)

	res, err := l.PromoteSession(ctx, s.ID, fall.ID, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Created != 1 || res.Updated != 0 || res.Unchanged != 1 {
		t.Fatalf("PromoteSession = %+v", res)
	}

	latest, _ := l.LatestCounts(ctx, LatestOptions{})
	if latest[a.ID] != 4 {
		t.Fatalf("latest a = %d, want 4", latest[a.ID])
	}
	excl, _ := l.LatestCounts(ctx, LatestOptions{ExcludeSessionID: s.ID})
	if excl[a.ID] != 2 {
		t.Fatalf("latest a excluding session = %d, want 2", excl[a.ID])
	}

	rev, err := l.RevertPromoted(ctx, s.ID)
	if err != nil || rev.Removed != 1 || rev.Restored != 0 {
		t.Fatalf("RevertPromoted = %+v, %v", rev, err)
	}
	if got, _ := l.CountAtTerm(ctx, b.ID, fall.ID); got != 3 {
		t.Fatalf("imported row should survive, got %d", got)
	}

	counts, err := l.CountsForTerm(ctx, fall.ID)
	if err != nil || len(counts) != 1 || counts[b.ID] != 3 {
		t.Fatalf("CountsForTerm = %v, %v", counts, err)
	}
}

func TestRevertRestoresOverwrittenRows(t *testing.T) {
	db := testsupport.OpenDB(t)
	ctx := testsupport.Ctx(t)
	l := New(db)

	cat := testsupport.NewCategory(t, db, "PROJECTORS")
	item := testsupport.NewItem(t, db, cat, "Epson")
	spring := testsupport.NewTerm(t, db, models.SeasonSpring, 2024)
	fall := testsupport.NewTerm(t, db, models.SeasonFall, 2024)
	testsupport.NewHistoricalCount(t, db, item, spring, 10)
	testsupport.NewHistoricalCount(t, db, item, fall, 5)

	s := testsupport.NewSession(t, db, "Fall recount", time.Now(), false)
	testsupport.NewCount(t, db, s, item, 3)
	res, err := l.PromoteSession(ctx, s.ID, fall.ID, nil)
	if err != nil || res.Updated != 1 {
		t.Fatalf("PromoteSession = %+v, %v", res, err)
	}

	latest, _ := l.LatestCounts(ctx, LatestOptions{})
	if latest[item.ID] != 3 {
		t.Fatalf("latest = %d, want 3", latest[item.ID])
	}
	before, _ := l.LatestCounts(ctx, LatestOptions{ExcludeSessionID: s.ID})
	if before[item.ID] != 5 {
		t.Fatalf("latest excluding session = %d, want 5", before[item.ID])
	}

	rev, err := l.RevertPromoted(ctx, s.ID)
	if err != nil || rev.Removed != 0 || rev.Restored != 1 {
		t.Fatalf("RevertPromoted = %+v, %v", rev, err)
	}
	var hc models.HistoricalCount
	if err := db.Where("item_id = ? AND term_id = ?", item.ID, fall.ID).First(&hc).Error; err != nil {
		t.Fatal(err)
	}
	if hc.Quantity != 5 || hc.SessionID != nil || hc.PreviousQuantity != nil {
		t.Fatalf("restored row = %+v", hc)
	}
}

func TestImportOverwriteDropsPromotionHistory(t *testing.T) {
	db := testsupport.OpenDB(t)
	ctx := testsupport.Ctx(t)
	l := New(db)

	cat := testsupport.NewCategory(t, db, "PROJECTORS")
	item := testsupport.NewItem(t, db, cat, "Epson")
	fall := testsupport.NewTerm(t, db, models.SeasonFall, 2024)
	testsupport.NewHistoricalCount(t, db, item, fall, 5)

	s := testsupport.NewSession(t, db, "Fall recount", time.Now(), false)
	testsupport.NewCount(t, db, s, item, 3)
	if _, err := l.PromoteSession(ctx, s.ID, fall.ID, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Upsert(ctx, item.ID, fall.ID, 7, UpsertOptions{}); err != nil {
		t.Fatal(err)
	}

	rev, err := l.RevertPromoted(ctx, s.ID)
	if err != nil || rev.Removed != 0 || rev.Restored != 0 {
		t.Fatalf("RevertPromoted = %+v, %v", rev, err)
	}
	if got, _ := l.CountAtTerm(ctx, item.ID, fall.ID); got != 7 {
		t.Fatalf("fall = %d, want the imported 7", got)
	}
}
