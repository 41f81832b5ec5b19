package term

import (
	"errors"
	"testing"

	"avault-backend/internal/models"
	"avault-backend/internal/testsupport"
)

func TestGetOrCreateIsIdempotent(t *testing.T) {
	db := testsupport.OpenDB(t)
	ctx := testsupport.Ctx(t)
	reg := NewRegistry(db)

	first, created, err := reg.GetOrCreate(ctx, models.SeasonFall, 2024)
	if err != nil || !created {
		t.Fatalf("first GetOrCreate: created=%v err=%v", created, err)
	}
	if first.Name != "FALL 2024" {
		t.Fatalf("Name = %q", first.Name)
	}

	second, created, err := reg.GetOrCreate(ctx, models.SeasonFall, 2024)
	if err != nil || created {
		t.Fatalf("second GetOrCreate: created=%v err=%v", created, err)
	}
	if second.ID != first.ID {
		t.Fatalf("ids differ: %d vs %d", first.ID, second.ID)
	}

	var n int64
	db.Model(&models.AcademicTerm{}).Count(&n)
	if n != 1 {
		t.Fatalf("terms = %d, want 1", n)
	}
}

func TestGetOrCreateRejectsBadSeason(t *testing.T) {
	reg := NewRegistry(testsupport.OpenDB(t))
	if _, _, err := reg.GetOrCreate(testsupport.Ctx(t), models.Season("AUTUMN"), 2024); err == nil {
		t.Fatal("expected error")
	}
}

func TestGetOrCreateFromHeader(t *testing.T) {
	db := testsupport.OpenDB(t)
	ctx := testsupport.Ctx(t)
	reg := NewRegistry(db)

	got, created, err := reg.GetOrCreateFromHeader(ctx, "Spring2025")
	if err != nil || !created || got == nil || got.Name != "SPRING 2025" {
		t.Fatalf("got %+v created=%v err=%v", got, created, err)
	}

	got, created, err = reg.GetOrCreateFromHeader(ctx, "CONDITION")
	if err != nil || created || got != nil {
		t.Fatalf("unparseable header: got %+v created=%v err=%v", got, created, err)
	}
}

func TestListIsChronological(t *testing.T) {
	db := testsupport.OpenDB(t)
	ctx := testsupport.Ctx(t)
	reg := NewRegistry(db)

	// Inserted out of order so primary keys disagree with term order.
	for _, k := range []Key{
		{models.SeasonWinter, 2024},
		{models.SeasonSpring, 2024},
		{models.SeasonFall, 2023},
		{models.SeasonSummer, 2024},
	} {
		if _, _, err := reg.GetOrCreate(ctx, k.Season, k.Year); err != nil {
			t.Fatal(err)
		}
	}

	terms, err := reg.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"FALL 2023", "SPRING 2024", "SUMMER 2024", "WINTER 2024"}
	if len(terms) != len(want) {
		t.Fatalf("len = %d", len(terms))
	}
	for i := range want {
		if terms[i].Name != want[i] {
			t.Fatalf("position %d: %s, want %s", i, terms[i].Name, want[i])
		}
	}

	latest, ok := Latest(terms)
	if !ok || latest.Name != "WINTER 2024" {
		t.Fatalf("Latest = %+v, %v", latest, ok)
	}
	if _, ok := Latest(nil); ok {
		t.Fatal("Latest(nil) should report false")
	}
}

func TestLookupAndGet(t *testing.T) {
	db := testsupport.OpenDB(t)
	ctx := testsupport.Ctx(t)
	reg := NewRegistry(db)
	fall := testsupport.NewTerm(t, db, models.SeasonFall, 2024)

	got, err := reg.Lookup(ctx, "fall 2024")
	if err != nil || got.ID != fall.ID {
		t.Fatalf("Lookup = %+v, %v", got, err)
	}
	if _, err := reg.Lookup(ctx, "SPRING 2030"); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("Lookup missing: %v", err)
	}
	if _, err := reg.Get(ctx, 999); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("Get missing: %v", err)
	}
}
