package term

import (
	"testing"

	"avault-backend/internal/models"
)

func TestParse(t *testing.T) {
	cases := []struct {
		header string
		want   Key
		ok     bool
	}{
		{"Spring 2024", Key{models.SeasonSpring, 2024}, true},
		{"SUMMER  2018", Key{models.SeasonSummer, 2018}, true},
		{"Fall2023", Key{models.SeasonFall, 2023}, true},
		{"  winter 1999 ", Key{models.SeasonWinter, 1999}, true},
		{"2024 spring", Key{models.SeasonSpring, 2024}, true},
		{"Fall 2023 / 2024", Key{models.SeasonFall, 2023}, true},
		{"Spring", Key{}, false},
		{"2024", Key{}, false},
		{"Spring 12024", Key{}, false},
		{"Spring 1850", Key{}, false},
		{"LOCATION", Key{}, false},
		{"", Key{}, false},
	}
	for _, tc := range cases {
		got, ok := Parse(tc.header)
		if ok != tc.ok || got != tc.want {
			t.Errorf("Parse(%q) = %+v, %v; want %+v, %v", tc.header, got, ok, tc.want, tc.ok)
		}
	}
}

func TestParseOrderIndependent(t *testing.T) {
	for _, s := range models.Seasons() {
		a, okA := Parse(string(s) + " 2024")
		b, okB := Parse("2024 " + string(s))
		if !okA || !okB || a != b {
			t.Fatalf("%s: %+v/%v vs %+v/%v", s, a, okA, b, okB)
		}
	}
}

func TestKeyNameAndOrder(t *testing.T) {
	fall := Key{models.SeasonFall, 2024}
	winter := Key{models.SeasonWinter, 2024}
	spring := Key{models.SeasonSpring, 2025}

	if fall.Name() != "FALL 2024" {
		t.Fatalf("Name = %q", fall.Name())
	}
	if !fall.Before(winter) || !winter.Before(spring) || spring.Before(fall) {
		t.Fatal("unexpected ordering")
	}
}
