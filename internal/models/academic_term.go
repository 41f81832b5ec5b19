package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// AcademicTerm: one academic period (season + year), the unit of historical comparison.
type AcademicTerm struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Name      string     `gorm:"size:50;not null;uniqueIndex" json:"name"` // always "SEASON YEAR"
	Season    Season     `gorm:"size:10;not null;uniqueIndex:idx_term_season_year" json:"season"`
	Year      int        `gorm:"not null;uniqueIndex:idx_term_season_year" json:"year"`
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

func TermName(season Season, year int) string {
	return fmt.Sprintf("%s %d", season, year)
}

// BeforeSave keeps Name derived from Season and Year.
func (t *AcademicTerm) BeforeSave(tx *gorm.DB) error {
	if !t.Season.Valid() {
		return fmt.Errorf("invalid season %q", t.Season)
	}
	t.Name = TermName(t.Season, t.Year)
	return nil
}

// Before reports whether t comes chronologically before o.
func (t AcademicTerm) Before(o AcademicTerm) bool {
	if t.Year != o.Year {
		return t.Year < o.Year
	}
	return t.Season.Rank() < o.Season.Rank()
}
