package report

import (
	"context"

	"avault-backend/internal/models"
)

type Stats struct {
	TotalItems      int64  `json:"total_items"`
	TotalCategories int64  `json:"total_categories"`
	TotalSessions   int64  `json:"total_sessions"`
	ActiveSessions  int64  `json:"active_sessions"`
	TotalTerms      int64  `json:"total_terms"`
	TotalUsers      int64  `json:"total_users"`
	LedgerRows      int64  `json:"historical_counts"`
	LatestTerm      string `json:"latest_term,omitempty"`
}

func (r *Reporter) Stats(ctx context.Context) (*Stats, error) {
	db := r.db.WithContext(ctx)
	s := &Stats{}

	counts := []struct {
		model interface{}
		dest  *int64
		open  bool
	}{
		{&models.Item{}, &s.TotalItems, false},
		{&models.Category{}, &s.TotalCategories, false},
		{&models.InventorySession{}, &s.TotalSessions, false},
		{&models.InventorySession{}, &s.ActiveSessions, true},
		{&models.AcademicTerm{}, &s.TotalTerms, false},
		{&models.User{}, &s.TotalUsers, false},
		{&models.HistoricalCount{}, &s.LedgerRows, false},
	}
	for _, c := range counts {
		q := db.Model(c.model)
		if c.open {
			q = q.Where("is_complete = ?", false)
		}
		if err := q.Count(c.dest).Error; err != nil {
			return nil, err
		}
	}

	terms, err := r.terms.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(terms) > 0 {
		s.LatestTerm = terms[len(terms)-1].Name
	}
	return s, nil
}
