package report

import (
	"context"

	"avault-backend/internal/ledger"
	"avault-backend/internal/models"
)

type TrendStatus string

const (
	TrendInsufficient TrendStatus = "insufficient_data"
	TrendIncreasing   TrendStatus = "increasing"
	TrendDecreasing   TrendStatus = "decreasing"
	TrendStable       TrendStatus = "stable"
)

type Trend struct {
	ItemID        uint           `json:"item_id"`
	Item          string         `json:"item"`
	Status        TrendStatus    `json:"trend"`
	Change        int            `json:"change"`
	LatestCount   int            `json:"latest_count"`
	PreviousCount int            `json:"previous_count"`
	Terms         []string       `json:"terms"`
	Counts        []int          `json:"counts"`
	History       []ledger.Entry `json:"-"`
}

// Trend looks at the last numTerms ledger entries of an item, oldest first.
// Direction compares the first and last value of that window.
func (r *Reporter) Trend(ctx context.Context, itemID uint, numTerms int) (*Trend, error) {
	if numTerms <= 0 {
		numTerms = DefaultTrendTerms
	}

	var item models.Item
	if err := r.db.WithContext(ctx).First(&item, itemID).Error; err != nil {
		return nil, models.NotFound(err)
	}

	hist, err := r.ledger.History(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if len(hist) > numTerms {
		hist = hist[len(hist)-numTerms:]
	}

	tr := &Trend{
		ItemID:  item.ID,
		Item:    item.Name,
		Terms:   make([]string, len(hist)),
		Counts:  make([]int, len(hist)),
		History: hist,
	}
	for i, e := range hist {
		tr.Terms[i] = e.Term.Name
		tr.Counts[i] = e.Quantity
	}

	if len(hist) < 2 {
		tr.Status = TrendInsufficient
		if len(hist) == 1 {
			tr.LatestCount = hist[0].Quantity
		}
		return tr, nil
	}

	first, last := hist[0].Quantity, hist[len(hist)-1].Quantity
	tr.Change = last - first
	tr.LatestCount = last
	tr.PreviousCount = hist[len(hist)-2].Quantity
	switch {
	case last > first:
		tr.Status = TrendIncreasing
	case last < first:
		tr.Status = TrendDecreasing
	default:
		tr.Status = TrendStable
	}
	return tr, nil
}
