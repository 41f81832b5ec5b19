package report

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"avault-backend/internal/models"
)

type CompareLine struct {
	ItemID   uint   `json:"item_id"`
	Item     string `json:"item"`
	Category string `json:"category"`
	Previous int    `json:"previous_count"`
	Current  int    `json:"current_count"`
	Change   int    `json:"change"`
}

// Comparison partitions every item with a count in either term into exactly
// one bucket.
type Comparison struct {
	TermA     models.AcademicTerm `json:"term1"`
	TermB     models.AcademicTerm `json:"term2"`
	Added     []CompareLine       `json:"items_added"`
	Removed   []CompareLine       `json:"items_removed"`
	Increased []CompareLine       `json:"items_increased"`
	Decreased []CompareLine       `json:"items_decreased"`
	Stable    []CompareLine       `json:"items_stable"`
}

func (c *Comparison) Total() int {
	return len(c.Added) + len(c.Removed) + len(c.Increased) + len(c.Decreased) + len(c.Stable)
}

// ResolveTerm accepts a numeric id or a term name such as "Fall 2024".
func (r *Reporter) ResolveTerm(ctx context.Context, ref string) (models.AcademicTerm, error) {
	ref = strings.TrimSpace(ref)
	if id, err := strconv.ParseUint(ref, 10, 64); err == nil {
		return r.terms.Get(ctx, uint(id))
	}
	return r.terms.Lookup(ctx, ref)
}

// Compare reports how item counts moved from term a to term b.
func (r *Reporter) Compare(ctx context.Context, a, b string) (*Comparison, error) {
	ta, err := r.ResolveTerm(ctx, a)
	if err != nil {
		return nil, err
	}
	tb, err := r.ResolveTerm(ctx, b)
	if err != nil {
		return nil, err
	}

	countsA, err := r.ledger.CountsForTerm(ctx, ta.ID)
	if err != nil {
		return nil, err
	}
	countsB, err := r.ledger.CountsForTerm(ctx, tb.ID)
	if err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(countsA)+len(countsB))
	seen := make(map[uint]bool)
	for _, m := range []map[uint]int{countsA, countsB} {
		for id := range m {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}

	var items []models.Item
	if len(ids) > 0 {
		if err := r.db.WithContext(ctx).Preload("Category").Where("id IN ?", ids).Find(&items).Error; err != nil {
			return nil, err
		}
	}

	cmp := &Comparison{
		TermA:     ta,
		TermB:     tb,
		Added:     []CompareLine{},
		Removed:   []CompareLine{},
		Increased: []CompareLine{},
		Decreased: []CompareLine{},
		Stable:    []CompareLine{},
	}
	for _, it := range items {
		c1, c2 := countsA[it.ID], countsB[it.ID]
		line := CompareLine{
			ItemID:   it.ID,
			Item:     it.Name,
			Category: it.Category.Name,
			Previous: c1,
			Current:  c2,
			Change:   c2 - c1,
		}
		switch {
		case c1 == 0 && c2 > 0:
			cmp.Added = append(cmp.Added, line)
		case c1 > 0 && c2 == 0:
			cmp.Removed = append(cmp.Removed, line)
		case c2 > c1:
			cmp.Increased = append(cmp.Increased, line)
		case c2 < c1:
			cmp.Decreased = append(cmp.Decreased, line)
		default:
			cmp.Stable = append(cmp.Stable, line)
		}
	}

	for _, bucket := range [][]CompareLine{cmp.Added, cmp.Removed, cmp.Increased, cmp.Decreased, cmp.Stable} {
		sort.Slice(bucket, func(i, j int) bool {
			if bucket[i].Category != bucket[j].Category {
				return bucket[i].Category < bucket[j].Category
			}
			return bucket[i].Item < bucket[j].Item
		})
	}
	return cmp, nil
}
