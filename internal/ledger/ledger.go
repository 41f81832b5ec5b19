// Package ledger stores the historical quantity of each item per academic term
// and answers the "expected quantity" question for the rest of the system.
//
// "Latest" always means the chronologically last term with a count, using the
// term ordering, never insertion or primary-key order.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"avault-backend/internal/database"
	"avault-backend/internal/models"
	"avault-backend/internal/term"

	"gorm.io/gorm"
)

var ErrNegativeQuantity = errors.New("quantity must not be negative")

type Ledger struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// WithDB returns a ledger bound to db, typically a transaction.
func (l *Ledger) WithDB(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// Entry is one point of an item's count history.
type Entry struct {
	Term     models.AcademicTerm `json:"term"`
	Quantity int                 `json:"quantity"`
}

// Outcome of an Upsert.
type Outcome int

const (
	Unchanged Outcome = iota
	Created
	Updated
)

func (o Outcome) String() string {
	switch o {
	case Created:
		return "created"
	case Updated:
		return "updated"
	default:
		return "unchanged"
	}
}

// Change describes what Upsert did to a single (item, term) row.
type Change struct {
	ItemID   uint    `json:"item_id"`
	TermID   uint    `json:"term_id"`
	Outcome  Outcome `json:"-"`
	Action   string  `json:"action"`
	Previous int     `json:"previous"`
	Quantity int     `json:"quantity"`
}

type UpsertOptions struct {
	SessionID *uint
	CountedBy *uint
	Notes     string
	At        time.Time
}

// Upsert writes qty for (itemID, termID). Existing rows are only touched when
// the quantity differs. A session write keeps the overwritten quantity in
// previous_quantity so the promotion can be undone; any other write clears it.
func (l *Ledger) Upsert(ctx context.Context, itemID, termID uint, qty int, opts UpsertOptions) (Change, error) {
	ch := Change{ItemID: itemID, TermID: termID, Quantity: qty}
	if qty < 0 {
		return ch, ErrNegativeQuantity
	}
	at := opts.At
	if at.IsZero() {
		at = time.Now()
	}

	hc := models.HistoricalCount{
		ItemID:     itemID,
		TermID:     termID,
		Quantity:   qty,
		SessionID:  opts.SessionID,
		CountedBy:  opts.CountedBy,
		ImportedAt: at,
		Notes:      opts.Notes,
	}
	created, err := database.FirstOrCreate(ctx, l.db, &hc, "item_id = ? AND term_id = ?", itemID, termID)
	if err != nil {
		return ch, fmt.Errorf("upsert historical count item=%d term=%d: %w", itemID, termID, err)
	}
	if created {
		ch.Outcome, ch.Action = Created, Created.String()
		return ch, nil
	}

	ch.Previous = hc.Quantity
	if hc.Quantity == qty {
		ch.Outcome, ch.Action = Unchanged, Unchanged.String()
		return ch, nil
	}

	updates := map[string]interface{}{
		"quantity":    qty,
		"imported_at": at,
		"session_id":  opts.SessionID,
	}
	if opts.CountedBy != nil {
		updates["counted_by"] = opts.CountedBy
	}
	if opts.Notes != "" {
		updates["notes"] = opts.Notes
	}
	switch {
	case opts.SessionID == nil:
		updates["previous_quantity"] = nil
	case hc.SessionID == nil || *hc.SessionID != *opts.SessionID:
		updates["previous_quantity"] = hc.Quantity
	}
	if err := l.db.WithContext(ctx).Model(&hc).Updates(updates).Error; err != nil {
		return ch, fmt.Errorf("update historical count %d: %w", hc.ID, err)
	}
	ch.Outcome, ch.Action = Updated, Updated.String()
	return ch, nil
}

// CountAtTerm returns the quantity recorded for the item at the term, 0 if absent.
func (l *Ledger) CountAtTerm(ctx context.Context, itemID, termID uint) (int, error) {
	var hc models.HistoricalCount
	err := l.db.WithContext(ctx).
		Where("item_id = ? AND term_id = ?", itemID, termID).
		First(&hc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return hc.Quantity, nil
}

// History returns the item's counts in ascending term order.
func (l *Ledger) History(ctx context.Context, itemID uint) ([]Entry, error) {
	var rows []models.HistoricalCount
	if err := l.db.WithContext(ctx).Preload("Term").Where("item_id = ?", itemID).Find(&rows).Error; err != nil {
		return nil, err
	}

	terms := make([]models.AcademicTerm, len(rows))
	qty := make(map[uint]int, len(rows))
	for i, r := range rows {
		terms[i] = r.Term
		qty[r.TermID] = r.Quantity
	}
	term.Sort(terms)

	out := make([]Entry, len(terms))
	for i, t := range terms {
		out[i] = Entry{Term: t, Quantity: qty[t.ID]}
	}
	return out, nil
}

// LatestCount returns the quantity at the chronologically last term with a
// count for the item, 0 if none.
func (l *Ledger) LatestCount(ctx context.Context, itemID uint) (int, error) {
	h, err := l.History(ctx, itemID)
	if err != nil || len(h) == 0 {
		return 0, err
	}
	return h[len(h)-1].Quantity, nil
}

type LatestOptions struct {
	// ExcludeSessionID reads the ledger as it was before that session was
	// promoted: rows it created are skipped, rows it overwrote report their
	// previous quantity.
	ExcludeSessionID uint
}

// LatestCounts returns the latest ledger quantity for every item that has at
// least one ledger row.
func (l *Ledger) LatestCounts(ctx context.Context, opts LatestOptions) (map[uint]int, error) {
	var terms []models.AcademicTerm
	if err := l.db.WithContext(ctx).Find(&terms).Error; err != nil {
		return nil, err
	}
	byID := make(map[uint]models.AcademicTerm, len(terms))
	for _, t := range terms {
		byID[t.ID] = t
	}

	var rows []models.HistoricalCount
	if err := l.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}

	latestTerm := make(map[uint]models.AcademicTerm)
	out := make(map[uint]int)
	for _, r := range rows {
		qty := r.Quantity
		if opts.ExcludeSessionID != 0 && r.SessionID != nil && *r.SessionID == opts.ExcludeSessionID {
			if r.PreviousQuantity == nil {
				continue
			}
			qty = *r.PreviousQuantity
		}
		t := byID[r.TermID]
		if cur, ok := latestTerm[r.ItemID]; ok && !cur.Before(t) {
			continue
		}
		latestTerm[r.ItemID] = t
		out[r.ItemID] = qty
	}
	return out, nil
}

// CountsForTerm returns item id -> quantity for one term.
func (l *Ledger) CountsForTerm(ctx context.Context, termID uint) (map[uint]int, error) {
	var rows []models.HistoricalCount
	if err := l.db.WithContext(ctx).Where("term_id = ?", termID).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[uint]int, len(rows))
	for _, r := range rows {
		out[r.ItemID] = r.Quantity
	}
	return out, nil
}
