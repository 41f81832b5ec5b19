// Package reconcile compares a counting session against the expected
// quantities from the ledger.
package reconcile

import (
	"context"
	"errors"
	"sort"

	"avault-backend/internal/ledger"
	"avault-backend/internal/metrics"
	"avault-backend/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Line is one item in a reconciliation section. Amount is the shortage or
// surplus size; for new items it equals Current.
type Line struct {
	ItemID   uint   `json:"item_id"`
	Item     string `json:"item"`
	Category string `json:"category"`
	Location string `json:"location"`
	Expected int    `json:"expected"`
	Current  int    `json:"current"`
	Amount   int    `json:"amount"`
}

type Result struct {
	Session    *models.InventorySession `json:"session"`
	Previous   *models.InventorySession `json:"previous_session"`
	Shortages  []Line                   `json:"shortages"`
	Surpluses  []Line                   `json:"surpluses"`
	NewItems   []Line                   `json:"new_items"`
	TotalItems int                      `json:"total_items"`
}

func emptyResult() *Result {
	return &Result{Shortages: []Line{}, Surpluses: []Line{}, NewItems: []Line{}}
}

type Reconciler struct {
	db     *gorm.DB
	ledger *ledger.Ledger
	log    *logrus.Logger
}

func New(db *gorm.DB, log *logrus.Logger) *Reconciler {
	return &Reconciler{db: db, ledger: ledger.New(db), log: log}
}

// Reconcile computes shortages, surpluses and new items for a session.
// The session's own promoted ledger rows never count toward its expectation.
func (r *Reconciler) Reconcile(ctx context.Context, sessionID uint) (*Result, error) {
	var session models.InventorySession
	if err := r.db.WithContext(ctx).Preload("Term").First(&session, sessionID).Error; err != nil {
		return nil, models.NotFound(err)
	}

	prev, err := r.previousSession(ctx, session)
	if err != nil {
		return nil, err
	}

	var items []models.Item
	if err := r.db.WithContext(ctx).Preload("Category").Find(&items).Error; err != nil {
		return nil, err
	}

	current, err := r.sessionCounts(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	expected, err := r.ledger.Expected(ctx, ledger.ExpectedOptions{ExcludeSessionID: session.ID})
	if err != nil {
		return nil, err
	}

	var prevCounts map[uint]int
	if prev != nil {
		if prevCounts, err = r.sessionCounts(ctx, prev.ID); err != nil {
			return nil, err
		}
	}

	res := emptyResult()
	res.Session = &session
	res.Previous = prev
	res.TotalItems = len(items)

	for _, it := range items {
		cur, exp := current[it.ID], expected[it.ID]
		line := Line{
			ItemID:   it.ID,
			Item:     it.Name,
			Category: it.Category.Name,
			Location: it.Location,
			Expected: exp,
			Current:  cur,
		}

		switch {
		case cur < exp:
			line.Amount = exp - cur
			res.Shortages = append(res.Shortages, line)
		case cur > exp && exp > 0:
			line.Amount = cur - exp
			res.Surpluses = append(res.Surpluses, line)
		}

		if cur > 0 && isNew(it, prev, prevCounts) {
			nl := line
			nl.Amount = cur
			res.NewItems = append(res.NewItems, nl)
		}
	}

	sortLines(res.Shortages)
	sortLines(res.Surpluses)
	sortLines(res.NewItems)

	metrics.Reconciliations.Inc()
	r.log.WithFields(logrus.Fields{
		"session_id": session.ID,
		"shortages":  len(res.Shortages),
		"surpluses":  len(res.Surpluses),
		"new_items":  len(res.NewItems),
	}).Debug("session reconciled")
	return res, nil
}

// ReconcileLatest reconciles the most recent completed session. With no
// completed session it returns an empty result.
func (r *Reconciler) ReconcileLatest(ctx context.Context) (*Result, error) {
	var session models.InventorySession
	err := r.db.WithContext(ctx).
		Where("is_complete = ?", true).
		Order("date DESC, id DESC").
		First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return emptyResult(), nil
	}
	if err != nil {
		return nil, err
	}
	return r.Reconcile(ctx, session.ID)
}

func isNew(it models.Item, prev *models.InventorySession, prevCounts map[uint]int) bool {
	if prev == nil {
		return true
	}
	if _, counted := prevCounts[it.ID]; !counted {
		return true
	}
	return it.CreatedAt.After(prev.Date)
}

// previousSession is the latest completed session dated no later than s.
// Sessions on the same date are ordered by id.
func (r *Reconciler) previousSession(ctx context.Context, s models.InventorySession) (*models.InventorySession, error) {
	var prev models.InventorySession
	err := r.db.WithContext(ctx).
		Where("is_complete = ? AND id <> ?", true, s.ID).
		Where("date < ? OR (date = ? AND id < ?)", s.Date, s.Date, s.ID).
		Order("date DESC, id DESC").
		First(&prev).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &prev, nil
}

func (r *Reconciler) sessionCounts(ctx context.Context, sessionID uint) (map[uint]int, error) {
	var counts []models.InventoryCount
	if err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).Find(&counts).Error; err != nil {
		return nil, err
	}
	out := make(map[uint]int, len(counts))
	for _, c := range counts {
		out[c.ItemID] = c.Quantity
	}
	return out, nil
}

func sortLines(lines []Line) {
	sort.Slice(lines, func(i, j int) bool {
		if lines[i].Category != lines[j].Category {
			return lines[i].Category < lines[j].Category
		}
		if lines[i].Item != lines[j].Item {
			return lines[i].Item < lines[j].Item
		}
		return lines[i].ItemID < lines[j].ItemID
	})
}
