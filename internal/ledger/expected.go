package ledger

import (
	"context"
)

type ExpectedOptions struct {
	// ExcludeSessionID leaves one session out of the calculation: its
	// promoted ledger rows and its own counts are ignored.
	ExcludeSessionID uint
}

// Expected returns the expected quantity of every item that has one. Items
// with ledger history use their latest ledger count; items without any fall
// back to their count in the most recent completed session. Items in
// neither map to nothing, which callers read as 0.
func (l *Ledger) Expected(ctx context.Context, opts ExpectedOptions) (map[uint]int, error) {
	out, err := l.LatestCounts(ctx, LatestOptions{ExcludeSessionID: opts.ExcludeSessionID})
	if err != nil {
		return nil, err
	}

	legacy, err := l.latestSessionCounts(ctx, opts.ExcludeSessionID)
	if err != nil {
		return nil, err
	}
	for itemID, qty := range legacy {
		if _, ok := out[itemID]; !ok {
			out[itemID] = qty
		}
	}
	return out, nil
}

// ExpectedFor is Expected for a single item.
func (l *Ledger) ExpectedFor(ctx context.Context, itemID uint, opts ExpectedOptions) (int, error) {
	all, err := l.Expected(ctx, opts)
	if err != nil {
		return 0, err
	}
	return all[itemID], nil
}

type sessionCount struct {
	ItemID   uint
	Quantity int
}

// latestSessionCounts returns each item's count in the most recent completed
// session that counted it.
func (l *Ledger) latestSessionCounts(ctx context.Context, excludeSessionID uint) (map[uint]int, error) {
	var rows []sessionCount
	err := l.db.WithContext(ctx).
		Table("inventory_counts").
		Select("inventory_counts.item_id, inventory_counts.quantity").
		Joins("JOIN inventory_sessions ON inventory_sessions.id = inventory_counts.session_id").
		Where("inventory_sessions.is_complete = ?", true).
		Where("inventory_sessions.id <> ?", excludeSessionID).
		Order("inventory_sessions.date DESC, inventory_sessions.id DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make(map[uint]int)
	for _, r := range rows {
		if _, seen := out[r.ItemID]; !seen {
			out[r.ItemID] = r.Quantity
		}
	}
	return out, nil
}
