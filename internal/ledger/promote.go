package ledger

import (
	"context"
	"fmt"
	"time"

	"avault-backend/internal/models"

	"gorm.io/gorm"
)

type PromoteResult struct {
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
}

// PromoteSession copies the session's counts into the ledger at termID. Rows
// that change are tagged with the session so RevertPromoted can undo them.
// Callers run it inside the transaction that completes the session.
func (l *Ledger) PromoteSession(ctx context.Context, sessionID, termID uint, countedBy *uint) (PromoteResult, error) {
	var res PromoteResult

	var counts []models.InventoryCount
	if err := l.db.WithContext(ctx).Where("session_id = ?", sessionID).Find(&counts).Error; err != nil {
		return res, err
	}

	now := time.Now()
	sid := sessionID
	for _, c := range counts {
		by := countedBy
		if c.CountedByID != nil {
			by = c.CountedByID
		}
		ch, err := l.Upsert(ctx, c.ItemID, termID, c.Quantity, UpsertOptions{
			SessionID: &sid,
			CountedBy: by,
			At:        now,
		})
		if err != nil {
			return res, fmt.Errorf("promote session %d: %w", sessionID, err)
		}
		switch ch.Outcome {
		case Created:
			res.Created++
		case Updated:
			res.Updated++
		default:
			res.Unchanged++
		}
	}
	return res, nil
}

type RevertResult struct {
	Removed  int64 `json:"removed"`
	Restored int64 `json:"restored"`
}

// RevertPromoted undoes a session's promotion. Rows the promotion created are
// deleted; rows it overwrote get their previous quantity back and lose the
// session tag. Run it inside a transaction.
func (l *Ledger) RevertPromoted(ctx context.Context, sessionID uint) (RevertResult, error) {
	var res RevertResult

	promoted := func() *gorm.DB {
		return l.db.WithContext(ctx).Model(&models.HistoricalCount{}).
			Where("session_id = ? AND previous_quantity IS NOT NULL", sessionID)
	}
	if err := promoted().Update("quantity", gorm.Expr("previous_quantity")).Error; err != nil {
		return res, fmt.Errorf("restore rows of session %d: %w", sessionID, err)
	}
	restore := promoted().Updates(map[string]interface{}{"session_id": nil, "previous_quantity": nil})
	if restore.Error != nil {
		return res, fmt.Errorf("untag rows of session %d: %w", sessionID, restore.Error)
	}
	res.Restored = restore.RowsAffected

	del := l.db.WithContext(ctx).Where("session_id = ?", sessionID).Delete(&models.HistoricalCount{})
	if del.Error != nil {
		return res, fmt.Errorf("remove rows of session %d: %w", sessionID, del.Error)
	}
	res.Removed = del.RowsAffected
	return res, nil
}
