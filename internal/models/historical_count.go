package models

import "time"

// HistoricalCount: the ledger row, one quantity per (item, term).
type HistoricalCount struct {
	ID         uint         `gorm:"primaryKey" json:"id"`
	ItemID     uint         `gorm:"not null;uniqueIndex:idx_item_term" json:"item_id"`
	Item       Item         `json:"-"`
	TermID     uint         `gorm:"not null;uniqueIndex:idx_item_term;index" json:"term_id"`
	Term       AcademicTerm `gorm:"foreignKey:TermID;constraint:OnDelete:CASCADE" json:"term"`
	Quantity   int          `gorm:"not null;default:0" json:"quantity"`
	SessionID  *uint        `gorm:"index" json:"session_id,omitempty"` // set when promoted from a completed session
	CountedBy  *uint        `json:"counted_by,omitempty"`
	ImportedAt time.Time    `gorm:"not null" json:"imported_at"`
	Notes      string       `gorm:"type:text" json:"notes"`

	// PreviousQuantity is the value a session promotion overwrote. Nil when
	// the promotion created the row or the row was not promoted.
	PreviousQuantity *int `json:"previous_quantity,omitempty"`
}
