package models

import "time"

// InventorySession: one physical counting exercise.
type InventorySession struct {
	ID     uint          `gorm:"primaryKey" json:"id"`
	Name   string        `gorm:"size:100;not null;index" json:"name"`
	TermID *uint         `gorm:"index" json:"term_id"`
	Term   *AcademicTerm `gorm:"foreignKey:TermID;constraint:OnDelete:SET NULL" json:"term,omitempty"`

	// Term snapshot taken when the session is created; the AcademicTerm row
	// itself is linked on completion.
	TermSeason Season `gorm:"size:10" json:"term_season"`
	TermYear   int    `json:"term_year"`

	Date          time.Time `gorm:"index;not null" json:"date"`
	ConductedByID *uint     `json:"conducted_by_id"`
	ConductedBy   *User     `gorm:"constraint:OnDelete:SET NULL" json:"-"`
	IsComplete    bool      `gorm:"not null;default:false;index" json:"is_complete"`
	Notes         string    `gorm:"type:text" json:"notes"`
	ImportID      string    `gorm:"size:36;index" json:"import_id,omitempty"` // set for importer sessions
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	Counts []InventoryCount `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE" json:"-"`
}

// InventoryCount: observed quantity of one item in one session.
type InventoryCount struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ItemID      uint      `gorm:"not null;uniqueIndex:idx_item_session" json:"item_id"`
	Item        Item      `json:"-"`
	SessionID   uint      `gorm:"not null;uniqueIndex:idx_item_session;index" json:"session_id"`
	Quantity    int       `gorm:"not null;default:0" json:"quantity"`
	CountedByID *uint     `json:"counted_by_id"`
	CountedAt   time.Time `gorm:"autoUpdateTime" json:"counted_at"`
	Notes       string    `gorm:"type:text" json:"notes"`
	CreatedAt   time.Time `json:"created_at"`
}
