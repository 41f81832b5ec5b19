package models

import "time"

// Item: one kind of equipment. Its expected quantity is derived from the
// ledger (see ledger.Expected) and never stored here.
type Item struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Name            string    `gorm:"size:200;not null;index" json:"name"`
	CategoryID      uint      `gorm:"index;not null" json:"category_id"`
	Category        Category  `json:"category"`
	Location        string    `gorm:"size:200" json:"location"`
	Condition       string    `gorm:"size:100" json:"condition"`
	SerialFrequency string    `gorm:"size:100" json:"serial_frequency"` // serial number or wireless frequency
	Notes           string    `gorm:"type:text" json:"notes"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	HistoricalCounts []HistoricalCount `gorm:"foreignKey:ItemID;constraint:OnDelete:CASCADE" json:"-"`
	Counts           []InventoryCount  `gorm:"foreignKey:ItemID;constraint:OnDelete:CASCADE" json:"-"`
}
