package models

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"
)

// Category: equipment group such as "WIRED MICS" or "MIXERS".
type Category struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:100;not null;uniqueIndex" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Items []Item `gorm:"foreignKey:CategoryID;constraint:OnDelete:CASCADE" json:"-"`
}

// NormalizeCategoryName trims and upper-cases a category name. A Caser keeps
// state, so each call gets its own.
func NormalizeCategoryName(name string) string {
	return cases.Upper(language.Und).String(strings.TrimSpace(name))
}

func (c *Category) BeforeSave(tx *gorm.DB) error {
	c.Name = NormalizeCategoryName(c.Name)
	return nil
}
