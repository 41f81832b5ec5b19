// Package audit records who changed what and serves the audit trail.
package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"avault-backend/internal/models"

	"gorm.io/gorm"
)

// Entity types used in the trail.
const (
	EntityCategory = "category"
	EntityItem     = "item"
	EntitySession  = "session"
	EntityCount    = "inventory_count"
	EntityImport   = "import"
	EntityUser     = "user"
)

type LogOptions struct {
	UserID      *uint
	UserName    string
	EntityType  string
	EntityID    uint
	Action      models.AuditAction
	Description string
	Before      any
	After       any
}

// WriteLog stores one audit entry. Pass the transaction when the change
// itself runs in one, so both commit together.
func WriteLog(ctx context.Context, db *gorm.DB, opts LogOptions) error {
	entry := models.AuditLog{
		UserName:    opts.UserName,
		EntityType:  opts.EntityType,
		EntityID:    opts.EntityID,
		Action:      opts.Action,
		Description: opts.Description,
		BeforeData:  snapshot(opts.Before),
		AfterData:   snapshot(opts.After),
	}
	if opts.UserID != nil {
		entry.UserID = *opts.UserID
	}

	if err := db.WithContext(ctx).Create(&entry).Error; err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}

// snapshot encodes v as JSON; "null" when absent or not encodable.
func snapshot(v any) string {
	if v == nil {
		return "null"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}
