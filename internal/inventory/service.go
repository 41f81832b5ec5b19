package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"avault-backend/internal/database"
	"avault-backend/internal/ledger"
	"avault-backend/internal/models"
	"avault-backend/internal/term"

	"gorm.io/gorm"
)

// CreateCategory adds a category by its normalized name. An existing name is
// an ErrDuplicateName, never a merge.
func CreateCategory(ctx context.Context, db *gorm.DB, name string) (models.Category, error) {
	cat := models.Category{Name: models.NormalizeCategoryName(name)}
	if cat.Name == "" {
		return cat, fmt.Errorf("category name is empty: %w", ErrInvalidInput)
	}
	if err := ensureUniqueCategory(ctx, db, cat.Name, 0); err != nil {
		return cat, err
	}
	if err := db.WithContext(ctx).Create(&cat).Error; err != nil {
		if ensureUniqueCategory(ctx, db, cat.Name, 0) != nil {
			return cat, ErrDuplicateName
		}
		return cat, err
	}
	return cat, nil
}

func RenameCategory(ctx context.Context, db *gorm.DB, id uint, name string) (models.Category, error) {
	var cat models.Category
	if err := db.WithContext(ctx).First(&cat, id).Error; err != nil {
		return cat, models.NotFound(err)
	}
	name = models.NormalizeCategoryName(name)
	if name == "" {
		return cat, fmt.Errorf("category name is empty: %w", ErrInvalidInput)
	}
	if err := ensureUniqueCategory(ctx, db, name, id); err != nil {
		return cat, err
	}
	cat.Name = name
	if err := db.WithContext(ctx).Save(&cat).Error; err != nil {
		return cat, err
	}
	return cat, nil
}

func ensureUniqueCategory(ctx context.Context, db *gorm.DB, name string, exceptID uint) error {
	var n int64
	err := db.WithContext(ctx).Model(&models.Category{}).
		Where("name = ? AND id <> ?", name, exceptID).
		Count(&n).Error
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("category %q: %w", name, ErrDuplicateName)
	}
	return nil
}

type NewSession struct {
	Name  string
	Date  time.Time
	Notes string
	// Term overrides the calendar term for Date, e.g. "Fall 2024".
	Term          string
	ConductedByID *uint
}

// CreateSession opens a counting session. The term snapshot comes from the
// explicit Term or, failing that, from the academic calendar at Date.
func CreateSession(ctx context.Context, db *gorm.DB, in NewSession) (models.InventorySession, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return models.InventorySession{}, fmt.Errorf("session name is empty: %w", ErrInvalidInput)
	}
	date := in.Date
	if date.IsZero() {
		date = time.Now()
	}

	key := term.Current(date)
	if in.Term != "" {
		k, ok := term.Parse(in.Term)
		if !ok {
			return models.InventorySession{}, fmt.Errorf("unrecognised term %q: %w", in.Term, ErrInvalidInput)
		}
		key = k
	}

	s := models.InventorySession{
		Name:          name,
		Date:          date,
		Notes:         in.Notes,
		TermSeason:    key.Season,
		TermYear:      key.Year,
		ConductedByID: in.ConductedByID,
	}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.InventorySession{}).Where("name = ?", name).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("session %q: %w", name, ErrDuplicateName)
		}
		return tx.Create(&s).Error
	})
	return s, err
}

func loadSession(ctx context.Context, db *gorm.DB, id uint) (models.InventorySession, error) {
	var s models.InventorySession
	if err := db.WithContext(ctx).Preload("Term").First(&s, id).Error; err != nil {
		return s, models.NotFound(err)
	}
	return s, nil
}

type CountInput struct {
	Quantity    int
	Notes       string
	CountedByID *uint
}

// SubmitCount records or replaces the count of one item in an open session.
func SubmitCount(ctx context.Context, db *gorm.DB, sessionID, itemID uint, in CountInput) (models.InventoryCount, error) {
	var out models.InventoryCount
	if in.Quantity < 0 {
		return out, ledger.ErrNegativeQuantity
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		s, err := loadSession(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		if s.IsComplete {
			return ErrSessionComplete
		}
		var item models.Item
		if err := tx.First(&item, itemID).Error; err != nil {
			return models.NotFound(err)
		}

		out = models.InventoryCount{
			ItemID:      itemID,
			SessionID:   sessionID,
			Quantity:    in.Quantity,
			Notes:       in.Notes,
			CountedByID: in.CountedByID,
		}
		created, err := database.FirstOrCreate(ctx, tx, &out, "item_id = ? AND session_id = ?", itemID, sessionID)
		if err != nil || created {
			return err
		}
		out.Quantity = in.Quantity
		out.Notes = in.Notes
		out.CountedByID = in.CountedByID
		return tx.Save(&out).Error
	})
	return out, err
}

type CompleteResult struct {
	Session  models.InventorySession `json:"session"`
	Promoted ledger.PromoteResult    `json:"promoted"`
}

// CompleteSession freezes the session, links its term and promotes its
// counts into the ledger, all in one transaction.
func CompleteSession(ctx context.Context, db *gorm.DB, sessionID uint, by *uint) (CompleteResult, error) {
	var res CompleteResult
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		s, err := loadSession(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		if s.IsComplete {
			return ErrSessionComplete
		}

		var t models.AcademicTerm
		switch {
		case s.Term != nil:
			t = *s.Term
		case s.TermSeason.Valid():
			t, _, err = term.NewRegistry(tx).GetOrCreate(ctx, s.TermSeason, s.TermYear)
		default:
			key := term.Current(s.Date)
			t, _, err = term.NewRegistry(tx).GetOrCreate(ctx, key.Season, key.Year)
		}
		if err != nil {
			return err
		}

		promoted, err := ledger.New(tx).PromoteSession(ctx, s.ID, t.ID, by)
		if err != nil {
			return err
		}

		err = tx.Model(&s).Updates(map[string]interface{}{
			"is_complete": true,
			"term_id":     t.ID,
			"term_season": t.Season,
			"term_year":   t.Year,
		}).Error
		if err != nil {
			return err
		}
		s.IsComplete = true
		s.TermID = &t.ID
		s.Term = &t
		s.TermSeason, s.TermYear = t.Season, t.Year

		res = CompleteResult{Session: s, Promoted: promoted}
		return nil
	})
	return res, err
}

// DeleteSession removes the session and its counts, and reverts what its
// completion promoted into the ledger.
func DeleteSession(ctx context.Context, db *gorm.DB, sessionID uint) (models.InventorySession, ledger.RevertResult, error) {
	var (
		s        models.InventorySession
		reverted ledger.RevertResult
	)
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if s, err = loadSession(ctx, tx, sessionID); err != nil {
			return err
		}
		if reverted, err = ledger.New(tx).RevertPromoted(ctx, s.ID); err != nil {
			return err
		}
		if err := tx.Where("session_id = ?", s.ID).Delete(&models.InventoryCount{}).Error; err != nil {
			return err
		}
		return tx.Delete(&s).Error
	})
	return s, reverted, err
}
