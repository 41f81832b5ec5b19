package term

import (
	"context"
	"fmt"
	"sort"

	"avault-backend/internal/database"
	"avault-backend/internal/models"

	"gorm.io/gorm"
)

// Registry is the store of known academic terms.
type Registry struct {
	db *gorm.DB
}

func NewRegistry(db *gorm.DB) *Registry {
	return &Registry{db: db}
}

// WithDB returns a registry bound to db, typically a transaction.
func (r *Registry) WithDB(db *gorm.DB) *Registry {
	return &Registry{db: db}
}

// GetOrCreate returns the term for (season, year), creating it when missing.
func (r *Registry) GetOrCreate(ctx context.Context, season models.Season, year int) (models.AcademicTerm, bool, error) {
	if !season.Valid() {
		return models.AcademicTerm{}, false, fmt.Errorf("invalid season %q", season)
	}
	t := models.AcademicTerm{Season: season, Year: year}
	created, err := database.FirstOrCreate(ctx, r.db, &t, "season = ? AND year = ?", season, year)
	if err != nil {
		return models.AcademicTerm{}, false, fmt.Errorf("get or create term %s: %w", models.TermName(season, year), err)
	}
	return t, created, nil
}

// GetOrCreateFromHeader parses header and registers the term. It returns nil
// without an error when the header does not name a term.
func (r *Registry) GetOrCreateFromHeader(ctx context.Context, header string) (*models.AcademicTerm, bool, error) {
	key, ok := Parse(header)
	if !ok {
		return nil, false, nil
	}
	t, created, err := r.GetOrCreate(ctx, key.Season, key.Year)
	if err != nil {
		return nil, false, err
	}
	return &t, created, nil
}

func (r *Registry) Get(ctx context.Context, id uint) (models.AcademicTerm, error) {
	var t models.AcademicTerm
	if err := r.db.WithContext(ctx).First(&t, id).Error; err != nil {
		return models.AcademicTerm{}, models.NotFound(err)
	}
	return t, nil
}

// Lookup finds a term by a header-like name ("Fall 2024", "2024 FALL").
func (r *Registry) Lookup(ctx context.Context, name string) (models.AcademicTerm, error) {
	key, ok := Parse(name)
	if !ok {
		return models.AcademicTerm{}, models.ErrNotFound
	}
	var t models.AcademicTerm
	err := r.db.WithContext(ctx).
		Where("season = ? AND year = ?", key.Season, key.Year).
		First(&t).Error
	if err != nil {
		return models.AcademicTerm{}, models.NotFound(err)
	}
	return t, nil
}

// List returns all terms in chronological order.
func (r *Registry) List(ctx context.Context) ([]models.AcademicTerm, error) {
	var terms []models.AcademicTerm
	if err := r.db.WithContext(ctx).Find(&terms).Error; err != nil {
		return nil, err
	}
	Sort(terms)
	return terms, nil
}

// Sort orders terms chronologically in place.
func Sort(terms []models.AcademicTerm) {
	sort.SliceStable(terms, func(i, j int) bool { return terms[i].Before(terms[j]) })
}

// Latest returns the chronologically last term.
func Latest(terms []models.AcademicTerm) (models.AcademicTerm, bool) {
	if len(terms) == 0 {
		return models.AcademicTerm{}, false
	}
	latest := terms[0]
	for _, t := range terms[1:] {
		if latest.Before(t) {
			latest = t
		}
	}
	return latest, true
}
