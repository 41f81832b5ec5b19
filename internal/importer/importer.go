// Package importer turns inventory spreadsheets into categories, items and
// historical counts.
//
// The sheet layout is fixed: an "Item" column, optional LOCATION, CONDITION
// and "S/N - FREQUENCY" columns, and any number of term columns whose headers
// name an academic term ("Spring 2024"). Rows without numbers open a new
// category; rows with numbers are items of the current category.
package importer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"avault-backend/internal/database"
	"avault-backend/internal/ledger"
	"avault-backend/internal/metrics"
	"avault-backend/internal/models"
	"avault-backend/internal/term"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// RowError records a row whose storage writes failed and were rolled back.
// Row is the spreadsheet line number, the header being line 1.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}

type Result struct {
	ImportID string `json:"import_id"`

	CategoriesCreated       int `json:"categories_created"`
	CategoriesUpdated       int `json:"categories_updated"`
	ItemsCreated            int `json:"items_created"`
	ItemsUpdated            int `json:"items_updated"`
	TermsCreated            int `json:"terms_created"`
	HistoricalCountsCreated int `json:"historical_counts_created"`
	HistoricalCountsUpdated int `json:"historical_counts_updated"`

	Changes        []ledger.Change `json:"changes"`
	Errors         []RowError      `json:"errors"`
	Terms          []string        `json:"academic_terms"`
	SkippedColumns []string        `json:"skipped_columns"`
	OrphanRows     []int           `json:"orphan_rows"`

	SessionID   uint   `json:"session_id"`
	SessionName string `json:"session_name"`

	// Error is set when the rows were committed but the import session
	// could not be recorded.
	Error string `json:"error,omitempty"`
}

// ErrSessionNotRecorded is returned together with a populated Result when
// every row has been processed but the import session insert failed.
var ErrSessionNotRecorded = errors.New("import session not recorded")

type Options struct {
	// UserID is recorded as the counting user and the import session's conductor.
	UserID   *uint
	FileName string
}

type Importer struct {
	db  *gorm.DB
	log *logrus.Logger
	now func() time.Time
}

func New(db *gorm.DB, log *logrus.Logger) *Importer {
	return &Importer{db: db, log: log, now: time.Now}
}

// rowEffect is what one committed row contributes to the result. It is only
// applied after the row's transaction commits.
type rowEffect struct {
	category        *models.Category
	categoryCreated bool
	itemCreated     bool
	itemUpdated     bool
	changes         []ledger.Change
}

// Import writes the table. A malformed table fails before anything is
// written, as does a failure registering the header terms. A failing row is
// rolled back on its own and reported in Result.Errors while the remaining
// rows are still processed. If the import session cannot be recorded the
// error wraps ErrSessionNotRecorded and the Result still describes the rows.
func (im *Importer) Import(ctx context.Context, t Table, opts Options) (*Result, error) {
	lay, err := detectLayout(t.Headers)
	if err != nil {
		metrics.Imports.WithLabelValues("malformed").Inc()
		return nil, err
	}

	res := &Result{
		ImportID:       uuid.NewString(),
		Changes:        []ledger.Change{},
		Errors:         []RowError{},
		Terms:          []string{},
		SkippedColumns: append([]string{}, lay.skipped...),
		OrphanRows:     []int{},
	}
	log := im.log.WithFields(logrus.Fields{
		"import_id": res.ImportID,
		"file":      opts.FileName,
		"rows":      len(t.Rows),
	})

	if err := im.registerTerms(ctx, &lay, res); err != nil {
		metrics.Imports.WithLabelValues("error").Inc()
		return nil, err
	}
	for _, h := range lay.skipped {
		log.WithField("column", h).Warn("column header is not a term, skipped")
	}

	var current *models.Category
	for i, row := range t.Rows {
		line := i + 2
		name := lay.cell(row, lay.item)
		cells := make([]Cell, len(lay.terms))
		for j, tc := range lay.terms {
			cells[j] = ParseCell(lay.cell(row, tc.index))
		}

		kind := classify(name, cells, current != nil)
		metrics.ImportRows.WithLabelValues(kind.String()).Inc()

		switch kind {
		case rowSkip:
			continue
		case rowOrphan:
			res.OrphanRows = append(res.OrphanRows, line)
			log.WithFields(logrus.Fields{"row": line, "item": name}).Warn("item row before any category header, dropped")
			continue
		}

		var eff rowEffect
		err := im.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var err error
			if kind == rowCategory {
				eff, err = applyCategory(ctx, tx, name)
				return err
			}
			eff, err = im.applyItem(ctx, tx, lay, row, name, cells, current, opts, log.WithField("row", line))
			return err
		})
		if err != nil {
			res.Errors = append(res.Errors, RowError{Row: line, Message: err.Error()})
			metrics.ImportRows.WithLabelValues("error").Inc()
			log.WithFields(logrus.Fields{"row": line, "item": name}).WithError(err).Error("row rolled back")
			continue
		}

		if eff.category != nil {
			current = eff.category
		}
		res.apply(eff)
	}

	if err := im.createSession(ctx, lay, res, opts); err != nil {
		metrics.Imports.WithLabelValues("error").Inc()
		err = fmt.Errorf("%w: %v", ErrSessionNotRecorded, err)
		res.Error = err.Error()
		log.WithError(err).Error("rows committed but import session failed")
		return res, err
	}

	metrics.Imports.WithLabelValues("ok").Inc()
	metrics.LedgerWrites.WithLabelValues(ledger.Created.String()).Add(float64(res.HistoricalCountsCreated))
	metrics.LedgerWrites.WithLabelValues(ledger.Updated.String()).Add(float64(res.HistoricalCountsUpdated))
	log.WithFields(logrus.Fields{
		"categories_created": res.CategoriesCreated,
		"items_created":      res.ItemsCreated,
		"items_updated":      res.ItemsUpdated,
		"counts_created":     res.HistoricalCountsCreated,
		"counts_updated":     res.HistoricalCountsUpdated,
		"row_errors":         len(res.Errors),
		"orphan_rows":        len(res.OrphanRows),
	}).Info("import finished")
	return res, nil
}

// registerTerms creates the header terms in one transaction, so a failure
// leaves no term behind. lay and res are only filled in after the commit.
func (im *Importer) registerTerms(ctx context.Context, lay *layout, res *Result) error {
	found := make([]models.AcademicTerm, len(lay.terms))
	created := 0
	err := im.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reg := term.NewRegistry(tx)
		for i, tc := range lay.terms {
			t, isNew, err := reg.GetOrCreate(ctx, tc.key.Season, tc.key.Year)
			if err != nil {
				return fmt.Errorf("register term %s: %w", tc.header, err)
			}
			found[i] = t
			if isNew {
				created++
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	res.TermsCreated += created
	seen := make(map[term.Key]bool)
	for i := range lay.terms {
		tc := &lay.terms[i]
		tc.term = found[i]
		if !seen[tc.key] {
			seen[tc.key] = true
			res.Terms = append(res.Terms, tc.term.Name)
		}
	}
	return nil
}

func applyCategory(ctx context.Context, tx *gorm.DB, name string) (rowEffect, error) {
	cat := models.Category{Name: models.NormalizeCategoryName(name)}
	created, err := database.FirstOrCreate(ctx, tx, &cat, "name = ?", cat.Name)
	if err != nil {
		return rowEffect{}, fmt.Errorf("category %q: %w", name, err)
	}
	return rowEffect{category: &cat, categoryCreated: created}, nil
}

func (im *Importer) applyItem(ctx context.Context, tx *gorm.DB, lay layout, row []string, name string,
	cells []Cell, cat *models.Category, opts Options, log *logrus.Entry) (rowEffect, error) {

	var eff rowEffect

	item := models.Item{
		Name:            name,
		CategoryID:      cat.ID,
		Location:        lay.cell(row, lay.location),
		Condition:       lay.cell(row, lay.condition),
		SerialFrequency: lay.cell(row, lay.serial),
	}
	meta := item
	created, err := database.FirstOrCreate(ctx, tx, &item, "name = ? AND category_id = ?", name, cat.ID)
	if err != nil {
		return eff, fmt.Errorf("item %q: %w", name, err)
	}
	eff.itemCreated = created

	if !created && (item.Location != meta.Location || item.Condition != meta.Condition || item.SerialFrequency != meta.SerialFrequency) {
		err := tx.WithContext(ctx).Model(&item).Updates(map[string]interface{}{
			"location":         meta.Location,
			"condition":        meta.Condition,
			"serial_frequency": meta.SerialFrequency,
		}).Error
		if err != nil {
			return eff, fmt.Errorf("update item %q: %w", name, err)
		}
		eff.itemUpdated = true
	}

	led := ledger.New(tx)
	at := im.now()
	for j, tc := range lay.terms {
		c := cells[j]
		switch c.Kind {
		case KindNumber:
		case KindInvalid:
			log.WithFields(logrus.Fields{"item": name, "column": tc.header, "value": c.Raw}).Warn("unreadable count, cell skipped")
			continue
		default:
			continue
		}

		ch, err := led.Upsert(ctx, item.ID, tc.term.ID, c.Value, ledger.UpsertOptions{CountedBy: opts.UserID, At: at})
		if err != nil {
			return eff, fmt.Errorf("%s: %w", tc.term.Name, err)
		}
		if ch.Outcome != ledger.Unchanged {
			eff.changes = append(eff.changes, ch)
		}
	}
	return eff, nil
}

func (r *Result) apply(eff rowEffect) {
	if eff.category != nil {
		if eff.categoryCreated {
			r.CategoriesCreated++
		} else {
			r.CategoriesUpdated++
		}
		return
	}
	if eff.itemCreated {
		r.ItemsCreated++
	} else if eff.itemUpdated {
		r.ItemsUpdated++
	}
	for _, ch := range eff.changes {
		switch ch.Outcome {
		case ledger.Created:
			r.HistoricalCountsCreated++
		case ledger.Updated:
			r.HistoricalCountsUpdated++
		}
		r.Changes = append(r.Changes, ch)
	}
}

// createSession records the import as a completed session holding the
// ledger counts of the latest term in the sheet.
func (im *Importer) createSession(ctx context.Context, lay layout, res *Result, opts Options) error {
	now := im.now()
	session := models.InventorySession{
		Name:          "Import - " + now.Format("2006-01-02 15:04"),
		Date:          now,
		ConductedByID: opts.UserID,
		IsComplete:    true,
		ImportID:      res.ImportID,
		Notes:         fmt.Sprintf("Imported from %s with %d term columns", fileLabel(opts.FileName), len(lay.terms)),
	}

	terms := make([]models.AcademicTerm, len(lay.terms))
	for i, tc := range lay.terms {
		terms[i] = tc.term
	}
	latest, hasTerm := term.Latest(terms)
	if hasTerm {
		session.TermID = &latest.ID
		session.TermSeason = latest.Season
		session.TermYear = latest.Year
	}

	err := im.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&session).Error; err != nil {
			return err
		}
		if !hasTerm {
			return nil
		}

		counts, err := ledger.New(tx).CountsForTerm(ctx, latest.ID)
		if err != nil {
			return err
		}
		if len(counts) == 0 {
			return nil
		}
		rows := make([]models.InventoryCount, 0, len(counts))
		for itemID, qty := range counts {
			rows = append(rows, models.InventoryCount{
				ItemID:      itemID,
				SessionID:   session.ID,
				Quantity:    qty,
				CountedByID: opts.UserID,
			})
		}
		return tx.CreateInBatches(&rows, 200).Error
	})
	if err != nil {
		return err
	}

	res.SessionID = session.ID
	res.SessionName = session.Name
	return nil
}

func fileLabel(name string) string {
	if name == "" {
		return "spreadsheet"
	}
	return name
}

// IsMalformed reports whether err means the whole input was rejected.
func IsMalformed(err error) bool {
	return errors.Is(err, ErrMalformedInput)
}
