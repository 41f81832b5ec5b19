// Package report builds item trends, term comparisons, dashboard statistics
// and the spreadsheet export from the ledger and the session data.
package report

import (
	"avault-backend/internal/ledger"
	"avault-backend/internal/reconcile"
	"avault-backend/internal/term"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const DefaultTrendTerms = 5

type Reporter struct {
	db         *gorm.DB
	ledger     *ledger.Ledger
	terms      *term.Registry
	reconciler *reconcile.Reconciler
	log        *logrus.Logger
}

func New(db *gorm.DB, log *logrus.Logger) *Reporter {
	return &Reporter{
		db:         db,
		ledger:     ledger.New(db),
		terms:      term.NewRegistry(db),
		reconciler: reconcile.New(db, log),
		log:        log,
	}
}
