package report

import (
	"context"
	"fmt"
	"io"
	"sort"

	"avault-backend/internal/ledger"
	"avault-backend/internal/models"

	"github.com/xuri/excelize/v2"
)

const (
	SheetAllItems  = "All Items"
	SheetShortages = "Shortages"
	SheetSessions  = "Sessions"
)

// Export writes the inventory report workbook to w.
func (r *Reporter) Export(ctx context.Context, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
	})
	if err != nil {
		return err
	}

	if err := f.SetSheetName(f.GetSheetName(0), SheetAllItems); err != nil {
		return err
	}
	for _, name := range []string{SheetShortages, SheetSessions} {
		if _, err := f.NewSheet(name); err != nil {
			return err
		}
	}

	items, err := r.allItemRows(ctx)
	if err != nil {
		return err
	}
	shortages, err := r.shortageRows(ctx)
	if err != nil {
		return err
	}
	sessions, err := r.sessionRows(ctx)
	if err != nil {
		return err
	}

	sheets := []struct {
		name    string
		headers []interface{}
		rows    [][]interface{}
	}{
		{SheetAllItems, []interface{}{"Category", "Item", "Location", "Condition", "S/N - Frequency", "Expected"}, items},
		{SheetShortages, []interface{}{"Category", "Item", "Location", "Expected", "Current Count", "Shortage Amount"}, shortages},
		{SheetSessions, []interface{}{"Session", "Term", "Date", "Complete", "Items Counted"}, sessions},
	}
	for _, s := range sheets {
		if err := writeSheet(f, s.name, header, s.headers, s.rows); err != nil {
			return fmt.Errorf("sheet %s: %w", s.name, err)
		}
	}

	f.SetActiveSheet(0)
	_, err = f.WriteTo(w)
	return err
}

func writeSheet(f *excelize.File, sheet string, style int, headers []interface{}, rows [][]interface{}) error {
	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
		return err
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := row
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	lastCol, _ := excelize.ColumnNumberToName(len(headers))
	return f.SetColWidth(sheet, "A", lastCol, 18)
}

func (r *Reporter) allItemRows(ctx context.Context) ([][]interface{}, error) {
	var items []models.Item
	if err := r.db.WithContext(ctx).Preload("Category").Find(&items).Error; err != nil {
		return nil, err
	}
	expected, err := r.ledger.Expected(ctx, ledger.ExpectedOptions{})
	if err != nil {
		return nil, err
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Category.Name != items[j].Category.Name {
			return items[i].Category.Name < items[j].Category.Name
		}
		return items[i].Name < items[j].Name
	})

	rows := make([][]interface{}, 0, len(items))
	for _, it := range items {
		rows = append(rows, []interface{}{
			it.Category.Name, it.Name, it.Location, it.Condition, it.SerialFrequency, expected[it.ID],
		})
	}
	return rows, nil
}

func (r *Reporter) shortageRows(ctx context.Context) ([][]interface{}, error) {
	res, err := r.reconciler.ReconcileLatest(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([][]interface{}, 0, len(res.Shortages))
	for _, l := range res.Shortages {
		rows = append(rows, []interface{}{l.Category, l.Item, l.Location, l.Expected, l.Current, l.Amount})
	}
	return rows, nil
}

func (r *Reporter) sessionRows(ctx context.Context) ([][]interface{}, error) {
	var sessions []models.InventorySession
	if err := r.db.WithContext(ctx).Preload("Term").Order("date DESC, id DESC").Find(&sessions).Error; err != nil {
		return nil, err
	}

	type counted struct {
		SessionID uint
		N         int64
	}
	var tallies []counted
	err := r.db.WithContext(ctx).Model(&models.InventoryCount{}).
		Select("session_id, COUNT(*) AS n").
		Group("session_id").
		Scan(&tallies).Error
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]int64, len(tallies))
	for _, t := range tallies {
		byID[t.SessionID] = t.N
	}

	rows := make([][]interface{}, 0, len(sessions))
	for _, s := range sessions {
		termName := ""
		switch {
		case s.Term != nil:
			termName = s.Term.Name
		case s.TermSeason != "":
			termName = models.TermName(s.TermSeason, s.TermYear)
		}
		complete := "No"
		if s.IsComplete {
			complete = "Yes"
		}
		rows = append(rows, []interface{}{s.Name, termName, s.Date.Format("2006-01-02"), complete, byID[s.ID]})
	}
	return rows, nil
}
