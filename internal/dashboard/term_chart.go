// Package dashboard serves chart data for the front page.
package dashboard

import (
	"avault-backend/internal/database"
	"avault-backend/internal/httputil"
	"avault-backend/internal/term"

	"github.com/gofiber/fiber/v2"
)

type TermChartPoint struct {
	TermID uint   `json:"term_id"`
	Label  string `json:"label"` // term name
	Units  int64  `json:"units"` // sum of ledger quantities
	Items  int64  `json:"items"` // items with a count in the term
}

type TermChartResponse struct {
	CategoryID uint             `json:"category_id,omitempty"`
	Count      int              `json:"count"`
	Points     []TermChartPoint `json:"points"`
	Change     int64            `json:"change"` // units, last point minus first
}

// GET /api/dashboard/term-chart?count=5&category_id=1
// Totals per academic term over the most recent count terms, oldest first.
func TermChartHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		count, err := httputil.QueryInt(c, "count", 5)
		if err != nil {
			return err
		}
		if count <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "count must be positive")
		}
		categoryID, err := httputil.QueryInt(c, "category_id", 0)
		if err != nil {
			return err
		}
		ctx := c.UserContext()

		terms, err := term.NewRegistry(database.DB).List(ctx)
		if err != nil {
			return err
		}
		if len(terms) > count {
			terms = terms[len(terms)-count:]
		}

		type row struct {
			TermID uint
			Units  int64
			Items  int64
		}
		var rows []row
		q := database.DB.WithContext(ctx).
			Table("historical_counts").
			Select("historical_counts.term_id, SUM(historical_counts.quantity) AS units, COUNT(*) AS items").
			Group("historical_counts.term_id")
		if categoryID > 0 {
			q = q.Joins("JOIN items ON items.id = historical_counts.item_id").
				Where("items.category_id = ?", categoryID)
		}
		if err := q.Scan(&rows).Error; err != nil {
			return err
		}
		byTerm := make(map[uint]row, len(rows))
		for _, r := range rows {
			byTerm[r.TermID] = r
		}

		resp := TermChartResponse{
			CategoryID: uint(categoryID),
			Count:      count,
			Points:     make([]TermChartPoint, 0, len(terms)),
		}
		for _, t := range terms {
			r := byTerm[t.ID]
			resp.Points = append(resp.Points, TermChartPoint{TermID: t.ID, Label: t.Name, Units: r.Units, Items: r.Items})
		}
		if n := len(resp.Points); n > 1 {
			resp.Change = resp.Points[n-1].Units - resp.Points[0].Units
		}
		return c.JSON(resp)
	}
}
