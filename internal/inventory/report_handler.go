package inventory

import (
	"bytes"
	"fmt"
	"time"

	"avault-backend/internal/database"
	"avault-backend/internal/logging"
	"avault-backend/internal/reconcile"
	"avault-backend/internal/report"

	"github.com/gofiber/fiber/v2"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// GET /api/reports/reconcile
// Reconciles the most recent completed session.
func LatestReconciliationHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		res, err := reconcile.New(database.DB, logging.GetLogger()).ReconcileLatest(c.UserContext())
		if err != nil {
			return err
		}
		return c.JSON(res)
	}
}

// GET /api/reports/compare?term_a=Fall%202023&term_b=Spring%202024
func CompareTermsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		a, b := c.Query("term_a"), c.Query("term_b")
		if a == "" || b == "" {
			return fiber.NewError(fiber.StatusBadRequest, "term_a and term_b are required")
		}
		res, err := report.New(database.DB, logging.GetLogger()).Compare(c.UserContext(), a, b)
		if err != nil {
			return err
		}
		return c.JSON(res)
	}
}

// GET /api/reports/export
func ExportHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var buf bytes.Buffer
		if err := report.New(database.DB, logging.GetLogger()).Export(c.UserContext(), &buf); err != nil {
			return err
		}
		name := fmt.Sprintf("inventory-%s.xlsx", time.Now().Format("2006-01-02"))
		c.Set(fiber.HeaderContentType, xlsxContentType)
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, name))
		return c.Send(buf.Bytes())
	}
}
