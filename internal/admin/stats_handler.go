package admin

import (
	"avault-backend/internal/database"
	"avault-backend/internal/logging"
	"avault-backend/internal/report"

	"github.com/gofiber/fiber/v2"
)

// GET /api/admin/stats
func StatsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		stats, err := report.New(database.DB, logging.GetLogger()).Stats(c.UserContext())
		if err != nil {
			return err
		}
		return c.JSON(stats)
	}
}
