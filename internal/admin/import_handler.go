package admin

import (
	"fmt"

	"avault-backend/internal/audit"
	"avault-backend/internal/auth"
	"avault-backend/internal/database"
	"avault-backend/internal/importer"
	"avault-backend/internal/logging"
	"avault-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

// POST /api/admin/import
// Multipart upload, field "file", .xlsx or .csv.
func ImportHandler(maxBytes int) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "multipart field \"file\" is required")
		}
		if fh.Size > int64(maxBytes) {
			return fiber.NewError(fiber.StatusRequestEntityTooLarge,
				fmt.Sprintf("file is larger than %d bytes", maxBytes))
		}

		f, err := fh.Open()
		if err != nil {
			return err
		}
		defer f.Close()

		table, err := importer.ReadTable(fh.Filename, f)
		if err != nil {
			return err
		}

		uid, uname := auth.CurrentUser(c)
		res, err := importer.New(database.DB, logging.GetLogger()).Import(c.UserContext(), table, importer.Options{
			UserID:   uid,
			FileName: fh.Filename,
		})
		if err != nil && res == nil {
			return err
		}

		desc := fmt.Sprintf("imported %s: %d items created, %d counts created, %d updated, %d row errors",
			fh.Filename, res.ItemsCreated, res.HistoricalCountsCreated, res.HistoricalCountsUpdated, len(res.Errors))
		if res.Error != "" {
			desc += "; " + res.Error
		}
		if err := audit.WriteLog(c.UserContext(), database.DB, audit.LogOptions{
			UserID: uid, UserName: uname,
			EntityType: audit.EntityImport, EntityID: res.SessionID,
			Action:      models.AuditActionImport,
			Description: desc,
			After:       fiber.Map{"import_id": res.ImportID, "terms": res.Terms, "session_id": res.SessionID},
		}); err != nil {
			logging.LogError(logging.GetLogger(), "admin", "ImportHandler", "audit", res.ImportID, err)
		}

		if err != nil {
			logging.LogError(logging.GetLogger(), "admin", "ImportHandler", "import session", res.ImportID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(res)
		}
		return c.JSON(res)
	}
}
