// Package server wires the HTTP routes, middleware and error mapping.
package server

import (
	"errors"
	"strings"

	"avault-backend/internal/admin"
	"avault-backend/internal/audit"
	"avault-backend/internal/auth"
	"avault-backend/internal/config"
	"avault-backend/internal/dashboard"
	"avault-backend/internal/httputil"
	"avault-backend/internal/importer"
	"avault-backend/internal/inventory"
	"avault-backend/internal/ledger"
	"avault-backend/internal/logging"
	"avault-backend/internal/metrics"
	"avault-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

// multipart framing on top of the file itself
const uploadOverhead = 1 << 20

func NewApp(cfg *config.Config) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler,
		BodyLimit:    cfg.ImportMaxBytes + uploadOverhead,
	})

	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(corsOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))
	app.Use(metrics.Middleware())

	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	// Public auth
	api.Post("/auth/register-admin", auth.RegisterAdminHandler(cfg))
	api.Post("/auth/login", auth.LoginHandler(cfg))

	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg))
	adminOnly := auth.RequireRole(models.RoleAdmin)

	protected.Get("/auth/me", auth.MeHandler())

	adminRoutes := protected.Group("/admin")
	adminRoutes.Use(adminOnly)

	adminRoutes.Get("/users", admin.ListUsersHandler())
	adminRoutes.Post("/users", admin.CreateUserHandler())
	adminRoutes.Post("/users/:id/authorize", admin.AuthorizeUserHandler())
	adminRoutes.Post("/users/:id/revoke", admin.RevokeUserHandler())
	adminRoutes.Delete("/users/:id", admin.DeleteUserHandler())
	adminRoutes.Post("/import", admin.ImportHandler(cfg.ImportMaxBytes))
	adminRoutes.Get("/stats", admin.StatsHandler())

	protected.Get("/audit-logs", adminOnly, audit.ListAuditLogsHandler())

	// Catalogue: everyone reads, admins edit
	protected.Get("/categories", inventory.ListCategoriesHandler())
	protected.Post("/categories", adminOnly, inventory.CreateCategoryHandler())
	protected.Put("/categories/:id", adminOnly, inventory.UpdateCategoryHandler())
	protected.Delete("/categories/:id", adminOnly, inventory.DeleteCategoryHandler())

	protected.Get("/items", inventory.ListItemsHandler())
	protected.Post("/items", adminOnly, inventory.CreateItemHandler())
	protected.Get("/items/:id", inventory.GetItemHandler())
	protected.Put("/items/:id", adminOnly, inventory.UpdateItemHandler())
	protected.Delete("/items/:id", adminOnly, inventory.DeleteItemHandler())
	protected.Get("/items/:id/history", inventory.ItemHistoryHandler())
	protected.Get("/items/:id/trend", inventory.ItemTrendHandler(cfg.TrendTerms))

	protected.Get("/terms", inventory.ListTermsHandler())
	protected.Post("/terms", adminOnly, inventory.CreateTermHandler())
	protected.Get("/terms/current", inventory.CurrentTermHandler())

	// Counting sessions
	protected.Get("/sessions", inventory.ListSessionsHandler())
	protected.Post("/sessions", inventory.CreateSessionHandler())
	protected.Get("/sessions/:id", inventory.GetSessionHandler())
	protected.Delete("/sessions/:id", adminOnly, inventory.DeleteSessionHandler())
	protected.Get("/sessions/:id/counts", inventory.ListSessionCountsHandler())
	protected.Put("/sessions/:id/counts/:item_id", inventory.SubmitCountHandler())
	protected.Post("/sessions/:id/complete", inventory.CompleteSessionHandler())
	protected.Get("/sessions/:id/reconcile", inventory.ReconcileSessionHandler())

	// Reports
	protected.Get("/reports/reconcile", inventory.LatestReconciliationHandler())
	protected.Get("/reports/compare", inventory.CompareTermsHandler())
	protected.Get("/reports/export", inventory.ExportHandler())
	protected.Get("/dashboard/term-chart", dashboard.TermChartHandler())

	return app
}

// ErrorHandler turns handler errors into JSON responses. Domain sentinels map
// to 4xx codes; anything unrecognised is logged and reported as a 500.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var (
		fe   *fiber.Error
		verr *httputil.ValidationError
	)
	switch {
	case errors.As(err, &fe):
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
	case errors.As(err, &verr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":  "validation failed",
			"fields": verr.Fields,
		})
	case errors.Is(err, models.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, inventory.ErrDuplicateName), errors.Is(err, inventory.ErrSessionComplete):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, importer.ErrMalformedInput),
		errors.Is(err, ledger.ErrNegativeQuantity),
		errors.Is(err, inventory.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	logging.LogError(logging.GetLogger(), "server", "ErrorHandler", c.Method()+" "+c.Path(), nil, err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "unexpected server error",
	})
}
