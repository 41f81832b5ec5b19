package inventory

import (
	"errors"
	"time"

	"avault-backend/internal/database"
	"avault-backend/internal/httputil"
	"avault-backend/internal/models"
	"avault-backend/internal/term"

	"github.com/gofiber/fiber/v2"
)

type TermRequest struct {
	Season    string     `json:"season" validate:"required,oneof=SPRING SUMMER FALL WINTER spring summer fall winter"`
	Year      int        `json:"year" validate:"required,gte=1900,lte=2099"`
	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
}

// GET /api/terms
func ListTermsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		terms, err := term.NewRegistry(database.DB).List(c.UserContext())
		if err != nil {
			return err
		}
		return c.JSON(terms)
	}
}

// POST /api/terms
// Returns 201 for a new term and 200 when it already existed.
func CreateTermHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body TermRequest
		if err := httputil.Bind(c, &body); err != nil {
			return err
		}
		season, _ := models.ParseSeason(body.Season)

		t, created, err := term.NewRegistry(database.DB).GetOrCreate(c.UserContext(), season, body.Year)
		if err != nil {
			return err
		}
		if body.StartDate != nil || body.EndDate != nil {
			updates := map[string]interface{}{}
			if body.StartDate != nil {
				updates["start_date"] = body.StartDate
				t.StartDate = body.StartDate
			}
			if body.EndDate != nil {
				updates["end_date"] = body.EndDate
				t.EndDate = body.EndDate
			}
			if err := database.DB.WithContext(c.UserContext()).Model(&t).Updates(updates).Error; err != nil {
				return err
			}
		}

		status := fiber.StatusOK
		if created {
			status = fiber.StatusCreated
		}
		return c.Status(status).JSON(t)
	}
}

// GET /api/terms/current
func CurrentTermHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := term.Current(time.Now())
		resp := fiber.Map{
			"season":     key.Season,
			"year":       key.Year,
			"name":       key.Name(),
			"registered": false,
		}

		t, err := term.NewRegistry(database.DB).Lookup(c.UserContext(), key.Name())
		switch {
		case err == nil:
			resp["registered"] = true
			resp["term"] = t
		case !errors.Is(err, models.ErrNotFound):
			return err
		}
		return c.JSON(resp)
	}
}
