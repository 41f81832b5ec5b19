package inventory

import (
	"strings"

	"avault-backend/internal/audit"
	"avault-backend/internal/auth"
	"avault-backend/internal/database"
	"avault-backend/internal/httputil"
	"avault-backend/internal/ledger"
	"avault-backend/internal/logging"
	"avault-backend/internal/models"
	"avault-backend/internal/report"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type ItemResponse struct {
	ID               uint   `json:"id"`
	Name             string `json:"name"`
	CategoryID       uint   `json:"category_id"`
	Category         string `json:"category"`
	Location         string `json:"location"`
	Condition        string `json:"condition"`
	SerialFrequency  string `json:"serial_frequency"`
	Notes            string `json:"notes"`
	ExpectedQuantity int    `json:"expected_quantity"`
	CreatedAt        string `json:"created_at"`
}

type ItemRequest struct {
	Name            string `json:"name" validate:"required,max=200"`
	CategoryID      uint   `json:"category_id" validate:"required"`
	Location        string `json:"location" validate:"max=200"`
	Condition       string `json:"condition" validate:"max=100"`
	SerialFrequency string `json:"serial_frequency" validate:"max=100"`
	Notes           string `json:"notes"`
}

func toItemResponse(it models.Item, expected int) ItemResponse {
	return ItemResponse{
		ID:               it.ID,
		Name:             it.Name,
		CategoryID:       it.CategoryID,
		Category:         it.Category.Name,
		Location:         it.Location,
		Condition:        it.Condition,
		SerialFrequency:  it.SerialFrequency,
		Notes:            it.Notes,
		ExpectedQuantity: expected,
		CreatedAt:        it.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

// GET /api/items?category_id=1&q=mic
func ListItemsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		dbq := database.DB.WithContext(ctx).Preload("Category").Joins("JOIN categories ON categories.id = items.category_id")

		if cid := c.QueryInt("category_id", 0); cid > 0 {
			dbq = dbq.Where("items.category_id = ?", cid)
		}
		if q := strings.TrimSpace(c.Query("q")); q != "" {
			dbq = dbq.Where("LOWER(items.name) LIKE ?", "%"+strings.ToLower(q)+"%")
		}

		var items []models.Item
		if err := dbq.Order("categories.name asc, items.name asc").Find(&items).Error; err != nil {
			return err
		}

		expected, err := ledger.New(database.DB).Expected(ctx, ledger.ExpectedOptions{})
		if err != nil {
			return err
		}

		res := make([]ItemResponse, 0, len(items))
		for _, it := range items {
			res = append(res, toItemResponse(it, expected[it.ID]))
		}
		return c.JSON(res)
	}
}

// GET /api/items/:id
func GetItemHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httputil.ParamID(c, "id")
		if err != nil {
			return err
		}
		var it models.Item
		if err := database.DB.WithContext(c.UserContext()).Preload("Category").First(&it, id).Error; err != nil {
			return models.NotFound(err)
		}
		exp, err := ledger.New(database.DB).ExpectedFor(c.UserContext(), it.ID, ledger.ExpectedOptions{})
		if err != nil {
			return err
		}
		return c.JSON(toItemResponse(it, exp))
	}
}

// POST /api/items
func CreateItemHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body ItemRequest
		if err := httputil.Bind(c, &body); err != nil {
			return err
		}
		uid, uname := auth.CurrentUser(c)

		it := models.Item{
			Name:            strings.TrimSpace(body.Name),
			CategoryID:      body.CategoryID,
			Location:        strings.TrimSpace(body.Location),
			Condition:       strings.TrimSpace(body.Condition),
			SerialFrequency: strings.TrimSpace(body.SerialFrequency),
			Notes:           body.Notes,
		}
		err := database.DB.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			if err := tx.First(&it.Category, body.CategoryID).Error; err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "unknown category_id")
			}
			if err := tx.Omit("Category").Create(&it).Error; err != nil {
				return err
			}
			return audit.WriteLog(c.UserContext(), tx, audit.LogOptions{
				UserID: uid, UserName: uname,
				EntityType: audit.EntityItem, EntityID: it.ID,
				Action:      models.AuditActionCreate,
				Description: "created item " + it.Name + " in " + it.Category.Name,
				After:       it,
			})
		})
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(toItemResponse(it, 0))
	}
}

// PUT /api/items/:id
func UpdateItemHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httputil.ParamID(c, "id")
		if err != nil {
			return err
		}
		var body ItemRequest
		if err := httputil.Bind(c, &body); err != nil {
			return err
		}
		uid, uname := auth.CurrentUser(c)

		var it models.Item
		err = database.DB.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			if err := tx.First(&it, id).Error; err != nil {
				return models.NotFound(err)
			}
			before := it

			var cat models.Category
			if err := tx.First(&cat, body.CategoryID).Error; err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "unknown category_id")
			}

			err := tx.Model(&it).Updates(map[string]interface{}{
				"name":             strings.TrimSpace(body.Name),
				"category_id":      cat.ID,
				"location":         strings.TrimSpace(body.Location),
				"condition":        strings.TrimSpace(body.Condition),
				"serial_frequency": strings.TrimSpace(body.SerialFrequency),
				"notes":            body.Notes,
			}).Error
			if err != nil {
				return err
			}
			if err := tx.Preload("Category").First(&it, id).Error; err != nil {
				return err
			}
			return audit.WriteLog(c.UserContext(), tx, audit.LogOptions{
				UserID: uid, UserName: uname,
				EntityType: audit.EntityItem, EntityID: it.ID,
				Action:      models.AuditActionUpdate,
				Description: "updated item " + it.Name,
				Before:      before,
				After:       it,
			})
		})
		if err != nil {
			return err
		}

		exp, err := ledger.New(database.DB).ExpectedFor(c.UserContext(), it.ID, ledger.ExpectedOptions{})
		if err != nil {
			return err
		}
		return c.JSON(toItemResponse(it, exp))
	}
}

// DELETE /api/items/:id
func DeleteItemHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httputil.ParamID(c, "id")
		if err != nil {
			return err
		}
		uid, uname := auth.CurrentUser(c)

		err = database.DB.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			var it models.Item
			if err := tx.First(&it, id).Error; err != nil {
				return models.NotFound(err)
			}
			if err := tx.Where("item_id = ?", id).Delete(&models.HistoricalCount{}).Error; err != nil {
				return err
			}
			if err := tx.Where("item_id = ?", id).Delete(&models.InventoryCount{}).Error; err != nil {
				return err
			}
			if err := tx.Delete(&it).Error; err != nil {
				return err
			}
			return audit.WriteLog(c.UserContext(), tx, audit.LogOptions{
				UserID: uid, UserName: uname,
				EntityType: audit.EntityItem, EntityID: it.ID,
				Action:      models.AuditActionDelete,
				Description: "deleted item " + it.Name,
				Before:      it,
			})
		})
		if err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// GET /api/items/:id/history
func ItemHistoryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httputil.ParamID(c, "id")
		if err != nil {
			return err
		}
		var it models.Item
		if err := database.DB.WithContext(c.UserContext()).First(&it, id).Error; err != nil {
			return models.NotFound(err)
		}
		hist, err := ledger.New(database.DB).History(c.UserContext(), id)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"item_id": it.ID,
			"item":    it.Name,
			"history": hist,
		})
	}
}

// GET /api/items/:id/trend?terms=5
func ItemTrendHandler(defaultTerms int) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httputil.ParamID(c, "id")
		if err != nil {
			return err
		}
		n, err := httputil.QueryInt(c, "terms", defaultTerms)
		if err != nil {
			return err
		}
		if n < 2 {
			return fiber.NewError(fiber.StatusBadRequest, "terms must be at least 2")
		}
		tr, err := report.New(database.DB, logging.GetLogger()).Trend(c.UserContext(), id, n)
		if err != nil {
			return err
		}
		return c.JSON(tr)
	}
}
