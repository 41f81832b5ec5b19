package inventory

import (
	"avault-backend/internal/audit"
	"avault-backend/internal/auth"
	"avault-backend/internal/database"
	"avault-backend/internal/httputil"
	"avault-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type CategoryResponse struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	ItemCount int64  `json:"item_count"`
	CreatedAt string `json:"created_at"`
}

type CategoryRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

func toCategoryResponse(cat models.Category, items int64) CategoryResponse {
	return CategoryResponse{
		ID:        cat.ID,
		Name:      cat.Name,
		ItemCount: items,
		CreatedAt: cat.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

// GET /api/categories
func ListCategoriesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		db := database.DB.WithContext(c.UserContext())

		var categories []models.Category
		if err := db.Order("name asc").Find(&categories).Error; err != nil {
			return err
		}

		type tally struct {
			CategoryID uint
			N          int64
		}
		var tallies []tally
		if err := db.Model(&models.Item{}).Select("category_id, COUNT(*) AS n").Group("category_id").Scan(&tallies).Error; err != nil {
			return err
		}
		byCat := make(map[uint]int64, len(tallies))
		for _, t := range tallies {
			byCat[t.CategoryID] = t.N
		}

		res := make([]CategoryResponse, 0, len(categories))
		for _, cat := range categories {
			res = append(res, toCategoryResponse(cat, byCat[cat.ID]))
		}
		return c.JSON(res)
	}
}

// POST /api/categories
func CreateCategoryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CategoryRequest
		if err := httputil.Bind(c, &body); err != nil {
			return err
		}
		uid, uname := auth.CurrentUser(c)

		var cat models.Category
		err := database.DB.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			var err error
			if cat, err = CreateCategory(c.UserContext(), tx, body.Name); err != nil {
				return err
			}
			return audit.WriteLog(c.UserContext(), tx, audit.LogOptions{
				UserID: uid, UserName: uname,
				EntityType: audit.EntityCategory, EntityID: cat.ID,
				Action:      models.AuditActionCreate,
				Description: "created category " + cat.Name,
				After:       cat,
			})
		})
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(toCategoryResponse(cat, 0))
	}
}

// PUT /api/categories/:id
func UpdateCategoryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httputil.ParamID(c, "id")
		if err != nil {
			return err
		}
		var body CategoryRequest
		if err := httputil.Bind(c, &body); err != nil {
			return err
		}
		uid, uname := auth.CurrentUser(c)

		var cat models.Category
		err = database.DB.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			var before models.Category
			if err := tx.First(&before, id).Error; err != nil {
				return models.NotFound(err)
			}
			if cat, err = RenameCategory(c.UserContext(), tx, id, body.Name); err != nil {
				return err
			}
			return audit.WriteLog(c.UserContext(), tx, audit.LogOptions{
				UserID: uid, UserName: uname,
				EntityType: audit.EntityCategory, EntityID: cat.ID,
				Action:      models.AuditActionUpdate,
				Description: "renamed category " + before.Name + " to " + cat.Name,
				Before:      before,
				After:       cat,
			})
		})
		if err != nil {
			return err
		}

		var items int64
		database.DB.WithContext(c.UserContext()).Model(&models.Item{}).Where("category_id = ?", cat.ID).Count(&items)
		return c.JSON(toCategoryResponse(cat, items))
	}
}

// DELETE /api/categories/:id
// Deleting a category deletes its items and their counts.
func DeleteCategoryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httputil.ParamID(c, "id")
		if err != nil {
			return err
		}
		uid, uname := auth.CurrentUser(c)

		err = database.DB.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			var cat models.Category
			if err := tx.First(&cat, id).Error; err != nil {
				return models.NotFound(err)
			}
			itemIDs := tx.Model(&models.Item{}).Select("id").Where("category_id = ?", id)
			if err := tx.Where("item_id IN (?)", itemIDs).Delete(&models.HistoricalCount{}).Error; err != nil {
				return err
			}
			if err := tx.Where("item_id IN (?)", itemIDs).Delete(&models.InventoryCount{}).Error; err != nil {
				return err
			}
			if err := tx.Where("category_id = ?", id).Delete(&models.Item{}).Error; err != nil {
				return err
			}
			if err := tx.Delete(&cat).Error; err != nil {
				return err
			}
			return audit.WriteLog(c.UserContext(), tx, audit.LogOptions{
				UserID: uid, UserName: uname,
				EntityType: audit.EntityCategory, EntityID: cat.ID,
				Action:      models.AuditActionDelete,
				Description: "deleted category " + cat.Name,
				Before:      cat,
			})
		})
		if err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
