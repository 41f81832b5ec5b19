package admin

import (
	"strings"

	"avault-backend/internal/audit"
	"avault-backend/internal/auth"
	"avault-backend/internal/database"
	"avault-backend/internal/httputil"
	"avault-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type CreateUserRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=100"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role" validate:"omitempty,oneof=admin staff"`
	// Authorized grants a staff account access straight away.
	Authorized bool `json:"authorized"`
}

// GET /api/admin/users
func ListUsersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.WithContext(c.UserContext())
		switch c.Query("status") {
		case "pending":
			dbq = dbq.Where("role = ? AND is_authorized = ?", models.RoleStaff, false)
		case "authorized":
			dbq = dbq.Where("role = ? OR is_authorized = ?", models.RoleAdmin, true)
		}

		var users []models.User
		if err := dbq.Order("created_at DESC").Find(&users).Error; err != nil {
			return err
		}
		res := make([]auth.UserResponse, 0, len(users))
		for _, u := range users {
			res = append(res, auth.ToUserResponse(u))
		}
		return c.JSON(res)
	}
}

// POST /api/admin/users
func CreateUserHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateUserRequest
		if err := httputil.Bind(c, &body); err != nil {
			return err
		}
		uid, uname := auth.CurrentUser(c)

		hash, err := auth.HashPassword(body.Password)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not hash password")
		}
		user := models.User{
			Name:         strings.TrimSpace(body.Name),
			Email:        auth.NormalizeEmail(body.Email),
			PasswordHash: hash,
			Role:         models.RoleStaff,
			IsAuthorized: body.Authorized,
		}
		if body.Role == string(models.RoleAdmin) {
			user.Role = models.RoleAdmin
			user.IsAuthorized = true
		}

		err = database.DB.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			var n int64
			if err := tx.Model(&models.User{}).Where("email = ?", user.Email).Count(&n).Error; err != nil {
				return err
			}
			if n > 0 {
				return fiber.NewError(fiber.StatusConflict, "email is already registered")
			}
			if err := tx.Create(&user).Error; err != nil {
				return err
			}
			return audit.WriteLog(c.UserContext(), tx, audit.LogOptions{
				UserID: uid, UserName: uname,
				EntityType: audit.EntityUser, EntityID: user.ID,
				Action:      models.AuditActionCreate,
				Description: "created " + string(user.Role) + " account " + user.Email,
				After:       auth.ToUserResponse(user),
			})
		})
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(auth.ToUserResponse(user))
	}
}

// POST /api/admin/users/:id/authorize
func AuthorizeUserHandler() fiber.Handler {
	return setAuthorized(true)
}

// POST /api/admin/users/:id/revoke
func RevokeUserHandler() fiber.Handler {
	return setAuthorized(false)
}

func setAuthorized(grant bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httputil.ParamID(c, "id")
		if err != nil {
			return err
		}
		uid, uname := auth.CurrentUser(c)

		var user models.User
		err = database.DB.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			if err := tx.First(&user, id).Error; err != nil {
				return models.NotFound(err)
			}
			if user.Role == models.RoleAdmin {
				return fiber.NewError(fiber.StatusBadRequest, "admin accounts are always authorized")
			}
			before := auth.ToUserResponse(user)
			if err := tx.Model(&user).Update("is_authorized", grant).Error; err != nil {
				return err
			}
			user.IsAuthorized = grant

			desc := "authorized " + user.Email
			if !grant {
				desc = "revoked " + user.Email
			}
			return audit.WriteLog(c.UserContext(), tx, audit.LogOptions{
				UserID: uid, UserName: uname,
				EntityType: audit.EntityUser, EntityID: user.ID,
				Action:      models.AuditActionUpdate,
				Description: desc,
				Before:      before,
				After:       auth.ToUserResponse(user),
			})
		})
		if err != nil {
			return err
		}
		return c.JSON(auth.ToUserResponse(user))
	}
}

// DELETE /api/admin/users/:id
func DeleteUserHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httputil.ParamID(c, "id")
		if err != nil {
			return err
		}
		uid, uname := auth.CurrentUser(c)
		if uid != nil && *uid == id {
			return fiber.NewError(fiber.StatusBadRequest, "you cannot delete your own account")
		}

		err = database.DB.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			var user models.User
			if err := tx.First(&user, id).Error; err != nil {
				return models.NotFound(err)
			}
			if user.Role == models.RoleAdmin {
				var admins int64
				if err := tx.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&admins).Error; err != nil {
					return err
				}
				if admins <= 1 {
					return fiber.NewError(fiber.StatusBadRequest, "the last admin cannot be deleted")
				}
			}
			if err := tx.Delete(&user).Error; err != nil {
				return err
			}
			return audit.WriteLog(c.UserContext(), tx, audit.LogOptions{
				UserID: uid, UserName: uname,
				EntityType: audit.EntityUser, EntityID: user.ID,
				Action:      models.AuditActionDelete,
				Description: "deleted account " + user.Email,
				Before:      auth.ToUserResponse(user),
			})
		})
		if err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
