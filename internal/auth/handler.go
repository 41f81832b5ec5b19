package auth

import (
	"strings"
	"time"

	"avault-backend/internal/audit"
	"avault-backend/internal/config"
	"avault-backend/internal/database"
	"avault-backend/internal/httputil"
	"avault-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type RegisterAdminRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=100"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type UserResponse struct {
	ID           uint            `json:"id"`
	Name         string          `json:"name"`
	Email        string          `json:"email"`
	Role         models.UserRole `json:"role"`
	IsAuthorized bool            `json:"is_authorized"`
	LastLoginAt  *string         `json:"last_login_at"`
	CreatedAt    string          `json:"created_at"`
}

func ToUserResponse(u models.User) UserResponse {
	r := UserResponse{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		Role:         u.Role,
		IsAuthorized: CanSignIn(&u),
		CreatedAt:    u.CreatedAt.Format("2006-01-02 15:04:05"),
	}
	if u.LastLoginAt != nil {
		s := u.LastLoginAt.Format("2006-01-02 15:04:05")
		r.LastLoginAt = &s
	}
	return r
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(hash), err
}

func NormalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

// POST /api/auth/register-admin
// Only allowed while no admin exists.
func RegisterAdminHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RegisterAdminRequest
		if err := httputil.Bind(c, &body); err != nil {
			return err
		}
		body.Email = NormalizeEmail(body.Email)
		body.Name = strings.TrimSpace(body.Name)

		hash, err := HashPassword(body.Password)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not hash password")
		}
		user := models.User{
			Name:         body.Name,
			Email:        body.Email,
			PasswordHash: hash,
			Role:         models.RoleAdmin,
			IsAuthorized: true,
		}

		err = database.DB.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			var count int64
			if err := tx.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return fiber.NewError(fiber.StatusForbidden, "an admin already exists")
			}
			if err := tx.Create(&user).Error; err != nil {
				return err
			}
			return audit.WriteLog(c.UserContext(), tx, audit.LogOptions{
				UserID:      &user.ID,
				UserName:    user.Name,
				EntityType:  audit.EntityUser,
				EntityID:    user.ID,
				Action:      models.AuditActionCreate,
				Description: "registered first admin " + user.Email,
			})
		})
		if err != nil {
			return err
		}

		return c.Status(fiber.StatusCreated).JSON(ToUserResponse(user))
	}
}

// POST /api/auth/login
func LoginHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body LoginRequest
		if err := httputil.Bind(c, &body); err != nil {
			return err
		}
		email := NormalizeEmail(body.Email)

		var user models.User
		if err := database.DB.WithContext(c.UserContext()).Where("email = ?", email).First(&user).Error; err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "wrong email or password")
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(body.Password)); err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "wrong email or password")
		}
		if !CanSignIn(&user) {
			return fiber.NewError(fiber.StatusForbidden, "account is waiting for admin authorization")
		}

		token, err := GenerateToken(cfg.JWTSecret, &user)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not create token")
		}

		now := time.Now()
		database.DB.WithContext(c.UserContext()).Model(&user).Update("last_login_at", now)
		user.LastLoginAt = &now

		return c.JSON(fiber.Map{
			"token": token,
			"user":  ToUserResponse(user),
		})
	}
}

// GET /api/auth/me
func MeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, _ := CurrentUser(c)
		if id == nil {
			return fiber.NewError(fiber.StatusUnauthorized, "not signed in")
		}
		var user models.User
		if err := database.DB.WithContext(c.UserContext()).First(&user, *id).Error; err != nil {
			return models.NotFound(err)
		}
		return c.JSON(ToUserResponse(user))
	}
}
