package auth

import (
	"strings"

	"avault-backend/internal/config"
	"avault-backend/internal/database"
	"avault-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

const (
	CtxUserIDKey   = "user_id"
	CtxUserRoleKey = "user_role"
	CtxUserNameKey = "user_name"
)

// JWTMiddleware verifies the bearer token and reloads the user, so revoked
// or deleted accounts lose access before their token expires.
func JWTMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing Authorization header")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			return fiber.NewError(fiber.StatusUnauthorized, "Authorization must be 'Bearer <token>'")
		}

		claims, err := ParseToken(cfg.JWTSecret, parts[1])
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid or expired token")
		}

		var user models.User
		if err := database.DB.WithContext(c.UserContext()).First(&user, claims.UserID).Error; err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "user no longer exists")
		}
		if !CanSignIn(&user) {
			return fiber.NewError(fiber.StatusForbidden, "account is waiting for admin authorization")
		}

		c.Locals(CtxUserIDKey, user.ID)
		c.Locals(CtxUserRoleKey, user.Role)
		c.Locals(CtxUserNameKey, user.Name)

		return c.Next()
	}
}

func RequireRole(allowedRoles ...models.UserRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, ok := c.Locals(CtxUserRoleKey).(models.UserRole)
		if !ok {
			return fiber.NewError(fiber.StatusForbidden, "role unavailable")
		}

		for _, r := range allowedRoles {
			if r == role {
				return c.Next()
			}
		}
		return fiber.NewError(fiber.StatusForbidden, "insufficient permissions")
	}
}

// CanSignIn: admins always, staff once authorized.
func CanSignIn(u *models.User) bool {
	return u.Role == models.RoleAdmin || u.IsAuthorized
}

// CurrentUser returns the authenticated user's id and name.
func CurrentUser(c *fiber.Ctx) (*uint, string) {
	id, ok := c.Locals(CtxUserIDKey).(uint)
	if !ok {
		return nil, ""
	}
	name, _ := c.Locals(CtxUserNameKey).(string)
	return &id, name
}
