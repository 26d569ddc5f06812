package auth

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/mnuddindev/cookpulse/pkg/logger"
	storage "github.com/mnuddindev/cookpulse/pkg/redis"
	"github.com/mnuddindev/cookpulse/pkg/utils"
	"gorm.io/gorm"
)

type Options struct {
	DB      *gorm.DB
	Rclient *storage.RedisClient
	Logger  *logger.Logger
	Tokens  *TokenManager
}

// UserID returns the authenticated user's id stored by RequireAuth.
func UserID(c *fiber.Ctx) (uuid.UUID, error) {
	s, _ := c.Locals("user_id").(string)
	id, err := uuid.Parse(s)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, utils.Unauthorized("unauthorized")
	}
	return id, nil
}

// RoleID returns the authenticated user's role id.
func RoleID(c *fiber.Ctx) uuid.UUID {
	s, _ := c.Locals("role_id").(string)
	id, _ := uuid.Parse(s)
	return id
}

// bindClaims exposes the caller to handlers through locals and to log entries
// through the user context.
func bindClaims(c *fiber.Ctx, claims *Claims) {
	c.Locals("user_id", claims.UserID)
	c.Locals("role_id", claims.RoleID)
	c.Locals("jti", claims.ID)
	c.SetUserContext(context.WithValue(c.UserContext(), "user_id", claims.UserID))
}
