package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/mnuddindev/cookpulse/pkg/utils"
)

func accessToken(c *fiber.Ctx) string {
	if h := c.Get(fiber.HeaderAuthorization); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return c.Cookies(accessCookie)
}

// RequireAuth admits requests carrying a valid, non-revoked access token. An expired
// access token is replaced transparently when the refresh cookie is still good.
func RequireAuth(opt Options) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := opt.Tokens.VerifyToken(accessToken(c), KindAccess)
		if err == ErrExpiredToken && c.Cookies(refreshCookie) != "" {
			opt.Logger.Debug(c.UserContext()).Logs("Access token expired, attempting refresh")
			if _, _, err := RefreshSession(c, opt); err != nil {
				return utils.HandleError(c, err)
			}
			return c.Next()
		}
		if err != nil {
			return utils.HandleError(c, err)
		}

		if opt.Rclient != nil {
			revoked, err := opt.Rclient.IsBlacklisted(c.UserContext(), claims.ID)
			if err != nil {
				return utils.HandleError(c, err)
			}
			if revoked {
				opt.Logger.Warn(c.UserContext()).WithMeta(utils.Map{"user_id": claims.UserID}).Logs("Attempted use of revoked access token")
				return utils.HandleError(c, utils.Unauthorized("token_revoked"))
			}
		}

		bindClaims(c, claims)
		return c.Next()
	}
}
