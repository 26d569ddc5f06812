package auth

import (
	"github.com/gofiber/fiber/v2"
	user "github.com/mnuddindev/cookpulse/internal/models/user"
	"github.com/mnuddindev/cookpulse/pkg/utils"
)

// HasPerm reports whether the authenticated user's role grants perm.
func HasPerm(c *fiber.Ctx, opt Options, perm string) bool {
	perms, err := user.RolePermissions(c.UserContext(), opt.Rclient, opt.DB, RoleID(c))
	if err != nil {
		opt.Logger.Warn(c.UserContext()).WithError(err).Logs("Failed to load role permissions")
		return false
	}
	return utils.Contains(perms, perm)
}

// CheckPerm admits users holding at least one of perms.
func CheckPerm(opt Options, perms ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, err := UserID(c); err != nil {
			return utils.HandleError(c, err)
		}
		for _, p := range perms {
			if HasPerm(c, opt, p) {
				return c.Next()
			}
		}
		opt.Logger.Warn(c.UserContext()).WithMeta(utils.Map{"user_id": c.Locals("user_id").(string)}).
			WithFields(perms).Logs("Insufficient permissions: need one of %v")
		return utils.HandleError(c, utils.Forbidden("forbidden"))
	}
}
