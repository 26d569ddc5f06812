package auth

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	user "github.com/mnuddindev/cookpulse/internal/models/user"
	"github.com/mnuddindev/cookpulse/pkg/utils"
)

const (
	accessCookie  = "access_token"
	refreshCookie = "refresh_token"
)

func setCookie(c *fiber.Ctx, name, value string, ttl time.Duration) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  time.Now().Add(ttl),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func clearCookies(c *fiber.Ctx) {
	c.ClearCookie(accessCookie, refreshCookie)
}

// IssueSession signs a token pair for u, records the refresh token id and sets both cookies.
func IssueSession(c *fiber.Ctx, opt Options, u *user.User) (string, error) {
	access, claims, err := opt.Tokens.GenerateAccessToken(u.ID.String(), u.RoleID.String())
	if err != nil {
		return "", utils.ErrInternalServerError.WithCause(err)
	}
	refresh, rclaims, err := opt.Tokens.GenerateRefreshToken(u.ID.String(), u.RoleID.String())
	if err != nil {
		return "", utils.ErrInternalServerError.WithCause(err)
	}
	if opt.Rclient != nil {
		if err := opt.Rclient.StoreRefresh(c.UserContext(), u.ID.String(), rclaims.ID, opt.Tokens.RefreshTTL); err != nil {
			return "", err
		}
	}

	setCookie(c, accessCookie, access, opt.Tokens.AccessTTL)
	setCookie(c, refreshCookie, refresh, opt.Tokens.RefreshTTL)
	bindClaims(c, claims)
	return access, nil
}

// RefreshSession redeems the refresh cookie once and issues a new pair.
func RefreshSession(c *fiber.Ctx, opt Options) (*user.User, string, error) {
	claims, err := opt.Tokens.VerifyToken(c.Cookies(refreshCookie), KindRefresh)
	if err != nil {
		return nil, "", err
	}
	if opt.Rclient == nil {
		return nil, "", utils.Unauthorized("refresh_unavailable")
	}
	live, err := opt.Rclient.ConsumeRefresh(c.UserContext(), claims.UserID, claims.ID)
	if err != nil {
		return nil, "", err
	}
	if !live {
		opt.Logger.Warn(c.UserContext()).WithMeta(utils.Map{"user_id": claims.UserID}).Logs("Refresh token reused or revoked")
		clearCookies(c)
		return nil, "", utils.Unauthorized("invalid_token")
	}

	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, "", ErrInvalidToken
	}
	u, err := user.GetUser(c.UserContext(), opt.Rclient, opt.DB, id)
	if err != nil {
		clearCookies(c)
		return nil, "", utils.Unauthorized("user_not_found")
	}
	if !u.IsActive {
		clearCookies(c)
		return nil, "", utils.Forbidden("account_disabled")
	}
	access, err := IssueSession(c, opt, u)
	if err != nil {
		return nil, "", err
	}
	opt.Logger.Info(c.UserContext()).WithMeta(utils.Map{"user_id": claims.UserID}).Logs("Tokens refreshed")
	return u, access, nil
}

// RevokeSession blacklists the current access token, burns the refresh token and clears cookies.
func RevokeSession(c *fiber.Ctx, opt Options) error {
	defer clearCookies(c)
	if opt.Rclient == nil {
		return nil
	}
	if claims, err := opt.Tokens.VerifyToken(accessToken(c), KindAccess); err == nil {
		if err := opt.Rclient.BlacklistToken(c.UserContext(), claims.ID, opt.Tokens.remaining(claims)); err != nil {
			return err
		}
	}
	if claims, err := opt.Tokens.VerifyToken(c.Cookies(refreshCookie), KindRefresh); err == nil {
		if _, err := opt.Rclient.ConsumeRefresh(c.UserContext(), claims.UserID, claims.ID); err != nil {
			return err
		}
	}
	return nil
}
