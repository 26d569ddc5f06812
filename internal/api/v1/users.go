package v1

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/mnuddindev/cookpulse/internal/auth"
	user "github.com/mnuddindev/cookpulse/internal/models/user"
	"github.com/mnuddindev/cookpulse/pkg/utils"
)

const (
	maxLoginAttempts = 5
	loginWindow      = 15 * time.Minute
)

func userView(u *user.User) fiber.Map {
	return fiber.Map{
		"id":       u.ID,
		"username": u.Username,
		"email":    u.Email,
		"name":     u.Profile.Name,
		"avatar":   u.Profile.AvatarURL,
		"points":   u.Points,
	}
}

// Register creates a member account and starts a session for it.
func Register(c *fiber.Ctx) error {
	type UserInput struct {
		AvatarURL       string `json:"avatar_url" validate:"omitempty,url"`
		Name            string `json:"name" validate:"omitempty,max=100"`
		Username        string `json:"username" validate:"required,min=3,max=50,alphanum"`
		Email           string `json:"email" validate:"required,email,max=100"`
		Password        string `json:"password" validate:"required,min=6,eqfield=ConfirmPassword"`
		ConfirmPassword string `json:"confirm_password" validate:"required,min=6"`
	}
	var ui UserInput
	if err := parseBody(c, &ui); err != nil {
		return utils.SendError(c, err)
	}

	ui.Email = strings.ToLower(strings.TrimSpace(ui.Email))

	hashedPass, err := utils.HashPassword(ui.Password)
	if err != nil {
		Logger.Error(c.UserContext()).WithError(err).Logs("Failed to hash password")
		return utils.SendError(c, utils.ErrInternalServerError.WithCause(err))
	}

	u, err := user.NewUser(c.UserContext(), Redis, DB, ui.Username, ui.Email, hashedPass,
		user.WithName(ui.Name), user.WithAvatarURL(ui.AvatarURL))
	if err != nil {
		Logger.Warn(c.UserContext()).WithError(err).WithMeta(utils.Map{"email": ui.Email}).Logs("Failed to create user")
		return utils.SendError(c, err)
	}

	if _, err := auth.IssueSession(c, Auth, u); err != nil {
		Logger.Error(c.UserContext()).WithError(err).Logs("Failed to issue session")
		return utils.SendError(c, err)
	}

	Logger.Info(c.UserContext()).Logs(fmt.Sprintf("User registered successfully: %s (ID: %s)", u.Username, u.ID))
	return utils.Success(c).
		WithStatus(fiber.StatusCreated).
		WithMessage("registered").
		WithData("user", userView(u)).
		Send()
}

// loginAllowed counts an attempt from the caller's IP and reports whether it is under the limit.
func loginAllowed(c *fiber.Ctx) bool {
	if Redis == nil {
		return true
	}
	ipKey := "login:ip:" + c.IP()
	count, err := Redis.Incr(c.UserContext(), ipKey).Result()
	if err != nil {
		Logger.Warn(c.UserContext()).WithError(err).Logs("Failed to count login attempt")
		return true
	}
	if count == 1 {
		Redis.Expire(c.UserContext(), ipKey, loginWindow)
	}
	return count <= maxLoginAttempts
}

// Login checks the credentials and issues a token pair as cookies.
func Login(c *fiber.Ctx) error {
	type LoginRequest struct {
		Email    string `json:"email" validate:"required,email,max=100"`
		Password string `json:"password" validate:"required,min=6,max=100"`
	}

	var lr LoginRequest
	if err := parseBody(c, &lr); err != nil {
		return utils.SendError(c, err)
	}

	if !loginAllowed(c) {
		Logger.Warn(c.UserContext()).WithMeta(utils.Map{"ip": c.IP()}).Logs("Login rate limit exceeded")
		return utils.SendError(c, utils.NewError(fiber.StatusTooManyRequests, "too_many_attempts"))
	}

	lr.Email = strings.ToLower(strings.TrimSpace(lr.Email))
	invalid := utils.Unauthorized("invalid_credentials")

	u, err := user.GetUserBy(c.UserContext(), DB, "email = ?", []interface{}{lr.Email}, "Role")
	if err != nil {
		if utils.IsKind(err, utils.KindNotFound) {
			Logger.Warn(c.UserContext()).WithMeta(utils.Map{"email": lr.Email}).Logs("Login for unknown email")
			return utils.SendError(c, invalid)
		}
		return utils.SendError(c, err)
	}
	if err := utils.ComparePasswords(u.Password, lr.Password); err != nil {
		Logger.Warn(c.UserContext()).WithMeta(utils.Map{"email": lr.Email}).Logs("Invalid password provided")
		return utils.SendError(c, invalid)
	}
	if !u.IsActive {
		Logger.Warn(c.UserContext()).WithMeta(utils.Map{"user_id": u.ID.String()}).Logs("Login attempt on disabled account")
		return utils.SendError(c, utils.Forbidden("account_disabled"))
	}

	access, err := auth.IssueSession(c, Auth, u)
	if err != nil {
		Logger.Error(c.UserContext()).WithError(err).Logs("Failed to issue session")
		return utils.SendError(c, err)
	}
	if Redis != nil {
		Redis.Del(c.UserContext(), "login:ip:"+c.IP())
	}

	Logger.Info(c.UserContext()).WithMeta(utils.Map{"user_id": u.ID.String()}).Logs(fmt.Sprintf("User logged in successfully: %s", u.Username))
	return utils.Success(c).
		WithMessage("logged_in").
		WithData("user", userView(u)).
		WithData("access_token", access).
		Send()
}

// Refresh redeems the refresh cookie for a new token pair.
func Refresh(c *fiber.Ctx) error {
	u, access, err := auth.RefreshSession(c, Auth)
	if err != nil {
		return utils.SendError(c, err)
	}
	return utils.Success(c).
		WithMessage("refreshed").
		WithData("user", userView(u)).
		WithData("access_token", access).
		Send()
}

// Logout revokes the current session.
func Logout(c *fiber.Ctx) error {
	if err := auth.RevokeSession(c, Auth); err != nil {
		Logger.Warn(c.UserContext()).WithError(err).Logs("Failed to revoke session")
		return utils.SendError(c, err)
	}

	c.Set("Cache-Control", "no-store, no-cache, must-revalidate, private")
	c.Set("Pragma", "no-cache")
	return utils.Success(c).WithMessage("logged_out").Send()
}

// Me returns the authenticated user's profile.
func Me(c *fiber.Ctx) error {
	uid, err := currentUser(c)
	if err != nil {
		return utils.SendError(c, err)
	}
	u, err := user.GetUser(c.UserContext(), Redis, DB, uid)
	if err != nil {
		return utils.SendError(c, err)
	}
	return utils.Success(c).WithData("user", u).Send()
}

// UpdateMe edits the profile fields present in the body.
func UpdateMe(c *fiber.Ctx) error {
	uid, err := currentUser(c)
	if err != nil {
		return utils.SendError(c, err)
	}
	var req user.UpdateProfileRequest
	if err := parseBody(c, &req); err != nil {
		return utils.SendError(c, err)
	}

	u, err := user.UpdateUser(c.UserContext(), Redis, DB, uid, req.Options()...)
	if err != nil {
		return utils.SendError(c, err)
	}
	if req.EmailOnWins != nil {
		np, err := user.GetNotificationPreferences(c.UserContext(), DB, uid)
		if err != nil {
			return utils.SendError(c, err)
		}
		np.EmailOnChallenge = *req.EmailOnWins
		if err := user.SaveNotificationPreferences(c.UserContext(), DB, np); err != nil {
			return utils.SendError(c, err)
		}
	}
	return utils.Success(c).WithMessage("updated").WithData("user", u).Send()
}

// ListNotifications returns the caller's notifications. ?unread=true keeps unread ones.
func ListNotifications(c *fiber.Ctx) error {
	uid, err := currentUser(c)
	if err != nil {
		return utils.SendError(c, err)
	}
	list, err := user.ListNotifications(c.UserContext(), DB, uid, c.QueryBool("unread"), c.QueryInt("limit", 50))
	if err != nil {
		return utils.SendError(c, err)
	}
	return utils.Success(c).WithData("notifications", list).Send()
}

// MarkNotificationsRead flags every notification of the caller as read.
func MarkNotificationsRead(c *fiber.Ctx) error {
	uid, err := currentUser(c)
	if err != nil {
		return utils.SendError(c, err)
	}
	n, err := user.MarkNotificationsRead(c.UserContext(), DB, uid)
	if err != nil {
		return utils.SendError(c, err)
	}
	return utils.Success(c).WithMessage("marked_read").WithData("updated", n).Send()
}

func GetPreferences(c *fiber.Ctx) error {
	uid, err := currentUser(c)
	if err != nil {
		return utils.SendError(c, err)
	}
	np, err := user.GetNotificationPreferences(c.UserContext(), DB, uid)
	if err != nil {
		return utils.SendError(c, err)
	}
	return utils.Success(c).WithData("preferences", np).Send()
}

// UpdatePreferences replaces the caller's notification preferences.
func UpdatePreferences(c *fiber.Ctx) error {
	type PreferencesRequest struct {
		EmailOnChallenge   *bool `json:"email_on_challenge"`
		NotifyOnReviewLike *bool `json:"notify_on_review_like"`
	}
	uid, err := currentUser(c)
	if err != nil {
		return utils.SendError(c, err)
	}
	var req PreferencesRequest
	if err := parseBody(c, &req); err != nil {
		return utils.SendError(c, err)
	}

	np, err := user.GetNotificationPreferences(c.UserContext(), DB, uid)
	if err != nil {
		return utils.SendError(c, err)
	}
	if req.EmailOnChallenge != nil {
		np.EmailOnChallenge = *req.EmailOnChallenge
	}
	if req.NotifyOnReviewLike != nil {
		np.NotifyOnReviewLike = *req.NotifyOnReviewLike
	}
	if err := user.SaveNotificationPreferences(c.UserContext(), DB, np); err != nil {
		return utils.SendError(c, err)
	}
	return utils.Success(c).WithMessage("updated").WithData("preferences", np).Send()
}
