package v1

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/mnuddindev/cookpulse/internal/auth"
	"github.com/mnuddindev/cookpulse/internal/calendar"
	"github.com/mnuddindev/cookpulse/internal/metrics"
	"github.com/mnuddindev/cookpulse/internal/recipeapi"
	"github.com/mnuddindev/cookpulse/pkg/logger"
	storage "github.com/mnuddindev/cookpulse/pkg/redis"
	"github.com/mnuddindev/cookpulse/pkg/utils"
	"gorm.io/gorm"
)

var (
	DB       *gorm.DB
	Redis    *storage.RedisClient
	Logger   *logger.Logger
	EmailCfg = utils.EmailConfig{
		SMTPHost:     "",
		SMTPPort:     1025,
		SMTPUsername: "",
		SMTPPassword: "",
		AppURL:       "http://localhost:8080",
		FromEmail:    "no-reply@cookpulse.local",
	}
	Validator = utils.NewValidator()

	Auth      auth.Options
	Calendar  *calendar.Scheduler
	RecipeAPI *recipeapi.Client
	Metrics   *metrics.Metrics

	// Now is the clock used for challenge windows.
	Now = time.Now
)

// Deps bundles what the handlers need. Setup copies it into the package.
type Deps struct {
	DB        *gorm.DB
	Redis     *storage.RedisClient
	Logger    *logger.Logger
	Email     utils.EmailConfig
	Tokens    *auth.TokenManager
	Calendar  *calendar.Scheduler
	RecipeAPI *recipeapi.Client
	Metrics   *metrics.Metrics
}

func Setup(d Deps) {
	DB, Redis, Logger = d.DB, d.Redis, d.Logger
	EmailCfg = d.Email
	Calendar, RecipeAPI, Metrics = d.Calendar, d.RecipeAPI, d.Metrics
	Auth = auth.Options{DB: d.DB, Rclient: d.Redis, Logger: d.Logger, Tokens: d.Tokens}
}

// parseBody strictly decodes the request body into out and validates it.
func parseBody(c *fiber.Ctx, out interface{}) error {
	if err := utils.StrictBodyParser(c, out); err != nil {
		Logger.Warn(c.UserContext()).WithError(err).Logs("Failed to parse request body")
		return utils.Validation("invalid_request_body", err.Error())
	}
	if err := Validator.Check(out); err != nil {
		Logger.Warn(c.UserContext()).WithError(err).Logs("Validation failed")
		return err
	}
	return nil
}

// currentUser returns the authenticated user id.
func currentUser(c *fiber.Ctx) (uuid.UUID, error) {
	return auth.UserID(c)
}

func hasPerm(c *fiber.Ctx, perm string) bool {
	return auth.HasPerm(c, Auth, perm)
}
