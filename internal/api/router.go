package routes

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	v1 "github.com/mnuddindev/cookpulse/internal/api/v1"
	"github.com/mnuddindev/cookpulse/internal/auth"
	"github.com/mnuddindev/cookpulse/internal/config"
	user "github.com/mnuddindev/cookpulse/internal/models/user"
	"github.com/mnuddindev/cookpulse/pkg/logger"
)

const requestsPerMinute = 120

func NewRoutes(ctx context.Context, app *fiber.App, cfg *config.Config, deps v1.Deps) {
	v1.Setup(deps)
	log := deps.Logger

	if deps.Metrics != nil {
		app.Use(deps.Metrics.Middleware())
		app.Get("/metrics", deps.Metrics.Handler())
	}
	app.Use(
		logger.SetupLogger(log),
		recover.New(),
		cors.New(
			cors.Config{
				AllowOrigins:     cfg.CORSOrigins,
				AllowCredentials: cfg.CORSOrigins != "*",
				AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
			},
		),
		compress.New(
			compress.Config{
				Level: compress.LevelBestSpeed,
			},
		),
		limiter.New(
			limiter.Config{
				Expiration: 1 * time.Minute,
				Max:        requestsPerMinute,
				KeyGenerator: func(c *fiber.Ctx) string {
					return c.IP()
				},
			},
		),
	)
	app.Use(log.Middleware())

	Register(app.Group("/api/v1"), v1.Auth)

	go func() {
		<-ctx.Done()
		if deps.Redis != nil {
			deps.Redis.Close(log)
		}
		log.Close()
	}()
}

// Register mounts the v1 handlers on r.
func Register(r fiber.Router, opt auth.Options) {
	r.Post("/register", v1.Register)
	r.Post("/login", v1.Login)
	r.Post("/refresh", v1.Refresh)
	r.Get("/leaderboard", v1.Leaderboard)

	authed := r.Group("", auth.RequireAuth(opt))
	authed.Post("/logout", v1.Logout)
	authed.Get("/me", v1.Me)
	authed.Put("/me", v1.UpdateMe)
	authed.Get("/me/recipes", v1.ListMyRecipes)
	authed.Get("/notifications", v1.ListNotifications)
	authed.Post("/notifications/read", v1.MarkNotificationsRead)
	authed.Get("/preferences", v1.GetPreferences)
	authed.Put("/preferences", v1.UpdatePreferences)

	col := authed.Group("/collections")
	col.Post("/", v1.CreateCollection)
	col.Get("/", v1.ListCollections)
	col.Get("/by-name/:name", v1.GetCollectionByName)
	col.Get("/:collectionId", v1.GetCollection)
	col.Get("/:collectionId/recipes", v1.ListCollectionRecipes)
	col.Post("/:collectionId/recipes/:recipeId", v1.AddToCollection)
	col.Delete("/:collectionId/recipes/:recipeId", v1.RemoveFromCollection)
	col.Delete("/:collectionId", v1.DeleteCollection)

	authed.Post("/bookmarks/:recipeId", v1.Bookmark)
	authed.Delete("/bookmarks/:recipeId", v1.Unbookmark)

	rec := authed.Group("/recipes")
	rec.Post("/", v1.CreateRecipe)
	rec.Get("/search", v1.SearchRecipes)
	rec.Get("/slug/:slug", v1.GetRecipeBySlug)
	rec.Get("/:id", v1.GetRecipe)
	rec.Post("/:recipeId/reviews", v1.CreateReview)
	rec.Get("/:recipeId/reviews", v1.ListReviews)
	rec.Post("/:recipeId/steps/:step/comments", v1.AddStepComment)
	rec.Get("/:recipeId/steps/:step/comments", v1.ListStepComments)
	authed.Delete("/comments/:commentId", v1.DeleteStepComment)

	rev := authed.Group("/reviews")
	rev.Put("/:id", v1.UpdateReview)
	rev.Delete("/:id", v1.DeleteReview)
	rev.Post("/:id/feedback", v1.ReviewFeedback)
	rev.Get("/:id/feedback", v1.GetFeedback)
	rev.Post("/:id/recount", auth.CheckPerm(opt, user.PermDeleteAnyReview), v1.RecountFeedback)

	ch := authed.Group("/challenges")
	ch.Post("/", auth.CheckPerm(opt, user.PermManageChallenges), v1.CreateChallenge)
	ch.Get("/", v1.ListChallenges)
	ch.Get("/:id", v1.GetChallenge)
	ch.Post("/:id/join", v1.JoinChallenge)
	ch.Post("/:id/complete", v1.CompleteChallenge)
	ch.Post("/:id/like", v1.LikeChallenge)
	ch.Get("/:id/stats", v1.ChallengeStats)

	cal := authed.Group("/calendar")
	cal.Post("/events", v1.AddEvent)
	cal.Get("/events", v1.ListEvents)
	cal.Put("/events/:date/:id", v1.EditEvent)
	cal.Delete("/events/:date/:id", v1.DeleteEvent)
	cal.Delete("/series/:seriesId", v1.DeleteSeries)
	cal.Get("/export.ics", v1.ExportCalendar)
}
