package v1

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	recipes "github.com/mnuddindev/cookpulse/internal/models/recipes"
	user "github.com/mnuddindev/cookpulse/internal/models/user"
	"github.com/mnuddindev/cookpulse/pkg/utils"
)

// CreateReview handles POST /recipes/:recipeId/reviews.
func CreateReview(c *fiber.Ctx) error {
	uid, err := currentUser(c)
	if err != nil {
		return utils.SendError(c, err)
	}
	recipeID, err := utils.ParamInt64(c, "recipeId")
	if err != nil {
		return utils.SendError(c, err)
	}
	var req recipes.CreateReviewRequest
	if err := parseBody(c, &req); err != nil {
		return utils.SendError(c, err)
	}

	r, err := recipes.CreateReview(c.UserContext(), DB, recipeID, uid, req.Rating, req.Content)
	if err != nil {
		return utils.SendError(c, err)
	}
	return utils.Success(c).
		WithStatus(fiber.StatusCreated).
		WithMessage("created").
		WithData("review", r).
		Send()
}

// ListReviews handles GET /recipes/:recipeId/reviews?limit=&offset=.
func ListReviews(c *fiber.Ctx) error {
	recipeID, err := utils.ParamInt64(c, "recipeId")
	if err != nil {
		return utils.SendError(c, err)
	}
	list, err := recipes.ListRecipeReviews(c.UserContext(), DB, recipeID, c.QueryInt("limit", 20), c.QueryInt("offset", 0))
	if err != nil {
		return utils.SendError(c, err)
	}
	summary, err := recipes.RecipeRatingSummary(c.UserContext(), DB, recipeID)
	if err != nil {
		return utils.SendError(c, err)
	}
	return utils.Success(c).WithData("reviews", list).WithData("summary", summary).Send()
}

// UpdateReview applies a partial edit by the review's author.
func UpdateReview(c *fiber.Ctx) error {
	uid, err := currentUser(c)
	if err != nil {
		return utils.SendError(c, err)
	}
	id, err := utils.ParamInt64(c, "id")
	if err != nil {
		return utils.SendError(c, err)
	}
	var req recipes.UpdateReviewRequest
	if err := parseBody(c, &req); err != nil {
		return utils.SendError(c, err)
	}

	r, err := recipes.UpdateReview(c.UserContext(), DB, id, uid, req)
	if err != nil {
		return utils.SendError(c, err)
	}
	return utils.Success(c).WithMessage("updated").WithData("review", r).Send()
}

func DeleteReview(c *fiber.Ctx) error {
	uid, err := currentUser(c)
	if err != nil {
		return utils.SendError(c, err)
	}
	id, err := utils.ParamInt64(c, "id")
	if err != nil {
		return utils.SendError(c, err)
	}
	if err := recipes.DeleteReview(c.UserContext(), DB, id, uid, hasPerm(c, user.PermDeleteAnyReview)); err != nil {
		return utils.SendError(c, err)
	}
	return utils.Success(c).WithMessage("deleted").WithData("id", id).Send()
}

// ReviewFeedback handles POST /reviews/:id/feedback with body {is_like}.
func ReviewFeedback(c *fiber.Ctx) error {
	type FeedbackInput struct {
		IsLike *bool `json:"is_like" validate:"required"`
	}
	uid, err := currentUser(c)
	if err != nil {
		return utils.SendError(c, err)
	}
	id, err := utils.ParamInt64(c, "id")
	if err != nil {
		return utils.SendError(c, err)
	}
	var in FeedbackInput
	if err := parseBody(c, &in); err != nil {
		return utils.SendError(c, err)
	}

	res, err := recipes.SubmitFeedback(c.UserContext(), DB, id, uid, *in.IsLike)
	if err != nil {
		return utils.SendError(c, err)
	}
	if Metrics != nil {
		Metrics.Feedback.WithLabelValues(string(res.State)).Inc()
	}
	if res.State == recipes.FeedbackLiked && res.AuthorID != uid {
		notifyReviewLiked(c, res.AuthorID, id)
	}

	return utils.Success(c).
		WithMessage(res.Message).
		WithData("state", res.State).
		WithData("num_likes", res.NumLikes).
		WithData("num_dislikes", res.NumDislikes).
		Send()
}

// notifyReviewLiked runs after the feedback committed; a failure here does not undo the like.
func notifyReviewLiked(c *fiber.Ctx, authorID uuid.UUID, reviewID int64) {
	np, err := user.GetNotificationPreferences(c.UserContext(), DB, authorID)
	if err != nil || !np.NotifyOnReviewLike {
		return
	}
	msg := fmt.Sprintf("Someone liked your review #%d", reviewID)
	if err := user.Notify(c.UserContext(), DB, authorID, user.NotifyReviewLiked, msg); err != nil {
		Logger.Warn(c.UserContext()).WithError(err).WithMeta(utils.Map{"user_id": authorID.String()}).
			Logs("Failed to record review like notification")
	}
}

// GetFeedback reports the caller's reaction to a review.
func GetFeedback(c *fiber.Ctx) error {
	uid, err := currentUser(c)
	if err != nil {
		return utils.SendError(c, err)
	}
	id, err := utils.ParamInt64(c, "id")
	if err != nil {
		return utils.SendError(c, err)
	}
	state, err := recipes.GetFeedbackState(c.UserContext(), DB, id, uid)
	if err != nil {
		return utils.SendError(c, err)
	}
	return utils.Success(c).WithData("review_id", id).WithData("state", state).Send()
}

// RecountFeedback rebuilds a review's counters from its feedback rows. Moderators only.
func RecountFeedback(c *fiber.Ctx) error {
	id, err := utils.ParamInt64(c, "id")
	if err != nil {
		return utils.SendError(c, err)
	}
	r, err := recipes.RecountFeedback(c.UserContext(), DB, id)
	if err != nil {
		return utils.SendError(c, err)
	}
	return utils.Success(c).WithMessage("recounted").WithData("review", r).Send()
}
