package v1

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	recipes "github.com/mnuddindev/cookpulse/internal/models/recipes"
	user "github.com/mnuddindev/cookpulse/internal/models/user"
	"github.com/mnuddindev/cookpulse/internal/recipeapi"
	"github.com/mnuddindev/cookpulse/pkg/utils"
)

const (
	originLocal    = "local"
	originExternal = "external"
)

func localCard(r recipes.Recipe) recipeapi.Recipe {
	return recipeapi.Recipe{
		ID:             r.ID,
		Title:          r.Title,
		Image:          r.ImageURL,
		Summary:        r.Summary,
		ReadyInMinutes: r.ReadyInMinutes,
		Servings:       r.Servings,
		Origin:         originLocal,
	}
}

// resolveRecipes turns recipe ids into cards. Local recipes win over external ones
// with the same id; the order of ids is kept.
func resolveRecipes(c *fiber.Ctx, ids []int64) ([]recipeapi.Recipe, error) {
	local, err := recipes.RecipesByIDs(c.UserContext(), DB, ids)
	if err != nil {
		return nil, err
	}

	var missing []int64
	for _, id := range ids {
		if _, ok := local[id]; !ok {
			missing = append(missing, id)
		}
	}
	external := map[int64]recipeapi.Recipe{}
	if len(missing) > 0 && RecipeAPI != nil {
		found, err := RecipeAPI.GetRecipes(c.UserContext(), missing)
		if err != nil {
			return nil, err
		}
		for _, r := range found {
			r.Origin = originExternal
			external[r.ID] = r
		}
	}

	out := make([]recipeapi.Recipe, 0, len(ids))
	for _, id := range ids {
		if r, ok := local[id]; ok {
			out = append(out, localCard(r))
		} else if r, ok := external[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

// CreateRecipe handles POST /recipes.
func CreateRecipe(c *fiber.Ctx) error {
	uid, err := currentUser(c)
	if err != nil {
		return utils.SendError(c, err)
	}
	var req recipes.CreateRecipeRequest
	if err := parseBody(c, &req); err != nil {
		return utils.SendError(c, err)
	}
	r, err := recipes.CreateRecipe(c.UserContext(), DB, uid, req)
	if err != nil {
		return utils.SendError(c, err)
	}
	Logger.Info(c.UserContext()).WithMeta(utils.Map{"slug": r.Slug}).Logs("Recipe created")
	return utils.Success(c).
		WithStatus(fiber.StatusCreated).
		WithMessage("created").
		WithData("recipe", r).
		Send()
}

// GetRecipe serves a local recipe, or the external record when no local one has the id.
func GetRecipe(c *fiber.Ctx) error {
	id, err := utils.ParamInt64(c, "id")
	if err != nil {
		return utils.SendError(c, err)
	}
	r, err := recipes.GetRecipe(c.UserContext(), DB, id)
	if err == nil {
		summary, err := recipes.RecipeRatingSummary(c.UserContext(), DB, id)
		if err != nil {
			return utils.SendError(c, err)
		}
		return utils.Success(c).
			WithData("recipe", r).
			WithData("origin", originLocal).
			WithData("rating", summary).
			Send()
	}
	if !utils.IsKind(err, utils.KindNotFound) || RecipeAPI == nil {
		return utils.SendError(c, err)
	}

	ext, err := RecipeAPI.GetRecipe(c.UserContext(), id)
	if err != nil {
		return utils.SendError(c, err)
	}
	ext.Origin = originExternal
	return utils.Success(c).
		WithData("recipe", ext).
		WithData("origin", originExternal).
		Send()
}

// GetRecipeBySlug handles GET /recipes/slug/:slug.
func GetRecipeBySlug(c *fiber.Ctx) error {
	r, err := recipes.GetRecipeBySlug(c.UserContext(), DB, c.Params("slug"))
	if err != nil {
		return utils.SendError(c, err)
	}
	return utils.Success(c).WithData("recipe", r).Send()
}

// ListMyRecipes returns the caller's own recipes.
func ListMyRecipes(c *fiber.Ctx) error {
	uid, err := currentUser(c)
	if err != nil {
		return utils.SendError(c, err)
	}
	list, err := recipes.ListUserRecipes(c.UserContext(), DB, uid)
	if err != nil {
		return utils.SendError(c, err)
	}
	return utils.Success(c).WithData("recipes", list).Send()
}

// SearchRecipes merges local title matches with the external search and ranks the
// union by fuzzy title match. An unavailable external API degrades to local results.
func SearchRecipes(c *fiber.Ctx) error {
	q := c.Query("q")
	limit := c.QueryInt("limit", 20)

	local, err := recipes.SearchLocalRecipes(c.UserContext(), DB, q, limit)
	if err != nil {
		return utils.SendError(c, err)
	}
	merged := make([]recipeapi.Recipe, 0, len(local))
	for _, r := range local {
		merged = append(merged, localCard(r))
	}

	partial := false
	if RecipeAPI != nil {
		ext, err := RecipeAPI.Search(c.UserContext(), q, limit)
		switch {
		case err == nil:
			for _, r := range ext {
				r.Origin = originExternal
				merged = append(merged, r)
			}
		case utils.IsKind(err, utils.KindTransient), errors.Is(err, recipeapi.ErrNotFound):
			Logger.Warn(c.UserContext()).WithError(err).Logs("External recipe search failed, serving local results")
			partial = true
		default:
			return utils.SendError(c, err)
		}
	}

	ranked := recipeapi.RankByTitle(q, merged)
	if len(ranked) > limit && limit > 0 {
		ranked = ranked[:limit]
	}
	return utils.Success(c).
		WithData("query", q).
		WithData("recipes", ranked).
		WithData("partial", partial).
		Send()
}

func stepParams(c *fiber.Ctx) (int64, int, error) {
	recipeID, err := utils.ParamInt64(c, "recipeId")
	if err != nil {
		return 0, 0, err
	}
	step, err := strconv.Atoi(c.Params("step"))
	if err != nil || step < 0 {
		return 0, 0, utils.Validation("invalid_step", "step must be a non-negative integer")
	}
	return recipeID, step, nil
}

// AddStepComment handles POST /recipes/:recipeId/steps/:step/comments.
func AddStepComment(c *fiber.Ctx) error {
	uid, err := currentUser(c)
	if err != nil {
		return utils.SendError(c, err)
	}
	recipeID, step, err := stepParams(c)
	if err != nil {
		return utils.SendError(c, err)
	}
	var req recipes.StepCommentRequest
	if err := parseBody(c, &req); err != nil {
		return utils.SendError(c, err)
	}
	cm, err := recipes.AddStepComment(c.UserContext(), DB, recipeID, step, uid, req.Content)
	if err != nil {
		return utils.SendError(c, err)
	}
	return utils.Success(c).
		WithStatus(fiber.StatusCreated).
		WithMessage("created").
		WithData("comment", cm).
		Send()
}

func ListStepComments(c *fiber.Ctx) error {
	recipeID, step, err := stepParams(c)
	if err != nil {
		return utils.SendError(c, err)
	}
	list, err := recipes.ListStepComments(c.UserContext(), DB, recipeID, step)
	if err != nil {
		return utils.SendError(c, err)
	}
	return utils.Success(c).WithData("comments", list).Send()
}

// DeleteStepComment removes the caller's comment; moderators may remove any.
func DeleteStepComment(c *fiber.Ctx) error {
	uid, err := currentUser(c)
	if err != nil {
		return utils.SendError(c, err)
	}
	id, err := utils.ParamInt64(c, "commentId")
	if err != nil {
		return utils.SendError(c, err)
	}
	moderator := hasPerm(c, user.PermDeleteAnyComment)
	if err := recipes.DeleteStepComment(c.UserContext(), DB, id, uid, moderator); err != nil {
		return utils.SendError(c, err)
	}
	return utils.Success(c).WithMessage("deleted").WithData("id", id).Send()
}
