package v1

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	recipes "github.com/mnuddindev/cookpulse/internal/models/recipes"
	"github.com/mnuddindev/cookpulse/pkg/utils"
)

// ownedCollection loads a collection and hides it from anyone but its owner.
func ownedCollection(c *fiber.Ctx, uid uuid.UUID) (*recipes.Collection, error) {
	id, err := utils.ParamInt64(c, "collectionId")
	if err != nil {
		return nil, err
	}
	col, err := recipes.GetCollection(c.UserContext(), DB, id)
	if err != nil {
		return nil, err
	}
	if col.UserID != uid {
		Logger.Warn(c.UserContext()).WithMeta(utils.Map{"user_id": uid.String()}).
			WithFields(id).Logs("Access to foreign collection %d")
		return nil, utils.NotFound("collection_not_found")
	}
	return col, nil
}

// CreateCollection handles POST /collections.
func CreateCollection(c *fiber.Ctx) error {
	type CollectionInput struct {
		CollectionName string  `json:"collectionName" validate:"required,max=100"`
		RecipeIDs      []int64 `json:"recipe_ids" validate:"omitempty,max=500,dive,gt=0"`
	}
	uid, err := currentUser(c)
	if err != nil {
		return utils.SendError(c, err)
	}
	var in CollectionInput
	if err := parseBody(c, &in); err != nil {
		return utils.SendError(c, err)
	}

	col, err := recipes.CreateCollection(c.UserContext(), DB, uid, in.CollectionName, in.RecipeIDs)
	if err != nil {
		return utils.SendError(c, err)
	}
	return utils.Success(c).
		WithStatus(fiber.StatusCreated).
		WithMessage("created").
		WithData("collection", col).
		Send()
}

func ListCollections(c *fiber.Ctx) error {
	uid, err := currentUser(c)
	if err != nil {
		return utils.SendError(c, err)
	}
	list, err := recipes.ListUserCollections(c.UserContext(), DB, uid)
	if err != nil {
		return utils.SendError(c, err)
	}
	return utils.Success(c).WithData("collections", list).Send()
}

func GetCollectionByName(c *fiber.Ctx) error {
	uid, err := currentUser(c)
	if err != nil {
		return utils.SendError(c, err)
	}
	col, err := recipes.GetCollectionByName(c.UserContext(), DB, uid, c.Params("name"))
	if err != nil {
		return utils.SendError(c, err)
	}
	return utils.Success(c).WithData("collection", col).Send()
}

func GetCollection(c *fiber.Ctx) error {
	uid, err := currentUser(c)
	if err != nil {
		return utils.SendError(c, err)
	}
	col, err := ownedCollection(c, uid)
	if err != nil {
		return utils.SendError(c, err)
	}
	return utils.Success(c).WithData("collection", col).Send()
}

// ListCollectionRecipes resolves the recipe ids of a collection, local recipes first
// and the rest through the recipe API. Ids nobody knows are left out.
func ListCollectionRecipes(c *fiber.Ctx) error {
	uid, err := currentUser(c)
	if err != nil {
		return utils.SendError(c, err)
	}
	col, err := ownedCollection(c, uid)
	if err != nil {
		return utils.SendError(c, err)
	}
	cards, err := resolveRecipes(c, col.RecipeIDs)
	if err != nil {
		return utils.SendError(c, err)
	}
	return utils.Success(c).
		WithData("collection_id", col.ID).
		WithData("recipe_ids", col.RecipeIDs).
		WithData("recipes", cards).
		Send()
}

// AddToCollection handles POST /collections/:collectionId/recipes/:recipeId.
func AddToCollection(c *fiber.Ctx) error {
	uid, err := currentUser(c)
	if err != nil {
		return utils.SendError(c, err)
	}
	col, err := ownedCollection(c, uid)
	if err != nil {
		return utils.SendError(c, err)
	}
	recipeID, err := utils.ParamInt64(c, "recipeId")
	if err != nil {
		return utils.SendError(c, err)
	}

	updated, status, err := recipes.AddRecipeToCollection(c.UserContext(), DB, col.ID, recipeID)
	if err != nil {
		return utils.SendError(c, err)
	}
	return utils.Success(c).WithMessage(status).WithData("collection", updated).Send()
}

// RemoveFromCollection handles DELETE /collections/:collectionId/recipes/:recipeId.
func RemoveFromCollection(c *fiber.Ctx) error {
	uid, err := currentUser(c)
	if err != nil {
		return utils.SendError(c, err)
	}
	col, err := ownedCollection(c, uid)
	if err != nil {
		return utils.SendError(c, err)
	}
	recipeID, err := utils.ParamInt64(c, "recipeId")
	if err != nil {
		return utils.SendError(c, err)
	}

	updated, status, err := recipes.RemoveRecipeFromCollection(c.UserContext(), DB, col.ID, recipeID)
	if err != nil {
		return utils.SendError(c, err)
	}
	return utils.Success(c).WithMessage(status).WithData("collection", updated).Send()
}

// DeleteCollection handles DELETE /collections/:collectionId. Answers 200 with the id,
// 404 collection_not_found for a missing or foreign collection, and 400
// bookmarks_not_deletable for the user's "My Bookmarks" collection.
func DeleteCollection(c *fiber.Ctx) error {
	uid, err := currentUser(c)
	if err != nil {
		return utils.SendError(c, err)
	}
	col, err := ownedCollection(c, uid)
	if err != nil {
		return utils.SendError(c, err)
	}
	if err := recipes.DeleteCollection(c.UserContext(), DB, col.ID); err != nil {
		return utils.SendError(c, err)
	}
	return utils.Success(c).WithMessage("deleted").WithData("id", col.ID).Send()
}

// Bookmark handles POST /bookmarks/:recipeId.
func Bookmark(c *fiber.Ctx) error {
	uid, err := currentUser(c)
	if err != nil {
		return utils.SendError(c, err)
	}
	recipeID, err := utils.ParamInt64(c, "recipeId")
	if err != nil {
		return utils.SendError(c, err)
	}
	col, status, err := recipes.Bookmark(c.UserContext(), DB, uid, recipeID)
	if err != nil {
		return utils.SendError(c, err)
	}
	return utils.Success(c).WithMessage(status).WithData("collection", col).Send()
}

// Unbookmark handles DELETE /bookmarks/:recipeId.
func Unbookmark(c *fiber.Ctx) error {
	uid, err := currentUser(c)
	if err != nil {
		return utils.SendError(c, err)
	}
	recipeID, err := utils.ParamInt64(c, "recipeId")
	if err != nil {
		return utils.SendError(c, err)
	}
	col, status, err := recipes.Unbookmark(c.UserContext(), DB, uid, recipeID)
	if err != nil {
		return utils.SendError(c, err)
	}
	return utils.Success(c).WithMessage(status).WithData("collection", col).Send()
}
