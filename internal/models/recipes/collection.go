package models

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/mnuddindev/cookpulse/internal/db"
	"github.com/mnuddindev/cookpulse/pkg/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BookmarksName is the per-user collection bookmark actions write to.
const BookmarksName = "My Bookmarks"

// Outcomes reported by the membership mutators.
const (
	StatusAdded          = "added"
	StatusAlreadyPresent = "already_present"
	StatusRemoved        = "removed"
)

type Collection struct {
	ID             int64         `gorm:"primaryKey" json:"id"`
	UserID         uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex:idx_collection_user_name" json:"user_id"`
	CollectionName string        `gorm:"size:100;not null;uniqueIndex:idx_collection_user_name" json:"collection_name"`
	RecipeIDs      pq.Int64Array `gorm:"type:bigint[];not null" json:"recipe_ids"`
	CreatedAt      time.Time     `gorm:"autoCreateTime" json:"created_at"`
}

// appendUnique appends ids that are not yet in list, keeping first-seen order.
func appendUnique(list pq.Int64Array, ids ...int64) pq.Int64Array {
	out := make(pq.Int64Array, 0, len(list)+len(ids))
	out = append(out, list...)
	for _, id := range ids {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

// removeAll drops every occurrence of id and reports whether anything changed.
func removeAll(list pq.Int64Array, id int64) (pq.Int64Array, bool) {
	out := make(pq.Int64Array, 0, len(list))
	for _, v := range list {
		if v != id {
			out = append(out, v)
		}
	}
	return out, len(out) != len(list)
}

func validRecipeIDs(ids ...int64) error {
	for _, id := range ids {
		if id <= 0 {
			return utils.Validation("invalid_recipe_id", "recipe ids must be positive")
		}
	}
	return nil
}

// CreateCollection inserts a collection for userID. Initial recipe ids are deduplicated.
func CreateCollection(ctx context.Context, gormDB *gorm.DB, userID uuid.UUID, name string, initialRecipeIDs []int64) (*Collection, error) {
	name = strings.TrimSpace(name)
	if userID == uuid.Nil {
		return nil, utils.Validation("user_required")
	}
	if name == "" {
		return nil, utils.Validation("collection_name_required")
	}
	if err := validRecipeIDs(initialRecipeIDs...); err != nil {
		return nil, err
	}

	c := &Collection{
		UserID:         userID,
		CollectionName: name,
		RecipeIDs:      appendUnique(nil, initialRecipeIDs...),
	}
	if err := gormDB.WithContext(ctx).Create(c).Error; err != nil {
		if db.IsUniqueViolation(err) {
			return nil, utils.Conflict("collection_exists")
		}
		return nil, db.Translate(err)
	}
	return c, nil
}

// lockCollection reads a collection row FOR UPDATE inside tx.
func lockCollection(tx *gorm.DB, collectionID int64) (*Collection, error) {
	var c Collection
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&c, collectionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.NotFound("collection_not_found")
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// AddRecipeToCollection appends recipeID under a row lock. Adding a recipe that is
// already present is a no-op reported as StatusAlreadyPresent.
func AddRecipeToCollection(ctx context.Context, gormDB *gorm.DB, collectionID, recipeID int64) (*Collection, string, error) {
	if err := validRecipeIDs(recipeID); err != nil {
		return nil, "", err
	}

	var (
		c      *Collection
		status string
	)
	err := db.Transact(ctx, gormDB, func(tx *gorm.DB) error {
		var err error
		if c, err = lockCollection(tx, collectionID); err != nil {
			return err
		}
		if slices.Contains(c.RecipeIDs, recipeID) {
			status = StatusAlreadyPresent
			return nil
		}
		c.RecipeIDs = appendUnique(c.RecipeIDs, recipeID)
		status = StatusAdded
		return tx.Model(c).Update("recipe_ids", c.RecipeIDs).Error
	})
	if err != nil {
		return nil, "", err
	}
	return c, status, nil
}

// RemoveRecipeFromCollection drops every occurrence of recipeID under a row lock.
// Removing an absent id succeeds without writing.
func RemoveRecipeFromCollection(ctx context.Context, gormDB *gorm.DB, collectionID, recipeID int64) (*Collection, string, error) {
	var c *Collection
	err := db.Transact(ctx, gormDB, func(tx *gorm.DB) error {
		var err error
		if c, err = lockCollection(tx, collectionID); err != nil {
			return err
		}
		ids, changed := removeAll(c.RecipeIDs, recipeID)
		if !changed {
			return nil
		}
		c.RecipeIDs = ids
		return tx.Model(c).Update("recipe_ids", c.RecipeIDs).Error
	})
	if err != nil {
		return nil, "", err
	}
	return c, StatusRemoved, nil
}

// DeleteCollection hard-deletes a collection. The bookmarks collection cannot be deleted
// and fails with the validation error bookmarks_not_deletable.
func DeleteCollection(ctx context.Context, gormDB *gorm.DB, collectionID int64) error {
	return db.Transact(ctx, gormDB, func(tx *gorm.DB) error {
		c, err := lockCollection(tx, collectionID)
		if err != nil {
			return err
		}
		if c.CollectionName == BookmarksName {
			return utils.Validation("bookmarks_not_deletable")
		}
		res := tx.Delete(&Collection{}, collectionID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return utils.NotFound("collection_not_found")
		}
		return nil
	})
}

// GetCollection reads a collection by id.
func GetCollection(ctx context.Context, gormDB *gorm.DB, collectionID int64) (*Collection, error) {
	var c Collection
	if err := gormDB.WithContext(ctx).First(&c, collectionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NotFound("collection_not_found")
		}
		return nil, db.Translate(err)
	}
	return &c, nil
}

// GetCollectionByName reads one of userID's collections by name.
func GetCollectionByName(ctx context.Context, gormDB *gorm.DB, userID uuid.UUID, name string) (*Collection, error) {
	if userID == uuid.Nil {
		return nil, utils.Unauthorized("unauthorized")
	}
	var c Collection
	err := gormDB.WithContext(ctx).Where("user_id = ? AND collection_name = ?", userID, name).First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NotFound("collection_not_found")
		}
		return nil, db.Translate(err)
	}
	return &c, nil
}

// ListUserCollections returns userID's collections, oldest first.
func ListUserCollections(ctx context.Context, gormDB *gorm.DB, userID uuid.UUID) ([]Collection, error) {
	if userID == uuid.Nil {
		return nil, utils.Unauthorized("unauthorized")
	}
	var out []Collection
	if err := gormDB.WithContext(ctx).Where("user_id = ?", userID).Order("created_at, id").Find(&out).Error; err != nil {
		return nil, db.Translate(err)
	}
	return out, nil
}

// ListRecipesInCollection returns the recipe ids of a collection in insertion order.
func ListRecipesInCollection(ctx context.Context, gormDB *gorm.DB, collectionID int64) ([]int64, error) {
	c, err := GetCollection(ctx, gormDB, collectionID)
	if err != nil {
		return nil, err
	}
	return slices.Clone([]int64(c.RecipeIDs)), nil
}

// EnsureBookmarks returns userID's bookmarks collection, creating it when missing.
// Concurrent first bookmarks both end up with the same row.
func EnsureBookmarks(ctx context.Context, gormDB *gorm.DB, userID uuid.UUID) (*Collection, error) {
	if userID == uuid.Nil {
		return nil, utils.Unauthorized("unauthorized")
	}
	c := &Collection{UserID: userID, CollectionName: BookmarksName, RecipeIDs: pq.Int64Array{}}
	err := gormDB.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(c).Error
	if err != nil {
		return nil, db.Translate(err)
	}
	return GetCollectionByName(ctx, gormDB, userID, BookmarksName)
}

// Bookmark adds recipeID to userID's bookmarks collection.
func Bookmark(ctx context.Context, gormDB *gorm.DB, userID uuid.UUID, recipeID int64) (*Collection, string, error) {
	c, err := EnsureBookmarks(ctx, gormDB, userID)
	if err != nil {
		return nil, "", err
	}
	return AddRecipeToCollection(ctx, gormDB, c.ID, recipeID)
}

// Unbookmark removes recipeID from userID's bookmarks collection.
func Unbookmark(ctx context.Context, gormDB *gorm.DB, userID uuid.UUID, recipeID int64) (*Collection, string, error) {
	c, err := EnsureBookmarks(ctx, gormDB, userID)
	if err != nil {
		return nil, "", err
	}
	return RemoveRecipeFromCollection(ctx, gormDB, c.ID, recipeID)
}
