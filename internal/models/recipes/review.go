package models

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/mnuddindev/cookpulse/internal/db"
	"github.com/mnuddindev/cookpulse/pkg/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Review struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	RecipeID    int64     `gorm:"not null;uniqueIndex:idx_review_recipe_user" json:"recipe_id"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_review_recipe_user" json:"user_id"`
	Rating      int       `gorm:"not null;check:rating BETWEEN 1 AND 5" json:"rating"`
	Content     string    `gorm:"type:text" json:"content"`
	NumLikes    int       `gorm:"not null;default:0;check:num_likes >= 0" json:"num_likes"`
	NumDislikes int       `gorm:"not null;default:0;check:num_dislikes >= 0" json:"num_dislikes"`
	Edited      bool      `gorm:"not null;default:false" json:"edited"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Feedbacks []ReviewFeedback `gorm:"foreignKey:ReviewID;constraint:OnDelete:CASCADE" json:"-"`
}

// CreateReviewRequest is the body of POST /recipes/:recipeId/reviews.
type CreateReviewRequest struct {
	Rating  int    `json:"rating" validate:"required,gte=1,lte=5"`
	Content string `json:"content" validate:"max=5000"`
}

// UpdateReviewRequest carries a partial edit. Nil fields keep their stored value;
// an empty string is a real update.
type UpdateReviewRequest struct {
	Rating  *int    `json:"rating" validate:"omitempty,gte=1,lte=5"`
	Content *string `json:"content" validate:"omitempty,max=5000"`
}

// RatingSummary aggregates the ratings of a recipe.
type RatingSummary struct {
	Average float64 `json:"average"`
	Count   int64   `json:"count"`
}

func validRating(r int) error {
	if r < 1 || r > 5 {
		return utils.Validation("invalid_rating", "rating must be between 1 and 5")
	}
	return nil
}

// CreateReview stores userID's review of recipeID. A second review by the same user
// is rejected with already_reviewed and writes nothing.
func CreateReview(ctx context.Context, gormDB *gorm.DB, recipeID int64, userID uuid.UUID, rating int, content string) (*Review, error) {
	if userID == uuid.Nil {
		return nil, utils.Unauthorized("unauthorized")
	}
	if err := validRecipeIDs(recipeID); err != nil {
		return nil, err
	}
	if err := validRating(rating); err != nil {
		return nil, err
	}

	r := &Review{RecipeID: recipeID, UserID: userID, Rating: rating, Content: content}
	if err := gormDB.WithContext(ctx).Create(r).Error; err != nil {
		if db.IsUniqueViolation(err) {
			return nil, utils.Conflict("already_reviewed")
		}
		return nil, db.Translate(err)
	}
	return r, nil
}

func lockReview(tx *gorm.DB, reviewID int64) (*Review, error) {
	var r Review
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&r, reviewID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.NotFound("review_not_found")
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// UpdateReview applies a partial edit by the review's owner and marks it edited.
func UpdateReview(ctx context.Context, gormDB *gorm.DB, reviewID int64, userID uuid.UUID, req UpdateReviewRequest) (*Review, error) {
	if req.Rating != nil {
		if err := validRating(*req.Rating); err != nil {
			return nil, err
		}
	}

	var r *Review
	err := db.Transact(ctx, gormDB, func(tx *gorm.DB) error {
		var err error
		if r, err = lockReview(tx, reviewID); err != nil {
			return err
		}
		if r.UserID != userID {
			return utils.Forbidden("forbidden")
		}

		updates := map[string]interface{}{"edited": true}
		if req.Rating != nil {
			r.Rating = *req.Rating
			updates["rating"] = r.Rating
		}
		if req.Content != nil {
			r.Content = *req.Content
			updates["content"] = r.Content
		}
		r.Edited = true
		return tx.Model(r).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// DeleteReview removes a review and its feedback rows. Only the owner or a moderator may delete.
func DeleteReview(ctx context.Context, gormDB *gorm.DB, reviewID int64, userID uuid.UUID, moderator bool) error {
	return db.Transact(ctx, gormDB, func(tx *gorm.DB) error {
		r, err := lockReview(tx, reviewID)
		if err != nil {
			return err
		}
		if r.UserID != userID && !moderator {
			return utils.Forbidden("forbidden")
		}
		if err := tx.Where("review_id = ?", reviewID).Delete(&ReviewFeedback{}).Error; err != nil {
			return err
		}
		return tx.Delete(&Review{}, reviewID).Error
	})
}

// GetReview reads a review by id.
func GetReview(ctx context.Context, gormDB *gorm.DB, reviewID int64) (*Review, error) {
	var r Review
	if err := gormDB.WithContext(ctx).First(&r, reviewID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NotFound("review_not_found")
		}
		return nil, db.Translate(err)
	}
	return &r, nil
}

// ListRecipeReviews pages through a recipe's reviews, newest first.
func ListRecipeReviews(ctx context.Context, gormDB *gorm.DB, recipeID int64, limit, offset int) ([]Review, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	var out []Review
	err := gormDB.WithContext(ctx).
		Where("recipe_id = ?", recipeID).
		Order("created_at DESC, id DESC").
		Limit(limit).Offset(offset).
		Find(&out).Error
	if err != nil {
		return nil, db.Translate(err)
	}
	return out, nil
}

// RecipeRatingSummary computes the average rating and review count of a recipe.
func RecipeRatingSummary(ctx context.Context, gormDB *gorm.DB, recipeID int64) (RatingSummary, error) {
	var s RatingSummary
	err := gormDB.WithContext(ctx).Model(&Review{}).
		Select("COALESCE(AVG(rating), 0) AS average, COUNT(*) AS count").
		Where("recipe_id = ?", recipeID).
		Scan(&s).Error
	if err != nil {
		return RatingSummary{}, db.Translate(err)
	}
	return s, nil
}
