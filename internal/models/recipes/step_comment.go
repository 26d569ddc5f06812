package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mnuddindev/cookpulse/internal/db"
	"github.com/mnuddindev/cookpulse/pkg/utils"
	"gorm.io/gorm"
)

type StepComment struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	RecipeID  int64     `gorm:"not null;index:idx_step_comment_step" json:"recipe_id"`
	StepIndex int       `gorm:"not null;index:idx_step_comment_step" json:"step_index"`
	UserID    uuid.UUID `gorm:"type:uuid;not null" json:"user_id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// StepCommentRequest is the body of POST /recipes/:recipeId/steps/:step/comments.
type StepCommentRequest struct {
	Content string `json:"content" validate:"required,max=2000"`
}

// AddStepComment attaches a comment to one step of a recipe.
func AddStepComment(ctx context.Context, gormDB *gorm.DB, recipeID int64, stepIndex int, userID uuid.UUID, content string) (*StepComment, error) {
	if userID == uuid.Nil {
		return nil, utils.Unauthorized("unauthorized")
	}
	if err := validRecipeIDs(recipeID); err != nil {
		return nil, err
	}
	if stepIndex < 0 {
		return nil, utils.Validation("invalid_step")
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, utils.Validation("content_required")
	}

	c := &StepComment{RecipeID: recipeID, StepIndex: stepIndex, UserID: userID, Content: content}
	if err := gormDB.WithContext(ctx).Create(c).Error; err != nil {
		return nil, db.Translate(err)
	}
	return c, nil
}

// ListStepComments returns the comments on one step, oldest first.
func ListStepComments(ctx context.Context, gormDB *gorm.DB, recipeID int64, stepIndex int) ([]StepComment, error) {
	var out []StepComment
	err := gormDB.WithContext(ctx).
		Where("recipe_id = ? AND step_index = ?", recipeID, stepIndex).
		Order("created_at, id").
		Find(&out).Error
	if err != nil {
		return nil, db.Translate(err)
	}
	return out, nil
}

// DeleteStepComment removes a comment written by userID, or any comment for a moderator.
func DeleteStepComment(ctx context.Context, gormDB *gorm.DB, commentID int64, userID uuid.UUID, moderator bool) error {
	var c StepComment
	if err := gormDB.WithContext(ctx).First(&c, commentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound("comment_not_found")
		}
		return db.Translate(err)
	}
	if c.UserID != userID && !moderator {
		return utils.Forbidden("forbidden")
	}
	if err := gormDB.WithContext(ctx).Delete(&StepComment{}, commentID).Error; err != nil {
		return db.Translate(err)
	}
	return nil
}
