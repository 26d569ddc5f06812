package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/mnuddindev/cookpulse/internal/db"
	"github.com/mnuddindev/cookpulse/pkg/utils"
	"gorm.io/gorm"
)

const maxSlugAttempts = 20

type Recipe struct {
	ID             int64     `gorm:"primaryKey" json:"id"`
	AuthorID       uuid.UUID `gorm:"type:uuid;not null;index:idx_recipe_author" json:"author_id"`
	Title          string    `gorm:"size:200;not null" json:"title"`
	Slug           string    `gorm:"size:220;not null;unique" json:"slug"`
	Summary        string    `gorm:"type:text" json:"summary"`
	ImageURL       string    `gorm:"size:500" json:"image"`
	Servings       int       `json:"servings"`
	ReadyInMinutes int       `json:"ready_in_minutes"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Steps []RecipeStep `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE" json:"steps,omitempty"`
}

type RecipeStep struct {
	ID          int64  `gorm:"primaryKey" json:"-"`
	RecipeID    int64  `gorm:"not null;uniqueIndex:idx_step_position" json:"-"`
	Position    int    `gorm:"not null;uniqueIndex:idx_step_position" json:"position"`
	Instruction string `gorm:"type:text;not null" json:"instruction"`
}

// CreateRecipeRequest is the body of POST /recipes.
type CreateRecipeRequest struct {
	Title          string   `json:"title" validate:"required,min=3,max=200"`
	Summary        string   `json:"summary" validate:"max=5000"`
	ImageURL       string   `json:"image" validate:"omitempty,url,max=500"`
	Servings       int      `json:"servings" validate:"gte=0,lte=100"`
	ReadyInMinutes int      `json:"ready_in_minutes" validate:"gte=0,lte=10000"`
	Steps          []string `json:"steps" validate:"required,min=1,max=100,dive,required,max=2000"`
}

// CreateRecipe stores a recipe with its ordered steps under a unique slug derived from the title.
func CreateRecipe(ctx context.Context, gormDB *gorm.DB, authorID uuid.UUID, req CreateRecipeRequest) (*Recipe, error) {
	if authorID == uuid.Nil {
		return nil, utils.Unauthorized("unauthorized")
	}
	title := strings.TrimSpace(req.Title)
	if title == "" || len(req.Steps) == 0 {
		return nil, utils.Validation("title_and_steps_required")
	}

	r := &Recipe{
		AuthorID:       authorID,
		Title:          title,
		Summary:        req.Summary,
		ImageURL:       req.ImageURL,
		Servings:       req.Servings,
		ReadyInMinutes: req.ReadyInMinutes,
	}
	for i, s := range req.Steps {
		r.Steps = append(r.Steps, RecipeStep{Position: i, Instruction: strings.TrimSpace(s)})
	}

	err := db.Transact(ctx, gormDB, func(tx *gorm.DB) error {
		s, err := uniqueSlug(tx, title)
		if err != nil {
			return err
		}
		r.Slug = s
		if err := tx.Create(r).Error; err != nil {
			if db.IsUniqueViolation(err) {
				return utils.Conflict("recipe_exists")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

func uniqueSlug(tx *gorm.DB, title string) (string, error) {
	base := slug.Make(title)
	if base == "" {
		base = "recipe"
	}
	candidate := base
	for i := 2; i <= maxSlugAttempts+1; i++ {
		var n int64
		if err := tx.Model(&Recipe{}).Where("slug = ?", candidate).Count(&n).Error; err != nil {
			return "", err
		}
		if n == 0 {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
	return "", utils.Conflict("recipe_exists")
}

func withOrderedSteps(tx *gorm.DB) *gorm.DB {
	return tx.Preload("Steps", func(q *gorm.DB) *gorm.DB { return q.Order("position") })
}

// GetRecipe reads a local recipe with its steps.
func GetRecipe(ctx context.Context, gormDB *gorm.DB, recipeID int64) (*Recipe, error) {
	var r Recipe
	if err := withOrderedSteps(gormDB.WithContext(ctx)).First(&r, recipeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NotFound("recipe_not_found")
		}
		return nil, db.Translate(err)
	}
	return &r, nil
}

// GetRecipeBySlug reads a local recipe by slug.
func GetRecipeBySlug(ctx context.Context, gormDB *gorm.DB, s string) (*Recipe, error) {
	var r Recipe
	if err := withOrderedSteps(gormDB.WithContext(ctx)).Where("slug = ?", s).First(&r).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NotFound("recipe_not_found")
		}
		return nil, db.Translate(err)
	}
	return &r, nil
}

// ListUserRecipes returns the recipes authored by userID, newest first.
func ListUserRecipes(ctx context.Context, gormDB *gorm.DB, authorID uuid.UUID) ([]Recipe, error) {
	var out []Recipe
	if err := gormDB.WithContext(ctx).Where("author_id = ?", authorID).Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, db.Translate(err)
	}
	return out, nil
}

// RecipesByIDs loads the local recipes among ids. Missing ids are skipped.
func RecipesByIDs(ctx context.Context, gormDB *gorm.DB, ids []int64) (map[int64]Recipe, error) {
	out := make(map[int64]Recipe, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []Recipe
	if err := gormDB.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, db.Translate(err)
	}
	for _, r := range rows {
		out[r.ID] = r
	}
	return out, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// SearchLocalRecipes matches titles case-insensitively.
func SearchLocalRecipes(ctx context.Context, gormDB *gorm.DB, query string, limit int) ([]Recipe, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, utils.Validation("query_required")
	}
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	var out []Recipe
	err := gormDB.WithContext(ctx).
		Where("title ILIKE ?", "%"+likeEscaper.Replace(query)+"%").
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, db.Translate(err)
	}
	return out, nil
}
