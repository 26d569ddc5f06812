package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mnuddindev/cookpulse/internal/db"
	user "github.com/mnuddindev/cookpulse/internal/models/user"
	"github.com/mnuddindev/cookpulse/pkg/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ChallengeStatus string

const (
	StatusParticipating ChallengeStatus = "participating"
	StatusCompleted     ChallengeStatus = "completed"
)

// Outcomes of CompleteChallenge.
const (
	StatusJustCompleted    = "completed"
	StatusAlreadyCompleted = "already_completed"
)

type Challenge struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"size:200;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	Points      int       `gorm:"not null;check:points >= 0" json:"points"`
	StartsAt    time.Time `gorm:"not null;index:idx_challenge_window" json:"starts_at"`
	EndsAt      time.Time `gorm:"not null;index:idx_challenge_window" json:"ends_at"`
	CreatedBy   uuid.UUID `gorm:"type:uuid;not null" json:"created_by"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// Open reports whether now falls inside the challenge window.
func (c *Challenge) Open(now time.Time) bool {
	return !now.Before(c.StartsAt) && !now.After(c.EndsAt)
}

type UserChallenge struct {
	UserID      uuid.UUID       `gorm:"type:uuid;primaryKey" json:"user_id"`
	ChallengeID int64           `gorm:"primaryKey;autoIncrement:false;index" json:"challenge_id"`
	Liked       bool            `gorm:"not null;default:false" json:"liked"`
	Status      ChallengeStatus `gorm:"size:20;not null" json:"status"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

// CreateChallengeRequest is the body of POST /challenges.
type CreateChallengeRequest struct {
	Title       string    `json:"title" validate:"required,min=3,max=200"`
	Description string    `json:"description" validate:"max=5000"`
	Points      int       `json:"points" validate:"gte=0,lte=10000"`
	StartsAt    time.Time `json:"starts_at" validate:"required"`
	EndsAt      time.Time `json:"ends_at" validate:"required"`
}

// ChallengeStats are derived by counting user_challenges rows.
type ChallengeStats struct {
	ChallengeID  int64 `json:"challenge_id"`
	Participants int64 `json:"participants"`
	Winners      int64 `json:"winners"`
	Likes        int64 `json:"likes"`
}

// LeaderboardEntry is one ranked user.
type LeaderboardEntry struct {
	Rank     int       `json:"rank"`
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
	Points   int       `json:"points"`
}

// CompletionResult is the outcome of CompleteChallenge.
type CompletionResult struct {
	Participation *UserChallenge `json:"participation"`
	Challenge     *Challenge     `json:"challenge"`
	Awarded       int            `json:"awarded"`
	Status        string         `json:"-"`
}

// CreateChallenge stores a new challenge.
func CreateChallenge(ctx context.Context, gormDB *gorm.DB, createdBy uuid.UUID, req CreateChallengeRequest) (*Challenge, error) {
	if createdBy == uuid.Nil {
		return nil, utils.Unauthorized("unauthorized")
	}
	if strings.TrimSpace(req.Title) == "" {
		return nil, utils.Validation("title_required")
	}
	if !req.EndsAt.After(req.StartsAt) {
		return nil, utils.Validation("invalid_window", "ends_at must be after starts_at")
	}
	if req.Points < 0 {
		return nil, utils.Validation("invalid_points")
	}

	c := &Challenge{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Points:      req.Points,
		StartsAt:    req.StartsAt.UTC(),
		EndsAt:      req.EndsAt.UTC(),
		CreatedBy:   createdBy,
	}
	if err := gormDB.WithContext(ctx).Create(c).Error; err != nil {
		return nil, db.Translate(err)
	}
	return c, nil
}

// GetChallenge reads a challenge by id.
func GetChallenge(ctx context.Context, gormDB *gorm.DB, challengeID int64) (*Challenge, error) {
	var c Challenge
	if err := gormDB.WithContext(ctx).First(&c, challengeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NotFound("challenge_not_found")
		}
		return nil, db.Translate(err)
	}
	return &c, nil
}

// ListChallenges returns challenges ordered by start. A non-nil openAt keeps only challenges open then.
func ListChallenges(ctx context.Context, gormDB *gorm.DB, openAt *time.Time) ([]Challenge, error) {
	var out []Challenge
	q := gormDB.WithContext(ctx).Order("starts_at, id")
	if openAt != nil {
		q = q.Where("starts_at <= ? AND ends_at >= ?", *openAt, *openAt)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, db.Translate(err)
	}
	return out, nil
}

// JoinChallenge enrolls userID in a challenge that is open at now.
func JoinChallenge(ctx context.Context, gormDB *gorm.DB, userID uuid.UUID, challengeID int64, now time.Time) (*UserChallenge, error) {
	if userID == uuid.Nil {
		return nil, utils.Unauthorized("unauthorized")
	}
	c, err := GetChallenge(ctx, gormDB, challengeID)
	if err != nil {
		return nil, err
	}
	if !c.Open(now) {
		return nil, utils.Validation("challenge_closed")
	}

	uc := &UserChallenge{UserID: userID, ChallengeID: challengeID, Status: StatusParticipating}
	if err := gormDB.WithContext(ctx).Create(uc).Error; err != nil {
		if db.IsUniqueViolation(err) {
			return nil, utils.Conflict("already_participating")
		}
		return nil, db.Translate(err)
	}
	return uc, nil
}

func lockParticipation(tx *gorm.DB, userID uuid.UUID, challengeID int64) (*UserChallenge, error) {
	var uc UserChallenge
	res := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND challenge_id = ?", userID, challengeID).
		Limit(1).Find(&uc)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, utils.Validation("not_participating")
	}
	return &uc, nil
}

// CompleteChallenge marks userID's participation completed and awards the challenge's
// points in the same transaction. Completing twice awards nothing the second time.
func CompleteChallenge(ctx context.Context, gormDB *gorm.DB, userID uuid.UUID, challengeID int64, now time.Time) (*CompletionResult, error) {
	if userID == uuid.Nil {
		return nil, utils.Unauthorized("unauthorized")
	}
	res := &CompletionResult{}
	err := db.Transact(ctx, gormDB, func(tx *gorm.DB) error {
		uc, err := lockParticipation(tx, userID, challengeID)
		if err != nil {
			return err
		}
		res.Participation = uc

		var c Challenge
		if err := tx.First(&c, challengeID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.NotFound("challenge_not_found")
			}
			return err
		}
		res.Challenge = &c

		if uc.Status == StatusCompleted {
			res.Status = StatusAlreadyCompleted
			return nil
		}
		if now.After(c.EndsAt) {
			return utils.Validation("challenge_closed")
		}

		completedAt := now.UTC()
		err = tx.Model(&UserChallenge{}).
			Where("user_id = ? AND challenge_id = ?", userID, challengeID).
			UpdateColumns(map[string]interface{}{"status": StatusCompleted, "completed_at": completedAt}).Error
		if err != nil {
			return err
		}
		uc.Status, uc.CompletedAt = StatusCompleted, &completedAt

		if c.Points > 0 {
			err = tx.Model(&user.User{}).Where("id = ?", userID).
				UpdateColumn("points", gorm.Expr("points + ?", c.Points)).Error
			if err != nil {
				return err
			}
		}
		res.Awarded = c.Points
		res.Status = StatusJustCompleted

		return user.Notify(ctx, tx, userID, user.NotifyChallengeCompleted,
			fmt.Sprintf("You completed %q and earned %d points", c.Title, c.Points))
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// ToggleChallengeLike flips userID's like on a challenge they participate in.
func ToggleChallengeLike(ctx context.Context, gormDB *gorm.DB, userID uuid.UUID, challengeID int64) (bool, error) {
	var liked bool
	err := db.Transact(ctx, gormDB, func(tx *gorm.DB) error {
		uc, err := lockParticipation(tx, userID, challengeID)
		if err != nil {
			return err
		}
		liked = !uc.Liked
		return tx.Model(&UserChallenge{}).
			Where("user_id = ? AND challenge_id = ?", userID, challengeID).
			UpdateColumn("liked", liked).Error
	})
	return liked, err
}

// GetChallengeStats counts participants, winners and likes of a challenge.
func GetChallengeStats(ctx context.Context, gormDB *gorm.DB, challengeID int64) (*ChallengeStats, error) {
	if _, err := GetChallenge(ctx, gormDB, challengeID); err != nil {
		return nil, err
	}
	s := &ChallengeStats{ChallengeID: challengeID}
	err := gormDB.WithContext(ctx).Model(&UserChallenge{}).
		Select("COUNT(*) AS participants, "+
			"COUNT(*) FILTER (WHERE status = ?) AS winners, "+
			"COUNT(*) FILTER (WHERE liked) AS likes", StatusCompleted).
		Where("challenge_id = ?", challengeID).
		Scan(s).Error
	if err != nil {
		return nil, db.Translate(err)
	}
	s.ChallengeID = challengeID
	return s, nil
}

// Leaderboard ranks users by points. Tied users share a rank.
func Leaderboard(ctx context.Context, gormDB *gorm.DB, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	var rows []LeaderboardEntry
	err := gormDB.WithContext(ctx).Model(&user.User{}).
		Select("id AS user_id, username, points").
		Order("points DESC, username ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, db.Translate(err)
	}
	rankEntries(rows)
	return rows, nil
}

func rankEntries(rows []LeaderboardEntry) {
	for i := range rows {
		if i > 0 && rows[i].Points == rows[i-1].Points {
			rows[i].Rank = rows[i-1].Rank
			continue
		}
		rows[i].Rank = i + 1
	}
}
