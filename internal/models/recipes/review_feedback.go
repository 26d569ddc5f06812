package models

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mnuddindev/cookpulse/internal/db"
	"github.com/mnuddindev/cookpulse/pkg/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FeedbackState is a user's reaction to one review.
type FeedbackState string

const (
	FeedbackNone     FeedbackState = "none"
	FeedbackLiked    FeedbackState = "liked"
	FeedbackDisliked FeedbackState = "disliked"
)

// FeedbackAction is the row change a transition needs.
type FeedbackAction int

const (
	ActionInsert FeedbackAction = iota
	ActionDelete
	ActionUpdate
)

// ReviewFeedback is the persisted reaction. Its composite key allows one row per (review, user).
type ReviewFeedback struct {
	ReviewID  int64     `gorm:"primaryKey;autoIncrement:false" json:"review_id"`
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	IsLike    bool      `gorm:"not null" json:"is_like"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Transition describes one step of the feedback state machine.
type Transition struct {
	From         FeedbackState
	To           FeedbackState
	Action       FeedbackAction
	LikeDelta    int
	DislikeDelta int
}

// Message is the short code returned to clients for the transition.
func (t Transition) Message() string {
	switch t.To {
	case FeedbackLiked:
		return "liked"
	case FeedbackDisliked:
		return "disliked"
	}
	return "removed"
}

// NextFeedback returns the transition taken when a user in state current submits
// a like (isLike) or a dislike. Repeating the current reaction toggles it off.
func NextFeedback(current FeedbackState, isLike bool) Transition {
	switch {
	case current == FeedbackLiked && isLike:
		return Transition{From: current, To: FeedbackNone, Action: ActionDelete, LikeDelta: -1}
	case current == FeedbackDisliked && !isLike:
		return Transition{From: current, To: FeedbackNone, Action: ActionDelete, DislikeDelta: -1}
	case current == FeedbackLiked:
		return Transition{From: current, To: FeedbackDisliked, Action: ActionUpdate, LikeDelta: -1, DislikeDelta: 1}
	case current == FeedbackDisliked:
		return Transition{From: current, To: FeedbackLiked, Action: ActionUpdate, LikeDelta: 1, DislikeDelta: -1}
	case isLike:
		return Transition{From: FeedbackNone, To: FeedbackLiked, Action: ActionInsert, LikeDelta: 1}
	default:
		return Transition{From: FeedbackNone, To: FeedbackDisliked, Action: ActionInsert, DislikeDelta: 1}
	}
}

func stateOf(fb *ReviewFeedback) FeedbackState {
	switch {
	case fb == nil:
		return FeedbackNone
	case fb.IsLike:
		return FeedbackLiked
	default:
		return FeedbackDisliked
	}
}

// FeedbackResult is the outcome of SubmitFeedback.
type FeedbackResult struct {
	ReviewID    int64         `json:"review_id"`
	AuthorID    uuid.UUID     `json:"-"`
	State       FeedbackState `json:"state"`
	Message     string        `json:"-"`
	NumLikes    int           `json:"num_likes"`
	NumDislikes int           `json:"num_dislikes"`
}

func lockFeedback(tx *gorm.DB, reviewID int64, userID uuid.UUID) (*ReviewFeedback, error) {
	var fb ReviewFeedback
	res := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("review_id = ? AND user_id = ?", reviewID, userID).
		Limit(1).Find(&fb)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &fb, nil
}

// SubmitFeedback applies a like or dislike from userID to a review. The feedback row
// change and the matching counter update commit or roll back together.
func SubmitFeedback(ctx context.Context, gormDB *gorm.DB, reviewID int64, userID uuid.UUID, isLike bool) (*FeedbackResult, error) {
	if userID == uuid.Nil {
		return nil, utils.Unauthorized("unauthorized")
	}

	var result *FeedbackResult
	err := db.Transact(ctx, gormDB, func(tx *gorm.DB) error {
		review, err := lockReview(tx, reviewID)
		if err != nil {
			return err
		}
		fb, err := lockFeedback(tx, reviewID, userID)
		if err != nil {
			return err
		}

		t := NextFeedback(stateOf(fb), isLike)
		where := tx.Where("review_id = ? AND user_id = ?", reviewID, userID)
		switch t.Action {
		case ActionInsert:
			err = tx.Create(&ReviewFeedback{ReviewID: reviewID, UserID: userID, IsLike: isLike}).Error
			if db.IsUniqueViolation(err) {
				return utils.Conflict("already_reacted")
			}
		case ActionDelete:
			err = where.Delete(&ReviewFeedback{}).Error
		case ActionUpdate:
			err = where.Model(&ReviewFeedback{}).Update("is_like", isLike).Error
		}
		if err != nil {
			return err
		}

		counters := map[string]interface{}{}
		if t.LikeDelta != 0 {
			counters["num_likes"] = gorm.Expr("num_likes + ?", t.LikeDelta)
		}
		if t.DislikeDelta != 0 {
			counters["num_dislikes"] = gorm.Expr("num_dislikes + ?", t.DislikeDelta)
		}
		if err := tx.Model(&Review{}).Where("id = ?", reviewID).UpdateColumns(counters).Error; err != nil {
			return err
		}

		result = &FeedbackResult{
			ReviewID:    reviewID,
			AuthorID:    review.UserID,
			State:       t.To,
			Message:     t.Message(),
			NumLikes:    review.NumLikes + t.LikeDelta,
			NumDislikes: review.NumDislikes + t.DislikeDelta,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetFeedbackState reports userID's current reaction to a review.
func GetFeedbackState(ctx context.Context, gormDB *gorm.DB, reviewID int64, userID uuid.UUID) (FeedbackState, error) {
	var fb ReviewFeedback
	res := gormDB.WithContext(ctx).Where("review_id = ? AND user_id = ?", reviewID, userID).Limit(1).Find(&fb)
	if res.Error != nil {
		return FeedbackNone, db.Translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return FeedbackNone, nil
	}
	return stateOf(&fb), nil
}

// RecountFeedback recomputes a review's counters from its feedback rows.
func RecountFeedback(ctx context.Context, gormDB *gorm.DB, reviewID int64) (*Review, error) {
	var r *Review
	err := db.Transact(ctx, gormDB, func(tx *gorm.DB) error {
		var err error
		if r, err = lockReview(tx, reviewID); err != nil {
			return err
		}
		var counts struct {
			Likes    int
			Dislikes int
		}
		err = tx.Model(&ReviewFeedback{}).
			Select("COUNT(*) FILTER (WHERE is_like) AS likes, COUNT(*) FILTER (WHERE NOT is_like) AS dislikes").
			Where("review_id = ?", reviewID).
			Scan(&counts).Error
		if err != nil {
			return err
		}
		r.NumLikes, r.NumDislikes = counts.Likes, counts.Dislikes
		return tx.Model(&Review{}).Where("id = ?", reviewID).UpdateColumns(map[string]interface{}{
			"num_likes":    counts.Likes,
			"num_dislikes": counts.Dislikes,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}
