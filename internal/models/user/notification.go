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

// Notification kinds.
const (
	NotifyChallengeCompleted = "challenge_completed"
	NotifyReviewLiked        = "review_liked"
)

type Notification struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index:idx_notification_user" json:"user_id"`
	Type      string    `gorm:"size:50;not null" json:"type"`
	Message   string    `gorm:"size:255;not null" json:"message"`
	IsRead    bool      `gorm:"default:false" json:"is_read"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

type NotificationPreferences struct {
	ID                 uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	UserID             uuid.UUID `gorm:"type:uuid;not null;unique" json:"user_id"`
	EmailOnChallenge   bool      `gorm:"default:true" json:"email_on_challenge"`
	NotifyOnReviewLike bool      `gorm:"default:true" json:"notify_on_review_like"`
	CreatedAt          time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Notify records an in-app notification. Pass the caller's transaction so the
// notification commits or rolls back with the change it reports.
func Notify(ctx context.Context, tx *gorm.DB, userID uuid.UUID, kind, message string) error {
	n := &Notification{UserID: userID, Type: kind, Message: message}
	if err := tx.WithContext(ctx).Create(n).Error; err != nil {
		return db.Translate(err)
	}
	return nil
}

// ListNotifications returns the newest notifications of a user.
func ListNotifications(ctx context.Context, gormDB *gorm.DB, userID uuid.UUID, unreadOnly bool, limit int) ([]Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var out []Notification
	q := gormDB.WithContext(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}
	if err := q.Order("created_at DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, db.Translate(err)
	}
	return out, nil
}

// MarkNotificationsRead flags all of a user's notifications as read and returns how many changed.
func MarkNotificationsRead(ctx context.Context, gormDB *gorm.DB, userID uuid.UUID) (int64, error) {
	res := gormDB.WithContext(ctx).Model(&Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	if res.Error != nil {
		return 0, db.Translate(res.Error)
	}
	return res.RowsAffected, nil
}

// GetNotificationPreferences returns a user's preferences, or the defaults when none were saved.
func GetNotificationPreferences(ctx context.Context, gormDB *gorm.DB, userID uuid.UUID) (*NotificationPreferences, error) {
	np := NotificationPreferences{UserID: userID, EmailOnChallenge: true, NotifyOnReviewLike: true}
	err := gormDB.WithContext(ctx).Where("user_id = ?", userID).Limit(1).Find(&np).Error
	if err != nil {
		return nil, db.Translate(err)
	}
	return &np, nil
}

// SaveNotificationPreferences upserts a user's preferences.
func SaveNotificationPreferences(ctx context.Context, gormDB *gorm.DB, np *NotificationPreferences) error {
	if np.UserID == uuid.Nil {
		return utils.Validation("user_required")
	}
	err := gormDB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email_on_challenge", "notify_on_review_like", "updated_at"}),
	}).Create(np).Error
	return db.Translate(err)
}
