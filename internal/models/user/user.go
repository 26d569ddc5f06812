package models

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/mnuddindev/cookpulse/internal/db"
	storage "github.com/mnuddindev/cookpulse/pkg/redis"
	"github.com/mnuddindev/cookpulse/pkg/utils"
	"gorm.io/gorm"
)

const userCacheTTL = 10 * time.Minute

type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Username string    `gorm:"size:255;not null;unique" json:"username" validate:"required,min=3,max=255,alphanum"`
	Email    string    `gorm:"size:100;not null;unique" json:"email" validate:"required,email"`
	Password string    `gorm:"size:255;not null" json:"-" validate:"required,min=6"`
	IsActive bool      `gorm:"default:true" json:"is_active"`
	RoleID   uuid.UUID `gorm:"type:uuid;not null" json:"role_id"`
	Role     Role      `gorm:"foreignKey:RoleID" json:"role"`
	Points   int       `gorm:"not null;default:0;index:idx_user_points" json:"points"`

	Profile struct {
		Name        string `gorm:"size:100" json:"name" validate:"omitempty,max=100"`
		Bio         string `gorm:"type:text;size:255" json:"bio" validate:"omitempty,max=255"`
		AvatarURL   string `gorm:"type:text;size:255" json:"avatar_url" validate:"omitempty,url"`
		Location    string `gorm:"size:100" json:"location" validate:"omitempty,max=100"`
		FavCuisines string `gorm:"type:jsonb;default:'[]'" json:"fav_cuisines" validate:"omitempty"`
	} `gorm:"embedded"`

	Notifications           []Notification          `gorm:"foreignKey:UserID" json:"notifications,omitempty"`
	NotificationPreferences NotificationPreferences `gorm:"foreignKey:UserID" json:"notification_preferences,omitempty"`
}

// UserOption configures a User.
type UserOption func(*User)

// NewUser creates a user with the "member" role. The password must already be hashed.
func NewUser(ctx context.Context, rclient *storage.RedisClient, gormDB *gorm.DB, username, email, password string, opts ...UserOption) (*User, error) {
	if err := ctx.Err(); err != nil {
		return nil, utils.WrapError(err, utils.ErrInternalServerError.Code, "user creation canceled")
	}

	var memberRole Role
	if err := gormDB.WithContext(ctx).Where("name = ?", RoleMember).First(&memberRole).Error; err != nil {
		return nil, utils.WrapError(err, utils.ErrInternalServerError.Code, "default role missing")
	}

	u := &User{
		Username: username,
		Email:    email,
		Password: password,
		IsActive: true,
		RoleID:   memberRole.ID,
	}

	for _, opt := range opts {
		opt(u)
	}

	if err := gormDB.WithContext(ctx).Create(u).Error; err != nil {
		if db.IsUniqueViolation(err) {
			return nil, utils.Conflict("user_exists")
		}
		return nil, db.Translate(err)
	}
	u.Role = memberRole

	cacheUser(ctx, rclient, u)
	return u, nil
}

func cacheUser(ctx context.Context, rclient *storage.RedisClient, u *User) {
	if rclient == nil {
		return
	}
	userJSON, err := json.Marshal(u)
	if err != nil {
		return
	}
	rclient.Set(ctx, "user:"+u.ID.String(), userJSON, userCacheTTL)
}

// GetUserBy retrieves a user matching condition, with optional preloading of relationships.
func GetUserBy(ctx context.Context, gormDB *gorm.DB, condition string, args []interface{}, preload ...string) (*User, error) {
	var u User
	query := gormDB.WithContext(ctx).Where(condition, args...)
	for _, p := range preload {
		if p != "" {
			query = query.Preload(p)
		}
	}
	if err := query.First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NotFound("user_not_found")
		}
		return nil, db.Translate(err)
	}
	return &u, nil
}

// GetUser reads a user through the Redis cache.
func GetUser(ctx context.Context, rclient *storage.RedisClient, gormDB *gorm.DB, id uuid.UUID) (*User, error) {
	if rclient != nil {
		if cached, err := rclient.Get(ctx, "user:"+id.String()).Result(); err == nil {
			var u User
			if json.Unmarshal([]byte(cached), &u) == nil {
				return &u, nil
			}
		}
	}

	u, err := GetUserBy(ctx, gormDB, "id = ?", []interface{}{id}, "Role")
	if err != nil {
		return nil, err
	}
	cacheUser(ctx, rclient, u)
	return u, nil
}

// InvalidateUser drops the cached copy of a user, e.g. after points change.
func InvalidateUser(ctx context.Context, rclient *storage.RedisClient, id uuid.UUID) {
	if rclient == nil {
		return
	}
	rclient.Del(ctx, "user:"+id.String())
}

// UpdateUser applies opts to the stored user and refreshes the cache.
func UpdateUser(ctx context.Context, rclient *storage.RedisClient, gormDB *gorm.DB, id uuid.UUID, opts ...UserOption) (*User, error) {
	var u *User
	err := db.Transact(ctx, gormDB, func(tx *gorm.DB) error {
		var err error
		u, err = GetUserBy(ctx, tx, "id = ?", []interface{}{id})
		if err != nil {
			return err
		}
		for _, opt := range opts {
			opt(u)
		}
		if err := tx.Save(u).Error; err != nil {
			if db.IsUniqueViolation(err) {
				return utils.Conflict("user_exists")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	InvalidateUser(ctx, rclient, id)
	return u, nil
}

// HasPermission checks if the user's role grants permission.
func (u *User) HasPermission(ctx context.Context, rclient *storage.RedisClient, gormDB *gorm.DB, permission string) bool {
	perms, err := RolePermissions(ctx, rclient, gormDB, u.RoleID)
	if err != nil {
		return false
	}
	return utils.Contains(perms, permission)
}
