package models

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	storage "github.com/mnuddindev/cookpulse/pkg/redis"
	"github.com/mnuddindev/cookpulse/pkg/utils"
	"gorm.io/gorm"
)

const (
	RoleMember    = "member"
	RoleModerator = "moderator"
	RoleAdmin     = "admin"
)

// Permission names checked by the HTTP layer.
const (
	PermDeleteAnyReview  = "delete_any_review"
	PermDeleteAnyComment = "delete_any_comment"
	PermManageChallenges = "manage_challenges"
)

type Role struct {
	ID          uuid.UUID    `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	Name        string       `gorm:"size:50;not null;unique" json:"name" validate:"required"`
	Permissions []Permission `gorm:"many2many:role_permissions;" json:"permissions,omitempty"`
	CreatedAt   time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

type Permission struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	Name      string    `gorm:"size:50;not null;unique" json:"name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

var memberPerms = []string{
	"create_recipe", "edit_own_recipe", "create_review", "edit_own_review", "delete_own_review",
	"give_feedback", "create_collection", "comment_step", "delete_own_comment", "join_challenge",
	"manage_calendar",
}

// SeedRoles initializes default roles and permissions.
func SeedRoles(ctx context.Context, gormDB *gorm.DB, redisClient *storage.RedisClient) error {
	moderator := append(append([]string{}, memberPerms...), PermDeleteAnyReview, PermDeleteAnyComment)
	roles := []struct {
		Name        string
		Permissions []string
	}{
		{RoleMember, memberPerms},
		{RoleModerator, moderator},
		{RoleAdmin, append(append([]string{}, moderator...), PermManageChallenges, "assign_roles")},
	}

	for _, r := range roles {
		var role Role
		if err := gormDB.WithContext(ctx).Where("name = ?", r.Name).FirstOrCreate(&role, Role{Name: r.Name}).Error; err != nil {
			return utils.WrapError(err, utils.ErrInternalServerError.Code, "Failed to seed role: "+r.Name)
		}

		perms := make([]Permission, 0, len(r.Permissions))
		for _, permName := range r.Permissions {
			var perm Permission
			if err := gormDB.WithContext(ctx).Where("name = ?", permName).FirstOrCreate(&perm, Permission{Name: permName}).Error; err != nil {
				return utils.WrapError(err, utils.ErrInternalServerError.Code, "Failed to seed permission: "+permName)
			}
			perms = append(perms, perm)
		}
		if err := gormDB.WithContext(ctx).Model(&role).Association("Permissions").Replace(perms); err != nil {
			return utils.WrapError(err, utils.ErrInternalServerError.Code, "Failed to attach permissions: "+r.Name)
		}

		if redisClient != nil {
			redisClient.Del(ctx, "perms:role:"+role.ID.String())
		}
	}

	return nil
}

// RolePermissions lists a role's permission names, cached in Redis per role id.
func RolePermissions(ctx context.Context, rclient *storage.RedisClient, gormDB *gorm.DB, roleID uuid.UUID) ([]string, error) {
	cacheKey := "perms:role:" + roleID.String()
	if rclient != nil {
		if cachedPerms, err := rclient.Get(ctx, cacheKey).Result(); err == nil {
			var perms []string
			if json.Unmarshal([]byte(cachedPerms), &perms) == nil {
				return perms, nil
			}
		}
	}

	var role Role
	if err := gormDB.WithContext(ctx).Preload("Permissions").Where("id = ?", roleID).First(&role).Error; err != nil {
		return nil, utils.WrapError(err, utils.ErrInternalServerError.Code, "Failed to load role")
	}

	perms := make([]string, len(role.Permissions))
	for i, perm := range role.Permissions {
		perms[i] = perm.Name
	}
	if rclient != nil {
		if permsJSON, err := json.Marshal(perms); err == nil {
			rclient.Set(ctx, cacheKey, permsJSON, 10*time.Minute)
		}
	}
	return perms, nil
}
