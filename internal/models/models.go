package models

import (
	recipes "github.com/mnuddindev/cookpulse/internal/models/recipes"
	user "github.com/mnuddindev/cookpulse/internal/models/user"
)

// RegisterModels lists every table AutoMigrate manages, parents before children.
func RegisterModels() []interface{} {
	return []interface{}{
		&user.Permission{},
		&user.Role{},
		&user.User{},
		&user.Notification{},
		&user.NotificationPreferences{},
		&recipes.Recipe{},
		&recipes.RecipeStep{},
		&recipes.StepComment{},
		&recipes.Collection{},
		&recipes.Review{},
		&recipes.ReviewFeedback{},
		&recipes.Challenge{},
		&recipes.UserChallenge{},
	}
}

type (
	User                    = user.User
	Role                    = user.Role
	Permission              = user.Permission
	Notification            = user.Notification
	NotificationPreferences = user.NotificationPreferences
	Recipe                  = recipes.Recipe
	Collection              = recipes.Collection
	Review                  = recipes.Review
	ReviewFeedback          = recipes.ReviewFeedback
	Challenge               = recipes.Challenge
	UserChallenge           = recipes.UserChallenge
)

var (
	NewUser   = user.NewUser
	SeedRoles = user.SeedRoles
)
