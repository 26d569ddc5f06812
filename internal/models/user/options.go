package models

import "encoding/json"

// WithName sets the display name.
func WithName(name string) UserOption {
	return func(u *User) { u.Profile.Name = name }
}

func WithBio(bio string) UserOption {
	return func(u *User) { u.Profile.Bio = bio }
}

func WithAvatarURL(url string) UserOption {
	return func(u *User) { u.Profile.AvatarURL = url }
}

func WithLocation(location string) UserOption {
	return func(u *User) { u.Profile.Location = location }
}

func WithFavCuisines(cuisines []string) UserOption {
	return func(u *User) {
		if json, err := json.Marshal(cuisines); err == nil {
			u.Profile.FavCuisines = string(json)
		}
	}
}

// UpdateProfileRequest is the body of PUT /me. Nil fields are left untouched.
type UpdateProfileRequest struct {
	Name        *string   `json:"name" validate:"omitempty,max=100"`
	Bio         *string   `json:"bio" validate:"omitempty,max=255"`
	AvatarURL   *string   `json:"avatar_url" validate:"omitempty,url"`
	Location    *string   `json:"location" validate:"omitempty,max=100"`
	FavCuisines *[]string `json:"fav_cuisines" validate:"omitempty,max=20"`
	EmailOnWins *bool     `json:"email_on_challenge" validate:"omitempty"`
}

// Options turns the request into user options.
func (r UpdateProfileRequest) Options() []UserOption {
	var opts []UserOption
	if r.Name != nil {
		opts = append(opts, WithName(*r.Name))
	}
	if r.Bio != nil {
		opts = append(opts, WithBio(*r.Bio))
	}
	if r.AvatarURL != nil {
		opts = append(opts, WithAvatarURL(*r.AvatarURL))
	}
	if r.Location != nil {
		opts = append(opts, WithLocation(*r.Location))
	}
	if r.FavCuisines != nil {
		opts = append(opts, WithFavCuisines(*r.FavCuisines))
	}
	return opts
}
