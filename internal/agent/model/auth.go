package model

import (
	"context"
	"time"
)

// AuthData is the persisted login session for the auth backend tools.
type AuthData struct {
	IsLoggedIn    bool              `json:"isLoggedIn"`
	Cookies       map[string]string `json:"cookies"`
	Token         string            `json:"token"`
	UserData      map[string]any    `json:"userData"`
	LastLoginTime *time.Time        `json:"lastLoginTime"`
}

// DefaultAuthData returns the logged-out structure.
func DefaultAuthData() *AuthData {
	return &AuthData{
		Cookies:  map[string]string{},
		UserData: map[string]any{},
	}
}

type AuthRepository interface {
	Load(ctx context.Context) (*AuthData, error)
	Save(ctx context.Context, data *AuthData) error
	Clear(ctx context.Context) error
}
