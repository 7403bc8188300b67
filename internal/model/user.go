package model

import "time"

// User is the authenticated account profile.
type User struct {
	ID        int       `json:"id"`
	Email     string    `json:"email"`
	Active    bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// Token is the login response.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}
