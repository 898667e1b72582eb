package model

import "time"

// Session is a logged-in staff console session. The upstream bearer token is
// kept sealed and never leaves the server.
type Session struct {
	ID               int64     `json:"id"`
	Token            string    `json:"-"`
	Email            string    `json:"email"`
	Name             string    `json:"name"`
	SealedCredential []byte    `json:"-"`
	ExpiresAt        time.Time `json:"expires_at"`
	CreatedAt        time.Time `json:"created_at"`
}

// LoginResult is the upstream answer to a successful login.
type LoginResult struct {
	Token string `json:"token"`
	User  string `json:"user"`
}
