package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session is a row of user_sessions. TokenDigest holds the SHA-256 hex of the
// bearer token; the raw token is never stored.
type Session struct {
	ID          int64     `db:"id"`
	UserID      int64     `db:"user_id"`
	TokenDigest string    `db:"session_token"`
	ExpiresAt   time.Time `db:"expires_at"`
	CreatedAt   time.Time `db:"created_at"`
}

// SessionClaims is the signed payload of a session token.
type SessionClaims struct {
	UserID int64 `json:"userId"`
	jwt.RegisteredClaims
}
