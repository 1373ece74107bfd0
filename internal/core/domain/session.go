package domain

import "time"

// Session represents an issued token pair. The access token references
// the session by ID; the refresh token is rotated on every refresh.
type Session struct {
	ID             string    `json:"id" db:"id"`
	UserID         string    `json:"user_id" db:"user_id"`
	RefreshTokenID string    `json:"refresh_token_id" db:"refresh_token_id"`
	IssuedAt       time.Time `json:"issued_at" db:"issued_at"`
	ExpiresAt      time.Time `json:"expires_at" db:"expires_at"`
	Revoked        bool      `json:"revoked" db:"revoked"`
}

// Expired reports whether the session is past its expiry.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Active reports whether the session can still authenticate requests.
func (s *Session) Active(now time.Time) bool {
	return !s.Revoked && !s.Expired(now)
}
