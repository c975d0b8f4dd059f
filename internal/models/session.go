package models

import "time"

// Session is one signed-in device. The refresh token itself is never stored,
// only its SHA-256 digest.
type Session struct {
	ID         string     `db:"id" json:"id"`
	UserID     int64      `db:"user_id" json:"user_id"`
	TokenHash  string     `db:"token_hash" json:"-"`
	ExpiresAt  time.Time  `db:"expires_at" json:"expires_at"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	RevokedAt  *time.Time `db:"revoked_at" json:"revoked_at,omitempty"`
	ReplacedBy *string    `db:"replaced_by" json:"replaced_by,omitempty"`
	IPAddress  string     `db:"ip_address" json:"ip_address"`
	UserAgent  string     `db:"user_agent" json:"user_agent"`
}

// Revoked reports whether the session was closed by logout or rotation.
func (s *Session) Revoked() bool {
	return s.RevokedAt != nil
}

// Usable reports whether the refresh token may still be exchanged at now.
func (s *Session) Usable(now time.Time) bool {
	return !s.Revoked() && now.Before(s.ExpiresAt)
}
