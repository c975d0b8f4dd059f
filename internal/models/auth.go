package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ClientInfo identifies the caller of an auth endpoint for the audit trail.
type ClientInfo struct {
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	ClientInfo
}

// RefreshRequest exchanges a refresh token for a new pair.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
	ClientInfo
}

// LogoutRequest closes the session owning RefreshToken, or every session of the
// caller when AllSessions is set.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required_without=AllSessions"`
	AllSessions  bool   `json:"all_sessions"`
	ClientInfo
}

// TokenPair is returned by login and refresh.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int64     `json:"expires_in"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// LoginResponse carries the issued pair and the signed-in account.
type LoginResponse struct {
	TokenPair
	Account Account `json:"account"`
}

// Account is the public view of a portal user.
type Account struct {
	ID           int64      `json:"id"`
	Email        string     `json:"email"`
	FullName     string     `json:"full_name"`
	Organization string     `json:"organization,omitempty"`
	Role         UserRole   `json:"role"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
}

// AccountOf projects a stored user onto its public view.
func AccountOf(u *User) Account {
	return Account{
		ID:           u.ID,
		Email:        u.Email,
		FullName:     u.FullName,
		Organization: u.Organization,
		Role:         u.Role,
		LastLogin:    u.LastLogin,
	}
}

// JWTClaims is the access token payload. Handlers pass it to services as the
// acting user.
type JWTClaims struct {
	UserID       int64    `json:"uid"`
	Role         UserRole `json:"role"`
	Email        string   `json:"email"`
	FullName     string   `json:"name,omitempty"`
	Organization string   `json:"org,omitempty"`
	jwt.RegisteredClaims
}

// IsAdministrator reports whether the actor may perform administrative actions.
func (c *JWTClaims) IsAdministrator() bool {
	return c != nil && c.Role == RoleAdministrator
}

// IsPartner reports whether the actor is a partner organisation account.
func (c *JWTClaims) IsPartner() bool {
	return c != nil && c.Role == RolePartner
}
