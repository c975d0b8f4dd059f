package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/capdev-portal-api/internal/models"
	appErrors "github.com/noah-isme/capdev-portal-api/pkg/errors"
)

type accountStub struct {
	users     map[string]*models.User
	lastLogin map[int64]time.Time
}

func (a *accountStub) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	u, ok := a.users[email]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

func (a *accountStub) FindByID(ctx context.Context, id int64) (*models.User, error) {
	for _, u := range a.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (a *accountStub) UpdateLastLogin(ctx context.Context, id int64, ts time.Time) error {
	if a.lastLogin == nil {
		a.lastLogin = make(map[int64]time.Time)
	}
	a.lastLogin[id] = ts
	return nil
}

type sessionStoreStub struct {
	byHash map[string]*models.Session
}

func newSessionStoreStub() *sessionStoreStub {
	return &sessionStoreStub{byHash: make(map[string]*models.Session)}
}

func (s *sessionStoreStub) Create(ctx context.Context, session *models.Session) error {
	cp := *session
	s.byHash[session.TokenHash] = &cp
	return nil
}

func (s *sessionStoreStub) FindByTokenHash(ctx context.Context, hash string) (*models.Session, error) {
	session, ok := s.byHash[hash]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *session
	return &cp, nil
}

func (s *sessionStoreStub) Revoke(ctx context.Context, id string, at time.Time, replacedBy *string) (bool, error) {
	for _, session := range s.byHash {
		if session.ID == id && session.RevokedAt == nil {
			session.RevokedAt = &at
			session.ReplacedBy = replacedBy
			return true, nil
		}
	}
	return false, nil
}

func (s *sessionStoreStub) RevokeAllForUser(ctx context.Context, userID int64, at time.Time) (int64, error) {
	var n int64
	for _, session := range s.byHash {
		if session.UserID == userID && session.RevokedAt == nil {
			session.RevokedAt = &at
			n++
		}
	}
	return n, nil
}

func (s *sessionStoreStub) open(userID int64) int {
	n := 0
	for _, session := range s.byHash {
		if session.UserID == userID && session.RevokedAt == nil {
			n++
		}
	}
	return n
}

type authFixture struct {
	svc      *AuthService
	accounts *accountStub
	sessions *sessionStoreStub
	audit    *auditLogStub
}

func newAuthFixture(t *testing.T, cfg AuthConfig) *authFixture {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret-pass"), bcrypt.MinCost)
	require.NoError(t, err)
	accounts := &accountStub{users: map[string]*models.User{
		"focal@example.org":   {ID: ownerID, Email: "focal@example.org", PasswordHash: string(hash), FullName: "Focal Point", Organization: "Ministry of Fisheries", Role: models.RoleUser, Active: true},
		"retired@example.org": {ID: otherID, Email: "retired@example.org", PasswordHash: string(hash), Role: models.RoleUser},
	}}
	if cfg.AccessTokenSecret == "" {
		cfg.AccessTokenSecret = "secret"
	}
	if cfg.AccessTokenExpiry == 0 {
		cfg.AccessTokenExpiry = 15 * time.Minute
	}
	if cfg.RefreshTokenExpiry == 0 {
		cfg.RefreshTokenExpiry = 24 * time.Hour
	}
	sessions := newSessionStoreStub()
	audit := &auditLogStub{}
	return &authFixture{
		svc:      NewAuthService(accounts, sessions, audit, nil, nil, cfg),
		accounts: accounts,
		sessions: sessions,
		audit:    audit,
	}
}

func (f *authFixture) login(t *testing.T) *models.LoginResponse {
	t.Helper()
	res, err := f.svc.Login(context.Background(), models.LoginRequest{
		Email:      "focal@example.org",
		Password:   "s3cret-pass",
		ClientInfo: models.ClientInfo{IP: "10.0.0.1", UserAgent: "test"},
	})
	require.NoError(t, err)
	return res
}

func TestAuthLoginOpensHashedSession(t *testing.T) {
	f := newAuthFixture(t, AuthConfig{Issuer: "capdev-portal"})
	res := f.login(t)

	assert.Equal(t, "Bearer", res.TokenType)
	assert.Equal(t, int64(900), res.ExpiresIn)
	assert.Equal(t, "Ministry of Fisheries", res.Account.Organization)
	require.NotNil(t, res.Account.LastLogin)
	assert.Contains(t, f.accounts.lastLogin, ownerID)

	require.Len(t, f.sessions.byHash, 1)
	_, stored := f.sessions.byHash[res.RefreshToken]
	assert.False(t, stored, "refresh token must not be stored in clear")
	_, stored = f.sessions.byHash[hashRefreshToken(res.RefreshToken)]
	assert.True(t, stored)

	claims, err := f.svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, ownerID, claims.UserID)
	assert.Equal(t, "Ministry of Fisheries", claims.Organization)
	assert.NotEmpty(t, claims.ID)

	require.Len(t, f.audit.logs, 1)
	assert.Equal(t, models.AuditActionLogin, f.audit.logs[0].Action)
	assert.Equal(t, "10.0.0.1", f.audit.logs[0].IPAddress)
}

func TestAuthLoginFailures(t *testing.T) {
	f := newAuthFixture(t, AuthConfig{})
	ctx := context.Background()

	_, err := f.svc.Login(ctx, models.LoginRequest{Email: "focal@example.org", Password: "wrong"})
	assertAppError(t, err, appErrors.ErrInvalidCredentials)

	_, err = f.svc.Login(ctx, models.LoginRequest{Email: "nobody@example.org", Password: "s3cret-pass"})
	assertAppError(t, err, appErrors.ErrInvalidCredentials)

	_, err = f.svc.Login(ctx, models.LoginRequest{Email: "retired@example.org", Password: "s3cret-pass"})
	assertAppError(t, err, appErrors.ErrInactiveAccount)

	_, err = f.svc.Login(ctx, models.LoginRequest{Email: "not-an-email", Password: "x"})
	assertAppError(t, err, appErrors.ErrValidation)
	assert.NotEmpty(t, appErrors.FromError(err).Fields)

	assert.Empty(t, f.sessions.byHash)
}

func TestAuthSingleSessionClosesOthers(t *testing.T) {
	f := newAuthFixture(t, AuthConfig{SingleSession: true})
	f.login(t)
	f.login(t)
	assert.Len(t, f.sessions.byHash, 2)
	assert.Equal(t, 1, f.sessions.open(ownerID))
}

func TestAuthRefreshRotates(t *testing.T) {
	f := newAuthFixture(t, AuthConfig{})
	first := f.login(t)

	pair, err := f.svc.Refresh(context.Background(), models.RefreshRequest{RefreshToken: first.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, pair.RefreshToken)

	old := f.sessions.byHash[hashRefreshToken(first.RefreshToken)]
	next := f.sessions.byHash[hashRefreshToken(pair.RefreshToken)]
	require.NotNil(t, old.ReplacedBy)
	assert.Equal(t, next.ID, *old.ReplacedBy)
	assert.Equal(t, 1, f.sessions.open(ownerID))

	claims, err := f.svc.ValidateToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, next.ID, claims.ID)
}

func TestAuthRefreshReuseClosesEverySession(t *testing.T) {
	f := newAuthFixture(t, AuthConfig{})
	first := f.login(t)
	f.login(t)

	_, err := f.svc.Refresh(context.Background(), models.RefreshRequest{RefreshToken: first.RefreshToken})
	require.NoError(t, err)
	assert.Equal(t, 2, f.sessions.open(ownerID))

	_, err = f.svc.Refresh(context.Background(), models.RefreshRequest{RefreshToken: first.RefreshToken})
	assertAppError(t, err, appErrors.ErrUnauthorized)
	assert.Zero(t, f.sessions.open(ownerID))
	assert.Equal(t, models.AuditActionSessionReuse, f.audit.logs[len(f.audit.logs)-1].Action)
}

func TestAuthRefreshExpiredOrUnknown(t *testing.T) {
	f := newAuthFixture(t, AuthConfig{RefreshTokenExpiry: time.Minute})
	res := f.login(t)

	_, err := f.svc.Refresh(context.Background(), models.RefreshRequest{RefreshToken: "unknown"})
	assertAppError(t, err, appErrors.ErrUnauthorized)

	later := time.Now().UTC().Add(2 * time.Minute)
	f.svc.now = func() time.Time { return later }
	_, err = f.svc.Refresh(context.Background(), models.RefreshRequest{RefreshToken: res.RefreshToken})
	assertAppError(t, err, appErrors.ErrUnauthorized)
	assert.Equal(t, 1, f.sessions.open(ownerID))
}

func TestAuthLogout(t *testing.T) {
	f := newAuthFixture(t, AuthConfig{})
	ctx := context.Background()
	first := f.login(t)
	f.login(t)

	err := f.svc.Logout(ctx, models.LogoutRequest{RefreshToken: first.RefreshToken}, otherClaims)
	assertAppError(t, err, appErrors.ErrForbidden)

	err = f.svc.Logout(ctx, models.LogoutRequest{}, ownerClaims)
	assertAppError(t, err, appErrors.ErrValidation)

	require.NoError(t, f.svc.Logout(ctx, models.LogoutRequest{RefreshToken: first.RefreshToken}, ownerClaims))
	assert.Equal(t, 1, f.sessions.open(ownerID))

	require.NoError(t, f.svc.Logout(ctx, models.LogoutRequest{AllSessions: true}, ownerClaims))
	assert.Zero(t, f.sessions.open(ownerID))

	assertAppError(t, f.svc.Logout(ctx, models.LogoutRequest{AllSessions: true}, nil), appErrors.ErrUnauthorized)
}

func TestAuthProfile(t *testing.T) {
	f := newAuthFixture(t, AuthConfig{})
	account, err := f.svc.Profile(context.Background(), ownerClaims)
	require.NoError(t, err)
	assert.Equal(t, "focal@example.org", account.Email)

	_, err = f.svc.Profile(context.Background(), &models.JWTClaims{UserID: 999})
	assertAppError(t, err, appErrors.ErrUnauthorized)
}

func TestValidateTokenRejections(t *testing.T) {
	f := newAuthFixture(t, AuthConfig{Issuer: "capdev-portal", Audience: []string{"portal-web"}})
	res := f.login(t)

	_, err := f.svc.ValidateToken(res.AccessToken + "x")
	assertAppError(t, err, appErrors.ErrUnauthorized)

	other := newAuthFixture(t, AuthConfig{Issuer: "someone-else", Audience: []string{"portal-web"}})
	_, err = other.svc.ValidateToken(res.AccessToken)
	assertAppError(t, err, appErrors.ErrUnauthorized)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &models.JWTClaims{UserID: ownerID})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = f.svc.ValidateToken(unsigned)
	assertAppError(t, err, appErrors.ErrUnauthorized)

	f.svc.now = func() time.Time { return time.Now().Add(time.Hour) }
	_, err = f.svc.ValidateToken(res.AccessToken)
	require.Error(t, err)
	assert.Equal(t, "token expired", appErrors.FromError(err).Message)
}
