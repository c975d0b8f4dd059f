package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/capdev-portal-api/internal/models"
	appErrors "github.com/noah-isme/capdev-portal-api/pkg/errors"
)

const (
	tokenTypeBearer = "Bearer"
	refreshTokenLen = 32
	clockLeeway     = 30 * time.Second
)

type accountReader interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id int64) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id int64, ts time.Time) error
}

type sessionStore interface {
	Create(ctx context.Context, session *models.Session) error
	FindByTokenHash(ctx context.Context, hash string) (*models.Session, error)
	Revoke(ctx context.Context, id string, at time.Time, replacedBy *string) (bool, error)
	RevokeAllForUser(ctx context.Context, userID int64, at time.Time) (int64, error)
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	AccessTokenSecret  string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
	Issuer             string
	Audience           []string
	SingleSession      bool
}

// AuthService signs users in, rotates their refresh sessions and validates
// access tokens.
type AuthService struct {
	users     accountReader
	sessions  sessionStore
	audit     auditLogger
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
	now       func() time.Time
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(users accountReader, sessions sessionStore, audit auditLogger, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AuthService{
		users:     users,
		sessions:  sessions,
		audit:     audit,
		validator: validate,
		logger:    logger,
		config:    config,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Login checks credentials and opens a new session.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid login payload")
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrInvalidCredentials
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.ErrInvalidCredentials
	}
	if !user.Active {
		return nil, appErrors.ErrInactiveAccount
	}

	now := s.now()
	if s.config.SingleSession {
		if _, err := s.sessions.RevokeAllForUser(ctx, user.ID, now); err != nil {
			s.logger.Warn("failed to close previous sessions", zap.Int64("user_id", user.ID), zap.Error(err))
		}
	}

	pair, session, err := s.openSession(ctx, user, uuid.NewString(), req.ClientInfo)
	if err != nil {
		return nil, err
	}
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		s.logger.Warn("failed to update last login", zap.Int64("user_id", user.ID), zap.Error(err))
	}
	s.record(ctx, user.ID, models.AuditActionLogin, map[string]string{"session": session.ID}, req.ClientInfo)

	account := models.AccountOf(user)
	account.LastLogin = &now
	return &models.LoginResponse{TokenPair: *pair, Account: account}, nil
}

// Refresh rotates a session: the presented token is closed and a new pair is
// issued. Presenting a token that was already rotated closes every session of
// its owner, since only a leaked copy can still hold it.
func (s *AuthService) Refresh(ctx context.Context, req models.RefreshRequest) (*models.TokenPair, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid refresh payload")
	}

	session, err := s.lookup(ctx, req.RefreshToken)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if session.Revoked() {
		s.revokeEverything(ctx, session, req.ClientInfo)
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "refresh token has already been used")
	}
	if !session.Usable(now) {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "refresh token has expired")
	}

	user, err := s.users.FindByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "account no longer exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if !user.Active {
		return nil, appErrors.ErrInactiveAccount
	}

	nextID := uuid.NewString()
	rotated, err := s.sessions.Revoke(ctx, session.ID, now, &nextID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to rotate session")
	}
	if !rotated {
		s.revokeEverything(ctx, session, req.ClientInfo)
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "refresh token has already been used")
	}

	pair, _, err := s.openSession(ctx, user, nextID, req.ClientInfo)
	if err != nil {
		return nil, err
	}
	s.record(ctx, user.ID, models.AuditActionTokenRefresh, map[string]string{"from": session.ID, "to": nextID}, req.ClientInfo)
	return pair, nil
}

// Logout closes the caller's session, or all of them.
func (s *AuthService) Logout(ctx context.Context, req models.LogoutRequest, actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Validation(err, "refresh token required")
	}
	now := s.now()

	if req.AllSessions {
		closed, err := s.sessions.RevokeAllForUser(ctx, actor.UserID, now)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to close sessions")
		}
		s.record(ctx, actor.UserID, models.AuditActionLogout, map[string]string{"sessions": strconv.FormatInt(closed, 10)}, req.ClientInfo)
		return nil
	}

	session, err := s.lookup(ctx, req.RefreshToken)
	if err != nil {
		return err
	}
	if session.UserID != actor.UserID {
		return appErrors.Clone(appErrors.ErrForbidden, "session belongs to another account")
	}
	if _, err := s.sessions.Revoke(ctx, session.ID, now, nil); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to close session")
	}
	s.record(ctx, actor.UserID, models.AuditActionLogout, map[string]string{"session": session.ID}, req.ClientInfo)
	return nil
}

// Profile returns the stored account behind a token.
func (s *AuthService) Profile(ctx context.Context, actor *models.JWTClaims) (*models.Account, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	user, err := s.users.FindByID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "account no longer exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	account := models.AccountOf(user)
	return &account, nil
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(clockLeeway),
		jwt.WithTimeFunc(s.now),
	}
	if s.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.config.Issuer))
	}
	if len(s.config.Audience) > 0 {
		opts = append(opts, jwt.WithAudience(s.config.Audience[0]))
	}

	claims := &models.JWTClaims{}
	token, err := jwt.NewParser(opts...).ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(s.config.AccessTokenSecret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "token expired")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}
	if !token.Valid || claims.UserID == 0 {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	return claims, nil
}

func (s *AuthService) openSession(ctx context.Context, user *models.User, sessionID string, client models.ClientInfo) (*models.TokenPair, *models.Session, error) {
	now := s.now()
	access, expiresAt, err := s.signAccessToken(user, sessionID, now)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign access token")
	}
	refresh, err := newRefreshToken()
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create refresh token")
	}

	session := &models.Session{
		ID:        sessionID,
		UserID:    user.ID,
		TokenHash: hashRefreshToken(refresh),
		ExpiresAt: now.Add(s.config.RefreshTokenExpiry),
		CreatedAt: now,
		IPAddress: client.IP,
		UserAgent: client.UserAgent,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist session")
	}

	return &models.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    tokenTypeBearer,
		ExpiresIn:    int64(s.config.AccessTokenExpiry.Seconds()),
		ExpiresAt:    expiresAt,
	}, session, nil
}

func (s *AuthService) lookup(ctx context.Context, refreshToken string) (*models.Session, error) {
	session, err := s.sessions.FindByTokenHash(ctx, hashRefreshToken(refreshToken))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "unknown refresh token")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	return session, nil
}

func (s *AuthService) revokeEverything(ctx context.Context, session *models.Session, client models.ClientInfo) {
	closed, err := s.sessions.RevokeAllForUser(ctx, session.UserID, s.now())
	if err != nil {
		s.logger.Error("failed to close sessions after token reuse", zap.Int64("user_id", session.UserID), zap.Error(err))
		return
	}
	s.logger.Warn("refresh token reuse detected",
		zap.Int64("user_id", session.UserID),
		zap.String("session_id", session.ID),
		zap.Int64("closed_sessions", closed),
		zap.String("ip", client.IP),
	)
	s.record(ctx, session.UserID, models.AuditActionSessionReuse, map[string]string{"session": session.ID}, client)
}

func (s *AuthService) signAccessToken(user *models.User, sessionID string, issuedAt time.Time) (string, time.Time, error) {
	expiresAt := issuedAt.Add(s.config.AccessTokenExpiry)
	claims := &models.JWTClaims{
		UserID:       user.ID,
		Role:         user.Role,
		Email:        user.Email,
		FullName:     user.FullName,
		Organization: user.Organization,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			Issuer:    s.config.Issuer,
			Subject:   strconv.FormatInt(user.ID, 10),
			Audience:  s.config.Audience,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.AccessTokenSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func (s *AuthService) record(ctx context.Context, userID int64, action string, values map[string]string, client models.ClientInfo) {
	if s.audit == nil {
		return
	}
	resourceID := strconv.FormatInt(userID, 10)
	entry := &models.AuditLog{
		UserID:     &userID,
		Action:     action,
		Resource:   "session",
		ResourceID: &resourceID,
		NewValues:  marshalAudit(values),
		IPAddress:  client.IP,
		UserAgent:  client.UserAgent,
	}
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to persist audit log", zap.String("action", action), zap.Error(err))
	}
}

func newRefreshToken() (string, error) {
	buf := make([]byte, refreshTokenLen)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func hashRefreshToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
