package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/capdev-portal-api/internal/models"
)

const sessionColumns = `id, user_id, token_hash, expires_at, created_at, revoked_at, replaced_by, ip_address, user_agent`

// SessionRepository stores refresh-token sessions.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository creates a SessionRepository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create persists a new session, assigning an id when none is set.
func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO sessions (id, user_id, token_hash, expires_at, created_at, ip_address, user_agent) VALUES (:id, :user_id, :token_hash, :expires_at, :created_at, :ip_address, :user_agent)`
	if _, err := r.db.NamedExecContext(ctx, query, session); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// FindByTokenHash returns the session owning a refresh token digest, revoked or not.
func (r *SessionRepository) FindByTokenHash(ctx context.Context, hash string) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE token_hash = $1`
	var session models.Session
	if err := r.db.GetContext(ctx, &session, query, hash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find session: %w", err)
	}
	return &session, nil
}

// Revoke closes an open session. It reports false when the session was already
// closed, which lets a refresh detect that another caller rotated it first.
func (r *SessionRepository) Revoke(ctx context.Context, id string, at time.Time, replacedBy *string) (bool, error) {
	const query = `UPDATE sessions SET revoked_at = $2, replaced_by = $3 WHERE id = $1 AND revoked_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, id, at, replacedBy)
	if err != nil {
		return false, fmt.Errorf("revoke session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("revoke session: %w", err)
	}
	return affected == 1, nil
}

// RevokeAllForUser closes every open session of a user.
func (r *SessionRepository) RevokeAllForUser(ctx context.Context, userID int64, at time.Time) (int64, error) {
	const query = `UPDATE sessions SET revoked_at = $2 WHERE user_id = $1 AND revoked_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, userID, at)
	if err != nil {
		return 0, fmt.Errorf("revoke user sessions: %w", err)
	}
	return res.RowsAffected()
}

// DeleteExpired purges sessions that expired before cutoff.
func (r *SessionRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return res.RowsAffected()
}
