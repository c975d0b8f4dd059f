package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/capdev-portal-api/internal/models"
)

const preferenceColumns = `id, user_id, entity_type, attribute_type, attribute_value, email_notification_enabled, created_at, updated_at`

// PreferenceRepository persists notification preferences.
type PreferenceRepository struct {
	db *sqlx.DB
}

// NewPreferenceRepository constructs the repository.
func NewPreferenceRepository(db *sqlx.DB) *PreferenceRepository {
	return &PreferenceRepository{db: db}
}

// Create stores a preference; ErrDuplicate is returned when the tuple already exists for the user.
func (r *PreferenceRepository) Create(ctx context.Context, pref *models.NotificationPreference) error {
	const query = `INSERT INTO notification_preferences (user_id, entity_type, attribute_type, attribute_value, email_notification_enabled)
VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at, updated_at`
	row := r.db.QueryRowxContext(ctx, query, pref.UserID, pref.EntityType, pref.AttributeType, pref.AttributeValue, pref.EmailNotificationEnabled)
	if err := row.Scan(&pref.ID, &pref.CreatedAt, &pref.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create preference: %w", err)
	}
	return nil
}

// GetByID returns one preference.
func (r *PreferenceRepository) GetByID(ctx context.Context, id int64) (*models.NotificationPreference, error) {
	query := `SELECT ` + preferenceColumns + ` FROM notification_preferences WHERE id = $1`
	var pref models.NotificationPreference
	if err := r.db.GetContext(ctx, &pref, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get preference: %w", err)
	}
	return &pref, nil
}

// ListByUser returns the preferences of a user.
func (r *PreferenceRepository) ListByUser(ctx context.Context, userID int64) ([]models.NotificationPreference, error) {
	query := `SELECT ` + preferenceColumns + ` FROM notification_preferences WHERE user_id = $1 ORDER BY entity_type, attribute_type, attribute_value`
	var prefs []models.NotificationPreference
	if err := r.db.SelectContext(ctx, &prefs, query, userID); err != nil {
		return nil, fmt.Errorf("list preferences: %w", err)
	}
	return prefs, nil
}

// SetEmailEnabled toggles email delivery for a preference.
func (r *PreferenceRepository) SetEmailEnabled(ctx context.Context, id int64, enabled bool) error {
	const query = `UPDATE notification_preferences SET email_notification_enabled = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, enabled, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update preference: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a preference.
func (r *PreferenceRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM notification_preferences WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete preference: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// FindEnabledUserIDs returns users with an enabled preference on the exact (entity, attribute, value) tuple.
func (r *PreferenceRepository) FindEnabledUserIDs(ctx context.Context, entity models.EntityType, attr models.AttributeValue) ([]int64, error) {
	const query = `SELECT DISTINCT user_id FROM notification_preferences
WHERE entity_type = $1 AND attribute_type = $2 AND attribute_value = $3 AND email_notification_enabled = TRUE`
	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, query, entity, attr.Type, attr.Value); err != nil {
		return nil, fmt.Errorf("find interested users: %w", err)
	}
	return ids, nil
}
