package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/capdev-portal-api/internal/models"
)

// SubscriptionRepository persists request subscriptions.
type SubscriptionRepository struct {
	db *sqlx.DB
}

// NewSubscriptionRepository constructs the repository.
func NewSubscriptionRepository(db *sqlx.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// Create stores a subscription; ErrDuplicate is returned when the pair already exists.
func (r *SubscriptionRepository) Create(ctx context.Context, sub *models.RequestSubscription) error {
	const query = `INSERT INTO request_subscriptions (user_id, request_id) VALUES ($1, $2) RETURNING id, created_at`
	if err := r.db.QueryRowxContext(ctx, query, sub.UserID, sub.RequestID).Scan(&sub.ID, &sub.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create subscription: %w", err)
	}
	return nil
}

// Delete removes the subscription of userID on requestID.
func (r *SubscriptionRepository) Delete(ctx context.Context, userID, requestID int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM request_subscriptions WHERE user_id = $1 AND request_id = $2`, userID, requestID)
	if err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListByRequest returns the subscriptions on a request.
func (r *SubscriptionRepository) ListByRequest(ctx context.Context, requestID int64) ([]models.RequestSubscription, error) {
	const query = `SELECT id, user_id, request_id, created_at FROM request_subscriptions WHERE request_id = $1 ORDER BY created_at ASC`
	var subs []models.RequestSubscription
	if err := r.db.SelectContext(ctx, &subs, query, requestID); err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	return subs, nil
}

// SubscriberIDs returns the user ids subscribed to a request.
func (r *SubscriptionRepository) SubscriberIDs(ctx context.Context, requestID int64) ([]int64, error) {
	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, `SELECT user_id FROM request_subscriptions WHERE request_id = $1`, requestID); err != nil {
		return nil, fmt.Errorf("list subscriber ids: %w", err)
	}
	return ids, nil
}
