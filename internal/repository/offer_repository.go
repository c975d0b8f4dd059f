package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/capdev-portal-api/internal/models"
)

// OfferRepository reads offers outside of lifecycle transactions.
type OfferRepository struct {
	db *sqlx.DB
}

// NewOfferRepository constructs the repository.
func NewOfferRepository(db *sqlx.DB) *OfferRepository {
	return &OfferRepository{db: db}
}

// GetByID returns one offer.
func (r *OfferRepository) GetByID(ctx context.Context, id int64) (*models.Offer, error) {
	query := `SELECT ` + offerColumns + ` FROM offers WHERE id = $1`
	var offer models.Offer
	if err := r.db.GetContext(ctx, &offer, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get offer: %w", err)
	}
	return &offer, nil
}

// ListByRequest returns the offers made on a request, newest first.
func (r *OfferRepository) ListByRequest(ctx context.Context, requestID int64) ([]models.Offer, error) {
	query := `SELECT ` + offerColumns + ` FROM offers WHERE request_id = $1 ORDER BY created_at DESC, id DESC`
	var offers []models.Offer
	if err := r.db.SelectContext(ctx, &offers, query, requestID); err != nil {
		return nil, fmt.Errorf("list offers: %w", err)
	}
	return offers, nil
}
