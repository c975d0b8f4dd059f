package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/capdev-portal-api/internal/models"
)

// StatusRepository reads the request status registry table.
type StatusRepository struct {
	db *sqlx.DB
}

// NewStatusRepository constructs the repository.
func NewStatusRepository(db *sqlx.DB) *StatusRepository {
	return &StatusRepository{db: db}
}

// List returns all registry rows in lifecycle order.
func (r *StatusRepository) List(ctx context.Context) ([]models.RequestStatus, error) {
	const query = `SELECT status_code, status_label, ordering, terminal FROM request_statuses ORDER BY ordering ASC`
	var statuses []models.RequestStatus
	if err := r.db.SelectContext(ctx, &statuses, query); err != nil {
		return nil, fmt.Errorf("list request statuses: %w", err)
	}
	return statuses, nil
}
