package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/capdev-portal-api/internal/models"
)

const opportunityColumns = `id, user_id, title, type, status, summary, coverage_activity, target_audience, implementation_location, url, closing_date, created_at, updated_at`

// OpportunityRepository persists partner-published opportunities.
type OpportunityRepository struct {
	db *sqlx.DB
}

// NewOpportunityRepository constructs the repository.
func NewOpportunityRepository(db *sqlx.DB) *OpportunityRepository {
	return &OpportunityRepository{db: db}
}

// Create inserts an opportunity.
func (r *OpportunityRepository) Create(ctx context.Context, opp *models.Opportunity) error {
	const query = `INSERT INTO opportunities (user_id, title, type, status, summary, coverage_activity, target_audience, implementation_location, url, closing_date)
VALUES (:user_id, :title, :type, :status, :summary, :coverage_activity, :target_audience, :implementation_location, :url, :closing_date)
RETURNING id, created_at, updated_at`
	rows, err := r.db.NamedQueryContext(ctx, query, opp)
	if err != nil {
		return fmt.Errorf("create opportunity: %w", err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&opp.ID, &opp.CreatedAt, &opp.UpdatedAt); err != nil {
			return fmt.Errorf("scan opportunity: %w", err)
		}
	}
	return rows.Err()
}

// GetByID returns one opportunity.
func (r *OpportunityRepository) GetByID(ctx context.Context, id int64) (*models.Opportunity, error) {
	query := `SELECT ` + opportunityColumns + ` FROM opportunities WHERE id = $1`
	var opp models.Opportunity
	if err := r.db.GetContext(ctx, &opp, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get opportunity: %w", err)
	}
	return &opp, nil
}

// List returns opportunities matching the filter with the total count.
func (r *OpportunityRepository) List(ctx context.Context, filter models.OpportunityFilter) ([]models.Opportunity, int, error) {
	conditions := []string{"1=1"}
	var args []interface{}
	if len(filter.Status) > 0 {
		statuses := make([]string, len(filter.Status))
		for i, s := range filter.Status {
			statuses[i] = string(s)
		}
		args = append(args, pq.Array(statuses))
		conditions = append(conditions, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)))
	}
	where := strings.Join(conditions, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	query := fmt.Sprintf("SELECT %s FROM opportunities WHERE %s ORDER BY created_at DESC, id DESC LIMIT %d OFFSET %d", opportunityColumns, where, pageSize, (page-1)*pageSize)
	var items []models.Opportunity
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list opportunities: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) FROM opportunities WHERE %s", where), args...); err != nil {
		return nil, 0, fmt.Errorf("count opportunities: %w", err)
	}
	return items, total, nil
}

// UpdateStatus changes the moderation status.
func (r *OpportunityRepository) UpdateStatus(ctx context.Context, id int64, status models.OpportunityStatus) error {
	res, err := r.db.ExecContext(ctx, `UPDATE opportunities SET status = $2, updated_at = $3 WHERE id = $1`, id, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update opportunity status: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
