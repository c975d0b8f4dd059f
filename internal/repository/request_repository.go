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

const requestColumns = `id, user_id, status_code, matched_partner_id, detail, created_at, updated_at`

// RequestRepository persists capacity-development requests.
type RequestRepository struct {
	db *sqlx.DB
}

// NewRequestRepository constructs the repository.
func NewRequestRepository(db *sqlx.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// Create inserts a request and fills its identifier and timestamps.
func (r *RequestRepository) Create(ctx context.Context, req *models.Request) error {
	const query = `INSERT INTO requests (user_id, status_code, detail) VALUES ($1, $2, $3) RETURNING id, created_at, updated_at`
	row := r.db.QueryRowxContext(ctx, query, req.UserID, req.Status, req.Detail)
	if err := row.Scan(&req.ID, &req.CreatedAt, &req.UpdatedAt); err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return nil
}

// GetByID returns one request.
func (r *RequestRepository) GetByID(ctx context.Context, id int64) (*models.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests WHERE id = $1`
	var req models.Request
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get request: %w", err)
	}
	return &req, nil
}

// UpdateDetail replaces the detail payload while the request is still in one of the editable statuses.
// sql.ErrNoRows is returned when the request is missing or no longer editable.
func (r *RequestRepository) UpdateDetail(ctx context.Context, id int64, detail models.RequestDetail, editable []models.RequestStatusCode) (*models.Request, error) {
	query := `UPDATE requests SET detail = $2, updated_at = $3 WHERE id = $1 AND status_code = ANY($4) RETURNING ` + requestColumns
	var req models.Request
	if err := r.db.GetContext(ctx, &req, query, id, detail, time.Now().UTC(), pq.Array(statusStrings(editable))); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("update request detail: %w", err)
	}
	return &req, nil
}

// List returns requests matching the filter with the total count.
func (r *RequestRepository) List(ctx context.Context, filter models.RequestFilter) ([]models.Request, int, error) {
	where, args := buildRequestFilter(filter)

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s FROM requests WHERE %s ORDER BY created_at DESC, id DESC LIMIT %d OFFSET %d", requestColumns, where, pageSize, offset)
	var requests []models.Request
	if err := r.db.SelectContext(ctx, &requests, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list requests: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) FROM requests WHERE %s", where), args...); err != nil {
		return nil, 0, fmt.Errorf("count requests: %w", err)
	}
	return requests, total, nil
}

// ListForExport returns up to limit requests matching the filter, oldest first.
func (r *RequestRepository) ListForExport(ctx context.Context, filter models.RequestFilter, limit int) ([]models.Request, error) {
	where, args := buildRequestFilter(filter)
	query := fmt.Sprintf("SELECT %s FROM requests WHERE %s ORDER BY id ASC", requestColumns, where)
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	var requests []models.Request
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, fmt.Errorf("list requests for export: %w", err)
	}
	return requests, nil
}

func buildRequestFilter(filter models.RequestFilter) (string, []interface{}) {
	conditions := []string{"1=1"}
	var args []interface{}

	if len(filter.Status) > 0 {
		args = append(args, pq.Array(statusStrings(filter.Status)))
		conditions = append(conditions, fmt.Sprintf("status_code = ANY($%d)", len(args)))
	}
	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.MatchedPartnerID != nil {
		args = append(args, *filter.MatchedPartnerID)
		conditions = append(conditions, fmt.Sprintf("matched_partner_id = $%d", len(args)))
	}
	if filter.ViewerID != nil {
		args = append(args, *filter.ViewerID, pq.Array(statusStrings(filter.ViewerStatuses)))
		conditions = append(conditions, fmt.Sprintf("(user_id = $%d OR status_code = ANY($%d))", len(args)-1, len(args)))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+strings.ToLower(search)+"%")
		conditions = append(conditions, fmt.Sprintf("LOWER(detail->'identification'->>'title') LIKE $%d", len(args)))
	}
	return strings.Join(conditions, " AND "), args
}

func statusStrings(codes []models.RequestStatusCode) []string {
	out := make([]string, len(codes))
	for i, code := range codes {
		out[i] = string(code)
	}
	return out
}
