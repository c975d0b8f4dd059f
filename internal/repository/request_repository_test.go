package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/capdev-portal-api/internal/models"
)

var requestRowColumns = []string{"id", "user_id", "status_code", "matched_partner_id", "detail", "created_at", "updated_at"}

const sampleDetail = `{"identification":{"title":"Ocean data workshop","description":"two days"},"delivery":{},"financial":{"needs_financial_support":false},"impact":{}}`

func TestRequestRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRequestRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO requests (user_id, status_code, detail) VALUES ($1, $2, $3) RETURNING id, created_at, updated_at")).
		WithArgs(int64(7), "draft", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(11, now, now))

	req := &models.Request{UserID: 7, Status: models.StatusDraft, Detail: models.RequestDetail{Identification: models.RequestIdentification{Title: "t", Description: "d"}}}
	require.NoError(t, repo.Create(context.Background(), req))
	assert.Equal(t, int64(11), req.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryGetByIDScansDetail(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRequestRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM requests WHERE id = $1")).
		WithArgs(int64(11)).
		WillReturnRows(sqlmock.NewRows(requestRowColumns).AddRow(11, 7, "validated", nil, []byte(sampleDetail), now, now))

	req, err := repo.GetByID(context.Background(), 11)
	require.NoError(t, err)
	assert.Equal(t, models.StatusValidated, req.Status)
	assert.Nil(t, req.MatchedPartnerID)
	assert.Equal(t, "Ocean data workshop", req.Title())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryUpdateDetailGuardsStatus(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRequestRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE requests SET detail = $2, updated_at = $3 WHERE id = $1 AND status_code = ANY($4)")).
		WithArgs(int64(11), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.UpdateDetail(context.Background(), 11, models.RequestDetail{}, []models.RequestStatusCode{models.StatusDraft})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryListAppliesViewerScope(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRequestRepository(db)

	viewer := int64(5)
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM requests WHERE 1=1 AND (user_id = $1 OR status_code = ANY($2)) AND LOWER(detail->'identification'->>'title') LIKE $3 ORDER BY created_at DESC, id DESC LIMIT 20 OFFSET 0")).
		WithArgs(viewer, sqlmock.AnyArg(), "%ocean%").
		WillReturnRows(sqlmock.NewRows(requestRowColumns).AddRow(1, 5, "draft", nil, []byte(sampleDetail), now, now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM requests WHERE 1=1 AND (user_id = $1 OR status_code = ANY($2))")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	items, total, err := repo.List(context.Background(), models.RequestFilter{
		ViewerID:       &viewer,
		ViewerStatuses: []models.RequestStatusCode{models.StatusValidated},
		Search:         "Ocean",
	})
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
