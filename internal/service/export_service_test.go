package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/capdev-portal-api/internal/dto"
	"github.com/noah-isme/capdev-portal-api/internal/models"
	appErrors "github.com/noah-isme/capdev-portal-api/pkg/errors"
)

type requestExporterStub struct {
	rows       []models.Request
	err        error
	lastFilter models.RequestFilter
	lastLimit  int
}

func (s *requestExporterStub) ListForExport(ctx context.Context, filter models.RequestFilter, limit int) ([]models.Request, error) {
	s.lastFilter = filter
	s.lastLimit = limit
	return s.rows, s.err
}

func exportRows() []models.Request {
	budget := 12500.5
	partner := partnerID
	detail := validDetail()
	detail.Financial.EstimatedBudgetUSD = &budget
	return []models.Request{
		{ID: 1, UserID: ownerID, Status: models.StatusMatchMade, MatchedPartnerID: &partner, Detail: detail, CreatedAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)},
		{ID: 2, UserID: otherID, Status: models.StatusDraft, Detail: validDetail(), CreatedAt: time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC)},
	}
}

func TestExportRequestsCSV(t *testing.T) {
	repo := &requestExporterStub{rows: exportRows()}
	audit := &auditLogStub{}
	svc := NewExportService(repo, audit, ExportConfig{Enabled: true, MaxRows: 50}, nil, nil, nil)
	svc.now = func() time.Time { return time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC) }

	result, err := svc.ExportRequests(context.Background(), dto.RequestQuery{Status: []models.RequestStatusCode{models.StatusMatchMade, models.StatusDraft}}, dto.ExportFormatCSV, adminClaims)
	require.NoError(t, err)
	assert.Equal(t, "requests_20260304_050607.csv", result.Filename)
	assert.Equal(t, 2, result.Rows)
	assert.Equal(t, 50, repo.lastLimit)
	assert.Len(t, repo.lastFilter.Status, 2)

	body := string(bytes.TrimPrefix(result.Body, []byte("\ufeff")))
	lines := strings.Split(strings.TrimSpace(body), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "ID,Title,Status"))
	assert.Equal(t, "1,Sea turtle bycatch training,Match Made,1,3,KE,on_site,2026-03-01,2026-03-10,12500.50,2026-02-01", lines[1])
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionRequestExport, audit.logs[0].Action)
}

func TestExportRequestsPDF(t *testing.T) {
	svc := NewExportService(&requestExporterStub{rows: exportRows()}, nil, ExportConfig{Enabled: true}, nil, nil, nil)
	result, err := svc.ExportRequests(context.Background(), dto.RequestQuery{}, dto.ExportFormatPDF, adminClaims)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", result.ContentType)
	assert.True(t, bytes.HasPrefix(result.Body, []byte("%PDF")))
}

func TestExportRequestsGuards(t *testing.T) {
	repo := &requestExporterStub{}
	svc := NewExportService(repo, nil, ExportConfig{Enabled: true}, nil, nil, nil)

	_, err := svc.ExportRequests(context.Background(), dto.RequestQuery{}, dto.ExportFormatCSV, ownerClaims)
	assertAppError(t, err, appErrors.ErrForbidden)

	_, err = svc.ExportRequests(context.Background(), dto.RequestQuery{}, "xlsx", adminClaims)
	assertAppError(t, err, appErrors.ErrValidation)

	_, err = svc.ExportRequests(context.Background(), dto.RequestQuery{Status: []models.RequestStatusCode{"archived"}}, dto.ExportFormatCSV, adminClaims)
	assertAppError(t, err, appErrors.ErrInvalidStatus)

	repo.err = errors.New("db down")
	_, err = svc.ExportRequests(context.Background(), dto.RequestQuery{}, dto.ExportFormatCSV, adminClaims)
	assertAppError(t, err, appErrors.ErrInternal)

	disabled := NewExportService(repo, nil, ExportConfig{}, nil, nil, nil)
	_, err = disabled.ExportRequests(context.Background(), dto.RequestQuery{}, dto.ExportFormatCSV, adminClaims)
	assertAppError(t, err, appErrors.ErrNotFound)
}
