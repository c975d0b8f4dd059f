package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/capdev-portal-api/internal/dto"
	"github.com/noah-isme/capdev-portal-api/internal/models"
	appErrors "github.com/noah-isme/capdev-portal-api/pkg/errors"
	"github.com/noah-isme/capdev-portal-api/pkg/export"
)

const defaultExportMaxRows = 5000

type requestExporter interface {
	ListForExport(ctx context.Context, filter models.RequestFilter, limit int) ([]models.Request, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, widths []float64) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	Enabled bool
	MaxRows int
}

// ExportService renders filtered request listings as CSV or PDF downloads.
type ExportService struct {
	repo   requestExporter
	audit  auditLogger
	csv    csvRenderer
	pdf    pdfRenderer
	logger *zap.Logger
	cfg    ExportConfig
	now    func() time.Time
}

// NewExportService constructs an ExportService. Nil renderers fall back to pkg/export.
func NewExportService(repo requestExporter, audit auditLogger, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = defaultExportMaxRows
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{repo: repo, audit: audit, csv: csv, pdf: pdf, logger: logger, cfg: cfg, now: time.Now}
}

var requestExportHeaders = []string{"ID", "Title", "Status", "Owner", "Matched Partner", "Countries", "Format", "Start", "End", "Budget (USD)", "Created"}

var requestExportWidths = []float64{1, 6, 2.5, 1.2, 1.6, 2, 1.6, 2, 2, 2, 2}

// ExportRequests renders the requests matching query. Administrators only.
func (s *ExportService) ExportRequests(ctx context.Context, query dto.RequestQuery, format dto.ExportFormat, actor *models.JWTClaims) (*dto.ExportResult, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !s.cfg.Enabled {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "exports are disabled")
	}
	if !actor.IsAdministrator() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators may export requests")
	}
	if format != dto.ExportFormatCSV && format != dto.ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	for _, code := range query.Status {
		if !code.Known() {
			return nil, appErrors.Clone(appErrors.ErrInvalidStatus, fmt.Sprintf("unknown status %q", code))
		}
	}

	filter := models.RequestFilter{Status: query.Status, Search: query.Search}
	if query.Mine {
		self := actor.UserID
		filter.UserID = &self
	}
	requests, err := s.repo.ListForExport(ctx, filter, s.cfg.MaxRows)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load requests for export")
	}

	generated := s.now().UTC()
	dataset := export.Dataset{
		Title:   fmt.Sprintf("Capacity development requests (%s)", generated.Format("2006-01-02")),
		Headers: requestExportHeaders,
		Rows:    make([][]string, 0, len(requests)),
	}
	for i := range requests {
		dataset.Rows = append(dataset.Rows, requestExportRow(&requests[i]))
	}

	result := &dto.ExportResult{
		Filename: fmt.Sprintf("requests_%s.%s", generated.Format("20060102_150405"), format),
		Rows:     len(requests),
	}
	switch format {
	case dto.ExportFormatCSV:
		result.ContentType = "text/csv; charset=utf-8"
		result.Body, err = s.csv.Render(dataset)
	case dto.ExportFormatPDF:
		result.ContentType = "application/pdf"
		result.Body, err = s.pdf.Render(dataset, requestExportWidths)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	if len(requests) == s.cfg.MaxRows {
		s.logger.Warn("request export truncated", zap.Int("max_rows", s.cfg.MaxRows))
	}
	s.emitAudit(ctx, actor.UserID, format, len(requests))
	return result, nil
}

func requestExportRow(req *models.Request) []string {
	partner := ""
	if req.MatchedPartnerID != nil {
		partner = strconv.FormatInt(*req.MatchedPartnerID, 10)
	}
	budget := ""
	if b := req.Detail.Financial.EstimatedBudgetUSD; b != nil {
		budget = strconv.FormatFloat(*b, 'f', 2, 64)
	}
	delivery := req.Detail.Delivery
	return []string{
		strconv.FormatInt(req.ID, 10),
		req.Title(),
		req.Status.Label(),
		strconv.FormatInt(req.UserID, 10),
		partner,
		strings.Join(delivery.Countries, " "),
		string(delivery.Format),
		delivery.StartDate,
		delivery.EndDate,
		budget,
		req.CreatedAt.UTC().Format("2006-01-02"),
	}
}

func (s *ExportService) emitAudit(ctx context.Context, actorID int64, format dto.ExportFormat, rows int) {
	if s.audit == nil {
		return
	}
	log := &models.AuditLog{
		UserID:    &actorID,
		Action:    models.AuditActionRequestExport,
		Resource:  "request",
		NewValues: marshalAudit(map[string]interface{}{"format": format, "rows": rows}),
		IPAddress: "system",
		UserAgent: "export-service",
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.String("action", log.Action), zap.Error(err))
	}
}
