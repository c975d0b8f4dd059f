package handler

import (
	"bytes"
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/capdev-portal-api/internal/dto"
	"github.com/noah-isme/capdev-portal-api/internal/models"
	appErrors "github.com/noah-isme/capdev-portal-api/pkg/errors"
	"github.com/noah-isme/capdev-portal-api/pkg/response"
)

type requestService interface {
	Create(ctx context.Context, input dto.CreateRequestRequest, actor *models.JWTClaims) (*models.Request, error)
	UpdateDetail(ctx context.Context, id int64, input dto.UpdateRequestRequest, actor *models.JWTClaims) (*models.Request, error)
	Get(ctx context.Context, id int64, actor *models.JWTClaims) (*dto.RequestView, error)
	List(ctx context.Context, query dto.RequestQuery, actor *models.JWTClaims) ([]dto.RequestView, *models.Pagination, error)
}

type requestLifecycle interface {
	TransitionRequestStatus(ctx context.Context, requestID int64, target models.RequestStatusCode, actor *models.JWTClaims) (*models.Request, error)
	DeleteRequest(ctx context.Context, requestID int64, actor *models.JWTClaims) (bool, error)
}

type requestExporter interface {
	ExportRequests(ctx context.Context, query dto.RequestQuery, format dto.ExportFormat, actor *models.JWTClaims) (*dto.ExportResult, error)
}

// RequestHandler exposes capacity development requests.
type RequestHandler struct {
	requests  requestService
	lifecycle requestLifecycle
	exports   requestExporter
}

// NewRequestHandler constructs the handler. exports may be nil when exports are disabled.
func NewRequestHandler(requests requestService, lifecycle requestLifecycle, exports requestExporter) *RequestHandler {
	return &RequestHandler{requests: requests, lifecycle: lifecycle, exports: exports}
}

// Create godoc
// @Summary Submit a capacity development request
// @Tags Requests
// @Accept json
// @Produce json
// @Param payload body dto.CreateRequestRequest true "Request detail"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /requests [post]
func (h *RequestHandler) Create(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	var req dto.CreateRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request payload"))
		return
	}
	created, err := h.requests.Create(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// List godoc
// @Summary List requests visible to the caller
// @Tags Requests
// @Produce json
// @Param status query string false "Comma separated status codes"
// @Param mine query bool false "Only requests owned by the caller"
// @Param search query string false "Title search"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /requests [get]
func (h *RequestHandler) List(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	items, pagination, err := h.requests.List(c.Request.Context(), requestQuery(c), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	respond(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get a request with the transitions available to the caller
// @Tags Requests
// @Produce json
// @Param id path int true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /requests/{id} [get]
func (h *RequestHandler) Get(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	view, err := h.requests.Get(c.Request.Context(), id, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	respond(c, http.StatusOK, view, nil)
}

// Update godoc
// @Summary Replace the detail of a draft or in-review request
// @Tags Requests
// @Accept json
// @Produce json
// @Param id path int true "Request ID"
// @Param payload body dto.UpdateRequestRequest true "Request detail"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /requests/{id} [put]
func (h *RequestHandler) Update(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request payload"))
		return
	}
	updated, err := h.requests.UpdateDetail(c.Request.Context(), id, req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, updated, nil)
}

// Transition godoc
// @Summary Move a request to another lifecycle status
// @Tags Requests
// @Accept json
// @Produce json
// @Param id path int true "Request ID"
// @Param payload body dto.TransitionRequest true "Target status"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Security BearerAuth
// @Router /requests/{id}/transitions [post]
func (h *RequestHandler) Transition(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "status is required"))
		return
	}
	target := models.RequestStatusCode(strings.ToLower(strings.TrimSpace(string(req.Status))))
	updated, err := h.lifecycle.TransitionRequestStatus(c.Request.Context(), id, target, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, updated, nil)
}

// Delete godoc
// @Summary Delete a draft request
// @Tags Requests
// @Param id path int true "Request ID"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /requests/{id} [delete]
func (h *RequestHandler) Delete(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if _, err := h.lifecycle.DeleteRequest(c.Request.Context(), id, claims); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Export godoc
// @Summary Export requests as CSV or PDF
// @Tags Requests
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf" default(csv)
// @Param status query string false "Comma separated status codes"
// @Param search query string false "Title search"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /requests/export [get]
func (h *RequestHandler) Export(c *gin.Context) {
	if h.exports == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "exports are disabled"))
		return
	}
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	format := dto.ExportFormat(strings.ToLower(c.DefaultQuery("format", string(dto.ExportFormatCSV))))
	result, err := h.exports.ExportRequests(c.Request.Context(), requestQuery(c), format, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, result.Filename, result.ContentType, int64(len(result.Body)), bytes.NewReader(result.Body))
}

func requestQuery(c *gin.Context) dto.RequestQuery {
	query := dto.RequestQuery{
		Mine:     queryBool(c, "mine"),
		Search:   strings.TrimSpace(c.Query("search")),
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "page_size", 20),
	}
	for _, code := range splitList(c.Query("status")) {
		query.Status = append(query.Status, models.RequestStatusCode(strings.ToLower(code)))
	}
	return query
}
