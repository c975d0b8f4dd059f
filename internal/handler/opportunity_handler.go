package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/capdev-portal-api/internal/dto"
	"github.com/noah-isme/capdev-portal-api/internal/models"
	appErrors "github.com/noah-isme/capdev-portal-api/pkg/errors"
	"github.com/noah-isme/capdev-portal-api/pkg/response"
)

type opportunityService interface {
	Create(ctx context.Context, input dto.CreateOpportunityRequest, actor *models.JWTClaims) (*models.Opportunity, error)
	Get(ctx context.Context, id int64, actor *models.JWTClaims) (*models.Opportunity, error)
	List(ctx context.Context, query dto.OpportunityQuery, actor *models.JWTClaims) ([]models.Opportunity, *models.Pagination, error)
	UpdateStatus(ctx context.Context, id int64, input dto.UpdateOpportunityStatusRequest, actor *models.JWTClaims) (*models.Opportunity, error)
}

// OpportunityHandler exposes partner opportunities.
type OpportunityHandler struct {
	service opportunityService
}

// NewOpportunityHandler constructs the handler.
func NewOpportunityHandler(svc opportunityService) *OpportunityHandler {
	return &OpportunityHandler{service: svc}
}

// Create godoc
// @Summary Publish an opportunity
// @Tags Opportunities
// @Accept json
// @Produce json
// @Param payload body dto.CreateOpportunityRequest true "Opportunity"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /opportunities [post]
func (h *OpportunityHandler) Create(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	var req dto.CreateOpportunityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid opportunity payload"))
		return
	}
	opp, err := h.service.Create(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, opp)
}

// List godoc
// @Summary List opportunities
// @Tags Opportunities
// @Produce json
// @Param status query string false "Comma separated statuses (administrators)"
// @Param mine query bool false "Only opportunities published by the caller"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /opportunities [get]
func (h *OpportunityHandler) List(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	query := dto.OpportunityQuery{
		Mine:     queryBool(c, "mine"),
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "page_size", 20),
	}
	for _, status := range splitList(c.Query("status")) {
		query.Status = append(query.Status, models.OpportunityStatus(strings.ToLower(status)))
	}
	items, pagination, err := h.service.List(c.Request.Context(), query, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get an opportunity
// @Tags Opportunities
// @Produce json
// @Param id path int true "Opportunity ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /opportunities/{id} [get]
func (h *OpportunityHandler) Get(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	opp, err := h.service.Get(c.Request.Context(), id, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, opp, nil)
}

// UpdateStatus godoc
// @Summary Moderate an opportunity
// @Tags Opportunities
// @Accept json
// @Produce json
// @Param id path int true "Opportunity ID"
// @Param payload body dto.UpdateOpportunityStatusRequest true "Target status"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /opportunities/{id}/status [patch]
func (h *OpportunityHandler) UpdateStatus(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateOpportunityStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid status payload"))
		return
	}
	opp, err := h.service.UpdateStatus(c.Request.Context(), id, req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, opp, nil)
}
