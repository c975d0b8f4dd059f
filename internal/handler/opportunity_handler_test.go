package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/capdev-portal-api/internal/dto"
	"github.com/noah-isme/capdev-portal-api/internal/models"
	appErrors "github.com/noah-isme/capdev-portal-api/pkg/errors"
)

type opportunityServiceStub struct {
	lastQuery dto.OpportunityQuery
	status    models.OpportunityStatus
	err       error
}

func (s *opportunityServiceStub) Create(ctx context.Context, input dto.CreateOpportunityRequest, actor *models.JWTClaims) (*models.Opportunity, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.Opportunity{ID: 1, Title: input.Title, UserID: actor.UserID, Status: models.OpportunityPendingReview}, nil
}

func (s *opportunityServiceStub) Get(ctx context.Context, id int64, actor *models.JWTClaims) (*models.Opportunity, error) {
	return &models.Opportunity{ID: id}, s.err
}

func (s *opportunityServiceStub) List(ctx context.Context, query dto.OpportunityQuery, actor *models.JWTClaims) ([]models.Opportunity, *models.Pagination, error) {
	s.lastQuery = query
	return []models.Opportunity{}, &models.Pagination{Page: 1, PageSize: 20}, nil
}

func (s *opportunityServiceStub) UpdateStatus(ctx context.Context, id int64, input dto.UpdateOpportunityStatusRequest, actor *models.JWTClaims) (*models.Opportunity, error) {
	s.status = input.Status
	if s.err != nil {
		return nil, s.err
	}
	return &models.Opportunity{ID: id, Status: input.Status}, nil
}

type statusRegistryStub struct{}

func (statusRegistryStub) List(ctx context.Context) ([]models.RequestStatus, bool, error) {
	return models.RequestStatusCatalog, true, nil
}

func TestOpportunityHandler(t *testing.T) {
	svc := &opportunityServiceStub{}
	h := NewOpportunityHandler(svc)
	r := testRouter(testAdmin, func(r *gin.RouterGroup) {
		r.POST("/opportunities", h.Create)
		r.GET("/opportunities", h.List)
		r.GET("/opportunities/:id", h.Get)
		r.PATCH("/opportunities/:id/status", h.UpdateStatus)
	})

	w := perform(r, http.MethodPost, "/api/v1/opportunities", dto.CreateOpportunityRequest{Title: "Fellowship", Type: "training"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = perform(r, http.MethodGet, "/api/v1/opportunities?status=Active,closed&mine=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []models.OpportunityStatus{models.OpportunityActive, models.OpportunityClosed}, svc.lastQuery.Status)
	assert.True(t, svc.lastQuery.Mine)

	w = perform(r, http.MethodPatch, "/api/v1/opportunities/1/status", dto.UpdateOpportunityStatusRequest{Status: models.OpportunityActive})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.OpportunityActive, svc.status)

	svc.err = appErrors.ErrForbidden
	w = perform(r, http.MethodPatch, "/api/v1/opportunities/1/status", dto.UpdateOpportunityStatusRequest{Status: models.OpportunityActive})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestStatusHandlerList(t *testing.T) {
	h := NewStatusHandler(statusRegistryStub{})
	r := testRouter(nil, func(r *gin.RouterGroup) {
		r.GET("/statuses", h.List)
	})
	w := perform(r, http.MethodGet, "/api/v1/statuses", nil)
	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	assert.Len(t, env["data"], len(models.RequestStatusCatalog))
	meta, ok := env["meta"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, meta["cache_hit"])
}
