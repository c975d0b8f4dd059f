package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/capdev-portal-api/internal/middleware"
	"github.com/noah-isme/capdev-portal-api/internal/models"
	"github.com/noah-isme/capdev-portal-api/pkg/response"
)

type statusRegistry interface {
	List(ctx context.Context) ([]models.RequestStatus, bool, error)
}

// StatusHandler serves the request status registry.
type StatusHandler struct {
	statuses statusRegistry
}

// NewStatusHandler constructs the handler.
func NewStatusHandler(statuses statusRegistry) *StatusHandler {
	return &StatusHandler{statuses: statuses}
}

// List godoc
// @Summary List request lifecycle statuses
// @Tags Statuses
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /statuses [get]
func (h *StatusHandler) List(c *gin.Context) {
	statuses, cached, err := h.statuses.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cached)
	respond(c, http.StatusOK, statuses, nil)
}
