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

type offerLifecycle interface {
	CreateOffer(ctx context.Context, requestID int64, input dto.CreateOfferRequest, actor *models.JWTClaims) (*models.Offer, error)
	AcceptOffer(ctx context.Context, offerID int64, actor *models.JWTClaims) (*models.Offer, error)
	RejectOffer(ctx context.Context, offerID int64, actor *models.JWTClaims) (*models.Offer, error)
	ChangeOfferStatus(ctx context.Context, offerID int64, target models.OfferStatus, actor *models.JWTClaims) (*models.Offer, error)
}

type offerQueries interface {
	ListOffers(ctx context.Context, requestID int64, actor *models.JWTClaims) ([]models.Offer, error)
}

// OfferHandler exposes partner offers on requests.
type OfferHandler struct {
	lifecycle offerLifecycle
	offers    offerQueries
}

// NewOfferHandler constructs the handler.
func NewOfferHandler(lifecycle offerLifecycle, offers offerQueries) *OfferHandler {
	return &OfferHandler{lifecycle: lifecycle, offers: offers}
}

// Create godoc
// @Summary Make an offer on a request
// @Tags Offers
// @Accept json
// @Produce json
// @Param id path int true "Request ID"
// @Param payload body dto.CreateOfferRequest true "Offer payload"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /requests/{id}/offers [post]
func (h *OfferHandler) Create(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	requestID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.CreateOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid offer payload"))
		return
	}
	offer, err := h.lifecycle.CreateOffer(c.Request.Context(), requestID, req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, offer)
}

// List godoc
// @Summary List offers on a request
// @Tags Offers
// @Produce json
// @Param id path int true "Request ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /requests/{id}/offers [get]
func (h *OfferHandler) List(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	requestID, ok := pathID(c, "id")
	if !ok {
		return
	}
	offers, err := h.offers.ListOffers(c.Request.Context(), requestID, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, offers, nil)
}

// Accept godoc
// @Summary Accept an offer
// @Description Marks the offer accepted, deactivates its siblings and moves the request to match_made.
// @Tags Offers
// @Produce json
// @Param id path int true "Offer ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /offers/{id}/accept [post]
func (h *OfferHandler) Accept(c *gin.Context) {
	h.decide(c, h.lifecycle.AcceptOffer)
}

// Reject godoc
// @Summary Reject an offer
// @Tags Offers
// @Produce json
// @Param id path int true "Offer ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /offers/{id}/reject [post]
func (h *OfferHandler) Reject(c *gin.Context) {
	h.decide(c, h.lifecycle.RejectOffer)
}

// ChangeStatus godoc
// @Summary Activate or deactivate an offer
// @Tags Offers
// @Accept json
// @Produce json
// @Param id path int true "Offer ID"
// @Param payload body dto.ChangeOfferStatusRequest true "Target status"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /offers/{id}/status [patch]
func (h *OfferHandler) ChangeStatus(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	offerID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.ChangeOfferStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "status is required"))
		return
	}
	target := models.OfferStatus(strings.ToUpper(strings.TrimSpace(string(req.Status))))
	offer, err := h.lifecycle.ChangeOfferStatus(c.Request.Context(), offerID, target, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, offer, nil)
}

func (h *OfferHandler) decide(c *gin.Context, fn func(context.Context, int64, *models.JWTClaims) (*models.Offer, error)) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	offerID, ok := pathID(c, "id")
	if !ok {
		return
	}
	offer, err := fn(c.Request.Context(), offerID, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, offer, nil)
}
