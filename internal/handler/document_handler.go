package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/capdev-portal-api/internal/dto"
	"github.com/noah-isme/capdev-portal-api/internal/models"
	"github.com/noah-isme/capdev-portal-api/internal/service"
	appErrors "github.com/noah-isme/capdev-portal-api/pkg/errors"
	"github.com/noah-isme/capdev-portal-api/pkg/response"
)

type documentService interface {
	Upload(ctx context.Context, meta dto.UploadDocumentRequest, upload service.DocumentUpload, actor *models.JWTClaims) (*models.Document, error)
	List(ctx context.Context, parentType models.DocumentParentType, parentID int64, actor *models.JWTClaims) ([]dto.DocumentDownloadResponse, error)
	GetDownloadURL(ctx context.Context, id int64, actor *models.JWTClaims) (*dto.DocumentDownloadResponse, error)
	Download(ctx context.Context, id int64, token string) (*service.DocumentDownload, error)
	Delete(ctx context.Context, id int64, actor *models.JWTClaims) error
}

// DocumentHandler exposes attachments of requests and offers.
type DocumentHandler struct {
	service documentService
}

// NewDocumentHandler constructs the handler.
func NewDocumentHandler(svc documentService) *DocumentHandler {
	return &DocumentHandler{service: svc}
}

// Upload godoc
// @Summary Upload a document
// @Tags Documents
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Document file"
// @Param parent_type formData string true "request or offer"
// @Param parent_id formData int true "Parent ID"
// @Param document_type formData string true "offer_document, financial_breakdown_report, lesson_learned_report or request_attachment"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /documents [post]
func (h *DocumentHandler) Upload(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	var meta dto.UploadDocumentRequest
	if err := c.ShouldBind(&meta); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid document metadata"))
		return
	}
	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file is required"))
		return
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Validation(err, "unable to read upload"))
		return
	}
	defer file.Close()

	doc, err := h.service.Upload(c.Request.Context(), meta, service.DocumentUpload{
		Filename: header.Filename,
		Size:     header.Size,
		MimeType: header.Header.Get("Content-Type"),
		Content:  file,
	}, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, doc)
}

// List godoc
// @Summary List documents of a request or offer
// @Tags Documents
// @Produce json
// @Param parent_type query string true "request or offer"
// @Param parent_id query int true "Parent ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /documents [get]
func (h *DocumentHandler) List(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	parentID, err := strconv.ParseInt(c.Query("parent_id"), 10, 64)
	if err != nil || parentID <= 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid parent_id"))
		return
	}
	docs, err := h.service.List(c.Request.Context(), models.DocumentParentType(c.Query("parent_type")), parentID, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, docs, nil)
}

// URL godoc
// @Summary Issue a signed download URL
// @Tags Documents
// @Produce json
// @Param id path int true "Document ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /documents/{id}/url [get]
func (h *DocumentHandler) URL(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	doc, err := h.service.GetDownloadURL(c.Request.Context(), id, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doc, nil)
}

// Download godoc
// @Summary Download a document with a signed token
// @Tags Documents
// @Produce octet-stream
// @Param id path int true "Document ID"
// @Param token query string true "Signed token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /documents/{id}/download [get]
func (h *DocumentHandler) Download(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	download, err := h.service.Download(c.Request.Context(), id, c.Query("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close()

	response.Attachment(c, download.Filename, download.MimeType, download.SizeBytes, download.File)
}

// Delete godoc
// @Summary Delete a document
// @Tags Documents
// @Param id path int true "Document ID"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /documents/{id} [delete]
func (h *DocumentHandler) Delete(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), id, claims); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
