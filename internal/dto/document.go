package dto

import "github.com/noah-isme/capdev-portal-api/internal/models"

// UploadDocumentRequest contains metadata submitted alongside a file upload.
type UploadDocumentRequest struct {
	ParentType   models.DocumentParentType `form:"parent_type" json:"parent_type"`
	ParentID     int64                     `form:"parent_id" json:"parent_id"`
	DocumentType models.DocumentType       `form:"document_type" json:"document_type"`
}

// DocumentDownloadResponse enriches metadata with a signed download URL.
type DocumentDownloadResponse struct {
	models.Document
	DownloadURL string `json:"download_url"`
}
