package models

import "time"

// DocumentParentType identifies the owner entity of an attachment.
type DocumentParentType string

const (
	DocumentParentRequest DocumentParentType = "request"
	DocumentParentOffer   DocumentParentType = "offer"
)

// Valid reports whether p is a supported parent type.
func (p DocumentParentType) Valid() bool {
	return p == DocumentParentRequest || p == DocumentParentOffer
}

// DocumentType classifies an attachment.
type DocumentType string

const (
	DocumentOffer              DocumentType = "offer_document"
	DocumentFinancialBreakdown DocumentType = "financial_breakdown_report"
	DocumentLessonLearned      DocumentType = "lesson_learned_report"
	DocumentRequestAttachment  DocumentType = "request_attachment"
)

// Valid reports whether t is a supported document type.
func (t DocumentType) Valid() bool {
	switch t {
	case DocumentOffer, DocumentFinancialBreakdown, DocumentLessonLearned, DocumentRequestAttachment:
		return true
	}
	return false
}

// Document is a file attached to a request or an offer.
type Document struct {
	ID           int64              `db:"id" json:"id"`
	ParentType   DocumentParentType `db:"parent_type" json:"parent_type"`
	ParentID     int64              `db:"parent_id" json:"parent_id"`
	DocumentType DocumentType       `db:"document_type" json:"document_type"`
	Name         string             `db:"name" json:"name"`
	FilePath     string             `db:"file_path" json:"-"`
	MimeType     string             `db:"mime_type" json:"mime_type"`
	SizeBytes    int64              `db:"size_bytes" json:"size_bytes"`
	UploaderID   int64              `db:"uploader_id" json:"uploader_id"`
	CreatedAt    time.Time          `db:"created_at" json:"created_at"`
}
