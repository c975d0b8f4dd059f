package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/capdev-portal-api/internal/dto"
	"github.com/noah-isme/capdev-portal-api/internal/models"
	appErrors "github.com/noah-isme/capdev-portal-api/pkg/errors"
)

type documentStore interface {
	Create(ctx context.Context, doc *models.Document) error
	GetByID(ctx context.Context, id int64) (*models.Document, error)
	ListByParent(ctx context.Context, parentType models.DocumentParentType, parentID int64) ([]models.Document, error)
	Delete(ctx context.Context, id int64) error
}

type documentFileStorage interface {
	SaveStream(name string, r io.Reader) (string, int64, error)
	Open(name string) (*os.File, error)
	Delete(name string) error
}

type documentSigner interface {
	Generate(resourceID, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (resourceID, relPath string, expiresAt time.Time, err error)
}

// DocumentUpload carries the uploaded stream and its client-side metadata.
type DocumentUpload struct {
	Filename string
	Size     int64
	MimeType string
	Content  io.ReadSeeker
}

// DocumentDownload bundles an open file with the metadata needed to stream it.
type DocumentDownload struct {
	File      *os.File
	Filename  string
	MimeType  string
	SizeBytes int64
}

// DocumentServiceConfig holds validation parameters.
type DocumentServiceConfig struct {
	MaxFileSize  int64
	AllowedMIMEs []string
	APIPrefix    string
}

// DocumentService stores attachments of requests and offers.
type DocumentService struct {
	repo     documentStore
	requests requestLoader
	offers   offerReader
	storage  documentFileStorage
	signer   documentSigner
	audit    auditLogger
	logger   *zap.Logger
	cfg      DocumentServiceConfig
	mimeSet  map[string]struct{}
}

// NewDocumentService constructs the service with defaults.
func NewDocumentService(repo documentStore, requests requestLoader, offers offerReader, storage documentFileStorage, signer documentSigner, audit auditLogger, logger *zap.Logger, cfg DocumentServiceConfig) *DocumentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 10 * 1024 * 1024
	}
	if len(cfg.AllowedMIMEs) == 0 {
		cfg.AllowedMIMEs = []string{
			"application/pdf",
			"application/msword",
			"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			"image/png",
			"image/jpeg",
			"text/plain",
		}
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/v1"
	}
	mimeSet := make(map[string]struct{}, len(cfg.AllowedMIMEs))
	for _, mt := range cfg.AllowedMIMEs {
		mimeSet[strings.ToLower(strings.TrimSpace(mt))] = struct{}{}
	}
	return &DocumentService{
		repo:     repo,
		requests: requests,
		offers:   offers,
		storage:  storage,
		signer:   signer,
		audit:    audit,
		logger:   logger,
		cfg:      cfg,
		mimeSet:  mimeSet,
	}
}

// documentParent is the resolved owner of an attachment.
type documentParent struct {
	request *models.Request
	offer   *models.Offer
}

func (p documentParent) canRead(actor *models.JWTClaims) bool {
	if actor.IsAdministrator() || p.request.IsOwnedBy(actor.UserID) {
		return true
	}
	if p.offer != nil {
		return p.offer.MatchedPartnerID == actor.UserID
	}
	return canView(p.request, actor)
}

func (p documentParent) canWrite(actor *models.JWTClaims) bool {
	if actor.IsAdministrator() || p.request.IsOwnedBy(actor.UserID) {
		return true
	}
	if p.offer != nil {
		return p.offer.MatchedPartnerID == actor.UserID
	}
	return p.request.MatchedPartnerID != nil && *p.request.MatchedPartnerID == actor.UserID
}

// Upload stores a file and its metadata on a request or an offer.
func (s *DocumentService) Upload(ctx context.Context, meta dto.UploadDocumentRequest, upload DocumentUpload, actor *models.JWTClaims) (*models.Document, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !meta.ParentType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "parent_type must be request or offer")
	}
	if !meta.DocumentType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported document_type")
	}
	parent, err := s.resolveParent(ctx, meta.ParentType, meta.ParentID)
	if err != nil {
		return nil, err
	}
	if !parent.canWrite(actor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you may not attach documents here")
	}
	if parent.request.Status.Terminal() {
		return nil, appErrors.Clone(appErrors.ErrTerminalState, fmt.Sprintf("request is %s and no longer accepts documents", parent.request.Status))
	}
	if upload.Content == nil || upload.Size <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file is required")
	}
	if upload.Size > s.cfg.MaxFileSize {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds %d bytes limit", s.cfg.MaxFileSize))
	}
	mimeType, err := detectMime(upload)
	if err != nil {
		return nil, err
	}
	if _, allowed := s.mimeSet[strings.ToLower(mimeType)]; !allowed {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("mime type %s not allowed", mimeType))
	}

	name := storageName(meta.ParentType, meta.ParentID, upload.Filename)
	path, written, err := s.storage.SaveStream(name, upload.Content)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store document")
	}
	doc := &models.Document{
		ParentType:   meta.ParentType,
		ParentID:     meta.ParentID,
		DocumentType: meta.DocumentType,
		Name:         displayName(upload.Filename),
		FilePath:     path,
		MimeType:     mimeType,
		SizeBytes:    written,
		UploaderID:   actor.UserID,
	}
	if err := s.repo.Create(ctx, doc); err != nil {
		_ = s.storage.Delete(path)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save document metadata")
	}
	s.emitAudit(ctx, actor.UserID, models.AuditActionDocumentUpload, doc.ID, nil, doc)
	return doc, nil
}

// List returns the documents of a parent with signed download URLs.
func (s *DocumentService) List(ctx context.Context, parentType models.DocumentParentType, parentID int64, actor *models.JWTClaims) ([]dto.DocumentDownloadResponse, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !parentType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "parent_type must be request or offer")
	}
	parent, err := s.resolveParent(ctx, parentType, parentID)
	if err != nil {
		return nil, err
	}
	if !parent.canRead(actor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "documents are not visible to you")
	}
	docs, err := s.repo.ListByParent(ctx, parentType, parentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list documents")
	}
	out := make([]dto.DocumentDownloadResponse, 0, len(docs))
	for _, doc := range docs {
		url, err := s.signedURL(&doc)
		if err != nil {
			return nil, err
		}
		out = append(out, dto.DocumentDownloadResponse{Document: doc, DownloadURL: url})
	}
	return out, nil
}

// GetDownloadURL returns a time-limited signed URL for one document.
func (s *DocumentService) GetDownloadURL(ctx context.Context, id int64, actor *models.JWTClaims) (*dto.DocumentDownloadResponse, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	doc, parent, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !parent.canRead(actor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "document is not visible to you")
	}
	url, err := s.signedURL(doc)
	if err != nil {
		return nil, err
	}
	return &dto.DocumentDownloadResponse{Document: *doc, DownloadURL: url}, nil
}

// Download opens a document addressed by a signed token. The token itself is the credential.
func (s *DocumentService) Download(ctx context.Context, id int64, token string) (*DocumentDownload, error) {
	if s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "download signer unavailable")
	}
	resourceID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired token")
	}
	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document")
	}
	if resourceID != strconv.FormatInt(doc.ID, 10) || relPath != doc.FilePath {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token mismatch")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open document")
	}
	info, err := file.Stat()
	if err != nil {
		file.Close() //nolint:errcheck
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read document metadata")
	}
	return &DocumentDownload{File: file, Filename: doc.Name, MimeType: doc.MimeType, SizeBytes: info.Size()}, nil
}

// Delete removes a document for its uploader or an administrator while the parent request is still open.
func (s *DocumentService) Delete(ctx context.Context, id int64, actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	doc, parent, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if doc.UploaderID != actor.UserID && !actor.IsAdministrator() {
		return appErrors.Clone(appErrors.ErrForbidden, "only the uploader or an administrator may delete a document")
	}
	if parent.request.Status.Terminal() {
		return appErrors.Clone(appErrors.ErrTerminalState, fmt.Sprintf("request is %s and its documents are frozen", parent.request.Status))
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete document")
	}
	if err := s.storage.Delete(doc.FilePath); err != nil {
		s.logger.Warn("failed to remove document file", zap.Int64("document_id", id), zap.Error(err))
	}
	s.emitAudit(ctx, actor.UserID, models.AuditActionDocumentDelete, id, doc, nil)
	return nil
}

func (s *DocumentService) load(ctx context.Context, id int64) (*models.Document, documentParent, error) {
	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, documentParent{}, appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return nil, documentParent{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document")
	}
	parent, err := s.resolveParent(ctx, doc.ParentType, doc.ParentID)
	if err != nil {
		return nil, documentParent{}, err
	}
	return doc, parent, nil
}

func (s *DocumentService) resolveParent(ctx context.Context, parentType models.DocumentParentType, parentID int64) (documentParent, error) {
	var parent documentParent
	requestID := parentID
	if parentType == models.DocumentParentOffer {
		offer, err := s.offers.GetByID(ctx, parentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return parent, appErrors.Clone(appErrors.ErrNotFound, "offer not found")
			}
			return parent, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load offer")
		}
		parent.offer = offer
		requestID = offer.RequestID
	}
	req, err := loadRequest(ctx, s.requests, requestID)
	if err != nil {
		return parent, err
	}
	parent.request = req
	return parent, nil
}

func (s *DocumentService) signedURL(doc *models.Document) (string, error) {
	if s.signer == nil {
		return "", appErrors.Clone(appErrors.ErrInternal, "download signer unavailable")
	}
	token, _, err := s.signer.Generate(strconv.FormatInt(doc.ID, 10), doc.FilePath)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate download token")
	}
	return fmt.Sprintf("%s/documents/%d/download?token=%s", strings.TrimRight(s.cfg.APIPrefix, "/"), doc.ID, token), nil
}

func (s *DocumentService) emitAudit(ctx context.Context, actorID int64, action string, documentID int64, oldValues, newValues interface{}) {
	if s.audit == nil {
		return
	}
	id := strconv.FormatInt(documentID, 10)
	log := &models.AuditLog{
		UserID:     &actorID,
		Action:     action,
		Resource:   "document",
		ResourceID: &id,
		OldValues:  marshalAudit(oldValues),
		NewValues:  marshalAudit(newValues),
		IPAddress:  "system",
		UserAgent:  "document-service",
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.String("action", action), zap.Error(err))
	}
}

func detectMime(upload DocumentUpload) (string, error) {
	if upload.MimeType != "" && upload.MimeType != "application/octet-stream" {
		return strings.ToLower(strings.TrimSpace(strings.Split(upload.MimeType, ";")[0])), nil
	}
	header := make([]byte, 512)
	n, err := upload.Content.Read(header)
	if err != nil && err != io.EOF {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to inspect file")
	}
	if _, err := upload.Content.Seek(0, io.SeekStart); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset upload stream")
	}
	if n == 0 {
		return "", appErrors.Clone(appErrors.ErrValidation, "empty file")
	}
	return strings.Split(http.DetectContentType(header[:n]), ";")[0], nil
}

// storageName places files under parent_type/parent_id with a random name keeping the extension.
func storageName(parentType models.DocumentParentType, parentID int64, original string) string {
	ext := strings.ToLower(filepath.Ext(original))
	if len(ext) > 10 {
		ext = ""
	}
	return fmt.Sprintf("%s/%d/%s%s", parentType, parentID, uuid.NewString(), ext)
}

func displayName(original string) string {
	name := filepath.Base(strings.ReplaceAll(original, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "document"
	}
	return name
}
