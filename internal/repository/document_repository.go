package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/capdev-portal-api/internal/models"
)

const documentColumns = `id, parent_type, parent_id, document_type, name, file_path, mime_type, size_bytes, uploader_id, created_at`

// DocumentRepository stores attachment metadata.
type DocumentRepository struct {
	db *sqlx.DB
}

// NewDocumentRepository constructs the repository.
func NewDocumentRepository(db *sqlx.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Create inserts document metadata.
func (r *DocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	const query = `INSERT INTO documents (parent_type, parent_id, document_type, name, file_path, mime_type, size_bytes, uploader_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id, created_at`
	row := r.db.QueryRowxContext(ctx, query, doc.ParentType, doc.ParentID, doc.DocumentType, doc.Name, doc.FilePath, doc.MimeType, doc.SizeBytes, doc.UploaderID)
	if err := row.Scan(&doc.ID, &doc.CreatedAt); err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

// GetByID fetches one document.
func (r *DocumentRepository) GetByID(ctx context.Context, id int64) (*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	var doc models.Document
	if err := r.db.GetContext(ctx, &doc, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	return &doc, nil
}

// ListByParent returns documents attached to one entity.
func (r *DocumentRepository) ListByParent(ctx context.Context, parentType models.DocumentParentType, parentID int64) ([]models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE parent_type = $1 AND parent_id = $2 ORDER BY created_at DESC`
	var docs []models.Document
	if err := r.db.SelectContext(ctx, &docs, query, parentType, parentID); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// Delete removes document metadata.
func (r *DocumentRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}
