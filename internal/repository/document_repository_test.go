package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/capdev-portal-api/internal/models"
)

func TestDocumentRepositoryCreateAndList(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDocumentRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO documents")).
		WithArgs("offer", int64(4), "offer_document", "plan.pdf", "offer/4/x.pdf", "application/pdf", int64(10), int64(21)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(1, now))
	mock.ExpectQuery(regexp.QuoteMeta("FROM documents WHERE parent_type = $1 AND parent_id = $2")).
		WithArgs("offer", int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "parent_type", "parent_id", "document_type", "name", "file_path", "mime_type", "size_bytes", "uploader_id", "created_at"}).
			AddRow(1, "offer", 4, "offer_document", "plan.pdf", "offer/4/x.pdf", "application/pdf", 10, 21, now))

	doc := &models.Document{
		ParentType:   models.DocumentParentOffer,
		ParentID:     4,
		DocumentType: models.DocumentOffer,
		Name:         "plan.pdf",
		FilePath:     "offer/4/x.pdf",
		MimeType:     "application/pdf",
		SizeBytes:    10,
		UploaderID:   21,
	}
	require.NoError(t, repo.Create(context.Background(), doc))
	assert.Equal(t, int64(1), doc.ID)

	docs, err := repo.ListByParent(context.Background(), models.DocumentParentOffer, 4)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, models.DocumentOffer, docs[0].DocumentType)
	assert.NoError(t, mock.ExpectationsWereMet())
}
