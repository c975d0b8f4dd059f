package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/capdev-portal-api/internal/models"
)

func TestLifecycleWithinTxCommits(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLifecycleRepository(db)

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM requests WHERE id = $1 FOR UPDATE")).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(requestRowColumns).AddRow(3, 7, "offer_made", nil, []byte(sampleDetail), now, now))
	mock.ExpectQuery(regexp.QuoteMeta("FROM offers WHERE id = $1 FOR UPDATE")).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "request_id", "matched_partner_id", "description", "partner_info", "status", "is_accepted", "accepted_at", "created_at", "updated_at"}).
			AddRow(9, 3, 21, "offer", "", "ACTIVE", false, nil, now, now))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE offers SET status = 'INACTIVE'")).
		WithArgs(int64(3), int64(9), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE offers SET is_accepted = TRUE")).
		WithArgs(int64(9), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE requests SET matched_partner_id = $2")).
		WithArgs(int64(3), int64(21), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE requests SET status_code = $2")).
		WithArgs(int64(3), "match_made", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	var deactivated int64
	err := repo.WithinTx(context.Background(), func(tx LifecycleTx) error {
		req, err := tx.LockRequest(context.Background(), 3)
		if err != nil {
			return err
		}
		offer, err := tx.LockOffer(context.Background(), 9)
		if err != nil {
			return err
		}
		if deactivated, err = tx.DeactivateOtherOffers(context.Background(), req.ID, offer.ID); err != nil {
			return err
		}
		if err := tx.MarkOfferAccepted(context.Background(), offer.ID, now); err != nil {
			return err
		}
		if err := tx.SetMatchedPartner(context.Background(), req.ID, offer.MatchedPartnerID); err != nil {
			return err
		}
		return tx.UpdateRequestStatus(context.Background(), req.ID, models.StatusMatchMade)
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), deactivated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLifecycleWithinTxRollsBackOnError(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLifecycleRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM offers WHERE request_id = $1 AND status = 'ACTIVE'")).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectRollback()

	sentinel := errors.New("stop")
	err := repo.WithinTx(context.Background(), func(tx LifecycleTx) error {
		count, err := tx.CountActiveOffers(context.Background(), 3)
		require.NoError(t, err)
		assert.Equal(t, 0, count)
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLifecycleInsertOffer(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLifecycleRepository(db)

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO offers (request_id, matched_partner_id, description, partner_info, status)")).
		WithArgs(int64(3), int64(21), "we can help", "", "ACTIVE").
		WillReturnRows(sqlmock.NewRows([]string{"id", "is_accepted", "created_at", "updated_at"}).AddRow(12, false, now, now))
	mock.ExpectCommit()

	offer := &models.Offer{RequestID: 3, MatchedPartnerID: 21, Description: "we can help", Status: models.OfferActive}
	err := repo.WithinTx(context.Background(), func(tx LifecycleTx) error {
		return tx.InsertOffer(context.Background(), offer)
	})
	require.NoError(t, err)
	assert.Equal(t, int64(12), offer.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLifecycleDeleteRequestReturnsFilePaths(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLifecycleRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("DELETE FROM documents WHERE parent_type = 'request' AND parent_id = $1 RETURNING file_path")).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"file_path"}).AddRow("2026/10/a.pdf").AddRow("2026/10/b.pdf"))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM requests WHERE id = $1")).
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	var paths []string
	err := repo.WithinTx(context.Background(), func(tx LifecycleTx) error {
		var err error
		paths, err = tx.DeleteRequest(context.Background(), 3)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"2026/10/a.pdf", "2026/10/b.pdf"}, paths)
	assert.NoError(t, mock.ExpectationsWereMet())
}
