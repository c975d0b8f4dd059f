package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/capdev-portal-api/internal/models"
)

const offerColumns = `id, request_id, matched_partner_id, description, partner_info, status, is_accepted, accepted_at, created_at, updated_at`

// LifecycleTx exposes the row-locking statements used by request and offer state changes.
// Every method runs inside the transaction opened by LifecycleRepository.WithinTx.
type LifecycleTx interface {
	LockRequest(ctx context.Context, id int64) (*models.Request, error)
	LockOffer(ctx context.Context, id int64) (*models.Offer, error)
	UpdateRequestStatus(ctx context.Context, id int64, status models.RequestStatusCode) error
	SetMatchedPartner(ctx context.Context, requestID, partnerID int64) error
	DeleteRequest(ctx context.Context, id int64) ([]string, error)
	InsertOffer(ctx context.Context, offer *models.Offer) error
	SetOfferStatus(ctx context.Context, id int64, status models.OfferStatus) error
	MarkOfferAccepted(ctx context.Context, id int64, at time.Time) error
	DeactivateOtherOffers(ctx context.Context, requestID, keepOfferID int64) (int64, error)
	CountActiveOffers(ctx context.Context, requestID int64) (int, error)
}

// LifecycleRepository opens transactions for lifecycle operations.
type LifecycleRepository struct {
	db *sqlx.DB
}

// NewLifecycleRepository constructs the repository.
func NewLifecycleRepository(db *sqlx.DB) *LifecycleRepository {
	return &LifecycleRepository{db: db}
}

// WithinTx runs fn inside a transaction, committing when fn returns nil.
func (r *LifecycleRepository) WithinTx(ctx context.Context, fn func(tx LifecycleTx) error) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin lifecycle transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(&lifecycleTx{tx: tx}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit lifecycle transaction: %w", err)
	}
	return nil
}

type lifecycleTx struct {
	tx *sqlx.Tx
}

func (t *lifecycleTx) LockRequest(ctx context.Context, id int64) (*models.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests WHERE id = $1 FOR UPDATE`
	var req models.Request
	if err := t.tx.GetContext(ctx, &req, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("lock request: %w", err)
	}
	return &req, nil
}

func (t *lifecycleTx) LockOffer(ctx context.Context, id int64) (*models.Offer, error) {
	query := `SELECT ` + offerColumns + ` FROM offers WHERE id = $1 FOR UPDATE`
	var offer models.Offer
	if err := t.tx.GetContext(ctx, &offer, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("lock offer: %w", err)
	}
	return &offer, nil
}

func (t *lifecycleTx) UpdateRequestStatus(ctx context.Context, id int64, status models.RequestStatusCode) error {
	const query = `UPDATE requests SET status_code = $2, updated_at = $3 WHERE id = $1`
	if _, err := t.tx.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update request status: %w", err)
	}
	return nil
}

func (t *lifecycleTx) SetMatchedPartner(ctx context.Context, requestID, partnerID int64) error {
	const query = `UPDATE requests SET matched_partner_id = $2, updated_at = $3 WHERE id = $1`
	if _, err := t.tx.ExecContext(ctx, query, requestID, partnerID, time.Now().UTC()); err != nil {
		return fmt.Errorf("set matched partner: %w", err)
	}
	return nil
}

// DeleteRequest removes the request and its document rows, returning the stored
// file paths so the caller can clear them once the transaction commits.
func (t *lifecycleTx) DeleteRequest(ctx context.Context, id int64) ([]string, error) {
	var paths []string
	const documents = `DELETE FROM documents WHERE parent_type = 'request' AND parent_id = $1 RETURNING file_path`
	if err := t.tx.SelectContext(ctx, &paths, documents, id); err != nil {
		return nil, fmt.Errorf("delete request documents: %w", err)
	}
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM requests WHERE id = $1`, id); err != nil {
		return nil, fmt.Errorf("delete request: %w", err)
	}
	return paths, nil
}

func (t *lifecycleTx) InsertOffer(ctx context.Context, offer *models.Offer) error {
	const query = `INSERT INTO offers (request_id, matched_partner_id, description, partner_info, status)
VALUES ($1, $2, $3, $4, $5) RETURNING id, is_accepted, created_at, updated_at`
	row := t.tx.QueryRowxContext(ctx, query, offer.RequestID, offer.MatchedPartnerID, offer.Description, offer.PartnerInfo, offer.Status)
	if err := row.Scan(&offer.ID, &offer.IsAccepted, &offer.CreatedAt, &offer.UpdatedAt); err != nil {
		return fmt.Errorf("insert offer: %w", err)
	}
	return nil
}

func (t *lifecycleTx) SetOfferStatus(ctx context.Context, id int64, status models.OfferStatus) error {
	const query = `UPDATE offers SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := t.tx.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("set offer status: %w", err)
	}
	return nil
}

func (t *lifecycleTx) MarkOfferAccepted(ctx context.Context, id int64, at time.Time) error {
	const query = `UPDATE offers SET is_accepted = TRUE, accepted_at = $2, status = 'ACTIVE', updated_at = $2 WHERE id = $1`
	if _, err := t.tx.ExecContext(ctx, query, id, at); err != nil {
		return fmt.Errorf("mark offer accepted: %w", err)
	}
	return nil
}

func (t *lifecycleTx) DeactivateOtherOffers(ctx context.Context, requestID, keepOfferID int64) (int64, error) {
	const query = `UPDATE offers SET status = 'INACTIVE', updated_at = $3 WHERE request_id = $1 AND id <> $2 AND status = 'ACTIVE'`
	res, err := t.tx.ExecContext(ctx, query, requestID, keepOfferID, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("deactivate sibling offers: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("deactivate sibling offers: %w", err)
	}
	return affected, nil
}

func (t *lifecycleTx) CountActiveOffers(ctx context.Context, requestID int64) (int, error) {
	const query = `SELECT COUNT(*) FROM offers WHERE request_id = $1 AND status = 'ACTIVE'`
	var count int
	if err := t.tx.GetContext(ctx, &count, query, requestID); err != nil {
		return 0, fmt.Errorf("count active offers: %w", err)
	}
	return count, nil
}
