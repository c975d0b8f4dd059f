package service

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/capdev-portal-api/internal/dto"
	"github.com/noah-isme/capdev-portal-api/internal/models"
	"github.com/noah-isme/capdev-portal-api/internal/repository"
	appErrors "github.com/noah-isme/capdev-portal-api/pkg/errors"
	"github.com/noah-isme/capdev-portal-api/pkg/storage"
)

// lifecycleStoreStub keeps rows in memory; WithinTx works on a copy that is only
// committed when the callback succeeds.
type lifecycleStoreStub struct {
	requests    map[int64]*models.Request
	offers      map[int64]*models.Offer
	documents   map[int64][]string
	nextOfferID int64
	failStatus  error
}

func newLifecycleStoreStub() *lifecycleStoreStub {
	return &lifecycleStoreStub{
		requests:    make(map[int64]*models.Request),
		offers:      make(map[int64]*models.Offer),
		documents:   make(map[int64][]string),
		nextOfferID: 100,
	}
}

func (s *lifecycleStoreStub) WithinTx(ctx context.Context, fn func(tx repository.LifecycleTx) error) error {
	tx := &lifecycleTxStub{
		requests:   make(map[int64]*models.Request, len(s.requests)),
		offers:     make(map[int64]*models.Offer, len(s.offers)),
		documents:  make(map[int64][]string, len(s.documents)),
		nextID:     s.nextOfferID,
		failStatus: s.failStatus,
	}
	for id, r := range s.requests {
		cp := *r
		tx.requests[id] = &cp
	}
	for id, o := range s.offers {
		cp := *o
		tx.offers[id] = &cp
	}
	for id, paths := range s.documents {
		tx.documents[id] = append([]string(nil), paths...)
	}
	if err := fn(tx); err != nil {
		return err
	}
	s.requests, s.offers, s.documents, s.nextOfferID = tx.requests, tx.offers, tx.documents, tx.nextID
	return nil
}

func (s *lifecycleStoreStub) GetByID(ctx context.Context, id int64) (*models.Offer, error) {
	o, ok := s.offers[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *o
	return &cp, nil
}

func (s *lifecycleStoreStub) activeOffers(requestID int64) []int64 {
	var ids []int64
	for id, o := range s.offers {
		if o.RequestID == requestID && o.Status == models.OfferActive {
			ids = append(ids, id)
		}
	}
	return ids
}

type lifecycleTxStub struct {
	requests   map[int64]*models.Request
	offers     map[int64]*models.Offer
	documents  map[int64][]string
	nextID     int64
	failStatus error
}

func (t *lifecycleTxStub) LockRequest(ctx context.Context, id int64) (*models.Request, error) {
	r, ok := t.requests[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *r
	return &cp, nil
}

func (t *lifecycleTxStub) LockOffer(ctx context.Context, id int64) (*models.Offer, error) {
	o, ok := t.offers[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *o
	return &cp, nil
}

func (t *lifecycleTxStub) UpdateRequestStatus(ctx context.Context, id int64, status models.RequestStatusCode) error {
	if t.failStatus != nil {
		return t.failStatus
	}
	t.requests[id].Status = status
	return nil
}

func (t *lifecycleTxStub) SetMatchedPartner(ctx context.Context, requestID, partnerID int64) error {
	t.requests[requestID].MatchedPartnerID = &partnerID
	return nil
}

func (t *lifecycleTxStub) DeleteRequest(ctx context.Context, id int64) ([]string, error) {
	paths := t.documents[id]
	delete(t.documents, id)
	delete(t.requests, id)
	return paths, nil
}

func (t *lifecycleTxStub) InsertOffer(ctx context.Context, offer *models.Offer) error {
	t.nextID++
	offer.ID = t.nextID
	cp := *offer
	t.offers[offer.ID] = &cp
	return nil
}

func (t *lifecycleTxStub) SetOfferStatus(ctx context.Context, id int64, status models.OfferStatus) error {
	t.offers[id].Status = status
	return nil
}

func (t *lifecycleTxStub) MarkOfferAccepted(ctx context.Context, id int64, at time.Time) error {
	o := t.offers[id]
	o.IsAccepted = true
	o.AcceptedAt = &at
	o.Status = models.OfferActive
	return nil
}

func (t *lifecycleTxStub) DeactivateOtherOffers(ctx context.Context, requestID, keepOfferID int64) (int64, error) {
	var n int64
	for id, o := range t.offers {
		if o.RequestID == requestID && id != keepOfferID && o.Status == models.OfferActive {
			o.Status = models.OfferInactive
			n++
		}
	}
	return n, nil
}

func (t *lifecycleTxStub) CountActiveOffers(ctx context.Context, requestID int64) (int, error) {
	n := 0
	for _, o := range t.offers {
		if o.RequestID == requestID && o.Status == models.OfferActive {
			n++
		}
	}
	return n, nil
}

type eventRecorder struct {
	events []Event
}

func (r *eventRecorder) Publish(ctx context.Context, event Event) {
	r.events = append(r.events, event)
}

func (r *eventRecorder) types() []EventType {
	out := make([]EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

type auditLogStub struct {
	logs []*models.AuditLog
	err  error
}

func (a *auditLogStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.logs = append(a.logs, log)
	return a.err
}

type lifecycleMetricsStub struct {
	transitions int
	accepted    int
}

func (m *lifecycleMetricsStub) RecordTransition(from, to models.RequestStatusCode) { m.transitions++ }
func (m *lifecycleMetricsStub) RecordOfferAccepted()                               { m.accepted++ }

const (
	ownerID   int64 = 1
	adminID   int64 = 2
	partnerID int64 = 3
	otherID   int64 = 4
)

var (
	ownerClaims   = &models.JWTClaims{UserID: ownerID, Role: models.RoleUser}
	adminClaims   = &models.JWTClaims{UserID: adminID, Role: models.RoleAdministrator}
	partnerClaims = &models.JWTClaims{UserID: partnerID, Role: models.RolePartner}
	otherClaims   = &models.JWTClaims{UserID: otherID, Role: models.RoleUser}
)

type lifecycleFixture struct {
	store   *lifecycleStoreStub
	events  *eventRecorder
	audit   *auditLogStub
	metrics *lifecycleMetricsStub
	svc     *LifecycleService
}

func newLifecycleFixture() *lifecycleFixture {
	store := newLifecycleStoreStub()
	events := &eventRecorder{}
	audit := &auditLogStub{}
	metrics := &lifecycleMetricsStub{}
	partners := &accountStub{users: map[string]*models.User{
		"partner@example.org": {ID: partnerID, Role: models.RolePartner, Active: true},
		"ngo@example.org":     {ID: 7, Role: models.RolePartner, Active: true},
		"other@example.org":   {ID: otherID, Role: models.RoleUser, Active: true},
		"former@example.org":  {ID: 8, Role: models.RolePartner},
	}}
	svc := NewLifecycleService(store, store, audit, events, nil, nil, WithLifecycleMetrics(metrics), WithLifecyclePartners(partners))
	return &lifecycleFixture{store: store, events: events, audit: audit, metrics: metrics, svc: svc}
}

func (f *lifecycleFixture) addRequest(id int64, status models.RequestStatusCode) {
	f.store.requests[id] = &models.Request{ID: id, UserID: ownerID, Status: status}
}

func (f *lifecycleFixture) addOffer(id, requestID int64, status models.OfferStatus) {
	f.store.offers[id] = &models.Offer{ID: id, RequestID: requestID, MatchedPartnerID: partnerID, Status: status, Description: "offer"}
}

func assertAppError(t *testing.T, err error, expected *appErrors.Error) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, expected.Code, appErrors.FromError(err).Code, err.Error())
	assert.True(t, errors.Is(err, expected))
}

func TestTransitionRequestStatusOwnerSubmitsDraft(t *testing.T) {
	f := newLifecycleFixture()
	f.addRequest(10, models.StatusDraft)

	req, err := f.svc.TransitionRequestStatus(context.Background(), 10, models.StatusUnderReview, ownerClaims)
	require.NoError(t, err)
	assert.Equal(t, models.StatusUnderReview, req.Status)
	assert.Equal(t, models.StatusUnderReview, f.store.requests[10].Status)

	require.Len(t, f.events.events, 1)
	event := f.events.events[0]
	assert.Equal(t, EventRequestStatusChanged, event.Type)
	assert.Equal(t, models.StatusDraft, event.From)
	assert.Equal(t, models.StatusUnderReview, event.To)
	assert.Equal(t, ownerID, event.ActorID)
	assert.Equal(t, 1, f.metrics.transitions)
	require.Len(t, f.audit.logs, 1)
	assert.Equal(t, models.AuditActionRequestTransition, f.audit.logs[0].Action)

	_, err = f.svc.TransitionRequestStatus(context.Background(), 10, models.StatusUnderReview, otherClaims)
	assertAppError(t, err, appErrors.ErrForbidden)
}

func TestTransitionRequestStatusCheckOrder(t *testing.T) {
	cases := []struct {
		name     string
		status   models.RequestStatusCode
		target   models.RequestStatusCode
		actor    *models.JWTClaims
		expected *appErrors.Error
	}{
		{"stranger before unknown code", models.StatusDraft, "archived", otherClaims, appErrors.ErrForbidden},
		{"unknown code", models.StatusDraft, "archived", ownerClaims, appErrors.ErrInvalidStatus},
		{"unknown code on terminal request", models.StatusClosed, "archived", adminClaims, appErrors.ErrInvalidStatus},
		{"leaving closed", models.StatusClosed, models.StatusValidated, adminClaims, appErrors.ErrTerminalState},
		{"leaving rejected", models.StatusRejected, models.StatusDraft, ownerClaims, appErrors.ErrTerminalState},
		{"leaving unmatched", models.StatusUnmatched, models.StatusValidated, adminClaims, appErrors.ErrTerminalState},
		{"skipping ahead", models.StatusDraft, models.StatusClosed, adminClaims, appErrors.ErrInvalidTransition},
		{"same status", models.StatusValidated, models.StatusValidated, adminClaims, appErrors.ErrInvalidTransition},
		{"owner validating", models.StatusUnderReview, models.StatusValidated, ownerClaims, appErrors.ErrForbidden},
		{"match without accepted offer", models.StatusOfferMade, models.StatusMatchMade, adminClaims, appErrors.ErrInvalidTransition},
		{"offer made without an offer", models.StatusValidated, models.StatusOfferMade, adminClaims, appErrors.ErrInvalidTransition},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newLifecycleFixture()
			f.addRequest(10, tc.status)

			_, err := f.svc.TransitionRequestStatus(context.Background(), 10, tc.target, tc.actor)
			assertAppError(t, err, tc.expected)
			assert.Equal(t, tc.status, f.store.requests[10].Status)
			assert.Empty(t, f.events.events)
		})
	}
}

func TestTransitionRequestStatusNotFound(t *testing.T) {
	f := newLifecycleFixture()
	_, err := f.svc.TransitionRequestStatus(context.Background(), 404, models.StatusValidated, adminClaims)
	assertAppError(t, err, appErrors.ErrNotFound)

	_, err = f.svc.TransitionRequestStatus(context.Background(), 404, models.StatusValidated, nil)
	assertAppError(t, err, appErrors.ErrUnauthorized)
}

func TestTransitionRequestStatusAdminWalksLifecycle(t *testing.T) {
	f := newLifecycleFixture()
	f.addRequest(10, models.StatusUnderReview)
	f.addOffer(20, 10, models.OfferActive)
	partner := partnerID
	f.store.requests[10].MatchedPartnerID = &partner

	path := []models.RequestStatusCode{
		models.StatusValidated,
		models.StatusOfferMade,
		models.StatusMatchMade,
		models.StatusInImplementation,
		models.StatusClosed,
	}
	for _, target := range path {
		_, err := f.svc.TransitionRequestStatus(context.Background(), 10, target, adminClaims)
		require.NoError(t, err, target)
	}
	assert.Equal(t, models.StatusClosed, f.store.requests[10].Status)
	assert.Equal(t, len(path), f.metrics.transitions)

	_, err := f.svc.TransitionRequestStatus(context.Background(), 10, models.StatusInImplementation, adminClaims)
	assertAppError(t, err, appErrors.ErrTerminalState)
}

func TestTransitionBackToValidatedWithdrawsOffers(t *testing.T) {
	f := newLifecycleFixture()
	f.addRequest(10, models.StatusOfferMade)
	f.addOffer(20, 10, models.OfferActive)

	req, err := f.svc.TransitionRequestStatus(context.Background(), 10, models.StatusValidated, adminClaims)
	require.NoError(t, err)
	assert.Equal(t, models.StatusValidated, req.Status)
	assert.Empty(t, f.store.activeOffers(10))
	assert.Equal(t, models.OfferInactive, f.store.offers[20].Status)
}

func TestAcceptOfferIsNotReentrant(t *testing.T) {
	f := newLifecycleFixture()
	f.addRequest(10, models.StatusOfferMade)
	f.addOffer(20, 10, models.OfferInactive)
	f.addOffer(21, 10, models.OfferActive)

	offer, err := f.svc.AcceptOffer(context.Background(), 20, ownerClaims)
	require.NoError(t, err)
	assert.True(t, offer.IsAccepted)
	assert.NotNil(t, offer.AcceptedAt)
	assert.Equal(t, models.OfferActive, offer.Status)

	req := f.store.requests[10]
	assert.Equal(t, models.StatusMatchMade, req.Status)
	require.NotNil(t, req.MatchedPartnerID)
	assert.Equal(t, partnerID, *req.MatchedPartnerID)
	assert.Equal(t, []int64{20}, f.store.activeOffers(10))
	assert.Equal(t, []EventType{EventOfferAccepted, EventRequestStatusChanged}, f.events.types())
	assert.Equal(t, 1, f.metrics.accepted)

	_, err = f.svc.AcceptOffer(context.Background(), 20, ownerClaims)
	assertAppError(t, err, appErrors.ErrAlreadyAccepted)
	assert.Equal(t, 1, f.metrics.accepted)
}

func TestAcceptOfferGuards(t *testing.T) {
	t.Run("not the owner", func(t *testing.T) {
		f := newLifecycleFixture()
		f.addRequest(10, models.StatusOfferMade)
		f.addOffer(20, 10, models.OfferActive)

		_, err := f.svc.AcceptOffer(context.Background(), 20, adminClaims)
		assertAppError(t, err, appErrors.ErrForbidden)
		_, err = f.svc.AcceptOffer(context.Background(), 20, partnerClaims)
		assertAppError(t, err, appErrors.ErrForbidden)
		assert.False(t, f.store.offers[20].IsAccepted)
	})

	t.Run("terminal request", func(t *testing.T) {
		f := newLifecycleFixture()
		f.addRequest(10, models.StatusUnmatched)
		f.addOffer(20, 10, models.OfferActive)

		_, err := f.svc.AcceptOffer(context.Background(), 20, ownerClaims)
		assertAppError(t, err, appErrors.ErrTerminalState)
	})

	t.Run("request not awaiting offers", func(t *testing.T) {
		f := newLifecycleFixture()
		f.addRequest(10, models.StatusUnderReview)
		f.addOffer(20, 10, models.OfferActive)

		_, err := f.svc.AcceptOffer(context.Background(), 20, ownerClaims)
		assertAppError(t, err, appErrors.ErrInvalidTransition)
	})

	t.Run("missing offer", func(t *testing.T) {
		f := newLifecycleFixture()
		_, err := f.svc.AcceptOffer(context.Background(), 99, ownerClaims)
		assertAppError(t, err, appErrors.ErrNotFound)
	})
}

func TestChangeOfferStatusKeepsSingleActiveOffer(t *testing.T) {
	f := newLifecycleFixture()
	f.addRequest(10, models.StatusOfferMade)
	f.addOffer(20, 10, models.OfferActive)
	f.addOffer(21, 10, models.OfferInactive)

	offer, err := f.svc.ChangeOfferStatus(context.Background(), 21, models.OfferActive, partnerClaims)
	require.NoError(t, err)
	assert.Equal(t, models.OfferActive, offer.Status)
	assert.Equal(t, []int64{21}, f.store.activeOffers(10))
	assert.Equal(t, models.OfferInactive, f.store.offers[20].Status)

	_, err = f.svc.ChangeOfferStatus(context.Background(), 20, models.OfferActive, otherClaims)
	assertAppError(t, err, appErrors.ErrForbidden)

	_, err = f.svc.ChangeOfferStatus(context.Background(), 20, "PENDING", adminClaims)
	assertAppError(t, err, appErrors.ErrValidation)
}

func TestChangeOfferStatusActivationAdvancesValidatedRequest(t *testing.T) {
	f := newLifecycleFixture()
	f.addRequest(10, models.StatusValidated)
	f.addOffer(20, 10, models.OfferInactive)

	_, err := f.svc.ChangeOfferStatus(context.Background(), 20, models.OfferActive, adminClaims)
	require.NoError(t, err)
	assert.Equal(t, models.StatusOfferMade, f.store.requests[10].Status)

	_, err = f.svc.ChangeOfferStatus(context.Background(), 20, models.OfferInactive, adminClaims)
	require.NoError(t, err)
	assert.Equal(t, models.StatusValidated, f.store.requests[10].Status)
	assert.Empty(t, f.store.activeOffers(10))
}

func TestChangeOfferStatusAcceptedOfferStaysActive(t *testing.T) {
	f := newLifecycleFixture()
	f.addRequest(10, models.StatusMatchMade)
	f.addOffer(20, 10, models.OfferActive)
	f.store.offers[20].IsAccepted = true

	_, err := f.svc.ChangeOfferStatus(context.Background(), 20, models.OfferInactive, adminClaims)
	assertAppError(t, err, appErrors.ErrConflict)
	assert.Equal(t, models.OfferActive, f.store.offers[20].Status)

	unchanged, err := f.svc.ChangeOfferStatus(context.Background(), 20, models.OfferActive, adminClaims)
	require.NoError(t, err)
	assert.Equal(t, models.OfferActive, unchanged.Status)
	assert.Empty(t, f.audit.logs)
}

func TestCreateOfferSupersedesActiveOffer(t *testing.T) {
	f := newLifecycleFixture()
	f.addRequest(10, models.StatusValidated)

	first, err := f.svc.CreateOffer(context.Background(), 10, dto.CreateOfferRequest{Description: "<p>We run the workshop</p><script>x()</script>"}, partnerClaims)
	require.NoError(t, err)
	assert.Equal(t, "<p>We run the workshop</p>", first.Description)
	assert.Equal(t, models.StatusOfferMade, f.store.requests[10].Status)

	onBehalf := int64(7)
	second, err := f.svc.CreateOffer(context.Background(), 10, dto.CreateOfferRequest{Description: "alternative", PartnerID: &onBehalf}, adminClaims)
	require.NoError(t, err)
	assert.Equal(t, onBehalf, second.MatchedPartnerID)
	assert.Equal(t, []int64{second.ID}, f.store.activeOffers(10))
	assert.Equal(t, models.OfferInactive, f.store.offers[first.ID].Status)
	assert.Equal(t, []EventType{EventOfferCreated, EventRequestStatusChanged, EventOfferCreated}, f.events.types())
}

func TestCreateOfferOnBehalfRequiresActivePartner(t *testing.T) {
	f := newLifecycleFixture()
	f.addRequest(10, models.StatusValidated)

	for _, id := range []int64{99, otherID, 8} {
		target := id
		_, err := f.svc.CreateOffer(context.Background(), 10, dto.CreateOfferRequest{Description: "help", PartnerID: &target}, adminClaims)
		assertAppError(t, err, appErrors.ErrValidation)
	}
	assert.Empty(t, f.store.offers)
	assert.Equal(t, models.StatusValidated, f.store.requests[10].Status)
}

func TestCreateOfferGuards(t *testing.T) {
	f := newLifecycleFixture()
	f.addRequest(10, models.StatusValidated)
	f.addRequest(11, models.StatusDraft)
	f.addRequest(12, models.StatusClosed)

	_, err := f.svc.CreateOffer(context.Background(), 10, dto.CreateOfferRequest{Description: "x"}, otherClaims)
	assertAppError(t, err, appErrors.ErrForbidden)

	selfOffer := ownerID
	_, err = f.svc.CreateOffer(context.Background(), 10, dto.CreateOfferRequest{Description: "x", PartnerID: &selfOffer}, adminClaims)
	assertAppError(t, err, appErrors.ErrForbidden)

	_, err = f.svc.CreateOffer(context.Background(), 10, dto.CreateOfferRequest{}, partnerClaims)
	assertAppError(t, err, appErrors.ErrValidation)

	_, err = f.svc.CreateOffer(context.Background(), 11, dto.CreateOfferRequest{Description: "x"}, partnerClaims)
	assertAppError(t, err, appErrors.ErrInvalidTransition)

	_, err = f.svc.CreateOffer(context.Background(), 12, dto.CreateOfferRequest{Description: "x"}, partnerClaims)
	assertAppError(t, err, appErrors.ErrTerminalState)
	assert.Empty(t, f.store.offers)
}

func TestCreateOfferRollsBackOnFailure(t *testing.T) {
	f := newLifecycleFixture()
	f.addRequest(10, models.StatusValidated)
	f.store.failStatus = errors.New("connection reset")

	_, err := f.svc.CreateOffer(context.Background(), 10, dto.CreateOfferRequest{Description: "x"}, partnerClaims)
	assertAppError(t, err, appErrors.ErrInternal)
	assert.Empty(t, f.store.offers)
	assert.Equal(t, models.StatusValidated, f.store.requests[10].Status)
	assert.Empty(t, f.events.events)
}

func TestRejectOfferRevertsRequestWithoutActiveOffers(t *testing.T) {
	f := newLifecycleFixture()
	f.addRequest(10, models.StatusOfferMade)
	f.addOffer(20, 10, models.OfferActive)

	_, err := f.svc.RejectOffer(context.Background(), 20, partnerClaims)
	assertAppError(t, err, appErrors.ErrForbidden)

	offer, err := f.svc.RejectOffer(context.Background(), 20, ownerClaims)
	require.NoError(t, err)
	assert.Equal(t, models.OfferInactive, offer.Status)
	assert.Equal(t, models.StatusValidated, f.store.requests[10].Status)
	assert.Equal(t, []EventType{EventOfferRejected, EventRequestStatusChanged}, f.events.types())
}

func TestRejectOfferRefusesAcceptedOffer(t *testing.T) {
	f := newLifecycleFixture()
	f.addRequest(10, models.StatusMatchMade)
	f.addOffer(20, 10, models.OfferActive)
	f.store.offers[20].IsAccepted = true

	_, err := f.svc.RejectOffer(context.Background(), 20, ownerClaims)
	assertAppError(t, err, appErrors.ErrAlreadyAccepted)
}

func TestDeleteRequestOnlyWhileDraft(t *testing.T) {
	f := newLifecycleFixture()
	f.addRequest(10, models.StatusDraft)
	f.addRequest(11, models.StatusValidated)

	_, err := f.svc.DeleteRequest(context.Background(), 10, otherClaims)
	assertAppError(t, err, appErrors.ErrForbidden)

	ok, err := f.svc.DeleteRequest(context.Background(), 11, adminClaims)
	assertAppError(t, err, appErrors.ErrConflict)
	assert.False(t, ok)
	assert.Contains(t, f.store.requests, int64(11))

	ok, err = f.svc.DeleteRequest(context.Background(), 10, ownerClaims)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotContains(t, f.store.requests, int64(10))

	_, err = f.svc.DeleteRequest(context.Background(), 10, ownerClaims)
	assertAppError(t, err, appErrors.ErrNotFound)
}

func TestDeleteRequestRemovesStoredFiles(t *testing.T) {
	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	stored, _, err := files.SaveStream("requests/10/terms.pdf", strings.NewReader("terms"))
	require.NoError(t, err)

	f := newLifecycleFixture()
	f.addRequest(10, models.StatusDraft)
	f.store.documents[10] = []string{stored, "requests/10/already-gone.pdf"}
	svc := NewLifecycleService(f.store, f.store, f.audit, f.events, nil, nil, WithLifecycleFiles(files))

	ok, err := svc.DeleteRequest(context.Background(), 10, ownerClaims)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, f.store.documents)

	path, err := files.Path(stored)
	require.NoError(t, err)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestAuditFailureDoesNotFailTransition(t *testing.T) {
	f := newLifecycleFixture()
	f.audit.err = errors.New("audit table locked")
	f.addRequest(10, models.StatusDraft)

	_, err := f.svc.TransitionRequestStatus(context.Background(), 10, models.StatusUnderReview, ownerClaims)
	require.NoError(t, err)
	assert.Len(t, f.audit.logs, 1)
}
