package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/capdev-portal-api/internal/models"
	appErrors "github.com/noah-isme/capdev-portal-api/pkg/errors"
)

type preferenceMatcherStub struct {
	mu      sync.Mutex
	byAttr  map[models.AttributeValue][]int64
	failOn  *models.AttributeValue
	lookups []models.AttributeValue
}

func (p *preferenceMatcherStub) FindEnabledUserIDs(ctx context.Context, entity models.EntityType, attr models.AttributeValue) ([]int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lookups = append(p.lookups, attr)
	if p.failOn != nil && *p.failOn == attr {
		return nil, errors.New("db unavailable")
	}
	return p.byAttr[attr], nil
}

type matchObserverStub struct {
	counts []int
}

func (m *matchObserverStub) ObserveMatchedRecipients(count int) {
	m.counts = append(m.counts, count)
}

func TestFindInterestedUsersUnionsAndDeduplicates(t *testing.T) {
	bycatch := models.AttributeValue{Type: models.AttributeSubtheme, Value: "bycatch"}
	training := models.AttributeValue{Type: models.AttributeSupportType, Value: "training"}
	kenya := models.AttributeValue{Type: models.AttributeDeliveryCountry, Value: "KE"}
	prefs := &preferenceMatcherStub{byAttr: map[models.AttributeValue][]int64{
		bycatch:  {9, 3},
		training: {3, 5},
		kenya:    {},
	}}
	observer := &matchObserverStub{}
	svc := NewMatchingService(prefs, observer, nil)

	users, err := svc.FindInterestedUsers(context.Background(), models.EntityRequest, []models.AttributeValue{bycatch, training, kenya, bycatch})
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 5, 9}, users)
	assert.Len(t, prefs.lookups, 3)
	assert.Equal(t, []int{3}, observer.counts)
}

func TestFindInterestedUsersEmptyAttributes(t *testing.T) {
	prefs := &preferenceMatcherStub{}
	svc := NewMatchingService(prefs, nil, nil)

	users, err := svc.FindInterestedUsers(context.Background(), models.EntityOpportunity, []models.AttributeValue{
		{Type: models.AttributeSubtheme, Value: ""},
		{Type: "colour", Value: "blue"},
	})
	require.NoError(t, err)
	assert.Empty(t, users)
	assert.Empty(t, prefs.lookups)
}

func TestFindInterestedUsersErrors(t *testing.T) {
	svc := NewMatchingService(&preferenceMatcherStub{}, nil, nil)
	_, err := svc.FindInterestedUsers(context.Background(), "invoice", nil)
	assertAppError(t, err, appErrors.ErrValidation)

	broken := models.AttributeValue{Type: models.AttributeSubtheme, Value: "bycatch"}
	svc = NewMatchingService(&preferenceMatcherStub{failOn: &broken}, nil, nil)
	_, err = svc.FindInterestedUsers(context.Background(), models.EntityRequest, []models.AttributeValue{broken})
	assertAppError(t, err, appErrors.ErrInternal)
}
