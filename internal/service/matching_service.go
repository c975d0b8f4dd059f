package service

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/capdev-portal-api/internal/models"
	appErrors "github.com/noah-isme/capdev-portal-api/pkg/errors"
)

const defaultMatchConcurrency = 4

type preferenceMatcher interface {
	FindEnabledUserIDs(ctx context.Context, entity models.EntityType, attr models.AttributeValue) ([]int64, error)
}

type matchObserver interface {
	ObserveMatchedRecipients(count int)
}

// MatchingService resolves which users asked to hear about entities carrying given attributes.
type MatchingService struct {
	prefs       preferenceMatcher
	metrics     matchObserver
	logger      *zap.Logger
	concurrency int
}

// NewMatchingService constructs the matcher. metrics may be nil.
func NewMatchingService(prefs preferenceMatcher, metrics matchObserver, logger *zap.Logger) *MatchingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MatchingService{prefs: prefs, metrics: metrics, logger: logger, concurrency: defaultMatchConcurrency}
}

// FindInterestedUsers returns the sorted, de-duplicated union of users holding an
// enabled preference for any of the attribute pairs.
func (s *MatchingService) FindInterestedUsers(ctx context.Context, entity models.EntityType, attrs []models.AttributeValue) ([]int64, error) {
	if !entity.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown entity type")
	}
	attrs = uniqueAttributes(attrs)
	if len(attrs) == 0 {
		return []int64{}, nil
	}

	var (
		mu   sync.Mutex
		seen = make(map[int64]struct{})
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, attr := range attrs {
		attr := attr
		g.Go(func() error {
			ids, err := s.prefs.FindEnabledUserIDs(gctx, entity, attr)
			if err != nil {
				return err
			}
			mu.Lock()
			for _, id := range ids {
				seen[id] = struct{}{}
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to match notification preferences")
	}

	users := make([]int64, 0, len(seen))
	for id := range seen {
		users = append(users, id)
	}
	sort.Slice(users, func(i, j int) bool { return users[i] < users[j] })

	if s.metrics != nil {
		s.metrics.ObserveMatchedRecipients(len(users))
	}
	s.logger.Debug("notification preferences matched",
		zap.String("entity_type", string(entity)),
		zap.Int("attributes", len(attrs)),
		zap.Int("users", len(users)),
	)
	return users, nil
}

func uniqueAttributes(attrs []models.AttributeValue) []models.AttributeValue {
	seen := make(map[models.AttributeValue]struct{}, len(attrs))
	out := make([]models.AttributeValue, 0, len(attrs))
	for _, attr := range attrs {
		if !attr.Type.Valid() || attr.Value == "" {
			continue
		}
		if _, ok := seen[attr]; ok {
			continue
		}
		seen[attr] = struct{}{}
		out = append(out, attr)
	}
	return out
}
