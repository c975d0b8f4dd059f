package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/capdev-portal-api/internal/models"
	appErrors "github.com/noah-isme/capdev-portal-api/pkg/errors"
)

const (
	statusCacheKey = CacheKeyPrefix + "statuses"
	statusCacheTTL = time.Hour
)

type statusLister interface {
	List(ctx context.Context) ([]models.RequestStatus, error)
}

// StatusService serves the read-only request status registry.
type StatusService struct {
	repo   statusLister
	cache  readCache
	logger *zap.Logger
}

// NewStatusService constructs the service. cache may be nil.
func NewStatusService(repo statusLister, cache readCache, logger *zap.Logger) *StatusService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatusService{repo: repo, cache: cache, logger: logger}
}

// List returns the registry in lifecycle order and whether it was served from cache.
func (s *StatusService) List(ctx context.Context) ([]models.RequestStatus, bool, error) {
	if s.cache != nil {
		var cached []models.RequestStatus
		hit, err := s.cache.Get(ctx, statusCacheKey, &cached)
		if err != nil {
			s.logger.Warn("status cache read failed", zap.Error(err))
		}
		if hit && len(cached) > 0 {
			return cached, true, nil
		}
	}

	statuses, err := s.repo.List(ctx)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load status registry")
	}
	if len(statuses) == 0 {
		// an unseeded database still answers with the compiled catalog
		statuses = append([]models.RequestStatus(nil), models.RequestStatusCatalog...)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, statusCacheKey, statuses, statusCacheTTL); err != nil {
			s.logger.Warn("status cache write failed", zap.Error(err))
		}
	}
	return statuses, false, nil
}
