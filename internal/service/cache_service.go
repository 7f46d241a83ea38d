package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/acadops-api/pkg/errors"
	"github.com/noah-isme/acadops-api/pkg/logger"
)

const defaultCatalogCacheTTL = 10 * time.Minute

// catalogStore persists JSON catalog payloads. Misses are reported as appErrors.ErrCacheMiss.
type catalogStore interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CacheService fronts the branch catalogs that change rarely (time slot templates). A nil or disabled
// service behaves as a permanent miss, so callers never branch on its presence.
type CacheService struct {
	store   catalogStore
	metrics *MetricsService
	ttl     time.Duration
	logger  *zap.Logger
	enabled bool
}

// NewCacheService constructs a cache service. ttl applies when Set is called without one.
func NewCacheService(store catalogStore, metrics *MetricsService, ttl time.Duration, log *zap.Logger, enabled bool) *CacheService {
	if ttl <= 0 {
		ttl = defaultCatalogCacheTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &CacheService{store: store, metrics: metrics, ttl: ttl, logger: log, enabled: enabled}
}

// Enabled indicates whether caching is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.store != nil
}

// Get decodes the entry into dest and reports a hit. Store failures count as misses and are returned.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	start := time.Now()
	err := s.store.Get(ctx, key, dest)
	s.metrics.RecordCacheOperation(err == nil, time.Since(start))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, appErrors.ErrCacheMiss):
		return false, nil
	default:
		logger.FromContext(ctx, s.logger).Warn("catalog cache read failed", zap.String("key", key), zap.Error(err))
		return false, err
	}
}

// Set stores value under key.
func (s *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}
	if ttl <= 0 {
		ttl = s.ttl
	}
	start := time.Now()
	err := s.store.Set(ctx, key, value, ttl)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		logger.FromContext(ctx, s.logger).Warn("catalog cache write failed", zap.String("key", key), zap.Error(err))
	}
	return err
}

// Invalidate drops every entry matching pattern, typically one branch catalog key.
func (s *CacheService) Invalidate(ctx context.Context, pattern string) error {
	if !s.Enabled() {
		return nil
	}
	if err := s.store.DeleteByPattern(ctx, pattern); err != nil {
		logger.FromContext(ctx, s.logger).Warn("catalog cache invalidation failed", zap.String("pattern", pattern), zap.Error(err))
		return err
	}
	return nil
}
