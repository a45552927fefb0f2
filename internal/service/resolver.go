package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"linkforge/internal/cache"
	"linkforge/internal/entities"
	"linkforge/internal/metrics"
	"linkforge/internal/repository"
)

const incrementTimeout = 5 * time.Second

// ClickRecorder receives one event per successful resolve
type ClickRecorder interface {
	Record(mapping *entities.URLMapping, ip *string, userAgent, referer string)
}

// RequestInfo describes the visitor behind a resolve
type RequestInfo struct {
	IP        *string
	UserAgent string
	Referer   string
}

// RedirectResolver turns a short code into its destination and tracks the click.
// Expired, inactive and unknown codes all fail with an error matching entities.ErrNotFound.
type RedirectResolver struct {
	urls     repository.URLRepository
	recorder ClickRecorder
	cache    cache.Cache
	logger   *zap.Logger
	metrics  *metrics.Metrics
	nowFunc  func() time.Time

	wg sync.WaitGroup
}

// NewRedirectResolver creates a resolver. cacheClient may be nil.
func NewRedirectResolver(
	urls repository.URLRepository,
	recorder ClickRecorder,
	cacheClient cache.Cache,
	logger *zap.Logger,
	m *metrics.Metrics,
	nowFunc func() time.Time,
) *RedirectResolver {
	if nowFunc == nil {
		nowFunc = time.Now
	}
	return &RedirectResolver{
		urls:     urls,
		recorder: recorder,
		cache:    cacheClient,
		logger:   logger.Named("resolver"),
		metrics:  m,
		nowFunc:  nowFunc,
	}
}

// Resolve returns the destination for code. The click event is queued and the
// counter is incremented in the background, so neither delays the answer.
func (r *RedirectResolver) Resolve(ctx context.Context, code string, info RequestInfo) (string, error) {
	mapping, err := r.lookupActive(ctx, code)
	if err != nil {
		if errors.Is(err, entities.ErrNotFound) {
			r.metrics.Redirects.WithLabelValues("not_found").Inc()
		}
		return "", err
	}

	if mapping.IsExpired(r.nowFunc()) {
		r.metrics.Redirects.WithLabelValues("expired").Inc()
		return "", fmt.Errorf("%w: '%s'", entities.ErrExpired, code)
	}

	r.recorder.Record(mapping, info.IP, info.UserAgent, info.Referer)

	r.wg.Add(1)
	go r.incrementClick(context.WithoutCancel(ctx), mapping)

	r.metrics.Redirects.WithLabelValues("ok").Inc()
	return mapping.OriginalURL, nil
}

// Wait blocks until every pending click increment has finished
func (r *RedirectResolver) Wait() {
	r.wg.Wait()
}

func (r *RedirectResolver) lookupActive(ctx context.Context, code string) (*entities.URLMapping, error) {
	refill := r.cache != nil
	if r.cache != nil {
		mapping, err := r.cache.GetMapping(ctx, code)
		switch {
		case err == nil:
			r.metrics.CacheLookups.WithLabelValues("hit").Inc()
			return mapping, nil
		case errors.Is(err, cache.ErrInactive):
			r.metrics.CacheLookups.WithLabelValues("inactive").Inc()
			refill = false
		case errors.Is(err, cache.ErrMiss):
			r.metrics.CacheLookups.WithLabelValues("miss").Inc()
		default:
			r.metrics.CacheLookups.WithLabelValues("error").Inc()
			r.logger.Warn("cache lookup failed", zap.String("short_code", code), zap.Error(err))
		}
	}

	mapping, err := r.urls.FindActiveByShortCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if refill {
		if err := r.cache.SetMapping(ctx, mapping); err != nil {
			r.logger.Warn("failed to cache url", zap.String("short_code", code), zap.Error(err))
		}
	}
	return mapping, nil
}

func (r *RedirectResolver) incrementClick(ctx context.Context, mapping *entities.URLMapping) {
	defer r.wg.Done()

	ctx, cancel := context.WithTimeout(ctx, incrementTimeout)
	defer cancel()

	if err := r.urls.IncrementClickCount(ctx, mapping.ID); err != nil {
		r.logger.Error("failed to increment click count",
			zap.String("short_code", mapping.ShortCode),
			zap.Error(err),
		)
	}
}
