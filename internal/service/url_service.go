package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"linkforge/internal/cache"
	"linkforge/internal/entities"
	"linkforge/internal/metrics"
	"linkforge/internal/models"
	"linkforge/internal/repository"
	"linkforge/internal/shortcode"
)

const (
	MaxURLLength      = 2000
	MaxExpiryDays     = 365
	URLsPerPage       = 20
	DefaultClickLimit = 50
	MaxClickLimit     = 500
	recentWindow      = 24 * time.Hour
)

// URLOptions carries the configuration the URL service consumes
type URLOptions struct {
	BaseURL           string
	CodeLength        int
	DefaultExpiryDays int
	CreateRetries     uint64        // Regenerations after a write-time duplicate
	RetryBackoff      time.Duration // Pause between regenerations
	Now               func() time.Time
}

// URLService creates mappings and answers the read-only queries around them
type URLService struct {
	urls      repository.URLRepository
	clicks    repository.ClickRepository
	generator *shortcode.Generator
	cache     cache.Cache
	logger    *zap.Logger
	metrics   *metrics.Metrics

	baseURL           string
	codeLength        int
	defaultExpiryDays int
	createRetries     uint64
	retryBackoff      time.Duration
	nowFunc           func() time.Time
}

// NewURLService creates a new URL service. cacheClient may be nil.
func NewURLService(
	urls repository.URLRepository,
	clicks repository.ClickRepository,
	generator *shortcode.Generator,
	cacheClient cache.Cache,
	logger *zap.Logger,
	m *metrics.Metrics,
	opts URLOptions,
) *URLService {
	if opts.DefaultExpiryDays <= 0 {
		opts.DefaultExpiryDays = entities.DefaultExpiryDays
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 10 * time.Millisecond
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &URLService{
		urls:              urls,
		clicks:            clicks,
		generator:         generator,
		cache:             cacheClient,
		logger:            logger.Named("urls"),
		metrics:           m,
		baseURL:           strings.TrimRight(opts.BaseURL, "/"),
		codeLength:        opts.CodeLength,
		defaultExpiryDays: opts.DefaultExpiryDays,
		createRetries:     opts.CreateRetries,
		retryBackoff:      opts.RetryBackoff,
		nowFunc:           opts.Now,
	}
}

// NormalizeURL assumes https when no scheme is given and accepts only http and https URLs with a host
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: url is required", entities.ErrInvalidURL)
	}

	lower := strings.ToLower(raw)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		if strings.Contains(raw, "://") {
			return "", fmt.Errorf("%w: only http and https are supported", entities.ErrInvalidURL)
		}
		raw = "https://" + raw
	}

	if len(raw) > MaxURLLength {
		return "", fmt.Errorf("%w: url must be at most %d characters long", entities.ErrInvalidURL, MaxURLLength)
	}

	u, err := url.ParseRequestURI(raw)
	if err != nil || u.Hostname() == "" || strings.ContainsAny(u.Host, " \t") {
		return "", fmt.Errorf("%w: '%s'", entities.ErrInvalidURL, raw)
	}
	return raw, nil
}

// CreateShortURL validates the request, resolves a code and persists the mapping.
// Generated codes that lose a race at write time are regenerated a bounded number of times.
func (s *URLService) CreateShortURL(ctx context.Context, req *models.CreateURLRequest) (*models.CreateURLResponse, error) {
	destination, err := NormalizeURL(req.URL)
	if err != nil {
		return nil, err
	}

	days := s.defaultExpiryDays
	if req.ExpiresInDays != nil {
		days = *req.ExpiresInDays
	}
	if days < 1 || days > MaxExpiryDays {
		return nil, fmt.Errorf("%w: expires_in_days must be between 1 and %d", entities.ErrInvalidExpiry, MaxExpiryDays)
	}

	customCode := strings.TrimSpace(req.CustomCode)

	var mapping *entities.URLMapping
	if customCode != "" {
		mapping, err = s.createCustom(ctx, destination, customCode, days)
	} else {
		mapping, err = s.createGenerated(ctx, destination, days)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("short url created",
		zap.String("short_code", mapping.ShortCode),
		zap.Bool("custom", customCode != ""),
	)

	return &models.CreateURLResponse{
		ShortCode:   mapping.ShortCode,
		OriginalURL: mapping.OriginalURL,
		ShortURL:    s.shortURL(mapping.ShortCode),
		ExpiresAt:   mapping.ExpiresAt,
		CreatedAt:   mapping.CreatedAt,
	}, nil
}

func (s *URLService) buildMapping(code, destination string, days int) *entities.URLMapping {
	now := s.nowFunc()
	expiresAt := now.AddDate(0, 0, days)
	return entities.NewURLMapping(code, destination, now, &expiresAt)
}

func (s *URLService) createCustom(ctx context.Context, destination, customCode string, days int) (*entities.URLMapping, error) {
	code, err := s.generator.Generate(ctx, s.codeLength, customCode)
	if err != nil {
		return nil, err
	}

	mapping := s.buildMapping(code, destination, days)
	if err := s.urls.Create(ctx, mapping); err != nil {
		if errors.Is(err, entities.ErrDuplicateCode) {
			// Lost the race for a code the caller chose; not retried
			return nil, fmt.Errorf("%w: '%s'", entities.ErrCodeTaken, code)
		}
		return nil, fmt.Errorf("failed to create URL: %w", err)
	}

	s.metrics.Created.WithLabelValues("custom").Inc()
	return mapping, nil
}

func (s *URLService) createGenerated(ctx context.Context, destination string, days int) (*entities.URLMapping, error) {
	var mapping *entities.URLMapping

	backoff := retry.WithMaxRetries(s.createRetries, retry.NewConstant(s.retryBackoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		code, err := s.generator.Generate(ctx, s.codeLength, "")
		if err != nil {
			return err
		}

		candidate := s.buildMapping(code, destination, days)
		if err := s.urls.Create(ctx, candidate); err != nil {
			if errors.Is(err, entities.ErrDuplicateCode) {
				s.metrics.CreateRetries.Inc()
				s.logger.Debug("generated code collided at write time", zap.String("short_code", code))
				return retry.RetryableError(err)
			}
			return fmt.Errorf("failed to create URL: %w", err)
		}

		mapping = candidate
		return nil
	})
	if err != nil {
		if errors.Is(err, entities.ErrDuplicateCode) {
			return nil, fmt.Errorf("%w: duplicate on every write after %d retries", entities.ErrGenerationExhausted, s.createRetries)
		}
		return nil, err
	}

	s.metrics.Created.WithLabelValues("generated").Inc()
	return mapping, nil
}

// GetURLInfo returns a mapping whether or not it is active
func (s *URLService) GetURLInfo(ctx context.Context, shortCode string) (*models.URLInfoResponse, error) {
	mapping, err := s.urls.FindByShortCode(ctx, shortCode)
	if err != nil {
		return nil, err
	}
	return models.NewURLInfoResponse(mapping, s.baseURL, s.nowFunc()), nil
}

// GetStats aggregates counts over active mappings and the last day of clicks
func (s *URLService) GetStats(ctx context.Context) (*entities.Stats, error) {
	now := s.nowFunc()

	total, unexpired, clicks, err := s.urls.Counts(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("failed to count URLs: %w", err)
	}
	recent, err := s.clicks.CountSince(ctx, now.Add(-recentWindow))
	if err != nil {
		return nil, fmt.Errorf("failed to count recent clicks: %w", err)
	}

	return &entities.Stats{
		TotalURLs:    total,
		ActiveURLs:   unexpired,
		TotalClicks:  clicks,
		RecentClicks: recent,
	}, nil
}

// ListURLs returns one page of active mappings, most clicked first. Pages start at 1.
func (s *URLService) ListURLs(ctx context.Context, page int) (*models.URLListResponse, error) {
	if page < 1 {
		page = 1
	}

	urls, err := s.urls.ListActive(ctx, URLsPerPage, (page-1)*URLsPerPage)
	if err != nil {
		return nil, fmt.Errorf("failed to list URLs: %w", err)
	}

	now := s.nowFunc()
	resp := &models.URLListResponse{
		Page:    page,
		PerPage: URLsPerPage,
		URLs:    make([]*models.URLInfoResponse, 0, len(urls)),
	}
	for _, u := range urls {
		resp.URLs = append(resp.URLs, models.NewURLInfoResponse(u, s.baseURL, now))
	}
	return resp, nil
}

// SetActive flips the active flag. Deactivation leaves a marker in the cache
// so that a redirect still holding the old row cannot cache it again.
func (s *URLService) SetActive(ctx context.Context, shortCode string, active bool) (*models.URLInfoResponse, error) {
	mapping, err := s.urls.SetActive(ctx, shortCode, active)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		update := s.cache.Invalidate
		if !active {
			update = s.cache.MarkInactive
		}
		if err := update(ctx, shortCode); err != nil {
			s.logger.Warn("failed to update cached url", zap.String("short_code", shortCode), zap.Error(err))
		}
	}

	s.logger.Info("url activation changed", zap.String("short_code", shortCode), zap.Bool("is_active", active))
	return models.NewURLInfoResponse(mapping, s.baseURL, s.nowFunc()), nil
}

// ListClicks returns the newest click events of a mapping
func (s *URLService) ListClicks(ctx context.Context, shortCode string, limit int) ([]models.ClickResponse, error) {
	if limit <= 0 {
		limit = DefaultClickLimit
	}
	limit = min(limit, MaxClickLimit)

	mapping, err := s.urls.FindByShortCode(ctx, shortCode)
	if err != nil {
		return nil, err
	}

	events, err := s.clicks.ListByURL(ctx, mapping.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list clicks: %w", err)
	}

	resp := make([]models.ClickResponse, 0, len(events))
	for _, e := range events {
		resp = append(resp, models.NewClickResponse(e))
	}
	return resp, nil
}

func (s *URLService) shortURL(code string) string {
	return s.baseURL + "/" + code
}
