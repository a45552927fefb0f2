package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"linkforge/internal/entities"
)

// ErrMiss is returned when no mapping is cached for a code
var ErrMiss = errors.New("cache miss")

// ErrInactive is a miss for a code that was deactivated recently; callers
// must not cache the mapping again until the marker is gone.
var ErrInactive = fmt.Errorf("%w: deactivated", ErrMiss)

const inactiveMarker = "inactive"

// Cache holds active mappings in front of the store
type Cache interface {
	GetMapping(ctx context.Context, shortCode string) (*entities.URLMapping, error)
	SetMapping(ctx context.Context, mapping *entities.URLMapping) error
	MarkInactive(ctx context.Context, shortCode string) error
	Invalidate(ctx context.Context, shortCode string) error
	Close() error
}

type redisCache struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisCache creates a new Redis cache client
func NewRedisCache(ctx context.Context, redisURL string, ttl time.Duration) (Cache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		// If URL parsing fails, try as simple host:port
		opt = &redis.Options{Addr: redisURL}
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &redisCache{client: client, ttl: ttl, now: time.Now}, nil
}

func mappingKey(shortCode string) string {
	return "url:" + shortCode
}

// GetMapping returns the cached mapping, ErrMiss, or ErrInactive for a deactivated code
func (r *redisCache) GetMapping(ctx context.Context, shortCode string) (*entities.URLMapping, error) {
	data, err := r.client.Get(ctx, mappingKey(shortCode)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, err
	}
	if string(data) == inactiveMarker {
		return nil, ErrInactive
	}

	var mapping entities.URLMapping
	if err := json.Unmarshal(data, &mapping); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}
	return &mapping, nil
}

// SetMapping caches mapping until the TTL or its expiration, whichever comes first.
// An existing entry, including a deactivation marker, is left untouched.
func (r *redisCache) SetMapping(ctx context.Context, mapping *entities.URLMapping) error {
	ttl := r.ttl
	if mapping.ExpiresAt != nil {
		if left := mapping.ExpiresAt.Sub(r.now()); left < ttl {
			ttl = left
		}
	}
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return r.client.SetNX(ctx, mappingKey(mapping.ShortCode), data, ttl).Err()
}

// MarkInactive replaces the cached mapping with a deactivation marker for one TTL
func (r *redisCache) MarkInactive(ctx context.Context, shortCode string) error {
	return r.client.Set(ctx, mappingKey(shortCode), inactiveMarker, r.ttl).Err()
}

// Invalidate drops the cached entry for a code
func (r *redisCache) Invalidate(ctx context.Context, shortCode string) error {
	return r.client.Del(ctx, mappingKey(shortCode)).Err()
}

func (r *redisCache) Close() error {
	return r.client.Close()
}
