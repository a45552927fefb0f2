package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"linkforge/internal/entities"
)

// MemoryStore keeps mappings and clicks in process memory. It is used when no
// database is configured and in tests.
type MemoryStore struct {
	mu      sync.RWMutex
	nextURL int64
	byCode  map[string]*entities.URLMapping
	byID    map[int64]*entities.URLMapping

	nextClick int64
	clicks    []*entities.ClickEvent
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byCode: make(map[string]*entities.URLMapping),
		byID:   make(map[int64]*entities.URLMapping),
	}
}

// URLs returns the mapping side of the store
func (m *MemoryStore) URLs() URLRepository { return memoryURLs{m} }

// Clicks returns the click event side of the store
func (m *MemoryStore) Clicks() ClickRepository { return memoryClicks{m} }

type memoryURLs struct{ m *MemoryStore }

func copyURL(u *entities.URLMapping) *entities.URLMapping {
	c := *u
	if u.ExpiresAt != nil {
		t := *u.ExpiresAt
		c.ExpiresAt = &t
	}
	return &c
}

func (r memoryURLs) Create(_ context.Context, mapping *entities.URLMapping) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if _, exists := r.m.byCode[mapping.ShortCode]; exists {
		return fmt.Errorf("%w: '%s'", entities.ErrDuplicateCode, mapping.ShortCode)
	}

	r.m.nextURL++
	mapping.ID = r.m.nextURL
	stored := copyURL(mapping)
	r.m.byCode[stored.ShortCode] = stored
	r.m.byID[stored.ID] = stored
	return nil
}

func (r memoryURLs) FindByShortCode(_ context.Context, shortCode string) (*entities.URLMapping, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	u, ok := r.m.byCode[shortCode]
	if !ok {
		return nil, entities.ErrNotFound
	}
	return copyURL(u), nil
}

func (r memoryURLs) FindActiveByShortCode(ctx context.Context, shortCode string) (*entities.URLMapping, error) {
	u, err := r.FindByShortCode(ctx, shortCode)
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, entities.ErrNotFound
	}
	return u, nil
}

func (r memoryURLs) Exists(_ context.Context, shortCode string) (bool, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	_, ok := r.m.byCode[shortCode]
	return ok, nil
}

func (r memoryURLs) IncrementClickCount(_ context.Context, id int64) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	u, ok := r.m.byID[id]
	if !ok {
		return entities.ErrNotFound
	}
	u.ClickCount++
	return nil
}

func (r memoryURLs) SetActive(_ context.Context, shortCode string, active bool) (*entities.URLMapping, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	u, ok := r.m.byCode[shortCode]
	if !ok {
		return nil, entities.ErrNotFound
	}
	u.IsActive = active
	return copyURL(u), nil
}

func (r memoryURLs) ListActive(_ context.Context, limit, offset int) ([]*entities.URLMapping, error) {
	r.m.mu.RLock()
	var urls []*entities.URLMapping
	for _, u := range r.m.byCode {
		if u.IsActive {
			urls = append(urls, copyURL(u))
		}
	}
	r.m.mu.RUnlock()

	sort.Slice(urls, func(i, j int) bool {
		if urls[i].ClickCount != urls[j].ClickCount {
			return urls[i].ClickCount > urls[j].ClickCount
		}
		return urls[i].CreatedAt.After(urls[j].CreatedAt)
	})

	if offset >= len(urls) {
		return nil, nil
	}
	urls = urls[offset:]
	if limit < len(urls) {
		urls = urls[:limit]
	}
	return urls, nil
}

func (r memoryURLs) Counts(_ context.Context, now time.Time) (total, unexpired, clicks int64, err error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	for _, u := range r.m.byCode {
		if !u.IsActive {
			continue
		}
		total++
		clicks += u.ClickCount
		if u.ExpiresAt == nil || u.ExpiresAt.After(now) {
			unexpired++
		}
	}
	return total, unexpired, clicks, nil
}

type memoryClicks struct{ m *MemoryStore }

func (r memoryClicks) Create(_ context.Context, event *entities.ClickEvent) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if _, ok := r.m.byID[event.URLMappingID]; !ok {
		return fmt.Errorf("failed to log click: %w", entities.ErrNotFound)
	}

	r.m.nextClick++
	event.ID = r.m.nextClick
	stored := *event
	r.m.clicks = append(r.m.clicks, &stored)
	return nil
}

func (r memoryClicks) ListByURL(_ context.Context, urlMappingID int64, limit int) ([]*entities.ClickEvent, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	var events []*entities.ClickEvent
	for i := len(r.m.clicks) - 1; i >= 0 && len(events) < limit; i-- {
		if e := r.m.clicks[i]; e.URLMappingID == urlMappingID {
			c := *e
			events = append(events, &c)
		}
	}
	return events, nil
}

func (r memoryClicks) CountSince(_ context.Context, since time.Time) (int64, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	var count int64
	for _, e := range r.m.clicks {
		if !e.ClickedAt.Before(since) {
			count++
		}
	}
	return count, nil
}
