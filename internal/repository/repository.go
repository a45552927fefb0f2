package repository

import (
	"context"
	"time"

	"linkforge/internal/entities"
)

//go:generate mockgen -source=repository.go -destination=mocks/repository_mock.go -package=mocks

// URLRepository defines the persistence contract for URL mappings
type URLRepository interface {
	// Create persists a fully built mapping and sets its ID.
	// Returns entities.ErrDuplicateCode when the short code is already stored.
	Create(ctx context.Context, mapping *entities.URLMapping) error
	// FindByShortCode looks a mapping up regardless of its active flag
	FindByShortCode(ctx context.Context, shortCode string) (*entities.URLMapping, error)
	// FindActiveByShortCode looks up an active mapping only
	FindActiveByShortCode(ctx context.Context, shortCode string) (*entities.URLMapping, error)
	// Exists reports whether any mapping uses the short code
	Exists(ctx context.Context, shortCode string) (bool, error)
	// IncrementClickCount atomically adds one click, touching no other column
	IncrementClickCount(ctx context.Context, id int64) error
	// SetActive flips the active flag and returns the updated mapping
	SetActive(ctx context.Context, shortCode string, active bool) (*entities.URLMapping, error)
	// ListActive returns active mappings ordered by click count, most clicked first
	ListActive(ctx context.Context, limit, offset int) ([]*entities.URLMapping, error)
	// Counts returns active mappings, active and unexpired mappings, and total clicks of active mappings
	Counts(ctx context.Context, now time.Time) (total, unexpired, clicks int64, err error)
}

// ClickRepository defines the persistence contract for click events
type ClickRepository interface {
	// Create appends one click event and sets its ID
	Create(ctx context.Context, event *entities.ClickEvent) error
	// ListByURL returns the newest events of one mapping
	ListByURL(ctx context.Context, urlMappingID int64, limit int) ([]*entities.ClickEvent, error)
	// CountSince counts events at or after since
	CountSince(ctx context.Context, since time.Time) (int64, error)
}
