package entities

import "time"

// DefaultExpiryDays is used when a mapping is built without an explicit expiration
const DefaultExpiryDays = 7

// URLMapping represents a shortened URL entity in the database
type URLMapping struct {
	ID          int64      `json:"id"`
	ShortCode   string     `json:"short_code"`
	OriginalURL string     `json:"original_url"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"` // Pointer allows nil (no expiration)
	ClickCount  int64      `json:"click_count"`
	IsActive    bool       `json:"is_active"`
}

// NewURLMapping builds a complete, active record ready to be handed to a store.
// A nil expiresAt defaults to createdAt + DefaultExpiryDays.
func NewURLMapping(shortCode, originalURL string, createdAt time.Time, expiresAt *time.Time) *URLMapping {
	createdAt = createdAt.UTC()
	if expiresAt == nil {
		t := createdAt.AddDate(0, 0, DefaultExpiryDays)
		expiresAt = &t
	} else {
		t := expiresAt.UTC()
		expiresAt = &t
	}

	return &URLMapping{
		ShortCode:   shortCode,
		OriginalURL: originalURL,
		CreatedAt:   createdAt,
		ExpiresAt:   expiresAt,
		IsActive:    true,
	}
}

// IsExpired reports whether the expiration is set and strictly before now
func (u *URLMapping) IsExpired(now time.Time) bool {
	return u.ExpiresAt != nil && now.After(*u.ExpiresAt)
}
