package models

import (
	"time"

	"linkforge/internal/entities"
)

// CreateURLResponse represents the response after creating a short URL
type CreateURLResponse struct {
	ShortCode   string     `json:"short_code"`
	OriginalURL string     `json:"original_url"`
	ShortURL    string     `json:"short_url"` // Full short URL (base URL + short code)
	ExpiresAt   *time.Time `json:"expires_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

// URLInfoResponse describes one mapping. Active and expired are reported separately.
type URLInfoResponse struct {
	ShortCode   string     `json:"short_code"`
	OriginalURL string     `json:"original_url"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   *time.Time `json:"expires_at"`
	ClickCount  int64      `json:"click_count"`
	IsActive    bool       `json:"is_active"`
	IsExpired   bool       `json:"is_expired"`
	ShortURL    string     `json:"short_url"`
}

// NewURLInfoResponse converts a mapping, evaluating expiry at now
func NewURLInfoResponse(u *entities.URLMapping, baseURL string, now time.Time) *URLInfoResponse {
	return &URLInfoResponse{
		ShortCode:   u.ShortCode,
		OriginalURL: u.OriginalURL,
		CreatedAt:   u.CreatedAt,
		ExpiresAt:   u.ExpiresAt,
		ClickCount:  u.ClickCount,
		IsActive:    u.IsActive,
		IsExpired:   u.IsExpired(now),
		ShortURL:    baseURL + "/" + u.ShortCode,
	}
}

// URLListResponse is one page of the most clicked active URLs
type URLListResponse struct {
	Page    int                `json:"page"`
	PerPage int                `json:"per_page"`
	URLs    []*URLInfoResponse `json:"urls"`
}

// ClickResponse is a click event as shown in admin listings
type ClickResponse struct {
	ClickedAt time.Time `json:"clicked_at"`
	IPAddress *string   `json:"ip_address"`
	UserAgent string    `json:"user_agent"`
	Referer   string    `json:"referer"`
}

func NewClickResponse(e *entities.ClickEvent) ClickResponse {
	return ClickResponse{
		ClickedAt: e.ClickedAt,
		IPAddress: e.IPAddress,
		UserAgent: e.UserAgentDisplay(),
		Referer:   e.Referer,
	}
}
