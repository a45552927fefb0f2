package entities

import (
	"time"
	"unicode/utf8"
)

const (
	// MaxRefererLength matches the referer column width
	MaxRefererLength = 1000

	userAgentDisplayLength = 50
)

// ClickEvent is one redirect traversal. Rows are append-only.
type ClickEvent struct {
	ID           int64     `json:"id"`
	URLMappingID int64     `json:"url_mapping_id"`
	ClickedAt    time.Time `json:"clicked_at"`
	IPAddress    *string   `json:"ip_address,omitempty"`
	UserAgent    string    `json:"user_agent"`
	Referer      string    `json:"referer"`
}

// UserAgentDisplay returns the user agent cut to a length suitable for listings
func (e *ClickEvent) UserAgentDisplay() string {
	if utf8.RuneCountInString(e.UserAgent) <= userAgentDisplayLength {
		return e.UserAgent
	}
	runes := []rune(e.UserAgent)
	return string(runes[:userAgentDisplayLength]) + "..."
}

// Stats holds the aggregate counters exposed to the listing collaborator
type Stats struct {
	TotalURLs    int64 `json:"total_urls"`
	ActiveURLs   int64 `json:"active_urls"`
	TotalClicks  int64 `json:"total_clicks"`
	RecentClicks int64 `json:"recent_clicks"`
}
