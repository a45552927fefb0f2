package models

// CreateURLRequest represents the request body for creating a short URL
type CreateURLRequest struct {
	URL           string `json:"url" binding:"required,max=2000"`                             // Scheme is optional; https:// is assumed
	CustomCode    string `json:"custom_code,omitempty" binding:"omitempty"`                   // Optional custom short code; validated by the generator
	ExpiresInDays *int   `json:"expires_in_days,omitempty" binding:"omitempty,min=1,max=365"` // Defaults to the configured period
}

// SetActiveRequest represents the admin request body for activating or deactivating a URL
type SetActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}
