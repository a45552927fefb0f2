package models

import "time"

// AuthResponse represents the response after successful authentication
type AuthResponse struct {
	Email     string    `json:"email"`
	Token     string    `json:"token"` // JWT token
	ExpiresAt time.Time `json:"expires_at"`
}
