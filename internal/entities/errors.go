package entities

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidURL           = errors.New("invalid url")
	ErrInvalidFormat        = errors.New("invalid short code format")
	ErrInvalidExpiry        = errors.New("invalid expiration")
	ErrCodeTaken            = errors.New("short code is already taken")
	ErrDuplicateCode        = errors.New("duplicate short code")
	ErrGenerationExhausted  = errors.New("could not generate a unique short code")
	ErrNotFound             = errors.New("url not found")
	ErrAnalyticsUnavailable = errors.New("analytics unavailable")

	// ErrExpired is a not-found class error: errors.Is(ErrExpired, ErrNotFound) holds.
	ErrExpired = fmt.Errorf("%w: expired", ErrNotFound)
)
