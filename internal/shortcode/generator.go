package shortcode

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"linkforge/internal/entities"
)

const (
	// Alphabet is the case-sensitive alphanumeric set generated codes are drawn from
	Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// MaxCodeLength matches the short_code column width
	MaxCodeLength = 10

	// DefaultMaxAttempts bounds the draw loop for generated codes
	DefaultMaxAttempts = 10
)

var customCodePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Reserved short codes collide with routes and cannot be claimed
var reservedCodes = map[string]bool{
	"admin":     true,
	"api":       true,
	"health":    true,
	"metrics":   true,
	"static":    true,
	"analytics": true,
	"favicon":   true,
	"robots":    true,
}

// Checker reports whether a short code is already in use
type Checker interface {
	Exists(ctx context.Context, shortCode string) (bool, error)
}

// Generator produces candidate short codes and checks them against existing records.
// The existence check is advisory; the store's unique constraint is authoritative.
type Generator struct {
	checker     Checker
	source      Source
	maxAttempts int
}

// NewGenerator creates a code generator. maxAttempts <= 0 means DefaultMaxAttempts.
func NewGenerator(checker Checker, source Source, maxAttempts int) *Generator {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Generator{
		checker:     checker,
		source:      source,
		maxAttempts: maxAttempts,
	}
}

// Generate returns customCode when it is valid and free, otherwise a random
// unused code of the given length.
func (g *Generator) Generate(ctx context.Context, length int, customCode string) (string, error) {
	if customCode != "" {
		return g.claimCustom(ctx, customCode)
	}

	if length < 1 || length > MaxCodeLength {
		return "", fmt.Errorf("code length must be between 1 and %d, got %d", MaxCodeLength, length)
	}

	for i := 0; i < g.maxAttempts; i++ {
		code := g.draw(length)
		if reservedCodes[strings.ToLower(code)] {
			continue
		}
		exists, err := g.checker.Exists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("failed to check short code availability: %w", err)
		}
		if !exists {
			return code, nil
		}
	}

	return "", fmt.Errorf("%w after %d attempts", entities.ErrGenerationExhausted, g.maxAttempts)
}

// ValidateCustomCode checks length, charset and reserved words
func ValidateCustomCode(code string) error {
	if len(code) > MaxCodeLength {
		return fmt.Errorf("%w: short code must be at most %d characters long", entities.ErrInvalidFormat, MaxCodeLength)
	}
	if !customCodePattern.MatchString(code) {
		return fmt.Errorf("%w: short code can only contain letters, numbers, hyphens, and underscores", entities.ErrInvalidFormat)
	}
	if reservedCodes[strings.ToLower(code)] {
		return fmt.Errorf("%w: '%s' is reserved", entities.ErrCodeTaken, code)
	}
	return nil
}

func (g *Generator) claimCustom(ctx context.Context, code string) (string, error) {
	if err := ValidateCustomCode(code); err != nil {
		return "", err
	}

	exists, err := g.checker.Exists(ctx, code)
	if err != nil {
		return "", fmt.Errorf("failed to check short code availability: %w", err)
	}
	if exists {
		return "", fmt.Errorf("%w: '%s'", entities.ErrCodeTaken, code)
	}

	return code, nil
}

func (g *Generator) draw(length int) string {
	b := make([]byte, length)
	for i := range b {
		b[i] = Alphabet[g.source.IntN(len(Alphabet))]
	}
	return string(b)
}
