package service

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"linkforge/internal/jwt"
	"linkforge/internal/models"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAdminDisabled      = errors.New("admin access is not configured")
)

// AuthService authenticates the single configured administrator
type AuthService struct {
	email        string
	passwordHash []byte
	jwtService   *jwt.JWTService
	tokenTTL     time.Duration
	nowFunc      func() time.Time
}

// NewAuthService creates a new auth service. An empty email or hash disables login.
func NewAuthService(email, passwordHash string, jwtService *jwt.JWTService, tokenTTL time.Duration) *AuthService {
	return &AuthService{
		email:        strings.ToLower(strings.TrimSpace(email)),
		passwordHash: []byte(passwordHash),
		jwtService:   jwtService,
		tokenTTL:     tokenTTL,
		nowFunc:      time.Now,
	}
}

// Login checks the credentials and returns a signed token
func (s *AuthService) Login(req *models.LoginRequest) (*models.AuthResponse, error) {
	if s.email == "" || len(s.passwordHash) == 0 {
		return nil, ErrAdminDisabled
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	emailOK := subtle.ConstantTimeCompare([]byte(email), []byte(s.email)) == 1

	// bcrypt runs whether or not the email matched
	passwordErr := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(req.Password))
	if !emailOK || passwordErr != nil {
		return nil, ErrInvalidCredentials
	}

	now := s.nowFunc()
	token, err := s.jwtService.GenerateToken("admin", s.email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return &models.AuthResponse{
		Email:     s.email,
		Token:     token,
		ExpiresAt: now.Add(s.tokenTTL).UTC(),
	}, nil
}
