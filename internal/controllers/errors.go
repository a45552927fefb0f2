package controllers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"linkforge/internal/entities"
	"linkforge/internal/models"
	"linkforge/internal/service"
)

// URLManager is the URL service as seen by the HTTP layer
type URLManager interface {
	CreateShortURL(ctx context.Context, req *models.CreateURLRequest) (*models.CreateURLResponse, error)
	GetURLInfo(ctx context.Context, shortCode string) (*models.URLInfoResponse, error)
	GetStats(ctx context.Context) (*entities.Stats, error)
	ListURLs(ctx context.Context, page int) (*models.URLListResponse, error)
	SetActive(ctx context.Context, shortCode string, active bool) (*models.URLInfoResponse, error)
	ListClicks(ctx context.Context, shortCode string, limit int) ([]models.ClickResponse, error)
}

// Resolver turns a short code into its destination
type Resolver interface {
	Resolve(ctx context.Context, code string, info service.RequestInfo) (string, error)
}

// Authenticator exchanges admin credentials for a token
type Authenticator interface {
	Login(req *models.LoginRequest) (*models.AuthResponse, error)
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, entities.ErrInvalidURL),
		errors.Is(err, entities.ErrInvalidFormat),
		errors.Is(err, entities.ErrInvalidExpiry):
		return http.StatusBadRequest
	case errors.Is(err, entities.ErrCodeTaken):
		return http.StatusConflict
	case errors.Is(err, entities.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, entities.ErrGenerationExhausted):
		return http.StatusServiceUnavailable
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrAdminDisabled):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as JSON. Unexpected errors are logged and hidden from the client.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.Error(err)
		c.JSON(status, gin.H{"error": "Internal server error"})
		return
	}
	if errors.Is(err, entities.ErrNotFound) {
		c.JSON(status, gin.H{"error": "Short URL not found"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "Invalid request body",
		"details": err.Error(),
	})
}
