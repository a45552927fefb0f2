package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"linkforge/internal/entities"
	"linkforge/internal/middleware"
	"linkforge/internal/models"
	"linkforge/internal/service"
)

// notFoundPage is served for every code that cannot be redirected, whatever the reason
const notFoundPage = `<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>Link not found</title></head>
<body>
<h1>Link not found</h1>
<p>This short link does not exist or is no longer available.</p>
</body>
</html>
`

type ShortenerController struct {
	urls     URLManager
	resolver Resolver
	logger   *zap.Logger
}

func NewShortenerController(urls URLManager, resolver Resolver, logger *zap.Logger) *ShortenerController {
	return &ShortenerController{
		urls:     urls,
		resolver: resolver,
		logger:   logger,
	}
}

// CreateShortURL handles POST /api/v1/shorten
func (sc *ShortenerController) CreateShortURL(c *gin.Context) {
	var req models.CreateURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	response, err := sc.urls.CreateShortURL(c.Request.Context(), &req)
	if err != nil {
		respondError(c, sc.logger, err)
		return
	}

	c.JSON(http.StatusCreated, response)
}

// RedirectToURL handles GET /:shortCode - redirects to original URL
func (sc *ShortenerController) RedirectToURL(c *gin.Context) {
	destination, err := sc.resolver.Resolve(c.Request.Context(), c.Param("shortCode"), service.RequestInfo{
		IP:        middleware.ClientIP(c),
		UserAgent: c.Request.UserAgent(),
		Referer:   c.Request.Referer(),
	})
	if err != nil {
		if !errors.Is(err, entities.ErrNotFound) {
			sc.logger.Error("failed to resolve short code", zap.String("short_code", c.Param("shortCode")), zap.Error(err))
			c.Error(err)
		}
		c.Data(http.StatusNotFound, "text/html; charset=utf-8", []byte(notFoundPage))
		return
	}

	c.Redirect(http.StatusFound, destination)
}

// GetURLInfo handles GET /api/v1/info/:shortCode
func (sc *ShortenerController) GetURLInfo(c *gin.Context) {
	info, err := sc.urls.GetURLInfo(c.Request.Context(), c.Param("shortCode"))
	if err != nil {
		respondError(c, sc.logger, err)
		return
	}

	c.JSON(http.StatusOK, info)
}
