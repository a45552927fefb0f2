package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AnalyticsController struct {
	urls   URLManager
	logger *zap.Logger
}

func NewAnalyticsController(urls URLManager, logger *zap.Logger) *AnalyticsController {
	return &AnalyticsController{urls: urls, logger: logger}
}

// GetStats handles GET /api/v1/stats
func (ac *AnalyticsController) GetStats(c *gin.Context) {
	stats, err := ac.urls.GetStats(c.Request.Context())
	if err != nil {
		respondError(c, ac.logger, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// ListURLs handles GET /api/v1/urls?page=N
func (ac *AnalyticsController) ListURLs(c *gin.Context) {
	page := 1
	if pageStr := c.Query("page"); pageStr != "" {
		parsed, err := strconv.Atoi(pageStr)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "page must be a positive integer"})
			return
		}
		page = parsed
	}

	list, err := ac.urls.ListURLs(c.Request.Context(), page)
	if err != nil {
		respondError(c, ac.logger, err)
		return
	}

	c.JSON(http.StatusOK, list)
}
