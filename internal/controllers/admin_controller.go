package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"linkforge/internal/middleware"
	"linkforge/internal/models"
)

type AdminController struct {
	auth   Authenticator
	urls   URLManager
	logger *zap.Logger
}

func NewAdminController(auth Authenticator, urls URLManager, logger *zap.Logger) *AdminController {
	return &AdminController{
		auth:   auth,
		urls:   urls,
		logger: logger,
	}
}

// Login handles POST /api/v1/admin/login
func (ac *AdminController) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	response, err := ac.auth.Login(&req)
	if err != nil {
		ac.logger.Warn("admin login failed", zap.String("client_ip", middleware.GetIP(c)), zap.Error(err))
		respondError(c, ac.logger, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// SetActive handles PATCH /api/v1/admin/urls/:shortCode
func (ac *AdminController) SetActive(c *gin.Context) {
	var req models.SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	info, err := ac.urls.SetActive(c.Request.Context(), c.Param("shortCode"), *req.IsActive)
	if err != nil {
		respondError(c, ac.logger, err)
		return
	}

	ac.logger.Info("admin changed url activation",
		zap.String("admin", c.GetString(middleware.AdminEmailKey)),
		zap.String("short_code", info.ShortCode),
		zap.Bool("is_active", info.IsActive),
	)
	c.JSON(http.StatusOK, info)
}

// ListClicks handles GET /api/v1/admin/urls/:shortCode/clicks?limit=N
func (ac *AdminController) ListClicks(c *gin.Context) {
	limit := 0
	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	clicks, err := ac.urls.ListClicks(c.Request.Context(), c.Param("shortCode"), limit)
	if err != nil {
		respondError(c, ac.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"short_code": c.Param("shortCode"),
		"clicks":     clicks,
	})
}
