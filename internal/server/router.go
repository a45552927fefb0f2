package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"linkforge/internal/controllers"
	"linkforge/internal/jwt"
	"linkforge/internal/metrics"
	"linkforge/internal/middleware"
)

// Limiters are the per-IP rate limiters of each route group
type Limiters struct {
	General  *middleware.RateLimiter
	Shorten  *middleware.RateLimiter
	Redirect *middleware.RateLimiter
}

// Deps is everything the router wires together. Admin and JWT may be nil,
// in which case the admin routes are not registered.
type Deps struct {
	Logger      *zap.Logger
	Metrics     *metrics.Metrics
	JWT         *jwt.JWTService
	Limiters    Limiters
	CORSOrigins []string
	// TrustedProxies may set X-Forwarded-For; nil trusts none
	TrustedProxies []string

	Shortener *controllers.ShortenerController
	Analytics *controllers.AnalyticsController
	QRCode    *controllers.QRCodeController
	Admin     *controllers.AdminController
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders: []string{middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

// NewRouter builds the gin engine with every route
func NewRouter(d Deps) (*gin.Engine, error) {
	router := gin.New()
	if err := router.SetTrustedProxies(d.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}
	router.Use(
		gin.Recovery(),
		middleware.RequestLogger(d.Logger.Named("http")),
		middleware.Metrics(d.Metrics),
		cors.New(corsConfig(d.CORSOrigins)),
	)

	// Health check endpoint (no rate limiting)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(d.Metrics.Handler()))

	router.GET("/:shortCode", d.Limiters.Redirect.LimitMiddleware(), d.Shortener.RedirectToURL)

	api := router.Group("/api/v1")
	api.Use(d.Limiters.General.LimitMiddleware())
	{
		api.POST("/shorten", d.Limiters.Shorten.LimitMiddleware(), d.Shortener.CreateShortURL)
		api.GET("/info/:shortCode", d.Shortener.GetURLInfo)
		api.GET("/stats", d.Analytics.GetStats)
		api.GET("/urls", d.Analytics.ListURLs)
		api.GET("/qrcode/:shortCode", d.QRCode.GenerateQRCode)

		if d.Admin != nil && d.JWT != nil {
			admin := api.Group("/admin")
			admin.POST("/login", d.Limiters.Shorten.LimitMiddleware(), d.Admin.Login)

			protected := admin.Group("")
			protected.Use(middleware.AuthMiddleware(d.JWT))
			{
				protected.PATCH("/urls/:shortCode", d.Admin.SetActive)
				protected.GET("/urls/:shortCode/clicks", d.Admin.ListClicks)
			}
		}
	}

	return router, nil
}
