package main

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"linkforge/internal/analytics"
	"linkforge/internal/cache"
	"linkforge/internal/config"
	"linkforge/internal/controllers"
	"linkforge/internal/database"
	"linkforge/internal/jwt"
	"linkforge/internal/metrics"
	"linkforge/internal/middleware"
	"linkforge/internal/repository"
	"linkforge/internal/server"
	"linkforge/internal/service"
	"linkforge/internal/shortcode"
)

type app struct {
	logger   *zap.Logger
	db       *sql.DB     // nil with memory storage
	cache    cache.Cache // nil without Redis
	recorder *analytics.Recorder
	resolver *service.RedirectResolver
	limiters server.Limiters
	server   *server.Server
}

type storage struct {
	urls   repository.URLRepository
	clicks repository.ClickRepository
	db     *sql.DB
}

func newStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*storage, error) {
	switch cfg.StorageType {
	case config.StoragePostgres:
		db, err := database.NewConnection(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, err
		}
		if err := database.RunMigrations(db, logger); err != nil {
			db.Close()
			return nil, err
		}
		return &storage{
			urls:   repository.NewURLRepository(db),
			clicks: repository.NewClickRepository(db),
			db:     db,
		}, nil
	default:
		logger.Warn("using in-memory storage; data is lost on restart")
		store := repository.NewMemoryStore()
		return &storage{urls: store.URLs(), clicks: store.Clicks()}, nil
	}
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	store, err := newStorage(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	a := &app{logger: logger, db: store.db}

	// Redis is optional; the resolver falls back to the store
	if cfg.RedisURL != "" {
		a.cache, err = cache.NewRedisCache(ctx, cfg.RedisURL, cfg.CacheTTL)
		if err != nil {
			logger.Warn("continuing without cache", zap.Error(err))
			a.cache = nil
		} else {
			logger.Info("connected to Redis cache")
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	a.recorder = analytics.NewRecorder(store.clicks, logger, m, analytics.Options{
		QueueSize:    cfg.AnalyticsQueueSize,
		Workers:      cfg.AnalyticsWorkers,
		WriteTimeout: cfg.AnalyticsTimeout,
	})
	a.resolver = service.NewRedirectResolver(store.urls, a.recorder, a.cache, logger, m, nil)

	generator := shortcode.NewGenerator(store.urls, shortcode.NewCryptoSeededSource(), cfg.MaxCodeAttempts)
	urlService := service.NewURLService(store.urls, store.clicks, generator, a.cache, logger, m, service.URLOptions{
		BaseURL:           cfg.BaseURL,
		CodeLength:        cfg.ShortURLLength,
		DefaultExpiryDays: cfg.DefaultExpiryDays,
		CreateRetries:     cfg.CreateRetries,
	})

	a.limiters = server.Limiters{
		General:  middleware.NewRateLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst),
		Shorten:  middleware.NewRateLimiter(rate.Limit(cfg.RateLimitShortenRPS), cfg.RateLimitShortenBurst),
		Redirect: middleware.NewRateLimiter(rate.Limit(cfg.RateLimitRedirectRPS), cfg.RateLimitRedirectBurst),
	}

	deps := server.Deps{
		Logger:         logger,
		Metrics:        m,
		Limiters:       a.limiters,
		CORSOrigins:    cfg.CORSOrigins,
		TrustedProxies: cfg.TrustedProxies,
		Shortener:      controllers.NewShortenerController(urlService, a.resolver, logger),
		Analytics:      controllers.NewAnalyticsController(urlService, logger),
		QRCode:         controllers.NewQRCodeController(urlService, logger),
	}

	if cfg.AdminEnabled() {
		ttl := time.Duration(cfg.JWTTTL) * time.Hour
		deps.JWT = jwt.NewJWTService(cfg.JWTSecret, ttl)
		auth := service.NewAuthService(cfg.AdminEmail, cfg.AdminPasswordHash, deps.JWT, ttl)
		deps.Admin = controllers.NewAdminController(auth, urlService, logger)
	} else {
		logger.Info("admin endpoints disabled; set JWT_SECRET, ADMIN_EMAIL and ADMIN_PASSWORD_HASH to enable them")
	}

	router, err := server.NewRouter(deps)
	if err != nil {
		return nil, multierr.Append(err, a.Close())
	}
	a.server = server.New(":"+strconv.Itoa(cfg.Port), router, logger)
	return a, nil
}

// Run serves until ctx is cancelled. Pending click increments and queued
// click events are flushed before it returns.
func (a *app) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.recorder.Run(gctx)
	})
	for _, limiter := range []*middleware.RateLimiter{a.limiters.General, a.limiters.Shorten, a.limiters.Redirect} {
		g.Go(func() error {
			return limiter.Cleanup(gctx)
		})
	}
	g.Go(func() error {
		defer a.recorder.Close()
		err := a.server.Run(gctx)
		a.resolver.Wait()
		return err
	})

	return g.Wait()
}

// Close releases the cache and database connections
func (a *app) Close() error {
	var err error
	if a.cache != nil {
		err = multierr.Append(err, a.cache.Close())
	}
	if a.db != nil {
		err = multierr.Append(err, a.db.Close())
	}
	return err
}
