package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"tienda-barrio/internal/cache"
	"tienda-barrio/internal/config"
	"tienda-barrio/internal/db"
	"tienda-barrio/internal/httpserver"
	"tienda-barrio/internal/logging"
	categoryrepo "tienda-barrio/internal/repository/category"
	productrepo "tienda-barrio/internal/repository/product"
	sessionrepo "tienda-barrio/internal/repository/session"
	adminsvc "tienda-barrio/internal/service/admin"
	categorysvc "tienda-barrio/internal/service/category"
	productsvc "tienda-barrio/internal/service/product"
)

const sessionPurgeInterval = time.Hour

func main() {
	_ = godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		bootLogger := logging.New(logging.Options{Service: "api"})
		bootLogger.Fatal().Err(err).Msg("load config")
	}
	logger := logging.New(logging.Options{Service: "api", Level: logging.ParseLevel(cfg.LogLevel), Format: cfg.LogFormat})

	ctx := context.Background()
	dbpool, err := db.Connect(ctx, cfg.DBConnString, cfg.DBMaxConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect to db")
	}
	defer dbpool.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	var catalogCache cache.CatalogCache = cache.Noop{}
	if cfg.RedisURL != "" {
		client, err := cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("connect to redis")
		}
		defer client.Close()
		catalogCache = cache.NewRedisCache(client, cfg.CatalogCacheTTL, cache.NewMetrics(reg))
		logger.Info().Dur("ttl", cfg.CatalogCacheTTL).Msg("catalog cache enabled")
	}

	productRepo := productrepo.NewPostgres(dbpool, logger)
	productService := productsvc.New(productRepo, catalogCache, logger)
	categoryRepo := categoryrepo.NewPostgres(dbpool)
	categoryService := categorysvc.New(categoryRepo, catalogCache, logger)
	sessions, err := sessionrepo.Open(cfg.AdminSessionStore, dbpool)
	if err != nil {
		logger.Fatal().Err(err).Msg("open session store")
	}
	if cfg.AdminSessionStore == sessionrepo.StoreMemory {
		logger.Warn().Msg("admin sessions kept in memory, they are lost on restart")
	}
	adminService := adminsvc.New(sessions, cfg.AdminPasswordHash, cfg.AdminSessionTTL, logger)
	if cfg.AdminPasswordHash == "" {
		logger.Warn().Msg("ADMIN_PASSWORD_HASH not set, admin login disabled")
	}

	srv, err := httpserver.New(cfg.HTTPAddr, logger, dbpool, httpserver.Deps{
		ProductSvc:   productService,
		CategorySvc:  categoryService,
		AdminSvc:     adminService,
		Metrics:      httpserver.NewMetrics(reg),
		Gatherer:     reg,
		CORSOrigins:  cfg.CORSOrigins,
		CookieSecure: cfg.CookieSecure,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("init server")
	}

	purgeCtx, stopPurge := context.WithCancel(ctx)
	defer stopPurge()
	go purgeSessions(purgeCtx, adminService, logger)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("starting http server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-serverErr:
		logger.Error().Err(err).Msg("server error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	} else {
		logger.Info().Msg("server stopped")
	}
}

func purgeSessions(ctx context.Context, svc *adminsvc.Service, logger zerolog.Logger) {
	ticker := time.NewTicker(sessionPurgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := svc.PurgeExpired(ctx)
			if err != nil {
				logger.Warn().Err(err).Msg("purge expired sessions")
				continue
			}
			if n > 0 {
				logger.Info().Int64("count", n).Msg("expired sessions purged")
			}
		}
	}
}
