package main // Entry point package

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/facts-api/internal/config"
	"github.com/iliyamo/facts-api/internal/database"
	"github.com/iliyamo/facts-api/internal/handler"
	"github.com/iliyamo/facts-api/internal/logs"
	"github.com/iliyamo/facts-api/internal/repository"
	"github.com/iliyamo/facts-api/internal/router"
)

func main() {
	// A missing .env is fine; the real environment still applies.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("load .env: %v", err)
	}
	cfg := config.Load()

	logger, err := logs.New(cfg.Env, cfg.Debug)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	db, err := database.Open(cfg.DB)
	if err != nil {
		logger.Fatal("open database", zap.Error(err))
	}
	defer db.Close()

	probe := database.NewProbe(db, cfg.HealthTimeout)
	if err := probe.EnsureConnection(context.Background()); err != nil {
		// Keep serving; /api/health/ reports the outage.
		logger.Warn("database not reachable at startup", zap.Error(err))
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		logger.Warn("redis unavailable; rate limiting and response cache disabled")
	} else {
		defer rdb.Close()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	router.UseDefaults(e, logger, cfg.CORSOrigins)
	router.RegisterRoutes(e, router.Deps{
		Facts:     handler.NewFactHandler(repository.NewFactRepo()),
		Health:    handler.NewHealthHandler(probe, cfg.Debug, logger),
		Redis:     rdb,
		RateLimit: config.LoadRateLimitConfig(),
		Cache:     config.LoadCacheConfig(),
		Logger:    logger,
	})

	addr := ":" + cfg.Port
	go func() {
		logger.Info("listening", zap.String("addr", addr), zap.Bool("debug", cfg.Debug))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
