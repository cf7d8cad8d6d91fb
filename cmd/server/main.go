package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Clark-Hu/boxoffice-viewer/internal/boxoffice"
	"github.com/Clark-Hu/boxoffice-viewer/internal/cache"
	"github.com/Clark-Hu/boxoffice-viewer/internal/config"
	"github.com/Clark-Hu/boxoffice-viewer/internal/detail"
	httpserver "github.com/Clark-Hu/boxoffice-viewer/internal/http"
	"github.com/Clark-Hu/boxoffice-viewer/internal/metadata"
	"github.com/Clark-Hu/boxoffice-viewer/internal/ranking"
	"github.com/Clark-Hu/boxoffice-viewer/internal/repository"
	"github.com/Clark-Hu/boxoffice-viewer/internal/reviews"
	"github.com/Clark-Hu/boxoffice-viewer/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetFormatter(&logrus.JSONFormatter{})

	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := config.LoadEnvFile(envFile); err != nil {
		logger.WithError(err).Fatal("load env file")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("config error")
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.WithError(err).Fatal("invalid LOG_LEVEL")
	}
	logger.SetLevel(level)

	timeout := time.Duration(cfg.UpstreamTimeoutSecs) * time.Second

	var (
		rankingCache cache.Store
		health       httpserver.HealthChecker
	)
	switch cfg.CacheBackend {
	case config.CachePostgres:
		dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		st, err := store.New(dbCtx, cfg.DBURL, store.Options{
			MaxConns:               int32(cfg.DBMaxConns),
			MinConns:               int32(cfg.DBMinConns),
			MaxConnIdleTime:        time.Duration(cfg.DBMaxIdleSecs) * time.Second,
			MaxConnLifetime:        time.Duration(cfg.DBMaxLifeSecs) * time.Second,
			ConnTimeout:            time.Duration(cfg.DBConnTimeoutSecs) * time.Second,
			StatementCacheCapacity: cfg.DBStatementCache,
			Logger:                 logger,
		})
		cancel()
		if err != nil {
			logger.WithError(err).Fatal("connect database")
		}
		defer st.Close()
		rankingCache = cache.NewPostgres(repository.New(st), cache.DefaultName)
		health = st
	default:
		rankingCache = cache.NewMemory()
	}

	boxClient, err := boxoffice.NewHTTPClient(cfg.KOBISURL, cfg.KOBISAPIKey, boxoffice.Options{
		Timeout:       timeout,
		RatePerSecond: cfg.KOBISRatePerSec,
		Logger:        logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("init ranking client")
	}
	if cfg.KOBISAPIKey == "" {
		logger.Warn("KOBIS_API_KEY is not set, rankings will fall back to the seed dataset")
	}

	enricher, err := metadata.New(cfg.TMDBURL, cfg.TMDBAPIKey, metadata.Options{
		Language: cfg.TMDBLanguage,
		Timeout:  timeout,
		Logger:   logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("init metadata client")
	}

	reviewStore, err := reviews.NewHTTPStore(cfg.ReviewsURL, reviews.Options{Timeout: timeout, Logger: logger})
	if err != nil {
		logger.WithError(err).Fatal("init review store")
	}

	rankings := ranking.NewService(boxClient, rankingCache, ranking.Options{Logger: logger})
	details := detail.NewLoader(rankingCache, enricher, reviewStore, logger).WithMovieInfo(boxClient)
	server := httpserver.New(cfg, rankings, details, reviewStore, health, logger)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			serverErrCh <- err
			return
		}
		serverErrCh <- nil
	}()

	select {
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("server error")
		}
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Error("graceful shutdown error")
	}
}
