package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cli2468/Vision-sub000/internal/auth"
	"github.com/cli2468/Vision-sub000/internal/cloudsync"
	"github.com/cli2468/Vision-sub000/internal/config"
	"github.com/cli2468/Vision-sub000/internal/httpapi"
	"github.com/cli2468/Vision-sub000/internal/ledger"
	"github.com/cli2468/Vision-sub000/internal/logging"
	"github.com/cli2468/Vision-sub000/internal/money"
	"github.com/cli2468/Vision-sub000/internal/notify"
	"github.com/cli2468/Vision-sub000/internal/ocr"
	"github.com/cli2468/Vision-sub000/internal/service"
	"github.com/cli2468/Vision-sub000/internal/store"
	"github.com/cli2468/Vision-sub000/internal/store/memory"
	pgstore "github.com/cli2468/Vision-sub000/internal/store/postgres"
)

func main() {
	cfg, err := config.Load()
	logger := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		logger.Fatal().Err(err).Msg("load configuration")
	}
	if err := validateConfig(cfg); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := build(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("startup failed")
	}

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           app.api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.Address()).Msg("resell ledger listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
	}
	app.close(shutdownCtx, logger)
	logger.Info().Msg("server stopped")
}

// app is everything main wires together, plus what must be released on exit.
type app struct {
	ledger  *ledger.Ledger
	service *service.Service
	api     *httpapi.API
	bridge  *cloudsync.Bridge
	closers []func() error
}

func build(ctx context.Context, cfg config.Config, logger *logging.Logger) (*app, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	l := ledger.Open(ledger.NewFileBlob(cfg.LedgerPath),
		ledger.WithCalculator(money.NewCalculator(cfg.FeeTable())),
		ledger.WithLocation(loc),
		ledger.WithLogger(logger),
	)
	a := &app{ledger: l}
	opts := []service.Option{service.WithLogger(logger)}

	if cfg.CloudEnabled() {
		repo, sub, err := a.openCloud(ctx, cfg, logger)
		if err != nil {
			a.close(ctx, logger)
			return nil, err
		}
		session := auth.NewSession()
		accounts := auth.NewManager(cfg.AuthSecret, cfg.TokenTTL(), repo)
		a.bridge = cloudsync.New(l, repo, sub, session,
			cloudsync.WithLogger(logger),
			cloudsync.WithPushTimeout(cfg.PushTimeout()),
		)
		a.bridge.Start(ctx)
		opts = append(opts, service.WithAuth(session, accounts), service.WithBridge(a.bridge))
	} else {
		logger.Info().Msg("cloud sync: disabled")
	}

	if cfg.GeminiAPIKey != "" {
		extractor, err := ocr.NewGemini(ctx, cfg.GeminiAPIKey, ocr.WithModel(cfg.GeminiModel), ocr.WithLogger(logger))
		if err != nil {
			logger.Warn().Err(err).Msg("order reader unavailable, manual entry only")
		} else {
			opts = append(opts, service.WithExtractor(extractor))
			logger.Info().Str("model", cfg.GeminiModel).Msg("order reader: gemini")
		}
	}

	a.service = service.New(l, opts...)
	a.api = httpapi.New(a.service, logger, cfg.AllowedOrigin)
	return a, nil
}

// openCloud picks the account and lot store plus the change feed. Postgres
// is required once DATABASE_URL is set; redis falls back to the in-process hub.
func (a *app) openCloud(ctx context.Context, cfg config.Config, logger *logging.Logger) (*store.Notifying, store.Subscriber, error) {
	var repo store.Repository
	if cfg.DatabaseURL != "" {
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		pg, err := pgstore.New(connectCtx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres unavailable and DATABASE_URL is set: %w", err)
		}
		repo = pg
		a.closers = append(a.closers, pg.Close)
		logger.Info().Msg("repository: postgres")
	} else {
		repo = memory.NewSeeded(logger)
		logger.Info().Msg("repository: in-memory")
	}

	var feed notify.Notifier = notify.NewHub()
	if cfg.RedisAddr != "" {
		rdb := notify.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := rdb.Ping(pingCtx); err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, using in-process change feed")
			_ = rdb.Close()
		} else {
			feed = rdb
			a.closers = append(a.closers, rdb.Close)
			logger.Info().Msg("change feed: redis")
		}
	}

	return store.NewNotifying(repo, feed, logger), feed, nil
}

func (a *app) close(ctx context.Context, logger *logging.Logger) {
	if a.bridge != nil {
		if err := a.bridge.Drain(ctx); err != nil {
			logger.Warn().Err(err).Msg("pending cloud writes dropped")
		}
		a.bridge.Stop()
	}
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			logger.Error().Err(err).Msg("close error")
		}
	}
}

func validateConfig(cfg config.Config) error {
	if cfg.AuthSecret != "" && len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be at least 32 characters")
	}
	if !cfg.CloudEnabled() && (cfg.DatabaseURL != "" || cfg.RedisAddr != "") {
		return fmt.Errorf("DATABASE_URL and REDIS_ADDR need AUTH_SECRET to enable cloud sync")
	}
	if _, err := cfg.Location(); err != nil {
		return err
	}
	return nil
}
