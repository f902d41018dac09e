package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/airflowfield/dashboard/internal/alerts"
	"github.com/airflowfield/dashboard/internal/backend"
	"github.com/airflowfield/dashboard/internal/config"
	"github.com/airflowfield/dashboard/internal/feed"
	"github.com/airflowfield/dashboard/internal/monitor"
	internalhttp "github.com/airflowfield/dashboard/internal/http"
	"github.com/airflowfield/dashboard/internal/session"
	"github.com/airflowfield/dashboard/internal/view"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("dashboard stopped with error")
	}
}

func run() error {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}
	logger := log.Logger

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("redis parse: %w", err)
		}
		redisClient = redis.NewClient(redisOpts)
		defer redisClient.Close()
	}

	api, err := backend.New(backend.Config{BaseURL: cfg.APIBaseURL, Timeout: cfg.APITimeout, Logger: logger})
	if err != nil {
		return fmt.Errorf("backend: %w", err)
	}

	var revoker session.Revoker = session.NoopRevoker{}
	if redisClient != nil {
		revoker = session.NewRedisRevoker(redisClient)
	}
	holder := session.NewHolder(session.HolderOptions{
		TTL:     cfg.SessionTTL,
		Secure:  cfg.CookieSecure,
		Revoker: revoker,
		Logger:  logger,
	})

	var store alerts.Store = alerts.NewMemoryStore()
	if cfg.AlertsStore == "redis" {
		store = alerts.NewRedisStore(redisClient, cfg.AlertsTTL)
	}
	inbox := alerts.NewInbox(store, logger)

	dialer, err := feed.NewSocketDialer(cfg.FeedURL, 10*time.Second)
	if err != nil {
		return fmt.Errorf("feed: %w", err)
	}
	feeds := feed.NewManager(dialer, feed.Policy{Backoff: cfg.Feed.Backoff, MaxAttempts: cfg.Feed.MaxAttempts}, inbox, logger)
	defer feeds.Close()

	views, err := view.New()
	if err != nil {
		return fmt.Errorf("views: %w", err)
	}

	deps := internalhttp.Deps{
		Config: cfg,
		API:    api,
		Holder: holder,
		Views:  views,
		Inbox:  inbox,
		Feeds:  feeds,
		Redis:  redisClient,
		Logger: logger,
	}

	if cfg.Monitor.Interval > 0 {
		checks := map[string]monitor.Check{"api": api.Ping}
		if redisClient != nil {
			checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
		}
		var notifier monitor.Notifier
		if slack := monitor.NewSlackNotifier(cfg.Monitor.SlackWebhookURL); slack != nil {
			notifier = slack
		}
		watcher := monitor.NewService(checks, monitor.Config{
			Interval:         cfg.Monitor.Interval,
			Timeout:          cfg.APITimeout,
			FailureThreshold: cfg.Monitor.FailureThreshold,
		}, notifier, logger)
		watcher.Start(context.Background())
		defer watcher.Stop()
		deps.Upstream = watcher
	}

	handler, err := internalhttp.NewRouter(deps)
	if err != nil {
		return fmt.Errorf("router: %w", err)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	// Open alert streams end when the feed manager closes their listeners.
	srv.RegisterOnShutdown(feeds.Close)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("api", cfg.APIBaseURL).Str("alerts_store", cfg.AlertsStore).Msgf("dashboard listening on :%d", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
