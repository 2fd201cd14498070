package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/ticket-relay/internal/api/http"
	"github.com/spec-kit/ticket-relay/internal/api/http/handlers"
	"github.com/spec-kit/ticket-relay/internal/auth"
	"github.com/spec-kit/ticket-relay/internal/backend"
	"github.com/spec-kit/ticket-relay/internal/config"
	"github.com/spec-kit/ticket-relay/internal/events"
	"github.com/spec-kit/ticket-relay/internal/observability"
	"github.com/spec-kit/ticket-relay/internal/persistence"
	"github.com/spec-kit/ticket-relay/internal/repository"
	"github.com/spec-kit/ticket-relay/internal/service"
	"github.com/spec-kit/ticket-relay/internal/session"
	"github.com/spec-kit/ticket-relay/internal/worker"
)

var serveOpts struct {
	envFiles []string
	port     string
	mock     bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP relay",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(serveOpts.envFiles...)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if serveOpts.port != "" {
		cfg.App.Port = serveOpts.port
	}
	if cmd.Flags().Changed("mock") {
		cfg.Mock.Enabled = serveOpts.mock
	}
	if cfg.App.Version == "dev" {
		cfg.App.Version = version
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, cfg.App.Name, logger)
	if err != nil {
		return fmt.Errorf("failed to connect postgres: %w", err)
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	rdb := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer rdb.Close()

	api, webhooks, err := newBackend(cfg, logger)
	if err != nil {
		return err
	}

	dispatcher := events.NewInMemoryDispatcher()
	notifications := service.NewNotificationService(logger, cfg.Notification, newTelegram(cfg.Notification, logger))
	notificationWorker := worker.StartNotificationWorker(dispatcher, notifications, logger)
	defer notificationWorker.Stop()

	var audit repository.AuditRepository
	if pool := pg.PoolHandle(); pool != nil {
		audit = repository.NewAuditRepository(pool)
	}
	auditWorker := worker.StartAuditWorker(dispatcher, audit, logger)
	defer auditWorker.Stop()

	cache := repository.NewDirectoryCache(rdb.Handle(), cfg.Aggregation.DirectoryCacheTTL(), logger)

	authService := service.NewAuthService(service.AuthDependencies{
		API:        api,
		Webhooks:   webhooks,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	queries := service.NewTicketQueryService(service.TicketQueryDependencies{
		API:         api,
		Cache:       cache,
		Concurrency: cfg.Aggregation.Concurrency,
		Logger:      logger,
	})
	mutations := service.NewTicketMutationService(service.TicketMutationDependencies{
		API:            api,
		Webhooks:       webhooks,
		Identity:       authService,
		Dispatcher:     dispatcher,
		LinkFixupDelay: cfg.Webhook.LinkFixupDelay(),
		Logger:         logger,
	})
	dashboards := service.NewDashboardService(queries, nil, logger)

	tokens := auth.NewTokenManager(cfg.Session.SigningSecret, cfg.App.Name)
	relay := session.NewRelay(tokens, session.Options{
		CookieName: cfg.Session.CookieName,
		Secure:     !cfg.App.IsLocal(),
		MaxAge:     cfg.Session.MaxAge(),
	})

	metrics := observability.NewMetrics()
	dependencies := map[string]handlers.Pinger{"postgres": nil, "redis": nil}
	if pg.Enabled() {
		dependencies["postgres"] = pg
	}
	if rdb.Enabled() {
		dependencies["redis"] = rdb
	}

	app := httptransport.NewApp(httptransport.AppConfig{
		Name: cfg.App.Name,
		Middlewares: httptransport.MiddlewareConfig{
			Logger:         logger,
			Metrics:        metrics,
			Timeout:        cfg.App.RequestTimeout(),
			AllowedOrigins: cfg.CORS.AllowedOrigins,
		},
		Routes: httptransport.RouteConfig{
			Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, cfg.MockActive(), dependencies, metrics),
			Auth:           handlers.NewAuthHandler(authService, relay, logger),
			Tickets:        handlers.NewTicketsHandler(queries, mutations, authService, audit),
			Directory:      handlers.NewDirectoryHandler(queries, dashboards, authService),
			AuthMiddleware: auth.NewAuthMiddleware(relay, logger),
		},
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()), zap.Bool("mock", cfg.MockActive()))
		errCh <- app.Listen(cfg.App.Addr())
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("fiber listen: %w", err)
	case sig := <-shutdownSignal():
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}
	return app.ShutdownWithTimeout(10 * time.Second)
}

// newBackend returns the real backend client, or the in-memory mock when
// mock mode applies.
func newBackend(cfg *config.Config, logger *zap.Logger) (backend.API, backend.Webhooks, error) {
	if cfg.Mock.Enabled && !cfg.MockActive() {
		logger.Warn("MOCK_API ignored outside development", zap.String("env", cfg.App.Env))
	}
	if cfg.MockActive() {
		fixtures, err := backend.LoadFixtures(cfg.Mock.FixturesPath)
		if err != nil {
			return nil, nil, err
		}
		mock := backend.NewMock(fixtures)
		logger.Warn("mock backend active; no backend calls are made")
		return mock, mock, nil
	}
	client := backend.NewClient(backend.ClientOptions{
		BaseURL: cfg.Backend.BaseURL,
		Doctype: cfg.Backend.TicketDoctype,
		Timeout: cfg.Backend.Timeout(),
	}, logger.Named("backend"))
	webhooks := backend.NewWebhookClient(cfg.Webhook.TicketCreateURL, cfg.Webhook.ReporteeURL, cfg.Backend.Timeout(), logger.Named("webhook"))
	return client, webhooks, nil
}

// newTelegram connects the notification bot when a token is configured.
// A bot that cannot be reached disables Telegram notices.
func newTelegram(cfg config.NotificationConfig, logger *zap.Logger) service.TelegramSender {
	if cfg.TelegramToken == "" || cfg.TelegramChatID == 0 {
		return nil
	}
	bot, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		logger.Warn("telegram notifications disabled", zap.Error(err))
		return nil
	}
	logger.Info("telegram notifications enabled", zap.String("bot", bot.Self.UserName))
	return bot
}

func shutdownSignal() <-chan os.Signal {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	return sigCh
}
