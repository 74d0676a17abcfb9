package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/opsdesk/ticket-service/internal/api/http"
	"github.com/opsdesk/ticket-service/internal/api/http/handlers"
	"github.com/opsdesk/ticket-service/internal/auth"
	"github.com/opsdesk/ticket-service/internal/cache"
	"github.com/opsdesk/ticket-service/internal/client"
	"github.com/opsdesk/ticket-service/internal/config"
	"github.com/opsdesk/ticket-service/internal/events"
	"github.com/opsdesk/ticket-service/internal/monitor"
	"github.com/opsdesk/ticket-service/internal/observability"
	"github.com/opsdesk/ticket-service/internal/persistence"
	"github.com/opsdesk/ticket-service/internal/repository"
	"github.com/opsdesk/ticket-service/internal/service"
	"github.com/opsdesk/ticket-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	store := repository.NewStore(pg.PoolHandle())
	refCache := cache.NewReferenceCache(redis.Client, logger)

	dispatcher := events.NewAsyncDispatcher(cfg.Events.QueueSize, cfg.Events.Workers, logger)
	defer dispatcher.Close()

	notificationClient := client.NewNotificationClient(cfg.Clients, logger)
	feedbackClient := client.NewFeedbackClient(cfg.Clients, logger)
	triageClient := client.NewTriageClient(cfg.Clients, logger)

	slaService := service.NewSLAService(store, refCache)
	categoryService := service.NewCategoryService(store, refCache)
	ticketService := service.NewTicketService(service.TicketDependencies{
		Store:      store,
		Categories: categoryService,
		SLAs:       slaService,
		Feedback:   feedbackClient,
		Dispatcher: dispatcher,
	})

	notificationWorker := worker.NewNotificationWorker(notificationClient, metrics, logger)
	notificationWorker.RegisterHandlers(dispatcher)

	slaMonitor := monitor.New(monitor.Options{
		Store:      store,
		Redis:      redis.Client,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
		Interval:   cfg.Monitor.Interval(),
		LeaseTTL:   cfg.Monitor.LeaseTTL(),
	})
	if cfg.Monitor.Enabled {
		slaMonitor.Start(ctx)
		defer slaMonitor.Stop()
	}

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authMiddleware := auth.NewAuthMiddleware(tokenManager)

	app := fiber.New(fiber.Config{DisableStartupMessage: cfg.App.Env == "production"})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Tickets:        handlers.NewTicketsHandler(ticketService, triageClient),
		SLAs:           handlers.NewSLAHandler(slaService),
		Categories:     handlers.NewCategoryHandler(categoryService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
