package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk/internal/api/http"
	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/persistence"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/service"
	"github.com/spec-kit/helpdesk/internal/token"
	"github.com/spec-kit/helpdesk/internal/worker"
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

	redisClient, err := persistence.NewRedis(ctx, cfg.Redis, logger)
	if err != nil {
		logger.Fatal("failed to connect redis", zap.Error(err))
	}
	defer redisClient.Close() //nolint:errcheck

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	historyRepo := repository.NewTicketHistoryRepository(pool)
	feedbackRepo := repository.NewFeedbackRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	categoryRepo := repository.NewCategoryRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)
	messageRepo := repository.NewChatMessageRepository(pool)
	attachmentRepo := repository.NewChatAttachmentRepository(pool)
	txManager := repository.NewPgxTxManager(pool)

	dispatcher := events.NewInMemoryDispatcher()
	notificationWorker := worker.NewNotificationWorker(cfg.Notification, logger)
	notificationWorker.Start(dispatcher)

	notifier := service.NewNotificationService(userRepo, notificationRepo, logger)
	tokenService := token.NewService(ticketRepo.TokenExists)
	revealCache := persistence.NewRedisRevealCache(redisClient, cfg.Auth.RevealTTL())
	passwordVerifier := auth.NewPasswordVerifier(userRepo)

	lifecycle := service.NewLifecycleService(service.LifecycleDependencies{
		TicketRepo:       ticketRepo,
		HistoryRepo:      historyRepo,
		FeedbackRepo:     feedbackRepo,
		UserRepo:         userRepo,
		CategoryRepo:     categoryRepo,
		NotificationRepo: notificationRepo,
		Notifier:         notifier,
		Tokens:           tokenService,
		Reveal:           revealCache,
		Passwords:        passwordVerifier,
		Tx:               txManager,
		Dispatcher:       dispatcher,
		Logger:           logger,
	})
	chat := service.NewChatService(service.ChatDependencies{
		TicketRepo:     ticketRepo,
		MessageRepo:    messageRepo,
		AttachmentRepo: attachmentRepo,
		Notifier:       notifier,
		Tx:             txManager,
		Dispatcher:     dispatcher,
		Logger:         logger,
	})

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authMiddleware := auth.NewAuthMiddleware(tokenManager, userRepo)

	metrics := observability.NewMetrics()
	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redisClient),
		Tickets:        handlers.NewTicketsHandler(lifecycle, ticketRepo),
		Chat:           handlers.NewChatHandler(chat),
		Notifications:  handlers.NewNotificationsHandler(notifier),
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
