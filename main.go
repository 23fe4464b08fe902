package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"boardroom/config"
	"boardroom/middleware"
	"boardroom/realtime"
	"boardroom/repository"
	"boardroom/routes"
	"boardroom/services"
	"boardroom/utils"
	"boardroom/worker"

	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load configuration
	if err := config.LoadConfig(); err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	cfg := config.AppConfig
	utils.ConfigureLogger(cfg.LogLevel, cfg.LogFormat)
	log := utils.Component("main")

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.SentryDSN,
			Environment: cfg.Environment,
		}); err != nil {
			log.WithError(err).Warn("Sentry initialization failed")
		}
		defer sentry.Flush(2 * time.Second)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, err := openStore(cfg)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatalf("Failed to reach redis: %v", err)
		}
		defer redisClient.Close()
	}

	// Realtime hub first: services push room events through it.
	hub := realtime.NewHub(realtime.NewRoomRegistry())
	if redisClient != nil {
		bus := realtime.NewRedisBroadcaster(redisClient, cfg.Redis.Channel, hub.Deliver)
		if err := bus.Start(ctx); err != nil {
			log.Fatalf("Failed to subscribe to room channel: %v", err)
		}
		defer bus.Close()
		hub.SetBroadcaster(bus)
	}

	summaryMailer := worker.NewSummaryMailer(
		utils.NewSMTPMailer(cfg.SMTPSettings()),
		cfg.SummaryQueueSize,
		cfg.SummaryWorkers,
	)
	go summaryMailer.Start(ctx)

	perms := services.NewPermissionService(store)
	if err := perms.SeedCatalog(ctx); err != nil {
		log.Fatalf("Failed to seed permission catalog: %v", err)
	}
	members := services.NewMemberService(store, perms)
	roles := services.NewRoleService(store, perms)
	meetings := services.NewMeetingService(store, perms, hub, summaryMailer)
	votes := services.NewVoteService(store, perms, hub)
	content := services.NewContentService(store, meetings, hub)

	verifier := utils.NewJWTVerifier(cfg.JWTSecret, cfg.JWTIssuer, cfg.IdentityTimeout)
	gateway := realtime.NewGateway(hub, perms, meetings, votes, realtime.GatewayConfig{
		EventTimeout: cfg.DBTimeout,
	})

	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = cfg.CORSAllowedOrigins

	var rateStorage fiber.Storage
	if redisClient != nil {
		rateStorage = middleware.NewRedisStorage(redisClient)
	}

	app := routes.NewApp(routes.Deps{
		Verifier:      verifier,
		Perms:         perms,
		Members:       members,
		Roles:         roles,
		Meetings:      meetings,
		Content:       content,
		Votes:         votes,
		Gateway:       gateway,
		WebhookSecret: cfg.IdentityWebhookSecret,
		CORS:          cors,
		RateLimit:     cfg.RateLimitPerMinute,
		RateStorage:   rateStorage,
		AccessLog:     true,
	})

	go func() {
		<-ctx.Done()
		log.Info("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.WithError(err).Warn("Graceful shutdown failed")
		}
	}()

	log.Infof("Server starting on port %s", cfg.ServerPort)
	if err := app.Listen(":" + cfg.ServerPort); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func openStore(cfg config.Config) (repository.Store, error) {
	if cfg.StorageDriver == config.StorageMemory {
		utils.Component("main").Warn("Using in-memory storage; data is lost on restart")
		return repository.NewMemoryStore(), nil
	}
	if err := config.ConnectDB(); err != nil {
		return nil, err
	}
	return repository.NewGormStore(config.DB, cfg.DBTimeout), nil
}
