package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/prime-labs/express-bot/config"
	"github.com/prime-labs/express-bot/internal/handlers"
	"github.com/prime-labs/express-bot/internal/metrics"
	"github.com/prime-labs/express-bot/internal/pkg/discord"
	"github.com/prime-labs/express-bot/internal/pkg/httpclient"
	"github.com/prime-labs/express-bot/internal/pkg/kafka"
	"github.com/prime-labs/express-bot/internal/pkg/mail"
	"github.com/prime-labs/express-bot/internal/pkg/redis"
	"github.com/prime-labs/express-bot/internal/pkg/render"
	"github.com/prime-labs/express-bot/internal/repositories"
	"github.com/prime-labs/express-bot/internal/routers"
	"github.com/prime-labs/express-bot/internal/services"
	"github.com/prime-labs/express-bot/internal/storage"
	"github.com/prime-labs/express-bot/internal/utils"
	logger "github.com/prime-labs/express-bot/middleware/log"
	"github.com/prime-labs/express-bot/utils/ratelimit"
)

const shutdownTimeout = 15 * time.Second

// eventPublisher is what the bot needs from the Kafka producer or its no-op stand-in.
type eventPublisher interface {
	services.EventPublisher
	Close() error
}

func main() {
	configPath := flag.String("config", "", "path to an optional TOML/YAML/JSON config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	appLogger, err := logger.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer appLogger.Close()

	if err := run(cfg, appLogger); err != nil {
		appLogger.Error("express bot stopped with error", zap.Error(err))
		appLogger.Close()
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	// PostgreSQL
	db, err := storage.InitPostgres(&cfg.Database)
	if err != nil {
		return err
	}
	defer closeDB(db, log)

	// Redis is optional: it adds the ticket cache, the ticket number
	// sequence and the submission limiter.
	var (
		redisClient *redis.Client
		cache       repositories.TicketCache
		numberer    services.TicketNumberer = utils.RandomNumberer{}
		limiter     services.SubmissionLimiter
	)
	if cfg.Redis.Enabled {
		redisClient, err = redis.NewClient(&cfg.Redis)
		if err != nil {
			return err
		}
		defer redisClient.Close()

		cache = redisClient
		numberer = redisClient
		if cfg.RateLimit.SubmissionsPerWindow > 0 {
			windowLimiter := ratelimit.NewWindowLimiter(redisClient.GetClient(), log, cfg.RateLimit.FailOpen)
			limiter = ratelimit.NewSubmissionLimiter(windowLimiter, cfg.RateLimit.SubmissionsPerWindow, cfg.RateLimit.Window)
		}
	} else {
		log.Warn("redis disabled, using random ticket numbers without cache or rate limit")
	}

	// Kafka is optional; without it lifecycle events are dropped.
	var publisher eventPublisher = kafka.NopPublisher{}
	if cfg.Kafka.Enabled() {
		producer, err := kafka.NewProducer(&cfg.Kafka)
		if err != nil {
			log.Warn("kafka producer unavailable, running without lifecycle events", zap.Error(err))
		} else {
			publisher = producer
		}
	}
	defer publisher.Close()

	httpClient := httpclient.New()
	renderer := render.NewClient(cfg.Render, cfg.Event, httpClient)
	mailer, err := mail.NewClient(cfg.Mail, cfg.Event, httpClient)
	if err != nil {
		return err
	}

	session, err := discord.NewSession(cfg.Discord, log)
	if err != nil {
		return err
	}

	ticketRepo := repositories.NewTicketRepository(db, cache, log)
	issuance := services.NewIssuanceService(services.Dependencies{
		Store:         ticketRepo,
		Messenger:     session,
		Renderer:      renderer,
		Mailer:        mailer,
		Numberer:      numberer,
		Publisher:     publisher,
		Limiter:       limiter,
		Logger:        log,
		PromoImageURL: cfg.Event.PromoImageURL,
	})

	pool := utils.NewWorkerPool(cfg.WorkerPool.Size, cfg.WorkerPool.QueueSize, log)
	pool.Start()

	botMetrics := metrics.New(pool.QueueLen)
	gateway := handlers.NewGatewayHandler(issuance, pool, log, botMetrics.ObserveEvent, cfg.WorkerPool.EventTimeout)
	gateway.Register(session)

	if err := session.Open(); err != nil {
		pool.Stop()
		return err
	}
	log.Info("express bot connected to discord")

	var admin *routers.Server
	if cfg.Admin.Addr != "" {
		gin.SetMode(cfg.Admin.Mode)
		checks := map[string]handlers.HealthCheck{
			"postgres": func(context.Context) error { return storage.Ping(db) },
		}
		if redisClient != nil {
			checks["redis"] = redisClient.Ping
		}
		engine := routers.SetupRoutes(cfg.Admin, routers.Handlers{
			Tickets: handlers.NewTicketHandler(ticketRepo, log),
			Health:  handlers.NewHealthHandler(checks),
			Metrics: botMetrics.Handler(),
		}, log)
		admin = routers.NewServer(cfg.Admin.Addr, engine, log)
		admin.Start()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutting down", zap.String("signal", sig.String()))

	// Stop intake first, then let queued events finish.
	if err := session.Close(); err != nil {
		log.Warn("failed to close discord session", zap.Error(err))
	}
	pool.Stop()

	if admin != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := admin.Shutdown(ctx); err != nil {
			log.Warn("failed to stop admin server", zap.Error(err))
		}
	}
	return nil
}

func closeDB(db *gorm.DB, log *logger.Logger) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Warn("failed to close postgres", zap.Error(err))
	}
}
