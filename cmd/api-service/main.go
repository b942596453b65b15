package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cuongbtq/gigmarket/internal/api/handler"
	"github.com/cuongbtq/gigmarket/internal/api/router"
	"github.com/cuongbtq/gigmarket/internal/auth"
	"github.com/cuongbtq/gigmarket/internal/config"
	"github.com/cuongbtq/gigmarket/internal/events"
	"github.com/cuongbtq/gigmarket/internal/marketplace"
	"github.com/cuongbtq/gigmarket/internal/metrics"
	"github.com/cuongbtq/gigmarket/internal/payment"
	"github.com/cuongbtq/gigmarket/internal/realtime"
	"github.com/cuongbtq/gigmarket/internal/storage"
	"github.com/cuongbtq/gigmarket/shared/cache"
	"github.com/cuongbtq/gigmarket/shared/logger"
	"github.com/cuongbtq/gigmarket/shared/postgresql"
	"github.com/cuongbtq/gigmarket/shared/rabbitmq"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	defaultConfigPath := os.Getenv("API_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/api-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	migrate := flag.Bool("migrate", false, "Apply pending database migrations before serving")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateAPIConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	appLogger.Info("Starting API service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	dbClient, err := initPostgreSQL(&cfg.Database, appLogger.Component("postgresql"))
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer dbClient.Close()

	if *migrate {
		if err := dbClient.Migrate(cfg.Database.MigrationsPath, postgresql.MigrateUp); err != nil {
			return err
		}
	}

	rabbitClient, err := initRabbitMQ(&cfg.RabbitMQ, appLogger.Component("rabbitmq"))
	if err != nil {
		return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
	}
	defer rabbitClient.Close()

	redisClient, err := cache.NewClient(&cache.Config{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, appLogger.Component("redis"))
	if err != nil {
		return fmt.Errorf("failed to initialize Redis: %w", err)
	}
	defer redisClient.Close()

	gateway, err := payment.NewRazorpayGateway(&payment.Config{
		BaseURL:        cfg.Payment.BaseURL,
		KeyID:          cfg.Payment.KeyID,
		KeySecret:      cfg.Payment.KeySecret,
		Currency:       cfg.Payment.Currency,
		RequestTimeout: cfg.Payment.RequestTimeout,
	}, appLogger.Component("payment"))
	if err != nil {
		return fmt.Errorf("failed to initialize payment gateway: %w", err)
	}

	listener, err := dbClient.NewListener(
		cfg.Realtime.Channel,
		cfg.Realtime.MinReconnectInterval,
		cfg.Realtime.MaxReconnectInterval,
	)
	if err != nil {
		return fmt.Errorf("failed to initialize change listener: %w", err)
	}
	defer listener.Close()

	appMetrics := metrics.New()
	store := storage.NewStorage(dbClient, appLogger.Component("storage"))

	hub := realtime.NewHub(listener, realtime.Config{
		SubscriberBuffer:  cfg.Realtime.SubscriberBuffer,
		KeepAliveInterval: cfg.Realtime.KeepAliveInterval,
	}, appMetrics, appLogger.Component("realtime"))

	hubCtx, stopHub := context.WithCancel(context.Background())
	hubDone := make(chan error, 1)
	go func() { hubDone <- hub.Run(hubCtx) }()

	service := marketplace.NewService(
		store,
		events.NewPublisher(rabbitClient, appLogger.Component("events")),
		gateway,
		cache.NewIdempotencyStore(redisClient, "payment:confirmed:"),
		appMetrics,
		marketplace.Config{PaymentIdempotencyTTL: cfg.Payment.IdempotencyTTL},
		appLogger.Component("marketplace"),
	)

	accounts := auth.NewService(
		store,
		auth.NewTokenService(auth.TokenConfig{
			Secret: cfg.Auth.JWTSecret,
			Issuer: cfg.Auth.Issuer,
			TTL:    cfg.Auth.AccessTokenTTL,
		}),
		auth.NewRedisRevocationList(redisClient, cfg.Auth.RevocationKeyNS),
		cfg.Auth.BcryptCost,
		appLogger.Component("auth"),
	)

	r := initRouter(cfg, appLogger.Logger, &handler.Dependencies{
		Logger:            appLogger.Logger,
		Marketplace:       service,
		Accounts:          accounts,
		Counter:           store,
		Subscriber:        hub,
		WriteOpTimeout:    cfg.Server.WriteOpTimeout,
		KeepAliveInterval: cfg.Realtime.KeepAliveInterval,
	}, router.Options{
		ServiceName: cfg.App.Name,
		Auth:        accounts,
		Metrics:     appMetrics,
		HealthChecks: map[string]router.HealthCheck{
			"postgres": dbClient.HealthCheck,
			"rabbitmq": func(context.Context) error {
				if !rabbitClient.IsConnected() {
					return errors.New("not connected")
				}
				return nil
			},
			"redis": func(ctx context.Context) error {
				return redisClient.Ping(ctx).Err()
			},
		},
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	appLogger.Info("API service is running",
		slog.String("address", addr),
		slog.Duration("read_timeout", cfg.Server.ReadTimeout),
		slog.Duration("write_timeout", cfg.Server.WriteTimeout),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		appLogger.Info("Shutting down server...", slog.String("signal", sig.String()))
	case err := <-serverErr:
		stopHub()
		return fmt.Errorf("server failed: %w", err)
	case err := <-hubDone:
		appLogger.Error("Change stream stopped", slog.Any("error", err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Closing the hub first ends open unread and chat streams so Shutdown is not held by them
	stopHub()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown", slog.Any("error", err))
		return err
	}

	appLogger.Info("Server shutdown complete")
	return nil
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
	})
}

// initPostgreSQL initializes the PostgreSQL database client
func initPostgreSQL(cfg *config.DatabaseConfig, logger *slog.Logger) (*postgresql.Client, error) {
	return postgresql.NewClient(&postgresql.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Database,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}, logger)
}

// initRabbitMQ initializes the RabbitMQ client. The queue is declared here as
// well so events published before the first worker starts are kept.
func initRabbitMQ(cfg *config.RabbitMQConfig, logger *slog.Logger) (*rabbitmq.Client, error) {
	return rabbitmq.NewClient(&rabbitmq.Config{
		Host:               cfg.Host,
		Port:               cfg.Port,
		User:               cfg.User,
		Password:           cfg.Password,
		VHost:              cfg.VHost,
		ExchangeName:       cfg.Exchange.Name,
		ExchangeType:       cfg.Exchange.Type,
		ExchangeDurable:    cfg.Exchange.Durable,
		ExchangeAutoDelete: cfg.Exchange.AutoDelete,
		QueueName:          cfg.Queue.Name,
		QueueDurable:       cfg.Queue.Durable,
		QueueAutoDelete:    cfg.Queue.AutoDelete,
		QueueExclusive:     cfg.Queue.Exclusive,
		BindingKeys:        cfg.BindingKeys,
		RetryAttempts:      cfg.Connection.RetryAttempts,
		RetryInterval:      cfg.Connection.RetryInterval,
		Heartbeat:          cfg.Connection.Heartbeat,
		ConnectionTimeout:  cfg.Connection.ConnectionTimeout,
		PublishRetries:     cfg.Publish.RetryAttempts,
		PublishRetryDelay:  cfg.Publish.RetryInterval,
		PublishBackoffMult: cfg.Publish.BackoffMultiplier,
	}, logger)
}

// initRouter initializes the Gin router with all routes and middleware
func initRouter(cfg *config.Config, logger *slog.Logger, deps *handler.Dependencies, opts router.Options) *gin.Engine {
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	if cfg.RateLimit.Enabled {
		opts.RateLimiter = router.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
		logger.Info("Rate limiting enabled",
			slog.Float64("requests_per_second", cfg.RateLimit.RequestsPerSecond),
			slog.Int("burst", cfg.RateLimit.Burst),
		)
	}

	return router.SetupRouter(deps, opts)
}
