package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"productcatalog/catalog-service/internal/app/catalog/config"
	"productcatalog/catalog-service/internal/app/catalog/handler"
	"productcatalog/catalog-service/internal/app/catalog/infrastructure/hnb"
	"productcatalog/catalog-service/internal/app/catalog/repository"
	"productcatalog/catalog-service/internal/app/catalog/seed"
	"productcatalog/catalog-service/internal/app/catalog/service"
	"productcatalog/catalog-service/internal/app/catalog/util"
	"productcatalog/pkg/logger"
)

func main() {
	// === КОНФИГУРАЦИЯ И ЛОГИРОВАНИЕ ===
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(logger.Config{
		Service:      "catalog-service",
		Level:        cfg.Log.Level,
		LogstashAddr: cfg.Log.LogstashAddr,
		Pretty:       cfg.Log.Pretty,
	}); err != nil {
		logger.Warn().Err(err).Msg("Failed to connect to Logstash, using stdout only")
	}

	// === POSTGRESQL И МИГРАЦИИ ===
	db, err := connectDB(cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	sqlDB, _ := db.DB()
	defer sqlDB.Close()
	logger.Info().Str("database", cfg.Database.DBName).Msg("Connected to PostgreSQL")

	if err := repository.RunMigrations(db); err != nil {
		logger.Fatal().Err(err).Msg("Failed to run migrations")
	}

	// === REDIS ===
	// Redis хранит рейтинг популярных товаров
	redisClient, err := util.NewRedisClient(cfg.Redis.Address(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisClient.Close()
	logger.Info().Str("address", cfg.Redis.Address()).Msg("Connected to Redis")

	// === KAFKA ===
	var kafkaProducer util.MessagePublisher = util.NoopPublisher{}
	if cfg.Kafka.Enabled {
		kafkaProducer = util.NewKafkaProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.PublishTimeout)
		logger.Info().
			Strs("brokers", cfg.Kafka.Brokers).
			Str("topic", cfg.Kafka.Topic).
			Dur("publish_timeout", cfg.Kafka.PublishTimeout).
			Msg("Initialized Kafka producer")
	} else {
		logger.Info().Msg("Kafka disabled, events are not published")
	}
	defer kafkaProducer.Close()

	// === СЕРВИСЫ ===
	productRepo := repository.NewProductRepository(db)
	reviewRepo := repository.NewReviewRepository(db)

	hnbClient := hnb.NewClient(cfg.ExchangeRate.APIURL, cfg.ExchangeRate.TargetCurrency, cfg.ExchangeRate.FetchTimeout)
	rateService := service.NewExchangeRateService(hnbClient, cfg.ExchangeRate)
	catalogService := service.NewCatalogService(productRepo, rateService, redisClient, kafkaProducer, cfg.ExchangeRate.TargetCurrency)
	reviewService := service.NewReviewService(reviewRepo, productRepo, redisClient, kafkaProducer, cfg.Redis.PopularTTL)

	if cfg.SeedData {
		seedCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		if err := seed.Run(seedCtx, catalogService, reviewService); err != nil {
			logger.Error().Err(err).Msg("Failed to seed sample catalog")
		}
		cancel()
	}

	// === HTTP ===
	rateLimiter, err := handler.NewRateLimiter(cfg.RateLimit)
	if err != nil {
		logger.Fatal().Err(err).Str("rate_limit", cfg.RateLimit).Msg("Invalid rate limit")
	}

	authMiddleware := handler.NewAuthMiddleware(cfg.JWT.Secret)
	if !authMiddleware.Enabled() {
		logger.Warn().Msg("JWT_SECRET is empty, write endpoints are not protected")
	}

	router := handler.SetupRoutes(
		handler.NewCatalogHandler(catalogService, rateService),
		handler.NewReviewHandler(reviewService),
		authMiddleware,
		handler.RateLimit(rateLimiter),
	)

	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("Starting Catalog Service")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// === GRACEFUL SHUTDOWN ===
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down Catalog Service...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}

	logger.Info().Msg("Catalog Service stopped gracefully")
}

// connectDB подключается к PostgreSQL с повторными попытками
// При запуске через docker-compose БД может подняться позже сервиса
func connectDB(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	}

	var db *gorm.DB
	var err error

	for i := 0; i < 10; i++ {
		db, err = gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
		if err == nil {
			sqlDB, sqlErr := db.DB()
			if sqlErr != nil {
				err = sqlErr
			} else if err = sqlDB.Ping(); err == nil {
				sqlDB.SetMaxOpenConns(25)
				sqlDB.SetMaxIdleConns(5)
				sqlDB.SetConnMaxLifetime(5 * time.Minute)
				sqlDB.SetConnMaxIdleTime(1 * time.Minute)
				return db, nil
			}
		}

		logger.Warn().
			Int("attempt", i+1).
			Err(err).
			Msg("Failed to connect to database, retrying...")
		time.Sleep(3 * time.Second)
	}

	return nil, fmt.Errorf("failed to connect after 10 attempts: %w", err)
}
