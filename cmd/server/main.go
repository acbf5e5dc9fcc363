package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fastaid/service-dispatch/internal/application"
	"github.com/fastaid/service-dispatch/internal/config"
	dispatchEvents "github.com/fastaid/service-dispatch/internal/events"
	"github.com/fastaid/service-dispatch/internal/geocode"
	"github.com/fastaid/service-dispatch/internal/handler"
	"github.com/fastaid/service-dispatch/internal/platform/auth"
	"github.com/fastaid/service-dispatch/internal/platform/database"
	"github.com/fastaid/service-dispatch/internal/platform/health"
	"github.com/fastaid/service-dispatch/internal/platform/kafka"
	"github.com/fastaid/service-dispatch/internal/platform/logger"
	"github.com/fastaid/service-dispatch/internal/platform/middleware"
	"github.com/fastaid/service-dispatch/internal/repository"
	"github.com/fastaid/service-dispatch/internal/routing"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewNamed(cfg.AppEnv, "service-dispatch")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting service-dispatch",
		zap.String("port", cfg.Port),
	)

	// Connect to database
	db, err := database.Connect(cfg.DBConfig, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	// Run database migrations
	if cfg.AppEnv == "development" {
		if err := db.AutoMigrate(
			&repository.TripModel{},
			&repository.TripLocationModel{},
			&repository.DriverModel{},
		); err != nil {
			log.Fatal("failed to run auto-migration", zap.Error(err))
		}
		log.Info("database migration completed (dev auto-migrate)")
	} else {
		dbURL := cfg.DBConfig.DatabaseURL()
		if err := database.RunMigrations(dbURL, cfg.MigrationsDir, log); err != nil {
			log.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	// Initialize JWT manager
	jwtManager := auth.NewJWTManager(
		cfg.JWTConfig.Secret,
		cfg.JWTConfig.AccessTTL,
		cfg.JWTConfig.RefreshTTL,
	)

	// Initialize Kafka producer and notifier
	kafkaProducer := kafka.NewProducer(cfg.KafkaConfig.Brokers, log)
	defer func() { _ = kafkaProducer.Close() }()
	notifier := dispatchEvents.NewKafkaNotifier(kafkaProducer, log)

	// Initialize repositories
	tripRepo := repository.NewGormTripRepository(db)
	driverRepo := repository.NewGormDriverRepository(db)

	// Initialize route engine and geocoder
	routeChain := routing.NewChain(cfg.RoutingConfig, log)
	aggregator := routing.NewAggregator(routeChain)
	geocoder := geocode.NewOpenCageGeocoder(
		cfg.GeocodeConfig.APIKey,
		cfg.GeocodeConfig.BaseURL,
		cfg.GeocodeConfig.Timeout,
	)

	// Initialize application services
	tripService := application.NewTripService(tripRepo, driverRepo, geocoder, notifier, log)
	driverService := application.NewDriverService(driverRepo, log)
	dispatchService := application.NewDispatchService(tripRepo, driverRepo, aggregator, notifier, log)
	locationService := application.NewLocationService(tripRepo, driverRepo, aggregator, notifier, log)

	// Initialize and start the position event consumer in a goroutine
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	positionConsumer := dispatchEvents.NewPositionEventConsumer(
		cfg.KafkaConfig.Brokers,
		cfg.KafkaConfig.GroupID,
		locationService,
		log,
	)
	defer func() { _ = positionConsumer.Close() }()

	go func() {
		log.Info("starting position event consumer")
		if err := positionConsumer.Start(ctx); err != nil && err != context.Canceled {
			log.Error("position event consumer error", zap.Error(err))
		}
	}()

	// Initialize HTTP handlers
	tripHandler := handler.NewTripHandler(tripService, locationService, dispatchService)
	driverHandler := handler.NewDriverHandler(driverService, dispatchService, jwtManager)
	adminHandler := handler.NewAdminTripHandler(tripService)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	// Apply global middleware
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.LoggerMiddleware(log))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())

	// Register health check routes
	healthHandler := health.NewHandler(db, "service-dispatch")
	healthHandler.RegisterRoutes(router)

	// Register routes
	tripHandler.RegisterRoutes(&router.RouterGroup, jwtManager)
	driverHandler.RegisterRoutes(&router.RouterGroup, jwtManager)
	adminHandler.RegisterRoutes(&router.RouterGroup, jwtManager)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info("HTTP server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down service-dispatch...")

	// Cancel the consumer context
	cancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced shutdown", zap.Error(err))
	}

	log.Info("service-dispatch stopped")
}
