package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"smartbite/internal/handlers"
	"smartbite/internal/middleware"
	"smartbite/internal/models"
	"smartbite/internal/repositories"
	"smartbite/internal/services"
	"smartbite/internal/store"
	"smartbite/pkg/cloudinary"
	"smartbite/pkg/config"
	"smartbite/pkg/metrics"
	"smartbite/pkg/rabbitmq"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// openDatabase connects to the configured SQL database.
func openDatabase(cfg config.Config, log *logrus.Logger) (*gorm.DB, error) {
	level := gormlogger.Silent
	if log.IsLevelEnabled(logrus.DebugLevel) {
		level = gormlogger.Info
	}
	gormCfg := &gorm.Config{Logger: gormlogger.Default.LogMode(level)}

	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "postgres":
		dialector = postgres.Open(cfg.DatabaseDSN)
	default:
		dialector = sqlite.Open(cfg.DatabaseDSN)
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.DBDriver, err)
	}
	if cfg.DBDriver == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		// sqlite allows a single writer
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

// buildApp wires storage, services and routes. The returned cleanup releases
// every connection buildApp opened.
func buildApp(ctx context.Context, cfg config.Config, log *logrus.Logger) (*fiber.App, func(), error) {
	var closers []func() error
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				log.WithError(err).Warn("error during shutdown")
			}
		}
	}

	db, err := openDatabase(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		closers = append(closers, sqlDB.Close)
	}
	if err := db.AutoMigrate(&models.User{}); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to auto-migrate users: %w", err)
	}

	var hub store.Broadcaster = store.NewLocalHub()
	if cfg.RedisURL != "" {
		redisHub, err := store.NewRedisHub(ctx, cfg.RedisURL, "")
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		hub = redisHub
		log.Info("change notifications fan out through Redis")
	}
	closers = append(closers, hub.Close)

	docs, err := store.NewGORMStore(db, hub)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	// --- Repositories ---
	userRepo := repositories.NewGORMUserRepository(db)
	menuRepo := repositories.NewStoreMenuRepository(docs)
	profileRepo := repositories.NewStoreProfileRepository(docs)
	cartRepo := repositories.NewStoreCartRepository(docs)
	notificationRepo := repositories.NewStoreNotificationRepository(docs)

	// --- Optional integrations ---
	var publisher services.EventPublisher
	if cfg.RabbitMQURL != "" {
		mq, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL}, log)
		if err != nil {
			log.WithError(err).Warn("RabbitMQ unavailable, order events will not be published")
		} else {
			publisher = mq
			closers = append(closers, mq.Close)
			if err := mq.Consume(ctx, services.OrderEventLogger(log)); err != nil {
				log.WithError(err).Warn("failed to start order event consumer")
			}
		}
	}

	var uploader services.ImageUploader
	imageHost, err := cloudinary.NewClient(cloudinary.Config{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
		BaseURL:   cfg.CloudinaryBaseURL,
		Timeout:   cfg.UploadTimeout,
	})
	switch {
	case errors.Is(err, cloudinary.ErrNotConfigured):
		log.Warn("Cloudinary credentials missing, image uploads are disabled")
	case err != nil:
		cleanup()
		return nil, nil, err
	default:
		uploader = imageHost
	}

	// --- Services ---
	policy := services.NewAdminPolicy(cfg.AdminEmail, cfg.AdminOwnerID)
	authService := services.NewAuthService(userRepo, profileRepo, policy, cfg.JWTSecret, log)
	imageService := services.NewImageService(uploader, log)
	menuService := services.NewMenuService(menuRepo, profileRepo, notificationRepo, policy, log)
	profileService := services.NewProfileService(profileRepo, imageService, log)
	orderService := services.NewOrderService(notificationRepo, policy, publisher, log)
	notificationService := services.NewNotificationService(notificationRepo, log)

	menuService.Listen(ctx)
	closers = append(closers, func() error {
		menuService.Stop()
		return nil
	})

	// --- Handlers ---
	authHandler := handlers.NewAuthHandler(authService, log)
	menuHandler := handlers.NewMenuHandler(menuService, menuRepo, log)
	cartHandler := handlers.NewCartHandler(cartRepo, menuRepo, log)
	orderHandler := handlers.NewOrderHandler(orderService, notificationService, cartRepo, log)
	notificationHandler := handlers.NewNotificationHandler(notificationService, notificationRepo, policy, log)
	profileHandler := handlers.NewProfileHandler(profileService, imageService, cfg.UploadTimeout, log)

	app := fiber.New(fiber.Config{
		AppName:               "SmartBite",
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	accessLog := log.Writer()
	closers = append(closers, accessLog.Close)
	app.Use(fiberlogger.New(fiberlogger.Config{Output: accessLog}))
	app.Use(metrics.Middleware())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
			"events": publisher != nil,
			"images": uploader != nil,
		})
	})
	app.Get("/metrics", metrics.Handler())

	apiV1 := app.Group("/api/v1")
	authHandler.RegisterRoutes(apiV1)

	protected := apiV1.Group("", middleware.AuthRequired(authService, log))
	menuHandler.RegisterRoutes(protected)
	cartHandler.RegisterRoutes(protected)
	orderHandler.RegisterRoutes(protected)
	notificationHandler.RegisterRoutes(protected)
	profileHandler.RegisterRoutes(protected)

	return app, cleanup, nil
}
