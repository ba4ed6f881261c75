// Package main provides the main entry point for the Velmart marketplace backend
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/velmart/velmart-backend/app/handlers"
	"github.com/velmart/velmart-backend/app/middleware"
	"github.com/velmart/velmart-backend/app/router"
	"github.com/velmart/velmart-backend/app/scheduler"
	"github.com/velmart/velmart-backend/app/services"
	businessflow "github.com/velmart/velmart-backend/business_flow"
	"github.com/velmart/velmart-backend/config"
	"github.com/velmart/velmart-backend/models"
	"github.com/velmart/velmart-backend/repository"
)

// Application represents the main application structure
type Application struct {
	router    *router.FiberRouter
	config    *config.ProductionConfig
	server    *fiber.App
	stopFuncs []func()
}

func main() {
	log.Println("Starting Velmart application...")

	// Load production configuration
	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize application
	app, err := initializeApplication(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	// Setup routes
	app.router.SetupRoutes()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Printf("Server starting on %s", address)

		if err := app.server.Listen(address); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	log.Println("Shutting down gracefully...")

	// Stop background workers
	for _, fn := range app.stopFuncs {
		fn()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.server.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB for connection pooling configuration
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pooling
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test the connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := db.AutoMigrate(
		&models.Client{},
		&models.City{},
		&models.District{},
		&models.Category{},
		&models.Product{},
		&models.Position{},
		&models.Payment{},
		&models.Purchase{},
		&models.BotContent{},
		&models.Review{},
		&models.Admin{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	log.Printf("Database connection established with %d max open connections, %d max idle connections",
		cfg.MaxOpenConns, cfg.MaxIdleConns)

	return db, nil
}

// initializeCache initializes the Redis client and verifies connectivity
func initializeCache(cfg config.CacheConfig) (*redis.Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Printf("Redis connection established to %s", cfg.RedisURL)
	return rc, nil
}

// startCacheHealthMonitor starts a background goroutine that periodically pings Redis
// to detect connectivity issues. The returned cancel function stops the monitor.
func startCacheHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(context.Background(), 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					log.Printf("Redis healthcheck failed: %v", err)
				}
				c()
			}
		}
	}()
	return cancel
}

// initializeApplication initializes the main application components
func initializeApplication(cfg *config.ProductionConfig) (*Application, error) {
	var stopFuncs []func()

	// Initialize database
	db, err := initializeDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}

	rc, err := initializeCache(cfg.Cache)
	if err != nil {
		return nil, err
	}
	if rc != nil {
		cancel := startCacheHealthMonitor(context.Background(), rc, 30*time.Second)
		stopFuncs = append(stopFuncs, cancel)
	}

	// Initialize repositories
	clientRepo := repository.NewClientRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	purchaseRepo := repository.NewPurchaseRepository(db)
	cityRepo := repository.NewCityRepository(db)
	districtRepo := repository.NewDistrictRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	productRepo := repository.NewProductRepository(db)
	positionRepo := repository.NewPositionRepository(db)
	contentRepo := repository.NewBotContentRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	adminRepo := repository.NewAdminRepository(db)

	// Payment provider client
	provider := services.NewCryptoPayClient(cfg.CryptoPay.BaseURL, cfg.CryptoPay.Token, cfg.CryptoPay.Timeout)

	// Captcha service for admin login
	captchaSvc, err := services.NewCaptchaServiceRotate(2*time.Minute, 15, 300)
	if err != nil {
		return nil, err
	}

	// Initialize token service
	tokenService, err := services.NewTokenService(
		cfg.JWT.AccessTokenTTL,
		cfg.JWT.RefreshTokenTTL,
		cfg.JWT.Issuer,
		cfg.JWT.Audience,
		cfg.JWT.UseRSAKeys,
		cfg.JWT.PrivateKey,
		cfg.JWT.PublicKey,
		cfg.JWT.SecretKey,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}

	log.Printf("Token service initialized with issuer: %s, audience: %s", cfg.JWT.Issuer, cfg.JWT.Audience)

	// Initialize flows
	paymentFlow := businessflow.NewPaymentFlow(
		paymentRepo,
		purchaseRepo,
		clientRepo,
		positionRepo,
		provider,
		db,
		cfg.CryptoPay,
	)

	clientFlow := businessflow.NewClientFlow(
		clientRepo,
		purchaseRepo,
		positionRepo,
		db,
	)

	catalogFlow := businessflow.NewCatalogFlow(
		cityRepo,
		districtRepo,
		categoryRepo,
		productRepo,
		positionRepo,
		rc,
		cfg.Cache,
	)

	contentFlow := businessflow.NewContentFlow(contentRepo, rc, cfg.Cache)

	reviewFlow := businessflow.NewReviewFlow(reviewRepo, positionRepo)

	adminAuthFlow := businessflow.NewAdminAuthFlow(adminRepo, tokenService, captchaSvc)

	mediaFlow := businessflow.NewMediaFlow(cfg.Uploads)

	exportFlow := businessflow.NewAdminExportFlow(paymentRepo)

	// Background sweep over open invoices: expiry plus provider
	// reconciliation for lost webhooks.
	if cfg.CryptoPay.IsConfigured() {
		sweeper := scheduler.NewPaymentSweeper(paymentRepo, paymentFlow, 5*time.Minute)
		stopFuncs = append(stopFuncs, sweeper.Start(context.Background()))
	}

	// Seed the default admin account on first boot
	if err := adminAuthFlow.SeedDefaultAdmin(context.Background(), cfg.Admin); err != nil {
		return nil, fmt.Errorf("failed to seed default admin: %w", err)
	}

	// Initialize handlers
	paymentHandler := handlers.NewPaymentHandler(paymentFlow, cfg)
	botHandler := handlers.NewBotHandler(clientFlow)
	catalogHandler := handlers.NewCatalogHandler(catalogFlow, mediaFlow)
	contentHandler := handlers.NewContentHandler(contentFlow, mediaFlow)
	reviewHandler := handlers.NewReviewHandler(reviewFlow)
	adminHandler := handlers.NewAdminHandler(adminAuthFlow, exportFlow)
	mediaHandler := handlers.NewMediaHandler(mediaFlow)

	// Initialize auth middleware
	authMiddleware := middleware.NewAuthMiddleware(tokenService)

	// Initialize router
	appRouter := router.NewFiberRouter(
		cfg,
		paymentHandler,
		botHandler,
		catalogHandler,
		contentHandler,
		reviewHandler,
		adminHandler,
		mediaHandler,
		authMiddleware,
	)

	fiberRouter := appRouter.(*router.FiberRouter)
	application := &Application{
		router:    fiberRouter,
		config:    cfg,
		server:    fiberRouter.GetApp(),
		stopFuncs: stopFuncs,
	}

	return application, nil
}
