// Package router provides HTTP routing, middleware configuration, and server setup for the web application
package router

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/compress"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/helmet"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/velmart/velmart-backend/app/dto"
	"github.com/velmart/velmart-backend/app/handlers"
	"github.com/velmart/velmart-backend/app/middleware"
	"github.com/velmart/velmart-backend/config"
	"github.com/velmart/velmart-backend/utils"
)

// Router interface for HTTP routing
type Router interface {
	SetupRoutes()
	Start(address string) error
	GetApp() *fiber.App
}

// FiberRouter implements Router using Fiber v3
type FiberRouter struct {
	app            *fiber.App
	cfg            *config.ProductionConfig
	paymentHandler handlers.PaymentHandlerInterface
	botHandler     handlers.BotHandlerInterface
	catalogHandler handlers.CatalogHandlerInterface
	contentHandler handlers.ContentHandlerInterface
	reviewHandler  handlers.ReviewHandlerInterface
	adminHandler   handlers.AdminHandlerInterface
	mediaHandler   handlers.MediaHandlerInterface
	authMiddleware *middleware.AuthMiddleware
}

// NewFiberRouter creates a new Fiber router
func NewFiberRouter(
	cfg *config.ProductionConfig,
	paymentHandler handlers.PaymentHandlerInterface,
	botHandler handlers.BotHandlerInterface,
	catalogHandler handlers.CatalogHandlerInterface,
	contentHandler handlers.ContentHandlerInterface,
	reviewHandler handlers.ReviewHandlerInterface,
	adminHandler handlers.AdminHandlerInterface,
	mediaHandler handlers.MediaHandlerInterface,
	authMiddleware *middleware.AuthMiddleware,
) Router {
	app := fiber.New(fiber.Config{
		AppName:      "Velmart API",
		ServerHeader: "Velmart",
		ErrorHandler: errorHandler,
		BodyLimit:    cfg.Server.BodyLimit,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})

	return &FiberRouter{
		app:            app,
		cfg:            cfg,
		paymentHandler: paymentHandler,
		botHandler:     botHandler,
		catalogHandler: catalogHandler,
		contentHandler: contentHandler,
		reviewHandler:  reviewHandler,
		adminHandler:   adminHandler,
		mediaHandler:   mediaHandler,
		authMiddleware: authMiddleware,
	}
}

// SetupRoutes configures all application routes
func (r *FiberRouter) SetupRoutes() {
	log.Println("Setting up routes...")

	// Global middleware
	r.setupMiddleware()

	// Ops endpoints live outside the versioned API group
	r.app.Get("/health", r.healthCheck)
	if r.cfg.Metrics.Enabled {
		path := r.cfg.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		r.app.Get(path, adaptor.HTTPHandler(promhttp.Handler()))
	}

	// API routes
	api := r.app.Group("/api/v1")

	// Health check route (no rate limiting)
	api.Get("/health", r.healthCheck)

	// Apply general rate limiting to all API routes
	api.Use(limiter.New(limiter.Config{
		Max:        r.cfg.Security.GlobalRateLimit,
		Expiration: r.cfg.Security.RateLimitWindow,
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP() // Rate limit by IP
		},
		LimitReached: rateLimitReached,
		Next: func(c fiber.Ctx) bool {
			// Skip rate limiting for health checks
			return c.Path() == "/api/v1/health"
		},
	}))

	// Payment endpoints (bot backend to provider lifecycle)
	payment := api.Group("/payment")
	payment.Post("/crypto/invoice", r.paymentHandler.CreateInvoice)
	payment.Post("/crypto/webhook", r.paymentHandler.Webhook)
	payment.Get("/:paymentId", r.paymentHandler.GetPayment)

	// Bot-facing client endpoints
	bot := api.Group("/bot")
	bot.Post("/client", r.botHandler.GetOrCreateClient)
	bot.Get("/client/:telegramId/balance", r.botHandler.GetBalance)
	bot.Post("/client/:telegramId/balance/adjust", r.botHandler.AdjustBalance)
	bot.Post("/client/:telegramId/balance/topup-test", r.botHandler.TestTopUp)
	bot.Post("/purchase", r.botHandler.DirectPurchase)
	bot.Get("/client/:telegramId/purchases", r.botHandler.GetPurchases)

	// Catalog reads are public, writes require an admin token
	adminOnly := r.authMiddleware.AdminAuthenticate()

	city := api.Group("/city")
	city.Get("/", r.catalogHandler.ListCities)
	city.Post("/", r.catalogHandler.CreateCity, adminOnly)
	city.Delete("/:id", r.catalogHandler.DeleteCity, adminOnly)

	district := api.Group("/district")
	district.Get("/", r.catalogHandler.ListDistricts)
	district.Post("/", r.catalogHandler.CreateDistrict, adminOnly)
	district.Delete("/:id", r.catalogHandler.DeleteDistrict, adminOnly)

	category := api.Group("/category")
	category.Get("/", r.catalogHandler.ListCategories)
	category.Post("/", r.catalogHandler.CreateCategory, adminOnly)
	category.Delete("/:id", r.catalogHandler.DeleteCategory, adminOnly)

	product := api.Group("/product")
	product.Get("/", r.catalogHandler.ListProducts)
	product.Post("/", r.catalogHandler.CreateProduct, adminOnly)
	product.Delete("/:id", r.catalogHandler.DeleteProduct, adminOnly)

	position := api.Group("/position")
	position.Post("/", r.catalogHandler.CreatePosition, adminOnly)
	position.Delete("/:id", r.catalogHandler.DeletePosition, adminOnly)

	api.Get("/catalog/search", r.catalogHandler.Search)

	// Bot content
	content := api.Group("/content")
	content.Get("/", r.contentHandler.List)
	content.Get("/:key", r.contentHandler.GetByKey)
	content.Post("/", r.contentHandler.Upsert, adminOnly)

	// Reviews
	review := api.Group("/review")
	review.Post("/", r.reviewHandler.CreateReviews)
	review.Get("/stats/:positionId", r.reviewHandler.Stats)
	review.Get("/:positionId", r.reviewHandler.ListByPosition)

	// Uploaded media
	media := api.Group("/media")
	media.Get("/thumb/*", r.mediaHandler.Thumbnail)
	media.Get("/*", r.mediaHandler.Serve)

	// Admin routes with stricter rate limiting on the auth surface
	admin := api.Group("/admin")
	adminAuth := admin.Group("/auth")
	adminAuth.Use(limiter.New(limiter.Config{
		Max:        r.cfg.Security.AuthRateLimit,
		Expiration: r.cfg.Security.RateLimitWindow,
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: rateLimitReached,
	}))
	adminAuth.Get("/captcha", r.adminHandler.InitCaptcha)
	adminAuth.Post("/login", r.adminHandler.Login)
	adminAuth.Post("/refresh", r.adminHandler.Refresh)
	adminAuth.Post("/logout", r.adminHandler.Logout, adminOnly)
	adminAuth.Get("/check", r.adminHandler.Check, adminOnly)

	admin.Get("/export/payments.xlsx", r.adminHandler.ExportPayments, adminOnly)

	// Not found handler
	r.app.Use(r.notFoundHandler)

	log.Println("Routes configured successfully")
}

// setupMiddleware configures global middleware
func (r *FiberRouter) setupMiddleware() {
	// Request ID middleware - must be first
	r.app.Use(requestid.New(requestid.Config{
		Header: "X-Request-ID",
		Generator: func() string {
			return generateRequestID()
		},
	}))

	// Security headers middleware
	r.app.Use(helmet.New(helmet.Config{
		XSSProtection:             r.cfg.Security.XSSProtection,
		ContentTypeNosniff:        r.cfg.Security.XContentTypeOptions,
		XFrameOptions:             r.cfg.Security.XFrameOptions,
		HSTSMaxAge:                31536000, // 1 year
		HSTSExcludeSubdomains:     false,
		ContentSecurityPolicy:     r.cfg.Security.CSPPolicy,
		ReferrerPolicy:            r.cfg.Security.ReferrerPolicy,
		CrossOriginEmbedderPolicy: "require-corp",
		CrossOriginOpenerPolicy:   "same-origin",
		CrossOriginResourcePolicy: "cross-origin",
		OriginAgentCluster:        "?1",
		XDNSPrefetchControl:       "off",
		XDownloadOptions:          "noopen",
		XPermittedCrossDomain:     "none",
	}))

	// CORS middleware
	r.app.Use(cors.New(cors.Config{
		AllowOrigins:     r.cfg.Security.AllowedOrigins,
		AllowMethods:     r.cfg.Security.AllowedMethods,
		AllowHeaders:     r.cfg.Security.AllowedHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-Response-Time"},
		AllowCredentials: r.cfg.Security.AllowCredentials,
		MaxAge:           r.cfg.Security.CORSMaxAge,
	}))

	// Compression middleware for performance
	if r.cfg.Server.EnableCompression {
		r.app.Use(compress.New(compress.Config{
			Level: compress.LevelBestSpeed,
			Next: func(c fiber.Ctx) bool {
				// Skip compression for binary media responses
				contentType := c.Get("Content-Type")
				return strings.Contains(contentType, "image/") ||
					strings.Contains(contentType, "video/") ||
					strings.Contains(contentType, "audio/")
			},
		}))
	}

	// Structured access log
	if r.cfg.Logging.EnableAccessLog {
		r.app.Use(logger.New(logger.Config{
			Format:     `{"time":"${time}","pid":"${pid}","request_id":"${locals:requestid}","level":"info","method":"${method}","path":"${path}","protocol":"${protocol}","ip":"${ip}","user_agent":"${ua}","status":${status},"latency":"${latency}","bytes_in":${bytesReceived},"bytes_out":${bytesSent},"referer":"${referer}"}` + "\n",
			TimeFormat: time.RFC3339,
			TimeZone:   "UTC",
			Next: func(c fiber.Ctx) bool {
				// Skip logging for health checks in production
				return c.Path() == "/health" || c.Path() == "/api/v1/health"
			},
		}))
	}

	// Prometheus HTTP metrics
	if r.cfg.Metrics.Enabled {
		r.app.Use(middleware.Metrics())
	}

	// Custom response headers
	r.app.Use(r.securityMiddleware)

	// Recovery middleware with custom error handling
	r.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c fiber.Ctx, e interface{}) {
			// Log panic with request context
			log.Printf(`{"time":"%s","level":"error","request_id":"%s","event":"panic","error":"%v","path":"%s","method":"%s","ip":"%s"}`,
				utils.UTCNow().Format(time.RFC3339),
				c.Locals("requestid"),
				e,
				c.Path(),
				c.Method(),
				c.IP(),
			)
		},
	}))
}

// securityMiddleware stamps tracing headers on every response
func (r *FiberRouter) securityMiddleware(c fiber.Ctx) error {
	c.Set("X-Response-Time", utils.UTCNow().Format(time.RFC3339))
	c.Set("Server", "Velmart")
	return c.Next()
}

// Start starts the HTTP server
func (r *FiberRouter) Start(address string) error {
	log.Printf("Starting server on %s", address)
	return r.app.Listen(address)
}

// GetApp returns the Fiber app instance
func (r *FiberRouter) GetApp() *fiber.App {
	return r.app
}

// Health check endpoint
func (r *FiberRouter) healthCheck(c fiber.Ctx) error {
	return c.JSON(dto.APIResponse{
		Success: true,
		Message: "Service is healthy",
		Data: fiber.Map{
			"status":    "ok",
			"timestamp": utils.UTCNow().Unix(),
			"version":   "1.0.0",
			"service":   "velmart-api",
		},
	})
}

// Not found handler
func (r *FiberRouter) notFoundHandler(c fiber.Ctx) error {
	requestID := c.Locals("requestid")

	return c.Status(fiber.StatusNotFound).JSON(dto.APIResponse{
		Success: false,
		Message: "The requested resource was not found",
		Error: dto.ErrorDetail{
			Code: "NOT_FOUND",
			Details: fiber.Map{
				"path":       c.Path(),
				"method":     c.Method(),
				"request_id": requestID,
			},
		},
	})
}

func rateLimitReached(c fiber.Ctx) error {
	return c.Status(fiber.StatusTooManyRequests).JSON(dto.APIResponse{
		Success: false,
		Message: "Too many requests. Please try again later.",
		Error: dto.ErrorDetail{
			Code: "RATE_LIMIT_EXCEEDED",
		},
	})
}

// Global error handler
func errorHandler(c fiber.Ctx, err error) error {
	// Default error code
	code := fiber.StatusInternalServerError

	// Retrieve the custom status code if it's a fiber.*Error
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	// Log the error
	log.Printf("Error %d: %v", code, err)

	// Get RequestID for tracing
	requestID := c.Locals("requestid")

	return c.Status(code).JSON(dto.APIResponse{
		Success: false,
		Message: "An internal server error occurred",
		Error: dto.ErrorDetail{
			Code: "INTERNAL_ERROR",
			Details: fiber.Map{
				"timestamp":  utils.UTCNow().Unix(),
				"request_id": requestID,
			},
		},
	})
}

// generateRequestID creates a unique request ID
func generateRequestID() string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}
