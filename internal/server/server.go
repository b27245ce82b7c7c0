// Package server contains the HTTP handlers and route wiring for the marketplace API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"time"

	"marketplace/internal/config"
	"marketplace/internal/database"
	"marketplace/internal/identity"
	"marketplace/internal/kv"
	"marketplace/internal/middleware"
	"marketplace/internal/models"
	"marketplace/internal/repository"
	"marketplace/internal/service"
	"marketplace/internal/storage"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	identity       identity.Gateway
	photos         storage.Store
	listingService *service.ListingService
}

// NewServer creates a new server instance with all dependencies
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	kv.InitRedis(cfg.RedisURL)

	gateway, err := identity.NewFirebaseGateway(ctx, cfg.FirebaseProjectID, cfg.FirebaseCredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("identity provider init failed: %w", err)
	}

	photos, err := storage.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("photo storage init failed: %w", err)
	}

	return NewServerWithDeps(cfg, db, kv.GetClient(), gateway, photos)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Tests use it to supply their own database, gateway and photo store.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, gateway identity.Gateway, photos storage.Store) (*Server, error) {
	if db == nil {
		return nil, errors.New("database is required")
	}
	if gateway == nil {
		return nil, errors.New("identity gateway is required")
	}
	if photos == nil {
		return nil, errors.New("photo storage is required")
	}

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("marketplace-api"),
		identity:       gateway,
		photos:         photos,
	}
	server.listingService = service.NewListingService(
		repository.NewListingRepository(db),
		repository.NewReviewRepository(db),
		gateway,
		photos,
	)
	return server, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Context Middleware to propagate Request ID and User ID
	app.Use(middleware.ContextMiddleware())

	app.Use(middleware.TracingMiddleware())

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers. Photos are embedded cross-origin by the web client.
	app.Use(helmet.New(helmet.Config{
		CrossOriginResourcePolicy: "cross-origin",
	}))

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET,POST,PATCH,DELETE,OPTIONS",
		AllowCredentials: origins != "*",
		MaxAge:           86400, // 24 hours
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	if local, ok := s.photos.(*storage.LocalStore); ok {
		app.Static(local.PublicPrefix(), local.Root(), fiber.Static{
			MaxAge: 3600,
		})
	}

	api := app.Group("/api")
	authRequired := middleware.AuthRequired(s.identity)

	listings := api.Group("/listings")
	listings.Get("/", middleware.RateLimit(s.redis, s.env(), 60, time.Minute, "search"), s.ListListings)
	listings.Post("/", authRequired,
		middleware.RateLimit(s.redis, s.env(), 10, 10*time.Minute, "create_listing"), s.CreateListing)
	// Define specific /:id/:resource routes BEFORE generic /:id route
	listings.Patch("/:id/status", authRequired, s.UpdateListingStatus)
	listings.Post("/:id/photos", authRequired,
		middleware.RateLimit(s.redis, s.env(), 20, 10*time.Minute, "upload_photos"), s.UploadListingPhotos)
	listings.Post("/:id/trade", authRequired, s.CompleteTrade)
	listings.Post("/:id/reviews", authRequired, s.WriteReview)
	listings.Get("/:id", middleware.OptionalAuth(s.identity), s.GetListing)
	listings.Delete("/:id", authRequired, s.DeleteListing)

	me := api.Group("/me", authRequired)
	me.Get("/selling", s.GetMySelling)
	me.Get("/buying", s.GetMyBuying)

	users := api.Group("/users")
	users.Get("/:uid/reviews", s.GetSellerReviews)
	users.Get("/:uid/selling", s.GetUserSelling)
	users.Get("/:uid/buying", s.GetUserBuying)
	users.Get("/:uid", s.GetSellerInfo)
}

// LivenessCheck handles liveness check requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness check requests. Redis only backs rate
// limiting, which fails open, so a missing Redis degrades but does not fail readiness.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	switch {
	case dbStatus != "healthy":
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	case redisStatus != "healthy":
		overallStatus = "degraded"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database":      dbStatus,
			"redis":         redisStatus,
			"photo_storage": storage.BackendOf(s.photos),
		},
		"time": time.Now(),
	})
}

// env is the loaded APP_ENV profile.
func (s *Server) env() string {
	if s.config == nil {
		return ""
	}
	return s.config.Env
}

func (s *Server) bodyLimit() int {
	return int(s.maxUploadBytes())*s.maxFiles() + 1<<20
}

func (s *Server) maxUploadBytes() int64 {
	mb := 10
	if s.config != nil && s.config.PhotoMaxUploadSizeMB > 0 {
		mb = s.config.PhotoMaxUploadSizeMB
	}
	return int64(mb) << 20
}

func (s *Server) maxFiles() int {
	if s.config != nil && s.config.PhotoMaxFiles > 0 {
		return s.config.PhotoMaxFiles
	}
	return 10
}

// buildApp creates the Fiber app with middleware and routes attached.
func (s *Server) buildApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   "Marketplace API",
		BodyLimit: s.bodyLimit(),
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return models.RespondWithError(c, fe.Code, err)
			}
			middleware.Logger.ErrorContext(c.UserContext(), "Unhandled error",
				slog.String("path", c.Path()),
				slog.String("error", err.Error()),
			)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})

	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// Start starts the server
func (s *Server) Start() error {
	s.app = s.buildApp()

	log.Printf("Server starting on port %s...", s.config.Port)
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	// Close database connection
	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Printf("error closing sql DB: %v", cerr)
		}
	}

	// Close Redis connection
	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			log.Printf("error closing redis: %v", rerr)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}
