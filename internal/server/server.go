// Package server contains the HTTP surface of the verification pipeline.
package server

import (
	"context"
	"log"
	"time"

	"postguard/internal/cache"
	"postguard/internal/classifier"
	"postguard/internal/config"
	"postguard/internal/database"
	"postguard/internal/middleware"
	"postguard/internal/models"
	"postguard/internal/ratelimit"
	"postguard/internal/repository"
	"postguard/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
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
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	postRepo   repository.PostRepository
	limiter    *ratelimit.Limiter
	gate       *service.GateService
	verifier   *service.VerifierService
	reconciler *service.ReconcilerService
	staging    *service.ImageStagingService
	closers    []func() error
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, err
	}

	cache.InitRedis(cfg.RedisURL)
	redisClient := cache.GetClient()

	// One limiter instance serializes every classifier call process-wide.
	// A bad delay must fail here, not mid-sweep.
	lim, err := ratelimit.New(cfg.ClassifierMinDelay())
	if err != nil {
		return nil, err
	}

	text := classifier.NewTextClassifier(cfg.TextClassifierURL, cfg.ClassifierAPIKey, lim)
	image := classifier.NewImageClassifier(cfg.ImageClassifierURL, cfg.ClassifierAPIKey, lim)

	server := newServerCore(cfg, db, redisClient, lim, text, image)
	server.closers = append(server.closers, text.Close, image.Close)
	return server, nil
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis and stubs
// the classifier backends.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, text service.TextChecker, image service.ImageChecker) (*Server, error) {
	lim, err := ratelimit.New(cfg.ClassifierMinDelay())
	if err != nil {
		return nil, err
	}
	return newServerCore(cfg, db, redisClient, lim, text, image), nil
}

func newServerCore(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, lim *ratelimit.Limiter, text service.TextChecker, image service.ImageChecker) *Server {
	postRepo := repository.NewPostRepository(db)

	prom := middleware.InitMetrics("postguard-api")
	middleware.InitMiddleware(cfg)

	verifier := service.NewVerifierService(postRepo, text, image, cfg.FieldCooldown())

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: prom,
		postRepo:       postRepo,
		limiter:        lim,
		gate:           service.NewGateService(text, image),
		verifier:       verifier,
		reconciler:     service.NewReconcilerService(postRepo, verifier, cfg.SweepInterval(), cfg.SweepBatchSize),
		staging:        service.NewImageStagingService(cfg.ImageStagingDir, cfg.ImageMaxUploadSizeMB),
	}
	return server
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Context Middleware to propagate Request ID
	app.Use(middleware.ContextMiddleware())

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	if s.config.TracingEnabled {
		app.Use(middleware.TracingMiddleware())
	}

	// Security headers
	app.Use(helmet.New())

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// CORS middleware should run before middlewares that can short-circuit
	// so browser clients still receive CORS headers on error responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		// Never rate-limit preflight requests; they should be handled by CORS.
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
	api := app.Group("/api")

	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Postguard Metrics Dashboard",
	}))

	// Swagger documentation
	api.Get("/swagger/*", swagger.HandlerDefault)

	// Content verification surface
	verification := api.Group("/content-verification")
	verification.Post("/", middleware.RateLimit(
		s.redis, 20, time.Minute, "content_verification"), s.VerifyContent)
	verification.Get("/guidelines", s.GetGuidelines)

	// Admin routes
	admin := api.Group("/admin", middleware.AdminRequired)
	verificationAdmin := admin.Group("/verification")
	verificationAdmin.Get("/posts", s.ListPostsByStatus)
	verificationAdmin.Post("/posts/:id/recheck", s.RecheckPost)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
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
		// The verdict cache is optional; the pipeline runs without it.
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"version": "1.0.0",
		"status":  overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Start starts the server and the background reconciliation loop
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	app := fiber.New(fiber.Config{
		AppName: "Postguard API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)

	go s.reconciler.Run(s.shutdownCtx)

	log.Printf("Server starting on port %s...", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	// Stop the reconciliation loop; it finishes or abandons its sweep
	// between posts.
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	for _, closeFn := range s.closers {
		if err := closeFn(); err != nil {
			log.Printf("error closing classifier client: %v", err)
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Printf("error closing sql DB: %v", cerr)
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			log.Printf("error closing redis: %v", rerr)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}
