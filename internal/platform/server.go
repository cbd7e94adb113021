package platform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"matchday/internal/cache"
	"matchday/internal/config"
	"matchday/internal/database"
	"matchday/internal/middleware"
	"matchday/internal/models"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers.
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc
	notifier       *Notifier
	hub            *Hub
	store          *Store
	avatars        *AvatarStore
}

// NewServer creates a new server instance with all dependencies.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	redisClient := cache.GetClient()

	return NewServerWithDeps(cfg, db, redisClient)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis and
// optionally performs explicit seeding.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	middleware.InitMiddleware(cfg)
	prom := middleware.InitMetrics("matchday-platform")

	avatars, err := NewAvatarStore(cfg.StorageDir)
	if err != nil {
		return nil, fmt.Errorf("avatar storage init failed: %w", err)
	}

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: prom,
		avatars:        avatars,
	}

	server.notifier = NewNotifier(redisClient)
	server.hub = NewHub()
	server.store = NewStore(db, server.notifier)

	return server, nil
}

// App builds the Fiber app with middleware and routes and returns it.
// Used by tests to drive handlers through app.Test.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}
	app := fiber.New(fiber.Config{
		AppName:   "Matchday Platform",
		BodyLimit: 4 * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fiberErr *fiber.Error
			if errors.As(err, &fiberErr) {
				return models.RespondWithError(c, fiberErr.Code, err)
			}
			log.Printf("Error: %v", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.app = app
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// SetupMiddleware configures middleware for the Fiber app.
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Context Middleware to propagate Request ID and User ID
	app.Use(middleware.ContextMiddleware())

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New())

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// Distributed tracing
	app.Use(middleware.TracingMiddleware())

	// CORS runs before middlewares that can short-circuit (e.g. limiter) so
	// browser clients still receive CORS headers on error responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Global rate limiting (300 requests per minute per IP). Collection reads
	// dominate traffic; mutation endpoints carry their own tighter limits.
	app.Use(limiter.New(limiter.Config{
		Max:        300,
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

// SetupRoutes configures all routes for the application.
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
		Title: "Matchday Platform Metrics Dashboard",
	}))

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/token", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "token"), s.Token)
	auth.Post("/signout", middleware.AuthRequired, s.Signout)

	// Admin routes; only admins create accounts
	admin := api.Group("/admin", middleware.AuthRequired, s.revocationGuard(), s.AdminRequired())
	admin.Post("/users", s.CreateUser)

	// Collection routes. Reads are public, writes require authentication.
	collections := api.Group("/collections")
	collections.Get("/:name", middleware.OptionalAuth, s.ListRecords)
	collections.Post("/:name", middleware.AuthRequired, s.revocationGuard(), middleware.RateLimit(
		s.redis, 30, time.Minute, "collection_write"), s.InsertRecord)
	collections.Patch("/:name/:id", middleware.AuthRequired, s.revocationGuard(), s.UpdateRecord)
	collections.Delete("/:name/:id", middleware.AuthRequired, s.revocationGuard(), s.DeleteRecord)

	// Object storage: avatar upload plus public serving
	api.Post("/storage/avatars", middleware.AuthRequired, s.revocationGuard(), middleware.RateLimit(
		s.redis, 5, 5*time.Minute, "avatar_upload"), s.UploadAvatar)
	app.Get("/storage/avatars/*", s.ServeAvatar)

	// Realtime websocket endpoint. Anonymous connections are allowed; the
	// handler upgrades only valid websocket requests.
	app.Get("/realtime", s.RealtimeUpgrade, s.RealtimeHandler())
}

// LivenessCheck handles liveness probe requests.
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests.
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

	// Redis is optional; the platform degrades to in-process fan-out.
	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// revocationGuard rejects tokens whose jti was blacklisted by signout. Must
// run after AuthRequired. Without Redis revoked tokens simply age out.
func (s *Server) revocationGuard() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if s.redis != nil {
			if jti, ok := c.Locals("jti").(string); ok && jti != "" {
				if n, err := s.redis.Exists(c.Context(), "blacklist:"+jti).Result(); err == nil && n > 0 {
					return models.RespondWithError(c, fiber.StatusUnauthorized,
						models.NewUnauthorizedError("Token has been revoked"))
				}
			}
		}
		return c.Next()
	}
}

// AdminRequired returns middleware that rejects non-admin users with 403.
// Must be placed after AuthRequired so that userID is available in locals.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, _ := c.Locals("userID").(string)

		admin, err := s.isAdminByUserID(c.Context(), userID)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusInternalServerError, err)
		}
		if !admin {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewUnauthorizedError("Admin access required"))
		}

		return c.Next()
	}
}

// isAdminByUserID resolves the caller's role, consulting the profile cache
// before the database.
func (s *Server) isAdminByUserID(ctx context.Context, userID string) (bool, error) {
	if userID == "" {
		return false, nil
	}

	if s.redis != nil {
		if raw, err := s.redis.Get(ctx, cache.ProfileKey(userID)).Result(); err == nil {
			var profile models.Profile
			if err := json.Unmarshal([]byte(raw), &profile); err == nil {
				return profile.IsAdmin(), nil
			}
		}
	}

	var profile models.Profile
	if err := s.db.WithContext(ctx).First(&profile, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}

	if s.redis != nil {
		if raw, err := json.Marshal(profile); err == nil {
			s.redis.Set(ctx, cache.ProfileKey(userID), raw, cache.ProfileTTL)
		}
	}

	return profile.IsAdmin(), nil
}

// Start starts the server.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	app := s.App()

	go func() {
		if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
			log.Printf("failed to start %s wiring: %v", s.hub.Name(), err)
		}
	}()

	log.Printf("Platform starting on port %s...", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	if err := s.hub.Shutdown(ctx); err != nil {
		log.Printf("error shutting down %s: %v", s.hub.Name(), err)
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

	log.Println("Platform shutdown complete")
	return nil
}
