// Package server contains the HTTP handlers and routing of the approvals API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "approvals/docs" // swagger docs
	"approvals/internal/bootstrap"
	"approvals/internal/config"
	"approvals/internal/featureflags"
	"approvals/internal/middleware"
	"approvals/internal/models"
	"approvals/internal/notifications"
	"approvals/internal/repository"
	"approvals/internal/service"
	"approvals/internal/workflow"

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

var (
	promOnce sync.Once
	prom     *fiberprometheus.FiberPrometheus
)

// httpMetrics returns the process-wide collector; prometheus rejects a second
// registration of the same metric names.
func httpMetrics() *fiberprometheus.FiberPrometheus {
	promOnce.Do(func() {
		prom = middleware.InitMetrics("approvals-api")
	})
	return prom
}

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	userRepo    repository.UserRepository
	requestRepo repository.RequestRepository
	budgetRepo  repository.BudgetRepository
	sopRepo     repository.SOPRepository
	auditRepo   repository.AuditRepository

	notifier     *notifications.Notifier
	featureFlags *featureflags.Manager
	tokens       *middleware.TokenManager
	rateLimiter  *middleware.RateLimiter
	resolver     *workflow.Resolver

	authService     *service.AuthService
	requestService  *service.RequestService
	approvalService *service.ApprovalService
}

// NewServer connects to the database and Redis and builds a server on top of them.
func NewServer(cfg *config.Config) (*Server, error) {
	db, redisClient, err := bootstrap.InitRuntime(cfg, bootstrap.Options{
		SeedReferenceData: cfg.SeedReferenceData,
	})
	if err != nil {
		return nil, fmt.Errorf("runtime init failed: %w", err)
	}
	return NewServerWithDeps(cfg, db, redisClient)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	rules := workflow.DefaultRules()
	if err := rules.Validate(); err != nil {
		return nil, fmt.Errorf("invalid workflow rules: %w", err)
	}

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: httpMetrics(),
		userRepo:       repository.NewUserRepository(db),
		requestRepo:    repository.NewRequestRepository(db),
		budgetRepo:     repository.NewBudgetRepository(db),
		sopRepo:        repository.NewSOPRepository(db),
		auditRepo:      repository.NewAuditRepository(db),
		notifier:       notifications.NewNotifier(redisClient),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
		tokens:         middleware.NewTokenManager(cfg.JWTSecret, time.Duration(cfg.JWTTTLHours)*time.Hour),
		rateLimiter:    middleware.NewRateLimiter(redisClient, middleware.RateLimitEnabled(cfg.Env)),
		resolver:       workflow.NewResolver(rules),
	}

	s.authService = service.NewAuthService(s.userRepo, s.tokens, redisClient)
	s.requestService = service.NewRequestService(s.requestRepo, s.sopRepo, s.auditRepo, s.resolver)
	s.approvalService = service.NewApprovalService(
		s.requestRepo, s.budgetRepo, s.auditRepo, s.resolver, s.featureFlags, cfg.FiscalYear,
	)

	return s, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so error responses still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))

	// Global per-IP limit; endpoint limits are layered on top in SetupRoutes.
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || !middleware.RateLimitEnabled(s.config.Env)
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
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Approvals API Metrics Dashboard",
	}))
	api.Get("/swagger/*", swagger.HandlerDefault)

	auth := api.Group("/auth")
	auth.Post("/login", s.rateLimiter.Handler("login", 10, 5*time.Minute, middleware.FailOpen), s.Login)

	protected := api.Group("", s.AuthRequired())
	protected.Post("/auth/logout", s.Logout)
	protected.Get("/auth/me", s.Me)

	requests := protected.Group("/requests")
	requests.Post("/",
		s.RequireRoles(workflow.RoleRequester),
		s.rateLimiter.Handler("create_request", 20, time.Minute, middleware.FailOpen),
		s.CreateRequest)
	requests.Get("/", s.ListRequests)
	// Specific /:id/:resource routes before the generic /:id routes.
	requests.Get("/:id/history", s.GetRequestHistory)
	requests.Get("/:id/actions", s.GetRequestActions)
	requests.Post("/:id/approve",
		s.rateLimiter.Handler("approve", 60, time.Minute, middleware.FailOpen),
		s.ApproveRequest)
	requests.Get("/:id", s.GetRequest)
	requests.Put("/:id", s.UpdateRequest)
	requests.Delete("/:id", s.DeleteRequest)

	protected.Get("/budgets", s.RequireRoles(approverRoles()...), s.GetBudgets)
	protected.Get("/sops", s.GetSOPs)
	protected.Get("/sops/:code", s.GetSOP)
	protected.Get("/workflow", s.GetWorkflow)

	admin := protected.Group("/admin", s.RequireRoles(workflow.RoleChairman))
	admin.Get("/feature-flags", s.GetFeatureFlags)
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
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if s.db == nil {
		dbStatus = "unavailable"
	} else if sqlDB, err := s.db.DB(); err != nil {
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

	// Redis only backs caching, revocation and notifications; the service keeps
	// working without it.
	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	} else if redisStatus != "healthy" {
		overallStatus = "degraded"
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

// AuthRequired returns the authentication middleware
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString, ok := middleware.BearerToken(c.Get("Authorization"))
		if !ok {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}

		claims, err := s.tokens.Parse(tokenString)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid or expired token"))
		}

		revoked, err := s.authService.IsRevoked(c.UserContext(), claims.JTI)
		if err != nil {
			middleware.Logger.WarnContext(c.UserContext(), "token revocation check failed",
				slog.String("error", err.Error()))
		}
		if revoked {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Token has been revoked"))
		}

		user, err := s.userRepo.GetByID(c.UserContext(), claims.UserID)
		if err != nil {
			if repository.IsNotFound(err) {
				return models.RespondWithError(c, fiber.StatusUnauthorized,
					models.NewUnauthorizedError("User no longer exists"))
			}
			return models.RespondWithAppError(c, models.NewInternalError(err))
		}
		if !user.IsActive || user.Role != claims.Role {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Token no longer matches the account"))
		}

		c.Locals("userID", claims.UserID)
		c.Locals("role", claims.Role)
		c.Locals("claims", claims)
		c.SetUserContext(middleware.WithIdentity(c.UserContext(), claims.UserID, string(claims.Role)))

		return c.Next()
	}
}

// RequireRoles returns middleware that rejects callers outside roles with 403.
// Must be placed after AuthRequired so that role is available in locals.
func (s *Server) RequireRoles(roles ...workflow.Role) fiber.Handler {
	allowed := make(map[workflow.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *fiber.Ctx) error {
		role, _ := c.Locals("role").(workflow.Role)
		if _, ok := allowed[role]; !ok {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Your role cannot access this resource"))
		}
		return c.Next()
	}
}

func approverRoles() []workflow.Role {
	var out []workflow.Role
	for _, r := range workflow.Roles() {
		if r != workflow.RoleRequester {
			out = append(out, r)
		}
	}
	return out
}

// NewApp returns a Fiber app whose error handler keeps the JSON error shape.
func NewApp() *fiber.App {
	return fiber.New(fiber.Config{
		AppName:   "Approvals API",
		BodyLimit: 4 * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
}

// Start builds the app, starts the event listener and serves on the configured port.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	app := NewApp()
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)

	if s.redis != nil {
		go func() {
			if err := s.notifier.Subscribe(s.shutdownCtx, s.logEvent); err != nil {
				middleware.Logger.Error("event subscription stopped", slog.String("error", err.Error()))
			}
		}()
	}

	middleware.Logger.Info("Server starting", slog.String("port", s.config.Port))
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if s.db != nil {
		if sqlDB, err := s.db.DB(); err == nil {
			if cerr := sqlDB.Close(); cerr != nil {
				middleware.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
			}
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	middleware.Logger.Info("Server shutdown complete")
	return nil
}
