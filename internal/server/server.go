// Package server wires the Fiber application: middleware, routes, views and handlers.
package server

import (
	"context"
	"fmt"
	"time"

	"yatube/internal/cache"
	"yatube/internal/config"
	"yatube/internal/database"
	"yatube/internal/media"
	"yatube/internal/middleware"
	"yatube/internal/observability"
	"yatube/internal/repository"
	"yatube/internal/service"
	"yatube/web"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const serviceName = "yatube"

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	pageCache      cache.PageCache
	storage        *media.FileStorage

	postService    *service.PostService
	commentService *service.CommentService
	followService  *service.FollowService
	authService    *service.AuthService
}

// NewServer connects to the database and Redis and builds the server.
// Redis is optional: without it the page cache and rate limits stay in process.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	redisClient, err := cache.NewClient(context.Background(), cfg.RedisURL)
	if err != nil {
		observability.Logger.Warn("redis unavailable, continuing with in-process cache", "error", err)
		redisClient = nil
	}

	return NewServerWithDeps(cfg, db, redisClient, media.NewFileStorage(cfg.MediaRoot))
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, storage *media.FileStorage) (*Server, error) {
	if cfg == nil || db == nil || storage == nil {
		return nil, fmt.Errorf("server requires config, database and storage")
	}

	userRepo := repository.NewUserRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	followRepo := repository.NewFollowRepository(db)

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: observability.HTTPMetrics(serviceName),
		pageCache:      cache.NewPageCache(redisClient),
		storage:        storage,
	}
	s.postService = service.NewPostService(postRepo, groupRepo, storage, service.PostServiceConfig{
		PerPage:        cfg.PostsPerPage,
		MaxUploadBytes: cfg.MaxUploadBytes(),
	})
	s.commentService = service.NewCommentService(commentRepo, postRepo)
	s.followService = service.NewFollowService(followRepo, userRepo)
	s.authService = service.NewAuthService(userRepo)

	return s, nil
}

// PageCache exposes the index page cache so it can be cleared.
func (s *Server) PageCache() cache.PageCache {
	return s.pageCache
}

// App builds the Fiber application with views, middleware and routes.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "Yatube",
		Views:        web.NewEngine(),
		ViewsLayout:  web.BaseLayout,
		ErrorHandler: s.handleError,
		BodyLimit:    int(s.config.MaxUploadBytes()) + 1024*1024,
		UnescapePath: true,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())

	if s.config.TracingEnabled {
		app.Use(middleware.TracingMiddleware())
	}

	// Context Middleware to propagate Request ID and trace ID into the logger.
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(s.promMiddleware.Middleware)
	}

	app.Use(middleware.StructuredLogger())
	app.Use(helmet.New(helmet.Config{
		CrossOriginEmbedderPolicy: "unsafe-none",
	}))

	app.Use(middleware.Session(s.config.JWTSecret, s.authService))

	if s.config.CSRFEnabled {
		app.Use(csrf.New(csrf.Config{
			KeyLookup:      "form:_csrf",
			CookieName:     "csrftoken",
			CookieSameSite: "Lax",
			CookieHTTPOnly: true,
			CookieSecure:   s.config.IsProduction(),
			Expiration:     12 * time.Hour,
			ContextKey:     "csrf",
			ErrorHandler:   s.csrfFailure,
		}))
	}
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	app.Use("/media", filesystem.New(filesystem.Config{
		Root:   s.storage.HTTPFileSystem(),
		MaxAge: 3600,
	}))

	app.Get("/", s.cachePage(s.Index))
	app.Get("/group/:slug/", s.GroupPosts)

	app.Get("/profile/:username/", s.Profile)
	app.Post("/profile/:username/follow/", middleware.LoginRequired, s.ProfileFollow)
	app.Post("/profile/:username/unfollow/", middleware.LoginRequired, s.ProfileUnfollow)
	app.Get("/follow/", middleware.LoginRequired, s.FollowIndex)

	createLimit := middleware.RateLimit(s.redis, 10, time.Minute, "create_post")
	commentLimit := middleware.RateLimit(s.redis, 20, time.Minute, "create_comment")

	app.Get("/create/", middleware.LoginRequired, s.PostCreate)
	app.Post("/create/", middleware.LoginRequired, createLimit, s.PostCreate)
	app.Get("/posts/:id/", s.PostDetail)
	app.Post("/posts/:id/", middleware.LoginRequired, commentLimit, s.AddComment)
	app.Get("/posts/:id/edit/", middleware.LoginRequired, s.PostEdit)
	app.Post("/posts/:id/edit/", middleware.LoginRequired, s.PostEdit)
	app.Post("/posts/:id/comment/", middleware.LoginRequired, commentLimit, s.AddComment)

	auth := app.Group("/auth")
	auth.Get("/signup/", s.SignupPage)
	auth.Post("/signup/", middleware.RateLimit(s.redis, 5, 10*time.Minute, "signup"), s.Signup)
	auth.Get("/login/", s.LoginPage)
	auth.Post("/login/", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)
	auth.Get("/logout/", s.Logout)
	auth.Post("/logout/", s.Logout)
	auth.Get("/password_change/", middleware.LoginRequired, s.PasswordChange)
	auth.Post("/password_change/", middleware.LoginRequired, middleware.RateLimit(s.redis, 5, 10*time.Minute, "password_change"), s.PasswordChange)
	auth.Get("/password_change/done/", middleware.LoginRequired, s.PasswordChangeDone)
}

// Start builds the app and listens on the configured port.
func (s *Server) Start() error {
	app := s.App()
	observability.Logger.Info("server starting", "port", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			observability.Logger.Error("error shutting down HTTP server", "error", err)
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			observability.Logger.Error("error closing sql DB", "error", cerr)
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			observability.Logger.Error("error closing redis", "error", rerr)
		}
	}

	observability.Logger.Info("server shutdown complete")
	return nil
}
