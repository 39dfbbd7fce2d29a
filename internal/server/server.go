// Package server sets up the HTTP server, router, and all route definitions.
//
// New is the composition root. Everything is wired once, here:
//
//	config → sqlite.DB, storage.LocalStore, auth.TokenService
//	       → presence.Registry → service.MentionNotifier
//	       → services → handlers → chi routes
//
// Handlers only see services, and services only see repository interfaces.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sakif/photoshare/internal/auth"
	"github.com/sakif/photoshare/internal/config"
	"github.com/sakif/photoshare/internal/handler"
	"github.com/sakif/photoshare/internal/middleware"
	"github.com/sakif/photoshare/internal/presence"
	sqliteRepo "github.com/sakif/photoshare/internal/repository/sqlite"
	"github.com/sakif/photoshare/internal/service"
	"github.com/sakif/photoshare/internal/storage"
	"github.com/sakif/photoshare/internal/websocket"
)

// Server represents the HTTP server and all its dependencies.
//
// The Server owns the database connection and the presence registry. The
// connection is closed in Start once the HTTP server has drained.
type Server struct {
	router   *chi.Mux
	config   *config.Config
	logger   *slog.Logger
	db       *sqliteRepo.DB
	images   *storage.LocalStore
	tokens   *auth.TokenService
	registry *presence.Registry
}

// New opens the database and image store and wires every route.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	images, err := storage.NewLocalStore(cfg.Storage.ImageDir, cfg.Storage.ThumbnailDir, cfg.Storage.ThumbnailSize)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("opening image store: %w", err)
	}

	tokens, err := auth.NewTokenService(cfg.Security.JWTSecret, cfg.Security.TokenTTL)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating token service: %w", err)
	}

	s := &Server{
		router:   chi.NewRouter(),
		config:   cfg,
		logger:   logger,
		db:       db,
		images:   images,
		tokens:   tokens,
		registry: presence.NewRegistry(),
	}
	s.setupRoutes()

	return s, nil
}

// Handler returns the root router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all middleware and route handlers.
//
// Middleware order: RequestID, RealIP, Recoverer, request logging, CORS.
// Login and registration are additionally rate limited per client IP.
func (s *Server) setupRoutes() {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.Security.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	passwords := auth.NewPasswordService()
	notifier := service.NewMentionNotifier(s.db, s.db, s.registry, s.logger)

	authService := service.NewAuthService(s.db, s.tokens, passwords, s.logger)
	userService := service.NewUserService(s.db, s.db, s.images, passwords, s.logger)
	photoService := service.NewPhotoService(s.db, s.db, s.images, s.logger)
	commentService := service.NewCommentService(s.db, s.db, notifier, s.logger)
	favoriteService := service.NewFavoriteService(s.db, s.db, s.logger)

	var github *auth.GitHubProvider
	if gh := s.config.GitHub; gh.Enabled() {
		github = auth.NewGitHubProvider(gh.ClientID, gh.ClientSecret, gh.CallbackURL)
	} else {
		s.logger.Info("GitHub login disabled")
	}

	authHandler := handler.NewAuthHandler(authService, github, s.config.Security.CookieSecure, s.logger)
	userHandler := handler.NewUserHandler(userService, s.logger)
	photoHandler := handler.NewPhotoHandler(photoService, s.config.Storage.MaxUploadBytes, s.logger)
	commentHandler := handler.NewCommentHandler(commentService, s.logger)
	favoriteHandler := handler.NewFavoriteHandler(favoriteService, s.logger)
	wsHandler := websocket.NewHandler(s.registry, s.config.Security.CORSOrigins, s.config.Realtime.SendBuffer, s.logger)

	limiter := httprate.LimitByIP(s.config.Security.LoginRateLimit, s.config.Security.RateLimitWindow)

	// === Public ===
	s.router.Get("/healthz", s.handleHealth)
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.With(limiter).Post("/admin/login", authHandler.HandleLogin)
	s.router.With(limiter).Post("/user", userHandler.HandleRegister)
	s.router.With(auth.OptionalAuth(s.tokens)).Post("/admin/logout", authHandler.HandleLogout)

	if github != nil {
		s.router.Get("/auth/github/login", authHandler.HandleGitHubLogin)
		s.router.Get("/auth/github/callback", authHandler.HandleGitHubCallback)
	}

	// === Authenticated ===
	s.router.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(s.tokens))

		r.Get("/admin/currentUser", authHandler.HandleCurrentUser)

		r.Get("/user/list", userHandler.HandleList)
		r.Get("/user/{id}", userHandler.HandleGet)
		r.Get("/user/{id}/counts", userHandler.HandleCounts)
		r.Get("/user/{id}/comments", userHandler.HandleComments)
		r.Delete("/user/{id}", userHandler.HandleDelete)

		r.Get("/photosOfUser/{id}", photoHandler.HandleListByOwner)
		r.Get("/photosOfUser/{id}/{index}", photoHandler.HandleByIndex)
		r.Post("/photos/new", photoHandler.HandleUpload)
		r.Delete("/photos/{photoId}", photoHandler.HandleDelete)

		r.Post("/commentsOfPhoto/{photoId}", commentHandler.HandleAdd)
		r.Delete("/commentsOfPhoto/{photoId}/{commentId}", commentHandler.HandleDelete)

		r.Get("/favorites", favoriteHandler.HandleList)
		r.Post("/favorites", favoriteHandler.HandleAdd)
		r.Delete("/favorites/{photoId}", favoriteHandler.HandleRemove)
		r.Get("/favorites/check/{photoId}", favoriteHandler.HandleCheck)

		r.Handle("/ws", wsHandler)
	})

	// === Static Files ===
	s.router.Handle("/images/*", http.StripPrefix("/images/", http.FileServer(http.Dir(s.images.ImageDir()))))
	s.router.Handle("/thumbnails/*", http.StripPrefix("/thumbnails/", http.FileServer(http.Dir(s.images.ThumbnailDir()))))
	if dir := s.config.Storage.StaticDir; dir != "" {
		s.router.Handle("/*", http.FileServer(http.Dir(dir)))
	}
}

// handleHealth reports whether the database answers.
//
// HTTP: GET /healthz
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status, body := http.StatusOK, map[string]any{
		"status":      "ok",
		"connections": s.registry.Connections(),
	}
	if err := s.db.Ping(); err != nil {
		s.logger.Error("health check failed", slog.String("error", err.Error()))
		status, body = http.StatusServiceUnavailable, map[string]any{"status": "unavailable"}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// Close releases the database connection. Start calls it on shutdown.
func (s *Server) Close() error {
	return s.db.Close()
}

// Start starts the HTTP server and blocks until SIGINT/SIGTERM or a listen
// error. On a signal, in-flight requests get ShutdownTimeout to finish and
// then the database is closed.
func (s *Server) Start() error {
	defer s.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  s.config.Server.IdleTimeout,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.String("addr", srv.Addr),
			slog.String("database", s.config.Database.Path),
			slog.String("images", s.images.ImageDir()),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
