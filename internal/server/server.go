// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer. It decides:
//   - which store backs the API (SQLite file or Postgres)
//   - which URL patterns map to which handler functions
//   - which routes sit behind RequireAuth
//   - how the server starts and stops
//
// DEPENDENCY INJECTION FLOW:
//
//	config.Config
//	  → repository.Store (sqlite.New | postgres.New)
//	  → auth.PasswordService, auth.TokenService
//	  → service.AuthService, service.TodoService
//	  → handler.AuthHandler, handler.TodoHandler
//
// Everything is assembled in New. No other package constructs its own
// dependencies.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sakif/todo-tracker/internal/auth"
	"github.com/sakif/todo-tracker/internal/config"
	"github.com/sakif/todo-tracker/internal/handler"
	"github.com/sakif/todo-tracker/internal/middleware"
	"github.com/sakif/todo-tracker/internal/repository"
	"github.com/sakif/todo-tracker/internal/repository/postgres"
	sqliteRepo "github.com/sakif/todo-tracker/internal/repository/sqlite"
	"github.com/sakif/todo-tracker/internal/service"
)

// shutdownTimeout is how long in-flight requests get after SIGINT/SIGTERM.
const shutdownTimeout = 30 * time.Second

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the store. Start closes it on the way out; tests that
// never call Start call Close themselves.
type Server struct {
	router *chi.Mux
	config config.Config
	logger *slog.Logger
	store  repository.Store
}

// New opens the configured store and wires the full dependency graph.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		store:  store,
	}

	if err := s.setupRoutes(); err != nil {
		store.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// openStore picks the repository implementation for DB_DRIVER. Both run
// their migrations before returning.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (repository.Store, error) {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		return postgres.New(ctx, cfg.DatabaseURL, logger)
	case config.DriverSQLite:
		return sqliteRepo.New(ctx, cfg.DBPath, logger)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	GET    /healthz                 → DB ping                    (public)
//	POST   /api/auth/register       → create account, get token  (public)
//	POST   /api/auth/login          → get token                  (public)
//	GET    /api/auth/profile        → caller's PublicUser        (bearer)
//	GET    /api/todo                → list caller's todos        (bearer)
//	POST   /api/todo                → create                     (bearer)
//	GET    /api/todo/{id}           → read one                   (bearer)
//	PUT    /api/todo/{id}           → replace fields             (bearer)
//	DELETE /api/todo/{id}           → delete                     (bearer)
//	PATCH  /api/todo/{id}/toggle    → flip completion            (bearer)
//
// MIDDLEWARE ORDER MATTERS:
//  1. RequestID (Logger and writeError read it)
//  2. RealIP
//  3. Logger
//  4. Recoverer (inside Logger, so a panic is still logged as a 500)
//  5. CORS (answers preflight before anything route-specific runs)
func (s *Server) setupRoutes() error {
	passwords, err := auth.NewPasswordService(s.config.BcryptCost)
	if err != nil {
		return err
	}
	tokens, err := auth.NewTokenService(auth.TokenConfig{
		Secret:   s.config.JWTSecret,
		Issuer:   s.config.JWTIssuer,
		Audience: s.config.JWTAudience,
		TTL:      s.config.TokenTTL,
	})
	if err != nil {
		return err
	}

	authService := service.NewAuthService(s.store.Users(), passwords, tokens, s.logger)
	todoService := service.NewTodoService(s.store.Todos(), s.logger)

	authHandler := handler.NewAuthHandler(authService, s.logger)
	todoHandler := handler.NewTodoHandler(todoService, s.logger)

	// === Global Middleware ===
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	s.router.Get("/healthz", handler.HandleHealth(s.store, s.logger))

	// === API Routes ===
	// r.Group shares a middleware stack without adding a path prefix, so
	// /api/auth/profile and /api/auth/login stay siblings even though only
	// one of them needs a token.
	s.router.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", authHandler.HandleRegister)
		r.Post("/auth/login", authHandler.HandleLogin)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens, s.logger))

			r.Get("/auth/profile", authHandler.HandleProfile)

			r.Route("/todo", func(r chi.Router) {
				r.Get("/", todoHandler.HandleList)
				r.Post("/", todoHandler.HandleCreate)
				r.Get("/{id}", todoHandler.HandleGet)
				r.Put("/{id}", todoHandler.HandleUpdate)
				r.Delete("/{id}", todoHandler.HandleDelete)
				r.Patch("/{id}/toggle", todoHandler.HandleToggle)
			})
		})
	})

	return nil
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the store.
func (s *Server) Close() error {
	return s.store.Close()
}

// Start serves HTTP until SIGINT/SIGTERM, then shuts down gracefully.
//
// GRACEFUL SHUTDOWN:
//  1. Stop accepting new connections
//  2. Wait up to 30s for in-flight requests
//  3. Close the store (flushes the SQLite WAL / returns pool connections)
func (s *Server) Start() error {
	defer s.store.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("dbDriver", s.config.DBDriver),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
