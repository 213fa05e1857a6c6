package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/custodia-labs/influmetrics-core/internal/core/ports/driving"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to the Pinger interface
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error {
	return f(ctx)
}

// Observer records served requests. Implemented by the telemetry adapter.
type Observer interface {
	ObserveHTTP(method, route string, status int, elapsed time.Duration)
	Handler() http.Handler
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	handler    http.Handler
	version    string
	logger     *slog.Logger

	// Services
	authService       driving.AuthService
	connectionService driving.ConnectionService
	metricsService    driving.MetricsService

	// Browser flow
	frontendURL     string
	allowedOrigins  []string
	cookieSecure    bool
	pendingLoginTTL time.Duration

	// Infrastructure
	observer    Observer // optional
	db          Pinger
	redisClient Pinger // optional
}

// Config holds server configuration
type Config struct {
	Host            string
	Port            int
	Version         string
	FrontendURL     string        // Redirect base after the Instagram callback
	AllowedOrigins  []string      // CORS origins allowed to send credentials
	CookieSecure    bool          // Secure flag on the pending login cookie
	PendingLoginTTL time.Duration // MaxAge of the pending login cookie
	Logger          *slog.Logger
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:            "0.0.0.0",
		Port:            8080,
		Version:         "dev",
		FrontendURL:     "http://localhost:3000",
		AllowedOrigins:  []string{"http://localhost:3000"},
		PendingLoginTTL: 10 * time.Minute,
	}
}

// Services groups the driving ports served over HTTP
type Services struct {
	Auth       driving.AuthService
	Connection driving.ConnectionService
	Metrics    driving.MetricsService
}

// Infrastructure groups health checks and instrumentation
type Infrastructure struct {
	DB       Pinger
	Redis    Pinger   // can be nil
	Observer Observer // can be nil
}

// NewServer creates a new HTTP server
func NewServer(cfg Config, services Services, infra Infrastructure) *Server {
	s := &Server{
		router:            http.NewServeMux(),
		version:           cfg.Version,
		logger:            cfg.Logger,
		authService:       services.Auth,
		connectionService: services.Connection,
		metricsService:    services.Metrics,
		frontendURL:       cfg.FrontendURL,
		allowedOrigins:    cfg.AllowedOrigins,
		cookieSecure:      cfg.CookieSecure,
		pendingLoginTTL:   cfg.PendingLoginTTL,
		observer:          infra.Observer,
		db:                infra.DB,
		redisClient:       infra.Redis,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.pendingLoginTTL == 0 {
		s.pendingLoginTTL = 10 * time.Minute
	}

	s.setupRoutes()

	s.handler = NewRecoveryMiddleware(s.logger).Handler(
		NewLoggingMiddleware(s.logger, s.observer).Handler(
			NewCORSMiddleware(s.allowedOrigins).Handler(s.router)))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the router wrapped in the middleware chain
func (s *Server) Handler() http.Handler {
	return s.handler
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	authMiddleware := NewAuthMiddleware(s.authService)

	// Health endpoints (no auth)
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)
	s.router.HandleFunc("GET /swagger/doc.json", s.handleSwaggerDoc)
	if s.observer != nil {
		s.router.Handle("GET /internal/metrics", s.observer.Handler())
	}

	// Auth endpoints (public)
	s.router.HandleFunc("POST /api/v1/auth/register", s.handleRegister)
	s.router.HandleFunc("POST /api/v1/auth/login", s.handleLogin)
	s.router.HandleFunc("POST /api/v1/auth/refresh", s.handleRefresh)

	// Auth endpoints (authenticated)
	s.router.Handle("POST /api/v1/auth/logout",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleLogout)))
	s.router.Handle("GET /api/v1/me",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleGetMe)))

	// Instagram login flow. The callback is public: the provider redirects
	// the browser here without our bearer token.
	s.router.Handle("GET /api/v1/instagram/login/start",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleInstagramLoginStart)))
	s.router.HandleFunc("GET /api/v1/instagram/login/callback", s.handleInstagramCallback)

	// Instagram connection endpoints (authenticated)
	s.router.Handle("GET /api/v1/instagram/status",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleInstagramStatus)))
	s.router.Handle("POST /api/v1/instagram/disconnect",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleInstagramDisconnect)))
	s.router.Handle("POST /api/v1/instagram/refresh",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleInstagramRefresh)))
	s.router.Handle("GET /api/v1/instagram/metrics",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleInstagramMetrics)))
}

// Start runs the server until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting http server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("http server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
