package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/HobanSearch/Tonsurance-sub007/internal/domain"
	"github.com/HobanSearch/Tonsurance-sub007/internal/server/handler"
	"github.com/HobanSearch/Tonsurance-sub007/internal/server/middleware"
	"github.com/HobanSearch/Tonsurance-sub007/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port         int
	CORSOrigins  []string
	MaxBodyBytes int64

	AuthedPerWindow int
	AnonPerWindow   int
	Window          time.Duration
	EndpointLimits  map[string]int
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health  *handler.HealthHandler
	Quote   *handler.QuoteHandler
	Risk    *handler.RiskHandler
	Bridge  *handler.BridgeHandler
	Tranche *handler.TrancheHandler
	Policy  *handler.PolicyHandler
	Hedge   *handler.HedgeHandler
	Admin   *handler.AdminHandler
	Status  *handler.StatusHandler
}

// Server is the HTTP + WebSocket API server for the coordination plane.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// protectedRoutes lists the path spaces requiring an authenticated key. The
// admin space additionally requires the admin scope, enforced inside the auth
// middleware.
var protectedRoutes = []middleware.ProtectedRoute{
	{Prefix: "/api/v2/policies", Methods: []string{http.MethodPost}},
	{Prefix: "/api/v2/admin/"},
}

// NewServer registers all routes and builds the middleware chain: logging,
// size cap, auth, rate limit, CORS (outermost first).
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, resolver middleware.KeyResolver, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", handlers.Health.HealthCheck)
	mux.HandleFunc("GET /api/v2/status", handlers.Status.GetStatus)

	mux.HandleFunc("POST /api/v2/quote/multi-dimensional", handlers.Quote.Quote)

	mux.HandleFunc("GET /api/v2/risk/exposure", handlers.Risk.Exposure)
	mux.HandleFunc("GET /api/v2/risk/alerts", handlers.Risk.Alerts)

	mux.HandleFunc("GET /api/v2/bridge-health/{bridge_id}", handlers.Bridge.Health)
	mux.HandleFunc("GET /api/v2/tranches/apy", handlers.Tranche.APY)

	mux.HandleFunc("POST /api/v2/policies", handlers.Policy.Purchase)
	mux.HandleFunc("GET /api/v2/policies/{id}", handlers.Policy.Get)

	mux.HandleFunc("GET /api/v2/hedge/positions", handlers.Hedge.Positions)
	mux.HandleFunc("GET /api/v2/hedge/costs", handlers.Hedge.Costs)

	mux.HandleFunc("GET /api/v2/admin/keys", handlers.Admin.ListKeys)

	// Browser preflight for every route.
	mux.HandleFunc("OPTIONS /", middleware.Preflight)

	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	var h http.Handler = mux
	h = middleware.CORS(cfg.CORSOrigins)(h)
	h = middleware.RateLimit(limiter, middleware.RateLimitConfig{
		AuthedPerWindow: cfg.AuthedPerWindow,
		AnonPerWindow:   cfg.AnonPerWindow,
		Window:          cfg.Window,
		EndpointLimits:  cfg.EndpointLimits,
	})(h)
	h = middleware.Auth(resolver, protectedRoutes)(h)
	h = middleware.SizeCap(cfg.MaxBodyBytes)(h)
	h = middleware.Logging(logger)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
