package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/solvios/flashpool/internal/crypto"
	"github.com/solvios/flashpool/internal/domain"
	"github.com/solvios/flashpool/internal/server/handler"
	"github.com/solvios/flashpool/internal/server/middleware"
	"github.com/solvios/flashpool/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	// APITokens maps an identity name to its token digest. Empty disables
	// authentication.
	APITokens  map[string]string
	RateLimit  int // requests per RateWindow per client IP, 0 disables
	RateWindow time.Duration
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health *handler.HealthHandler
	Pools  *handler.PoolHandler
	Arb    *handler.ArbHandler
	Routes *handler.RouteHandler
	Events *handler.EventHandler
	Status *handler.StatusHandler
}

// Server is the headless HTTP + WebSocket API server for the pool system.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// It wires up middleware (CORS, logging, rate limiting, auth) and attaches
// the WebSocket hub. limiter may be nil to skip rate limiting.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, authority *crypto.TokenAuthority, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// --- Register routes ---

	// Health check (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Status summary.
	mux.HandleFunc("GET /api/status", handlers.Status.GetStatus)

	// Pool lifecycle and liquidity endpoints.
	mux.HandleFunc("GET /api/pools", handlers.Pools.ListPools)
	mux.HandleFunc("POST /api/pools", handlers.Pools.CreatePool)
	mux.HandleFunc("GET /api/pools/{id}", handlers.Pools.GetPool)
	mux.HandleFunc("GET /api/pools/{id}/health", handlers.Pools.GetPoolHealth)
	mux.HandleFunc("GET /api/pools/{id}/history", handlers.Pools.GetPoolHistory)
	mux.HandleFunc("POST /api/pools/{id}/deposit", handlers.Pools.Deposit)
	mux.HandleFunc("POST /api/pools/{id}/withdraw", handlers.Pools.Withdraw)
	mux.HandleFunc("POST /api/pools/{id}/pause", handlers.Pools.Pause)
	mux.HandleFunc("POST /api/pools/{id}/resume", handlers.Pools.Resume)

	// Venue route registry endpoints.
	mux.HandleFunc("GET /api/routes", handlers.Routes.ListRoutes)
	mux.HandleFunc("POST /api/routes", handlers.Routes.AddRoute)

	// Arbitrage endpoints.
	mux.HandleFunc("GET /api/arbitrage/opportunities", handlers.Arb.Opportunities)
	mux.HandleFunc("POST /api/arbitrage/submit", handlers.Arb.Submit)
	mux.HandleFunc("POST /api/arbitrage/batch", handlers.Arb.SubmitBatch)
	mux.HandleFunc("GET /api/arbitrage/executions", handlers.Arb.ListExecutions)
	mux.HandleFunc("GET /api/arbitrage/executions/{id}", handlers.Arb.GetExecution)
	mux.HandleFunc("GET /api/arbitrage/executions/{id}/verify", handlers.Arb.VerifyExecution)
	mux.HandleFunc("GET /api/arbitrage/profit", handlers.Arb.GetProfit)

	// Event feed endpoints.
	mux.HandleFunc("GET /api/events", handlers.Events.ListEvents)
	mux.HandleFunc("GET /api/events/{pool}", handlers.Events.ListPoolEvents)

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain, innermost first.
	var h http.Handler = mux

	h = middleware.Auth(authority, cfg.APITokens)(h)

	if limiter != nil && cfg.RateLimit > 0 {
		window := cfg.RateWindow
		if window <= 0 {
			window = time.Minute
		}
		h = middleware.RateLimit(limiter, cfg.RateLimit, window)(h)
	}

	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

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
