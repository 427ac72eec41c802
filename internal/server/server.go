package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"funds-ledger/internal/clock"
	"funds-ledger/internal/config"
	"funds-ledger/internal/handler"
	"funds-ledger/internal/journal"
	"funds-ledger/internal/ledger"
	"funds-ledger/internal/service"

	"github.com/gorilla/mux"
)

// Server wires the ledger core to its HTTP adapter and owns the background
// expiry sweeper.
type Server struct {
	router    *mux.Router
	server    *http.Server
	ledger    *ledger.Ledger
	sweeper   *ledger.Sweeper
	journal   *journal.Journal
	logger    *slog.Logger
	port      string
	stopSweep context.CancelFunc
}

// NewServer creates a server instance with a fresh in-memory ledger.
func NewServer(cfg *config.Config, logger *slog.Logger) *Server {
	jnl := journal.New(logger)
	led := ledger.New(clock.NewSystem(), jnl, logger, ledger.WithHoldTTL(cfg.HoldTTL))
	sweeper := ledger.NewSweeper(led, cfg.SweepInterval, logger)

	fundsService := service.NewFundsService(led, logger)

	accountHandler := handler.NewAccountHandler(fundsService)
	transactionHandler := handler.NewTransactionHandler(fundsService)

	router := mux.NewRouter()
	router.Use(loggingMiddleware(logger))

	router.HandleFunc("/transaction", transactionHandler.Create).Methods("POST")
	router.HandleFunc("/account/{account_id}", accountHandler.GetBalance).Methods("GET")

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}).Methods("GET")

	return &Server{
		router:  router,
		ledger:  led,
		sweeper: sweeper,
		journal: jnl,
		logger:  logger,
	}
}

// loggingMiddleware adds request logging
func loggingMiddleware(logger *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(ww, r)

			logger.Info("request completed",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.statusCode,
				"duration", time.Since(start),
			)
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start begins serving on the given port ("0" picks a free one) and starts
// the expiry sweeper. Returns the actual bound port.
func (s *Server) Start(port string) (string, error) {
	listener, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return "", err
	}

	addr := listener.Addr().(*net.TCPAddr)
	s.port = strconv.Itoa(addr.Port)

	s.server = &http.Server{
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	sweepCtx, cancel := context.WithCancel(context.Background())
	s.stopSweep = cancel
	go s.sweeper.Run(sweepCtx)

	if s.logger != nil {
		s.logger.Info("Starting server", "port", s.port)
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			if s.logger != nil {
				s.logger.Error("Server failed", "error", err)
			}
		}
	}()

	return s.port, nil
}

// Stop gracefully shuts down: the sweeper is cancelled, the gate stops
// admitting new operations, then the HTTP server drains.
func (s *Server) Stop(ctx context.Context) error {
	if s.logger != nil {
		s.logger.Info("Shutting down server")
	}

	if s.stopSweep != nil {
		s.stopSweep()
	}

	s.ledger.Close()

	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// GetPort returns the port the server is listening on
func (s *Server) GetPort() string {
	return s.port
}

// GetBaseURL returns the base URL for the server
func (s *Server) GetBaseURL() string {
	return "http://localhost:" + s.port
}

// GetRouter returns the router for testing purposes
func (s *Server) GetRouter() *mux.Router {
	return s.router
}

// Journal exposes the audit journal for tests and debugging tooling.
func (s *Server) Journal() *journal.Journal {
	return s.journal
}

// StartServer starts the server with the given configuration
func StartServer(cfg *config.Config) (*Server, string, error) {
	var logger *slog.Logger
	if cfg.ServerPort == "0" {
		// Test environment - keep output quiet
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	} else {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	}

	srv := NewServer(cfg, logger)

	port, err := srv.Start(cfg.ServerPort)
	if err != nil {
		return nil, "", err
	}

	return srv, port, nil
}
