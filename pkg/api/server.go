package api

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/ludoengine/pkg/session"
)

// ServerConfig holds the server configuration.
type ServerConfig struct {
	Host            string        // Host to bind to (default "localhost")
	Port            int           // Port to listen on (default 8080)
	ReadTimeout     time.Duration // Read timeout (default 30s)
	WriteTimeout    time.Duration // Write timeout (default 30s, lifted for streams)
	IdleTimeout     time.Duration // Idle timeout (default 60s)
	MaxFastWorkers  int           // Concurrent room commands and hints (default 100)
	MaxSlowWorkers  int           // Concurrent simulations (default 4)
	SlowTimeout     time.Duration // Wait for a simulation slot (default 2m)
	CleanupInterval time.Duration // Stale room sweep period, 0 disables
	StaleAfter      time.Duration // Idle time before a room is swept (default 30m)
}

// DefaultConfig returns a ServerConfig with sensible defaults.
func DefaultConfig() ServerConfig {
	return ServerConfig{
		Host:            "localhost",
		Port:            8080,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		IdleTimeout:     60 * time.Second,
		MaxFastWorkers:  100,
		MaxSlowWorkers:  4,
		SlowTimeout:     2 * time.Minute,
		CleanupInterval: 5 * time.Minute,
		StaleAfter:      30 * time.Minute,
	}
}

// Server is the HTTP API server.
type Server struct {
	config   ServerConfig
	sessions *session.Manager
	hub      *Hub
	handlers *Handlers
	server   *http.Server
	pool     *WorkerPool
	version  string
	log      logrus.FieldLogger

	mu          sync.Mutex // guards server and cleanup start
	cleanupCtx  context.Context
	stopCleanup context.CancelFunc
	cleanupWG   sync.WaitGroup
}

// NewServer creates an API server over a session manager. hub should be
// the Notifier the manager publishes to.
func NewServer(sessions *session.Manager, hub *Hub, config ServerConfig, version string, log logrus.FieldLogger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	pool := NewWorkerPool(PoolConfig{
		MaxFastWorkers: config.MaxFastWorkers,
		MaxSlowWorkers: config.MaxSlowWorkers,
	})
	handlers := NewHandlers(sessions, hub, pool, log, version)
	if config.SlowTimeout > 0 {
		handlers.slowTimeout = config.SlowTimeout
	}
	if config.StaleAfter <= 0 {
		config.StaleAfter = DefaultConfig().StaleAfter
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		config:      config,
		sessions:    sessions,
		hub:         hub,
		handlers:    handlers,
		pool:        pool,
		version:     version,
		log:         log,
		cleanupCtx:  ctx,
		stopCleanup: cancel,
	}
}

// Pool returns the worker pool for monitoring.
func (s *Server) Pool() *WorkerPool {
	return s.pool
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.setupRoutes()
}

// corsMiddleware adds CORS headers for browser access.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response status. It passes Flush and Hijack
// through so streams and WebSocket upgrades keep working.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("hijacking not supported")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// loggingMiddleware logs every request with its status and duration.
func loggingMiddleware(log logrus.FieldLogger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start),
		}).Info("request")
	})
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", s.handlers.Health)

	// Rooms
	mux.HandleFunc("GET /api/rooms", s.handlers.ListRooms)
	mux.HandleFunc("POST /api/rooms", s.handlers.CreateRoom)
	mux.HandleFunc("GET /api/rooms/{id}", s.handlers.GetRoom)
	mux.HandleFunc("POST /api/rooms/{id}/join", s.handlers.JoinRoom)
	mux.HandleFunc("POST /api/rooms/{id}/bots", s.handlers.AddBot)
	mux.HandleFunc("POST /api/rooms/{id}/leave", s.handlers.LeaveRoom)
	mux.HandleFunc("POST /api/rooms/{id}/start", s.handlers.StartGame)

	// Play
	mux.HandleFunc("GET /api/rooms/{id}/state", s.handlers.State)
	mux.HandleFunc("POST /api/rooms/{id}/roll", s.handlers.Roll)
	mux.HandleFunc("POST /api/rooms/{id}/move", s.handlers.Move)
	mux.HandleFunc("GET /api/rooms/{id}/hint", s.handlers.Hint)
	mux.HandleFunc("GET /api/rooms/{id}/ws", s.handlers.WebSocket)

	// Analysis
	mux.HandleFunc("POST /api/review", s.handlers.Review)
	mux.HandleFunc("POST /api/simulate", s.handlers.Simulate)
	mux.HandleFunc("GET /api/simulate/stream", s.handlers.SimulateSSE)

	return corsMiddleware(loggingMiddleware(s.log, mux))
}

// Start starts the HTTP server and the stale room sweep. It blocks until
// the server stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	srv := &http.Server{
		Addr:         addr,
		Handler:      s.setupRoutes(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
	s.mu.Lock()
	s.server = srv
	s.startCleanup()
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{"addr": addr, "version": s.version}).Info("starting ludo server")
	return srv.ListenAndServe()
}

// startCleanup sweeps idle rooms every CleanupInterval. Callers hold mu.
func (s *Server) startCleanup() {
	if s.config.CleanupInterval <= 0 || s.sessions == nil || s.cleanupCtx.Err() != nil {
		return
	}
	ctx := s.cleanupCtx

	s.cleanupWG.Add(1)
	go func() {
		defer s.cleanupWG.Done()
		ticker := time.NewTicker(s.config.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_, err := s.sessions.CleanupStale(ctx, s.config.StaleAfter)
				if err != nil && !errors.Is(err, context.Canceled) {
					s.log.WithError(err).Warn("stale room cleanup failed")
				}
			}
		}
	}()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.stopCleanup()
	srv := s.server
	s.mu.Unlock()
	s.cleanupWG.Wait()

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// ListenAndServeWithGracefulShutdown starts the server and handles shutdown signals.
func (s *Server) ListenAndServeWithGracefulShutdown() error {
	errChan := make(chan error, 1)

	go func() {
		if err := s.Start(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-quit:
		s.log.WithField("signal", sig.String()).Info("shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.log.Info("server stopped gracefully")
	return nil
}
