package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/vtree/pkg/middleware"
	"github.com/vango-dev/vtree/pkg/reconcile"
	"github.com/vango-dev/vtree/pkg/snapshot"
)

// Config holds server settings. Zero fields take the defaults below.
type Config struct {
	Addr            string
	ReadBufferSize  int
	WriteBufferSize int
	MaxBodyBytes    int64
	MaxMessageSize  int64
	ShutdownTimeout time.Duration
	BufferCapacity  int

	// PongWait is how long a WebSocket may stay silent before it is
	// dropped. Pings go out every PingInterval, which must be shorter.
	// Default: 60s, with pings at nine tenths of PongWait.
	PongWait     time.Duration
	PingInterval time.Duration

	// CheckOrigin validates WebSocket origins. Default: same host only.
	CheckOrigin func(r *http.Request) bool
}

// Defaults.
const (
	DefaultAddr            = ":8080"
	DefaultBufferSize      = 4096
	DefaultMaxBodyBytes    = 1 << 20
	DefaultMaxMessageSize  = 1 << 17
	DefaultShutdownTimeout = 10 * time.Second
	DefaultPongWait        = 60 * time.Second
)

func (c *Config) applyDefaults() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.ReadBufferSize == 0 {
		c.ReadBufferSize = DefaultBufferSize
	}
	if c.WriteBufferSize == 0 {
		c.WriteBufferSize = DefaultBufferSize
	}
	if c.MaxBodyBytes == 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = DefaultMaxMessageSize
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = DefaultShutdownTimeout
	}
	if c.PongWait == 0 {
		c.PongWait = DefaultPongWait
	}
	if c.PingInterval == 0 || c.PingInterval >= c.PongWait {
		c.PingInterval = c.PongWait * 9 / 10
	}
}

// Server routes HTTP requests and owns the per-connection hosts.
type Server struct {
	config     Config
	router     *chi.Mux
	upgrader   websocket.Upgrader
	logger     *slog.Logger
	store      snapshot.Store
	metrics    *middleware.Metrics
	gatherer   prometheus.Gatherer
	tracing    []middleware.OTelOption
	traced     bool
	middleware []reconcile.Middleware

	connSeq atomic.Uint64

	mu    sync.Mutex
	conns map[uint64]*websocket.Conn

	httpServer *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. Default: slog.Default() with component=server.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithStore lets hosts restore and save their trees. Each connection uses
// the key from its "session" query parameter; connections without one are
// not persisted.
func WithStore(store snapshot.Store) Option {
	return func(s *Server) {
		s.store = store
	}
}

// WithMetrics registers reconciliation metrics on reg and serves reg on
// /metrics.
func WithMetrics(reg *prometheus.Registry, opts ...middleware.MetricsOption) Option {
	return func(s *Server) {
		opts = append([]middleware.MetricsOption{middleware.WithRegistry(reg)}, opts...)
		s.metrics = middleware.NewMetrics(opts...)
		s.gatherer = reg
	}
}

// WithTracing opens an OpenTelemetry span for every host cycle.
func WithTracing(opts ...middleware.OTelOption) Option {
	return func(s *Server) {
		s.traced = true
		s.tracing = opts
	}
}

// WithMiddleware adds reconcile middleware to every host.
func WithMiddleware(mw ...reconcile.Middleware) Option {
	return func(s *Server) {
		s.middleware = append(s.middleware, mw...)
	}
}

// New creates a Server.
func New(config Config, opts ...Option) *Server {
	config.applyDefaults()
	s := &Server{
		config: config,
		logger: slog.Default().With("component", "server"),
		conns:  make(map[uint64]*websocket.Conn),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  config.ReadBufferSize,
		WriteBufferSize: config.WriteBufferSize,
		CheckOrigin:     config.CheckOrigin,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", s.handleHealth)
	if s.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	} else {
		r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(chimw.AllowContentType("application/json"))
		r.Use(s.limitBody)
		r.Post("/diff", s.handleDiff)
		r.Post("/render", s.handleRender)
	})

	r.Get("/ws", s.handleWebSocket)
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Connections returns the number of open WebSocket connections.
func (s *Server) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

func (s *Server) track(id uint64, conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[id] = conn
}

func (s *Server) untrack(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, id)
}

// closeConnections sends a going-away close to every open WebSocket.
// http.Server.Shutdown does not wait for hijacked connections.
func (s *Server) closeConnections() {
	s.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(s.conns))
	for _, c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
	for _, c := range conns {
		_ = c.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		_ = c.Close()
	}
}

// ListenAndServe serves on the configured address until ctx is done, then
// shuts down gracefully within the shutdown timeout.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", s.config.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.httpServer = &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "address", ln.Addr().String())
		errCh <- s.httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()
		err := s.httpServer.Shutdown(shutdownCtx)
		s.closeConnections()
		if err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
		s.logger.Info("server shutdown complete")
		return nil
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", chimw.GetReqID(r.Context()),
		)
	})
}

func (s *Server) limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes)
		next.ServeHTTP(w, r)
	})
}
