package web

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"schedbot/internal/directory"
	"schedbot/internal/dispatch"
	"schedbot/internal/metrics"
	"schedbot/internal/queue"
	logx "schedbot/pkg/logx"
)

type Config struct {
	Addr            string
	Password        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	// RatePerSec limits form posts (POST / and /delete). Burst is 2x, min 1.
	RatePerSec float64
}

func (c Config) withDefaults() Config {
	if strings.TrimSpace(c.Addr) == "" {
		c.Addr = "0.0.0.0:5000"
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 5 * time.Second
	}
	if c.RatePerSec <= 0 {
		c.RatePerSec = 5
	}
	return c
}

// Queue is the subset of the store the web layer uses.
type Queue interface {
	Enqueue(ctx context.Context, it queue.Item) (int64, error)
	ListPending(ctx context.Context) ([]queue.Item, error)
	Delete(ctx context.Context, id int64) error
}

// Directory yields the current channel/role snapshot.
type Directory interface {
	Load() *directory.Snapshot
}

// TickStats is optional; it feeds the page footer.
type TickStats interface {
	Stats() dispatch.Stats
}

type Deps struct {
	Queue     Queue
	Directory Directory
	Defaults  queue.Defaults
	Ticks     TickStats
	Metrics   *metrics.Metrics
	Gatherer  prometheus.Gatherer
	// Status, when set, is served as JSON on GET /status.
	Status func() any
}

type Server struct {
	cfg  Config
	deps Deps
	log  logx.Logger

	limiter *rate.Limiter
	now     func() time.Time

	mu  sync.Mutex
	srv *http.Server
	ln  net.Listener
}

func New(cfg Config, deps Deps, log logx.Logger) *Server {
	cfg = cfg.withDefaults()
	if log.IsZero() {
		log = logx.Nop()
	}
	burst := max(1, int(cfg.RatePerSec*2))
	return &Server{
		cfg:     cfg,
		deps:    deps,
		log:     log,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), burst),
		now:     time.Now,
	}
}

// Handler wires the chi router with all middleware and routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(chimw.RequestSize(1 << 20))
	r.Use(RequestID)
	r.Use(requestLogger(s.log))

	r.Get("/healthz", s.healthz)
	if s.deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{}))
	}
	if s.deps.Status != nil {
		r.Get("/status", s.status)
	}

	r.Get("/", s.home)
	r.Group(func(r chi.Router) {
		r.Use(s.rateLimit)
		r.Post("/", s.submit)
		r.Post("/delete", s.cancel)
	})
	return r
}

// Start listens on cfg.Addr and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv != nil {
		return nil
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadTimeout:       s.cfg.ReadTimeout,
		ReadHeaderTimeout: s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}
	s.srv = srv
	s.ln = ln

	addr := ln.Addr().String()
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("http server error", logx.String("addr", addr), logx.Err(err))
		}
	}()
	s.log.Info("http server listening", logx.String("addr", addr))
	return nil
}

// Stop drains in-flight requests up to the configured shutdown timeout.
func (s *Server) Stop(ctx context.Context) {
	s.mu.Lock()
	srv := s.srv
	s.srv = nil
	s.ln = nil
	s.mu.Unlock()
	if srv == nil {
		return
	}

	sctx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.log.Warn("http shutdown error", logx.Err(err))
		_ = srv.Close()
		return
	}
	s.log.Info("http server stopped")
}

// Addr reports the actual listen address if running.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}
