package monitor

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vango-dev/loom/internal/errors"
	"github.com/vango-dev/loom/pkg/queue"
)

// Options configures a Server.
type Options struct {
	// Addr is the listen address used by Start.
	Addr string

	// Interval is how often stats are pushed to websocket clients.
	// Default: one second.
	Interval time.Duration

	// Gatherer backs /metrics. Default: prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Server exposes queue statistics over HTTP.
type Server struct {
	opts   Options
	logger *slog.Logger
	router chi.Router
	hub    *broadcaster

	mu       sync.Mutex
	queues   []*queue.Queue
	http     *http.Server
	listener net.Listener
	done     chan struct{}
}

// New creates a monitor over queues.
func New(opts Options, queues ...*queue.Queue) *Server {
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &Server{
		opts:   opts,
		logger: opts.Logger.With("component", "monitor"),
		queues: append([]*queue.Queue(nil), queues...),
	}
	s.hub = newBroadcaster(s.logger)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handleHealth)
	r.Get("/stats", s.handleStats)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	r.Get("/ws", func(w http.ResponseWriter, req *http.Request) {
		s.hub.handleWebSocket(w, req, s.message())
	})
	s.router = r

	return s
}

// Add registers another queue.
func (s *Server) Add(q *queue.Queue) {
	s.mu.Lock()
	s.queues = append(s.queues, q)
	s.mu.Unlock()
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Snapshot returns the current stats of every registered queue.
func (s *Server) Snapshot() []queue.Stats {
	s.mu.Lock()
	queues := append([]*queue.Queue(nil), s.queues...)
	s.mu.Unlock()

	stats := make([]queue.Stats, len(queues))
	for i, q := range queues {
		stats[i] = q.Stats()
	}
	return stats
}

func (s *Server) message() StatsMessage {
	return StatsMessage{Type: MessageStats, Time: time.Now(), Queues: s.Snapshot()}
}

// Publish pushes the current snapshot to websocket clients.
func (s *Server) Publish() {
	s.hub.broadcast(s.message())
}

// Clients returns the number of connected websocket clients.
func (s *Server) Clients() int {
	return s.hub.clientCount()
}

// Addr returns the bound address once Start is listening.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Start listens on Options.Addr and serves until ctx is done or Close is
// called. A listen failure is returned as E040.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return errors.New("E040").
			WithDetail("Cannot listen on " + s.opts.Addr).
			Wrap(err)
	}

	s.mu.Lock()
	s.listener = ln
	s.http = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.done = make(chan struct{})
	srv, done := s.http, s.done
	s.mu.Unlock()

	s.logger.Info("monitor listening", "addr", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Publish()
		case <-ctx.Done():
			s.Close()
			return <-errCh
		case <-done:
			return <-errCh
		case err := <-errCh:
			return err
		}
	}
}

// Close disconnects websocket clients and shuts the HTTP server down.
func (s *Server) Close() error {
	s.mu.Lock()
	srv, done := s.http, s.done
	s.http, s.done = nil, nil
	s.mu.Unlock()

	s.hub.close()
	if srv == nil {
		return nil
	}
	close(done)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.Snapshot()); err != nil {
		s.logger.Error("encode stats", "error", err)
	}
}
