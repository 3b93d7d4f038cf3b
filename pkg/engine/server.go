package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/getmockd/simulator/pkg/config"
	"github.com/getmockd/simulator/pkg/logging"
	"github.com/getmockd/simulator/pkg/metrics"
	"github.com/getmockd/simulator/pkg/rest"
	"github.com/getmockd/simulator/pkg/simulator"
	"github.com/getmockd/simulator/pkg/socket"
	"github.com/getmockd/simulator/pkg/ws"
)

// ErrServerRunning is returned by Start and Run on a running server.
var ErrServerRunning = errors.New("server is already running")

// Server runs the HTTP endpoints and the socket server of one simulator
// process.
type Server struct {
	cfg     *config.Config
	log     *slog.Logger
	metrics *metrics.Metrics

	rest   *rest.Simulator
	ws     *ws.Simulator
	socket *socket.Simulator

	handler      *Handler
	socketServer *socket.Server

	mu         sync.Mutex
	running    bool
	listener   net.Listener
	httpServer *http.Server
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithLogger sets the operational logger for the server and its simulators.
func WithLogger(log *slog.Logger) ServerOption {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// WithMetrics records on m instead of a registry created by the server.
func WithMetrics(m *metrics.Metrics) ServerOption {
	return func(s *Server) {
		s.metrics = m
	}
}

// NewServer creates a server for cfg. A nil cfg uses config.Default.
func NewServer(cfg *config.Config, opts ...ServerOption) *Server {
	if cfg == nil {
		cfg = config.Default()
	}
	s := &Server{
		cfg:    cfg,
		log:    logging.Nop(),
		rest:   rest.New(),
		ws:     ws.New(),
		socket: socket.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil && cfg.Metrics.Enabled {
		s.metrics = metrics.New()
	}

	s.rest.SetLogger(logging.Component(s.log, "rest"))
	s.ws.SetLogger(logging.Component(s.log, "ws"))
	s.socket.SetLogger(logging.Component(s.log, "socket"))

	s.handler = NewHandler(s.rest, s.ws, s.socket,
		WithHandlerLogger(logging.Component(s.log, "http")),
		WithHandlerMetrics(s.metrics),
		WithMaxBodySize(cfg.Server.MaxBodySize),
	)

	if cfg.Socket.Enabled {
		socketOpts := []socket.ServerOption{
			socket.WithLogger(logging.Component(s.log, "socket-server")),
			socket.WithMetrics(s.metrics),
			socket.WithReadBufferSize(cfg.Socket.ReadBufferSize),
		}
		if cfg.Socket.NoMatchResponse != "" {
			socketOpts = append(socketOpts, socket.WithNoMatchResponse(cfg.Socket.NoMatchResponse))
		}
		s.socketServer = socket.NewServer(s.socket, cfg.Socket.Addr(), socketOpts...)
	}

	s.log = logging.Component(s.log, "engine")
	return s
}

// Simulators returns the registries served by s.
func (s *Server) Simulators() simulator.Set {
	return simulator.Set{REST: s.rest, WS: s.ws, Socket: s.socket}
}

// REST returns the REST simulator.
func (s *Server) REST() *rest.Simulator { return s.rest }

// WS returns the WS simulator.
func (s *Server) WS() *ws.Simulator { return s.ws }

// Socket returns the socket simulator.
func (s *Server) Socket() *socket.Simulator { return s.socket }

// Metrics returns the metrics recorder, or nil when metrics are disabled.
func (s *Server) Metrics() *metrics.Metrics { return s.metrics }

// LoadFixtures sets up every entry of fixtures.
func (s *Server) LoadFixtures(ctx context.Context, fixtures []*config.Fixture) (int, error) {
	n, err := config.Apply(ctx, s.Simulators(), fixtures, s.log)
	s.handler.updateRegistered()
	if err != nil {
		return n, err
	}
	s.log.Info("fixtures loaded", "files", len(fixtures), "tests", n)
	return n, nil
}

// Handler returns the HTTP handler: the metrics endpoint and the health
// check, then the simulator endpoints for every other path.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	if s.metrics != nil {
		path := s.cfg.Metrics.Path
		if path == "" {
			path = config.DefaultMetricsPath
		}
		mux.Handle(path, s.metrics.Handler())
	}
	mux.HandleFunc(config.DefaultHealthPath, s.handler.ServeHealth)
	mux.Handle("/", s.handler)
	return mux
}

// Start binds both listeners and serves in the background. Use Stop to
// shut down.
func (s *Server) Start(ctx context.Context) error {
	srv, ln, err := s.listen(ctx)
	if err != nil {
		return err
	}
	go func() {
		if err := serve(srv, ln); err != nil {
			s.log.Error("HTTP server error", "error", err)
		}
	}()
	return nil
}

// Run binds both listeners and serves until ctx is done or the HTTP server
// fails, then shuts both down within the configured shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	srv, ln, err := s.listen(ctx)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return serve(srv, ln)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.Server.ShutdownTimeout)
		defer cancel()
		return s.Stop(shutdownCtx)
	})
	return g.Wait()
}

func (s *Server) listen(ctx context.Context) (*http.Server, net.Listener, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil, nil, ErrServerRunning
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.cfg.Server.Addr())
	if err != nil {
		return nil, nil, fmt.Errorf("http listen on %s: %w", s.cfg.Server.Addr(), err)
	}

	if s.socketServer != nil {
		if err := s.socketServer.Start(ctx); err != nil {
			_ = ln.Close()
			return nil, nil, err
		}
	}

	s.httpServer = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		ErrorLog:     slog.NewLogLogger(s.log.Handler(), slog.LevelWarn),
	}
	s.listener = ln
	s.running = true
	s.log.Info("HTTP server started", "addr", ln.Addr().String())
	return s.httpServer, ln, nil
}

func serve(srv *http.Server, ln net.Listener) error {
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the HTTP server and the socket server.
// Stopping a stopped server is a no-op.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	srv := s.httpServer
	s.mu.Unlock()

	var errs []error
	if err := srv.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if s.socketServer != nil {
		if err := s.socketServer.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	s.log.Info("server stopped")
	return errors.Join(errs...)
}

// IsRunning reports whether the server is serving.
func (s *Server) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Addr returns the bound HTTP address, or nil before the server started.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// SocketAddr returns the bound socket address, or nil when the socket server
// is disabled or not started.
func (s *Server) SocketAddr() net.Addr {
	if s.socketServer == nil {
		return nil
	}
	return s.socketServer.Addr()
}
