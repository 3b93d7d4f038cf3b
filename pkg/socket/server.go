package socket

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/getmockd/simulator/internal/id"
	"github.com/getmockd/simulator/pkg/logging"
	"github.com/getmockd/simulator/pkg/metrics"
	"github.com/getmockd/simulator/pkg/util"
)

const (
	// DefaultReadBufferSize bounds one read, and therefore one request.
	DefaultReadBufferSize = 1024

	// DefaultNoMatchResponse is written when no record matches a request.
	DefaultNoMatchResponse = "Failed to find matching testdata for the request"
)

// ErrServerRunning is returned by Start on a running server.
var ErrServerRunning = errors.New("socket server is already running")

// Server accepts TCP connections and answers each chunk read from a
// connection with the reply of the matching socket test record.
type Server struct {
	sim     *Simulator
	addr    string
	bufSize int
	noMatch string
	log     *slog.Logger
	metrics *metrics.Metrics

	mu       sync.Mutex
	running  bool
	listener net.Listener
	cancel   context.CancelFunc
	sessions map[string]net.Conn
	wg       sync.WaitGroup
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithLogger sets the operational logger for the server.
func WithLogger(log *slog.Logger) ServerOption {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// WithMetrics records sessions and executions on m.
func WithMetrics(m *metrics.Metrics) ServerOption {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithReadBufferSize sets the size of a single read.
func WithReadBufferSize(n int) ServerOption {
	return func(s *Server) {
		if n > 0 {
			s.bufSize = n
		}
	}
}

// WithNoMatchResponse sets the text written when no record matches.
func WithNoMatchResponse(text string) ServerOption {
	return func(s *Server) {
		s.noMatch = text
	}
}

// NewServer creates a server for sim that will listen on addr.
func NewServer(sim *Simulator, addr string, opts ...ServerOption) *Server {
	s := &Server{
		sim:     sim,
		addr:    addr,
		bufSize: DefaultReadBufferSize,
		noMatch: DefaultNoMatchResponse,
		log:     logging.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start binds the listener and starts accepting connections. A bind failure
// is returned to the caller; the server does not retry.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrServerRunning
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("socket listen on %s: %w", s.addr, err)
	}

	serveCtx, cancel := context.WithCancel(context.Background())
	s.listener = ln
	s.cancel = cancel
	s.sessions = make(map[string]net.Conn)
	s.running = true

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.acceptLoop(serveCtx, ln)
	}()

	s.log.Info("socket server started", "addr", ln.Addr().String())
	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// IsRunning reports whether the server is accepting connections.
func (s *Server) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Stop closes the listener and every open session, then waits for the accept
// loop and the sessions to exit or for ctx to be done.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.cancel()
	err := s.listener.Close()
	for _, conn := range s.sessions {
		_ = conn.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("socket server shutdown: %w", ctx.Err())
	}

	s.log.Info("socket server stopped")
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			s.log.Warn("socket accept failed", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(10 * time.Millisecond):
			}
			continue
		}

		sid := id.UUID()
		if !s.track(sid, conn) {
			_ = conn.Close()
			return
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.session(sid, conn)
		}()
	}
}

// track registers a session unless the server is stopping.
func (s *Server) track(sid string, conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return false
	}
	s.sessions[sid] = conn
	return true
}

func (s *Server) untrack(sid string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sid)
}

// session answers chunks read from conn until the peer closes its side, a
// matched record asks for the connection to be closed, or the server stops.
func (s *Server) session(sid string, conn net.Conn) {
	log := s.log.With("session", sid, "remote", conn.RemoteAddr().String())
	s.metrics.SessionOpened()
	defer func() {
		_ = conn.Close()
		s.untrack(sid)
		s.metrics.SessionClosed()
		log.Debug("session closed")
	}()
	log.Debug("session opened")

	buf := make([]byte, s.bufSize)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			closeAfter, werr := s.answer(conn, string(buf[:n]), log)
			if werr != nil {
				log.Warn("socket write failed", "error", werr)
				return
			}
			if closeAfter {
				if tc, ok := conn.(*net.TCPConn); ok {
					_ = tc.CloseWrite()
				}
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				log.Warn("socket read failed", "error", err)
			}
			return
		}
	}
}

func (s *Server) answer(conn net.Conn, request string, log *slog.Logger) (bool, error) {
	start := time.Now()
	reply, ok := s.sim.Match(request)
	response := reply.Response
	result := metrics.ResultMatch
	if !ok {
		log.Info("no matching testdata", "request", util.Printable(request, 0))
		response = s.noMatch
		result = metrics.ResultNoMatch
	}

	_, err := io.WriteString(conn, response)
	if err != nil {
		result = metrics.ResultError
	}
	s.metrics.Execution(metrics.ProtocolSocket, result, time.Since(start))
	return ok && reply.CloseAfterResponse, err
}
