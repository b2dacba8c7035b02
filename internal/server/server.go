package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/netutil"
	"golang.org/x/sys/unix"

	"github.com/Brownie44l1/tinyserver/internal/cgi"
	"github.com/Brownie44l1/tinyserver/internal/resource"
)

var ErrServerClosed = errors.New("server closed")

const maxAcceptDelay = time.Second

type Server struct {
	cfg      Config
	resolver *resource.Resolver
	runner   *cgi.Runner
	metrics  *Metrics
	Logger   zerolog.Logger

	mu       sync.Mutex
	listener net.Listener
	closed   atomic.Bool
	workers  sync.WaitGroup

	// baseCtx bounds every CGI program; cancelled by Close.
	baseCtx context.Context
	cancel  context.CancelFunc
}

func New(cfg Config, logger zerolog.Logger) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		cfg:      cfg,
		resolver: resource.NewResolver(cfg.Root, cfg.DefaultDocument, cfg.DynamicMarker),
		runner:   cgi.NewRunner(cfg.CGITimeout, logger.With().Str("component", "cgi").Logger()),
		metrics:  NewMetrics(),
		Logger:   logger,
		baseCtx:  ctx,
		cancel:   cancel,
	}
}

// Listen binds the configured address.
func (s *Server) Listen() (net.Listener, error) {
	lc := net.ListenConfig{Control: reuseAddr}
	ln, err := lc.Listen(context.Background(), "tcp", s.cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	return ln, nil
}

func reuseAddr(network, address string, c syscall.RawConn) error {
	var serr error
	err := c.Control(func(fd uintptr) {
		serr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	})
	if err != nil {
		return err
	}
	return serr
}

func (s *Server) ListenAndServe() error {
	ln, err := s.Listen()
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln and hands each to its own worker
// goroutine. It never waits for a worker. Transient accept failures are
// logged and retried with backoff; it returns ErrServerClosed after
// Shutdown or Close.
func (s *Server) Serve(ln net.Listener) error {
	if s.cfg.MaxConns > 0 {
		ln = netutil.LimitListener(ln, s.cfg.MaxConns)
	}

	s.mu.Lock()
	if s.closed.Load() {
		s.mu.Unlock()
		ln.Close()
		return ErrServerClosed
	}
	s.listener = ln
	s.mu.Unlock()

	s.Logger.Info().
		Str("addr", ln.Addr().String()).
		Str("root", s.cfg.Root).
		Int("max_conns", s.cfg.MaxConns).
		Msg("server listening")

	var delay time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.closed.Load() {
				return ErrServerClosed
			}
			if isTemporary(err) {
				if delay == 0 {
					delay = 5 * time.Millisecond
				} else {
					delay *= 2
				}
				if delay > maxAcceptDelay {
					delay = maxAcceptDelay
				}
				s.Logger.Warn().Err(err).Dur("retry_in", delay).Msg("accept failed")
				time.Sleep(delay)
				continue
			}
			return fmt.Errorf("accept: %w", err)
		}
		delay = 0

		// closed and Add are ordered under mu so Shutdown never waits on a
		// group that can still grow
		s.mu.Lock()
		if s.closed.Load() {
			s.mu.Unlock()
			conn.Close()
			return ErrServerClosed
		}
		s.workers.Add(1)
		s.mu.Unlock()

		go s.serveConn(conn)
	}
}

// isTemporary reports accept errors that say nothing about the listener
// itself: a peer that aborted before accept, descriptor or memory
// exhaustion, signals.
func isTemporary(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	for _, errno := range []error{unix.ECONNABORTED, unix.EINTR, unix.EMFILE, unix.ENFILE, unix.ENOBUFS, unix.ENOMEM, unix.EPROTO} {
		if errors.Is(err, errno) {
			return true
		}
	}
	return false
}

// Addr returns the listener address, or nil before Serve.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Shutdown stops accepting and waits for in-flight connections. If ctx
// expires first the remaining CGI programs are killed and ctx.Err() is
// returned.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.closeListener()

	done := make(chan struct{})
	go func() {
		s.workers.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.cancel()
		return err
	case <-ctx.Done():
		killed := s.runner.Reaper().KillAll()
		s.cancel()
		s.Logger.Warn().Int("killed", killed).Msg("shutdown deadline reached")
		return ctx.Err()
	}
}

// Close stops accepting and kills running CGI programs without waiting.
func (s *Server) Close() error {
	err := s.closeListener()
	s.cancel()
	return err
}

func (s *Server) closeListener() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed.Store(true)
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}

// Stats returns a snapshot of the server metrics.
func (s *Server) Stats() MetricsSnapshot {
	return s.metrics.Snapshot()
}

// RunningPrograms returns the number of CGI programs not yet reaped.
func (s *Server) RunningPrograms() int {
	return s.runner.Reaper().Active()
}
