package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/udisondev/c3go/internal/config"
	"github.com/udisondev/c3go/internal/protocol"
)

// Server accepts lobby connections and runs one Session per client.
type Server struct {
	cfg   config.Config
	reg   Registry
	pool  *BytePool
	limit *floodLimiter

	listener net.Listener
	mu       sync.Mutex
}

// NewServer wires the accept loop to the given lobby registry.
func NewServer(cfg config.Config, reg Registry) *Server {
	return &Server{
		cfg:   cfg,
		reg:   reg,
		pool:  NewBytePool(protocol.MaxPacketSize),
		limit: newFloodLimiter(cfg.FloodProtection),
	}
}

// Addr returns the bound listen address, nil before Run.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Close shuts the listener down.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}

// Run listens on the configured address and serves until ctx is
// cancelled.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.BindAddress, s.cfg.Port)
	ln, err := net.Listen("tcp4", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	return s.Serve(ctx, ln)
}

// Serve runs the accept loop over an injected listener. Split out of
// Run so tests can pass a 127.0.0.1:0 listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		slog.Info("lobby server started", "address", ln.Addr())
		s.acceptLoop(ctx, &wg, ln)
	}()
	wg.Wait()
	return nil
}

func (s *Server) acceptLoop(ctx context.Context, wg *sync.WaitGroup, ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			slog.Error("failed to accept connection", "error", err)
			continue
		}

		host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
		if err != nil {
			host = conn.RemoteAddr().String()
		}
		if !s.limit.admit(host) {
			slog.Warn("connection rejected by flood protection", "remote", host)
			conn.Close()
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer s.limit.release(host)
			s.handleConnection(ctx, conn)
		}()
	}
}

func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	done := make(chan struct{})
	defer close(done)
	defer conn.Close()

	// unblock the framed read when the process shuts down
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	if t := s.cfg.ReadIdleTimeoutDuration(); t > 0 {
		conn = &idleConn{Conn: conn, timeout: t}
	}

	sess := NewSession(conn, s.pool, s.cfg.SendQueueSize, s.cfg.WriteTimeoutDuration())
	if err := sess.Run(ctx, s.reg, s.pool); err != nil {
		slog.Warn("session ended with error", "remote", sess.Address(), "error", err)
	}
}

// idleConn arms a read deadline before every read so a silent client
// cannot hold a session slot forever.
type idleConn struct {
	net.Conn
	timeout time.Duration
}

func (c *idleConn) Read(b []byte) (int, error) {
	if err := c.Conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
		return 0, err
	}
	return c.Conn.Read(b)
}

// floodLimiter throttles the accept rate and caps concurrent
// connections per source address. Established sessions are never
// affected; only new connections pay.
type floodLimiter struct {
	enabled  bool
	limiter  *rate.Limiter
	maxPerIP int

	mu    sync.Mutex
	perIP map[string]int
}

func newFloodLimiter(cfg config.FloodProtection) *floodLimiter {
	return &floodLimiter{
		enabled:  cfg.Enabled,
		limiter:  rate.NewLimiter(rate.Limit(cfg.AcceptRate), cfg.AcceptBurst),
		maxPerIP: cfg.MaxConnectionsPerIP,
		perIP:    make(map[string]int),
	}
}

func (f *floodLimiter) admit(host string) bool {
	if !f.enabled {
		return true
	}
	if !f.limiter.Allow() {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.maxPerIP > 0 && f.perIP[host] >= f.maxPerIP {
		return false
	}
	f.perIP[host]++
	return true
}

func (f *floodLimiter) release(host string) {
	if !f.enabled {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.perIP[host] <= 1 {
		delete(f.perIP, host)
	} else {
		f.perIP[host]--
	}
}
