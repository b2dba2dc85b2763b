package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/udisondev/c3go/internal/lobby"
	"github.com/udisondev/c3go/internal/protocol"
)

// Registry is the slice of the lobby a session talks to.
type Registry interface {
	Connect(ctx context.Context, c lobby.Client) (uint32, error)
	Dispatch(ctx context.Context, c lobby.Client) error
	Disconnect(ctx context.Context, c lobby.Client) error
}

const (
	defaultSendQueueSize = 256
	defaultWriteTimeout  = 5 * time.Second
)

// Session is the per-connection I/O machine. It frames inbound packets
// into a single reused 1 MiB buffer, hands them to the lobby one at a
// time, and drains an ordered queue of outbound slices through a
// dedicated writer goroutine.
type Session struct {
	conn net.Conn
	addr string
	id   uint32
	buf  []byte

	sendCh    chan []byte
	closeCh   chan struct{}
	closeOnce sync.Once

	writeTimeout time.Duration
}

// NewSession wraps an accepted connection. The receive buffer comes
// from pool and is returned by Run on exit.
func NewSession(conn net.Conn, pool *BytePool, sendQueueSize int, writeTimeout time.Duration) *Session {
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		host = conn.RemoteAddr().String()
	}
	if sendQueueSize <= 0 {
		sendQueueSize = defaultSendQueueSize
	}
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	return &Session{
		conn:         conn,
		addr:         host,
		buf:          pool.Get(protocol.MaxPacketSize),
		sendCh:       make(chan []byte, sendQueueSize),
		closeCh:      make(chan struct{}),
		writeTimeout: writeTimeout,
	}
}

// ID returns the lobby-issued session id.
func (s *Session) ID() uint32 { return s.id }

// SetID records the lobby-issued id. Called once, during Connect.
func (s *Session) SetID(id uint32) { s.id = id }

// Address returns the printable remote address.
func (s *Session) Address() string { return s.addr }

// Buf returns the session's receive buffer. The lobby borrows it for
// the duration of one dispatch to parse the frame and compose responses
// in place.
func (s *Session) Buf() []byte { return s.buf }

// QueueBuf appends an immutable outbound slice to the send queue.
// Non-blocking: a full queue means the client stopped reading, and a
// client that cannot keep up with a LAN lobby is gone anyway.
func (s *Session) QueueBuf(buf []byte) error {
	select {
	case s.sendCh <- buf:
		return nil
	case <-s.closeCh:
		return fmt.Errorf("session %d closed", s.id)
	default:
		slog.Warn("send queue full, disconnecting slow client", "remote", s.addr, "id", s.id)
		s.closeAsync()
		return fmt.Errorf("session %d send queue full", s.id)
	}
}

// Run registers the session with the lobby and frames packets until the
// peer goes away. It owns the whole session lifecycle: the write pump,
// the disconnect path and the buffer return all hang off it.
func (s *Session) Run(ctx context.Context, reg Registry, pool *BytePool) error {
	defer pool.Put(s.buf)
	defer s.Close()

	if _, err := reg.Connect(ctx, s); err != nil {
		return fmt.Errorf("registering session: %w", err)
	}
	defer func() {
		// disconnect with a fresh context: the lobby must still emit
		// leave notifications when Run exits due to cancellation
		dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := reg.Disconnect(dctx, s); err != nil {
			slog.Warn("deregistering session", "id", s.id, "error", err)
		}
	}()

	go s.writePump()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.closeCh:
			return nil
		default:
		}

		if _, err := protocol.ReadFrame(s.conn, s.buf); err != nil {
			switch {
			case errors.Is(err, io.EOF):
				// clean close between frames
			case errors.Is(err, net.ErrClosed):
			case errors.Is(err, protocol.ErrOversizePacket):
				slog.Error("dropping session", "remote", s.addr, "id", s.id, "error", err)
			default:
				slog.Warn("read failed", "remote", s.addr, "id", s.id, "error", err)
			}
			return nil
		}

		if err := reg.Dispatch(ctx, s); err != nil {
			return fmt.Errorf("dispatching packet: %w", err)
		}
	}
}

// writePump drains the send queue in FIFO order. Batches whatever has
// piled up into one writev call; the slices are shared with other
// sessions and must never be mutated or pooled.
func (s *Session) writePump() {
	bufs := make(net.Buffers, 0, 64)

	for {
		select {
		case pkt := <-s.sendCh:
			if err := s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout)); err != nil {
				slog.Warn("set write deadline failed", "remote", s.addr, "id", s.id, "error", err)
				s.closeAsync()
				return
			}

			queued := len(s.sendCh)
			if queued == 0 {
				if _, err := s.conn.Write(pkt); err != nil {
					slog.Warn("write failed", "remote", s.addr, "id", s.id, "error", err)
					s.closeAsync()
					return
				}
				continue
			}

			bufs = bufs[:0]
			bufs = append(bufs, pkt)
			for n := 0; n < queued; n++ {
				bufs = append(bufs, <-s.sendCh)
			}
			if _, err := bufs.WriteTo(s.conn); err != nil {
				slog.Warn("batch write failed", "remote", s.addr, "id", s.id, "error", err)
				s.closeAsync()
				return
			}

		case <-s.closeCh:
			return
		}
	}
}

func (s *Session) closeAsync() {
	s.closeOnce.Do(func() {
		close(s.closeCh)
		s.conn.Close()
	})
}

// Close stops the write pump and closes the connection. Safe to call
// multiple times.
func (s *Session) Close() error {
	s.closeAsync()
	return nil
}
