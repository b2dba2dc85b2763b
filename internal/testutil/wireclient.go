package testutil

import (
	"net"
	"testing"
	"time"

	"github.com/udisondev/c3go/internal/protocol"
)

// WireClient speaks the real framed protocol over TCP, for e2e tests
// against a running server.
type WireClient struct {
	t    testing.TB
	conn net.Conn
	buf  []byte

	// ID is the session id the server issued, learned from the login
	// response header.
	ID uint32
}

// DialLobby connects to a lobby server and closes the connection at
// test cleanup.
func DialLobby(t testing.TB, addr string) *WireClient {
	t.Helper()

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dialing lobby %s: %v", addr, err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	return &WireClient{
		t:    t,
		conn: NewConnWithDeadline(conn, 5*time.Second),
		buf:  make([]byte, protocol.MaxPacketSize),
	}
}

// Close closes the connection immediately, simulating a disconnect.
func (c *WireClient) Close() {
	_ = c.conn.Close()
}

// Send composes and transmits one frame.
func (c *WireClient) Send(cmd uint16, id1, id2 uint32, payload func(p *protocol.Packet)) {
	c.t.Helper()

	out := make([]byte, protocol.MaxPacketSize)
	p := protocol.Parse(out, 0)
	p.SeekToStart()
	if payload != nil {
		payload(p)
	}
	if err := p.WriteHeader(cmd, id1, id2); err != nil {
		c.t.Fatalf("composing frame %#x: %v", cmd, err)
	}
	if _, err := c.conn.Write(p.Bytes()); err != nil {
		c.t.Fatalf("sending frame %#x: %v", cmd, err)
	}
}

// SendRaw transmits the bytes as is, for malformed-input tests.
func (c *WireClient) SendRaw(raw []byte) {
	c.t.Helper()
	if _, err := c.conn.Write(raw); err != nil {
		c.t.Fatalf("sending raw bytes: %v", err)
	}
}

// ReadPacket reads the next frame and returns its packet view. The view
// stays valid until the next read.
func (c *WireClient) ReadPacket() *protocol.Packet {
	c.t.Helper()

	if _, err := protocol.ReadFrame(c.conn, c.buf); err != nil {
		c.t.Fatalf("reading frame: %v", err)
	}
	return protocol.Parse(c.buf, 0)
}

// Expect reads frames until one carries the wanted command, failing the
// test when the connection stalls first. Frames with other commands are
// discarded, which keeps tests independent of unrelated broadcasts.
func (c *WireClient) Expect(cmd uint16) *protocol.Packet {
	c.t.Helper()

	for {
		p := c.ReadPacket()
		if p.Cmd() == cmd {
			return p
		}
	}
}

// ExpectClosed asserts the server drops the connection.
func (c *WireClient) ExpectClosed() {
	c.t.Helper()

	for {
		if _, err := protocol.ReadFrame(c.conn, c.buf); err != nil {
			return
		}
	}
}

// Login performs the 0x19a handshake and records the issued session id
// from the roster response. The 0x1a6 join broadcast stays in the
// stream; read it with ExpectJoined when a test cares.
func (c *WireClient) Login(name string) *protocol.Packet {
	c.t.Helper()

	c.Send(protocol.CmdLoginForm, 0, 0, func(p *protocol.Packet) {
		p.WriteString("1.0.0.7")
		p.WriteString("2.0.7")
		p.WriteString(name + "@lan")
		p.WriteString("hunter2")
		p.WriteString(name)
	})

	roster := c.Expect(protocol.RspLoginRoster)
	c.ID = roster.ID1()
	return roster
}

// ExpectJoined consumes the next 0x1a6 announcement and returns the
// announced nickname.
func (c *WireClient) ExpectJoined() (uint32, string) {
	c.t.Helper()

	p := c.Expect(protocol.NtfPlayerJoined)
	name := p.ReadString()
	if err := p.Err(); err != nil {
		c.t.Fatalf("parsing join notice: %v", err)
	}
	return p.ID1(), name
}
