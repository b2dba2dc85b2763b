package testutil

import (
	"fmt"

	"github.com/udisondev/c3go/internal/protocol"
)

// FakeClient is an in-memory session handle for lobby tests: it records
// queued outbound slices instead of writing a socket. It satisfies the
// lobby's Client interface without importing the lobby package.
type FakeClient struct {
	id   uint32
	addr string
	buf  []byte

	// Queued collects every slice the router delivered, in order.
	Queued [][]byte
	// FailQueue makes QueueBuf return an error, simulating a client
	// whose send queue overflowed.
	FailQueue bool
}

// NewFakeClient creates a client with its own full-size receive buffer.
func NewFakeClient(addr string) *FakeClient {
	return &FakeClient{
		addr: addr,
		buf:  make([]byte, protocol.MaxPacketSize),
	}
}

func (c *FakeClient) ID() uint32      { return c.id }
func (c *FakeClient) SetID(id uint32) { c.id = id }
func (c *FakeClient) Address() string { return c.addr }
func (c *FakeClient) Buf() []byte     { return c.buf }

func (c *FakeClient) QueueBuf(buf []byte) error {
	if c.FailQueue {
		return fmt.Errorf("fake client %d: queue full", c.id)
	}
	c.Queued = append(c.Queued, buf)
	return nil
}

// Compose writes an inbound frame into the client's receive buffer, as
// if the session's read loop had just framed it.
func (c *FakeClient) Compose(cmd uint16, id1, id2 uint32, payload func(p *protocol.Packet)) {
	p := protocol.Parse(c.buf, c.id)
	p.SeekToStart()
	if payload != nil {
		payload(p)
	}
	if err := p.WriteHeader(cmd, id1, id2); err != nil {
		panic(fmt.Sprintf("composing test frame %#x: %v", cmd, err))
	}
}

// Packets parses every queued slice and returns the packet views.
func (c *FakeClient) Packets() []*protocol.Packet {
	out := make([]*protocol.Packet, 0, len(c.Queued))
	for _, buf := range c.Queued {
		out = append(out, protocol.Parse(buf, 0))
	}
	return out
}

// LastPacket parses the most recently queued slice.
func (c *FakeClient) LastPacket() *protocol.Packet {
	if len(c.Queued) == 0 {
		return nil
	}
	return protocol.Parse(c.Queued[len(c.Queued)-1], 0)
}

// Reset drops all recorded deliveries.
func (c *FakeClient) Reset() {
	c.Queued = nil
}
