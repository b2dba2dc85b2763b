package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/c3go/internal/config"
	"github.com/udisondev/c3go/internal/protocol"
	"github.com/udisondev/c3go/internal/testutil"
)

func TestServer_ServeAcceptsAndStopsOnCancel(t *testing.T) {
	reg := &fakeRegistry{}
	srv := NewServer(config.Default(), reg)

	ln, addr := testutil.ListenTCP(t)
	ctx, cancel := testutil.ContextWithCancel(t)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = srv.Serve(ctx, ln)
	}()

	c := testutil.DialLobby(t, addr)
	c.Send(0x19a, 0, 0, func(p *protocol.Packet) {
		p.WriteString("1.0.0.7")
	})

	require.Eventually(t, func() bool {
		_, _, dispatched := reg.counts()
		return len(dispatched) == 1
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop on cancel")
	}

	_, disconnected, _ := reg.counts()
	assert.Equal(t, 1, disconnected)
}

func TestServer_SessionsSurviveEachOther(t *testing.T) {
	reg := &fakeRegistry{}
	srv := NewServer(config.Default(), reg)

	ln, addr := testutil.ListenTCP(t)
	ctx, cancel := testutil.ContextWithCancel(t)
	defer cancel()
	go func() { _ = srv.Serve(ctx, ln) }()

	c1 := testutil.DialLobby(t, addr)
	c2 := testutil.DialLobby(t, addr)

	c1.Close()
	c2.Send(0x1ad, 0, 0, nil)

	require.Eventually(t, func() bool {
		_, _, dispatched := reg.counts()
		return len(dispatched) == 1
	}, 5*time.Second, 10*time.Millisecond)
}

func TestFloodLimiter_PerIPCap(t *testing.T) {
	f := newFloodLimiter(config.FloodProtection{
		Enabled:             true,
		AcceptRate:          1000,
		AcceptBurst:         1000,
		MaxConnectionsPerIP: 2,
	})

	assert.True(t, f.admit("10.0.0.1"))
	assert.True(t, f.admit("10.0.0.1"))
	assert.False(t, f.admit("10.0.0.1"))
	// other addresses are unaffected
	assert.True(t, f.admit("10.0.0.2"))

	f.release("10.0.0.1")
	assert.True(t, f.admit("10.0.0.1"))
}

func TestFloodLimiter_AcceptRate(t *testing.T) {
	f := newFloodLimiter(config.FloodProtection{
		Enabled:             true,
		AcceptRate:          0, // burst only, no refill
		AcceptBurst:         1,
		MaxConnectionsPerIP: 100,
	})

	assert.True(t, f.admit("10.0.0.1"))
	assert.False(t, f.admit("10.0.0.2"))
}

func TestFloodLimiter_Disabled(t *testing.T) {
	f := newFloodLimiter(config.FloodProtection{Enabled: false})

	for n := 0; n < 100; n++ {
		assert.True(t, f.admit("10.0.0.1"))
	}
}
