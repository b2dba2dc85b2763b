// Package e2e drives a real lobby server over TCP with wire-level
// clients, covering the full login, room and migration flows.
package e2e

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/c3go/internal/config"
	"github.com/udisondev/c3go/internal/lobby"
	"github.com/udisondev/c3go/internal/protocol"
	"github.com/udisondev/c3go/internal/server"
	"github.com/udisondev/c3go/internal/testutil"
)

// startServer boots a lobby and its TCP front end on an ephemeral port.
func startServer(t *testing.T) string {
	t.Helper()

	lb := lobby.New()
	srv := server.NewServer(config.Default(), lb)
	ln, addr := testutil.ListenTCP(t)
	ctx, cancel := testutil.ContextWithCancel(t)

	lobbyDone := make(chan struct{})
	serveDone := make(chan struct{})
	go func() {
		defer close(lobbyDone)
		_ = lb.Run(ctx)
	}()
	go func() {
		defer close(serveDone)
		_ = srv.Serve(ctx, ln)
	}()
	t.Cleanup(func() {
		cancel()
		<-serveDone
		<-lobbyDone
	})

	return addr
}

type rosterEntry struct {
	id   uint32
	name string
}

// parsePlayers consumes the self block and the player list of a 0x19b
// roster, leaving the cursor at the room list.
func parsePlayers(t *testing.T, p *protocol.Packet) []rosterEntry {
	t.Helper()

	p.ReadByte()
	p.ReadString() // own nickname
	p.ReadByte()
	for n := 0; n < 5; n++ {
		p.ReadInt()
	}
	p.ReadString() // own props

	var out []rosterEntry
	for {
		id := p.ReadInt()
		if id == 0 {
			break
		}
		e := rosterEntry{id: id}
		p.ReadByte() // status
		e.name = p.ReadString()
		p.ReadByte()
		p.ReadString() // props
		out = append(out, e)
	}
	require.NoError(t, p.Err())
	return out
}

// expectRoomJoined reads until the join notification for memberID. The
// same code also announces other members' joins, so the id matters.
func expectRoomJoined(t *testing.T, c *testutil.WireClient, memberID uint32) {
	t.Helper()
	for {
		if p := c.Expect(protocol.NtfRoomJoined); p.ID1() == memberID {
			return
		}
	}
}

// buildRoom makes host create a room and joins every member in turn,
// waiting for each notification so the server observes the same order.
func buildRoom(t *testing.T, host *testutil.WireClient, desc string, members ...*testutil.WireClient) {
	t.Helper()

	createRoom(host, desc)
	for _, m := range members {
		m.Expect(protocol.NtfRoomCreated)
		m.Send(protocol.CmdJoinRoom, m.ID, 0, func(p *protocol.Packet) { p.WriteInt(host.ID) })
		expectRoomJoined(t, m, m.ID)
	}
}

func createRoom(c *testutil.WireClient, desc string) {
	c.Send(protocol.CmdCreateRoom, c.ID, 0, func(p *protocol.Packet) {
		p.WriteInt(8)
		p.WriteByte(0)
		p.WriteString(desc)
		p.WriteString("0")
		p.WriteInt(0)
		p.WriteShort(0)
	})
}

func TestLoginFlow(t *testing.T) {
	addr := startServer(t)

	c1 := testutil.DialLobby(t, addr)
	roster := c1.Login("alice")
	assert.Equal(t, uint32(1), c1.ID)
	assert.Empty(t, parsePlayers(t, roster))

	id, name := c1.ExpectJoined()
	assert.Equal(t, uint32(1), id)
	assert.Equal(t, "alice", name)

	c2 := testutil.DialLobby(t, addr)
	roster = c2.Login("bob")
	assert.Equal(t, uint32(2), c2.ID)
	assert.Equal(t, []rosterEntry{{id: 1, name: "alice"}}, parsePlayers(t, roster))

	id, name = c2.ExpectJoined()
	assert.Equal(t, uint32(2), id)
	assert.Equal(t, "bob", name)

	// the older client hears about the newcomer too
	id, name = c1.ExpectJoined()
	assert.Equal(t, uint32(2), id)
	assert.Equal(t, "bob", name)
}

func TestCreateAndJoin(t *testing.T) {
	addr := startServer(t)

	c1 := testutil.DialLobby(t, addr)
	c1.Login("alice")
	c2 := testutil.DialLobby(t, addr)
	c2.Login("bob")

	createRoom(c1, `"r1"\t""\t008C7`)
	for _, c := range []*testutil.WireClient{c1, c2} {
		p := c.Expect(protocol.NtfRoomCreated)
		assert.Equal(t, uint32(1), p.ID1())
	}

	c2.Send(protocol.CmdJoinRoom, c2.ID, 0, func(p *protocol.Packet) { p.WriteInt(1) })
	for _, c := range []*testutil.WireClient{c1, c2} {
		p := c.Expect(protocol.NtfRoomJoined)
		assert.Equal(t, uint32(2), p.ID1())
		assert.Equal(t, uint32(1), p.ReadInt())
		assert.Equal(t, byte(0x03), p.ReadByte())
		require.NoError(t, p.Err())
	}
}

func TestStartGame(t *testing.T) {
	addr := startServer(t)

	c1 := testutil.DialLobby(t, addr)
	c1.Login("alice")
	c2 := testutil.DialLobby(t, addr)
	c2.Login("bob")

	buildRoom(t, c1, `"r1"\t""\t008C7`, c2)

	c1.Send(protocol.CmdStartGame, c1.ID, 0, nil)
	for _, c := range []*testutil.WireClient{c1, c2} {
		p := c.Expect(protocol.NtfGameStarted)
		assert.Equal(t, uint32(1), p.ID1())
		assert.Equal(t, uint32(2), p.ReadInt())
		assert.Equal(t, uint32(2), p.ReadInt())
		assert.Equal(t, byte(0x0b), p.ReadByte())
		assert.Equal(t, uint32(1), p.ReadInt())
		assert.Equal(t, byte(0x0f), p.ReadByte())
		require.NoError(t, p.Err())
	}

	// the running game is hidden from fresh rosters
	c3 := testutil.DialLobby(t, addr)
	roster := c3.Login("carol")
	parsePlayers(t, roster)
	assert.Equal(t, uint32(0), roster.ReadInt())
	require.NoError(t, roster.Err())
}

func TestHostMigrationOnDisconnect(t *testing.T) {
	addr := startServer(t)

	c1 := testutil.DialLobby(t, addr)
	c1.Login("alice")
	c2 := testutil.DialLobby(t, addr)
	c2.Login("bob")
	c3 := testutil.DialLobby(t, addr)
	c3.Login("carol")

	buildRoom(t, c1, `"r1"\t""\t008C7`, c2, c3)
	c1.Send(protocol.CmdStartGame, c1.ID, 0, nil)
	c2.Expect(protocol.NtfGameStarted)
	c3.Expect(protocol.NtfGameStarted)

	c1.Close()

	for _, c := range []*testutil.WireClient{c2, c3} {
		p := c.Expect(protocol.NtfRoomLeft)
		assert.Equal(t, uint32(1), p.ID1())
		assert.Equal(t, byte(1), p.ReadByte())
		assert.Equal(t, uint32(3), p.ReadInt())
		for _, want := range []uint32{1, 2, 3} {
			assert.Equal(t, want, p.ReadInt())
			assert.Equal(t, byte(0x01), p.ReadByte())
		}
		require.NoError(t, p.Err())
	}

	// the last member is promoted and receives the game dictionary
	snap := c3.Expect(protocol.NtfHostSnapshot)
	assert.Equal(t, uint32(3), snap.ID1())
	assert.Equal(t, uint32(3), snap.ID2())
	assert.Equal(t, snap.Size()-4, snap.ReadInt())
	snap.ReadInt()
	snap.ReadInt()
	snap.ReadByte()
	assert.Equal(t, uint32(6), snap.ReadInt())
	pairs := map[string]string{}
	for n := 0; n < 5; n++ {
		key := snap.ReadStringInt()
		pairs[key] = snap.ReadStringInt()
		snap.ReadInt()
	}
	assert.Equal(t, "3", pairs["master"])
	assert.Equal(t, "2", pairs["clients"])
	assert.Equal(t, `"r1"\t""\t008C7`, pairs["gamename"])
	assert.Equal(t, "clientslist", snap.ReadStringInt())
	snap.ReadInt()
	snap.ReadByte()
	assert.Equal(t, uint32(2), snap.ReadInt())
	assert.Equal(t, "*", snap.ReadStringInt())
	assert.Equal(t, "2", snap.ReadStringInt())
	assert.Equal(t, "*", snap.ReadStringInt())
	assert.Equal(t, "3", snap.ReadStringInt())
	require.NoError(t, snap.Err())

	// the surviving member gets pointed at the new host
	ptr := c2.Expect(protocol.NtfHostChanged)
	assert.Equal(t, uint32(3), ptr.ID1())
	assert.Equal(t, uint32(2), ptr.ID2())

	for _, c := range []*testutil.WireClient{c2, c3} {
		p := c.Expect(protocol.NtfPlayerLeft)
		assert.Equal(t, uint32(1), p.ID1())
	}
}

func TestOversizeHeaderDropsOnlyThatSession(t *testing.T) {
	addr := startServer(t)

	c1 := testutil.DialLobby(t, addr)
	c1.Login("alice")

	rogue := testutil.DialLobby(t, addr)
	header := make([]byte, protocol.HeaderSize)
	binary.LittleEndian.PutUint32(header, protocol.MaxPacketSize)
	rogue.SendRaw(header)
	rogue.ExpectClosed()

	// the healthy session keeps working
	c1.Send(protocol.CmdVersionCheck, c1.ID, 0, nil)
	p := c1.Expect(protocol.RspVersionCheck)
	assert.Equal(t, "1.0.0.7", p.ReadString())
	assert.Equal(t, "2.0.7", p.ReadString())
	require.NoError(t, p.Err())
}

func TestPropagateInRoom(t *testing.T) {
	addr := startServer(t)

	c1 := testutil.DialLobby(t, addr)
	c1.Login("alice")
	c2 := testutil.DialLobby(t, addr)
	c2.Login("bob")
	c3 := testutil.DialLobby(t, addr)
	c3.Login("carol")

	buildRoom(t, c1, `"r1"\t""\t008C7`, c2, c3)

	// member to host: only the host sees it
	c2.Send(protocol.CmdGameData, c2.ID, 0, func(p *protocol.Packet) { p.WriteInt(0xAAA) })
	p := c1.Expect(protocol.CmdGameData)
	assert.Equal(t, uint32(0xAAA), p.ReadInt())

	// host to members: both members see it, the host does not
	c1.Send(protocol.CmdGameData, c1.ID, 0, func(p *protocol.Packet) { p.WriteInt(0xBBB) })
	for _, c := range []*testutil.WireClient{c2, c3} {
		p := c.Expect(protocol.CmdGameData)
		assert.Equal(t, uint32(0xBBB), p.ReadInt(), "first game data seen must be the host's")
	}

	// a public chat line lands right behind: nothing else reached c1
	c3.Send(protocol.CmdLobbyMessage, c3.ID, 0, func(p *protocol.Packet) {
		p.WriteString("gg")
	})
	next := c1.ReadPacket()
	assert.Equal(t, uint16(protocol.NtfLobbyMessage), next.Cmd())
}
