package lobby

import (
	"log/slog"
	"math/rand"
	"slices"
	"strconv"

	"github.com/udisondev/c3go/internal/lobby/serverpackets"
	"github.com/udisondev/c3go/internal/model"
	"github.com/udisondev/c3go/internal/protocol"
)

// process parses one inbound frame from the client's buffer and
// dispatches on the command code. Responses are composed in the same
// buffer, sealed and handed to the router before process returns.
func (l *Lobby) process(c Client) {
	p := protocol.Parse(c.Buf(), c.ID())
	if err := p.Err(); err != nil {
		slog.Warn("malformed packet header", "id", c.ID(), "error", err)
		return
	}

	slog.Debug("dispatching", "id", c.ID(), "cmd", p.Cmd(), "size", p.Size())

	switch p.Cmd() {
	// login sequence
	case protocol.CmdLoginForm:
		l.handleLogin(c, p)
	case protocol.CmdEmailForm:
		l.handleEmailForm(p)
	case protocol.CmdRegisterForm:
		// the LAN server accepts anyone, the form needs no answer

	// information exchange
	case protocol.CmdPlayerInfo:
		l.handlePlayerInfo(p)
	case protocol.CmdVersionCheck:
		l.handleVersionCheck(p)
	case protocol.CmdSetProperties:
		l.handleSetProperties(p)
	case protocol.CmdPlayerStatus:
		l.forward(p, protocol.NtfPlayerStatus, Everyone)
	case protocol.CmdUnknown1B7:
		// received from every client, purpose unknown, deliberately silent

	// room lifecycle
	case protocol.CmdCreateRoom:
		l.handleCreateRoom(p)
	case protocol.CmdJoinRoom:
		l.handleJoinRoom(p)
	case protocol.CmdLeaveRoom:
		l.handleLeaveRoom(p)
	case protocol.CmdStartGame:
		l.handleStartGame(p)
	case protocol.CmdRoomUpdate:
		l.handleRoomUpdate(p)
	case protocol.CmdKickPlayer:
		l.handleKick(p)
	case protocol.CmdRoomSettings:
		l.forward(p, protocol.NtfRoomSettings, EveryoneInRoom)
	case protocol.CmdLeaveGame:
		l.forward(p, protocol.CmdLeaveGame, Everyone)

	// messaging
	case protocol.CmdRoomMessage:
		l.forward(p, protocol.NtfRoomMessage, EveryoneInRoom)
	case protocol.CmdLobbyMessage:
		l.handleLobbyMessage(p)

	// room property forwards
	case protocol.CmdForwardRoomProps:
		l.forward(p, protocol.CmdForwardRoomProps, EveryoneButSource)
	case protocol.CmdForwardRoomPropsTo:
		l.forward(p, protocol.CmdForwardRoomPropsTo, Id2)

	// in-room status reports
	case protocol.CmdRoomStatusToHost, protocol.CmdRoomStatusUpdate:
		l.forward(p, p.Cmd(), RoomHost)
	case protocol.CmdRoomStatusEcho:
		l.forward(p, p.Cmd(), Source)

	// game data exchange
	case protocol.CmdGameData, protocol.CmdDataReceived:
		l.forward(p, p.Cmd(), PropagateInRoom)
	case protocol.CmdVarArray, protocol.CmdTransmissionEnd, protocol.CmdAllPlayersLoaded:
		l.forward(p, p.Cmd(), EveryoneInRoomButSource)
	case protocol.CmdHostTransmission:
		l.forward(p, p.Cmd(), RoomHost)

	default:
		slog.Debug("unknown command", "id", c.ID(), "cmd", p.Cmd(), "size", p.Size())
	}
}

// forward retags the inbound packet without touching the payload and
// routes it.
func (l *Lobby) forward(p *protocol.Packet, cmd uint16, target Target) {
	if err := p.KeepWholeMessage(cmd); err != nil {
		slog.Warn("forwarding failed", "cmd", p.Cmd(), "source", p.Source(), "error", err)
		return
	}
	l.send(p, target)
}

// player resolves the sender of a post-login command; a miss aborts
// the packet but keeps the session alive.
func (l *Lobby) player(p *protocol.Packet) *model.Player {
	pl, ok := l.players[p.Source()]
	if !ok {
		slog.Warn("command before login", "cmd", p.Cmd(), "source", p.Source())
		return nil
	}
	return pl
}

// handleLogin processes the 0x19a login form. The game-key field doubles
// as the nickname: it is the least restricted input of the form, which
// makes it the friendliest one to type a LAN name into.
func (l *Lobby) handleLogin(c Client, p *protocol.Packet) {
	ver1 := p.ReadString()
	ver2 := p.ReadString()
	p.Skip(int(p.ReadByte())) // email
	p.Skip(int(p.ReadByte())) // password
	name := p.ReadString()    // game key
	if err := p.Err(); err != nil {
		slog.Warn("malformed login form", "id", c.ID(), "error", err)
		return
	}

	pl := model.NewPlayer(c.ID(), model.NormalizeName(name), ver1, ver2)

	// the roster lists the players that were here first; the newcomer
	// learns about itself from the self block and the 0x1a6 broadcast
	others := make([]*model.Player, 0, len(l.players))
	for _, id := range l.sortedPlayerIDs() {
		others = append(others, l.players[id])
	}
	l.players[c.ID()] = pl

	slog.Info("player logged in", "id", pl.ID(), "name", pl.Name(), "version", pl.Ver2())

	if err := serverpackets.LoginRoster(p, pl, others, l.visibleRooms()); err != nil {
		slog.Warn("composing login roster", "id", c.ID(), "error", err)
		return
	}
	l.send(p, Source)

	if err := serverpackets.PlayerJoined(p, pl); err != nil {
		slog.Warn("composing join notice", "id", c.ID(), "error", err)
		return
	}
	l.send(p, Everyone)
}

// handleEmailForm answers the 0x1a8 probe: every email is "known" so the
// client proceeds straight to the login form.
func (l *Lobby) handleEmailForm(p *protocol.Packet) {
	p.SeekToEnd()
	p.WriteByte(1)
	if err := p.WriteHeader(protocol.RspEmailForm, 0, 0); err != nil {
		slog.Warn("composing email response", "source", p.Source(), "error", err)
		return
	}
	l.send(p, Source)
}

func (l *Lobby) handlePlayerInfo(p *protocol.Packet) {
	infoID := p.ReadInt()
	if err := p.Err(); err != nil {
		slog.Warn("malformed info request", "source", p.Source(), "error", err)
		return
	}
	pl, ok := l.players[infoID]
	if !ok {
		slog.Warn("info request for unknown player", "source", p.Source(), "requested", infoID)
		return
	}
	if err := serverpackets.PlayerInfo(p, pl, p.ID1()); err != nil {
		slog.Warn("composing player info", "source", p.Source(), "error", err)
		return
	}
	l.send(p, Source)
}

func (l *Lobby) handleVersionCheck(p *protocol.Packet) {
	pl := l.player(p)
	if pl == nil {
		return
	}
	if err := serverpackets.VersionCheck(p, pl); err != nil {
		slog.Warn("composing version response", "source", p.Source(), "error", err)
		return
	}
	l.send(p, Source)
}

// handleSetProperties stores the props string from the 0x1b3 form. The
// client shows stale statuses when the server echoes this one back, so
// it gets no response.
func (l *Lobby) handleSetProperties(p *protocol.Packet) {
	pl := l.player(p)
	if pl == nil {
		return
	}
	p.ReadString() // password
	p.ReadString() // nickname
	p.ReadString() // score
	props := p.ReadString()
	if err := p.Err(); err != nil {
		slog.Warn("malformed properties form", "source", p.Source(), "error", err)
		return
	}
	pl.SetProps(props)
}

func (l *Lobby) handleCreateRoom(p *protocol.Packet) {
	pl := l.player(p)
	if pl == nil {
		return
	}
	p.Skip(5)
	desc := p.ReadString()
	info := p.ReadString()
	magic := p.ReadInt()
	if err := p.Err(); err != nil {
		slog.Warn("malformed create room", "source", p.Source(), "error", err)
		return
	}

	// a second create from the same host replaces the first room; the
	// stale member list must not survive the swap
	if pl.Room() != nil {
		pl.LeaveRoom()
	}
	room := model.NewRoom(pl.ID(), desc)
	l.rooms[pl.ID()] = room
	pl.JoinRoom(room)

	slog.Info("room created", "host", pl.ID(), "description", desc)

	if err := serverpackets.RoomCreated(p, p.ID1(), desc, info, magic); err != nil {
		slog.Warn("composing room notice", "source", p.Source(), "error", err)
		return
	}
	l.send(p, Everyone)
}

func (l *Lobby) handleJoinRoom(p *protocol.Packet) {
	pl := l.player(p)
	if pl == nil {
		return
	}
	hostID := p.ReadInt()
	if err := p.Err(); err != nil {
		slog.Warn("malformed join room", "source", p.Source(), "error", err)
		return
	}
	room, ok := l.rooms[hostID]
	if !ok {
		slog.Warn("join to unknown room", "source", p.Source(), "host", hostID)
		return
	}
	pl.JoinRoom(room)

	slog.Info("player joined room", "id", pl.ID(), "host", hostID)

	if err := serverpackets.RoomJoined(p, p.ID1(), hostID, pl.Status()); err != nil {
		slog.Warn("composing join notice", "source", p.Source(), "error", err)
		return
	}
	l.send(p, Everyone)
}

// handleLeaveRoom covers the explicit 0x1a0 leave, the client-side
// follow-up to a kick, and the synthesized leave on disconnect. A
// leaving host dissolves the room; a leaving in-game host additionally
// promotes the last member and ships it the room snapshot.
func (l *Lobby) handleLeaveRoom(p *protocol.Packet) {
	pl := l.player(p)
	if pl == nil {
		return
	}
	room := pl.Room()
	if room == nil {
		// a dissolving room triggers 0x1a0 from every member; all but
		// the first arrive after the room link is gone
		return
	}

	roomID := room.HostID()
	members := slices.Clone(room.Players())
	status := pl.Status()

	hostLeaving := status == model.StatusRoomHost || status == model.StatusGameHost
	transferNeeded := status == model.StatusGameHost && len(members) > 1
	newHostID := members[len(members)-1]

	var departed []serverpackets.PlayerStatus
	if hostLeaving {
		departed = make([]serverpackets.PlayerStatus, 0, len(members))
		for _, id := range members {
			member, ok := l.players[id]
			if !ok {
				slog.Warn("room member missing from registry", "room", roomID, "id", id)
				continue
			}
			member.LeaveRoom()
			departed = append(departed, serverpackets.PlayerStatus{ID: id, Status: member.Status()})
		}
	} else {
		pl.LeaveRoom()
		departed = []serverpackets.PlayerStatus{{ID: pl.ID(), Status: pl.Status()}}
	}

	if err := serverpackets.RoomLeft(p, p.ID1(), hostLeaving, departed); err != nil {
		slog.Warn("composing leave notice", "source", p.Source(), "error", err)
		return
	}
	l.send(p, Everyone)

	if transferNeeded {
		slog.Info("migrating room host", "room", roomID, "new_host", newHostID)
		if err := serverpackets.HostSnapshot(p, room.Description(), room.Info(), newSessionNumber(), newHostID, members); err != nil {
			slog.Warn("composing host snapshot", "room", roomID, "error", err)
			return
		}
		l.send(p, Id2)

		for _, id := range members[1:] {
			if id == newHostID {
				continue
			}
			if err := serverpackets.HostChanged(p, newHostID, id); err != nil {
				slog.Warn("composing host pointer", "room", roomID, "error", err)
				return
			}
			l.send(p, Id2)
		}
	}

	if hostLeaving {
		// the new host re-registers the room with its next update
		delete(l.rooms, roomID)
		slog.Info("room closed", "room", roomID)
	}
}

// newSessionNumber picks a fresh 7-digit session id for a migrated
// game. The official server hands out unique decimals here; reusing
// one across migrations confuses the client.
func newSessionNumber() string {
	return strconv.Itoa(1_000_000 + rand.Intn(9_000_000))
}

func (l *Lobby) handleStartGame(p *protocol.Packet) {
	pl := l.player(p)
	if pl == nil {
		return
	}
	room := pl.Room()
	if room == nil {
		slog.Warn("game start without a room", "source", p.Source())
		return
	}
	room.HideFromLobby()

	members := room.Players()
	pairs := make([]serverpackets.PlayerStatus, 0, len(members))
	for i := len(members); i > 0; {
		i--
		id := members[i]
		member, ok := l.players[id]
		if !ok {
			slog.Warn("room member missing from registry", "room", room.HostID(), "id", id)
			continue
		}
		if id == pl.ID() {
			member.SetStatus(model.StatusGameHost)
		} else {
			member.SetStatus(model.StatusGameMember)
		}
		pairs = append(pairs, serverpackets.PlayerStatus{ID: id, Status: member.Status()})
	}

	slog.Info("game started", "room", room.HostID(), "players", len(pairs))

	if err := serverpackets.GameStarted(p, p.ID1(), pairs); err != nil {
		slog.Warn("composing start notice", "source", p.Source(), "error", err)
		return
	}
	l.send(p, Everyone)
}

func (l *Lobby) handleRoomUpdate(p *protocol.Packet) {
	pl := l.player(p)
	if pl == nil {
		return
	}
	desc := p.ReadString()
	info := p.ReadString()
	if err := p.Err(); err != nil {
		slog.Warn("malformed room update", "source", p.Source(), "error", err)
		return
	}
	room := pl.Room()
	if room == nil {
		slog.Warn("room update without a room", "source", p.Source())
		return
	}
	// the description is fixed at creation; only the info line follows
	// the host's slot changes
	room.SetInfo(info)

	members := room.Players()
	pairs := make([]serverpackets.PlayerStatus, 0, len(members))
	for i := len(members); i > 0; {
		i--
		id := members[i]
		member, ok := l.players[id]
		if !ok {
			slog.Warn("room member missing from registry", "room", room.HostID(), "id", id)
			continue
		}
		pairs = append(pairs, serverpackets.PlayerStatus{ID: id, Status: member.Status()})
	}

	if err := serverpackets.RoomUpdated(p, p.ID1(), desc, info, pairs); err != nil {
		slog.Warn("composing update notice", "source", p.Source(), "error", err)
		return
	}
	l.send(p, Everyone)
}

// handleKick forwards the host's 0x1b5 and tells the lobby the victim
// is back on its own. The kicked client answers with a normal 0x1a0,
// which drives the actual state cleanup.
func (l *Lobby) handleKick(p *protocol.Packet) {
	kickID := p.ReadInt()
	if err := p.Err(); err != nil {
		slog.Warn("malformed kick", "source", p.Source(), "error", err)
		return
	}

	if err := p.KeepWholeMessage(protocol.NtfPlayerKicked); err != nil {
		slog.Warn("forwarding kick", "source", p.Source(), "error", err)
		return
	}
	l.send(p, Everyone)

	departed := []serverpackets.PlayerStatus{{ID: kickID, Status: model.StatusLobby}}
	if err := serverpackets.RoomLeft(p, kickID, false, departed); err != nil {
		slog.Warn("composing kick notice", "source", p.Source(), "error", err)
		return
	}
	l.send(p, Everyone)
}

// handleLobbyMessage routes 0x196 chat by its header ids: a zero id2 is
// a public message, id1==id2 is a system echo, anything else is a
// private message delivered to both ends.
func (l *Lobby) handleLobbyMessage(p *protocol.Packet) {
	if err := p.KeepWholeMessage(protocol.NtfLobbyMessage); err != nil {
		slog.Warn("forwarding lobby message", "source", p.Source(), "error", err)
		return
	}
	switch {
	case p.ID2() == 0:
		l.send(p, Everyone)
	case p.ID1() == p.ID2():
		l.send(p, Source)
	default:
		l.send(p, Source)
		l.send(p, Id2)
	}
}

// disconnect tears a session down: the client entry goes first so the
// fan-outs below never target the dead socket, then a leave-room packet
// is synthesized in the session's own buffer so host migration and
// leave notices fire exactly as they would for a voluntary leave.
func (l *Lobby) disconnect(c Client) {
	id := c.ID()
	slog.Info("client disconnected", "remote", c.Address(), "id", id)
	delete(l.clients, id)

	pl, ok := l.players[id]
	if !ok {
		return
	}

	if pl.Room() != nil {
		p := protocol.Parse(c.Buf(), id)
		if err := p.WriteHeader(protocol.CmdLeaveRoom, id, 0); err != nil {
			slog.Warn("synthesizing leave packet", "id", id, "error", err)
		} else {
			l.process(c)
		}
	}

	delete(l.players, id)

	p := protocol.Parse(c.Buf(), id)
	if err := serverpackets.PlayerLeft(p, id); err != nil {
		slog.Warn("composing departure notice", "id", id, "error", err)
		return
	}
	l.send(p, Everyone)
}
