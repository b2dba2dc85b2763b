package model

import "strings"

// Player status bytes as carried in rosters and status notifications.
const (
	StatusLobby      byte = 0x01
	StatusRoomMember byte = 0x03
	StatusRoomHost   byte = 0x05
	StatusGameMember byte = 0x0b
	StatusGameHost   byte = 0x0f
)

// DefaultProps is the properties string reported for every player until
// the client overrides it (purchase, dlc and hardware flags).
const DefaultProps = "pur|0|dlc|0|ram|4"

// Nickname rules enforced by the stock client's registration form.
const (
	MinNameLen = 4
	MaxNameLen = 16
)

const allowedNameChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789()+-_.[]"

// NormalizeName tailors free-form login input to the client's nickname
// rules: shorter input is right-padded with underscores, longer input is
// truncated to 16 bytes, and any byte outside the allowed set becomes an
// underscore.
func NormalizeName(name string) string {
	b := []byte(name)
	for len(b) < MinNameLen {
		b = append(b, '_')
	}
	if len(b) > MaxNameLen {
		b = b[:MaxNameLen]
	}
	for i, c := range b {
		if strings.IndexByte(allowedNameChars, c) < 0 {
			b[i] = '_'
		}
	}
	return string(b)
}

// Player holds the per-client data presented to newcomers and returned on
// info requests, plus the link to its current room.
//
// Players are owned by the lobby goroutine; none of the methods lock.
type Player struct {
	id   uint32
	name string

	// four-component version string (1.0.0.7), purpose unknown
	ver1 string
	// three-component version string (2.0.7), displayed in the game menu
	ver2 string

	props  string
	status byte
	room   *Room
}

// NewPlayer creates a lobby player in the default "in lobby" state.
// The name must already be normalized.
func NewPlayer(id uint32, name, ver1, ver2 string) *Player {
	return &Player{
		id:     id,
		name:   name,
		ver1:   ver1,
		ver2:   ver2,
		props:  DefaultProps,
		status: StatusLobby,
	}
}

// ID returns the immutable player id, equal to the session id.
func (p *Player) ID() uint32 { return p.id }

// Name returns the normalized nickname.
func (p *Player) Name() string { return p.name }

// Ver1 returns the four-component client version string.
func (p *Player) Ver1() string { return p.ver1 }

// Ver2 returns the three-component client version string.
func (p *Player) Ver2() string { return p.ver2 }

// Props returns the client properties string (pur|%d|dlc|%d|ram|%d form).
func (p *Player) Props() string { return p.props }

// SetProps replaces the client properties string.
func (p *Player) SetProps(props string) { p.props = props }

// Status returns the current status byte.
func (p *Player) Status() byte { return p.status }

// SetStatus overrides the status byte. Room transitions set it through
// JoinRoom and LeaveRoom instead.
func (p *Player) SetStatus(s byte) { p.status = s }

// Room returns the current room, or nil when the player is in the lobby.
func (p *Player) Room() *Room { return p.room }

// JoinRoom links the player to the room, registers it in the room member
// list and flips the status to host or member.
func (p *Player) JoinRoom(room *Room) {
	if room.HostID() == p.id {
		p.status = StatusRoomHost
	} else {
		p.status = StatusRoomMember
	}
	p.room = room
	room.AddPlayer(p.id)
}

// LeaveRoom drops the room link, removes the player from the room member
// list and resets the status to the lobby default. Safe to call for a
// player that is not in a room.
func (p *Player) LeaveRoom() {
	p.status = StatusLobby
	if p.room != nil {
		p.room.RemovePlayer(p.id)
		p.room = nil
	}
}
