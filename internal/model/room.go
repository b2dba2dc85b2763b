package model

import "slices"

// Room holds the data presented to lobby newcomers plus a hidden flag for
// started games, which must not appear in login rosters.
//
// Description syntax: "Roomname"\t"Password"\t[0|h]ClientBuild, for
// example `"2v2  0pt"\t""\t008C7`. Info syntax: %d|%d|%d|%d|%d|%d
// (joinable status, human players, ai players, closed slots, two unknown
// fields). Both strings are produced by the client and forwarded as is.
//
// Rooms are owned by the lobby goroutine; none of the methods lock.
type Room struct {
	hostID      uint32
	description string
	info        string
	players     []uint32
	hidden      bool
}

// NewRoom creates a visible room keyed by its host. The info string
// starts at "0" until the host pushes the first room update.
func NewRoom(hostID uint32, description string) *Room {
	return &Room{
		hostID:      hostID,
		description: description,
		info:        "0",
		players:     make([]uint32, 0, 8),
	}
}

// HostID returns the id of the hosting player.
func (r *Room) HostID() uint32 { return r.hostID }

// Description returns the immutable room description string.
func (r *Room) Description() string { return r.description }

// Info returns the latest room info string.
func (r *Room) Info() string { return r.info }

// SetInfo replaces the room info string.
func (r *Room) SetInfo(info string) { r.info = info }

// Players returns the member ids in join order, host first. The slice is
// live: copy it before any membership change.
func (r *Room) Players() []uint32 { return r.players }

// AddPlayer appends a member id. Called through Player.JoinRoom.
func (r *Room) AddPlayer(id uint32) {
	r.players = append(r.players, id)
}

// RemovePlayer deletes a member id, keeping join order for the rest.
func (r *Room) RemovePlayer(id uint32) {
	r.players = slices.DeleteFunc(r.players, func(p uint32) bool { return p == id })
}

// Hidden reports whether the room's game has started.
func (r *Room) Hidden() bool { return r.hidden }

// HideFromLobby marks the room's game as started so login rosters skip it.
// Players already in the lobby learn about it from the start notification.
func (r *Room) HideFromLobby() { r.hidden = true }
