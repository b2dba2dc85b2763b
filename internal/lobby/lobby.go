// Package lobby owns the server state: the client, player and room
// registries, the command dispatcher and the fan-out router. All state
// lives behind a mailbox drained by a single goroutine, so dispatch of
// one packet always observes and mutates a consistent snapshot.
package lobby

import (
	"context"
	"log/slog"
	"slices"

	"github.com/udisondev/c3go/internal/model"
)

// Client is the session handle the lobby routes packets through. The
// receive buffer returned by Buf is borrowed for the duration of one
// dispatch: the lobby parses the inbound packet from it and composes
// responses into it in place.
type Client interface {
	ID() uint32
	SetID(id uint32)
	Address() string
	Buf() []byte
	QueueBuf(buf []byte) error
}

// Lobby is the registry, dispatcher and router for one server process.
// Zero value is not usable; construct with New.
type Lobby struct {
	mailbox chan func()

	// all maps are keyed by the session id issued at connect time and
	// touched only from the Run goroutine
	clients map[uint32]Client
	players map[uint32]*model.Player
	rooms   map[uint32]*model.Room

	lastIssuedID uint32
}

// New creates an empty lobby. Run must be started before any session
// calls Connect.
func New() *Lobby {
	return &Lobby{
		mailbox: make(chan func(), 128),
		clients: make(map[uint32]Client),
		players: make(map[uint32]*model.Player),
		rooms:   make(map[uint32]*model.Room),
	}
}

// Run drains the mailbox until ctx is cancelled. Sessions block inside
// Connect/Dispatch/Disconnect while their closure runs here.
func (l *Lobby) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case fn := <-l.mailbox:
			fn()
		}
	}
}

// do posts fn to the mailbox and waits for it to finish.
func (l *Lobby) do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	select {
	case l.mailbox <- func() {
		fn()
		close(done)
	}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Connect registers a new session and returns its issued id.
func (l *Lobby) Connect(ctx context.Context, c Client) (uint32, error) {
	var id uint32
	err := l.do(ctx, func() { id = l.connect(c) })
	return id, err
}

// Dispatch hands the session's receive buffer to the command dispatcher.
// The buffer must hold one complete inbound frame. Dispatch returns
// after every response has been composed and queued; only then may the
// session reuse the buffer for the next read.
func (l *Lobby) Dispatch(ctx context.Context, c Client) error {
	return l.do(ctx, func() { l.process(c) })
}

// Disconnect removes the session from the registries, synthesizes the
// leave-room flow when needed and announces the departure.
func (l *Lobby) Disconnect(ctx context.Context, c Client) error {
	return l.do(ctx, func() { l.disconnect(c) })
}

func (l *Lobby) connect(c Client) uint32 {
	// ids are never reused for the process lifetime; 0 means "none" in
	// packet headers
	l.lastIssuedID++
	id := l.lastIssuedID
	c.SetID(id)
	l.clients[id] = c
	slog.Info("client connected", "remote", c.Address(), "id", id)
	return id
}

// sortedPlayerIDs returns the registered player ids in ascending order,
// the order login rosters list them in.
func (l *Lobby) sortedPlayerIDs() []uint32 {
	ids := make([]uint32, 0, len(l.players))
	for id := range l.players {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// visibleRooms returns the non-hidden rooms in descending host-id
// order, the order login rosters list them in.
func (l *Lobby) visibleRooms() []*model.Room {
	ids := make([]uint32, 0, len(l.rooms))
	for id := range l.rooms {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	slices.Reverse(ids)
	rooms := make([]*model.Room, 0, len(ids))
	for _, id := range ids {
		if rm := l.rooms[id]; !rm.Hidden() {
			rooms = append(rooms, rm)
		}
	}
	return rooms
}

// PlayerEntry is one logged-in player in a lobby snapshot.
type PlayerEntry struct {
	ID     uint32 `json:"id"`
	Name   string `json:"name"`
	Status byte   `json:"status"`
	Room   uint32 `json:"room,omitempty"` // host id of the current room, 0 for none
}

// RoomEntry is one room in a lobby snapshot.
type RoomEntry struct {
	HostID      uint32   `json:"host_id"`
	Description string   `json:"description"`
	Info        string   `json:"info"`
	Hidden      bool     `json:"hidden"`
	Members     []uint32 `json:"members"`
}

// Snapshot is a read-only view of the lobby state for the status API.
type Snapshot struct {
	Clients int           `json:"clients"`
	Players []PlayerEntry `json:"players"`
	Rooms   []RoomEntry   `json:"rooms"`
}

// Snapshot captures the current registries through the mailbox, so it
// never observes a half-applied dispatch.
func (l *Lobby) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := l.do(ctx, func() { snap = l.snapshot() })
	return snap, err
}

func (l *Lobby) snapshot() Snapshot {
	snap := Snapshot{
		Clients: len(l.clients),
		Players: make([]PlayerEntry, 0, len(l.players)),
		Rooms:   make([]RoomEntry, 0, len(l.rooms)),
	}
	for _, id := range l.sortedPlayerIDs() {
		pl := l.players[id]
		entry := PlayerEntry{ID: id, Name: pl.Name(), Status: pl.Status()}
		if rm := pl.Room(); rm != nil {
			entry.Room = rm.HostID()
		}
		snap.Players = append(snap.Players, entry)
	}
	hostIDs := make([]uint32, 0, len(l.rooms))
	for id := range l.rooms {
		hostIDs = append(hostIDs, id)
	}
	slices.Sort(hostIDs)
	slices.Reverse(hostIDs)
	for _, id := range hostIDs {
		rm := l.rooms[id]
		snap.Rooms = append(snap.Rooms, RoomEntry{
			HostID:      rm.HostID(),
			Description: rm.Description(),
			Info:        rm.Info(),
			Hidden:      rm.Hidden(),
			Members:     slices.Clone(rm.Players()),
		})
	}
	return snap
}
