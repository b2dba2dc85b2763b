package lobby

import (
	"log/slog"

	"github.com/udisondev/c3go/internal/protocol"
)

// Target selects which sessions receive a composed packet.
type Target int

const (
	// Source sends back to the sender only.
	Source Target = iota
	// Id2 sends to the session named by the packet's id2 field.
	Id2
	// Everyone sends to every registered client, sender included.
	Everyone
	// EveryoneButSource sends to every registered client except the sender.
	EveryoneButSource
	// RoomHost sends to the host of the sender's current room.
	RoomHost
	// EveryoneInRoom sends to every member of the sender's room.
	EveryoneInRoom
	// EveryoneInRoomButSource is EveryoneInRoom without the sender.
	EveryoneInRoomButSource
	// PropagateInRoom routes game data: the host reaches every other
	// member, a member reaches the host only.
	PropagateInRoom
)

// send copies the sealed packet once into a fresh slice and queues that
// same slice into every target session. Each session drains its queue
// strictly FIFO, so per-recipient order follows enqueue order; the slice
// is immutable from here on and lives until the last queue drops it.
//
// A missing recipient only costs that one delivery: the lookup is
// logged and the rest of the fan-out proceeds.
func (l *Lobby) send(p *protocol.Packet, target Target) {
	if p.SendSize() == 0 {
		slog.Warn("dropping unsealed packet", "cmd", p.Cmd(), "source", p.Source())
		return
	}

	buf := make([]byte, p.SendSize())
	copy(buf, p.Bytes())
	srcID := p.Source()

	switch target {
	case Source:
		l.queueTo(srcID, p, buf)
	case Id2:
		l.queueTo(p.ID2(), p, buf)
	case Everyone:
		for _, c := range l.clients {
			l.queue(c, p, buf)
		}
	case EveryoneButSource:
		for id, c := range l.clients {
			if id == srcID {
				continue
			}
			l.queue(c, p, buf)
		}
	default:
		// room-scoped targets resolve through the sender's player
		pl, ok := l.players[srcID]
		if !ok || pl.Room() == nil {
			slog.Warn("room fan-out without a room", "cmd", p.Cmd(), "source", srcID)
			return
		}
		room := pl.Room()
		switch target {
		case RoomHost:
			l.queueTo(room.HostID(), p, buf)
		case EveryoneInRoom:
			for _, id := range room.Players() {
				l.queueTo(id, p, buf)
			}
		case EveryoneInRoomButSource:
			for _, id := range room.Players() {
				if id == srcID {
					continue
				}
				l.queueTo(id, p, buf)
			}
		case PropagateInRoom:
			if srcID == room.HostID() {
				for _, id := range room.Players() {
					if id == srcID {
						continue
					}
					l.queueTo(id, p, buf)
				}
			} else {
				l.queueTo(room.HostID(), p, buf)
			}
		}
	}
}

func (l *Lobby) queueTo(id uint32, p *protocol.Packet, buf []byte) {
	c, ok := l.clients[id]
	if !ok {
		slog.Warn("fan-out lookup failed", "cmd", p.Cmd(), "source", p.Source(), "target", id)
		return
	}
	l.queue(c, p, buf)
}

func (l *Lobby) queue(c Client, p *protocol.Packet, buf []byte) {
	slog.Debug("queueing packet", "cmd", p.Cmd(), "target", c.ID(), "bytes", len(buf))
	if err := c.QueueBuf(buf); err != nil {
		slog.Warn("queueing packet failed", "cmd", p.Cmd(), "target", c.ID(), "error", err)
	}
}
