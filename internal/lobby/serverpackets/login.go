// Package serverpackets composes the multi-field lobby responses and
// notifications in place, over the sender's session buffer. Every
// function seals the packet with WriteHeader; the caller only routes it.
package serverpackets

import (
	"github.com/udisondev/c3go/internal/model"
	"github.com/udisondev/c3go/internal/protocol"
)

// LoginRoster composes the 0x19b login response: the self block, every
// other player in the lobby, then every visible room. Rooms come in
// descending host-id order and list their members host-last, the order
// the stock client expects.
//
// Header: id1 = id2 = the new player's id.
func LoginRoster(p *protocol.Packet, self *model.Player, others []*model.Player, rooms []*model.Room) error {
	p.SeekToStart()

	// self block: nickname, empty score, zero score ints, props
	p.WriteByte(0)
	p.WriteString(self.Name())
	p.WriteByte(0)
	p.WriteInt(0)
	p.WriteInt(0)
	p.WriteInt(0)
	p.WriteInt(0)
	p.WriteInt(0)
	p.WriteString(self.Props())

	for _, pl := range others {
		p.WriteInt(pl.ID())
		p.WriteByte(pl.Status())
		p.WriteString(pl.Name())
		p.WriteByte(0) // empty score string
		p.WriteString(pl.Props())
	}
	p.WriteInt(0)

	for _, rm := range rooms {
		members := rm.Players()
		p.WriteInt(rm.HostID())
		p.WriteInt(8)
		p.WriteString(rm.Description())
		p.WriteString(rm.Info())
		p.WriteInt(0)
		p.WriteShort(0)
		p.WriteInt(uint32(len(members)))
		// members reversed, host last
		for i := len(members); i > 0; {
			i--
			p.WriteInt(members[i])
		}
	}
	p.WriteInt(0)

	return p.WriteHeader(protocol.RspLoginRoster, self.ID(), self.ID())
}

// PlayerJoined composes the 0x1a6 new-player announcement. The client
// needs to receive it for its own login too.
func PlayerJoined(p *protocol.Packet, pl *model.Player) error {
	p.SeekToStart()
	p.WriteString(pl.Name())
	p.WriteByte(0) // empty score string
	p.WriteString(pl.Props())
	p.WriteByte(pl.Status())
	return p.WriteHeader(protocol.NtfPlayerJoined, pl.ID(), 0)
}

// PlayerLeft composes the 0x1a7 departure notification: header only,
// id1 carries the leaving client's id.
func PlayerLeft(p *protocol.Packet, id uint32) error {
	p.SeekToStart()
	return p.WriteHeader(protocol.NtfPlayerLeft, id, 0)
}
