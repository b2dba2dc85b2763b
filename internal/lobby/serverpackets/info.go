package serverpackets

import (
	"github.com/udisondev/c3go/internal/model"
	"github.com/udisondev/c3go/internal/protocol"
)

// PlayerInfo composes the 0x193 response to a peer-info request. The
// score string and the five score ints are always empty on a LAN server.
//
// Header: id1 = requested player's id, id2 = the requester's claimed id.
func PlayerInfo(p *protocol.Packet, pl *model.Player, requesterID uint32) error {
	p.SeekToStart()
	p.WriteInt(pl.ID())
	p.WriteByte(pl.Status())
	p.WriteString(pl.Name())
	p.WriteByte(0) // no ranked score string
	p.WriteInt(0)
	p.WriteInt(0)
	p.WriteInt(0)
	p.WriteInt(0)
	p.WriteInt(0)
	p.WriteString(pl.Props())
	return p.WriteHeader(protocol.RspPlayerInfo, pl.ID(), requesterID)
}

// VersionCheck composes the 0x1ae response echoing both version strings
// captured at login. Header: id1 = 0, id2 = the requester's id.
func VersionCheck(p *protocol.Packet, pl *model.Player) error {
	p.SeekToStart()
	p.WriteString(pl.Ver1())
	p.WriteString(pl.Ver2())
	p.WriteInt(0)
	return p.WriteHeader(protocol.RspVersionCheck, 0, pl.ID())
}
