package serverpackets

import "github.com/udisondev/c3go/internal/protocol"

// PlayerStatus is one (id, status byte) pair in room notifications.
type PlayerStatus struct {
	ID     uint32
	Status byte
}

// RoomCreated composes the 0x19d notification. The magic int from the
// create request is echoed verbatim; its meaning is unknown.
func RoomCreated(p *protocol.Packet, hostID uint32, desc, info string, magic uint32) error {
	p.SeekToStart()
	p.WriteByte(7)
	p.WriteInt(8)
	p.WriteString(desc)
	p.WriteString(info)
	p.WriteInt(magic)
	p.WriteShort(0)
	return p.WriteHeader(protocol.NtfRoomCreated, hostID, 0)
}

// RoomJoined composes the 0x19f notification: the joined room's host id
// and the joining player's new status byte.
func RoomJoined(p *protocol.Packet, memberID, hostID uint32, status byte) error {
	p.SeekToStart()
	p.WriteInt(hostID)
	p.WriteByte(status)
	return p.WriteHeader(protocol.NtfRoomJoined, memberID, 0)
}

// RoomLeft composes the 0x1a1 notification. A leaving host empties the
// whole room, so departed carries every member with its post-leave
// status; a plain leave or a kick carries exactly one pair.
func RoomLeft(p *protocol.Packet, leavingID uint32, hostLeaving bool, departed []PlayerStatus) error {
	p.SeekToStart()
	if hostLeaving {
		p.WriteByte(1)
	} else {
		p.WriteByte(0)
	}
	p.WriteInt(uint32(len(departed)))
	for _, ps := range departed {
		p.WriteInt(ps.ID)
		p.WriteByte(ps.Status)
	}
	return p.WriteHeader(protocol.NtfRoomLeft, leavingID, 0)
}

// GameStarted composes the 0x1a3 notification. Pairs must already be in
// reverse member order, host last.
func GameStarted(p *protocol.Packet, hostID uint32, pairs []PlayerStatus) error {
	p.SeekToStart()
	p.WriteInt(uint32(len(pairs)))
	for _, ps := range pairs {
		p.WriteInt(ps.ID)
		p.WriteByte(ps.Status)
	}
	return p.WriteHeader(protocol.NtfGameStarted, hostID, 0)
}

// RoomUpdated composes the 0x1a5 notification carrying the refreshed
// description and info. Pairs must already be in reverse member order.
func RoomUpdated(p *protocol.Packet, hostID uint32, desc, info string, pairs []PlayerStatus) error {
	p.SeekToStart()
	p.WriteInt(8)
	p.WriteString(desc)
	p.WriteString(info)
	p.WriteInt(0)
	p.WriteShort(0)
	p.WriteInt(uint32(len(pairs)))
	for _, ps := range pairs {
		p.WriteInt(ps.ID)
		p.WriteByte(ps.Status)
	}
	return p.WriteHeader(protocol.NtfRoomUpdated, hostID, 0)
}
