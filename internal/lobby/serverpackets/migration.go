package serverpackets

import (
	"strconv"

	"github.com/udisondev/c3go/internal/protocol"
)

// HostSnapshot composes the 0x1bd host-migration dictionary for the new
// host: a nested key/value payload carrying the room description, info,
// the new host id, a session number and the surviving member list.
// Members must be the pre-departure room order, old host first; the old
// host is skipped when listing clients.
//
// The first payload int is the byte length of everything after it. It
// is only known after WriteHeader, so it is backpatched into the sealed
// packet (WriteHeader leaves the cursor at the payload start).
//
// Header: id1 = id2 = the new host's id.
func HostSnapshot(p *protocol.Packet, desc, info, session string, newHostID uint32, members []uint32) error {
	p.SeekToStart()
	p.WriteInt(0) // length placeholder, backpatched below
	p.WriteInt(0)
	p.WriteInt(1)
	p.WriteByte(0)
	p.WriteInt(6) // key/value pair count

	writePair(p, "gamename", desc)
	writePair(p, "mapname", info)
	writePair(p, "master", strconv.FormatUint(uint64(newHostID), 10))
	writePair(p, "session", session)
	writePair(p, "clients", strconv.Itoa(len(members)-1))

	p.WriteStringInt("clientslist")
	p.WriteInt(1)
	p.WriteByte(0)
	p.WriteInt(uint32(len(members) - 1))
	for _, id := range members[1:] {
		p.WriteStringInt("*")
		p.WriteStringInt(strconv.FormatUint(uint64(id), 10))
	}
	p.WriteInt(0)

	if err := p.WriteHeader(protocol.NtfHostSnapshot, newHostID, newHostID); err != nil {
		return err
	}
	p.WriteInt(p.Size() - 4)
	return p.Err()
}

func writePair(p *protocol.Packet, key, value string) {
	p.WriteStringInt(key)
	p.WriteStringInt(value)
	p.WriteInt(0)
}

// HostChanged composes a header-only 0x1be packet pointing one surviving
// member at the new host.
func HostChanged(p *protocol.Packet, newHostID, memberID uint32) error {
	p.SeekToStart()
	return p.WriteHeader(protocol.NtfHostChanged, newHostID, memberID)
}
