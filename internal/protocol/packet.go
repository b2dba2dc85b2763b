package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Wire format limits. The size field of the header counts payload bytes
// only; the header itself is excluded. All multi-byte values are
// little-endian.
const (
	// HeaderSize is the fixed packet header length:
	// u32 payload size, u16 command, u32 id1, u32 id2.
	HeaderSize = 14

	// MaxPacketSize is the session buffer size (1 MiB, header included).
	MaxPacketSize = 0x100000

	// MaxPayloadSize is the largest payload a header may announce.
	MaxPayloadSize = MaxPacketSize - HeaderSize
)

// ErrBufferOverrun reports a read past the announced payload or a write
// past the buffer end.
var ErrBufferOverrun = errors.New("packet buffer overrun")

// Packet is a cursor over a session buffer. It parses the inbound header,
// reads payload fields and composes the outbound payload in the same
// buffer, in place. Out-of-bounds accesses never panic: the first one
// latches an error, all following operations become no-ops, and the error
// surfaces from Err or WriteHeader.
type Packet struct {
	buf []byte
	pos int
	err error

	// set by WriteHeader, total outbound length including the header
	sendSize int

	source uint32
	size   uint32
	cmd    uint16
	id1    uint32
	id2    uint32
}

// Parse wraps buf, which must start with a packet header, and records the
// session id of the sender. The cursor is left at the payload start.
func Parse(buf []byte, source uint32) *Packet {
	p := &Packet{buf: buf, source: source}
	if len(buf) < HeaderSize {
		p.err = fmt.Errorf("parse header: %w (have %d bytes)", ErrBufferOverrun, len(buf))
		return p
	}
	p.size = binary.LittleEndian.Uint32(buf[0:])
	p.cmd = binary.LittleEndian.Uint16(buf[4:])
	p.id1 = binary.LittleEndian.Uint32(buf[6:])
	p.id2 = binary.LittleEndian.Uint32(buf[10:])
	p.pos = HeaderSize
	return p
}

// Source returns the session id of the packet sender.
func (p *Packet) Source() uint32 { return p.source }

// Size returns the payload size from the header. WriteHeader updates it.
func (p *Packet) Size() uint32 { return p.size }

// Cmd returns the command code from the header.
func (p *Packet) Cmd() uint16 { return p.cmd }

// ID1 returns the first header id.
func (p *Packet) ID1() uint32 { return p.id1 }

// ID2 returns the second header id.
func (p *Packet) ID2() uint32 { return p.id2 }

// Err returns the first error latched by a cursor operation, if any.
func (p *Packet) Err() error { return p.err }

// SendSize returns the total outbound length set by WriteHeader.
func (p *Packet) SendSize() int { return p.sendSize }

// Bytes returns the sealed packet, header included. Valid only after
// WriteHeader.
func (p *Packet) Bytes() []byte { return p.buf[:p.sendSize] }

// SeekToStart moves the cursor to the payload start.
func (p *Packet) SeekToStart() { p.pos = HeaderSize }

// SeekToEnd moves the cursor past the payload, as announced by the
// current size. Useful for appending to a kept message body.
func (p *Packet) SeekToEnd() { p.pos = HeaderSize + int(p.size) }

// Skip moves the cursor n bytes forward without reading.
func (p *Packet) Skip(n int) {
	if !p.canRead("Skip", n) {
		return
	}
	p.pos += n
}

// frameEnd is the read limit: the end of the announced payload, clamped
// to the buffer.
func (p *Packet) frameEnd() int {
	return min(HeaderSize+int(p.size), len(p.buf))
}

func (p *Packet) canRead(op string, n int) bool {
	if p.err != nil {
		return false
	}
	if n < 0 || p.pos+n > p.frameEnd() {
		p.err = fmt.Errorf("%s: %w (pos=%d, need=%d, size=%d)", op, ErrBufferOverrun, p.pos-HeaderSize, n, p.size)
		return false
	}
	return true
}

func (p *Packet) canWrite(op string, n int) bool {
	if p.err != nil {
		return false
	}
	if p.pos+n > len(p.buf) {
		p.err = fmt.Errorf("%s: %w (pos=%d, need=%d, cap=%d)", op, ErrBufferOverrun, p.pos-HeaderSize, n, len(p.buf))
		return false
	}
	return true
}

// ReadByte reads a single payload byte.
func (p *Packet) ReadByte() byte {
	if !p.canRead("ReadByte", 1) {
		return 0
	}
	b := p.buf[p.pos]
	p.pos++
	return b
}

// ReadShort reads a uint16.
func (p *Packet) ReadShort() uint16 {
	if !p.canRead("ReadShort", 2) {
		return 0
	}
	v := binary.LittleEndian.Uint16(p.buf[p.pos:])
	p.pos += 2
	return v
}

// ReadInt reads a uint32.
func (p *Packet) ReadInt() uint32 {
	if !p.canRead("ReadInt", 4) {
		return 0
	}
	v := binary.LittleEndian.Uint32(p.buf[p.pos:])
	p.pos += 4
	return v
}

// ReadString reads a string with a byte length prefix.
func (p *Packet) ReadString() string {
	return p.readString(int(p.ReadByte()))
}

// ReadStringShort reads a string with a uint16 length prefix.
func (p *Packet) ReadStringShort() string {
	return p.readString(int(p.ReadShort()))
}

// ReadStringInt reads a string with a uint32 length prefix.
func (p *Packet) ReadStringInt() string {
	return p.readString(int(p.ReadInt()))
}

func (p *Packet) readString(n int) string {
	if !p.canRead("ReadString", n) {
		return ""
	}
	s := string(p.buf[p.pos : p.pos+n])
	p.pos += n
	return s
}

// WriteByte writes a single payload byte.
func (p *Packet) WriteByte(b byte) {
	if !p.canWrite("WriteByte", 1) {
		return
	}
	p.buf[p.pos] = b
	p.pos++
}

// WriteShort writes a uint16.
func (p *Packet) WriteShort(v uint16) {
	if !p.canWrite("WriteShort", 2) {
		return
	}
	binary.LittleEndian.PutUint16(p.buf[p.pos:], v)
	p.pos += 2
}

// WriteInt writes a uint32.
func (p *Packet) WriteInt(v uint32) {
	if !p.canWrite("WriteInt", 4) {
		return
	}
	binary.LittleEndian.PutUint32(p.buf[p.pos:], v)
	p.pos += 4
}

// WriteString writes a string with a byte length prefix.
func (p *Packet) WriteString(s string) {
	p.WriteByte(byte(len(s)))
	p.writeString(s)
}

// WriteStringShort writes a string with a uint16 length prefix.
func (p *Packet) WriteStringShort(s string) {
	p.WriteShort(uint16(len(s)))
	p.writeString(s)
}

// WriteStringInt writes a string with a uint32 length prefix.
func (p *Packet) WriteStringInt(s string) {
	p.WriteInt(uint32(len(s)))
	p.writeString(s)
}

func (p *Packet) writeString(s string) {
	if !p.canWrite("WriteString", len(s)) {
		return
	}
	copy(p.buf[p.pos:], s)
	p.pos += len(s)
}

// WriteHeader seals the packet: the current cursor becomes the total send
// size, the header is rewritten in place with the given values and the new
// payload size, and the cursor is left at the payload start. Must be
// called before the packet is handed to the router. Returns the first
// error latched during parsing or composition.
func (p *Packet) WriteHeader(cmd uint16, id1, id2 uint32) error {
	if p.err != nil {
		return p.err
	}
	p.sendSize = p.pos
	p.size = uint32(p.sendSize - HeaderSize)
	p.cmd, p.id1, p.id2 = cmd, id1, id2
	binary.LittleEndian.PutUint32(p.buf[0:], p.size)
	binary.LittleEndian.PutUint16(p.buf[4:], p.cmd)
	binary.LittleEndian.PutUint32(p.buf[6:], p.id1)
	binary.LittleEndian.PutUint32(p.buf[10:], p.id2)
	p.pos = HeaderSize
	return nil
}

// KeepWholeMessage retags the packet with cmd, keeping the inbound payload
// and header ids intact. Used for forwarding.
func (p *Packet) KeepWholeMessage(cmd uint16) error {
	p.SeekToEnd()
	return p.WriteHeader(cmd, p.id1, p.id2)
}
