package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrOversizePacket reports a header announcing a payload bigger than the
// session buffer allows. The connection cannot be resynchronized after
// this and must be dropped.
var ErrOversizePacket = errors.New("announced packet body too big")

// ReadFrame reads one whole packet (header plus payload) from r into buf
// and returns the total frame length. Zero-payload frames are valid and
// return HeaderSize. A clean close between frames returns io.EOF
// unwrapped; a close mid-frame surfaces as io.ErrUnexpectedEOF.
func ReadFrame(r io.Reader, buf []byte) (int, error) {
	if len(buf) < HeaderSize {
		return 0, fmt.Errorf("read frame: buffer too small (have %d bytes)", len(buf))
	}

	if _, err := io.ReadFull(r, buf[:HeaderSize]); err != nil {
		if errors.Is(err, io.EOF) {
			return 0, io.EOF
		}
		return 0, fmt.Errorf("reading packet header: %w", err)
	}

	size := int(binary.LittleEndian.Uint32(buf[:4]))
	if size > MaxPayloadSize || size > len(buf)-HeaderSize {
		return 0, fmt.Errorf("%w (%d bytes)", ErrOversizePacket, size)
	}
	if size == 0 {
		return HeaderSize, nil
	}

	if _, err := io.ReadFull(r, buf[HeaderSize:HeaderSize+size]); err != nil {
		return 0, fmt.Errorf("reading packet body: %w", err)
	}
	return HeaderSize + size, nil
}
