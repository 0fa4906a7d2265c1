// Package bytecursor provides a buffered random-access reader over an
// in-memory byte region, with the integer decoders (big/little endian,
// synchsafe, varint) and the bit-reader shared by every format decoder.
//
// The unsynchronisation adapter (UnsyncReader) and bit-reader
// (BitReader) are built on top of Cursor rather than replacing it, the way
// the teacher's internal/id3 package layers io.LimitReader around a plain
// io.Reader for the same "don't let the caller see past the boundary"
// purpose.
package bytecursor

import (
	"encoding/binary"

	"github.com/kestrel-audio/tagcore/internal/tagerr"
)

// Cursor wraps a seekable in-memory byte region.
type Cursor struct {
	buf []byte
	pos int64
}

// New wraps buf for random-access reads starting at offset 0.
func New(buf []byte) *Cursor {
	return &Cursor{buf: buf}
}

// Len returns the total size of the backing region.
func (c *Cursor) Len() int64 { return int64(len(c.buf)) }

// Position returns the current read offset.
func (c *Cursor) Position() int64 { return c.pos }

// Remaining returns the number of unread bytes.
func (c *Cursor) Remaining() int64 { return int64(len(c.buf)) - c.pos }

// Seek moves the cursor to an absolute offset. It does not bounds-check
// against Len; a subsequent read past the end fails with UnexpectedEof.
func (c *Cursor) Seek(offset int64) {
	c.pos = offset
}

// Skip advances the cursor by n bytes without reading them.
func (c *Cursor) Skip(n int64) {
	c.pos += n
}

// Sub returns a new Cursor over the next n bytes, without advancing this
// cursor's position, for recursing into a container payload (e.g. an MP4
// container atom or a FLAC metadata block) while keeping the parent cursor
// positioned at the start of that payload.
func (c *Cursor) Sub(n int64) (*Cursor, error) {
	data, err := c.Peek(n)
	if err != nil {
		return nil, err
	}
	return New(data), nil
}

func (c *Cursor) bounded(n int64) ([]byte, error) {
	if n < 0 || c.pos+n > int64(len(c.buf)) {
		return nil, tagerr.NewUnexpectedEof(int(n), int(c.Remaining()), c.pos)
	}
	return c.buf[c.pos : c.pos+n], nil
}

// Peek returns the next n bytes without advancing the cursor.
func (c *Cursor) Peek(n int64) ([]byte, error) {
	return c.bounded(n)
}

// ReadN reads and returns the next n bytes, advancing the cursor.
func (c *Cursor) ReadN(n int64) ([]byte, error) {
	data, err := c.bounded(n)
	if err != nil {
		return nil, err
	}
	c.pos += n
	return data, nil
}

// ReadU8 reads a single byte.
func (c *Cursor) ReadU8() (uint8, error) {
	b, err := c.ReadN(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadU16BE reads a big-endian uint16.
func (c *Cursor) ReadU16BE() (uint16, error) {
	b, err := c.ReadN(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

// ReadU16LE reads a little-endian uint16.
func (c *Cursor) ReadU16LE() (uint16, error) {
	b, err := c.ReadN(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// ReadU32BE reads a big-endian uint32.
func (c *Cursor) ReadU32BE() (uint32, error) {
	b, err := c.ReadN(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

// ReadU32LE reads a little-endian uint32.
func (c *Cursor) ReadU32LE() (uint32, error) {
	b, err := c.ReadN(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// ReadU64BE reads a big-endian uint64.
func (c *Cursor) ReadU64BE() (uint64, error) {
	b, err := c.ReadN(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

// ReadU64LE reads a little-endian uint64.
func (c *Cursor) ReadU64LE() (uint64, error) {
	b, err := c.ReadN(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// ReadI64LE reads a little-endian signed int64 (OGG granule position).
func (c *Cursor) ReadI64LE() (int64, error) {
	u, err := c.ReadU64LE()
	return int64(u), err
}

// ReadSynchsafe32 reads a 28-bit value packed into four bytes whose MSB is
// always zero (ID3v2 tag/frame sizes in v2.4; see spec Glossary).
func (c *Cursor) ReadSynchsafe32() (uint32, error) {
	b, err := c.ReadN(4)
	if err != nil {
		return 0, err
	}
	var v uint32
	for _, byt := range b {
		if byt&0x80 != 0 {
			return 0, tagerr.NewInvalidValue("synchsafe byte has MSB set", c.pos-4)
		}
		v = (v << 7) | uint32(byt&0x7F)
	}
	return v, nil
}

// ReadVarint reads a base-128 variable-length unsigned integer, least
// significant 7-bit group first, continuation bit in the high bit of each
// byte (at most 10 bytes).
func (c *Cursor) ReadVarint() (uint64, error) {
	var v uint64
	for i := 0; i < 10; i++ {
		b, err := c.ReadU8()
		if err != nil {
			return 0, err
		}
		v |= uint64(b&0x7F) << (7 * uint(i))
		if b&0x80 == 0 {
			return v, nil
		}
	}
	return 0, tagerr.NewInvalidValue("varint too long", c.pos)
}

// EncodeSynchsafe32 is the inverse of ReadSynchsafe32, used by writers.
func EncodeSynchsafe32(v uint32) [4]byte {
	var out [4]byte
	for i := 3; i >= 0; i-- {
		out[i] = byte(v & 0x7F)
		v >>= 7
	}
	return out
}
