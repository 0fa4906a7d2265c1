package bytecursor

import "github.com/kestrel-audio/tagcore/internal/tagerr"

// UnsyncReader adapts a Cursor to elide the 0x00 stuffing byte inserted
// after every 0xFF byte by ID3v2 unsynchronisation (spec.md §4.1, Glossary).
// It is bounded by the raw (pre-desync) length declared by the tag/frame
// header, stuffing bytes included; callers of Read never see the stuffing
// bytes.
type UnsyncReader struct {
	c      *Cursor
	limit  int64 // raw underlying bytes still available, stuffing included
	lastFF bool
}

// NewUnsyncReader wraps c, consuming at most logicalLen raw (pre-desync)
// bytes from the underlying stream; stuffing bytes count against that
// limit, so fewer than logicalLen bytes may be returned in total.
func NewUnsyncReader(c *Cursor, logicalLen int64) *UnsyncReader {
	return &UnsyncReader{c: c, limit: logicalLen}
}

// ReadN returns the next n logical bytes with stuffing bytes removed.
func (u *UnsyncReader) ReadN(n int64) ([]byte, error) {
	out := make([]byte, 0, n)
	for int64(len(out)) < n {
		if u.limit <= 0 {
			return nil, tagerr.NewUnexpectedEof(int(n), len(out), u.c.pos)
		}
		b, err := u.c.ReadU8()
		if err != nil {
			return nil, err
		}
		u.limit--
		if u.lastFF && b == 0x00 {
			// stuffing byte: drop it, don't count it against the caller's n,
			// and don't let it re-arm lastFF.
			u.lastFF = false
			continue
		}
		u.lastFF = b == 0xFF
		out = append(out, b)
	}
	return out, nil
}

// ReadU8 returns the next logical byte.
func (u *UnsyncReader) ReadU8() (byte, error) {
	b, err := u.ReadN(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// Remaining reports how many raw underlying bytes are still available (an
// upper bound on the logical bytes left, since any stuffing bytes among
// them are dropped when read).
func (u *UnsyncReader) Remaining() int64 { return u.limit }

// Unsync returns a new byte slice with a 0x00 stuffing byte inserted after
// every 0xFF, the inverse of what UnsyncReader removes — exposed for
// symmetry with EncodeSynchsafe32, for writers that must re-apply
// unsynchronisation to a frame/tag body on save.
func Unsync(data []byte) []byte {
	out := make([]byte, 0, len(data)+len(data)/128+1)
	for _, b := range data {
		out = append(out, b)
		if b == 0xFF {
			// Insert a stuffing 0x00 so 0xFF is never immediately followed
			// by a byte with top bits 111 (an MPEG sync pattern); this
			// conservatively stuffs after every 0xFF, not only before such
			// bytes.
			out = append(out, 0x00)
		}
	}
	return out
}
