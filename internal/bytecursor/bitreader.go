package bytecursor

import (
	"bytes"

	"github.com/nareix/bits"
)

// BitReader exposes sub-byte field reads for FLAC's STREAMINFO block, which
// packs sample rate, channel count and bits-per-sample into non-byte-aligned
// bit runs.
//
// Grounded on johanschon-joy4/isom's use of github.com/nareix/bits for the
// equivalent ADTS/esds bit-level fields.
type BitReader struct {
	br *bits.Reader
}

// NewBitReader returns a BitReader over the next n bytes read from c.
func NewBitReader(c *Cursor, n int64) (*BitReader, error) {
	data, err := c.ReadN(n)
	if err != nil {
		return nil, err
	}
	return &BitReader{br: &bits.Reader{R: bytes.NewReader(data)}}, nil
}

// ReadBits reads the next n bits (n <= 64) as an unsigned value, MSB-first.
func (b *BitReader) ReadBits(n int) (uint64, error) {
	v, err := b.br.ReadBits(n)
	return uint64(v), err
}
