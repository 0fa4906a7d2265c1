// Package ogg implements the OGG/Vorbis decoder: page layer, packet
// reassembly, and the Vorbis identification + comment headers (spec.md
// §4.5). Page header field layout is adapted from the pack's
// other_examples taggolib.oggParser.parseOGGPageHeader (capture pattern,
// version, header type, granule position, serial, sequence, CRC, segment
// table), generalized from a streaming io.ReadSeeker walk to this module's
// seekable bytecursor.Cursor so the decoder can later repack pages on
// write (spec.md §4.5 "Writes").
package ogg

import (
	"github.com/kestrel-audio/tagcore/internal/bytecursor"
	"github.com/kestrel-audio/tagcore/internal/tagerr"
)

const capturePattern = "OggS"

const (
	HeaderContinued = 0x01
	HeaderBOS       = 0x02
	HeaderEOS       = 0x04
)

// PageHeader is one Ogg page's fixed + segment-table header.
type PageHeader struct {
	Version         uint8
	HeaderType      uint8
	GranulePosition uint64
	SerialNumber    uint32
	SequenceNumber  uint32
	Checksum        uint32
	SegmentTable    []byte
}

// Page is a full page: header plus the payload assembled from its segment
// table.
type Page struct {
	Header  PageHeader
	Payload []byte
	Start   int64 // file offset of the capture pattern
	End     int64 // file offset immediately after this page
}

// ReadPage reads one Ogg page starting at c's current position.
func ReadPage(c *bytecursor.Cursor) (Page, error) {
	start := c.Position()
	magic, err := c.ReadN(4)
	if err != nil {
		return Page{}, err
	}
	if string(magic) != capturePattern {
		return Page{}, tagerr.NewMalformed("ogg", "capture-pattern", start, "missing OggS magic")
	}

	version, err := c.ReadU8()
	if err != nil {
		return Page{}, err
	}
	if version != 0 {
		return Page{}, tagerr.NewUnsupportedVersion("ogg", "page-version-"+itoa(int(version)))
	}

	headerType, err := c.ReadU8()
	if err != nil {
		return Page{}, err
	}
	granule, err := c.ReadU64LE()
	if err != nil {
		return Page{}, err
	}
	serial, err := c.ReadU32LE()
	if err != nil {
		return Page{}, err
	}
	seq, err := c.ReadU32LE()
	if err != nil {
		return Page{}, err
	}
	checksum, err := c.ReadU32LE()
	if err != nil {
		return Page{}, err
	}
	segCount, err := c.ReadU8()
	if err != nil {
		return Page{}, err
	}
	segTable, err := c.ReadN(int64(segCount))
	if err != nil {
		return Page{}, err
	}

	payloadLen := int64(0)
	for _, s := range segTable {
		payloadLen += int64(s)
	}
	payload, err := c.ReadN(payloadLen)
	if err != nil {
		return Page{}, err
	}

	return Page{
		Header: PageHeader{
			Version:         version,
			HeaderType:      headerType,
			GranulePosition: granule,
			SerialNumber:    serial,
			SequenceNumber:  seq,
			Checksum:        checksum,
			SegmentTable:    segTable,
		},
		Payload: payload,
		Start:   start,
		End:     c.Position(),
	}, nil
}

// WritePage serialises a page, recomputing the segment table from the
// payload length (used when repacking after a comment edit) and the CRC
// via the Ogg-specific polynomial (spec.md §4.5 "Writes"). continued must
// be true when the packet this page ends with continues onto a following
// page, so the segment table omits the terminating short segment that
// would otherwise mark the packet complete.
func WritePage(p Page, continued bool) []byte {
	segTable := buildSegmentTable(len(p.Payload), continued)

	out := make([]byte, 0, 27+len(segTable)+len(p.Payload))
	out = append(out, capturePattern...)
	out = append(out, p.Header.Version, p.Header.HeaderType)
	out = append(out, leU64(p.Header.GranulePosition)...)
	out = append(out, leU32(p.Header.SerialNumber)...)
	out = append(out, leU32(p.Header.SequenceNumber)...)
	crcPos := len(out)
	out = append(out, 0, 0, 0, 0) // checksum placeholder
	out = append(out, byte(len(segTable)))
	out = append(out, segTable...)
	out = append(out, p.Payload...)

	crc := CRC32(out)
	copy(out[crcPos:crcPos+4], leU32(crc))
	return out
}

// buildSegmentTable lays out a payload's length as a sequence of 255-byte
// segments. Unless continued is set, the table ends with a short (or zero)
// segment that terminates the packet; when continued, the payload must
// already be an exact multiple of 255 bytes and no terminator is emitted,
// signalling the packet carries on into the next page.
func buildSegmentTable(n int, continued bool) []byte {
	var table []byte
	for n >= 255 {
		table = append(table, 255)
		n -= 255
	}
	if !continued {
		table = append(table, byte(n))
	}
	return table
}

func leU32(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

func leU64(v uint64) []byte {
	b := make([]byte, 8)
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
	return b
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var b []byte
	for n > 0 {
		b = append([]byte{byte('0' + n%10)}, b...)
		n /= 10
	}
	if neg {
		b = append([]byte{'-'}, b...)
	}
	return string(b)
}
