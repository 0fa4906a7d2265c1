// Package mp3 implements the MP3/ID3 decoder: ID3v2 header + frame parse,
// ID3v1 trailer, MPEG frame sync and Xing/VBRI/LAME recognition (spec.md
// §4.3). It directly adapts the teacher's internal/id3 (header synchsafe
// size, frame-header-then-body read loop, all-zero-ID padding sentinel)
// and internal/mp3header (bitrate/samplerate lookup tables) into one
// package, generalized from a streaming io.Reader walk to a seekable
// bytecursor.Cursor so random-access rewrite (spec.md §4.3 "Writes") is
// possible without re-reading the file.
package mp3

import (
	"strings"

	"github.com/kestrel-audio/tagcore/internal/bytecursor"
	"github.com/kestrel-audio/tagcore/internal/tagerr"
	"github.com/kestrel-audio/tagcore/internal/tagmodel"
)

const (
	flagUnsync        = 0x80
	flagExtHeader     = 0x40
	flagExperimental  = 0x20
	flagFooter        = 0x10 // v2.4 only

	frameFlagUnsyncV4   = 0x0002
	frameFlagDataLenV4  = 0x0001
	frameFlagCompressV3 = 0x0080
	frameFlagEncryptV3  = 0x0040
	frameFlagCompressV4 = 0x0008
	frameFlagEncryptV4  = 0x0004
)

// ID3v2Header is the fixed 10-byte ID3v2 header (spec.md §4.3 step 2).
type ID3v2Header struct {
	Major, Revision byte
	Flags           byte
	Size            uint32 // span size, excludes the 10-byte header itself
}

// v22to23 maps legacy three-letter v2.2 frame IDs to their v2.3/v2.4
// four-letter equivalents (spec.md §4.3 step 6: "normalise v2.2 three-letter
// IDs to their v2.3/v2.4 equivalents on read (table-driven)").
var v22to23 = map[string]string{
	"TT1": "TIT1", "TT2": "TIT2", "TT3": "TIT3",
	"TP1": "TPE1", "TP2": "TPE2", "TP3": "TPE3", "TP4": "TPE4",
	"TAL": "TALB", "TCO": "TCON", "TCM": "TCOM", "TYE": "TDRC",
	"TRK": "TRCK", "TPA": "TPOS", "TCR": "TCOP", "TEN": "TENC",
	"TLE": "TLEN", "TXT": "TEXT", "TLA": "TLAN", "TMT": "TMED",
	"TOA": "TOPE", "TOT": "TOAL", "TPB": "TPUB", "TBP": "TBPM",
	"TXX": "TXXX", "WXX": "WXXX",
	"WAF": "WOAF", "WAR": "WOAR", "WAS": "WOAS",
	"WCM": "WCOM", "WCP": "WCOP", "WPB": "WPUB",
	"COM": "COMM", "ULT": "USLT", "PIC": "APIC",
	"UFI": "UFID", "POP": "POPM", "GEO": "GEOB", "PCN": "PCNT",
}

// ParsedID3v2 is the decoded ID3v2 tag plus diagnostics.
type ParsedID3v2 struct {
	Header      ID3v2Header
	Collection  *tagmodel.Collection
	SpanEnd     int64 // byte offset immediately after the tag, including padding
	Diagnostics []tagerr.Diagnostic
}

// ParseID3v2 parses an ID3v2 tag starting at c's current position, which
// must be positioned at the "ID3" magic. Returns tagerr.NoHeader if the
// magic doesn't match (a non-fatal condition per spec.md §7: a missing tag
// container is not an error for the file as a whole).
func ParseID3v2(c *bytecursor.Cursor) (*ParsedID3v2, error) {
	start := c.Position()
	magic, err := c.ReadN(3)
	if err != nil || string(magic) != "ID3" {
		c.Seek(start)
		return nil, tagerr.NewNoHeader("id3v2")
	}

	major, err := c.ReadU8()
	if err != nil {
		return nil, err
	}
	revision, err := c.ReadU8()
	if err != nil {
		return nil, err
	}
	flags, err := c.ReadU8()
	if err != nil {
		return nil, err
	}
	size, err := c.ReadSynchsafe32()
	if err != nil {
		return nil, err
	}

	if major < 2 || major > 4 {
		return nil, tagerr.NewUnsupportedVersion("id3v2", versionString(major, revision))
	}

	header := ID3v2Header{Major: major, Revision: revision, Flags: flags, Size: size}
	spanStart := c.Position()

	if flags&flagExtHeader != 0 {
		// Extended header: a synchsafe size followed by its own body. Skip
		// it wholesale; this library never needs its CRC/restrictions.
		extSize, err := c.ReadSynchsafe32()
		if err != nil {
			return nil, err
		}
		if major == 3 {
			// v2.3 extended header size excludes itself and is NOT
			// synchsafe; re-read as raw BE32 instead.
			c.Seek(spanStart)
			raw, err := c.ReadU32BE()
			if err != nil {
				return nil, err
			}
			c.Skip(int64(raw))
		} else {
			c.Skip(int64(extSize) - 4)
		}
	}

	result := &ParsedID3v2{Header: header}
	col := tagmodel.NewCollection(false)

	tagEnd := spanStart + int64(size)
	body, err := c.Peek(tagEnd - c.Position())
	if err != nil {
		// Declared size overruns the file; clamp to what's actually there
		// and keep going rather than fail the whole tag.
		body, _ = c.Peek(c.Remaining())
		tagEnd = c.Position() + int64(len(body))
	}

	bodyCursor := bytecursor.New(body)
	if flags&flagUnsync != 0 {
		// Whole-tag unsynchronisation: desync the entire span up front so
		// every frame header/body below reads clean bytes.
		desynced := desyncAll(body)
		bodyCursor = bytecursor.New(desynced)
	}

	frames, diags := readFrames(bodyCursor, major)
	for _, f := range frames {
		if f.opaque != nil {
			// Unknown/undecodable frame: store as opaque binary so it
			// round-trips verbatim on save (spec.md §6 invariant).
			col.Add(f.id+"#raw", tagmodel.NewBinary(f.opaque))
			continue
		}
		col.Add(f.key, f.value)
	}
	result.Collection = col
	result.Diagnostics = diags
	result.SpanEnd = tagEnd
	c.Seek(tagEnd)
	return result, nil
}

func versionString(major, revision byte) string {
	return "2." + itoa(int(major)) + "." + itoa(int(revision))
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var b []byte
	for n > 0 {
		b = append([]byte{byte('0' + n%10)}, b...)
		n /= 10
	}
	return string(b)
}

// desyncAll removes every 0xFF 0x00 stuffing pair from a whole-tag
// unsynchronised body (spec.md §4.1's UnsyncReader adapter applied eagerly
// across the whole span, since frame boundaries are computed against the
// post-desync stream once the tag's unsync flag is set).
func desyncAll(data []byte) []byte {
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		out = append(out, data[i])
		if data[i] == 0xFF && i+1 < len(data) && data[i+1] == 0x00 {
			i++
		}
	}
	return out
}

type rawFrame struct {
	id     string
	key    string
	value  tagmodel.Value
	opaque []byte
}

// readFrames walks frames until the all-zero-ID padding sentinel or cursor
// exhaustion (spec.md §4.3 step 4).
func readFrames(c *bytecursor.Cursor, major byte) ([]rawFrame, []tagerr.Diagnostic) {
	var frames []rawFrame
	var diags []tagerr.Diagnostic

	idLen := 4
	if major == 2 {
		idLen = 3
	}

	for c.Remaining() > int64(idLen) {
		idBytes, err := c.Peek(int64(idLen))
		if err != nil {
			break
		}
		if allZero(idBytes) {
			break // padding sentinel (spec.md §4.3 step 4)
		}
		if !validFrameID(idBytes) {
			diags = append(diags, tagerr.Diagnostic{Code: "bad-frame-id", Format: "id3v2", Message: "stopped at invalid frame id"})
			break
		}
		c.Skip(int64(idLen))

		var size uint32
		var flags uint16
		if major == 2 {
			sb, err := c.ReadN(3)
			if err != nil {
				break
			}
			size = uint32(sb[0])<<16 | uint32(sb[1])<<8 | uint32(sb[2])
		} else if major == 3 {
			size, err = readV23Size(c, idLen)
			if err != nil {
				break
			}
			flagsRaw, err := c.ReadU16BE()
			if err != nil {
				break
			}
			flags = flagsRaw
		} else {
			var err2 error
			size, err2 = c.ReadSynchsafe32()
			if err2 != nil {
				break
			}
			flagsRaw, err3 := c.ReadU16BE()
			if err3 != nil {
				break
			}
			flags = flagsRaw
		}

		if int64(size) > c.Remaining() {
			diags = append(diags, tagerr.Diagnostic{Code: "truncated-frame", Format: "id3v2", Message: "frame size exceeds remaining tag bytes"})
			break
		}

		id := string(idBytes)
		if major == 2 {
			if mapped, ok := v22to23[id]; ok {
				id = mapped
			}
		}

		body, err := c.ReadN(int64(size))
		if err != nil {
			break
		}

		if major >= 3 {
			frame, diag := decodeFrameBody(id, body, major, flags)
			if diag != "" {
				diags = append(diags, tagerr.Diagnostic{Code: diag, Format: "id3v2", Message: id})
			}
			frames = append(frames, frame)
		} else {
			pf := tagmodel.ParseFrame(id, body, int(major))
			frames = append(frames, rawFrame{id: id, key: pf.Key, value: pf.Value, opaque: pf.Opaque})
		}
	}
	return frames, diags
}

// readV23Size handles the known v2.3 producer bug (spec.md §4.3 step 4 and
// §9/§11 Open Questions): some encoders synchsafe-encode v2.3 frame sizes
// even though the spec says raw BE32. Try the spec-correct raw
// interpretation first; if it doesn't land on a valid next frame ID (or
// padding/EOF), retry with the synchsafe interpretation.
func readV23Size(c *bytecursor.Cursor, idLen int) (uint32, error) {
	sizeStart := c.Position()
	sizeBytes, err := c.Peek(4)
	if err != nil {
		return 0, err
	}
	rawSize := uint32(sizeBytes[0])<<24 | uint32(sizeBytes[1])<<16 | uint32(sizeBytes[2])<<8 | uint32(sizeBytes[3])

	if looksLikeValidNextFrame(c, sizeStart+4+2, rawSize, idLen) {
		c.Skip(4)
		return rawSize, nil
	}

	ssCursor := bytecursor.New(sizeBytes)
	ssSize, ssErr := ssCursor.ReadSynchsafe32()
	if ssErr == nil && looksLikeValidNextFrame(c, sizeStart+4+2, ssSize, idLen) {
		c.Skip(4)
		return ssSize, nil
	}

	// Neither interpretation is confirmable (e.g. last frame before
	// padding); trust the spec-correct raw reading.
	c.Skip(4)
	return rawSize, nil
}

func looksLikeValidNextFrame(c *bytecursor.Cursor, bodyStart int64, size uint32, idLen int) bool {
	nextIDStart := bodyStart + int64(size)
	if nextIDStart == c.Position()+c.Remaining() {
		return true // exactly lands on EOF: plausible
	}
	save := c.Position()
	defer c.Seek(save)
	c.Seek(nextIDStart)
	idBytes, err := c.Peek(int64(idLen))
	if err != nil {
		return false
	}
	return allZero(idBytes) || validFrameID(idBytes)
}

func allZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}

func validFrameID(b []byte) bool {
	for _, c := range b {
		if !(c >= 'A' && c <= 'Z') && !(c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}

// decodeFrameBody applies per-frame flags (spec.md §4.3 step 5) before
// dispatching to tagmodel. Compressed/encrypted frames are kept opaque.
func decodeFrameBody(id string, body []byte, major byte, flags uint16) (rawFrame, string) {
	unsyncBit, dataLenBit, compressBit, encryptBit := frameFlagBits(major)

	if flags&compressBit != 0 || flags&encryptBit != 0 {
		return rawFrame{id: id, opaque: body}, "opaque-compressed-or-encrypted-frame"
	}

	if flags&dataLenBit != 0 && len(body) >= 4 {
		// Data-length indicator: a synchsafe-32 declaring the decompressed
		// size, present before the (possibly per-frame-unsynced) payload.
		body = body[4:]
	}

	if flags&unsyncBit != 0 {
		body = desyncAll(body)
	}

	pf := tagmodel.ParseFrame(id, body, int(major))
	if pf.Opaque != nil {
		return rawFrame{id: id, opaque: pf.Opaque}, ""
	}
	return rawFrame{id: id, key: pf.Key, value: pf.Value}, ""
}

func frameFlagBits(major byte) (unsyncBit, dataLenBit, compressBit, encryptBit uint16) {
	if major == 4 {
		return frameFlagUnsyncV4, frameFlagDataLenV4, frameFlagCompressV4, frameFlagEncryptV4
	}
	// v2.3 has no per-frame unsync/data-length-indicator flags.
	return 0, 0, frameFlagCompressV3, frameFlagEncryptV3
}

// EncodeID3v2 serialises col back into an ID3v2.4 tag body (header +
// frames, no unsynchronisation, no extended header), used by the writer
// (spec.md §4.3 "Writes").
func EncodeID3v2(col *tagmodel.Collection) []byte {
	var body []byte
	col.Each(func(key string, v tagmodel.Value) {
		if strings.HasSuffix(key, "#raw") {
			id := strings.TrimSuffix(key, "#raw")
			if len(v.Binary) > 0 {
				body = append(body, encodeFrame(id, v.Binary[0])...)
			}
			return
		}
		id, sub, lang := tagmodel.SplitHashKey(key)
		frameBody := tagmodel.SerialiseFrame(id, sub, lang, v)
		body = append(body, encodeFrame(id, frameBody)...)
	})

	header := make([]byte, 10)
	copy(header[0:3], "ID3")
	header[3] = 4
	header[4] = 0
	header[5] = 0
	sz := bytecursor.EncodeSynchsafe32(uint32(len(body)))
	copy(header[6:10], sz[:])

	return append(header, body...)
}

func encodeFrame(id string, body []byte) []byte {
	out := make([]byte, 10)
	copy(out[0:4], id)
	sz := bytecursor.EncodeSynchsafe32(uint32(len(body)))
	copy(out[4:8], sz[:])
	// flags left zero
	return append(out, body...)
}
