package tagmodel

import (
	"encoding/binary"
	"strings"
)

// FrameKind is the closed set of ID3 frame shapes from spec.md §9 ("a
// closed set of frame kinds... with a descriptor table mapping frame ID to
// kind"). No inheritance hierarchy: the kind tag replaces the class tag the
// original implementation uses.
type FrameKind int

const (
	KindFrameText       FrameKind = iota // TIT2, TPE1, TALB, TCON, ...
	KindFramePairedText                  // TRCK, TPOS ("5/12")
	KindFrameUserText                    // TXXX: encoding, description, text
	KindFrameURL                         // Wxxx (no encoding byte, Latin1 URL)
	KindFrameUserURL                     // WXXX: encoding, description, URL
	KindFrameComment                     // COMM: encoding, lang(3), description, text
	KindFramePicture                     // APIC: encoding, mime, type, description, data
	KindFrameUniqueID                    // UFID: owner, binary
	KindFrameBinary                      // PRIV, GEOB, MCDI, unknown
	KindFramePopularimeter               // POPM: email, rating, counter
	KindFrameCounter                     // PCNT: uint32
	KindFrameUnknown                     // opaque, round-trips verbatim
)

// Descriptor pins the kind for a known frame ID. Frame IDs not present here
// are KindFrameUnknown and round-trip as opaque bytes (spec.md §4.2 error
// conditions: "unknown frame ID -> preserve as opaque UnknownFrame").
var descriptors = map[string]FrameKind{
	"TIT1": KindFrameText, "TIT2": KindFrameText, "TIT3": KindFrameText,
	"TPE1": KindFrameText, "TPE2": KindFrameText, "TPE3": KindFrameText, "TPE4": KindFrameText,
	"TALB": KindFrameText, "TCON": KindFrameText, "TCOM": KindFrameText,
	"TYER": KindFrameText, "TDRC": KindFrameText, "TDAT": KindFrameText,
	"TCOP": KindFrameText, "TENC": KindFrameText, "TEXT": KindFrameText,
	"TLAN": KindFrameText, "TLEN": KindFrameText, "TMED": KindFrameText,
	"TOAL": KindFrameText, "TOPE": KindFrameText, "TPUB": KindFrameText,
	"TRSN": KindFrameText, "TSSE": KindFrameText, "TSRC": KindFrameText,
	"TBPM": KindFrameText, "TKEY": KindFrameText, "TMOO": KindFrameText,
	"TSOA": KindFrameText, "TSOP": KindFrameText, "TSOT": KindFrameText,

	"TRCK": KindFramePairedText, "TPOS": KindFramePairedText,

	"TXXX": KindFrameUserText,

	"WCOM": KindFrameURL, "WCOP": KindFrameURL, "WOAF": KindFrameURL,
	"WOAR": KindFrameURL, "WOAS": KindFrameURL, "WORS": KindFrameURL, "WPAY": KindFrameURL, "WPUB": KindFrameURL,

	"WXXX": KindFrameUserURL,

	"COMM": KindFrameComment, "USLT": KindFrameComment,

	"APIC": KindFramePicture,

	"UFID": KindFrameUniqueID,

	"PRIV": KindFrameBinary, "GEOB": KindFrameBinary, "MCDI": KindFrameBinary,

	"POPM": KindFramePopularimeter,

	"PCNT": KindFrameCounter,
}

// KindOf returns the descriptor kind for id, defaulting to KindFrameUnknown.
func KindOf(id string) FrameKind {
	if k, ok := descriptors[id]; ok {
		return k
	}
	return KindFrameUnknown
}

// HasSubKey reports whether frames of this kind need a disambiguating
// suffix on their HashKey because more than one instance with the same
// frame ID may legally coexist (spec.md §3.2, Glossary "HashKey").
func HasSubKey(k FrameKind) bool {
	switch k {
	case KindFrameUserText, KindFrameUserURL, KindFrameComment, KindFramePicture, KindFrameBinary, KindFrameUniqueID, KindFramePopularimeter:
		return true
	default:
		return false
	}
}

// HashKey builds the disambiguated tag key for a frame, per spec.md
// Glossary: frame_id[:sub-id][:lang]. sub is the description/owner/email
// that disambiguates repeatable frames; lang is only present for COMM.
func HashKey(id, sub, lang string) string {
	if sub == "" && lang == "" {
		return id
	}
	var b strings.Builder
	b.WriteString(id)
	b.WriteByte(':')
	b.WriteString(sub)
	if lang != "" {
		b.WriteByte(':')
		b.WriteString(lang)
	}
	return b.String()
}

// SplitHashKey reverses HashKey, returning the bare frame ID, sub-id and
// language components (language only populated for COMM-shaped keys).
func SplitHashKey(key string) (id, sub, lang string) {
	parts := strings.SplitN(key, ":", 3)
	id = parts[0]
	if len(parts) > 1 {
		sub = parts[1]
	}
	if len(parts) > 2 {
		lang = parts[2]
	}
	return
}

// ParsedFrame is the result of parsing one ID3 frame body: the HashKey it
// should be stored under and its Value.
type ParsedFrame struct {
	Key   string
	Value Value
	// Opaque holds the raw frame body for KindFrameUnknown frames, and for
	// any frame kind whose body failed to parse (compressed/encrypted
	// frames per spec.md §4.3 step 5, or a body too short for its kind).
	Opaque []byte
}

// ParseFrame decodes a frame body into a ParsedFrame per the frame's kind.
// id3Version is not consulted: the body layouts, including the "/"
// TRCK/TPOS separator, are identical across v2.2/2.3/2.4 once the caller
// has normalized the frame ID (spec.md §4.3 step 6).
func ParseFrame(id string, body []byte, id3Version int) ParsedFrame {
	kind := KindOf(id)

	switch kind {
	case KindFrameText:
		return ParsedFrame{Key: id, Value: NewText(ParseText(body)...)}

	case KindFramePairedText:
		vals := ParseText(body)
		var pairs []Pair
		for _, v := range vals {
			pairs = append(pairs, parsePair(v))
		}
		return ParsedFrame{Key: id, Value: NewPairs(pairs...)}

	case KindFrameUserText:
		desc, text, ok := splitEncodedPair(body)
		if !ok {
			return ParsedFrame{Key: id, Opaque: body}
		}
		return ParsedFrame{Key: HashKey(id, desc, ""), Value: NewText(text...)}

	case KindFrameURL:
		return ParsedFrame{Key: id, Value: NewText(strings.TrimRight(string(body), "\x00"))}

	case KindFrameUserURL:
		desc, text, ok := splitEncodedPair(body)
		if !ok {
			return ParsedFrame{Key: id, Opaque: body}
		}
		url := ""
		if len(text) > 0 {
			url = text[0]
		}
		return ParsedFrame{Key: HashKey(id, desc, ""), Value: NewText(url)}

	case KindFrameComment:
		if len(body) < 4 {
			return ParsedFrame{Key: id, Opaque: body}
		}
		enc := body[0]
		lang := string(body[1:4])
		descText := ParseText(append([]byte{enc}, body[4:]...))
		desc := ""
		text := descText
		if len(descText) > 0 {
			desc = descText[0]
			text = descText[1:]
		}
		return ParsedFrame{Key: HashKey(id, desc, lang), Value: NewText(text...)}

	case KindFramePicture:
		pic, ok := parsePictureID3(body)
		if !ok {
			return ParsedFrame{Key: id, Opaque: body}
		}
		return ParsedFrame{Key: HashKey(id, pic.Description, ""), Value: NewPicture(pic)}

	case KindFrameUniqueID:
		parts := splitNUL(body, 1)
		if len(parts) != 2 {
			return ParsedFrame{Key: id, Opaque: body}
		}
		return ParsedFrame{Key: HashKey(id, string(parts[0]), ""), Value: NewBinary(parts[1])}

	case KindFramePopularimeter:
		parts := splitNUL(body, 1)
		if len(parts) != 2 || len(parts[1]) < 1 {
			return ParsedFrame{Key: id, Opaque: body}
		}
		rating := parts[1][0]
		var counter []byte
		if len(parts[1]) > 1 {
			counter = parts[1][1:]
		}
		return ParsedFrame{Key: HashKey(id, string(parts[0]), ""), Value: NewBinary([]byte{rating}, counter)}

	case KindFrameCounter:
		return ParsedFrame{Key: id, Value: NewBinary(body)}

	case KindFrameBinary:
		if id == "PRIV" {
			parts := splitNUL(body, 1)
			if len(parts) != 2 {
				return ParsedFrame{Key: id, Opaque: body}
			}
			return ParsedFrame{Key: HashKey(id, string(parts[0]), ""), Value: NewBinary(parts[1])}
		}
		return ParsedFrame{Key: id, Value: NewBinary(body)}

	default:
		return ParsedFrame{Key: id, Opaque: body}
	}
}

// SerialiseFrame is the inverse of ParseFrame: given the bare frame id and
// its Value, produce the frame body bytes. sub/lang must match what
// ParseFrame would have produced in Key for round-trip fidelity.
func SerialiseFrame(id, sub, lang string, v Value) []byte {
	kind := KindOf(id)

	switch kind {
	case KindFrameText:
		return RenderText(EncodingUTF8, v.Text)

	case KindFramePairedText:
		strs := make([]string, len(v.Pairs))
		for i, p := range v.Pairs {
			strs[i] = renderPair(p)
		}
		return RenderText(EncodingUTF8, strs)

	case KindFrameUserText:
		return joinEncodedPair(sub, v.Text)

	case KindFrameURL:
		var text string
		if len(v.Text) > 0 {
			text = v.Text[0]
		}
		return []byte(text)

	case KindFrameUserURL:
		var text string
		if len(v.Text) > 0 {
			text = v.Text[0]
		}
		return joinEncodedPair(sub, []string{text})

	case KindFrameComment:
		var buf []byte
		buf = append(buf, byte(EncodingUTF8))
		buf = append(buf, []byte(lang)...)
		buf = append(buf, []byte(sub)...)
		buf = append(buf, 0x00)
		buf = append(buf, []byte(JoinNull(v.Text))...)
		return buf

	case KindFramePicture:
		if len(v.Pictures) == 0 {
			return nil
		}
		return serialisePictureID3(v.Pictures[0])

	case KindFrameUniqueID:
		var buf []byte
		buf = append(buf, []byte(sub)...)
		buf = append(buf, 0x00)
		if len(v.Binary) > 0 {
			buf = append(buf, v.Binary[0]...)
		}
		return buf

	case KindFramePopularimeter:
		var buf []byte
		buf = append(buf, []byte(sub)...)
		buf = append(buf, 0x00)
		if len(v.Binary) > 0 {
			buf = append(buf, v.Binary[0]...)
		}
		if len(v.Binary) > 1 {
			buf = append(buf, v.Binary[1]...)
		}
		return buf

	case KindFrameCounter:
		if len(v.Binary) > 0 {
			return v.Binary[0]
		}
		return nil

	case KindFrameBinary:
		if id == "PRIV" {
			var buf []byte
			buf = append(buf, []byte(sub)...)
			buf = append(buf, 0x00)
			if len(v.Binary) > 0 {
				buf = append(buf, v.Binary[0]...)
			}
			return buf
		}
		if len(v.Binary) > 0 {
			return v.Binary[0]
		}
		return nil

	default:
		return nil
	}
}

func parsePair(s string) Pair {
	cur, total := 0, 0
	parts := strings.SplitN(s, "/", 2)
	cur = atoiSafe(parts[0])
	if len(parts) == 2 {
		total = atoiSafe(parts[1])
	}
	return Pair{Current: cur, Total: total}
}

func renderPair(p Pair) string {
	if p.Total == 0 {
		return itoa(p.Current)
	}
	return itoa(p.Current) + "/" + itoa(p.Total)
}

func atoiSafe(s string) int {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return n
		}
		n = n*10 + int(c-'0')
	}
	return n
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	if neg {
		digits = append([]byte{'-'}, digits...)
	}
	return string(digits)
}

// splitEncodedPair splits an encoding-byte-prefixed TXXX/WXXX-style body
// into its description and NUL-separated following values.
func splitEncodedPair(body []byte) (desc string, rest []string, ok bool) {
	if len(body) == 0 {
		return "", nil, false
	}
	all := ParseText(body)
	if len(all) == 0 {
		return "", nil, false
	}
	return all[0], all[1:], true
}

func joinEncodedPair(desc string, rest []string) []byte {
	values := append([]string{desc}, rest...)
	return RenderText(EncodingUTF8, values)
}

// splitNUL splits body on the nth NUL byte into exactly n+1 parts, used for
// owner-prefixed binary frames (PRIV, UFID) whose owner/email field is
// always Latin-1 and NUL-terminated regardless of any encoding byte.
func splitNUL(body []byte, n int) [][]byte {
	var parts [][]byte
	start := 0
	for i := 0; i < n; i++ {
		idx := indexByte(body, start, 0x00)
		if idx < 0 {
			return parts
		}
		parts = append(parts, body[start:idx])
		start = idx + 1
	}
	parts = append(parts, body[start:])
	return parts
}

func indexByte(b []byte, from int, c byte) int {
	for i := from; i < len(b); i++ {
		if b[i] == c {
			return i
		}
	}
	return -1
}

func parsePictureID3(body []byte) (Picture, bool) {
	if len(body) < 1 {
		return Picture{}, false
	}
	enc := body[0]
	rest := body[1:]
	mimeEnd := indexByte(rest, 0, 0x00)
	if mimeEnd < 0 {
		return Picture{}, false
	}
	mime := string(rest[:mimeEnd])
	rest = rest[mimeEnd+1:]
	if len(rest) < 1 {
		return Picture{}, false
	}
	picType := rest[0]
	rest = rest[1:]

	descBytes, data, ok := splitTextField(enc, rest)
	if !ok {
		return Picture{}, false
	}
	desc := ""
	if ds := ParseText(append([]byte{enc}, descBytes...)); len(ds) > 0 {
		desc = ds[0]
	}
	return Picture{MIME: mime, Type: picType, Description: desc, Data: data}, true
}

// splitTextField splits a description+terminator+binary-remainder field,
// where the terminator is one NUL for Latin1/UTF8 and two NUL bytes
// (UTF-16 code unit boundary) for UTF16/UTF16BE.
func splitTextField(enc byte, rest []byte) (desc, remainder []byte, ok bool) {
	if enc == byte(EncodingUTF16) || enc == byte(EncodingUTF16BE) {
		for i := 0; i+1 < len(rest); i += 2 {
			if rest[i] == 0 && rest[i+1] == 0 {
				return rest[:i], rest[i+2:], true
			}
		}
		return nil, nil, false
	}
	idx := indexByte(rest, 0, 0x00)
	if idx < 0 {
		return nil, nil, false
	}
	return rest[:idx], rest[idx+1:], true
}

func serialisePictureID3(p Picture) []byte {
	var buf []byte
	buf = append(buf, byte(EncodingUTF8))
	buf = append(buf, []byte(p.MIME)...)
	buf = append(buf, 0x00)
	buf = append(buf, p.Type)
	buf = append(buf, []byte(p.Description)...)
	buf = append(buf, 0x00)
	buf = append(buf, p.Data...)
	return buf
}

// encodeUint32 renders v as four big-endian bytes, the layout of a
// PCNT/counter style binary field.
func encodeUint32(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}
