// Package tagmodel is the canonical in-memory representation of tags
// shared by all four decoders: ID3 frames, Vorbis comments (FLAC/OGG), and
// MP4 ilst atoms all resolve to the same closed set of TagValue shapes, so
// a caller working with tags never needs to know which container produced
// them.
package tagmodel

// Kind is the closed set of tag value shapes described in spec.md §3.2.
type Kind int

const (
	KindText Kind = iota
	KindPicture
	KindPair
	KindBinary
)

// Picture is an embedded-image value, shared by ID3 APIC, FLAC PICTURE and
// MP4 covr — unifying what the original mutagen implementation models as
// three separate picture classes (see SPEC_FULL.md §5.6).
type Picture struct {
	MIME        string
	Type        uint8 // 0..20, spec.md §3.2
	Description string
	Width       uint32
	Height      uint32
	Depth       uint32
	Colors      uint32
	Data        []byte
}

// Pair is a (current, total) value, e.g. MP4 trkn/disk or ID3 TRCK/TPOS
// once split on '/'.
type Pair struct {
	Current int
	Total   int
}

// Value is the value half of a tag-collection entry: an ordered sequence of
// one of the four kinds. Exactly one of the slices is populated, matching
// Kind.
type Value struct {
	Kind     Kind
	Text     []string
	Pictures []Picture
	Pairs    []Pair
	Binary   [][]byte
}

// NewText builds a text-kind Value, de-duplicating nothing (ordering and
// duplicates are both meaningful per spec.md §3.2).
func NewText(values ...string) Value {
	return Value{Kind: KindText, Text: values}
}

// NewPicture builds a single-picture Value.
func NewPicture(p Picture) Value {
	return Value{Kind: KindPicture, Pictures: []Picture{p}}
}

// NewPairs builds a paired-integer Value (trkn/disk style).
func NewPairs(pairs ...Pair) Value {
	return Value{Kind: KindPair, Pairs: pairs}
}

// NewBinary builds an opaque-bytes Value.
func NewBinary(data ...[]byte) Value {
	return Value{Kind: KindBinary, Binary: data}
}

// Clone deep-copies a Value so cache hits can hand callers an independent
// copy (spec.md §4.7, "a hit returns a deep copy").
func (v Value) Clone() Value {
	out := Value{Kind: v.Kind}
	if v.Text != nil {
		out.Text = append([]string(nil), v.Text...)
	}
	if v.Pictures != nil {
		out.Pictures = make([]Picture, len(v.Pictures))
		for i, p := range v.Pictures {
			p.Data = append([]byte(nil), p.Data...)
			out.Pictures[i] = p
		}
	}
	if v.Pairs != nil {
		out.Pairs = append([]Pair(nil), v.Pairs...)
	}
	if v.Binary != nil {
		out.Binary = make([][]byte, len(v.Binary))
		for i, b := range v.Binary {
			out.Binary[i] = append([]byte(nil), b...)
		}
	}
	return out
}
