// Package mp4 implements the ISO Base Media File Format (MP4/M4A/M4B)
// decoder: atom tree walk, stsd/mp4a/alac/esds stream-property derivation,
// ilst tag atoms, and the moov-patch-or-rewrite write policy (spec.md
// §4.6). No example repo in the retrieved pack ships an MP4/atom-tree
// decoder, so the walker's shape is grounded on this module's own FLAC
// metadata-block walk (internal/flac's length-prefixed-block loop) and
// the general nested-TLV style the teacher uses for ID3v2 frames,
// generalized to MP4's 32/64-bit size-prefixed, container-or-leaf atoms.
package mp4

import (
	"github.com/kestrel-audio/tagcore/internal/bytecursor"
	"github.com/kestrel-audio/tagcore/internal/tagerr"
)

// Atom is one node of the atom tree: a four-byte type code, its raw
// payload bytes (for a leaf), and, for a container atom, its already-parsed
// children.
type Atom struct {
	Type     string
	Payload  []byte // leaf payload, or raw bytes for atoms this decoder doesn't walk further
	Children []Atom
	Start    int64 // file offset of the size field
	End      int64 // file offset immediately after this atom
}

// containerTypes lists atom types whose payload is itself a sequence of
// atoms (spec.md §4.6). "meta" additionally carries a 4-byte version/flags
// prefix before its children.
var containerTypes = map[string]bool{
	"moov": true, "trak": true, "mdia": true, "minf": true,
	"stbl": true, "udta": true, "ilst": true, "meta": true,
}

// ReadAtoms walks a flat sequence of top-level sibling atoms from c's
// current position to the end of the region c was constructed over.
func ReadAtoms(c *bytecursor.Cursor) ([]Atom, error) {
	return readAtoms(c, "")
}

func readAtoms(c *bytecursor.Cursor, parentType string) ([]Atom, error) {
	var atoms []Atom
	for c.Remaining() > 0 {
		a, err := readAtom(c, parentType)
		if err != nil {
			return atoms, err
		}
		atoms = append(atoms, a)
	}
	return atoms, nil
}

// isContainer reports whether atomType's payload is itself a sequence of
// atoms. Beyond the fixed containerTypes set, every direct child of
// "ilst" other than "data" is also a container: a plain tag atom (e.g.
// "\xa9nam") holds one or more "data" children, and "----" holds
// "mean"/"name"/"data" (spec.md §4.6 "Tags").
func isContainer(atomType, parentType string) bool {
	if containerTypes[atomType] {
		return true
	}
	return parentType == "ilst" && atomType != "data"
}

func readAtom(c *bytecursor.Cursor, parentType string) (Atom, error) {
	start := c.Position()
	size32, err := c.ReadU32BE()
	if err != nil {
		return Atom{}, err
	}
	typeBytes, err := c.ReadN(4)
	if err != nil {
		return Atom{}, err
	}
	atomType := string(typeBytes)

	size := int64(size32)
	headerLen := int64(8)
	switch size32 {
	case 1:
		size64, err := c.ReadU64BE()
		if err != nil {
			return Atom{}, err
		}
		size = int64(size64)
		headerLen = 16
	case 0:
		size = c.Remaining() + headerLen
	}

	payloadLen := size - headerLen
	if payloadLen < 0 {
		return Atom{}, tagerr.NewMalformed("mp4", "atom-size", start, "atom size smaller than its header")
	}

	a := Atom{Type: atomType, Start: start}

	if isContainer(atomType, parentType) {
		metaPrefix := int64(0)
		if atomType == "meta" {
			metaPrefix = 4
			if _, err := c.ReadN(4); err != nil {
				return Atom{}, err
			}
		}
		childCursor, err := c.Sub(payloadLen - metaPrefix)
		if err != nil {
			return Atom{}, err
		}
		children, err := readAtoms(childCursor, atomType)
		if err != nil {
			return Atom{}, err
		}
		a.Children = children
		c.Skip(payloadLen - metaPrefix)
	} else {
		payload, err := c.ReadN(payloadLen)
		if err != nil {
			return Atom{}, err
		}
		a.Payload = payload
	}

	a.End = c.Position()
	return a, nil
}

// Find returns the first direct child of the given type, if any.
func (a Atom) Find(t string) (Atom, bool) {
	for _, c := range a.Children {
		if c.Type == t {
			return c, true
		}
	}
	return Atom{}, false
}

// FindPath walks a sequence of child types from a, one level per argument
// (e.g. FindPath("trak", "mdia", "mdhd")).
func (a Atom) FindPath(path ...string) (Atom, bool) {
	cur := a
	for _, t := range path {
		next, ok := cur.Find(t)
		if !ok {
			return Atom{}, false
		}
		cur = next
	}
	return cur, true
}

// FindAll returns every direct child of the given type.
func (a Atom) FindAll(t string) []Atom {
	var out []Atom
	for _, c := range a.Children {
		if c.Type == t {
			out = append(out, c)
		}
	}
	return out
}

func be32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func be16(b []byte) uint16 {
	return uint16(b[0])<<8 | uint16(b[1])
}

// Encode re-serialises an atom (and, for a container, its children)
// back to bytes, the inverse of readAtom. Used by the write path to
// reflect an edited ilst subtree while leaving every sibling atom's bytes
// exactly as parsed.
func (a Atom) Encode() []byte {
	var body []byte
	if a.Children != nil {
		if a.Type == "meta" {
			body = append(body, 0, 0, 0, 0)
		}
		for _, c := range a.Children {
			body = append(body, c.Encode()...)
		}
	} else {
		body = a.Payload
	}

	size := uint32(8 + len(body))
	out := make([]byte, 0, size)
	out = append(out, byte(size>>24), byte(size>>16), byte(size>>8), byte(size))
	out = append(out, a.Type...)
	out = append(out, body...)
	return out
}
