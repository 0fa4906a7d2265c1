package mp4

import (
	"github.com/kestrel-audio/tagcore/internal/bytecursor"
	"github.com/kestrel-audio/tagcore/internal/tagmodel"
)

// Write re-serialises col back into original's moov/udta/meta/ilst per
// spec.md §4.6 "Writes": re-encode moov; if its size is unchanged, patch
// the bytes in place; otherwise rewrite the file and, when moov precedes
// mdat (so mdat's absolute offset shifts by moov's size delta), fix up
// every stco/co64 sample-offset table by that delta.
func Write(original []byte, col *tagmodel.Collection) ([]byte, error) {
	info, err := Decode(bytecursor.New(original))
	if err != nil {
		return nil, err
	}

	newMoov := replaceIlst(info.Moov, col)
	oldSize := info.Moov.End - info.Moov.Start
	newBytes := newMoov.Encode()

	if int64(len(newBytes)) == oldSize {
		out := append([]byte(nil), original...)
		copy(out[info.Moov.Start:info.Moov.End], newBytes)
		return out, nil
	}

	delta := int64(len(newBytes)) - oldSize
	if moovPrecedesMdat(info.TopLevel) && delta != 0 {
		patchChunkOffsets(&newMoov, delta)
		newBytes = newMoov.Encode()
	}

	var out []byte
	out = append(out, original[:info.Moov.Start]...)
	out = append(out, newBytes...)
	out = append(out, original[info.Moov.End:]...)
	return out, nil
}

// replaceIlst returns a copy of the moov tree with its udta/meta/ilst
// subtree replaced by a freshly encoded one built from col (creating
// udta/meta if the original file had no tags at all).
func replaceIlst(moov Atom, col *tagmodel.Collection) Atom {
	newIlst := EncodeIlst(col)

	udta, hasUdta := moov.Find("udta")
	if !hasUdta {
		udta = Atom{Type: "udta", Children: []Atom{{Type: "meta", Children: []Atom{newIlst}}}}
	} else {
		meta, hasMeta := udta.Find("meta")
		if !hasMeta {
			meta = Atom{Type: "meta", Children: []Atom{newIlst}}
		} else {
			meta = replaceChild(meta, "ilst", newIlst)
		}
		udta = replaceChild(udta, "meta", meta)
	}
	return replaceChild(moov, "udta", udta)
}

// replaceChild returns a copy of parent with its first child of the given
// type replaced (or appended, if absent).
func replaceChild(parent Atom, childType string, replacement Atom) Atom {
	out := parent
	out.Children = append([]Atom(nil), parent.Children...)
	for i, c := range out.Children {
		if c.Type == childType {
			out.Children[i] = replacement
			return out
		}
	}
	out.Children = append(out.Children, replacement)
	return out
}

func moovPrecedesMdat(topLevel []Atom) bool {
	var moovStart, mdatStart int64 = -1, -1
	for _, a := range topLevel {
		switch a.Type {
		case "moov":
			moovStart = a.Start
		case "mdat":
			mdatStart = a.Start
		}
	}
	return moovStart >= 0 && mdatStart >= 0 && moovStart < mdatStart
}

// patchChunkOffsets walks a moov tree in place, adding delta to every
// stco (32-bit) and co64 (64-bit) chunk-offset table entry.
func patchChunkOffsets(moov *Atom, delta int64) {
	for i := range moov.Children {
		patchChunkOffsetsRec(&moov.Children[i], delta)
	}
}

func patchChunkOffsetsRec(a *Atom, delta int64) {
	switch a.Type {
	case "stco":
		a.Payload = patchStco(a.Payload, delta)
		return
	case "co64":
		a.Payload = patchCo64(a.Payload, delta)
		return
	}
	for i := range a.Children {
		patchChunkOffsetsRec(&a.Children[i], delta)
	}
}

func patchStco(body []byte, delta int64) []byte {
	if len(body) < 8 {
		return body
	}
	out := append([]byte(nil), body...)
	count := be32(out[4:8])
	for i := uint32(0); i < count; i++ {
		off := 8 + i*4
		if int(off)+4 > len(out) {
			break
		}
		v := be32(out[off:off+4]) + uint32(delta)
		out[off] = byte(v >> 24)
		out[off+1] = byte(v >> 16)
		out[off+2] = byte(v >> 8)
		out[off+3] = byte(v)
	}
	return out
}

func patchCo64(body []byte, delta int64) []byte {
	if len(body) < 8 {
		return body
	}
	out := append([]byte(nil), body...)
	count := be32(out[4:8])
	for i := uint32(0); i < count; i++ {
		off := 8 + i*8
		if int(off)+8 > len(out) {
			break
		}
		v := be64(out[off:off+8]) + uint64(delta)
		for b := 0; b < 8; b++ {
			out[off+uint32(b)] = byte(v >> uint(56-8*b))
		}
	}
	return out
}
