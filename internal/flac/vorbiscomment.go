package flac

import (
	"encoding/binary"
	"strings"

	"github.com/kestrel-audio/tagcore/internal/tagerr"
	"github.com/kestrel-audio/tagcore/internal/tagmodel"
)

// ParseVorbisComment decodes a VORBIS_COMMENT block body per the Xiph
// vendor_string + comment-list layout (spec.md §4.4 step 3), shared
// verbatim by FLAC and OGG since both carry the same comment-header shape.
func ParseVorbisComment(body []byte) (*tagmodel.Collection, string, error) {
	if len(body) < 4 {
		return nil, "", tagerr.NewMalformed("flac", "vorbis-comment", 0, "too short for vendor length")
	}
	pos := 0
	vendorLen := binary.LittleEndian.Uint32(body[pos:])
	pos += 4
	if pos+int(vendorLen) > len(body) {
		return nil, "", tagerr.NewMalformed("flac", "vorbis-comment", int64(pos), "vendor string overruns block")
	}
	vendor := string(body[pos : pos+int(vendorLen)])
	pos += int(vendorLen)

	if pos+4 > len(body) {
		return nil, "", tagerr.NewMalformed("flac", "vorbis-comment", int64(pos), "missing comment count")
	}
	count := binary.LittleEndian.Uint32(body[pos:])
	pos += 4

	col := tagmodel.NewCollection(true)
	for i := uint32(0); i < count; i++ {
		if pos+4 > len(body) {
			break // truncated comment list: keep what parsed so far
		}
		n := binary.LittleEndian.Uint32(body[pos:])
		pos += 4
		if pos+int(n) > len(body) {
			break
		}
		field := string(body[pos : pos+int(n)])
		pos += int(n)

		eq := strings.IndexByte(field, '=')
		if eq < 0 {
			continue // malformed "KEY=VALUE" pair, drop (spec.md §4.4 tolerant read)
		}
		key, value := field[:eq], field[eq+1:]
		col.Add(key, tagmodel.NewText(value))
	}
	return col, vendor, nil
}

// EncodeVorbisComment serialises col (a foldLookup, case-preserving
// collection) back into a VORBIS_COMMENT block body.
func EncodeVorbisComment(col *tagmodel.Collection, vendor string) []byte {
	var out []byte
	vlen := make([]byte, 4)
	binary.LittleEndian.PutUint32(vlen, uint32(len(vendor)))
	out = append(out, vlen...)
	out = append(out, vendor...)

	var fields []string
	col.Each(func(key string, v tagmodel.Value) {
		for _, t := range v.Text {
			fields = append(fields, key+"="+t)
		}
	})

	count := make([]byte, 4)
	binary.LittleEndian.PutUint32(count, uint32(len(fields)))
	out = append(out, count...)
	for _, f := range fields {
		flen := make([]byte, 4)
		binary.LittleEndian.PutUint32(flen, uint32(len(f)))
		out = append(out, flen...)
		out = append(out, f...)
	}
	return out
}
