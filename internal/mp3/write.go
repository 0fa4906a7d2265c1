package mp3

import (
	"github.com/kestrel-audio/tagcore/internal/bytecursor"
	"github.com/kestrel-audio/tagcore/internal/tagmodel"
)

// V1Policy controls what Write does with an existing (or absent) ID3v1
// trailer (spec.md §8 "v1_policy").
type V1Policy int

const (
	V1Keep V1Policy = iota
	V1Create
	V1Remove
)

// WriteOptions mirrors spec.md §8's write() option struct.
type WriteOptions struct {
	PadMin       uint32
	V1           V1Policy
	StripPadding bool
}

const defaultPadMin = 1024

// Write re-serialises col back over original (the full original file
// bytes) per spec.md §4.3 "Writes": when the new frame bytes fit in the old
// tag's body span, the tag is rebuilt over that span (same total size,
// unless the new body plus PadMin padding needs more room) and every byte
// after the old tag is kept; otherwise, or with StripPadding, a fresh tag
// is prepended to the audio found from the first frame sync after the old
// tag's end.
func Write(original []byte, col *tagmodel.Collection, opts WriteOptions) ([]byte, error) {
	c := bytecursor.New(original)
	c.Seek(0)

	oldSpanEnd := int64(0)
	if v2, err := ParseID3v2(c); err == nil {
		oldSpanEnd = v2.SpanEnd
	}

	newBody := encodeID3v2Body(col)
	padMin := opts.PadMin
	if padMin == 0 {
		padMin = defaultPadMin
	}

	var out []byte
	oldBodySpan := oldSpanEnd - 10 // buildID3v2Tag adds its own 10-byte header
	if oldSpanEnd > 0 && !opts.StripPadding && int64(len(newBody)) <= oldBodySpan {
		padded := int64(len(newBody)) + int64(padMin)
		targetSpan := oldBodySpan
		if padded > targetSpan {
			targetSpan = padded
		}
		tag := buildID3v2Tag(newBody, targetSpan)
		out = append(out, tag...)
		out = append(out, original[oldSpanEnd:]...)
	} else {
		audioStart := oldSpanEnd
		if oldSpanEnd > 0 {
			if _, off, ok := FindSync(original[oldSpanEnd:], 0); ok {
				audioStart = oldSpanEnd + int64(off)
			}
		} else if _, off, ok := FindSync(original, 0); ok {
			audioStart = int64(off)
		}
		pad := int64(padMin)
		if opts.StripPadding {
			pad = 0
		}
		tag := buildID3v2Tag(newBody, int64(len(newBody))+pad)
		out = append(out, tag...)
		out = append(out, original[audioStart:]...)
	}

	out = applyV1Policy(out, col, opts.V1)
	return out, nil
}

// encodeID3v2Body returns the frame bytes only (no outer 10-byte header),
// so the caller can compute and pad the final span size first.
func encodeID3v2Body(col *tagmodel.Collection) []byte {
	full := EncodeID3v2(col)
	return full[10:]
}

func buildID3v2Tag(body []byte, span int64) []byte {
	padded := make([]byte, span)
	copy(padded, body)

	header := make([]byte, 10)
	copy(header[0:3], "ID3")
	header[3] = 4
	header[4] = 0
	header[5] = 0
	sz := bytecursor.EncodeSynchsafe32(uint32(span))
	copy(header[6:10], sz[:])

	return append(header, padded...)
}

// applyV1Policy strips, preserves, or (re)creates the ID3v1 trailer on the
// already-assembled output bytes, per the caller's policy.
func applyV1Policy(out []byte, col *tagmodel.Collection, policy V1Policy) []byte {
	existing, has := trailingID3v1(out)

	switch policy {
	case V1Remove:
		if has {
			return out[:len(out)-id3v1Size]
		}
		return out
	case V1Create:
		tag := collectionToID3v1(col, existing)
		if has {
			return append(out[:len(out)-id3v1Size], EncodeID3v1(tag)...)
		}
		return append(out, EncodeID3v1(tag)...)
	default: // V1Keep
		return out
	}
}

func trailingID3v1(data []byte) (*ID3v1, bool) {
	if len(data) < id3v1Size {
		return nil, false
	}
	tag, err := ParseID3v1(data[len(data)-id3v1Size:])
	if err != nil {
		return nil, false
	}
	return tag, true
}

// collectionToID3v1 maps the canonical tag collection down to the fixed
// ID3v1 fields, truncating values to fit (spec.md §4.3's ID3v1 is a strict
// subset of what ID3v2 can express). Falls back to an already-present
// ID3v1 tag's fields for anything the collection doesn't cover.
func collectionToID3v1(col *tagmodel.Collection, fallback *ID3v1) *ID3v1 {
	tag := &ID3v1{}
	if fallback != nil {
		tag = &ID3v1{Title: fallback.Title, Artist: fallback.Artist, Album: fallback.Album, Year: fallback.Year, Comment: fallback.Comment, Track: fallback.Track, Genre: fallback.Genre}
	}
	if v, ok := col.Get("TIT2"); ok && len(v.Text) > 0 {
		tag.Title = v.Text[0]
	}
	if v, ok := col.Get("TPE1"); ok && len(v.Text) > 0 {
		tag.Artist = v.Text[0]
	}
	if v, ok := col.Get("TALB"); ok && len(v.Text) > 0 {
		tag.Album = v.Text[0]
	}
	if v, ok := col.Get("TDRC"); ok && len(v.Text) > 0 {
		tag.Year = v.Text[0]
	}
	if v, ok := col.Get("TRCK"); ok && len(v.Pairs) > 0 {
		tag.Track = uint8(v.Pairs[0].Current)
	}
	return tag
}
