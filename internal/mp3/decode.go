package mp3

import (
	"github.com/kestrel-audio/tagcore/internal/bytecursor"
	"github.com/kestrel-audio/tagcore/internal/tagerr"
	"github.com/kestrel-audio/tagcore/internal/tagmodel"
)

// Info is this decoder's view of a parsed file: stream properties plus the
// merged tag collection, consumed by the root package's StreamInfo mapping.
type Info struct {
	SampleRate    uint32
	Channels      uint8
	BitrateBps    uint32
	LengthSeconds float64

	MPEGVersion float32
	MPEGLayer   uint8
	ChannelMode ChannelMode
	Protected   bool
	BitrateMode BitrateMode
	Lame        *LameInfo

	Collection  *tagmodel.Collection
	Diagnostics []tagerr.Diagnostic

	id3v2End int64 // span end of any ID3v2 tag, for write-back
	id3v1At  int64 // byte offset of an ID3v1 trailer, -1 if absent
}

const apeTrailerMagic = "APETAGEX"
const apeFooterSize = 32
const apeFlagHasHeader = 1 << 31

// skipAPEv2 recognises (but does not parse) a trailing APEv2 tag, per
// spec.md §4.3 step 1's "skip-only" note: its presence would otherwise be
// counted as audio data when no Xing/VBRI frame count is available to
// derive duration instead.
func skipAPEv2(region []byte) int64 {
	if len(region) < apeFooterSize {
		return int64(len(region))
	}
	footer := region[len(region)-apeFooterSize:]
	if string(footer[0:8]) != apeTrailerMagic {
		return int64(len(region))
	}
	tagSize := le32(footer[12:16])
	flags := le32(footer[20:24])

	total := int64(tagSize)
	if flags&apeFlagHasHeader != 0 {
		total += apeFooterSize
	}
	cut := int64(len(region)) - total
	if cut < 0 {
		return int64(len(region))
	}
	return cut
}

func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

// Decode walks a whole MP3 file per spec.md §4.3 step 1: ID3v2 (if present)
// at the start, an MPEG frame sync scan for stream properties and
// Xing/VBRI/LAME recognition, then an ID3v1 (and APEv2, skip-only) trailer
// check at the end. Both tag sources are merged into one Collection, with
// ID3v2 taking precedence on key collision (spec.md §4.3 "merge order").
func Decode(c *bytecursor.Cursor) (*Info, error) {
	info := &Info{id3v1At: -1}
	col := tagmodel.NewCollection(false)

	c.Seek(0)
	v2, err := ParseID3v2(c)
	switch {
	case err == nil:
		info.id3v2End = v2.SpanEnd
		info.Diagnostics = append(info.Diagnostics, v2.Diagnostics...)
		v2.Collection.Each(func(key string, v tagmodel.Value) { col.Add(key, v) })
	default:
		// No ID3v2 tag is not fatal (spec.md §7): keep scanning from offset 0.
		c.Seek(0)
	}

	audioStart := c.Position()
	whole, err := c.Peek(c.Remaining())
	if err != nil {
		return nil, err
	}

	audioEnd := int64(len(whole))
	if v1, offset, ok := findID3v1(c); ok {
		info.id3v1At = offset
		v1Col := v1.ToCollection()
		v1Col.Each(func(key string, v tagmodel.Value) {
			if _, exists := col.Get(key); exists {
				return // ID3v2 already supplied this key
			}
			col.Add(key, v)
		})
		audioEnd = offset - audioStart
	}
	if audioEnd < 0 || audioEnd > int64(len(whole)) {
		audioEnd = int64(len(whole))
	}
	audioEnd = skipAPEv2(whole[:audioEnd])

	audio := whole[:audioEnd]
	h, offset, ok := FindSync(audio, 0)
	if !ok {
		info.Collection = col
		return info, tagerr.NewMalformed("mp3", "frame-sync", audioStart, "no valid MPEG frame sync found")
	}

	info.MPEGVersion = h.Version.Float()
	info.MPEGLayer = uint8(h.Layer)
	info.Protected = h.Protected
	info.ChannelMode = h.Mode
	info.Channels = h.Mode.Channels()
	info.SampleRate = h.SampleRate

	frameEnd := offset + h.FrameSize
	var vbr *VBRInfo
	if frameEnd <= len(audio) {
		vbr = ParseVBRHeaders(audio[offset:frameEnd], h)
	}

	if vbr != nil && vbr.HasFrames {
		info.BitrateMode = vbr.Mode
		info.Lame = vbr.Lame
		totalSamples := uint64(vbr.TotalFrames) * uint64(h.SamplesPerFrame())
		if h.SampleRate > 0 {
			info.LengthSeconds = float64(totalSamples) / float64(h.SampleRate)
		}
		if vbr.HasBytes && info.LengthSeconds > 0 {
			info.BitrateBps = uint32(float64(vbr.TotalBytes) * 8 / info.LengthSeconds)
		} else {
			info.BitrateBps = h.BitrateBps
		}
	} else {
		// No Xing/Info/VBRI header: this frame's header bitrate could be a
		// true CBR stream or just the first frame of a VBR stream with no
		// recognised header, so spec.md §4.3 calls the mode UNKNOWN rather
		// than assuming CBR.
		info.BitrateMode = BitrateUnknown
		info.BitrateBps = h.BitrateBps
		audioBytes := len(audio) - offset
		if h.BitrateBps > 0 {
			info.LengthSeconds = float64(audioBytes*8) / float64(h.BitrateBps)
		}
	}

	info.Collection = col
	return info, nil
}
