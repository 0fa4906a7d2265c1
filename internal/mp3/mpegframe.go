package mp3

// MPEG frame header layout and the bitrate/samplerate lookup tables are
// adapted from the teacher's internal/mp3header/parse.go, generalized to
// also report the channel mode name, protection bit, and frame size needed
// to walk a sequence of frames rather than parse a lone header.

import (
	"github.com/kestrel-audio/tagcore/internal/tagerr"
)

type MPEGVersion int

const (
	VersionReserved MPEGVersion = iota
	Version1
	Version2
	Version2_5
)

func (v MPEGVersion) Float() float32 {
	switch v {
	case Version1:
		return 1.0
	case Version2:
		return 2.0
	case Version2_5:
		return 2.5
	default:
		return 0
	}
}

type Layer int

const (
	LayerReserved Layer = iota
	LayerI
	LayerII
	LayerIII
)

type ChannelMode int

const (
	ModeStereo ChannelMode = iota
	ModeJointStereo
	ModeDualChannel
	ModeSingleChannel
)

func (m ChannelMode) Channels() uint8 {
	if m == ModeSingleChannel {
		return 1
	}
	return 2
}

// FrameHeader is one decoded MPEG audio frame header.
type FrameHeader struct {
	Version    MPEGVersion
	Layer      Layer
	Protected  bool
	BitrateBps uint32
	SampleRate uint32
	Padding    bool
	Mode       ChannelMode
	FrameSize  int // bytes, including the 4-byte header
}

var bitrateTableV1 = map[Layer][16]int{
	LayerI:   {0, 32, 64, 96, 128, 160, 192, 224, 256, 288, 320, 352, 384, 416, 448, -1},
	LayerII:  {0, 32, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320, 384, -1},
	LayerIII: {0, 32, 40, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320, -1},
}

var bitrateTableV2 = map[Layer][16]int{
	LayerI:   {0, 32, 48, 56, 64, 80, 96, 112, 128, 144, 160, 176, 192, 224, 256, -1},
	LayerII:  {0, 8, 16, 24, 32, 40, 48, 56, 64, 80, 96, 112, 128, 144, 160, -1},
	LayerIII: {0, 8, 16, 24, 32, 40, 48, 56, 64, 80, 96, 112, 128, 144, 160, -1},
}

var sampleRateTable = map[MPEGVersion][3]int{
	Version1:   {44100, 48000, 32000},
	Version2:   {22050, 24000, 16000},
	Version2_5: {11025, 12000, 8000},
}

var samplesPerFrame = map[Layer]map[MPEGVersion]int{
	LayerI:   {Version1: 384, Version2: 384, Version2_5: 384},
	LayerII:  {Version1: 1152, Version2: 1152, Version2_5: 1152},
	LayerIII: {Version1: 1152, Version2: 576, Version2_5: 576},
}

// ParseFrameHeader decodes a 32-bit big-endian MPEG frame header value
// (spec.md §4.3 "MPEG stream scan"). The sync word (top 11 bits all one)
// must already be confirmed by the caller via FindSync.
func ParseFrameHeader(word uint32) (FrameHeader, error) {
	var h FrameHeader

	versionID := (word >> 19) & 0x3
	switch versionID {
	case 0b00:
		h.Version = Version2_5
	case 0b10:
		h.Version = Version2
	case 0b11:
		h.Version = Version1
	default:
		return h, tagerr.NewInvalidValue("mpeg version id == 01 (reserved)", 0)
	}

	layerID := (word >> 17) & 0x3
	switch layerID {
	case 0b01:
		h.Layer = LayerIII
	case 0b10:
		h.Layer = LayerII
	case 0b11:
		h.Layer = LayerI
	default:
		return h, tagerr.NewInvalidValue("mpeg layer == 00 (reserved)", 0)
	}

	h.Protected = (word>>16)&0x1 == 0 // bit set means NOT protected

	bitrateIndex := int((word >> 12) & 0xF)
	if bitrateIndex == 0 || bitrateIndex == 15 {
		return h, tagerr.NewInvalidValue("mpeg bitrate index free/bad", 0)
	}
	table := bitrateTableV1
	if h.Version != Version1 {
		table = bitrateTableV2
	}
	kbps := table[h.Layer][bitrateIndex]
	if kbps < 0 {
		return h, tagerr.NewInvalidValue("mpeg bitrate index reserved", 0)
	}
	h.BitrateBps = uint32(kbps) * 1000

	sampleIndex := (word >> 10) & 0x3
	if sampleIndex == 0b11 {
		return h, tagerr.NewInvalidValue("mpeg samplerate index reserved", 0)
	}
	h.SampleRate = uint32(sampleRateTable[h.Version][sampleIndex])

	h.Padding = (word>>9)&0x1 == 1

	modeID := (word >> 6) & 0x3
	switch modeID {
	case 0b00:
		h.Mode = ModeStereo
	case 0b01:
		h.Mode = ModeJointStereo
	case 0b10:
		h.Mode = ModeDualChannel
	case 0b11:
		h.Mode = ModeSingleChannel
	}

	h.FrameSize = frameSize(h)
	return h, nil
}

func frameSize(h FrameHeader) int {
	spf := samplesPerFrame[h.Layer][h.Version]
	pad := 0
	if h.Padding {
		pad = 1
	}
	if h.Layer == LayerI {
		// Layer I frames are counted in 4-byte slots.
		return (spf/8*int(h.BitrateBps)/int(h.SampleRate) + pad) * 4
	}
	return spf/8*int(h.BitrateBps)/int(h.SampleRate) + pad
}

// FindSync scans buf starting at from for the first 32-bit big-endian value
// whose top 11 bits are all one and whose header otherwise decodes validly
// (spec.md §4.3 "MPEG stream scan"). Returns the header and the byte offset
// it starts at, or ok=false if no frame sync was found.
func FindSync(buf []byte, from int) (h FrameHeader, offset int, ok bool) {
	for i := from; i+4 <= len(buf); i++ {
		if buf[i] != 0xFF || buf[i+1]&0xE0 != 0xE0 {
			continue
		}
		word := uint32(buf[i])<<24 | uint32(buf[i+1])<<16 | uint32(buf[i+2])<<8 | uint32(buf[i+3])
		parsed, err := ParseFrameHeader(word)
		if err != nil {
			continue
		}
		return parsed, i, true
	}
	return FrameHeader{}, 0, false
}

// SamplesPerFrame returns the number of PCM samples encoded by one frame of
// this header's layer/version, used for Xing-based duration derivation.
func (h FrameHeader) SamplesPerFrame() int {
	return samplesPerFrame[h.Layer][h.Version]
}
