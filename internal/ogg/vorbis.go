package ogg

import "github.com/kestrel-audio/tagcore/internal/tagerr"

// IDHeader is the mandatory first Vorbis packet (header type 1). Field
// layout grounded on the pack's other_examples taggolib.oggIDHeader /
// parseOGGIDHeader.
type IDHeader struct {
	VorbisVersion uint32
	ChannelCount  uint8
	SampleRate    uint32
	MaxBitrate    uint32
	NomBitrate    uint32
	MinBitrate    uint32
	Blocksize0    uint8
	Blocksize1    uint8
	Framing       bool
}

const (
	headerTypeID      = 1
	headerTypeComment = 3
	headerTypeSetup   = 5
)

var vorbisWord = []byte("vorbis")

// parseCommonHeader reads the 1-byte packet type then verifies the 6-byte
// "vorbis" word that follows every Vorbis header packet.
func parseCommonHeader(payload []byte) (headerType byte, rest []byte, err error) {
	if len(payload) < 7 {
		return 0, nil, tagerr.NewMalformed("ogg", "vorbis-common-header", 0, "packet too short")
	}
	headerType = payload[0]
	if string(payload[1:7]) != string(vorbisWord) {
		return 0, nil, tagerr.NewMalformed("ogg", "vorbis-common-header", 0, "missing vorbis word")
	}
	return headerType, payload[7:], nil
}

// ParseIDHeader decodes the identification packet's payload (the first
// page's single packet).
func ParseIDHeader(payload []byte) (IDHeader, error) {
	headerType, body, err := parseCommonHeader(payload)
	if err != nil {
		return IDHeader{}, err
	}
	if headerType != headerTypeID {
		return IDHeader{}, tagerr.NewMalformed("ogg", "vorbis-id-header", 0, "unexpected header type")
	}
	if len(body) < 4+1+4+4+4+4+1 {
		return IDHeader{}, tagerr.NewMalformed("ogg", "vorbis-id-header", 0, "packet too short")
	}

	var h IDHeader
	h.VorbisVersion = le32(body[0:4])
	if h.VorbisVersion != 0 {
		return IDHeader{}, tagerr.NewUnsupportedVersion("ogg", "vorbis-"+itoa(int(h.VorbisVersion)))
	}
	h.ChannelCount = body[4]
	h.SampleRate = le32(body[5:9])
	h.MaxBitrate = le32(body[9:13])
	h.NomBitrate = le32(body[13:17])
	h.MinBitrate = le32(body[17:21])

	blockByte := body[21]
	h.Blocksize0 = blockByte & 0x0F
	h.Blocksize1 = (blockByte >> 4) & 0x0F
	h.Framing = len(body) > 22 && body[22]&0x1 != 0

	return h, nil
}

func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
