package mp3

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// mpeg1Layer3Header builds a 128kbps, 44.1kHz, joint-stereo, unpadded
// MPEGv1 Layer III frame header word.
func mpeg1Layer3Header() uint32 {
	var word uint32
	word |= 0x7FF << 21   // sync
	word |= 0b11 << 19    // version: MPEG1
	word |= 0b01 << 17    // layer: III
	// protection bit left 0: CRC present, Protected == true
	word |= 0x9 << 12     // bitrate index -> 128kbps
	word |= 0b00 << 10    // samplerate index -> 44100
	word |= 0 << 9        // no padding
	word |= 0b01 << 6     // joint stereo
	return word
}

func TestParseFrameHeaderMPEG1Layer3(t *testing.T) {
	h, err := ParseFrameHeader(mpeg1Layer3Header())
	assert.NoError(t, err)
	assert.Equal(t, Version1, h.Version)
	assert.Equal(t, LayerIII, h.Layer)
	assert.True(t, h.Protected)
	assert.Equal(t, uint32(128000), h.BitrateBps)
	assert.Equal(t, uint32(44100), h.SampleRate)
	assert.Equal(t, ModeJointStereo, h.Mode)
	assert.Equal(t, uint8(2), h.Mode.Channels())
}

func TestParseFrameHeaderRejectsReservedBitrate(t *testing.T) {
	word := mpeg1Layer3Header()
	word &^= 0xF << 12
	word |= 0xF << 12 // bitrate index 15 is reserved/bad
	_, err := ParseFrameHeader(word)
	assert.Error(t, err)
}

func TestParseFrameHeaderRejectsReservedSampleRate(t *testing.T) {
	word := mpeg1Layer3Header()
	word |= 0b11 << 10 // samplerate index 3 is reserved
	_, err := ParseFrameHeader(word)
	assert.Error(t, err)
}

func TestFrameSizeLayer3(t *testing.T) {
	h, err := ParseFrameHeader(mpeg1Layer3Header())
	assert.NoError(t, err)
	// 144 * bitrate / samplerate for Layer III, unpadded.
	assert.Equal(t, 1152/8*128000/44100, h.FrameSize)
}

func TestFindSyncSkipsGarbageBeforeSync(t *testing.T) {
	word := mpeg1Layer3Header()
	header := []byte{byte(word >> 24), byte(word >> 16), byte(word >> 8), byte(word)}
	buf := append([]byte{0x00, 0x01, 0x02}, header...)
	h, offset, ok := FindSync(buf, 0)
	assert.True(t, ok)
	assert.Equal(t, 3, offset)
	assert.Equal(t, Version1, h.Version)
}

func TestFindSyncNoMatch(t *testing.T) {
	_, _, ok := FindSync([]byte{0x00, 0x01, 0x02, 0x03}, 0)
	assert.False(t, ok)
}
