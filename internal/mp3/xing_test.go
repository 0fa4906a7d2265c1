package mp3

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
)

func sampleStereoV1Header() FrameHeader {
	h, err := ParseFrameHeader(mpeg1Layer3Header())
	if err != nil {
		panic(err)
	}
	return h
}

func TestParseVBRHeadersXingFramesAndBytes(t *testing.T) {
	h := sampleStereoV1Header()
	off := sideInfoOffset(h)

	frame := make([]byte, off+8)
	copy(frame[off:], "Xing")
	binary.BigEndian.PutUint32(frame[off+4:], 0x3) // frames + bytes flags
	frame = append(frame, make([]byte, 8)...)
	binary.BigEndian.PutUint32(frame[off+8:], 1000)  // total frames
	binary.BigEndian.PutUint32(frame[off+12:], 50000) // total bytes

	info := ParseVBRHeaders(frame, h)
	assert.NotNil(t, info)
	assert.Equal(t, BitrateVBR, info.Mode)
	assert.True(t, info.HasFrames)
	assert.Equal(t, uint32(1000), info.TotalFrames)
	assert.True(t, info.HasBytes)
	assert.Equal(t, uint32(50000), info.TotalBytes)
}

func TestParseVBRHeadersInfoIsCBRLikeXing(t *testing.T) {
	h := sampleStereoV1Header()
	off := sideInfoOffset(h)

	frame := make([]byte, off+8)
	copy(frame[off:], "Info")
	binary.BigEndian.PutUint32(frame[off+4:], 0) // no optional fields

	info := ParseVBRHeaders(frame, h)
	assert.NotNil(t, info)
	assert.Equal(t, BitrateCBR, info.Mode)
	assert.False(t, info.HasFrames)
}

func TestParseVBRHeadersVBRI(t *testing.T) {
	frame := make([]byte, 36+26)
	copy(frame[36:], "VBRI")
	binary.BigEndian.PutUint32(frame[36+10:], 99999) // total bytes
	binary.BigEndian.PutUint32(frame[36+14:], 2000)   // total frames

	h := sampleStereoV1Header()
	info := ParseVBRHeaders(frame, h)
	assert.NotNil(t, info)
	assert.Equal(t, BitrateVBR, info.Mode)
	assert.Equal(t, uint32(2000), info.TotalFrames)
	assert.Equal(t, uint32(99999), info.TotalBytes)
}

func TestParseVBRHeadersNoneFound(t *testing.T) {
	h := sampleStereoV1Header()
	frame := make([]byte, 64)
	info := ParseVBRHeaders(frame, h)
	assert.Nil(t, info)
}

func TestFindLAMEDecodesReplayGain(t *testing.T) {
	data := make([]byte, 8)
	lameBlock := append([]byte("LAME3.99r"), make([]byte, 20)...)
	data = append(data, lameBlock...)

	// track gain: name=1,originator=3,sign=0,gain=60 (6.0dB) -> bits: 001 011 0 000111100
	trackGain := uint16(1<<13 | 3<<10 | 0<<9 | 60)
	binary.BigEndian.PutUint16(data[8+9+14:], trackGain)

	lame := findLAME(data)
	assert.NotNil(t, lame)
	assert.Equal(t, "LAME3.99r", lame.EncoderInfo)
	assert.InDelta(t, 6.0, lame.TrackGainDB, 0.01)
}

func TestReplayGainToDBNegative(t *testing.T) {
	v := uint16(1<<9 | 50) // sign bit set, 5.0dB magnitude
	assert.InDelta(t, -5.0, replayGainToDB(v), 0.01)
}
