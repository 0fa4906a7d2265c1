package mp3

import (
	"testing"

	"github.com/kestrel-audio/tagcore/internal/bytecursor"
	"github.com/stretchr/testify/assert"
)

func mpegAudioFrameBytes() []byte {
	word := mpeg1Layer3Header()
	h, err := ParseFrameHeader(word)
	if err != nil {
		panic(err)
	}
	frame := make([]byte, h.FrameSize)
	frame[0] = byte(word >> 24)
	frame[1] = byte(word >> 16)
	frame[2] = byte(word >> 8)
	frame[3] = byte(word)
	return frame
}

func buildMinimalMP3(withID3v1 bool) []byte {
	textBody := append([]byte{0x03}, []byte("Decoded Title")...)
	frame := buildID3v2Frame("TIT2", textBody, true)
	tag := makeV2TagBytes(4, frame)

	out := append([]byte{}, tag...)
	out = append(out, mpegAudioFrameBytes()...)
	out = append(out, mpegAudioFrameBytes()...)

	if withID3v1 {
		v1 := &ID3v1{Title: "V1 Title", Artist: "V1 Artist"}
		out = append(out, EncodeID3v1(v1)...)
	}
	return out
}

func TestDecodeMergesID3v2AndStreamProperties(t *testing.T) {
	data := buildMinimalMP3(false)
	info, err := Decode(bytecursor.New(data))
	assert.NoError(t, err)

	v, ok := info.Collection.Get("TIT2")
	assert.True(t, ok)
	assert.Equal(t, []string{"Decoded Title"}, v.Text)

	assert.Equal(t, uint32(44100), info.SampleRate)
	assert.Equal(t, uint8(2), info.Channels)
	assert.Equal(t, uint32(128000), info.BitrateBps)
	assert.Equal(t, BitrateUnknown, info.BitrateMode)
	assert.Greater(t, info.LengthSeconds, 0.0)
}

func TestDecodeID3v1FillsGapsNotOverridingID3v2(t *testing.T) {
	data := buildMinimalMP3(true)
	info, err := Decode(bytecursor.New(data))
	assert.NoError(t, err)

	// ID3v2 TIT2 wins over ID3v1's title.
	v, ok := info.Collection.Get("TIT2")
	assert.True(t, ok)
	assert.Equal(t, []string{"Decoded Title"}, v.Text)

	// ID3v1 supplies TPE1, absent from the synthetic ID3v2 tag.
	v, ok = info.Collection.Get("TPE1")
	assert.True(t, ok)
	assert.Equal(t, []string{"V1 Artist"}, v.Text)
}

func TestDecodeNoID3v2StillFindsAudio(t *testing.T) {
	data := mpegAudioFrameBytes()
	data = append(data, mpegAudioFrameBytes()...)

	info, err := Decode(bytecursor.New(data))
	assert.NoError(t, err)
	assert.Equal(t, uint32(44100), info.SampleRate)
	assert.Equal(t, 0, info.Collection.Len())
}

func TestDecodeNoSyncIsMalformed(t *testing.T) {
	data := []byte{0x00, 0x01, 0x02, 0x03, 0x04}
	_, err := Decode(bytecursor.New(data))
	assert.Error(t, err)
}

func TestSkipAPEv2RecognisesFooterOnlyTag(t *testing.T) {
	audio := mpegAudioFrameBytes()
	footer := make([]byte, apeFooterSize)
	copy(footer[0:8], apeTrailerMagic)
	tagSize := uint32(apeFooterSize) // footer only, no items, no header
	footer[12] = byte(tagSize)
	footer[13] = byte(tagSize >> 8)
	footer[14] = byte(tagSize >> 16)
	footer[15] = byte(tagSize >> 24)

	region := append(append([]byte{}, audio...), footer...)
	cut := skipAPEv2(region)
	assert.Equal(t, int64(len(audio)), cut)
}
