package flac

import (
	"testing"

	"github.com/kestrel-audio/tagcore/internal/bytecursor"
	"github.com/kestrel-audio/tagcore/internal/tagmodel"
	"github.com/stretchr/testify/assert"
)

func sampleStreamInfo() StreamInfo {
	return StreamInfo{
		MinBlockSize:  4096,
		MaxBlockSize:  4096,
		MinFrameSize:  1000,
		MaxFrameSize:  5000,
		SampleRate:    44100,
		Channels:      2,
		BitsPerSample: 16,
		TotalSamples:  123456789,
		MD5Signature:  [16]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16},
	}
}

func TestStreamInfoRoundTrip(t *testing.T) {
	si := sampleStreamInfo()
	body := encodeStreamInfoBody(si)
	got, err := ParseStreamInfo(body)
	assert.NoError(t, err)
	assert.Equal(t, si, got)
}

func TestParseBlockHeaderFields(t *testing.T) {
	word := uint32(0x80000000) | uint32(4)<<24 | uint32(128)
	h := ParseBlockHeader(word)
	assert.True(t, h.Last)
	assert.Equal(t, BlockVorbisComment, h.Type)
	assert.Equal(t, uint32(128), h.Length)
}

func TestVorbisCommentRoundTrip(t *testing.T) {
	col := tagmodel.NewCollection(true)
	col.Add("ARTIST", tagmodel.NewText("Test Artist"))
	col.Add("TITLE", tagmodel.NewText("Test Title"))

	body := EncodeVorbisComment(col, "tagcore 1.0")
	got, vendor, err := ParseVorbisComment(body)
	assert.NoError(t, err)
	assert.Equal(t, "tagcore 1.0", vendor)

	v, ok := got.Get("artist")
	assert.True(t, ok)
	assert.Equal(t, []string{"Test Artist"}, v.Text)
}

func TestPictureRoundTrip(t *testing.T) {
	pic := tagmodel.Picture{
		MIME: "image/png", Type: 3, Description: "cover",
		Width: 100, Height: 100, Depth: 24, Colors: 0,
		Data: []byte{0x89, 0x50, 0x4E, 0x47},
	}
	body := EncodePicture(pic)
	got, err := ParsePicture(body)
	assert.NoError(t, err)
	assert.Equal(t, pic, got)
}

// buildMinimalFLAC builds a STREAMINFO + VORBIS_COMMENT + trailing "audio"
// file for Decode/Write round-trip tests.
func buildMinimalFLAC(t *testing.T, comment string) []byte {
	t.Helper()
	var out []byte
	out = append(out, magic...)

	siBody := encodeStreamInfoBody(sampleStreamInfo())
	out = append(out, encodeBlockHeader(BlockHeader{Type: BlockStreamInfo, Length: uint32(len(siBody))})...)
	out = append(out, siBody...)

	col := tagmodel.NewCollection(true)
	col.Add("TITLE", tagmodel.NewText(comment))
	vcBody := EncodeVorbisComment(col, "tagcore-test")
	out = append(out, encodeBlockHeader(BlockHeader{Type: BlockVorbisComment, Length: uint32(len(vcBody)), Last: true})...)
	out = append(out, vcBody...)

	out = append(out, []byte("FAKE-AUDIO-DATA")...)
	return out
}

func TestDecodeReadsStreamInfoAndComments(t *testing.T) {
	data := buildMinimalFLAC(t, "Original Title")
	info, err := Decode(bytecursor.New(data))
	assert.NoError(t, err)
	assert.Equal(t, uint32(44100), info.StreamInfo.SampleRate)

	v, ok := info.Collection.Get("title")
	assert.True(t, ok)
	assert.Equal(t, []string{"Original Title"}, v.Text)
	assert.Equal(t, "FAKE-AUDIO-DATA", string(data[info.AudioStart:]))
}

func TestWriteInPlaceWithPaddingSlack(t *testing.T) {
	// Build a file with a big PADDING block, so a small tag update fits
	// in place.
	var out []byte
	out = append(out, magic...)
	siBody := encodeStreamInfoBody(sampleStreamInfo())
	out = append(out, encodeBlockHeader(BlockHeader{Type: BlockStreamInfo, Length: uint32(len(siBody))})...)
	out = append(out, siBody...)

	col := tagmodel.NewCollection(true)
	col.Add("TITLE", tagmodel.NewText("A"))
	vcBody := EncodeVorbisComment(col, "v")
	out = append(out, encodeBlockHeader(BlockHeader{Type: BlockVorbisComment, Length: uint32(len(vcBody))})...)
	out = append(out, vcBody...)

	padBody := make([]byte, 2000)
	out = append(out, encodeBlockHeader(BlockHeader{Type: BlockPadding, Length: uint32(len(padBody)), Last: true})...)
	out = append(out, padBody...)
	out = append(out, []byte("AUDIO")...)

	newCol := tagmodel.NewCollection(true)
	newCol.Add("TITLE", tagmodel.NewText("B"))
	rewritten, err := Write(out, newCol, "v")
	assert.NoError(t, err)

	info, err := Decode(bytecursor.New(rewritten))
	assert.NoError(t, err)
	v, ok := info.Collection.Get("title")
	assert.True(t, ok)
	assert.Equal(t, []string{"B"}, v.Text)
	assert.Equal(t, "AUDIO", string(rewritten[info.AudioStart:]))
}
