package mp3

import (
	"testing"

	"github.com/kestrel-audio/tagcore/internal/bytecursor"
	"github.com/kestrel-audio/tagcore/internal/tagmodel"
	"github.com/stretchr/testify/assert"
)

func TestWriteInPlaceWhenNewTagFitsWithPadding(t *testing.T) {
	original := buildMinimalMP3(false)

	col := tagmodel.NewCollection(false)
	col.Add("TIT2", tagmodel.NewText("New Title"))

	out, err := Write(original, col, WriteOptions{})
	assert.NoError(t, err)

	info, err := Decode(bytecursor.New(out))
	assert.NoError(t, err)
	v, ok := info.Collection.Get("TIT2")
	assert.True(t, ok)
	assert.Equal(t, []string{"New Title"}, v.Text)

	// Audio must survive byte-for-byte after the rewritten tag.
	assert.Equal(t, uint32(44100), info.SampleRate)
}

func TestWriteRemovesID3v1WhenRequested(t *testing.T) {
	original := buildMinimalMP3(true)
	col := tagmodel.NewCollection(false)
	col.Add("TIT2", tagmodel.NewText("X"))

	out, err := Write(original, col, WriteOptions{V1: V1Remove})
	assert.NoError(t, err)

	_, ok := trailingID3v1(out)
	assert.False(t, ok)
}

func TestWriteKeepsID3v1ByDefault(t *testing.T) {
	original := buildMinimalMP3(true)
	col := tagmodel.NewCollection(false)
	col.Add("TIT2", tagmodel.NewText("X"))

	out, err := Write(original, col, WriteOptions{})
	assert.NoError(t, err)

	tag, ok := trailingID3v1(out)
	assert.True(t, ok)
	assert.Equal(t, "V1 Title", tag.Title)
}

func TestWriteFullRebuildWhenNewTagExceedsOldSpan(t *testing.T) {
	original := buildMinimalMP3(false)

	col := tagmodel.NewCollection(false)
	huge := make([]byte, 0, 4096)
	for i := 0; i < 200; i++ {
		huge = append(huge, 'x')
	}
	col.Add("TIT2", tagmodel.NewText(string(huge)))

	out, err := Write(original, col, WriteOptions{StripPadding: true})
	assert.NoError(t, err)

	info, err := Decode(bytecursor.New(out))
	assert.NoError(t, err)
	v, ok := info.Collection.Get("TIT2")
	assert.True(t, ok)
	assert.Equal(t, string(huge), v.Text[0])
}
