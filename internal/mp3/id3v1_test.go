package mp3

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseID3v1RoundTrip(t *testing.T) {
	tag := &ID3v1{
		Title:   "A Title",
		Artist:  "An Artist",
		Album:   "An Album",
		Year:    "1999",
		Comment: "a comment",
		Track:   7,
		Genre:   17,
	}
	encoded := EncodeID3v1(tag)
	assert.Len(t, encoded, id3v1Size)

	got, err := ParseID3v1(encoded)
	assert.NoError(t, err)
	assert.Equal(t, tag, got)
}

func TestParseID3v1WithoutTrackUsesFullComment(t *testing.T) {
	tag := &ID3v1{
		Title:   "T",
		Comment: "a twenty eight char comment!",
		Genre:   1,
	}
	encoded := EncodeID3v1(tag)
	got, err := ParseID3v1(encoded)
	assert.NoError(t, err)
	assert.Equal(t, uint8(0), got.Track)
	assert.Equal(t, tag.Comment, got.Comment)
}

func TestParseID3v1MissingMagic(t *testing.T) {
	data := make([]byte, id3v1Size)
	_, err := ParseID3v1(data)
	assert.Error(t, err)
}

func TestParseID3v1TooShort(t *testing.T) {
	_, err := ParseID3v1(make([]byte, 10))
	assert.Error(t, err)
}

func TestID3v1ToCollection(t *testing.T) {
	tag := &ID3v1{Title: "T", Artist: "A", Track: 3}
	col := tag.ToCollection()

	v, ok := col.Get("TIT2")
	assert.True(t, ok)
	assert.Equal(t, []string{"T"}, v.Text)

	v, ok = col.Get("TRCK")
	assert.True(t, ok)
	assert.Equal(t, 3, v.Pairs[0].Current)
}
