package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromExtension(t *testing.T) {
	cases := map[string]Format{
		"song.mp3":   Mp3,
		"song.MP3":   Mp3,
		"track.flac": Flac,
		"track.ogg":  OggVorbis,
		"track.oga":  OggVorbis,
		"book.m4b":   Mp4,
		"album.m4a":  Mp4,
		"clip.mp4":   Mp4,
	}
	for path, want := range cases {
		got, ok := FromExtension(path)
		assert.True(t, ok, path)
		assert.Equal(t, want, got, path)
	}

	_, ok := FromExtension("notes.txt")
	assert.False(t, ok)
}

func TestSniffMagicBytes(t *testing.T) {
	assert.Equal(t, Mp3, Sniff([]byte("ID3\x03\x00\x00\x00\x00\x00\x00")))
	assert.Equal(t, Flac, Sniff([]byte("fLaC\x00\x00\x00\x22")))
	assert.Equal(t, OggVorbis, Sniff([]byte("OggS\x00\x02\x00\x00")))
	assert.Equal(t, Mp4, Sniff([]byte("\x00\x00\x00\x18ftypM4A \x00\x00")))
}

func TestSniffBareMP3SyncWord(t *testing.T) {
	head := []byte{0xFF, 0xFB, 0x90, 0x00}
	assert.Equal(t, Mp3, Sniff(head))
}

func TestSniffUnknown(t *testing.T) {
	assert.Equal(t, Unknown, Sniff([]byte("not audio at all")))
	assert.Equal(t, Unknown, Sniff(nil))
}

func TestResolvePrefersExtensionOverSniff(t *testing.T) {
	// Magic bytes say FLAC but the extension says mp3; extension wins.
	f, err := Resolve("song.mp3", []byte("fLaC\x00\x00\x00\x22"))
	assert.NoError(t, err)
	assert.Equal(t, Mp3, f)
}

func TestResolveFallsBackToSniff(t *testing.T) {
	f, err := Resolve("song.bin", []byte("OggS\x00\x02\x00\x00"))
	assert.NoError(t, err)
	assert.Equal(t, OggVorbis, f)
}

func TestResolveUnsupported(t *testing.T) {
	_, err := Resolve("mystery.bin", []byte("nope"))
	assert.Error(t, err)
}
