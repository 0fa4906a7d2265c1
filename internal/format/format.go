// Package format holds the closed set of container formats this library
// understands and the dispatch logic (extension table, then magic-byte
// sniff) that decides which decoder handles a given input (spec.md §9
// design notes). No example repo in the pack handles more than one audio
// container, so the sniffing shape here is grounded on
// other_examples/dhowden-tag's ReadFrom, which checks the same four magic
// sequences before delegating to a per-format reader.
package format

import (
	"path/filepath"
	"strings"

	"github.com/kestrel-audio/tagcore/internal/tagerr"
)

// Format is the closed set of container formats this library decodes.
type Format int

const (
	Unknown Format = iota
	Mp3
	Flac
	OggVorbis
	Mp4
)

func (f Format) String() string {
	switch f {
	case Mp3:
		return "mp3"
	case Flac:
		return "flac"
	case OggVorbis:
		return "ogg"
	case Mp4:
		return "mp4"
	default:
		return "unknown"
	}
}

// extensionTable maps a lowercased file extension (including the leading
// dot) to its format, for the fast path that avoids sniffing entirely.
var extensionTable = map[string]Format{
	".mp3":  Mp3,
	".flac": Flac,
	".ogg":  OggVorbis,
	".oga":  OggVorbis,
	".mp4":  Mp4,
	".m4a":  Mp4,
	".m4b":  Mp4,
}

// FromExtension resolves a format from a file path's extension alone.
func FromExtension(path string) (Format, bool) {
	f, ok := extensionTable[strings.ToLower(filepath.Ext(path))]
	return f, ok
}

// Sniff resolves a format from a file's leading bytes, for inputs with no
// reliable extension (e.g. streamed or extension-less sources). head must
// contain at least the first 12 bytes of the file for the MP4 "ftyp" check
// to succeed; a shorter head degrades gracefully to Unknown rather than
// panicking.
func Sniff(head []byte) Format {
	switch {
	case len(head) >= 3 && string(head[0:3]) == "ID3":
		return Mp3
	case len(head) >= 4 && string(head[0:4]) == "fLaC":
		return Flac
	case len(head) >= 4 && string(head[0:4]) == "OggS":
		return OggVorbis
	case len(head) >= 12 && string(head[4:8]) == "ftyp":
		return Mp4
	case looksLikeBareMP3(head):
		return Mp3
	default:
		return Unknown
	}
}

// looksLikeBareMP3 recognises an MPEG audio frame sync word at the very
// start of the file, for MP3s with no ID3v2 header at all.
func looksLikeBareMP3(head []byte) bool {
	return len(head) >= 2 && head[0] == 0xFF && head[1]&0xE0 == 0xE0
}

// Resolve tries the extension first, falling back to sniffing head (the
// file's leading bytes); it returns an UnsupportedFormat error if neither
// resolves.
func Resolve(path string, head []byte) (Format, error) {
	if f, ok := FromExtension(path); ok {
		return f, nil
	}
	if f := Sniff(head); f != Unknown {
		return f, nil
	}
	return Unknown, tagerr.NewUnsupportedFormat(path)
}
