package mp3

import (
	"strings"

	"github.com/kestrel-audio/tagcore/internal/bytecursor"
	"github.com/kestrel-audio/tagcore/internal/tagerr"
	"github.com/kestrel-audio/tagcore/internal/tagmodel"
)

const id3v1Size = 128

// ID3v1 is the fixed 128-byte trailer (spec.md §4.3 step 1). Genre is kept
// as its raw numeric index; callers wanting the genre name can look it up
// via the standard ID3v1 genre list, which this library doesn't enumerate
// since spec.md scopes "validation beyond what is required to parse" out.
type ID3v1 struct {
	Title, Artist, Album, Year, Comment string
	Track                               uint8 // 0 if absent (pre-1.1 tags use the full 30-byte comment)
	Genre                               uint8
}

// ParseID3v1 reads the trailing 128 bytes of a file looking for the "TAG"
// marker. Returns tagerr.NoHeader if absent.
func ParseID3v1(data []byte) (*ID3v1, error) {
	if len(data) < id3v1Size {
		return nil, tagerr.NewNoHeader("id3v1")
	}
	trailer := data[len(data)-id3v1Size:]
	if string(trailer[0:3]) != "TAG" {
		return nil, tagerr.NewNoHeader("id3v1")
	}

	tag := &ID3v1{
		Title:   latin1Trim(trailer[3:33]),
		Artist:  latin1Trim(trailer[33:63]),
		Album:   latin1Trim(trailer[63:93]),
		Year:    latin1Trim(trailer[93:97]),
		Genre:   trailer[127],
	}

	comment := trailer[97:127]
	// ID3v1.1: byte 28 of the comment field is zero and byte 29 is the
	// track number, when byte 28 is 0x00 and the field isn't used fully.
	if comment[28] == 0 && comment[29] != 0 {
		tag.Track = comment[29]
		tag.Comment = latin1Trim(comment[:28])
	} else {
		tag.Comment = latin1Trim(comment)
	}

	return tag, nil
}

func latin1Trim(b []byte) string {
	s := string(b)
	if idx := strings.IndexByte(s, 0x00); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimRight(s, " ")
}

// ToCollection lifts the fixed ID3v1 fields into the shared tagmodel shape
// under synthetic keys, so a caller who only speaks ID3v2 frame IDs still
// sees a populated collection for v1-only files.
func (t *ID3v1) ToCollection() *tagmodel.Collection {
	col := tagmodel.NewCollection(false)
	if t.Title != "" {
		col.Add("TIT2", tagmodel.NewText(t.Title))
	}
	if t.Artist != "" {
		col.Add("TPE1", tagmodel.NewText(t.Artist))
	}
	if t.Album != "" {
		col.Add("TALB", tagmodel.NewText(t.Album))
	}
	if t.Year != "" {
		col.Add("TDRC", tagmodel.NewText(t.Year))
	}
	if t.Comment != "" {
		col.Add("COMM:", tagmodel.NewText(t.Comment))
	}
	if t.Track != 0 {
		col.Add("TRCK", tagmodel.NewPairs(tagmodel.Pair{Current: int(t.Track)}))
	}
	return col
}

// EncodeID3v1 serialises an ID3v1.1 trailer.
func EncodeID3v1(t *ID3v1) []byte {
	buf := make([]byte, id3v1Size)
	copy(buf[0:3], "TAG")
	putLatin1(buf[3:33], t.Title)
	putLatin1(buf[33:63], t.Artist)
	putLatin1(buf[63:93], t.Album)
	putLatin1(buf[93:97], t.Year)
	if t.Track != 0 {
		putLatin1(buf[97:125], t.Comment)
		buf[125] = 0
		buf[126] = t.Track
	} else {
		putLatin1(buf[97:127], t.Comment)
	}
	buf[127] = t.Genre
	return buf
}

func putLatin1(dst []byte, s string) {
	b := []byte(s)
	n := copy(dst, b)
	for i := n; i < len(dst); i++ {
		dst[i] = 0x00
	}
}

// findID3v1 locates the trailer within the last id3v1Size bytes of a full
// file cursor, used by the top-level decode walk.
func findID3v1(c *bytecursor.Cursor) (*ID3v1, int64, bool) {
	if c.Len() < id3v1Size {
		return nil, 0, false
	}
	save := c.Position()
	defer c.Seek(save)

	c.Seek(c.Len() - id3v1Size)
	data, err := c.ReadN(id3v1Size)
	if err != nil {
		return nil, 0, false
	}
	tag, err := ParseID3v1(data)
	if err != nil {
		return nil, 0, false
	}
	return tag, c.Len() - id3v1Size, true
}
