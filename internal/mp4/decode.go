package mp4

import (
	"github.com/kestrel-audio/tagcore/internal/bytecursor"
	"github.com/kestrel-audio/tagcore/internal/tagerr"
	"github.com/kestrel-audio/tagcore/internal/tagmodel"
)

// Info is this decoder's view of a parsed MP4/M4A/M4B file.
type Info struct {
	StreamInfo  StreamInfo
	Collection  *tagmodel.Collection
	Moov        Atom  // preserved for the write path's patch-or-rewrite decision
	TopLevel    []Atom
	Diagnostics []tagerr.Diagnostic
}

// Decode walks the top-level atom sequence looking for ftyp (sniffed, not
// required) and moov (required; spec.md §4.6's "MP4 missing moov" fatal
// case), then derives stream properties and ilst tags.
func Decode(c *bytecursor.Cursor) (*Info, error) {
	atoms, err := ReadAtoms(c)
	if err != nil && len(atoms) == 0 {
		return nil, err
	}

	var moov Atom
	found := false
	for _, a := range atoms {
		if a.Type == "moov" {
			moov = a
			found = true
			break
		}
	}
	if !found {
		return nil, tagerr.NewMalformed("mp4", "moov", 0, "file has no moov atom")
	}

	streamInfo, diags, err := deriveStreamInfo(moov)
	if err != nil {
		return nil, err
	}

	col := tagmodel.NewCollection(false)
	if meta, ok := moov.FindPath("udta", "meta"); ok {
		if ilst, ok := meta.Find("ilst"); ok {
			col = ParseIlst(ilst)
		}
	}

	return &Info{
		StreamInfo:  streamInfo,
		Collection:  col,
		Moov:        moov,
		TopLevel:    atoms,
		Diagnostics: diags,
	}, nil
}
