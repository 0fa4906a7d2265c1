package flac

import (
	"encoding/binary"

	"github.com/kestrel-audio/tagcore/internal/bytecursor"
	"github.com/kestrel-audio/tagcore/internal/tagerr"
	"github.com/kestrel-audio/tagcore/internal/tagmodel"
)

// RawBlock is an opaque metadata block this decoder doesn't interpret
// (APPLICATION, SEEKTABLE, CUESHEET) but must round-trip verbatim on write.
type RawBlock struct {
	Header BlockHeader
	Body   []byte
}

// Info is this decoder's view of a parsed FLAC stream.
type Info struct {
	StreamInfo  StreamInfo
	Collection  *tagmodel.Collection
	Vendor      string
	Padding     uint32 // bytes of PADDING blocks found, for write policy
	OtherBlocks []RawBlock
	AudioStart  int64
	Diagnostics []tagerr.Diagnostic
}

// Decode walks a FLAC stream starting at c's current position, which must
// be positioned at the "fLaC" magic (spec.md §4.4 step 1).
func Decode(c *bytecursor.Cursor) (*Info, error) {
	magicBytes, err := c.ReadN(4)
	if err != nil || string(magicBytes) != magic {
		return nil, tagerr.NewUnsupportedFormat("flac")
	}

	info := &Info{Collection: tagmodel.NewCollection(true)}
	haveStreamInfo := false

	for {
		headerWord, err := c.ReadU32BE()
		if err != nil {
			return nil, err
		}
		header := ParseBlockHeader(headerWord)

		body, err := c.ReadN(int64(header.Length))
		if err != nil {
			info.Diagnostics = append(info.Diagnostics, tagerr.Diagnostic{
				Code: "truncated-block", Format: "flac", Message: "metadata block overruns file",
			})
			break
		}

		switch header.Type {
		case BlockStreamInfo:
			si, err := ParseStreamInfo(body)
			if err != nil {
				return nil, err
			}
			info.StreamInfo = si
			haveStreamInfo = true
		case BlockVorbisComment:
			col, vendor, err := ParseVorbisComment(body)
			if err != nil {
				info.Diagnostics = append(info.Diagnostics, tagerr.Diagnostic{
					Code: "bad-vorbis-comment", Format: "flac", Message: err.Error(),
				})
				break
			}
			info.Collection = col
			info.Vendor = vendor
		case BlockPicture:
			pic, err := ParsePicture(body)
			if err != nil {
				info.Diagnostics = append(info.Diagnostics, tagerr.Diagnostic{
					Code: "bad-picture", Format: "flac", Message: err.Error(),
				})
				break
			}
			info.Collection.Add("PICTURE", tagmodel.NewPicture(pic))
		case BlockPadding:
			info.Padding += 4 + header.Length // write.go's write policy budgets whole physical blocks
		default:
			info.OtherBlocks = append(info.OtherBlocks, RawBlock{Header: header, Body: body})
		}

		if header.Last {
			break
		}
	}

	if !haveStreamInfo {
		return nil, tagerr.NewMalformed("flac", "streaminfo", 0, "stream has no STREAMINFO block")
	}

	info.AudioStart = c.Position()
	return info, nil
}

func encodeBlockHeader(h BlockHeader) []byte {
	word := uint32(h.Type&0x7F) << 24
	word |= h.Length & 0x00FFFFFF
	if h.Last {
		word |= 0x80000000
	}
	out := make([]byte, 4)
	binary.BigEndian.PutUint32(out, word)
	return out
}
