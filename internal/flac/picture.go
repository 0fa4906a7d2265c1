package flac

import (
	"encoding/binary"

	"github.com/kestrel-audio/tagcore/internal/tagerr"
	"github.com/kestrel-audio/tagcore/internal/tagmodel"
)

// ParsePicture decodes a PICTURE block body, adapted from the reference
// flacmeta.FLACPictureBlock layout (type/MIME-len/MIME/desc-len/desc/
// width/height/depth/colors/data-len/data, all 32-bit big-endian fields).
func ParsePicture(body []byte) (tagmodel.Picture, error) {
	var pic tagmodel.Picture
	if len(body) < 32 {
		return pic, tagerr.NewMalformed("flac", "picture", 0, "block shorter than fixed header")
	}
	pos := 0
	pic.Type = uint8(binary.BigEndian.Uint32(body[pos:]))
	pos += 4

	mimeLen := int(binary.BigEndian.Uint32(body[pos:]))
	pos += 4
	if pos+mimeLen > len(body) {
		return pic, tagerr.NewMalformed("flac", "picture", int64(pos), "mime string overruns block")
	}
	pic.MIME = string(body[pos : pos+mimeLen])
	pos += mimeLen

	descLen := int(binary.BigEndian.Uint32(body[pos:]))
	pos += 4
	if pos+descLen > len(body) {
		return pic, tagerr.NewMalformed("flac", "picture", int64(pos), "description overruns block")
	}
	pic.Description = string(body[pos : pos+descLen])
	pos += descLen

	if pos+16 > len(body) {
		return pic, tagerr.NewMalformed("flac", "picture", int64(pos), "missing dimension fields")
	}
	pic.Width = binary.BigEndian.Uint32(body[pos:])
	pic.Height = binary.BigEndian.Uint32(body[pos+4:])
	pic.Depth = binary.BigEndian.Uint32(body[pos+8:])
	pic.Colors = binary.BigEndian.Uint32(body[pos+12:])
	pos += 16

	dataLen := int(binary.BigEndian.Uint32(body[pos:]))
	pos += 4
	if pos+dataLen > len(body) {
		return pic, tagerr.NewMalformed("flac", "picture", int64(pos), "data overruns block")
	}
	pic.Data = append([]byte(nil), body[pos:pos+dataLen]...)

	return pic, nil
}

// EncodePicture is the inverse of ParsePicture.
func EncodePicture(pic tagmodel.Picture) []byte {
	var out []byte
	put32 := func(v uint32) {
		b := make([]byte, 4)
		binary.BigEndian.PutUint32(b, v)
		out = append(out, b...)
	}
	put32(uint32(pic.Type))
	put32(uint32(len(pic.MIME)))
	out = append(out, pic.MIME...)
	put32(uint32(len(pic.Description)))
	out = append(out, pic.Description...)
	put32(pic.Width)
	put32(pic.Height)
	put32(pic.Depth)
	put32(pic.Colors)
	put32(uint32(len(pic.Data)))
	out = append(out, pic.Data...)
	return out
}
