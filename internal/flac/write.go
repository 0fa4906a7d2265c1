package flac

import (
	"github.com/kestrel-audio/tagcore/internal/bytecursor"
	"github.com/kestrel-audio/tagcore/internal/tagmodel"
)

// Write re-serialises col (and vendor) back over original per spec.md
// §4.4 "Writes": sum the new non-padding blocks; if they fit within the
// old metadata region (non-padding blocks plus whatever PADDING already
// existed), rewrite the region in place with one fresh PADDING block
// filling the slack. Otherwise rewrite the whole file, dropping padding.
func Write(original []byte, col *tagmodel.Collection, vendor string) ([]byte, error) {
	info, err := Decode(bytecursor.New(original))
	if err != nil {
		return nil, err
	}

	newBlocks := buildNonPaddingBlocks(info, col, vendor)
	newSize := 0
	for _, b := range newBlocks {
		newSize += 4 + len(b)
	}

	oldRegionSize := int(info.AudioStart) - 4 // excludes "fLaC" magic
	var out []byte
	out = append(out, magic...)

	if newSize <= oldRegionSize {
		slack := oldRegionSize - newSize
		writeBlocksWithPadding(&out, newBlocks, slack)
	} else {
		writeBlocksWithPadding(&out, newBlocks, 0)
	}

	out = append(out, original[info.AudioStart:]...)
	return out, nil
}

// buildNonPaddingBlocks re-serialises STREAMINFO, any preserved opaque
// blocks, PICTURE entries and the VORBIS_COMMENT block, in that
// conventional order, as block bodies (header added by the caller).
func buildNonPaddingBlocks(info *Info, col *tagmodel.Collection, vendor string) [][]byte {
	var bodies [][]byte
	bodies = append(bodies, encodeStreamInfo(info.StreamInfo))

	for _, raw := range info.OtherBlocks {
		bodies = append(bodies, rawBlockBody(raw))
	}

	for _, v := range col.GetAll("PICTURE") {
		for _, pic := range v.Pictures {
			bodies = append(bodies, picBlockBody(pic))
		}
	}

	textOnly := tagmodel.NewCollection(true)
	col.Each(func(key string, v tagmodel.Value) {
		if v.Kind == tagmodel.KindPicture {
			return
		}
		textOnly.Add(key, v)
	})
	bodies = append(bodies, vcBlockBody(textOnly, vendor))

	return bodies
}

// rawBlockBody/picBlockBody/vcBlockBody each tag a block's body with its
// own type byte so writeBlocksWithPadding can build the right header
// without a parallel slice of block types.
func rawBlockBody(raw RawBlock) []byte { return marshalTagged(raw.Header.Type, raw.Body) }
func picBlockBody(p tagmodel.Picture) []byte {
	return marshalTagged(BlockPicture, EncodePicture(p))
}
func vcBlockBody(col *tagmodel.Collection, vendor string) []byte {
	return marshalTagged(BlockVorbisComment, EncodeVorbisComment(col, vendor))
}
func encodeStreamInfo(si StreamInfo) []byte {
	return marshalTagged(BlockStreamInfo, encodeStreamInfoBody(si))
}

// marshalTagged prefixes a body with a one-byte block-type tag that
// writeBlocksWithPadding strips back off; this avoids a second struct type
// per block while keeping buildNonPaddingBlocks's return type simple.
func marshalTagged(t BlockType, body []byte) []byte {
	return append([]byte{byte(t)}, body...)
}

func writeBlocksWithPadding(out *[]byte, taggedBodies [][]byte, slack int) {
	for i, tb := range taggedBodies {
		t := BlockType(tb[0])
		body := tb[1:]
		last := i == len(taggedBodies)-1 && slack == 0
		header := encodeBlockHeader(BlockHeader{Type: t, Length: uint32(len(body)), Last: last})
		*out = append(*out, header...)
		*out = append(*out, body...)
	}
	if slack > 0 {
		padBody := make([]byte, slackBodyLen(slack))
		header := encodeBlockHeader(BlockHeader{Type: BlockPadding, Length: uint32(len(padBody)), Last: true})
		*out = append(*out, header...)
		*out = append(*out, padBody...)
	}
}

// slackBodyLen converts a total-bytes-of-slack budget into a PADDING
// block's body length (the slack includes the 4-byte header we'll add).
func slackBodyLen(slack int) int {
	if slack < 4 {
		return 0
	}
	return slack - 4
}

func encodeStreamInfoBody(si StreamInfo) []byte {
	buf := make([]byte, 34)
	put := func(bitOff, nbits int, v uint64) {
		for i := 0; i < nbits; i++ {
			bit := (v >> (nbits - 1 - i)) & 1
			byteIdx := (bitOff + i) / 8
			bitIdx := 7 - (bitOff+i)%8
			if bit == 1 {
				buf[byteIdx] |= 1 << bitIdx
			}
		}
	}
	off := 0
	put(off, 16, uint64(si.MinBlockSize))
	off += 16
	put(off, 16, uint64(si.MaxBlockSize))
	off += 16
	put(off, 24, uint64(si.MinFrameSize))
	off += 24
	put(off, 24, uint64(si.MaxFrameSize))
	off += 24
	put(off, 20, uint64(si.SampleRate))
	off += 20
	put(off, 3, uint64(si.Channels-1))
	off += 3
	put(off, 5, uint64(si.BitsPerSample-1))
	off += 5
	put(off, 36, si.TotalSamples)
	off += 36
	copy(buf[18:34], si.MD5Signature[:])
	return buf
}
