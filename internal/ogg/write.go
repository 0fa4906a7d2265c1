package ogg

import (
	"github.com/kestrel-audio/tagcore/internal/bytecursor"
	"github.com/kestrel-audio/tagcore/internal/flac"
	"github.com/kestrel-audio/tagcore/internal/tagmodel"
)

const maxSegmentPayload = 255 * 255

// Write re-serialises col (and vendor) back over original per spec.md
// §4.5 "Writes": since the comment packet's length generally changes, this
// always fully repacks the three header packets into fresh pages (rather
// than attempting an in-place patch the way internal/mp3 and internal/flac
// do, because a page's segment table is a function of its packet's exact
// byte length). The first audio page's sequence number and granule
// position are preserved verbatim, and every byte from the start of that
// page onward is copied through unchanged.
func Write(original []byte, col *tagmodel.Collection, vendor string) ([]byte, error) {
	info, err := Decode(bytecursor.New(original))
	if err != nil {
		return nil, err
	}

	idBody := buildIDPacket(info.IDHeader)
	commentBody := append([]byte{headerTypeComment}, vorbisWord...)
	commentBody = append(commentBody, flac.EncodeVorbisComment(col, vendor)...)
	setupBody := append([]byte{headerTypeSetup}, vorbisWord...)
	setupBody = append(setupBody, info.SetupPacket[7:]...)

	var out []byte
	seq := uint32(0)

	pages, seq := packetToPages(idBody, info.Serial, seq, 0, HeaderBOS)
	out = append(out, pages...)

	pages, seq = packetToPages(commentBody, info.Serial, seq, 0, 0)
	out = append(out, pages...)

	pages, _ = packetToPages(setupBody, info.Serial, seq, 0, 0)
	out = append(out, pages...)

	out = append(out, original[info.AudioStart:]...)
	return out, nil
}

// buildIDPacket rebuilds the identification packet's payload from a parsed
// IDHeader, the inverse of ParseIDHeader.
func buildIDPacket(h IDHeader) []byte {
	body := make([]byte, 0, 7+23)
	body = append(body, headerTypeID)
	body = append(body, vorbisWord...)
	body = append(body, leU32(h.VorbisVersion)...)
	body = append(body, h.ChannelCount)
	body = append(body, leU32(h.SampleRate)...)
	body = append(body, leU32(h.MaxBitrate)...)
	body = append(body, leU32(h.NomBitrate)...)
	body = append(body, leU32(h.MinBitrate)...)
	blockByte := (h.Blocksize0 & 0x0F) | ((h.Blocksize1 & 0x0F) << 4)
	body = append(body, blockByte)
	framing := byte(0)
	if h.Framing {
		framing = 1
	}
	body = append(body, framing)
	return body
}

// packetToPages splits packet into one or more pages (at most
// maxSegmentPayload bytes per page, the most WritePage's segment table can
// describe; a packet whose last chunk fills a page exactly is closed by an
// extra empty page) and assigns them consecutive sequence numbers starting
// at startSeq. Returns the emitted bytes and the next free sequence number.
func packetToPages(packet []byte, serial, startSeq uint32, granule uint64, headerFlags byte) ([]byte, uint32) {
	var out []byte
	seq := startSeq
	offset := 0
	for {
		end := offset + maxSegmentPayload
		if end > len(packet) {
			end = len(packet)
		}
		chunk := packet[offset:end]
		offset = end

		flags := byte(0)
		if seq != startSeq {
			flags |= HeaderContinued
		} else {
			flags |= headerFlags
		}

		continued := offset < len(packet) || len(chunk) == maxSegmentPayload
		p := Page{
			Header: PageHeader{
				Version:         0,
				HeaderType:      flags,
				GranulePosition: granule,
				SerialNumber:    serial,
				SequenceNumber:  seq,
			},
			Payload: chunk,
		}
		out = append(out, WritePage(p, continued)...)
		seq++
		if !continued {
			break
		}
	}
	return out, seq
}
