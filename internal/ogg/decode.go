package ogg

import (
	"github.com/kestrel-audio/tagcore/internal/bytecursor"
	"github.com/kestrel-audio/tagcore/internal/flac"
	"github.com/kestrel-audio/tagcore/internal/tagerr"
	"github.com/kestrel-audio/tagcore/internal/tagmodel"
)

// Info is this decoder's view of a parsed Ogg Vorbis stream.
type Info struct {
	IDHeader     IDHeader
	Collection   *tagmodel.Collection
	Vendor       string
	SetupPacket  []byte // preserved verbatim; codebooks are opaque to this decoder
	Serial       uint32
	AudioStart   int64 // byte offset of the first audio page
	FirstAudioSeq uint32
	FirstAudioGranule uint64
	LastAudioGranule  uint64 // granule position of the logical stream's final page; duration source (spec.md §4.5)
	Diagnostics  []tagerr.Diagnostic
}

// lastPageScanWindow bounds how far back from EOF findLastPageGranule will
// look for the final page's capture pattern (spec.md §4.5 "bounded
// window"), so a stream with a corrupt or missing final page costs one
// bounded scan rather than a pathological walk over a huge file.
const lastPageScanWindow = 1 << 20

// findLastPageGranule scans backward from the end of rest (the audio
// region, starting at the stream's first audio page) for the last complete
// page's capture pattern, per spec.md §4.5's duration rule. A candidate
// match is only accepted once it parses as a full page that ends exactly
// at EOF — the one property that distinguishes the true final page from an
// "OggS" byte sequence that happens to occur inside earlier audio payload
// data.
func findLastPageGranule(rest []byte) (uint64, bool) {
	end := int64(len(rest))
	patLen := int64(len(capturePattern))
	start := end - lastPageScanWindow
	if start < 0 {
		start = 0
	}
	for i := end - patLen; i >= start; i-- {
		if string(rest[i:i+patLen]) != capturePattern {
			continue
		}
		page, err := ReadPage(bytecursor.New(rest[i:]))
		if err != nil {
			continue
		}
		if i+page.End == end {
			return page.Header.GranulePosition, true
		}
	}
	return 0, false
}

// Decode reads an Ogg Vorbis stream starting at c's current position
// (the first page's capture pattern), per spec.md §4.5.
//
// Vorbis packs its three header packets (identification, comment, setup)
// across one or more pages before any audio packet begins; this decoder
// reassembles packets from each page's segment table (spec.md §4.5
// "packet boundaries"), grounded on the page/segment layout read from the
// pack's other_examples taggolib.ogg.go, generalized to a random-access
// bytecursor.Cursor and to explicit packet reassembly (that reference
// implementation only ever reads exactly one packet per page call, since it
// never needs to handle a setup header spanning pages).
func Decode(c *bytecursor.Cursor) (*Info, error) {
	var packets [][]byte
	var pending []byte
	var serial uint32
	haveSerial := false
	audioStart := int64(-1)
	var firstAudioSeq uint32
	var firstAudioGranule uint64

	for len(packets) < 3 {
		page, err := ReadPage(c)
		if err != nil {
			return nil, err
		}
		if !haveSerial {
			serial = page.Header.SerialNumber
			haveSerial = true
		}

		offset := 0
		for _, segLen := range page.Header.SegmentTable {
			pending = append(pending, page.Payload[offset:offset+int(segLen)]...)
			offset += int(segLen)
			if segLen < 255 {
				packets = append(packets, pending)
				pending = nil
			}
		}

		if len(packets) >= 3 {
			// The setup packet completed on this page; audio starts at the
			// very next page (real encoders flush the page after the
			// setup header, so no audio segments share this page).
			audioStart = page.End
			break
		}
	}

	if len(packets) < 3 {
		return nil, tagerr.NewMalformed("ogg", "vorbis-headers", 0, "stream ended before all header packets were read")
	}

	idHeader, err := ParseIDHeader(packets[0])
	if err != nil {
		return nil, err
	}

	commentType, commentBody, err := parseCommonHeader(packets[1])
	if err != nil {
		return nil, err
	}
	if commentType != headerTypeComment {
		return nil, tagerr.NewMalformed("ogg", "vorbis-comment-header", 0, "unexpected header type")
	}
	col, vendor, err := flac.ParseVorbisComment(commentBody)
	if err != nil {
		return nil, err
	}

	info := &Info{
		IDHeader:    idHeader,
		Collection:  col,
		Vendor:      vendor,
		SetupPacket: packets[2],
		Serial:      serial,
		AudioStart:  audioStart,
	}

	// c's position is already at audioStart (ReadPage consumed header pages
	// through their last byte); peek the rest of the stream without
	// disturbing the caller's expectation that Decode leaves c at
	// audioStart.
	var lastAudioGranule uint64
	if audioStart >= 0 {
		rest, err := c.Peek(c.Remaining())
		if err == nil {
			if page, err := ReadPage(bytecursor.New(rest)); err == nil {
				firstAudioSeq = page.Header.SequenceNumber
				firstAudioGranule = page.Header.GranulePosition
			}
			if granule, ok := findLastPageGranule(rest); ok {
				lastAudioGranule = granule
			} else {
				lastAudioGranule = firstAudioGranule
			}
		}
	}
	info.FirstAudioSeq = firstAudioSeq
	info.FirstAudioGranule = firstAudioGranule
	info.LastAudioGranule = lastAudioGranule

	return info, nil
}
