package mp4

import "github.com/kestrel-audio/tagcore/internal/tagerr"

// StreamInfo is this decoder's derived audio stream properties (spec.md
// §4.2's MP4 fields: codec, bits_per_sample, plus the shared sample
// rate/channels/duration fields).
type StreamInfo struct {
	SampleRate    uint32
	Channels      uint16
	BitsPerSample uint16
	Codec         string // e.g. "mp4a.40.2", "alac"
	LengthSeconds float64
	TimescaleSource string // "mdhd" or "mvhd-fallback", for the documented diagnostic
}

// deriveStreamInfo walks moov for mvhd/trak/mdia/mdhd/minf/stbl/stsd per
// spec.md §4.6 "Stream properties".
func deriveStreamInfo(moov Atom) (StreamInfo, []tagerr.Diagnostic, error) {
	var diags []tagerr.Diagnostic

	mvhd, ok := moov.Find("mvhd")
	if !ok {
		return StreamInfo{}, diags, tagerr.NewMalformed("mp4", "mvhd", moov.Start, "moov has no mvhd")
	}
	mvhdTimescale, mvhdDuration, err := parseMvhd(mvhd.Payload)
	if err != nil {
		return StreamInfo{}, diags, err
	}

	audioTrak, stsd, ok := findAudioTrak(moov)
	if !ok {
		return StreamInfo{}, diags, tagerr.NewMalformed("mp4", "stsd", moov.Start, "no audio track with stsd found")
	}

	timescale := mvhdTimescale
	source := "mvhd-fallback"
	duration := mvhdDuration
	if mdia, ok := audioTrak.FindPath("mdia"); ok {
		if mdhd, ok := mdia.Find("mdhd"); ok {
			ts, dur, err := parseMdhd(mdhd.Payload)
			if err == nil && ts > 0 {
				timescale = ts
				duration = dur
				source = "mdhd"
			}
		}
	}
	if source == "mvhd-fallback" {
		diags = append(diags, tagerr.Diagnostic{
			Code: "mdhd-timescale-fallback", Format: "mp4",
			Message: "audio track mdhd missing or unusable timescale; using mvhd",
		})
	}

	info := StreamInfo{TimescaleSource: source}
	if timescale > 0 {
		info.LengthSeconds = float64(duration) / float64(timescale)
	}

	entry, ok := firstSampleEntry(stsd)
	if !ok {
		return info, diags, tagerr.NewMalformed("mp4", "stsd", stsd.Start, "stsd has no sample entry")
	}

	switch entry.Type {
	case "mp4a":
		sr, ch, bits, err := parseMp4a(entry.Payload)
		if err != nil {
			return info, diags, err
		}
		info.SampleRate, info.Channels, info.BitsPerSample = sr, ch, bits
		info.Codec = "mp4a.40." + mp4aObjectType(entry)
	case "alac":
		sr, ch, bits, err := parseAlac(entry.Payload)
		if err != nil {
			return info, diags, err
		}
		info.SampleRate, info.Channels, info.BitsPerSample = sr, ch, bits
		info.Codec = "alac"
	default:
		return info, diags, tagerr.NewUnsupportedFormat("mp4:" + entry.Type)
	}

	return info, diags, nil
}

func findAudioTrak(moov Atom) (trak Atom, stsd Atom, ok bool) {
	for _, t := range moov.FindAll("trak") {
		if s, ok := t.FindPath("mdia", "minf", "stbl", "stsd"); ok {
			if _, hasEntry := firstSampleEntry(s); hasEntry {
				return t, s, true
			}
		}
	}
	return Atom{}, Atom{}, false
}

// firstSampleEntry parses stsd's fixed 8-byte header (version/flags +
// entry count) and returns the first sample-description entry as an Atom
// (sample entries have the same [size|type|payload] shape as any atom).
func firstSampleEntry(stsd Atom) (Atom, bool) {
	if len(stsd.Payload) < 8 {
		return Atom{}, false
	}
	body := stsd.Payload[8:]
	if len(body) < 8 {
		return Atom{}, false
	}
	size := be32(body[0:4])
	if int(size) > len(body) || size < 8 {
		return Atom{}, false
	}
	return Atom{Type: string(body[4:8]), Payload: body[8:size]}, true
}

func parseMvhd(body []byte) (timescale, duration uint64, err error) {
	if len(body) < 4 {
		return 0, 0, tagerr.NewMalformed("mp4", "mvhd", 0, "too short")
	}
	version := body[0]
	if version == 1 {
		if len(body) < 32 {
			return 0, 0, tagerr.NewMalformed("mp4", "mvhd", 0, "too short for version 1")
		}
		timescale = uint64(be32(body[20:24]))
		duration = be64(body[24:32])
		return timescale, duration, nil
	}
	if len(body) < 20 {
		return 0, 0, tagerr.NewMalformed("mp4", "mvhd", 0, "too short for version 0")
	}
	timescale = uint64(be32(body[12:16]))
	duration = uint64(be32(body[16:20]))
	return timescale, duration, nil
}

func parseMdhd(body []byte) (timescale, duration uint64, err error) {
	if len(body) < 4 {
		return 0, 0, tagerr.NewMalformed("mp4", "mdhd", 0, "too short")
	}
	version := body[0]
	if version == 1 {
		if len(body) < 32 {
			return 0, 0, tagerr.NewMalformed("mp4", "mdhd", 0, "too short for version 1")
		}
		timescale = uint64(be32(body[20:24]))
		duration = be64(body[24:32])
		return timescale, duration, nil
	}
	if len(body) < 20 {
		return 0, 0, tagerr.NewMalformed("mp4", "mdhd", 0, "too short for version 0")
	}
	timescale = uint64(be32(body[12:16]))
	duration = uint64(be32(body[16:20]))
	return timescale, duration, nil
}

func be64(b []byte) uint64 {
	var v uint64
	for _, x := range b {
		v = v<<8 | uint64(x)
	}
	return v
}

// parseMp4a decodes the legacy QuickTime sound-sample-entry fixed fields
// (channel count, sample size, sample rate as 16.16 fixed-point) that
// precede the mp4a box's own children (esds among them).
func parseMp4a(payload []byte) (sampleRate uint32, channels uint16, bits uint16, err error) {
	if len(payload) < 28 {
		return 0, 0, 0, tagerr.NewMalformed("mp4", "mp4a", 0, "too short")
	}
	channels = be16(payload[16:18])
	bits = be16(payload[18:20])
	sampleRate = be32(payload[24:28]) >> 16
	return sampleRate, channels, bits, nil
}

func parseAlac(payload []byte) (sampleRate uint32, channels uint16, bits uint16, err error) {
	return parseMp4a(payload)
}

// mp4aObjectType finds the esds child (nested under mp4a's own children,
// if this decoder walked it as a container) and extracts the
// decoder-specific MPEG-4 audio object type byte. mp4a is not in
// containerTypes, so its payload is opaque here; walk it as a nested atom
// sequence starting right after the 28-byte fixed sound-description header.
func mp4aObjectType(entry Atom) string {
	if len(entry.Payload) <= 28 {
		return "2" // AAC-LC default when esds is absent
	}
	esdsBody, ok := findEsds(entry.Payload[28:])
	if !ok {
		return "2"
	}
	objType, ok := parseEsdsObjectType(esdsBody)
	if !ok {
		return "2"
	}
	return itoaSmall(objType)
}

func itoaSmall(n int) string {
	if n < 10 {
		return string(rune('0' + n))
	}
	return string(rune('0'+n/10)) + string(rune('0'+n%10))
}
