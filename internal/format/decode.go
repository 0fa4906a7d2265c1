package format

import (
	"os"

	"github.com/kestrel-audio/tagcore/internal/bytecursor"
	"github.com/kestrel-audio/tagcore/internal/flac"
	"github.com/kestrel-audio/tagcore/internal/mp3"
	"github.com/kestrel-audio/tagcore/internal/mp4"
	"github.com/kestrel-audio/tagcore/internal/ogg"
	"github.com/kestrel-audio/tagcore/internal/tagerr"
	"github.com/kestrel-audio/tagcore/internal/tagmodel"
)

// StreamInfo is the format-agnostic stream-properties view every decoder's
// own Info struct is flattened into (spec.md §4.2).
type StreamInfo struct {
	Format        Format
	SampleRate    uint32
	Channels      uint16
	BitrateBps    uint32
	BitsPerSample uint16
	Codec         string
	LengthSeconds float64
}

// Decoded is one file's full decode result: stream properties, its tag
// collection, and any non-fatal diagnostics collected along the way.
type Decoded struct {
	Info        StreamInfo
	Collection  *tagmodel.Collection
	Diagnostics []tagerr.Diagnostic
}

// DecodeBytes dispatches data to the right decoder (resolved from path's
// extension, falling back to sniffing data's leading bytes) and flattens
// its result into the uniform StreamInfo shape.
func DecodeBytes(path string, data []byte) (*Decoded, error) {
	head := data
	if len(head) > 16 {
		head = head[:16]
	}
	f, err := Resolve(path, head)
	if err != nil {
		return nil, err
	}

	switch f {
	case Mp3:
		info, err := mp3.Decode(bytecursor.New(data))
		if err != nil {
			return nil, err
		}
		return &Decoded{
			Info: StreamInfo{
				Format: Mp3, SampleRate: info.SampleRate, Channels: uint16(info.Channels),
				BitrateBps: info.BitrateBps, LengthSeconds: info.LengthSeconds,
				Codec: "mp3",
			},
			Collection:  info.Collection,
			Diagnostics: info.Diagnostics,
		}, nil

	case Flac:
		info, err := flac.Decode(bytecursor.New(data))
		if err != nil {
			return nil, err
		}
		var length float64
		if info.StreamInfo.SampleRate > 0 {
			length = float64(info.StreamInfo.TotalSamples) / float64(info.StreamInfo.SampleRate)
		}
		return &Decoded{
			Info: StreamInfo{
				Format: Flac, SampleRate: info.StreamInfo.SampleRate,
				Channels: uint16(info.StreamInfo.Channels), BitsPerSample: uint16(info.StreamInfo.BitsPerSample),
				LengthSeconds: length, Codec: "flac",
			},
			Collection:  info.Collection,
			Diagnostics: info.Diagnostics,
		}, nil

	case OggVorbis:
		info, err := ogg.Decode(bytecursor.New(data))
		if err != nil {
			return nil, err
		}
		var length float64
		if info.IDHeader.SampleRate > 0 {
			length = float64(info.LastAudioGranule) / float64(info.IDHeader.SampleRate)
		}
		return &Decoded{
			Info: StreamInfo{
				Format: OggVorbis, SampleRate: info.IDHeader.SampleRate,
				Channels: uint16(info.IDHeader.ChannelCount), BitrateBps: info.IDHeader.NomBitrate,
				LengthSeconds: length, Codec: "vorbis",
			},
			Collection:  info.Collection,
			Diagnostics: info.Diagnostics,
		}, nil

	case Mp4:
		info, err := mp4.Decode(bytecursor.New(data))
		if err != nil {
			return nil, err
		}
		return &Decoded{
			Info: StreamInfo{
				Format: Mp4, SampleRate: info.StreamInfo.SampleRate,
				Channels: info.StreamInfo.Channels, BitsPerSample: info.StreamInfo.BitsPerSample,
				LengthSeconds: info.StreamInfo.LengthSeconds, Codec: info.StreamInfo.Codec,
			},
			Collection:  info.Collection,
			Diagnostics: info.Diagnostics,
		}, nil

	default:
		return nil, tagerr.NewUnsupportedFormat(path)
	}
}

// DecodeFile reads path from disk and decodes it; used by the batch
// pipeline and the root package's single-file Read.
func DecodeFile(path string) (*Decoded, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, tagerr.NewIo(ioKindFor(err), path, err)
	}
	return DecodeBytes(path, data)
}

func ioKindFor(err error) tagerr.IOKind {
	if os.IsNotExist(err) {
		return tagerr.IONotFound
	}
	if os.IsPermission(err) {
		return tagerr.IOPermission
	}
	return tagerr.IOUnknown
}
