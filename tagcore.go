// Package tagcore reads and writes audio metadata for MP3/ID3, FLAC,
// OGG/Vorbis, and MP4/M4A/M4B files through one uniform API (spec.md §6):
// a StreamInfo + TagCollection pair per file, round-trip-safe writes, and
// a parallel batch-read pipeline with a process-wide result cache.
//
// Public operations live on a *Library so a caller can scope their own
// cache and worker pool (spec.md §9's "explicit Cache value" redesign
// note); the package-level Read/ReadInfo/Write/BatchRead/ClearCache
// functions are thin wrappers around one process-wide default Library.
package tagcore

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/kestrel-audio/tagcore/internal/batch"
	"github.com/kestrel-audio/tagcore/internal/flac"
	"github.com/kestrel-audio/tagcore/internal/format"
	"github.com/kestrel-audio/tagcore/internal/mp3"
	"github.com/kestrel-audio/tagcore/internal/mp4"
	"github.com/kestrel-audio/tagcore/internal/ogg"
	"github.com/kestrel-audio/tagcore/internal/tagerr"
	"github.com/kestrel-audio/tagcore/internal/tagmodel"
	"github.com/pkg/errors"
)

// StreamInfo is the format-agnostic stream-properties view (spec.md §4.2).
type StreamInfo = format.StreamInfo

// TagCollection is the ordered multi-map of tag values shared by every
// decoder (spec.md §3.2).
type TagCollection = tagmodel.Collection

// Value is one tag entry's value (spec.md §3.2).
type Value = tagmodel.Value

// Picture is an embedded-image tag value.
type Picture = tagmodel.Picture

// Pair is a (current, total) tag value, e.g. track/disc numbers.
type Pair = tagmodel.Pair

// Diagnostic is a non-fatal decode finding attached to a result (spec.md §7).
type Diagnostic = tagerr.Diagnostic

// BatchResult is one path's outcome from BatchRead (spec.md §4.7).
type BatchResult = batch.Result

// V1Policy controls what Write does with an MP3's ID3v1 trailer.
type V1Policy = mp3.V1Policy

const (
	V1Keep   = mp3.V1Keep
	V1Create = mp3.V1Create
	V1Remove = mp3.V1Remove
)

// WriteOptions mirrors spec.md §6.2's write() option struct. Vendor is
// only consulted for FLAC/OGG writes (the Vorbis comment vendor string);
// it defaults to "tagcore" when empty. PadMin/V1/StripPadding are only
// consulted for MP3 writes.
type WriteOptions struct {
	PadMin       uint32
	V1           V1Policy
	StripPadding bool
	Vendor       string
}

const defaultVendor = "tagcore"

// Library is a scoped batch reader plus the process's write-lock table
// (spec.md §5: "two concurrent writers to the same path fail the second
// with WriteLocked"). The zero value is not usable; construct with New.
type Library struct {
	reader     *batch.Reader
	writeLocks sync.Map // absolute path -> *sync.Mutex
}

// New builds a Library with its own result cache and a worker pool bounded
// to min(runtime.NumCPU(), maxWorkers). maxWorkers <= 0 means hardware
// parallelism (spec.md §4.7's default).
func New(maxWorkers int) *Library {
	return &Library{reader: batch.NewReader(maxWorkers)}
}

var defaultLibrary = New(0)

// Read returns both stream properties and tags for path (spec.md §6.2's
// read(path)).
func Read(path string) (StreamInfo, *TagCollection, error) {
	return defaultLibrary.Read(path)
}

// ReadInfo returns only stream properties for path, tolerating a missing
// or malformed tag container (spec.md §6.2's read_info(path)).
func ReadInfo(path string) (StreamInfo, error) {
	return defaultLibrary.ReadInfo(path)
}

// Write re-serialises tags over path's existing file (spec.md §6.2's
// write(path, tags, options)).
func Write(path string, tags *TagCollection, opts WriteOptions) error {
	return defaultLibrary.Write(path, tags, opts)
}

// BatchRead decodes every path in paths in parallel (spec.md §6.2's
// batch_read(paths)).
func BatchRead(ctx context.Context, paths []string) []BatchResult {
	return defaultLibrary.BatchRead(ctx, paths)
}

// ClearCache drops the default Library's result cache (spec.md §6.2's
// clear_cache()).
func ClearCache() {
	defaultLibrary.ClearCache()
}

// Read returns both stream properties and tags for path, going through
// l's result cache.
func (l *Library) Read(path string) (StreamInfo, *TagCollection, error) {
	results := l.reader.BatchRead(context.Background(), []string{path})
	r := results[0]
	if r.Err != nil {
		return StreamInfo{}, nil, r.Err
	}
	return r.Info, r.Collection, nil
}

// ReadInfo returns only stream properties for path. It runs the same
// decode as Read and returns Read's error if there is one; otherwise the
// tag collection and any diagnostics are discarded.
func (l *Library) ReadInfo(path string) (StreamInfo, error) {
	info, _, err := l.Read(path)
	if err != nil {
		return StreamInfo{}, err
	}
	return info, nil
}

// BatchRead decodes every path in paths in parallel, preserving input
// order, through l's result cache and worker pool.
func (l *Library) BatchRead(ctx context.Context, paths []string) []BatchResult {
	return l.reader.BatchRead(ctx, paths)
}

// ClearCache drops l's result cache and invalidates its identical-input
// fast path.
func (l *Library) ClearCache() {
	l.reader.ClearCache()
}

// Write re-serialises tags over path's on-disk bytes, dispatching to the
// matching format's write policy, and takes an exclusive advisory lock on
// path for the duration (spec.md §5: concurrent writers to the same path
// fail the second with WriteLocked).
func (l *Library) Write(path string, tags *TagCollection, opts WriteOptions) error {
	lockKey := path
	if abs, err := filepath.Abs(path); err == nil {
		lockKey = abs
	}
	lockIface, _ := l.writeLocks.LoadOrStore(lockKey, &sync.Mutex{})
	lock := lockIface.(*sync.Mutex)
	if !lock.TryLock() {
		return tagerr.NewWriteLocked(path)
	}
	defer lock.Unlock()

	original, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(tagerr.NewIo(ioKindFor(err), path, err), "tagcore: write")
	}

	head := original
	if len(head) > 16 {
		head = head[:16]
	}
	f, err := format.Resolve(path, head)
	if err != nil {
		return err
	}

	vendor := opts.Vendor
	if vendor == "" {
		vendor = defaultVendor
	}

	var out []byte
	switch f {
	case format.Mp3:
		out, err = mp3.Write(original, tags, mp3.WriteOptions{
			PadMin: opts.PadMin, V1: opts.V1, StripPadding: opts.StripPadding,
		})
	case format.Flac:
		out, err = flac.Write(original, tags, vendor)
	case format.OggVorbis:
		out, err = ogg.Write(original, tags, vendor)
	case format.Mp4:
		out, err = mp4.Write(original, tags)
	default:
		err = tagerr.NewUnsupportedFormat(path)
	}
	if err != nil {
		return errors.Wrap(err, "tagcore: write")
	}

	if err := os.WriteFile(path, out, 0o644); err != nil {
		return errors.Wrap(tagerr.NewIo(ioKindFor(err), path, err), "tagcore: write")
	}
	return nil
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
