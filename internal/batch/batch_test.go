package batch

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/kestrel-audio/tagcore/internal/flac"
	"github.com/kestrel-audio/tagcore/internal/tagmodel"
	"github.com/stretchr/testify/assert"
)

// packBits MSB-first packs a sequence of (value, width) fields into bytes,
// matching FLAC STREAMINFO's bit-level layout (flac.ParseStreamInfo).
func packBits(fields []struct {
	val   uint64
	width int
}) []byte {
	var bitbuf uint64
	var bitcount int
	var out []byte
	for _, f := range fields {
		bitbuf = (bitbuf << uint(f.width)) | (f.val & ((1 << uint(f.width)) - 1))
		bitcount += f.width
		for bitcount >= 8 {
			shift := uint(bitcount - 8)
			out = append(out, byte(bitbuf>>shift))
			bitcount -= 8
			bitbuf &= (1 << uint(bitcount)) - 1
		}
	}
	if bitcount > 0 {
		out = append(out, byte(bitbuf<<uint(8-bitcount)))
	}
	return out
}

func buildMinimalFlacFile(t *testing.T, title string) []byte {
	t.Helper()
	streamInfoBody := packBits([]struct {
		val   uint64
		width int
	}{
		{4096, 16}, {4096, 16}, {1000, 24}, {5000, 24},
		{44100, 20}, {1, 3}, {15, 5}, {0, 36},
	})
	streamInfoBody = append(streamInfoBody, make([]byte, 16)...) // MD5

	var out []byte
	out = append(out, "fLaC"...)
	out = append(out, 0x00, byte(len(streamInfoBody)>>16), byte(len(streamInfoBody)>>8), byte(len(streamInfoBody)))
	out = append(out, streamInfoBody...)

	col := tagmodel.NewCollection(true)
	col.Add("TITLE", tagmodel.NewText(title))
	commentBody := flac.EncodeVorbisComment(col, "tagcore-batch-test")
	out = append(out, 0x84, byte(len(commentBody)>>16), byte(len(commentBody)>>8), byte(len(commentBody)))
	out = append(out, commentBody...)

	return out
}

func writeTempFlac(t *testing.T, dir, name, title string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	err := os.WriteFile(path, buildMinimalFlacFile(t, title), 0o644)
	assert.NoError(t, err)
	return path
}

func TestBatchReadPreservesOrderAndDecodesTags(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writeTempFlac(t, dir, "a.flac", "Song A"),
		writeTempFlac(t, dir, "b.flac", "Song B"),
		writeTempFlac(t, dir, "c.flac", "Song C"),
	}

	r := NewReader(0)
	results := r.BatchRead(context.Background(), paths)
	assert.Len(t, results, 3)
	for i, want := range []string{"Song A", "Song B", "Song C"} {
		assert.Equal(t, paths[i], results[i].Path)
		assert.NoError(t, results[i].Err)
		v, ok := results[i].Collection.Get("title")
		assert.True(t, ok)
		assert.Equal(t, []string{want}, v.Text)
	}
}

func TestBatchReadCachesByPathSizeAndMtime(t *testing.T) {
	dir := t.TempDir()
	path := writeTempFlac(t, dir, "cached.flac", "Cached Title")

	r := NewReader(2)
	first := r.BatchRead(context.Background(), []string{path})
	assert.NoError(t, first[0].Err)

	abs, _ := filepath.Abs(path)
	stat, _ := os.Stat(abs)
	key := cacheKey{path: abs, size: stat.Size(), mtimeNs: stat.ModTime().UnixNano()}
	_, ok := r.cache.lookup(key)
	assert.True(t, ok, "expected decode result to be cached after first read")

	second := r.BatchRead(context.Background(), []string{path})
	v, ok := second[0].Collection.Get("title")
	assert.True(t, ok)
	assert.Equal(t, []string{"Cached Title"}, v.Text)
}

func TestIdenticalInputSequenceFastPath(t *testing.T) {
	dir := t.TempDir()
	paths := []string{writeTempFlac(t, dir, "fast.flac", "Fast Path")}

	r := NewReader(1)
	first := r.BatchRead(context.Background(), paths)
	second := r.BatchRead(context.Background(), paths)
	assert.Equal(t, first[0].Path, second[0].Path)

	v, ok := second[0].Collection.Get("title")
	assert.True(t, ok)
	assert.Equal(t, []string{"Fast Path"}, v.Text)

	// Mutating the copy returned by the fast path must not affect the
	// reader's cached aggregate (spec.md §4.7: "a hit returns a deep copy").
	second[0].Collection.Set("title", tagmodel.NewText("Mutated"))
	third := r.BatchRead(context.Background(), paths)
	v, ok = third[0].Collection.Get("title")
	assert.True(t, ok)
	assert.Equal(t, []string{"Fast Path"}, v.Text)
}

func TestClearCacheInvalidatesFastPath(t *testing.T) {
	dir := t.TempDir()
	paths := []string{writeTempFlac(t, dir, "clear.flac", "Before Clear")}

	r := NewReader(1)
	r.BatchRead(context.Background(), paths)
	r.ClearCache()

	// Rewrite the same path with different content; without cache
	// invalidation a stale fast-path hit would still report the old title.
	err := os.WriteFile(paths[0], buildMinimalFlacFile(t, "After Clear"), 0o644)
	assert.NoError(t, err)

	results := r.BatchRead(context.Background(), paths)
	v, ok := results[0].Collection.Get("title")
	assert.True(t, ok)
	assert.Equal(t, []string{"After Clear"}, v.Text)
}

func TestBatchReadReportsIOErrorForMissingFile(t *testing.T) {
	r := NewReader(1)
	results := r.BatchRead(context.Background(), []string{"/nonexistent/path/does-not-exist.flac"})
	assert.Len(t, results, 1)
	assert.Error(t, results[0].Err)
}

func TestBatchReadHonoursPreCancelledContext(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writeTempFlac(t, dir, "x.flac", "X"),
		writeTempFlac(t, dir, "y.flac", "Y"),
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewReader(2)
	results := r.BatchRead(ctx, paths)
	for _, res := range results {
		assert.Error(t, res.Err)
	}
}
