package cache

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/holo2k/AdvertControl-sub000/pkg/file"
)

// pngBytesChecksum is the SHA-256 hex digest of "png-bytes".
const pngBytesChecksum = "ea80334363eed145dfeee51ebae7dc3f1cd7d0c7879f8bfd2070c061d3c33f56"

// countingFetcher serves canned bytes and counts downloads per reference.
type countingFetcher struct {
	data    map[string][]byte
	fetches int
}

func (f *countingFetcher) FetchAsset(_ context.Context, reference string) (io.ReadCloser, error) {
	data, ok := f.data[reference]
	if !ok {
		return nil, fmt.Errorf("no such asset: %s", reference)
	}
	f.fetches++
	return io.NopCloser(bytes.NewReader(data)), nil
}

func newTestCache(t *testing.T, dir string, maxBytes int64, fetcher Fetcher) *ContentCache {
	t.Helper()
	c, err := NewContentCache(dir, maxBytes, fetcher, file.NewFileService(), zerolog.Nop())
	assert.NoError(t, err)
	return c
}

// TestContentCache_Materialize_DownloadOnce tests that a second materialize
// of the same key is served locally.
func TestContentCache_Materialize_DownloadOnce(t *testing.T) {
	fetcher := &countingFetcher{data: map[string][]byte{
		"http://srv/assets/banner.png": []byte("png-bytes"),
	}}
	c := newTestCache(t, t.TempDir(), 0, fetcher)

	path1, err := c.Materialize(context.Background(), "http://srv/assets/banner.png", pngBytesChecksum)
	assert.NoError(t, err)

	data, err := os.ReadFile(path1)
	assert.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), data)

	path2, err := c.Materialize(context.Background(), "http://srv/assets/banner.png", pngBytesChecksum)
	assert.NoError(t, err)
	assert.Equal(t, path1, path2)
	assert.Equal(t, 1, fetcher.fetches)
}

// TestContentCache_Materialize_ChecksumKey tests that the checksum names
// the cache entry and the extension survives.
func TestContentCache_Materialize_ChecksumKey(t *testing.T) {
	fetcher := &countingFetcher{data: map[string][]byte{
		"http://srv/assets/banner.png?X-Signature=zzz": []byte("png-bytes"),
	}}
	c := newTestCache(t, t.TempDir(), 0, fetcher)

	path, err := c.Materialize(context.Background(), "http://srv/assets/banner.png?X-Signature=zzz", pngBytesChecksum)
	assert.NoError(t, err)
	assert.Equal(t, pngBytesChecksum+".png", filepath.Base(path))
}

// TestContentCache_Materialize_ChecksumMismatch tests that bytes not
// matching the declared digest are rejected and never installed.
func TestContentCache_Materialize_ChecksumMismatch(t *testing.T) {
	dir := t.TempDir()
	fetcher := &countingFetcher{data: map[string][]byte{
		"banner.png": []byte("not-the-expected-bytes"),
	}}
	c := newTestCache(t, dir, 0, fetcher)

	_, err := c.Materialize(context.Background(), "banner.png", pngBytesChecksum)
	assert.ErrorContains(t, err, "checksum mismatch")

	entries, err := os.ReadDir(dir)
	assert.NoError(t, err)
	assert.Empty(t, entries)
}

// TestContentCache_Materialize_BasenameFallback tests the key derivation
// when no checksum is present.
func TestContentCache_Materialize_BasenameFallback(t *testing.T) {
	fetcher := &countingFetcher{data: map[string][]byte{
		"videos/intro.mp4": []byte("mp4-bytes"),
	}}
	c := newTestCache(t, t.TempDir(), 0, fetcher)

	path, err := c.Materialize(context.Background(), "videos/intro.mp4", "")
	assert.NoError(t, err)
	assert.Equal(t, "intro.mp4", filepath.Base(path))
}

// TestContentCache_Materialize_FetchError tests that a failed download
// leaves no cache entry behind.
func TestContentCache_Materialize_FetchError(t *testing.T) {
	dir := t.TempDir()
	c := newTestCache(t, dir, 0, &countingFetcher{})

	_, err := c.Materialize(context.Background(), "missing.png", "")
	assert.Error(t, err)

	entries, err := os.ReadDir(dir)
	assert.NoError(t, err)
	assert.Empty(t, entries)
}

// TestContentCache_Eviction tests that the oldest entries go first and the
// just-installed file survives.
func TestContentCache_Eviction(t *testing.T) {
	dir := t.TempDir()
	fetcher := &countingFetcher{data: map[string][]byte{
		"a.bin": bytes.Repeat([]byte("a"), 100),
		"b.bin": bytes.Repeat([]byte("b"), 100),
		"c.bin": bytes.Repeat([]byte("c"), 100),
	}}
	c := newTestCache(t, dir, 250, fetcher)

	pathA, err := c.Materialize(context.Background(), "a.bin", "")
	assert.NoError(t, err)
	pathB, err := c.Materialize(context.Background(), "b.bin", "")
	assert.NoError(t, err)

	// Spread mtimes so the age ordering is unambiguous.
	now := time.Now()
	assert.NoError(t, os.Chtimes(pathA, now.Add(-2*time.Hour), now.Add(-2*time.Hour)))
	assert.NoError(t, os.Chtimes(pathB, now.Add(-time.Hour), now.Add(-time.Hour)))

	pathC, err := c.Materialize(context.Background(), "c.bin", "")
	assert.NoError(t, err)

	_, err = os.Stat(pathA)
	assert.True(t, os.IsNotExist(err), "oldest entry should have been evicted")
	_, err = os.Stat(pathB)
	assert.NoError(t, err)
	_, err = os.Stat(pathC)
	assert.NoError(t, err)
}

// TestCacheKey covers the key derivation rules.
func TestCacheKey(t *testing.T) {
	key, ext := cacheKey("http://srv/media/clip.mp4?sig=1", "deadbeef")
	assert.Equal(t, "deadbeef", key)
	assert.Equal(t, ".mp4", ext)

	key, ext = cacheKey("media/clip.mp4", "")
	assert.Equal(t, "clip", key)
	assert.Equal(t, ".mp4", ext)

	key, ext = cacheKey("plainname", "")
	assert.Equal(t, "plainname", key)
	assert.Equal(t, "", ext)
}
