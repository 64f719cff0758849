package cache

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/holo2k/AdvertControl-sub000/pkg/file"
)

// Fetcher retrieves the raw bytes of a named asset, typically over HTTP.
type Fetcher interface {
	FetchAsset(ctx context.Context, reference string) (io.ReadCloser, error)
}

// ContentCache is a checksum-addressed local blob store with download-once,
// atomic-install semantics. Entries are never mutated in place, replacement
// is always install-then-rename.
type ContentCache struct {
	dir      string
	maxBytes int64
	fetcher  Fetcher
	fileOps  file.FileOperations
	logger   zerolog.Logger
}

// NewContentCache creates the cache directory if needed and returns a cache
// rooted there. maxBytes of 0 disables eviction.
func NewContentCache(dir string, maxBytes int64, fetcher Fetcher, fileOps file.FileOperations, logger zerolog.Logger) (*ContentCache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory %s: %w", dir, err)
	}

	return &ContentCache{
		dir:      dir,
		maxBytes: maxBytes,
		fetcher:  fetcher,
		fileOps:  fileOps,
		logger:   logger,
	}, nil
}

// Materialize ensures the referenced asset exists as a local file and
// returns its path. A cache hit performs no network call. Two concurrent
// first-downloads of the same key may both download; the last atomic rename
// wins, which is correct because entries are content-addressed.
func (c *ContentCache) Materialize(ctx context.Context, reference, checksum string) (string, error) {
	key, ext := cacheKey(reference, checksum)
	finalPath := filepath.Join(c.dir, key+ext)

	if _, err := os.Stat(finalPath); err == nil {
		c.logger.Debug().Str("key", key).Msg("Content cache hit")
		return finalPath, nil
	}

	body, err := c.fetcher.FetchAsset(ctx, reference)
	if err != nil {
		return "", fmt.Errorf("failed to fetch asset %s: %w", reference, err)
	}
	defer body.Close()

	tmp, err := os.CreateTemp(c.dir, key+"-*.part")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary download file: %w", err)
	}

	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to download asset %s: %w", reference, err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}

	// A checksum, when present, is authoritative: corrupt or truncated
	// downloads must never be installed under a content-addressed key.
	if checksum != "" {
		sum, err := c.fileOps.GetFileHash(tmp.Name())
		if err != nil {
			os.Remove(tmp.Name())
			return "", fmt.Errorf("failed to hash downloaded asset %s: %w", reference, err)
		}
		if sum != checksum {
			os.Remove(tmp.Name())
			return "", fmt.Errorf("checksum mismatch for asset %s: expected %s, got %s", reference, checksum, sum)
		}
	}

	if err := os.Rename(tmp.Name(), finalPath); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to install asset %s: %w", reference, err)
	}

	c.logger.Info().Str("key", key).Str("path", finalPath).Msg("Asset installed into content cache")

	if c.maxBytes > 0 {
		c.evict(finalPath)
	}

	return finalPath, nil
}

// cacheKey derives the cache file name. The checksum is preferred; the
// asset's base name without extension is the fallback. The original
// extension is preserved so renderers can sniff the media type.
func cacheKey(reference, checksum string) (key, ext string) {
	name := reference
	if u, err := url.Parse(reference); err == nil && u.Path != "" {
		name = u.Path
	}
	base := filepath.Base(name)
	ext = filepath.Ext(base)

	if checksum != "" {
		return checksum, ext
	}
	return strings.TrimSuffix(base, ext), ext
}

// evict removes oldest-modified entries until the cache fits maxBytes
// again. The just-installed file is exempt. mtime is used as the age signal
// because it survives restarts without a sidecar index.
func (c *ContentCache) evict(justInstalled string) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to scan cache directory for eviction")
		return
	}

	type cacheFile struct {
		path string
		size int64
		mod  int64
	}

	var files []cacheFile
	var total int64
	for _, entry := range entries {
		if entry.IsDir() || strings.HasSuffix(entry.Name(), ".part") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, cacheFile{
			path: filepath.Join(c.dir, entry.Name()),
			size: info.Size(),
			mod:  info.ModTime().UnixNano(),
		})
		total += info.Size()
	}

	if total <= c.maxBytes {
		return
	}

	sort.Slice(files, func(i, j int) bool { return files[i].mod < files[j].mod })

	for _, f := range files {
		if total <= c.maxBytes {
			break
		}
		if f.path == justInstalled {
			continue
		}
		if err := os.Remove(f.path); err != nil {
			c.logger.Warn().Err(err).Str("path", f.path).Msg("Failed to evict cache entry")
			continue
		}
		total -= f.size
		c.logger.Info().Str("path", f.path).Msg("Evicted cache entry")
	}
}
