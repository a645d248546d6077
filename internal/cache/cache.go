// Package cache is a content-addressed file cache. Keys are hashed to
// a stable filename under the cache root; writes go through a temp file
// and a rename so readers never observe partial content.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

type Cache struct {
	root string
}

func New(root string) (*Cache, error) {
	if root == "" {
		return nil, fmt.Errorf("cache: empty root")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("cache: create root: %w", err)
	}
	return &Cache{root: root}, nil
}

func (c *Cache) Root() string { return c.root }

// Key derives a cache key from its parts. Any part may contain
// arbitrary bytes; only the hash reaches the filesystem.
func Key(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(sum[:])
}

// Path returns the on-disk location for a key with the given extension.
// The extension keeps downstream tools (ffmpeg, players) happy.
func (c *Cache) Path(key, ext string) string {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return filepath.Join(c.root, key+ext)
}

// Lookup reports whether the key is already materialized.
func (c *Cache) Lookup(key, ext string) (string, bool) {
	p := c.Path(key, ext)
	if st, err := os.Stat(p); err == nil && st.Size() > 0 {
		return p, true
	}
	return p, false
}

// Put stores content under key and returns the final path.
func (c *Cache) Put(key, ext string, r io.Reader) (string, error) {
	final := c.Path(key, ext)
	tmp, err := os.CreateTemp(c.root, "put-*")
	if err != nil {
		return "", fmt.Errorf("cache: temp: %w", err)
	}
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("cache: write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("cache: close %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), final); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("cache: commit %s: %w", key, err)
	}
	return final, nil
}

// PutBytes is Put for in-memory content.
func (c *Cache) PutBytes(key, ext string, b []byte) (string, error) {
	return c.Put(key, ext, strings.NewReader(string(b)))
}

// GetBytes reads cached content, with ok=false on miss.
func (c *Cache) GetBytes(key, ext string) ([]byte, bool, error) {
	p, ok := c.Lookup(key, ext)
	if !ok {
		return nil, false, nil
	}
	b, err := os.ReadFile(p)
	if err != nil {
		return nil, false, fmt.Errorf("cache: read %s: %w", key, err)
	}
	return b, true, nil
}

// FileKey hashes a file's content, so cache entries survive renames and
// go stale when the source changes.
func FileKey(path string, extra ...string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("cache: open %s: %w", path, err)
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("cache: hash %s: %w", path, err)
	}
	for _, e := range extra {
		h.Write([]byte{0})
		h.Write([]byte(e))
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
