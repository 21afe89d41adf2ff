package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Cache stores rendered post HTML on disk. File names carry a hash of the
// source, so editing a post makes its old entry unreachable.
type Cache struct {
	dir string
}

func NewCache(dir string) *Cache {
	return &Cache{dir: dir}
}

// Path returns the cache file for a post rendered from source.
func (c *Cache) Path(postID, source string) string {
	idHash := generateHash(postID)
	return filepath.Join(c.dir, fmt.Sprintf("%s_%s.html", idHash, generateHash(source)))
}

// generateHash generates an xxHash hex digest for the given string
func generateHash(s string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(s))
}

// ETag returns a weak entity tag for body.
func ETag(body []byte) string {
	return fmt.Sprintf(`W/"%016x"`, xxhash.Sum64(body))
}

func (c *Cache) Write(postID, source, html string) error {
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return err
	}
	return os.WriteFile(c.Path(postID, source), []byte(html), 0644)
}

// Read returns the cached HTML if it exists and is younger than maxAge.
func (c *Cache) Read(postID, source string, maxAge time.Duration) (string, bool) {
	path := c.Path(postID, source)

	info, err := os.Stat(path)
	if err != nil {
		return "", false
	}
	if time.Since(info.ModTime()) > maxAge {
		return "", false
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	return string(content), true
}

// Clear removes every cached rendering of a post.
func (c *Cache) Clear(postID string) error {
	matches, err := filepath.Glob(filepath.Join(c.dir, generateHash(postID)+"_*.html"))
	if err != nil {
		return err
	}
	for _, match := range matches {
		if err := os.Remove(match); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

func (c *Cache) ClearAll() error {
	return os.RemoveAll(c.dir)
}

// ClearOld removes cache files older than maxAge.
func (c *Cache) ClearOld(maxAge time.Duration) error {
	return filepath.Walk(c.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() || !strings.HasSuffix(path, ".html") {
			return nil
		}
		if time.Since(info.ModTime()) > maxAge {
			os.Remove(path)
		}
		return nil
	})
}
