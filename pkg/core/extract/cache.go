package extract

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultCacheDir is where answers are cached when caching is enabled.
var DefaultCacheDir = filepath.Join(".cache", "extract")

// ResponseCache stores raw model answers on disk, keyed by document content,
// model and prompt, so re-running against the same PDF costs nothing.
type ResponseCache struct {
	cacheDir string
}

// NewResponseCache creates the cache directory if needed.
func NewResponseCache(dir string) (*ResponseCache, error) {
	if dir == "" {
		dir = DefaultCacheDir
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache dir %s: %w", dir, err)
	}
	return &ResponseCache{cacheDir: dir}, nil
}

// Key derives the entry name for one request.
func (c *ResponseCache) Key(documentSHA, model, prompt string) string {
	sum := sha256.Sum256([]byte(documentSHA + "\x00" + model + "\x00" + prompt))
	return hex.EncodeToString(sum[:])
}

func (c *ResponseCache) filePath(key string) string {
	return filepath.Join(c.cacheDir, key+".txt")
}

// Get returns the cached answer, if any.
func (c *ResponseCache) Get(key string) (string, bool) {
	data, err := os.ReadFile(c.filePath(key))
	if err != nil {
		return "", false
	}
	return string(data), true
}

// Set stores an answer.
func (c *ResponseCache) Set(key, answer string) error {
	return os.WriteFile(c.filePath(key), []byte(answer), 0644)
}

// Dir returns the cache directory.
func (c *ResponseCache) Dir() string {
	return c.cacheDir
}

// Clear removes every cached answer.
func (c *ResponseCache) Clear() error {
	return os.RemoveAll(c.cacheDir)
}
