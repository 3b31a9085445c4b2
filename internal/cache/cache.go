// Package cache stores serialized composition results keyed by a digest of
// the pool, the request and the strategy.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/deploymenttheory/go-service-composer/internal/common/errors"
	"github.com/deploymenttheory/go-service-composer/internal/common/fsutil"
	"github.com/deploymenttheory/go-service-composer/internal/logger"
)

// Storage defines the interface for cache storage backends
type Storage interface {
	// Get retrieves a value from the cache
	Get(key string) ([]byte, bool, error)

	// Set stores a value in the cache
	Set(key string, value []byte, ttl time.Duration) error

	// Delete removes a value from the cache
	Delete(key string) error

	// Clear removes all values from the cache
	Clear() error
}

// entry represents a single cached item
type entry struct {
	Value      []byte    `json:"value"`
	Created    time.Time `json:"created"`
	Expiration time.Time `json:"expiration"`
}

func (e *entry) expired(now time.Time) bool {
	return !e.Expiration.IsZero() && now.After(e.Expiration)
}

func newEntry(value []byte, ttl time.Duration) *entry {
	now := time.Now()
	e := &entry{Value: value, Created: now}
	if ttl > 0 {
		e.Expiration = now.Add(ttl)
	}
	return e
}

// MemoryCache implements an in-memory cache storage. When maxEntries is
// reached, expired entries are dropped first and then the oldest ones.
type MemoryCache struct {
	data       map[string]*entry
	maxEntries int
	mutex      sync.RWMutex
}

// NewMemoryCache creates a new in-memory cache. A maxEntries of zero or
// less means unbounded.
func NewMemoryCache(maxEntries int) *MemoryCache {
	return &MemoryCache{
		data:       make(map[string]*entry),
		maxEntries: maxEntries,
	}
}

// Get retrieves a value from the memory cache
func (c *MemoryCache) Get(key string) ([]byte, bool, error) {
	c.mutex.RLock()
	e, exists := c.data[key]
	c.mutex.RUnlock()
	if !exists {
		return nil, false, nil
	}

	if e.expired(time.Now()) {
		c.mutex.Lock()
		if cur, ok := c.data[key]; ok && cur == e {
			delete(c.data, key)
		}
		c.mutex.Unlock()
		return nil, false, nil
	}

	return e.Value, true, nil
}

// Set stores a value in the memory cache
func (c *MemoryCache) Set(key string, value []byte, ttl time.Duration) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if _, exists := c.data[key]; !exists && c.maxEntries > 0 && len(c.data) >= c.maxEntries {
		c.evict(len(c.data) - c.maxEntries + 1)
	}
	c.data[key] = newEntry(value, ttl)
	return nil
}

// evict removes at least n entries, expired ones first. Callers hold the
// write lock.
func (c *MemoryCache) evict(n int) {
	now := time.Now()
	for k, e := range c.data {
		if e.expired(now) {
			delete(c.data, k)
			n--
		}
	}
	if n <= 0 {
		return
	}

	keys := make([]string, 0, len(c.data))
	for k := range c.data {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return c.data[keys[i]].Created.Before(c.data[keys[j]].Created)
	})
	for _, k := range keys[:min(n, len(keys))] {
		delete(c.data, k)
	}
}

// Delete removes a value from the memory cache
func (c *MemoryCache) Delete(key string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.data, key)
	return nil
}

// Clear removes all values from the memory cache
func (c *MemoryCache) Clear() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.data = make(map[string]*entry)
	return nil
}

// Len returns the number of stored entries, expired or not.
func (c *MemoryCache) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.data)
}

// FileCache implements a file-based cache storage, so results survive
// between CLI invocations.
type FileCache struct {
	basePath string
	mutex    sync.Mutex
}

// NewFileCache creates a new file-based cache
func NewFileCache(basePath string) (*FileCache, error) {
	if err := fsutil.CreateDirIfNotExists(basePath); err != nil {
		return nil, fmt.Errorf("%w: failed to create cache directory: %v", errors.ErrCacheFailure, err)
	}

	return &FileCache{
		basePath: basePath,
	}, nil
}

// path returns the cache file for key. Keys are hex digests, anything else
// is hex encoded to keep the name filesystem safe.
func (c *FileCache) path(key string) string {
	return filepath.Join(c.basePath, fmt.Sprintf("%x", []byte(key))+".cache")
}

// Get retrieves a value from the file cache
func (c *FileCache) Get(key string) ([]byte, bool, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	filePath := c.path(key)
	if !fsutil.FileExists(filePath) {
		return nil, false, nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, false, fmt.Errorf("%w: failed to read cache file: %v", errors.ErrCacheFailure, err)
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		os.Remove(filePath)
		return nil, false, fmt.Errorf("%w: corrupt cache file: %v", errors.ErrCacheFailure, err)
	}

	if e.expired(time.Now()) {
		os.Remove(filePath)
		return nil, false, nil
	}

	return e.Value, true, nil
}

// Set stores a value in the file cache
func (c *FileCache) Set(key string, value []byte, ttl time.Duration) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	data, err := json.Marshal(newEntry(value, ttl))
	if err != nil {
		return fmt.Errorf("%w: failed to marshal cache entry: %v", errors.ErrCacheFailure, err)
	}

	if err := os.WriteFile(c.path(key), data, 0644); err != nil {
		return fmt.Errorf("%w: failed to write cache file: %v", errors.ErrCacheFailure, err)
	}
	return nil
}

// Delete removes a value from the file cache
func (c *FileCache) Delete(key string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	filePath := c.path(key)
	if fsutil.FileExists(filePath) {
		if err := os.Remove(filePath); err != nil {
			return fmt.Errorf("%w: failed to delete cache file: %v", errors.ErrCacheFailure, err)
		}
	}
	return nil
}

// Clear removes all values from the file cache
func (c *FileCache) Clear() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	files, err := filepath.Glob(filepath.Join(c.basePath, "*.cache"))
	if err != nil {
		return fmt.Errorf("%w: failed to list cache files: %v", errors.ErrCacheFailure, err)
	}

	for _, file := range files {
		if err := os.Remove(file); err != nil {
			logger.LogWarn(fmt.Sprintf("Failed to delete cache file %s", file), map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
	return nil
}
