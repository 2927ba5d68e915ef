package thumbs

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang/groupcache/lru"
	bolt "go.etcd.io/bbolt"
)

// MemoryEntries bounds the memory-only cache.
const MemoryEntries = 64

var bucketImages = []byte("images")

// Cache keeps downloaded image bytes keyed by URL. With a path the bytes
// live only in bolt; without one they live in a bounded LRU.
type Cache struct {
	db *bolt.DB

	mu  sync.Mutex
	mem *lru.Cache
}

// OpenCache opens the bolt file at path, or a memory-only cache when path is empty.
func OpenCache(path string) (*Cache, error) {
	if path == "" {
		return newMemoryCache(MemoryEntries), nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketImages)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Cache{db: db}, nil
}

func newMemoryCache(entries int) *Cache {
	return &Cache{mem: lru.New(entries)}
}

// Get returns a copy of the cached bytes for url.
func (c *Cache) Get(url string) ([]byte, bool) {
	if c.db == nil {
		c.mu.Lock()
		v, ok := c.mem.Get(url)
		c.mu.Unlock()
		if !ok {
			return nil, false
		}
		return append([]byte(nil), v.([]byte)...), true
	}

	var data []byte
	err := c.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketImages).Get([]byte(url)); v != nil {
			// bolt values are only valid inside the transaction.
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil || data == nil {
		return nil, false
	}
	return data, true
}

// Put stores a copy of data for url.
func (c *Cache) Put(url string, data []byte) error {
	if c.db == nil {
		c.mu.Lock()
		c.mem.Add(url, append([]byte(nil), data...))
		c.mu.Unlock()
		return nil
	}
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketImages).Put([]byte(url), data)
	})
}

// Len reports how many entries the memory cache holds, or 0 for bolt.
func (c *Cache) Len() int {
	if c.db != nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mem.Len()
}

// Close closes the bolt file if there is one.
func (c *Cache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}
