// Package hashcache memoizes content digests across archive builds.
//
// Rehashing an unchanged tree is the dominant cost of a repeat build,
// so the cache maps (path, size, mtime) to a previously computed digest
// and is persisted to a side file between runs. The cache is strictly
// an optimization: a missing or corrupted side file degrades to a cold
// cache, never an error, and stale entries are overwritten in place.
package hashcache

import (
	"log/slog"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	bolt "go.etcd.io/bbolt"

	"github.com/snugdev/snug/chunk"
)

var digestBucket = []byte("digests")

// record is the persisted cache entry for one path.
type record struct {
	Size      int64  `cbor:"1,keyasint"`
	MtimeNano int64  `cbor:"2,keyasint"`
	Digest    string `cbor:"3,keyasint"`
	Algorithm string `cbor:"4,keyasint"`
}

// Cache memoizes path+size+mtime → digest tuples.
//
// Cache is safe for concurrent use. When the backing database cannot be
// opened the cache runs memory-only for the life of the process.
type Cache struct {
	algo   chunk.Algorithm
	logger *slog.Logger

	mu  sync.Mutex
	db  *bolt.DB
	mem map[string]record
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger used for degradation warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// Open loads or creates the cache side file at path. Open never fails
// hard: an unusable side file yields a memory-only cache.
func Open(path string, algo chunk.Algorithm, opts ...Option) *Cache {
	c := &Cache{
		algo: algo,
		mem:  make(map[string]record),
	}
	for _, opt := range opts {
		opt(c)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		c.log().Warn("hash cache unavailable, running cold", "path", path, "error", err)
		return c
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(digestBucket)
		return err
	})
	if err != nil {
		c.log().Warn("hash cache bucket init failed, running cold", "path", path, "error", err)
		_ = db.Close()
		return c
	}
	c.db = db
	return c
}

// InMemory returns a cache with no persistence.
func InMemory(algo chunk.Algorithm, opts ...Option) *Cache {
	c := &Cache{
		algo: algo,
		mem:  make(map[string]record),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Algorithm returns the digest algorithm the cache computes with.
func (c *Cache) Algorithm() chunk.Algorithm { return c.algo }

// Digest returns the content digest for the file at path whose current
// size and mtime are given. On a hit with matching size and mtime the
// cached digest is returned without touching data; otherwise the digest
// of data is computed, stored, and returned.
func (c *Cache) Digest(path string, size int64, mtime time.Time, data []byte) (string, error) {
	if rec, ok := c.lookup(path); ok &&
		rec.Size == size && rec.MtimeNano == mtime.UnixNano() && rec.Algorithm == c.algo.String() {
		return rec.Digest, nil
	}

	sum, err := c.algo.Sum(data)
	if err != nil {
		return "", err
	}
	c.store(path, record{
		Size:      size,
		MtimeNano: mtime.UnixNano(),
		Digest:    sum,
		Algorithm: c.algo.String(),
	})
	return sum, nil
}

// Close flushes and closes the backing database.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	return err
}

func (c *Cache) lookup(path string) (record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if rec, ok := c.mem[path]; ok {
		return rec, true
	}
	if c.db == nil {
		return record{}, false
	}

	var rec record
	found := false
	err := c.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(digestBucket).Get([]byte(path))
		if raw == nil {
			return nil
		}
		if err := cbor.Unmarshal(raw, &rec); err != nil {
			// Corrupt entry: treat as a miss, it will be overwritten.
			return nil
		}
		found = true
		return nil
	})
	if err != nil {
		c.log().Warn("hash cache read failed", "path", path, "error", err)
		return record{}, false
	}
	if found {
		c.mem[path] = rec
	}
	return rec, found
}

func (c *Cache) store(path string, rec record) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.mem[path] = rec
	if c.db == nil {
		return
	}
	raw, err := cbor.Marshal(rec)
	if err != nil {
		c.log().Warn("hash cache encode failed", "path", path, "error", err)
		return
	}
	err = c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(digestBucket).Put([]byte(path), raw)
	})
	if err != nil {
		c.log().Warn("hash cache write failed", "path", path, "error", err)
	}
}

func (c *Cache) log() *slog.Logger {
	if c.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.logger
}
