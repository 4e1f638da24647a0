// Package libcache persists the cross-reference records of cached libraries
// and serves them to the linker.
package libcache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"irlink/internal/project"
)

// schemaVersion is bumped when Payload changes.
const schemaVersion uint16 = 1

// ErrSchemaMismatch reports a payload written by a different schema.
var ErrSchemaMismatch = errors.New("cache schema mismatch")

// Payload is the on-disk form of one library cache. The two blobs use the
// xref binary formats.
type Payload struct {
	Schema               uint16
	Library              string
	LibraryDigest        project.Digest
	InlineFunctionBodies []byte
	ClassFields          []byte
}

// DiskCache stores payloads keyed by library digest. Safe for concurrent use.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
}

// OpenDiskCache opens (creating if needed) a cache rooted at dir.
func OpenDiskCache(dir string) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir}, nil
}

// Dir returns the cache root.
func (c *DiskCache) Dir() string { return c.dir }

func (c *DiskCache) pathFor(key project.Digest) string {
	return filepath.Join(c.dir, "libs", key.Hex()+".mp")
}

// Put writes payload atomically (temp file + rename).
func (c *DiskCache) Put(key project.Digest, payload *Payload) (err error) {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(f.Name())
		}
	}()

	payload.Schema = schemaVersion
	if err = msgpack.NewEncoder(f).Encode(payload); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", payload.Library, err)
	}
	if err = f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), p)
}

// Get reads the payload for key. A missing entry is (false, nil).
func (c *DiskCache) Get(key project.Digest, out *Payload) (bool, error) {
	if c == nil {
		return false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	defer f.Close()

	if err := msgpack.NewDecoder(f).Decode(out); err != nil {
		return false, fmt.Errorf("decode cache %s: %w", key.Hex(), err)
	}
	if out.Schema != schemaVersion {
		return false, fmt.Errorf("cache %s: schema %d, want %d: %w", key.Hex(), out.Schema, schemaVersion, ErrSchemaMismatch)
	}
	return true, nil
}

// Has reports whether an entry exists for key.
func (c *DiskCache) Has(key project.Digest) bool {
	if c == nil {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, err := os.Stat(c.pathFor(key))
	return err == nil
}

// DropAll removes every entry.
func (c *DiskCache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return os.RemoveAll(filepath.Join(c.dir, "libs"))
}
