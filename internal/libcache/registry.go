package libcache

import (
	"fmt"

	"irlink/internal/klib"
	"irlink/internal/xref"
)

// Cache holds the decoded records of one cached library.
type Cache struct {
	InlineFunctionBodies []xref.InlineFunctionReference
	ClassFields          []xref.ClassFields
}

// Encode serializes c into a payload for lib.
func Encode(lib *klib.Library, c *Cache) (*Payload, error) {
	inline, err := xref.SerializeInlineFunctionReferences(c.InlineFunctionBodies)
	if err != nil {
		return nil, fmt.Errorf("%s inline references: %w", lib.Name(), err)
	}
	fields, err := xref.SerializeClassFields(c.ClassFields)
	if err != nil {
		return nil, fmt.Errorf("%s class fields: %w", lib.Name(), err)
	}
	return &Payload{
		Library:              lib.Name(),
		LibraryDigest:        lib.Digest,
		InlineFunctionBodies: inline,
		ClassFields:          fields,
	}, nil
}

// Decode deserializes the blobs of p.
func Decode(p *Payload) (*Cache, error) {
	inline, err := xref.DeserializeInlineFunctionReferences(p.InlineFunctionBodies)
	if err != nil {
		return nil, fmt.Errorf("%s inline references: %w", p.Library, err)
	}
	fields, err := xref.DeserializeClassFields(p.ClassFields)
	if err != nil {
		return nil, fmt.Errorf("%s class fields: %w", p.Library, err)
	}
	return &Cache{InlineFunctionBodies: inline, ClassFields: fields}, nil
}

// Registry answers which libraries are cached and serves their records.
// Entries come from the disk cache or are registered in memory.
type Registry struct {
	disk   *DiskCache
	memory map[string]*Cache
}

// NewRegistry creates a registry backed by disk, which may be nil.
func NewRegistry(disk *DiskCache) *Registry {
	return &Registry{disk: disk, memory: make(map[string]*Cache)}
}

// Register makes c the cache of the library named name.
func (r *Registry) Register(name string, c *Cache) { r.memory[name] = c }

// IsLibraryCached reports whether a cache exists for lib.
func (r *Registry) IsLibraryCached(lib *klib.Library) bool {
	if _, ok := r.memory[lib.Name()]; ok {
		return true
	}
	return !lib.Digest.IsZero() && r.disk.Has(lib.Digest)
}

// Cache returns the decoded cache of lib, reading it from disk on first use.
func (r *Registry) Cache(lib *klib.Library) (*Cache, error) {
	if c, ok := r.memory[lib.Name()]; ok {
		return c, nil
	}
	var p Payload
	ok, err := r.disk.Get(lib.Digest, &p)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("library %s is not cached", lib.Name())
	}
	c, err := Decode(&p)
	if err != nil {
		return nil, err
	}
	r.memory[lib.Name()] = c
	return c, nil
}

// Store persists c for lib and registers it.
func (r *Registry) Store(lib *klib.Library, c *Cache) error {
	p, err := Encode(lib, c)
	if err != nil {
		return err
	}
	if !lib.Digest.IsZero() {
		if err := r.disk.Put(lib.Digest, p); err != nil {
			return err
		}
	}
	r.Register(lib.Name(), c)
	return nil
}
