package libcache

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/vmihailenco/msgpack/v5"

	"irlink/internal/klib"
	"irlink/internal/project"
	"irlink/internal/xref"
)

func sampleCache() *Cache {
	return &Cache{
		InlineFunctionBodies: []xref.InlineFunctionReference{{
			File: 0, FunctionSignature: 5, Body: 12, StartOffset: 100, EndOffset: 140,
			ExtensionReceiverSig: xref.InvalidIndex, DispatchReceiverSig: xref.InvalidIndex,
			ValueParameterSigs: []int32{7, 8}, DefaultValues: []int32{xref.InvalidIndex, xref.InvalidIndex},
		}},
		ClassFields: []xref.ClassFields{{
			File: 0, ClassSignature: 2,
			Fields: []xref.FieldInfo{{Name: 3, BinaryType: xref.InvalidIndex, Type: 9, Flags: xref.FlagIsConst}},
		}},
	}
}

func TestDiskCacheRoundTrip(t *testing.T) {
	disk, err := OpenDiskCache(t.TempDir())
	if err != nil {
		t.Fatalf("OpenDiskCache: %v", err)
	}
	lib := klib.New(klib.Manifest{Name: "util"})
	lib.Digest = project.Sum([]byte("util v1"))

	reg := NewRegistry(disk)
	if reg.IsLibraryCached(lib) {
		t.Fatalf("empty cache reports a hit")
	}
	if err := reg.Store(lib, sampleCache()); err != nil {
		t.Fatalf("Store: %v", err)
	}

	fresh := NewRegistry(disk)
	if !fresh.IsLibraryCached(lib) {
		t.Fatalf("stored library not reported as cached")
	}
	got, err := fresh.Cache(lib)
	if err != nil {
		t.Fatalf("Cache: %v", err)
	}
	if diff := cmp.Diff(sampleCache(), got, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("cache mismatch (-want +got):\n%s", diff)
	}

	var p Payload
	ok, err := disk.Get(lib.Digest, &p)
	if err != nil || !ok || p.Library != "util" || p.LibraryDigest != lib.Digest {
		t.Fatalf("payload = %+v, %v, %v", p, ok, err)
	}
}

func TestDiskCacheMissAndDrop(t *testing.T) {
	disk, err := OpenDiskCache(t.TempDir())
	if err != nil {
		t.Fatalf("OpenDiskCache: %v", err)
	}
	key := project.Sum([]byte("x"))
	var p Payload
	if ok, err := disk.Get(key, &p); ok || err != nil {
		t.Fatalf("miss = %v, %v", ok, err)
	}

	if err := disk.Put(key, &Payload{Library: "x"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	entries, err := os.ReadDir(filepath.Join(disk.Dir(), "libs"))
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected exactly one file and no temp leftovers: %v, %v", entries, err)
	}
	if err := disk.DropAll(); err != nil {
		t.Fatalf("DropAll: %v", err)
	}
	if disk.Has(key) {
		t.Fatalf("entry survived DropAll")
	}
	var nilCache *DiskCache
	if ok, err := nilCache.Get(key, &p); ok || err != nil {
		t.Fatalf("nil cache Get = %v, %v", ok, err)
	}
}

func TestDiskCacheSchemaMismatch(t *testing.T) {
	disk, err := OpenDiskCache(t.TempDir())
	if err != nil {
		t.Fatalf("OpenDiskCache: %v", err)
	}
	key := project.Sum([]byte("old"))
	path := disk.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	data, err := msgpack.Marshal(&Payload{Schema: schemaVersion + 1, Library: "old"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	var p Payload
	if _, err := disk.Get(key, &p); !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestRegistryInMemory(t *testing.T) {
	reg := NewRegistry(nil)
	lib := klib.New(klib.Manifest{Name: "mem"})
	if reg.IsLibraryCached(lib) {
		t.Fatalf("unexpected hit")
	}
	if _, err := reg.Cache(lib); err == nil {
		t.Fatalf("expected error for uncached library")
	}
	reg.Register("mem", sampleCache())
	if !reg.IsLibraryCached(lib) {
		t.Fatalf("registered cache not found")
	}
}
