package klib

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"

	"irlink/internal/compat"
	"irlink/internal/project"
	"irlink/internal/proto"
)

// archiveSchema is bumped when the encoding of proto records changes.
const archiveSchema uint16 = 1

// maxPreallocatedFiles bounds the slice reserved from an untrusted header.
const maxPreallocatedFiles = 1024

type archiveHeader struct {
	Schema uint16
	Files  int
}

// Library is a loaded library archive.
type Library struct {
	Manifest Manifest
	// Dir is the archive directory, empty for in-memory libraries.
	Dir    string
	Files  []*proto.File
	Digest project.Digest
}

// New creates an in-memory library.
func New(m Manifest, files ...*proto.File) *Library {
	return &Library{Manifest: m, Files: files}
}

// Name returns the library name.
func (l *Library) Name() string { return l.Manifest.Name }

// IsInterop reports whether the library wraps native declarations.
func (l *Library) IsInterop() bool { return l.Manifest.Interop }

// ABIVersion returns the format version the library was written with.
func (l *Library) ABIVersion() compat.ABIVersion {
	v, err := compat.ParseABIVersion(l.Manifest.ABIVersion)
	if err != nil {
		return compat.Current // validated by LoadManifest
	}
	return v
}

// FileCount returns the number of files.
func (l *Library) FileCount() int { return len(l.Files) }

// Reader returns the record reader of file i.
func (l *Library) Reader(i int) proto.FileReader { return proto.NewReader(l.Files[i]) }

// Load reads the archive in dir.
func Load(dir string) (*Library, error) {
	m, err := LoadManifest(dir)
	if err != nil {
		return nil, err
	}
	path := filepath.Join(dir, IRFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	files, err := decodeFiles(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	manifest, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, err
	}
	return &Library{
		Manifest: m,
		Dir:      dir,
		Files:    files,
		Digest:   project.Combine(project.Sum(manifest), project.Sum(data)),
	}, nil
}

func decodeFiles(data []byte) ([]*proto.File, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	var hdr archiveHeader
	if err := dec.Decode(&hdr); err != nil {
		return nil, fmt.Errorf("decode archive header: %w", err)
	}
	if hdr.Schema != archiveSchema {
		return nil, fmt.Errorf("archive schema %d, want %d", hdr.Schema, archiveSchema)
	}
	if hdr.Files < 0 {
		return nil, fmt.Errorf("archive declares %d files", hdr.Files)
	}
	files := make([]*proto.File, 0, min(hdr.Files, maxPreallocatedFiles))
	for i := 0; i < hdr.Files; i++ {
		f := new(proto.File)
		if err := dec.Decode(f); err != nil {
			return nil, fmt.Errorf("decode file %d: %w", i, err)
		}
		files = append(files, f)
	}
	return files, nil
}

// Save writes lib to dir, creating it if needed.
func Save(dir string, lib *Library) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := SaveManifest(dir, lib.Manifest); err != nil {
		return err
	}
	f, err := os.Create(filepath.Join(dir, IRFile))
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	enc := msgpack.NewEncoder(w)
	if err := enc.Encode(archiveHeader{Schema: archiveSchema, Files: len(lib.Files)}); err != nil {
		f.Close()
		return err
	}
	for _, file := range lib.Files {
		if err := enc.Encode(file); err != nil {
			f.Close()
			return fmt.Errorf("encode %s: %w", file.Name, err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	lib.Dir = dir
	return f.Close()
}
