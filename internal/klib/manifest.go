// Package klib reads and writes library archives. An archive is a directory
// with a TOML manifest and an ir.klib file holding the msgpack-encoded proto
// files of the library.
package klib

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"irlink/internal/compat"
)

const (
	// ManifestFile is the manifest name inside a library directory.
	ManifestFile = "manifest.toml"
	// IRFile is the proto archive name inside a library directory.
	IRFile = "ir.klib"
)

var (
	// ErrLibrarySectionMissing indicates that [library] is missing.
	ErrLibrarySectionMissing = errors.New("missing [library]")
	// ErrLibraryNameMissing indicates that [library].name is missing or empty.
	ErrLibraryNameMissing = errors.New("missing [library].name")
)

// Manifest describes a library.
type Manifest struct {
	Name         string   `toml:"name"`
	ABIVersion   string   `toml:"abi_version,omitempty"`
	Interop      bool     `toml:"interop,omitempty"`
	Dependencies []string `toml:"dependencies,omitempty"`
}

type manifestFile struct {
	Library Manifest `toml:"library"`
}

// LoadManifest parses dir/manifest.toml.
func LoadManifest(dir string) (Manifest, error) {
	path := filepath.Join(dir, ManifestFile)
	var cfg manifestFile
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Manifest{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if !meta.IsDefined("library") {
		return Manifest{}, fmt.Errorf("%s: %w", path, ErrLibrarySectionMissing)
	}
	cfg.Library.Name = strings.TrimSpace(cfg.Library.Name)
	if cfg.Library.Name == "" {
		return Manifest{}, fmt.Errorf("%s: %w", path, ErrLibraryNameMissing)
	}
	if _, err := compat.ParseABIVersion(cfg.Library.ABIVersion); err != nil {
		return Manifest{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg.Library, nil
}

// SaveManifest writes m to dir/manifest.toml.
func SaveManifest(dir string, m Manifest) error {
	f, err := os.Create(filepath.Join(dir, ManifestFile))
	if err != nil {
		return err
	}
	if err := toml.NewEncoder(f).Encode(manifestFile{Library: m}); err != nil {
		f.Close()
		return fmt.Errorf("encode manifest: %w", err)
	}
	return f.Close()
}
