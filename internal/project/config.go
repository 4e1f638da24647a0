package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/BurntSushi/toml"

	"irlink/internal/deser"
)

// DefaultCacheDir is the cache directory used when [link].cache_dir is unset.
const DefaultCacheDir = ".irlink-cache"

var (
	// ErrLinkSectionMissing indicates that [link] is missing.
	ErrLinkSectionMissing = errors.New("missing [link]")
	// ErrNoLibraries indicates that no [libraries.<name>] table is present.
	ErrNoLibraries = errors.New("no [libraries] declared")
	// ErrLibraryPathMissing indicates a library without a path.
	ErrLibraryPathMissing = errors.New("library path missing")
	// ErrInvalidLibraryName indicates a library name that is not an identifier.
	ErrInvalidLibraryName = errors.New("invalid library name")
	// ErrUnknownCurrent indicates that [link].current names no declared library.
	ErrUnknownCurrent = errors.New("[link].current is not a declared library")
	// ErrInvalidStrategy indicates an unknown [link].strategy.
	ErrInvalidStrategy = errors.New("invalid [link].strategy")
)

// LinkSettings is the [link] section.
type LinkSettings struct {
	Current       string `toml:"current"`
	LazyCaches    bool   `toml:"lazy_caches"`
	ForwardModule bool   `toml:"forward_module"`
	Strategy      string `toml:"strategy"`
	CacheDir      string `toml:"cache_dir"`
}

// LibrarySpec describes one [libraries.<name>] entry.
type LibrarySpec struct {
	Path string `toml:"path"`
}

// Config is a parsed irlink.toml.
type Config struct {
	// Root is the directory holding the configuration file.
	Root      string
	Link      LinkSettings
	Libraries map[string]LibrarySpec
}

type configFile struct {
	Link      LinkSettings           `toml:"link"`
	Libraries map[string]LibrarySpec `toml:"libraries"`
}

// IsValidLibraryName reports whether name is an ASCII identifier, allowing
// '.' and '-' after the first character.
func IsValidLibraryName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		if r > unicode.MaxASCII {
			return false
		}
		if i == 0 && r != '_' && !unicode.IsLetter(r) {
			return false
		}
		if i > 0 && r != '_' && r != '.' && r != '-' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// LoadConfig parses and validates the configuration at path.
func LoadConfig(path string) (*Config, error) {
	var raw configFile
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if !meta.IsDefined("link") {
		return nil, fmt.Errorf("%s: %w", path, ErrLinkSectionMissing)
	}
	if len(raw.Libraries) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoLibraries)
	}
	for name, spec := range raw.Libraries {
		if !IsValidLibraryName(name) {
			return nil, fmt.Errorf("%s: %w: %q", path, ErrInvalidLibraryName, name)
		}
		spec.Path = strings.TrimSpace(spec.Path)
		if spec.Path == "" {
			return nil, fmt.Errorf("%s: library %q: %w", path, name, ErrLibraryPathMissing)
		}
		raw.Libraries[name] = spec
	}
	raw.Link.Current = strings.TrimSpace(raw.Link.Current)
	if raw.Link.Current != "" {
		if _, ok := raw.Libraries[raw.Link.Current]; !ok {
			return nil, fmt.Errorf("%s: %w: %q", path, ErrUnknownCurrent, raw.Link.Current)
		}
	}
	if _, err := deser.ParseStrategy(raw.Link.Strategy); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", path, ErrInvalidStrategy, err)
	}
	if strings.TrimSpace(raw.Link.CacheDir) == "" {
		raw.Link.CacheDir = DefaultCacheDir
	}
	return &Config{
		Root:      filepath.Dir(path),
		Link:      raw.Link,
		Libraries: raw.Libraries,
	}, nil
}

// Strategy returns the parsed deserialization strategy.
func (c *Config) Strategy() deser.Strategy {
	s, err := deser.ParseStrategy(c.Link.Strategy)
	if err != nil {
		return deser.StrategyReferenced // validated by LoadConfig
	}
	return s
}

// LibraryNames lists the declared libraries in name order.
func (c *Config) LibraryNames() []string {
	names := make([]string, 0, len(c.Libraries))
	for name := range c.Libraries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LibraryDir resolves the archive directory of the library name relative to
// the configuration root.
func (c *Config) LibraryDir(name string) (string, error) {
	spec, ok := c.Libraries[name]
	if !ok {
		return "", fmt.Errorf("library %q is not declared", name)
	}
	dir := filepath.FromSlash(spec.Path)
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(c.Root, dir)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return "", fmt.Errorf("library %q: %w", name, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("library %q: %s is not a directory", name, dir)
	}
	return dir, nil
}

// CacheDir resolves the library cache directory relative to the
// configuration root.
func (c *Config) CacheDir() string {
	dir := filepath.FromSlash(c.Link.CacheDir)
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(c.Root, dir)
}
