// Package sig defines the structural identifiers that name declarations
// within and across modules.
package sig

import (
	"fmt"
	"strings"
)

// Kind distinguishes public signatures from the two local forms.
type Kind uint8

const (
	// KindPublic names a declaration visible across modules.
	KindPublic Kind = iota + 1
	// KindFileLocal names a private declaration anchored to a public container.
	KindFileLocal
	// KindScopeLocal names a declaration by its index inside a single file.
	KindScopeLocal
)

// String returns the string representation of Kind.
func (k Kind) String() string {
	switch k {
	case KindPublic:
		return "public"
	case KindFileLocal:
		return "file-local"
	case KindScopeLocal:
		return "scope-local"
	default:
		return "unknown"
	}
}

// Flags carries per-signature attribute bits.
type Flags uint32

const (
	// FlagNativeInterop marks declarations coming from a native interop library.
	FlagNativeInterop Flags = 1 << iota
	// FlagExpect marks expect declarations.
	FlagExpect
)

// Has reports whether every bit of f2 is set.
func (f Flags) Has(f2 Flags) bool { return f&f2 == f2 }

// Signature is a comparable structural identifier. Public signatures are
// package + dotted declaration path (+ overload hash); file-local ones reuse the
// container's package and path and add a local id; scope-local ones carry only
// the id.
type Signature struct {
	Kind    Kind
	Package string
	Decl    string
	Hash    uint64
	Flags   Flags
	Local   int32
}

// Public builds a public signature.
func Public(pkg, decl string, hash uint64, flags Flags) Signature {
	return Signature{Kind: KindPublic, Package: pkg, Decl: decl, Hash: hash, Flags: flags}
}

// FileLocal builds a private signature anchored to container.
func FileLocal(container Signature, id int32) Signature {
	return Signature{Kind: KindFileLocal, Package: container.Package, Decl: container.Decl, Hash: container.Hash, Flags: container.Flags, Local: id}
}

// ScopeLocal builds a scope-local signature.
func ScopeLocal(id int32) Signature {
	return Signature{Kind: KindScopeLocal, Local: id}
}

// IsZero reports whether s is the zero signature.
func (s Signature) IsZero() bool { return s == Signature{} }

// IsPublic reports whether s is publicly visible.
func (s Signature) IsPublic() bool { return s.Kind == KindPublic }

// IsInterop reports whether s carries FlagNativeInterop.
func (s Signature) IsInterop() bool { return s.Flags.Has(FlagNativeInterop) }

// Segments splits the declaration path.
func (s Signature) Segments() []string {
	if s.Decl == "" {
		return nil
	}
	return strings.Split(s.Decl, ".")
}

// Name returns the last declaration path segment.
func (s Signature) Name() string {
	if i := strings.LastIndexByte(s.Decl, '.'); i >= 0 {
		return s.Decl[i+1:]
	}
	return s.Decl
}

// TopLevel returns the signature of the nearest file-level declaration.
// Scope-local signatures have no top level and are returned unchanged.
func (s Signature) TopLevel() Signature {
	switch s.Kind {
	case KindPublic:
		i := strings.IndexByte(s.Decl, '.')
		if i < 0 {
			return s
		}
		return Signature{Kind: KindPublic, Package: s.Package, Decl: s.Decl[:i], Flags: s.Flags}
	case KindFileLocal:
		return Signature{Kind: KindPublic, Package: s.Package, Decl: s.Decl, Hash: s.Hash, Flags: s.Flags}.TopLevel()
	default:
		return s
	}
}

// PackageHasPrefix reports whether the first package segment equals segment.
func (s Signature) PackageHasPrefix(segment string) bool {
	if !strings.HasPrefix(s.Package, segment) {
		return false
	}
	return len(s.Package) == len(segment) || s.Package[len(segment)] == '.'
}

// String renders s for error messages and dumps.
func (s Signature) String() string {
	switch s.Kind {
	case KindPublic:
		out := s.Package + "/" + s.Decl
		if s.Hash != 0 {
			out += fmt.Sprintf("|%d", s.Hash)
		}
		if s.Flags != 0 {
			out += fmt.Sprintf("[%d]", s.Flags)
		}
		return out
	case KindFileLocal:
		return fmt.Sprintf("%s/%s:%d", s.Package, s.Decl, s.Local)
	case KindScopeLocal:
		return fmt.Sprintf("#%d", s.Local)
	default:
		return "<no signature>"
	}
}
