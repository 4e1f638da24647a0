package proto

import "irlink/internal/sig"

// Builder assembles a File, interning strings, signatures and types.
type Builder struct {
	f       *File
	strings map[string]int32
	sigs    map[sig.Signature]int32
}

// NewBuilder starts an empty file.
func NewBuilder(name, pkg string) *Builder {
	return &Builder{
		f:       &File{Name: name, Package: pkg},
		strings: make(map[string]int32),
		sigs:    make(map[sig.Signature]int32),
	}
}

// String interns s and returns its index.
func (b *Builder) String(s string) int32 {
	if id, ok := b.strings[s]; ok {
		return id
	}
	id := int32(len(b.f.Strings)) // #nosec G115 -- builder tables stay small
	b.f.Strings = append(b.f.Strings, s)
	b.strings[s] = id
	return id
}

// Signature interns s and returns its id.
func (b *Builder) Signature(s sig.Signature) int32 {
	if id, ok := b.sigs[s]; ok {
		return id
	}
	id := int32(len(b.f.Signatures)) // #nosec G115 -- builder tables stay small
	b.f.Signatures = append(b.f.Signatures, s)
	b.sigs[s] = id
	return id
}

// Symbol interns s and packs it with kind.
func (b *Builder) Symbol(kind sig.SymbolKind, s sig.Signature) SymbolData {
	return EncodeSymbol(kind, b.Signature(s))
}

// NameType interns name and packs it with a type index.
func (b *Builder) NameType(name string, typ int32) NameAndType {
	return EncodeNameAndType(b.String(name), typ)
}

// Type appends a type-table entry.
func (b *Builder) Type(t Type) int32 {
	id := int32(len(b.f.Types)) // #nosec G115 -- builder tables stay small
	b.f.Types = append(b.f.Types, t)
	return id
}

// ClassType appends a type referring to the class with signature s.
func (b *Builder) ClassType(s sig.Signature, nullable bool) int32 {
	return b.Type(Type{Classifier: b.Symbol(sig.SymbolClass, s), Nullable: nullable})
}

// Body appends a body-table entry.
func (b *Builder) Body(body Body) int32 {
	id := int32(len(b.f.Bodies)) // #nosec G115 -- builder tables stay small
	b.f.Bodies = append(b.f.Bodies, body)
	return id
}

// TopLevel appends a top-level declaration identified by s.
func (b *Builder) TopLevel(s sig.Signature, d Declaration) int32 {
	idx := int32(len(b.f.Declarations)) // #nosec G115 -- builder tables stay small
	b.f.Declarations = append(b.f.Declarations, d)
	b.f.DeclarationIDs = append(b.f.DeclarationIDs, b.Signature(s))
	return idx
}

// File returns the assembled file.
func (b *Builder) File() *File { return b.f }
