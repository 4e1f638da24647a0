// Package proto holds the binary declaration records of a library archive and
// the packed integer encodings they use.
package proto

import (
	"irlink/internal/sig"
)

// NoIndex is the sentinel index for absent table references.
const NoIndex int32 = -1

// SymbolData packs a symbol kind and a signature-table id into one word.
type SymbolData int64

const symbolKindBits = 8

// EncodeSymbol packs kind and signature id.
func EncodeSymbol(kind sig.SymbolKind, signatureID int32) SymbolData {
	return SymbolData(int64(signatureID)<<symbolKindBits | int64(kind))
}

// Kind returns the packed symbol kind.
func (d SymbolData) Kind() sig.SymbolKind {
	return sig.SymbolKind(d & (1<<symbolKindBits - 1)) // #nosec G115 -- masked to 8 bits
}

// SignatureID returns the packed signature-table id.
func (d SymbolData) SignatureID() int32 {
	return int32(int64(d) >> symbolKindBits) // #nosec G115 -- encoded from an int32
}

// NameAndType packs a string-table index and a type-table index.
type NameAndType int64

// EncodeNameAndType packs name and type indices.
func EncodeNameAndType(name, typ int32) NameAndType {
	return NameAndType(int64(name)<<32 | int64(uint32(typ))) // #nosec G115 -- bit packing
}

// Name returns the string-table index.
func (n NameAndType) Name() int32 { return int32(int64(n) >> 32) } // #nosec G115 -- high half

// Type returns the type-table index.
func (n NameAndType) Type() int32 { return int32(uint32(int64(n))) } // #nosec G115 -- low half

// Flags are declaration attribute bits shared by every record kind.
type Flags uint32

const (
	FlagInline Flags = 1 << iota
	FlagInner
	FlagConst
	FlagValueClass
	FlagInterface
	FlagPrivate
	FlagInternal
	FlagExternal
)

// Has reports whether every bit of f2 is set.
func (f Flags) Has(f2 Flags) bool { return f&f2 == f2 }
