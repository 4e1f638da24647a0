// Package deser turns the proto records of one library file into IR. Public
// symbols are resolved through the linker; local ones live in a per-file
// table that reconstruction can pre-seed with live nodes.
package deser

import (
	"fmt"

	"irlink/internal/ir"
	"irlink/internal/proto"
	"irlink/internal/sig"
)

// PublicResolver resolves a public signature to its session-wide symbol.
type PublicResolver func(s sig.Signature, kind sig.SymbolKind) (*ir.Symbol, error)

// SymbolDeserializer decodes symbol references of one file.
type SymbolDeserializer struct {
	reader        proto.FileReader
	resolvePublic PublicResolver
	locals        map[sig.Signature]*ir.Symbol
}

// NewSymbolDeserializer creates the symbol table of one file.
func NewSymbolDeserializer(reader proto.FileReader, resolvePublic PublicResolver) *SymbolDeserializer {
	return &SymbolDeserializer{
		reader:        reader,
		resolvePublic: resolvePublic,
		locals:        make(map[sig.Signature]*ir.Symbol),
	}
}

// DeserializeSignature decodes a signature-table id.
func (d *SymbolDeserializer) DeserializeSignature(id int32) (sig.Signature, error) {
	return d.reader.Signature(id)
}

// DeserializeSymbol decodes a packed symbol reference.
func (d *SymbolDeserializer) DeserializeSymbol(data proto.SymbolData) (*ir.Symbol, error) {
	kind := data.Kind()
	if !kind.Valid() {
		return nil, fmt.Errorf("symbol reference %#x: invalid kind %d", int64(data), kind)
	}
	s, err := d.DeserializeSignature(data.SignatureID())
	if err != nil {
		return nil, err
	}
	if s.IsPublic() {
		return d.DeserializePublicSymbol(s, kind)
	}
	if sym, ok := d.locals[s]; ok {
		return sym, nil
	}
	sym := ir.NewSymbol(kind, s)
	d.locals[s] = sym
	return sym, nil
}

// DeserializePublicSymbol resolves a public signature through the linker.
func (d *SymbolDeserializer) DeserializePublicSymbol(s sig.Signature, kind sig.SymbolKind) (*ir.Symbol, error) {
	sym, err := d.resolvePublic(s, kind)
	if err != nil {
		return nil, fmt.Errorf("resolve %v: %w", s, err)
	}
	return sym, nil
}

// ReferenceLocal makes later references to the local signature s resolve to
// sym. Reconstruction uses it to point recorded parameters at live nodes.
func (d *SymbolDeserializer) ReferenceLocal(sym *ir.Symbol, s sig.Signature) {
	d.locals[s] = sym
}

// Local returns the symbol recorded for a local signature.
func (d *SymbolDeserializer) Local(s sig.Signature) (*ir.Symbol, bool) {
	sym, ok := d.locals[s]
	return sym, ok
}
