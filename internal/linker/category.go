package linker

import (
	"irlink/internal/descriptor"
	"irlink/internal/ir"
	"irlink/internal/klib"
	"irlink/internal/sig"
)

// Category is the closed set of module deserializer kinds.
type Category uint8

const (
	CategoryForward Category = iota + 1
	CategoryInterop
	CategoryCached
	CategoryLibrary
)

// String returns the string representation of Category.
func (c Category) String() string {
	switch c {
	case CategoryForward:
		return "forward"
	case CategoryInterop:
		return "interop"
	case CategoryCached:
		return "cached"
	case CategoryLibrary:
		return "library"
	default:
		return "unknown"
	}
}

// ModuleDeserializer materializes the declarations of one module.
type ModuleDeserializer interface {
	Category() Category
	Descriptor() *descriptor.Module
	// Library is nil for the forward-declaration module.
	Library() *klib.Library
	// Contains reports whether the module owns the top-level signature s.
	// It never fails; uncertainty is false.
	Contains(s sig.Signature) bool
	// DeserializeSymbol returns the symbol for s, materializing or
	// scheduling its declaration.
	DeserializeSymbol(s sig.Signature, kind sig.SymbolKind) (*ir.Symbol, error)
	ModuleDependencies() ([]ModuleDeserializer, error)
	ModuleFragment() *ir.Module
	// AddModuleReachableTopLevel schedules the top level of s for
	// materialization. Modules that materialize eagerly ignore it.
	AddModuleReachableTopLevel(s sig.Signature)
}

// worker is implemented by deserializers with a work queue.
type worker interface {
	pending() bool
	drain() error
}

// selectCategory is the deserializer selection table. Rows are evaluated in
// order; the first match wins.
func selectCategory(l *Linker, desc *descriptor.Module, lib *klib.Library) (Category, error) {
	switch {
	case desc == l.cfg.ForwardModule && desc != nil:
		return CategoryForward, nil
	case lib == nil:
		return 0, ErrNoLibrary
	case lib.IsInterop():
		return CategoryInterop, nil
	case l.cfg.LazyCaches && l.caches != nil && l.caches.IsLibraryCached(lib):
		return CategoryCached, nil
	default:
		return CategoryLibrary, nil
	}
}
