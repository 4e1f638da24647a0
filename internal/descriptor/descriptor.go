// Package descriptor models the front end's view of library declarations:
// lightweight descriptors indexed by signature, used where declarations are
// produced by stub generation instead of deserialization.
package descriptor

import (
	"irlink/internal/ir"
	"irlink/internal/sig"
)

// Kind classifies a descriptor.
type Kind uint8

const (
	KindClass Kind = iota + 1
	KindFunction
	KindProperty
	KindField
)

// SymbolKind maps the descriptor kind to the symbol kind of its declaration.
func (k Kind) SymbolKind() sig.SymbolKind {
	switch k {
	case KindClass:
		return sig.SymbolClass
	case KindFunction:
		return sig.SymbolFunction
	case KindProperty:
		return sig.SymbolProperty
	case KindField:
		return sig.SymbolField
	default:
		return 0
	}
}

// TypeRef refers to a class by signature. A zero classifier means the
// universal nullable top type.
type TypeRef struct {
	Classifier sig.Signature
	Nullable   bool
}

// Param describes a value parameter.
type Param struct {
	Name string
	Type TypeRef
}

// Descriptor describes one declaration.
type Descriptor struct {
	Kind      Kind
	Signature sig.Signature
	Name      string
	Package   string
	Module    *Module
	// Parent is the containing class descriptor, nil for top-level declarations.
	Parent *Descriptor

	Visibility ir.Visibility
	IsInline   bool
	IsInner    bool
	IsValue    bool
	IsConst    bool
	// IsCEnumOrCStruct marks interop enum and struct classes.
	IsCEnumOrCStruct bool

	Members           []*Descriptor
	SuperTypes        []TypeRef
	TypeParameters    []string
	ValueParameters   []Param
	ExtensionReceiver *TypeRef
	ReturnType        TypeRef
	// Underlying is the underlying type of a value class.
	Underlying     *TypeRef
	Getter, Setter *Descriptor
	// Property is set on accessor descriptors.
	Property *Descriptor
}

// HasDispatchReceiver reports whether d is a member callable.
func (d *Descriptor) HasDispatchReceiver() bool {
	return d.Parent != nil && d.Kind != KindClass
}
