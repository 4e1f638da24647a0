// Package ir defines the in-memory declaration tree produced by linking:
// modules, files, declarations, types and bodies, plus the symbols that
// reference them.
package ir

import "irlink/internal/sig"

// Origin records how a declaration came into existence.
type Origin uint8

const (
	OriginDeserialized Origin = iota + 1
	OriginStub
	OriginForwardDeclaration
	OriginBuiltin
	OriginCTypeDefinition
)

// String returns the string representation of Origin.
func (o Origin) String() string {
	switch o {
	case OriginDeserialized:
		return "deserialized"
	case OriginStub:
		return "stub"
	case OriginForwardDeclaration:
		return "forward-declaration"
	case OriginBuiltin:
		return "builtin"
	case OriginCTypeDefinition:
		return "c-type-definition"
	default:
		return "unknown"
	}
}

// Visibility of a declaration.
type Visibility uint8

const (
	Public Visibility = iota
	Internal
	Private
	Local
)

// Parent is a node that can own declarations.
type Parent interface {
	parentNode()
}

// Declaration is implemented by every declaration node.
type Declaration interface {
	Symbol() *Symbol
	Name() string
	Parent() Parent
	SetParent(p Parent)
	Origin() Origin
	Offsets() (start, end int32)
	declarationNode()
}

// DeclBase carries the fields shared by every declaration.
type DeclBase struct {
	symbol     *Symbol
	name       string
	parent     Parent
	origin     Origin
	start, end int32
}

// NewDeclBase builds the shared part of a declaration.
func NewDeclBase(symbol *Symbol, name string, origin Origin, start, end int32) DeclBase {
	return DeclBase{symbol: symbol, name: name, origin: origin, start: start, end: end}
}

func (d *DeclBase) Symbol() *Symbol             { return d.symbol }
func (d *DeclBase) Name() string                { return d.name }
func (d *DeclBase) Parent() Parent              { return d.parent }
func (d *DeclBase) SetParent(p Parent)          { d.parent = p }
func (d *DeclBase) Origin() Origin              { return d.origin }
func (d *DeclBase) SetOrigin(o Origin)          { d.origin = o }
func (d *DeclBase) Offsets() (start, end int32) { return d.start, d.end }
func (d *DeclBase) declarationNode()            {}

// Signature is a shorthand for Symbol().Signature().
func (d *DeclBase) Signature() sig.Signature { return d.symbol.Signature() }

// Class is a class declaration. Members, supertypes and the this-receiver are
// once-cells so stubbed classes can defer them.
type Class struct {
	DeclBase
	Visibility     Visibility
	IsInner        bool
	IsValue        bool
	IsInterface    bool
	TypeParameters []*TypeParameter
	// InlineUnderlying is the underlying type of a value class.
	InlineUnderlying *Type

	members      Lazy[[]Declaration]
	superTypes   Lazy[[]Type]
	thisReceiver Lazy[*ValueParameter]
}

// NewClass creates a class and binds its symbol.
func NewClass(base DeclBase) (*Class, error) {
	c := &Class{DeclBase: base}
	return c, base.symbol.Bind(c)
}

func (c *Class) parentNode() {}

// Declarations returns the member list, computing it on first access.
func (c *Class) Declarations() []Declaration { return c.members.Get() }

// SetDeclarations installs the member cell.
func (c *Class) SetDeclarations(cell Lazy[[]Declaration]) { c.members = cell }

// SuperTypes returns the supertypes, computing them on first access.
func (c *Class) SuperTypes() []Type { return c.superTypes.Get() }

// SetSuperTypes installs the supertype cell.
func (c *Class) SetSuperTypes(cell Lazy[[]Type]) { c.superTypes = cell }

// ThisReceiver returns the class receiver parameter.
func (c *Class) ThisReceiver() *ValueParameter { return c.thisReceiver.Get() }

// SetThisReceiver installs the receiver cell.
func (c *Class) SetThisReceiver(cell Lazy[*ValueParameter]) { c.thisReceiver = cell }

// MembersComputed reports whether the member list was materialized.
func (c *Class) MembersComputed() bool { return c.members.Computed() }

// Function is a function or property accessor.
type Function struct {
	DeclBase
	Visibility            Visibility
	IsInline              bool
	TypeParameters        []*TypeParameter
	DispatchReceiver      *ValueParameter
	ExtensionReceiver     *ValueParameter
	ValueParameters       []*ValueParameter
	ReturnType            Type
	Body                  *Body
	CorrespondingProperty *Property
}

// NewFunction creates a function and binds its symbol.
func NewFunction(base DeclBase) (*Function, error) {
	f := &Function{DeclBase: base}
	return f, base.symbol.Bind(f)
}

func (f *Function) parentNode() {}

// Property groups accessors and a backing field.
type Property struct {
	DeclBase
	Visibility   Visibility
	IsConst      bool
	Getter       *Function
	Setter       *Function
	BackingField *Field
}

// NewProperty creates a property and binds its symbol.
func NewProperty(base DeclBase) (*Property, error) {
	p := &Property{DeclBase: base}
	return p, base.symbol.Bind(p)
}

// Field is a storage slot of a class or file.
type Field struct {
	DeclBase
	Type        Type
	Initializer *ExpressionBody
	// Property is set for backing fields.
	Property *Property
}

// NewField creates a field and binds its symbol.
func NewField(base DeclBase) (*Field, error) {
	f := &Field{DeclBase: base}
	return f, base.symbol.Bind(f)
}

// TypeParameter is a type parameter of a class or function.
type TypeParameter struct {
	DeclBase
	Index      int
	SuperTypes []Type
}

// NewTypeParameter creates a type parameter and binds its symbol.
func NewTypeParameter(base DeclBase, index int) (*TypeParameter, error) {
	p := &TypeParameter{DeclBase: base, Index: index}
	return p, base.symbol.Bind(p)
}

// ValueParameter is a value parameter or receiver.
type ValueParameter struct {
	DeclBase
	Index        int
	Type         Type
	DefaultValue *ExpressionBody
}

// NewValueParameter creates a value parameter and binds its symbol.
func NewValueParameter(base DeclBase, index int) (*ValueParameter, error) {
	p := &ValueParameter{DeclBase: base, Index: index}
	return p, base.symbol.Bind(p)
}
