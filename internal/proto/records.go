package proto

import "irlink/internal/sig"

// DeclKind is the discriminant of a Declaration record.
type DeclKind uint8

const (
	DeclClass DeclKind = iota + 1
	DeclFunction
	DeclProperty
	DeclField
	DeclOther
)

// String returns the string representation of DeclKind.
func (k DeclKind) String() string {
	switch k {
	case DeclClass:
		return "class"
	case DeclFunction:
		return "function"
	case DeclProperty:
		return "property"
	case DeclField:
		return "field"
	case DeclOther:
		return "other"
	default:
		return "unknown"
	}
}

// Declaration is a tagged record; exactly the payload matching Kind is set.
type Declaration struct {
	Kind     DeclKind
	Class    *Class
	Function *Function
	Property *Property
	Field    *Field
}

// Base is shared by every declaration record.
type Base struct {
	Symbol SymbolData
	Start  int32
	End    int32
	Flags  Flags
}

// TypeParameter declares a type parameter of a class or function.
type TypeParameter struct {
	Base       Base
	Name       int32
	SuperTypes []int32
}

// ValueParameter declares a value parameter or receiver.
type ValueParameter struct {
	Base         Base
	NameType     NameAndType
	HasDefault   bool
	DefaultValue int32
}

// Function declares a function or accessor.
type Function struct {
	Base              Base
	NameType          NameAndType
	TypeParameters    []TypeParameter
	DispatchReceiver  *ValueParameter
	ExtensionReceiver *ValueParameter
	ValueParameters   []ValueParameter
	HasBody           bool
	Body              int32
}

// IsInline reports FlagInline.
func (f *Function) IsInline() bool { return f.Base.Flags.Has(FlagInline) }

// Field declares a standalone or backing field.
type Field struct {
	Base           Base
	NameType       NameAndType
	HasInitializer bool
	Initializer    int32
}

// Property declares a property. Accessors live in two fixed slots.
type Property struct {
	Base         Base
	Name         int32
	Getter       *Function
	Setter       *Function
	BackingField *Field
}

// Class declares a class with its nested declarations.
type Class struct {
	Base           Base
	Name           int32
	TypeParameters []TypeParameter
	SuperTypes     []int32
	ThisReceiver   *ValueParameter
	Declarations   []Declaration
	// InlineUnderlying is the type index of a value class's underlying type.
	InlineUnderlying int32
}

// Type is a type-table entry. The classifier is a class or type-parameter symbol.
type Type struct {
	Classifier SymbolData
	Nullable   bool
	Arguments  []int32
}

// BodyKind distinguishes statement bodies from expression bodies.
type BodyKind uint8

const (
	BodyStatements BodyKind = iota + 1
	BodyExpression
)

// Body is a body-table entry. Expression bodies hold exactly one statement.
type Body struct {
	Kind       BodyKind
	Statements []Expression
}

// ExprKind discriminates Expression records.
type ExprKind uint8

const (
	ExprConst ExprKind = iota + 1
	ExprString
	ExprGetValue
	ExprSetValue
	ExprCall
	ExprReturn
	ExprBlock
	ExprDeclaration
)

// Expression is a statement or expression record. Symbol refers to the
// callee, variable or return target; Value holds constants or a string index.
type Expression struct {
	Kind        ExprKind
	Type        int32
	Symbol      SymbolData
	Value       int64
	Args        []Expression
	Declaration *Declaration
}

// File is one serialized source file of a library.
type File struct {
	Name    string
	Package string
	// Declarations and DeclarationIDs are parallel: DeclarationIDs[i] is the
	// signature id of the top-level Declarations[i].
	Declarations   []Declaration
	DeclarationIDs []int32
	Strings        []string
	Signatures     []sig.Signature
	Types          []Type
	Bodies         []Body
}
