package ir

import "irlink/internal/sig"

// BuiltinsPackage is the package of builtin classes.
const BuiltinsPackage = "lang"

// Builtins holds the classes every module may reference without a library.
type Builtins struct {
	Any, Boolean, Byte, Short, Int, Long, Float, Double, Unit, String *Class
	NativePtr, Vector128                                             *Class
	all                                                              []*Class
}

// NewBuiltins allocates the builtin classes with bound symbols.
func NewBuiltins() *Builtins {
	b := &Builtins{}
	mk := func(name string) *Class {
		sym := NewSymbol(sig.SymbolClass, BuiltinSignature(name))
		c, err := NewClass(NewDeclBase(sym, name, OriginBuiltin, 0, 0))
		if err != nil {
			panic(err) // fresh symbol
		}
		c.SetDeclarations(Ready[[]Declaration](nil))
		c.SetSuperTypes(Ready[[]Type](nil))
		b.all = append(b.all, c)
		return c
	}
	b.Any = mk("Any")
	b.Boolean = mk("Boolean")
	b.Byte = mk("Byte")
	b.Short = mk("Short")
	b.Int = mk("Int")
	b.Long = mk("Long")
	b.Float = mk("Float")
	b.Double = mk("Double")
	b.Unit = mk("Unit")
	b.String = mk("String")
	b.NativePtr = mk("NativePtr")
	b.Vector128 = mk("Vector128")
	return b
}

// BuiltinSignature returns the public signature of the builtin class name.
func BuiltinSignature(name string) sig.Signature {
	return sig.Public(BuiltinsPackage, name, 0, 0)
}

// Classes lists every builtin class.
func (b *Builtins) Classes() []*Class { return b.all }

// TypeOf returns the non-null type of c.
func TypeOf(c *Class) Type { return Type{Classifier: c.Symbol()} }

// AnyN is the universal nullable top type.
func (b *Builtins) AnyN() Type { return Type{Classifier: b.Any.Symbol(), Nullable: true} }
