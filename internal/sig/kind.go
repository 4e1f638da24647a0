package sig

// SymbolKind classifies the declaration a symbol refers to.
type SymbolKind uint8

const (
	SymbolClass SymbolKind = iota + 1
	SymbolConstructor
	SymbolFunction
	SymbolProperty
	SymbolField
	SymbolTypeParameter
	SymbolValueParameter
	SymbolReceiverParameter
	SymbolVariable
)

// String returns the string representation of SymbolKind.
func (k SymbolKind) String() string {
	switch k {
	case SymbolClass:
		return "class"
	case SymbolConstructor:
		return "constructor"
	case SymbolFunction:
		return "function"
	case SymbolProperty:
		return "property"
	case SymbolField:
		return "field"
	case SymbolTypeParameter:
		return "type-parameter"
	case SymbolValueParameter:
		return "value-parameter"
	case SymbolReceiverParameter:
		return "receiver-parameter"
	case SymbolVariable:
		return "variable"
	default:
		return "unknown"
	}
}

// Valid reports whether k is a known kind.
func (k SymbolKind) Valid() bool { return k >= SymbolClass && k <= SymbolVariable }
