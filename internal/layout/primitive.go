package layout

import "irlink/internal/ir"

// PrimitiveBinaryType is the machine representation of a field. The ordinal
// values are persisted in library caches.
type PrimitiveBinaryType int32

const (
	BinaryBoolean PrimitiveBinaryType = iota
	BinaryByte
	BinaryShort
	BinaryInt
	BinaryLong
	BinaryFloat
	BinaryDouble
	BinaryPointer
	BinaryVector128
)

// String returns the string representation of PrimitiveBinaryType.
func (t PrimitiveBinaryType) String() string {
	switch t {
	case BinaryBoolean:
		return "boolean"
	case BinaryByte:
		return "byte"
	case BinaryShort:
		return "short"
	case BinaryInt:
		return "int"
	case BinaryLong:
		return "long"
	case BinaryFloat:
		return "float"
	case BinaryDouble:
		return "double"
	case BinaryPointer:
		return "pointer"
	case BinaryVector128:
		return "vector128"
	default:
		return "unknown"
	}
}

// Valid reports whether t is a known ordinal.
func (t PrimitiveBinaryType) Valid() bool { return t >= BinaryBoolean && t <= BinaryVector128 }

// PrimitiveBinaryTypeOf returns the primitive representation of t, following
// value classes to their underlying type. Nullable and reference types have
// none.
func PrimitiveBinaryTypeOf(t ir.Type, b *ir.Builtins) (PrimitiveBinaryType, bool) {
	seen := 0
	for !t.Nullable && t.Classifier != nil {
		c := t.ClassOrNil()
		if c == nil {
			return 0, false
		}
		switch c {
		case b.Boolean:
			return BinaryBoolean, true
		case b.Byte:
			return BinaryByte, true
		case b.Short:
			return BinaryShort, true
		case b.Int:
			return BinaryInt, true
		case b.Long:
			return BinaryLong, true
		case b.Float:
			return BinaryFloat, true
		case b.Double:
			return BinaryDouble, true
		case b.NativePtr:
			return BinaryPointer, true
		case b.Vector128:
			return BinaryVector128, true
		}
		if !c.IsValue || c.InlineUnderlying == nil || seen > 16 {
			return 0, false
		}
		t = *c.InlineUnderlying
		seen++
	}
	return 0, false
}
