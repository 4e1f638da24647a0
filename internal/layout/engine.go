package layout

import (
	"fmt"

	"irlink/internal/ir"
)

// TypeLayout is the ABI layout of a type or class for a specific Target.
type TypeLayout struct {
	Size  int
	Align int

	// Class-only:
	FieldOffsets []int
	FieldAligns  []int
}

// Engine computes memory layouts of IR types and class field lists. Value
// class layouts are cached by class.
type Engine struct {
	Target   Target
	Builtins *ir.Builtins

	values map[*ir.Class]cacheEntry
}

type cacheEntry struct {
	Layout TypeLayout
	Err    error
}

// New creates an Engine for target.
func New(target Target, builtins *ir.Builtins) *Engine {
	return &Engine{
		Target:   target,
		Builtins: builtins,
		values:   make(map[*ir.Class]cacheEntry, 32),
	}
}

type layoutState struct {
	stack []*ir.Class
	index map[*ir.Class]int
}

func newLayoutState() *layoutState {
	return &layoutState{index: make(map[*ir.Class]int, 8)}
}

// LayoutOf computes the layout of a value of type t. Nullable and reference
// types are pointers; value classes take the layout of their underlying
// type.
func (e *Engine) LayoutOf(t ir.Type) (TypeLayout, error) {
	return e.layoutOf(t, newLayoutState())
}

func (e *Engine) layoutOf(t ir.Type, state *layoutState) (TypeLayout, error) {
	if t.Nullable || t.Classifier == nil {
		return e.ptrLayout(), nil
	}
	c := t.ClassOrNil()
	if c == nil {
		// type parameters are boxed
		return e.ptrLayout(), nil
	}
	if p, ok := e.primitive(c); ok {
		return e.primitiveLayout(p), nil
	}
	if !c.IsValue {
		return e.ptrLayout(), nil
	}
	if cached, ok := e.values[c]; ok {
		return cached.Layout, cached.Err
	}

	if idx, ok := state.index[c]; ok {
		cycle := make([]string, 0, len(state.stack)-idx+1)
		for _, k := range state.stack[idx:] {
			cycle = append(cycle, ir.QualifiedName(k))
		}
		cycle = append(cycle, ir.QualifiedName(c))
		err := &LayoutError{Kind: LayoutErrRecursiveValueClass, Class: ir.QualifiedName(c), Cycle: cycle}
		e.values[c] = cacheEntry{Layout: TypeLayout{Size: 0, Align: 1}, Err: err}
		return TypeLayout{Size: 0, Align: 1}, err
	}
	if c.InlineUnderlying == nil {
		return TypeLayout{Size: 0, Align: 1}, &LayoutError{Kind: LayoutErrMissingUnderlying, Class: ir.QualifiedName(c)}
	}

	state.index[c] = len(state.stack)
	state.stack = append(state.stack, c)
	l, err := e.layoutOf(*c.InlineUnderlying, state)
	state.stack = state.stack[:len(state.stack)-1]
	delete(state.index, c)

	if _, seen := e.values[c]; !seen {
		e.values[c] = cacheEntry{Layout: l, Err: err}
	}
	return l, err
}

func (e *Engine) primitive(c *ir.Class) (PrimitiveBinaryType, bool) {
	b := e.Builtins
	if b == nil {
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
	return 0, false
}

func (e *Engine) primitiveLayout(p PrimitiveBinaryType) TypeLayout {
	switch p {
	case BinaryBoolean, BinaryByte:
		return scalarLayoutBytes(1)
	case BinaryShort:
		return scalarLayoutBytes(2)
	case BinaryInt, BinaryFloat:
		return scalarLayoutBytes(4)
	case BinaryLong, BinaryDouble:
		return scalarLayoutBytes(8)
	case BinaryVector128:
		return scalarLayoutBytes(16)
	default:
		return e.ptrLayout()
	}
}

func (e *Engine) ptrLayout() TypeLayout {
	ptrSize := e.Target.PtrSize
	ptrAlign := e.Target.PtrAlign
	if ptrSize <= 0 {
		ptrSize = 8
	}
	if ptrAlign <= 0 {
		ptrAlign = ptrSize
	}
	return TypeLayout{Size: ptrSize, Align: ptrAlign}
}

func scalarLayoutBytes(size int) TypeLayout {
	if size <= 0 {
		return TypeLayout{Size: 0, Align: 1}
	}
	return TypeLayout{Size: size, Align: size}
}

func roundUp(n, align int) int {
	if align <= 1 {
		return n
	}
	r := n % align
	if r == 0 {
		return n
	}
	return n + (align - r)
}

// ClassLayout lays fields out in order, each at the next offset aligned
// for its type. The size is rounded up to the largest alignment.
func (e *Engine) ClassLayout(fields []FieldInfo) (TypeLayout, error) {
	if len(fields) == 0 {
		return TypeLayout{Size: 0, Align: 1}, nil
	}
	offsets := make([]int, len(fields))
	aligns := make([]int, len(fields))
	size := 0
	align := 1
	for i, f := range fields {
		fl, err := e.LayoutOf(f.Type)
		if err != nil {
			return TypeLayout{Size: 0, Align: 1}, fmt.Errorf("field %s: %w", f.Name, err)
		}
		fAlign := max(fl.Align, 1)
		size = roundUp(size, fAlign)
		offsets[i] = size
		aligns[i] = fAlign
		size += fl.Size
		align = max(align, fAlign)
	}
	return TypeLayout{
		Size:         roundUp(size, align),
		Align:        align,
		FieldOffsets: offsets,
		FieldAligns:  aligns,
	}, nil
}
