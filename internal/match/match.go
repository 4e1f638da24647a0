// Package match locates the proto record that corresponds to a live
// declaration inside a serialized class container. Names settle the common
// case; signatures are decoded only when several children share a name.
package match

import (
	"errors"
	"fmt"

	"irlink/internal/ir"
	"irlink/internal/proto"
	"irlink/internal/sig"
)

// ErrDeclarationNotFound reports a container with no record for the target.
var ErrDeclarationNotFound = errors.New("declaration not found")

// StringTable reads string-table entries of the file the container came from.
type StringTable interface {
	String(index int32) (string, error)
}

// SignatureDecoder turns a signature-table id into a signature.
type SignatureDecoder interface {
	DeserializeSignature(id int32) (sig.Signature, error)
}

// Context bundles the tables needed to compare records with declarations.
type Context struct {
	Strings    StringTable
	Signatures SignatureDecoder
}

type candidate[T any] struct {
	record *T
	symbol proto.SymbolData
}

// pick applies the name fast path and the signature fallback. Candidates are
// already filtered by kind and name.
func pick[T any](ctx Context, target ir.Declaration, candidates []candidate[T]) (*T, error) {
	switch len(candidates) {
	case 0:
		return nil, fmt.Errorf("%s: %w", ir.Render(target), ErrDeclarationNotFound)
	case 1:
		return candidates[0].record, nil
	}
	want := target.Symbol().Signature()
	for _, c := range candidates {
		got, err := ctx.Signatures.DeserializeSignature(c.symbol.SignatureID())
		if err != nil {
			return nil, fmt.Errorf("%s: decode candidate signature: %w", ir.Render(target), err)
		}
		if got == want {
			return c.record, nil
		}
	}
	return nil, fmt.Errorf("%s: %d candidates by name, none with signature %v: %w",
		ir.Render(target), len(candidates), want, ErrDeclarationNotFound)
}

func nameMatches(ctx Context, index int32, want string) (bool, error) {
	name, err := ctx.Strings.String(index)
	if err != nil {
		return false, err
	}
	return name == want, nil
}

// FindClass returns the nested class record of container matching target.
func FindClass(ctx Context, container *proto.Class, target *ir.Class) (*proto.Class, error) {
	var candidates []candidate[proto.Class]
	for i := range container.Declarations {
		child := &container.Declarations[i]
		if child.Kind != proto.DeclClass || child.Class == nil {
			continue
		}
		ok, err := nameMatches(ctx, child.Class.Name, target.Name())
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ir.Render(target), err)
		}
		if ok {
			candidates = append(candidates, candidate[proto.Class]{child.Class, child.Class.Base.Symbol})
		}
	}
	return pick(ctx, target, candidates)
}

// FindProperty returns the property record of container matching target.
func FindProperty(ctx Context, container *proto.Class, target *ir.Property) (*proto.Property, error) {
	var candidates []candidate[proto.Property]
	for i := range container.Declarations {
		child := &container.Declarations[i]
		if child.Kind != proto.DeclProperty || child.Property == nil {
			continue
		}
		ok, err := nameMatches(ctx, child.Property.Name, target.Name())
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ir.Render(target), err)
		}
		if ok {
			candidates = append(candidates, candidate[proto.Property]{child.Property, child.Property.Base.Symbol})
		}
	}
	return pick(ctx, target, candidates)
}

// FindAccessor picks the getter or setter slot of record by identity of fn
// against the live accessors of property.
func FindAccessor(record *proto.Property, property *ir.Property, fn *ir.Function) (*proto.Function, error) {
	var slot *proto.Function
	switch fn {
	case property.Getter:
		slot = record.Getter
	case property.Setter:
		slot = record.Setter
	default:
		return nil, fmt.Errorf("%s is neither getter nor setter of %s: %w", ir.Render(fn), ir.Render(property), ErrDeclarationNotFound)
	}
	if slot == nil {
		return nil, fmt.Errorf("%s: accessor record missing: %w", ir.Render(fn), ErrDeclarationNotFound)
	}
	return slot, nil
}

// FindInlineFunction returns the inline function record of container
// matching target. Property accessors are found through their property.
func FindInlineFunction(ctx Context, container *proto.Class, target *ir.Function) (*proto.Function, error) {
	if p := target.CorrespondingProperty; p != nil {
		record, err := FindProperty(ctx, container, p)
		if err != nil {
			return nil, err
		}
		return FindAccessor(record, p, target)
	}
	var candidates []candidate[proto.Function]
	for i := range container.Declarations {
		child := &container.Declarations[i]
		if child.Kind != proto.DeclFunction || child.Function == nil {
			continue
		}
		fn := child.Function
		if !shapeMatches(fn, target) {
			continue
		}
		ok, err := nameMatches(ctx, fn.NameType.Name(), target.Name())
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ir.Render(target), err)
		}
		if ok {
			candidates = append(candidates, candidate[proto.Function]{fn, fn.Base.Symbol})
		}
	}
	return pick(ctx, target, candidates)
}

// shapeMatches applies the cheap structural filters. Only inline functions
// are recorded in references, so non-inline records never match.
func shapeMatches(record *proto.Function, target *ir.Function) bool {
	return len(record.ValueParameters) == len(target.ValueParameters) &&
		(record.ExtensionReceiver != nil) == (target.ExtensionReceiver != nil) &&
		(record.DispatchReceiver != nil) == (target.DispatchReceiver != nil) &&
		record.IsInline()
}
