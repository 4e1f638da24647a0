package klib

import (
	"fmt"

	"irlink/internal/descriptor"
	"irlink/internal/ir"
	"irlink/internal/proto"
	"irlink/internal/sig"
)

// BuildDescriptors derives module descriptors from archive headers and wires
// manifest dependencies between them. Dependencies naming libraries outside
// libs are an error.
func BuildDescriptors(libs []*Library) (map[string]*descriptor.Module, error) {
	modules := make(map[string]*descriptor.Module, len(libs))
	for _, lib := range libs {
		if _, dup := modules[lib.Name()]; dup {
			return nil, fmt.Errorf("library %q listed twice", lib.Name())
		}
		m := descriptor.NewModule(lib.Name())
		modules[lib.Name()] = m
		for i, f := range lib.Files {
			b := &descriptorBuilder{r: lib.Reader(i), interop: lib.IsInterop()}
			for j := range f.Declarations {
				d, err := b.declaration(&f.Declarations[j], nil)
				if err != nil {
					return nil, fmt.Errorf("%s/%s: %w", lib.Name(), f.Name, err)
				}
				if d != nil {
					m.Add(d)
				}
			}
		}
	}
	for _, lib := range libs {
		for _, dep := range lib.Manifest.Dependencies {
			dm, ok := modules[dep]
			if !ok {
				return nil, fmt.Errorf("library %q depends on unknown library %q", lib.Name(), dep)
			}
			modules[lib.Name()].AddDependency(dm)
		}
	}
	return modules, nil
}

type descriptorBuilder struct {
	r       proto.FileReader
	interop bool
}

func visibility(f proto.Flags) ir.Visibility {
	switch {
	case f.Has(proto.FlagPrivate):
		return ir.Private
	case f.Has(proto.FlagInternal):
		return ir.Internal
	default:
		return ir.Public
	}
}

// signature decodes the signature of a record; non-public records get no
// descriptor.
func (b *descriptorBuilder) signature(base proto.Base) (sig.Signature, bool, error) {
	s, err := b.r.Signature(base.Symbol.SignatureID())
	if err != nil {
		return sig.Signature{}, false, err
	}
	return s, s.IsPublic(), nil
}

func (b *descriptorBuilder) typeRef(index int32) (descriptor.TypeRef, error) {
	if index == proto.NoIndex {
		return descriptor.TypeRef{}, nil
	}
	t, err := b.r.Type(index)
	if err != nil {
		return descriptor.TypeRef{}, err
	}
	s, err := b.r.Signature(t.Classifier.SignatureID())
	if err != nil {
		return descriptor.TypeRef{}, err
	}
	if !s.IsPublic() || t.Classifier.Kind() != sig.SymbolClass {
		// Type parameters and local classes erase to the top type.
		return descriptor.TypeRef{Nullable: true}, nil
	}
	return descriptor.TypeRef{Classifier: s, Nullable: t.Nullable}, nil
}

func (b *descriptorBuilder) typeParameters(records []proto.TypeParameter) ([]string, error) {
	out := make([]string, 0, len(records))
	for _, tp := range records {
		name, err := b.r.String(tp.Name)
		if err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, nil
}

func (b *descriptorBuilder) declaration(record *proto.Declaration, parent *descriptor.Descriptor) (*descriptor.Descriptor, error) {
	switch record.Kind {
	case proto.DeclClass:
		return b.class(record.Class)
	case proto.DeclFunction:
		return b.function(record.Function)
	case proto.DeclProperty:
		return b.property(record.Property)
	case proto.DeclField:
		if parent != nil {
			// Class fields are layout details, not API.
			return nil, nil
		}
		return b.field(record.Field)
	default:
		return nil, nil
	}
}

func (b *descriptorBuilder) class(c *proto.Class) (*descriptor.Descriptor, error) {
	s, ok, err := b.signature(c.Base)
	if err != nil || !ok {
		return nil, err
	}
	name, err := b.r.String(c.Name)
	if err != nil {
		return nil, err
	}
	d := &descriptor.Descriptor{
		Kind:             descriptor.KindClass,
		Signature:        s,
		Name:             name,
		Visibility:       visibility(c.Base.Flags),
		IsInner:          c.Base.Flags.Has(proto.FlagInner),
		IsValue:          c.Base.Flags.Has(proto.FlagValueClass),
		IsCEnumOrCStruct: b.interop && c.Base.Flags.Has(proto.FlagExternal),
	}
	if d.TypeParameters, err = b.typeParameters(c.TypeParameters); err != nil {
		return nil, err
	}
	for _, st := range c.SuperTypes {
		ref, err := b.typeRef(st)
		if err != nil {
			return nil, err
		}
		if !ref.Classifier.IsZero() {
			d.SuperTypes = append(d.SuperTypes, ref)
		}
	}
	if d.IsValue && c.InlineUnderlying != proto.NoIndex {
		ref, err := b.typeRef(c.InlineUnderlying)
		if err != nil {
			return nil, err
		}
		d.Underlying = &ref
	}
	for i := range c.Declarations {
		m, err := b.declaration(&c.Declarations[i], d)
		if err != nil {
			return nil, err
		}
		if m != nil {
			d.Members = append(d.Members, m)
		}
	}
	return d, nil
}

func (b *descriptorBuilder) function(f *proto.Function) (*descriptor.Descriptor, error) {
	s, ok, err := b.signature(f.Base)
	if err != nil || !ok {
		return nil, err
	}
	name, err := b.r.String(f.NameType.Name())
	if err != nil {
		return nil, err
	}
	d := &descriptor.Descriptor{
		Kind:       descriptor.KindFunction,
		Signature:  s,
		Name:       name,
		Visibility: visibility(f.Base.Flags),
		IsInline:   f.IsInline(),
	}
	if d.TypeParameters, err = b.typeParameters(f.TypeParameters); err != nil {
		return nil, err
	}
	if f.ExtensionReceiver != nil {
		ref, err := b.typeRef(f.ExtensionReceiver.NameType.Type())
		if err != nil {
			return nil, err
		}
		d.ExtensionReceiver = &ref
	}
	for _, p := range f.ValueParameters {
		pname, err := b.r.String(p.NameType.Name())
		if err != nil {
			return nil, err
		}
		ref, err := b.typeRef(p.NameType.Type())
		if err != nil {
			return nil, err
		}
		d.ValueParameters = append(d.ValueParameters, descriptor.Param{Name: pname, Type: ref})
	}
	if d.ReturnType, err = b.typeRef(f.NameType.Type()); err != nil {
		return nil, err
	}
	return d, nil
}

func (b *descriptorBuilder) property(p *proto.Property) (*descriptor.Descriptor, error) {
	s, ok, err := b.signature(p.Base)
	if err != nil || !ok {
		return nil, err
	}
	name, err := b.r.String(p.Name)
	if err != nil {
		return nil, err
	}
	d := &descriptor.Descriptor{
		Kind:       descriptor.KindProperty,
		Signature:  s,
		Name:       name,
		Visibility: visibility(p.Base.Flags),
		IsConst:    p.Base.Flags.Has(proto.FlagConst),
	}
	if p.Getter != nil {
		if d.Getter, err = b.function(p.Getter); err != nil {
			return nil, err
		}
		if d.Getter != nil {
			d.ReturnType = d.Getter.ReturnType
		}
	}
	if p.Setter != nil {
		if d.Setter, err = b.function(p.Setter); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func (b *descriptorBuilder) field(f *proto.Field) (*descriptor.Descriptor, error) {
	s, ok, err := b.signature(f.Base)
	if err != nil || !ok {
		return nil, err
	}
	name, err := b.r.String(f.NameType.Name())
	if err != nil {
		return nil, err
	}
	ref, err := b.typeRef(f.NameType.Type())
	if err != nil {
		return nil, err
	}
	return &descriptor.Descriptor{Kind: descriptor.KindField, Signature: s, Name: name, ReturnType: ref}, nil
}
