// Package stubgen materializes declarations from descriptors without
// deserializing bodies. Stubs of a module live under one external package
// fragment per package; class members, supertypes and receivers are lazy.
package stubgen

import (
	"errors"
	"fmt"

	"irlink/internal/descriptor"
	"irlink/internal/ir"
	"irlink/internal/sig"
	"irlink/internal/symtab"
)

// SymbolResolver resolves classifier signatures referenced by stub types.
type SymbolResolver interface {
	Resolve(s sig.Signature, kind sig.SymbolKind) (*ir.Symbol, error)
}

type fragmentKey struct {
	module, pkg string
}

// Generator produces stubs. Generation is idempotent: a descriptor whose
// symbol is already bound yields the bound declaration. A Generator belongs
// to one link session and is not safe for concurrent use.
type Generator struct {
	symbols   *symtab.Table
	builtins  *ir.Builtins
	resolver  SymbolResolver
	fragments map[fragmentKey]*ir.ExternalPackageFragment
	order     []*ir.ExternalPackageFragment

	// UnboundSymbolGeneration is set during post-processing, when stubs are
	// produced for symbols no module materialized.
	UnboundSymbolGeneration bool

	deferred []error
}

// New creates a generator. Types resolve through resolver, or through the
// symbol table when resolver is nil.
func New(symbols *symtab.Table, builtins *ir.Builtins, resolver SymbolResolver) *Generator {
	return &Generator{
		symbols:   symbols,
		builtins:  builtins,
		resolver:  resolver,
		fragments: make(map[fragmentKey]*ir.ExternalPackageFragment),
	}
}

// Fragments lists the package fragments created so far.
func (g *Generator) Fragments() []*ir.ExternalPackageFragment { return g.order }

// Fragment returns the fragment for (module, pkg), creating it on first use.
func (g *Generator) Fragment(module, pkg string) *ir.ExternalPackageFragment {
	key := fragmentKey{module, pkg}
	if f, ok := g.fragments[key]; ok {
		return f
	}
	f := &ir.ExternalPackageFragment{Module: module, Package: pkg}
	g.fragments[key] = f
	g.order = append(g.order, f)
	return f
}

// Err returns the errors raised while computing lazy members or supertypes.
func (g *Generator) Err() error { return errors.Join(g.deferred...) }

func (g *Generator) record(err error) { g.deferred = append(g.deferred, err) }

// GenerateMemberStub returns the stub for d, placing top-level stubs under
// the package fragment of d's module and members under their class stub.
func (g *Generator) GenerateMemberStub(d *descriptor.Descriptor) (ir.Declaration, error) {
	return g.generate(d, ir.OriginStub, nil)
}

// GenerateClassStub is GenerateMemberStub restricted to class descriptors.
func (g *Generator) GenerateClassStub(d *descriptor.Descriptor) (*ir.Class, error) {
	if d.Kind != descriptor.KindClass {
		return nil, fmt.Errorf("stub %v: descriptor is not a class", d.Signature)
	}
	decl, err := g.GenerateMemberStub(d)
	if err != nil {
		return nil, err
	}
	c, ok := decl.(*ir.Class)
	if !ok {
		return nil, fmt.Errorf("stub %v: bound to %s", d.Signature, ir.Render(decl))
	}
	return c, nil
}

// GenerateInto creates a top-level stub with origin under file. Interop C
// enums and structs are placed this way.
func (g *Generator) GenerateInto(d *descriptor.Descriptor, file *ir.File, origin ir.Origin) (ir.Declaration, error) {
	return g.generate(d, origin, file)
}

func (g *Generator) symbol(d *descriptor.Descriptor) (*ir.Symbol, error) {
	kind := d.Kind.SymbolKind()
	if !d.Signature.IsPublic() {
		return ir.NewSymbol(kind, d.Signature), nil
	}
	return g.symbols.Reference(d.Signature, kind)
}

func (g *Generator) generate(d *descriptor.Descriptor, origin ir.Origin, file *ir.File) (ir.Declaration, error) {
	sym, err := g.symbol(d)
	if err != nil {
		return nil, fmt.Errorf("stub %v: %w", d.Signature, err)
	}
	if sym.IsBound() {
		return sym.Owner(), nil
	}
	if d.Property != nil {
		// Accessors only exist as part of their property.
		if _, err := g.generate(d.Property, origin, file); err != nil {
			return nil, err
		}
		if !sym.IsBound() {
			return nil, fmt.Errorf("stub %v: accessor not produced by its property", d.Signature)
		}
		return sym.Owner(), nil
	}

	var parent ir.Parent
	if d.Parent != nil {
		outer, err := g.GenerateClassStub(d.Parent)
		if err != nil {
			return nil, err
		}
		// Generating the outer class may have produced d as a member.
		if sym.IsBound() {
			return sym.Owner(), nil
		}
		parent = outer
	}

	base := ir.NewDeclBase(sym, d.Name, origin, 0, 0)
	var decl ir.Declaration
	switch d.Kind {
	case descriptor.KindClass:
		decl, err = g.class(d, base)
	case descriptor.KindFunction:
		decl, err = g.function(d, base, parent)
	case descriptor.KindProperty:
		decl, err = g.property(d, base, parent)
	case descriptor.KindField:
		decl, err = g.field(d, base)
	default:
		err = fmt.Errorf("unknown descriptor kind %d", d.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("stub %v: %w", d.Signature, err)
	}

	switch {
	case parent != nil:
		decl.SetParent(parent)
	case file != nil:
		file.AddDeclaration(decl)
	default:
		module := ""
		if d.Module != nil {
			module = d.Module.Name
		}
		g.Fragment(module, d.Package).AddDeclaration(decl)
	}
	if p, ok := decl.(*ir.Property); ok {
		for _, acc := range []*ir.Function{p.Getter, p.Setter} {
			if acc != nil {
				acc.SetParent(decl.Parent())
			}
		}
	}
	return decl, nil
}

func (g *Generator) typeOf(ref descriptor.TypeRef) (ir.Type, error) {
	if ref.Classifier.IsZero() {
		return g.builtins.AnyN(), nil
	}
	var (
		sym *ir.Symbol
		err error
	)
	if g.resolver != nil {
		sym, err = g.resolver.Resolve(ref.Classifier, sig.SymbolClass)
	} else {
		sym, err = g.symbols.Reference(ref.Classifier, sig.SymbolClass)
	}
	if err != nil {
		return ir.Type{}, fmt.Errorf("type %v: %w", ref.Classifier, err)
	}
	return ir.Type{Classifier: sym, Nullable: ref.Nullable}, nil
}

func typeParameters(names []string, kind string) ([]*ir.TypeParameter, error) {
	out := make([]*ir.TypeParameter, 0, len(names))
	for i, name := range names {
		sym := ir.NewSymbol(sig.SymbolTypeParameter, sig.Signature{})
		p, err := ir.NewTypeParameter(ir.NewDeclBase(sym, name, ir.OriginStub, 0, 0), i)
		if err != nil {
			return nil, fmt.Errorf("%s type parameter %s: %w", kind, name, err)
		}
		out = append(out, p)
	}
	return out, nil
}

func (g *Generator) valueParameter(name string, index int, kind sig.SymbolKind, ref descriptor.TypeRef, parent ir.Parent) (*ir.ValueParameter, error) {
	p, err := ir.NewValueParameter(ir.NewDeclBase(ir.NewSymbol(kind, sig.Signature{}), name, ir.OriginStub, 0, 0), index)
	if err != nil {
		return nil, err
	}
	if p.Type, err = g.typeOf(ref); err != nil {
		return nil, err
	}
	p.SetParent(parent)
	return p, nil
}

func (g *Generator) class(d *descriptor.Descriptor, base ir.DeclBase) (*ir.Class, error) {
	c, err := ir.NewClass(base)
	if err != nil {
		return nil, err
	}
	c.Visibility = d.Visibility
	c.IsInner = d.IsInner
	c.IsValue = d.IsValue
	if c.TypeParameters, err = typeParameters(d.TypeParameters, "class"); err != nil {
		return nil, err
	}
	for _, tp := range c.TypeParameters {
		tp.SetParent(c)
	}
	if d.Underlying != nil {
		t, err := g.typeOf(*d.Underlying)
		if err != nil {
			return nil, err
		}
		c.InlineUnderlying = &t
	}

	c.SetDeclarations(ir.LazyOf(func() []ir.Declaration {
		members := make([]ir.Declaration, 0, len(d.Members))
		for _, m := range d.Members {
			decl, err := g.GenerateMemberStub(m)
			if err != nil {
				g.record(fmt.Errorf("members of %s: %w", ir.Render(c), err))
				continue
			}
			members = append(members, decl)
		}
		return members
	}))
	c.SetSuperTypes(ir.LazyOf(func() []ir.Type {
		out := make([]ir.Type, 0, len(d.SuperTypes))
		for _, ref := range d.SuperTypes {
			t, err := g.typeOf(ref)
			if err != nil {
				g.record(fmt.Errorf("supertypes of %s: %w", ir.Render(c), err))
				continue
			}
			out = append(out, t)
		}
		return out
	}))
	c.SetThisReceiver(ir.LazyOf(func() *ir.ValueParameter {
		p, err := ir.NewValueParameter(ir.NewDeclBase(ir.NewSymbol(sig.SymbolReceiverParameter, sig.Signature{}), "<this>", ir.OriginStub, 0, 0), -1)
		if err != nil {
			g.record(err)
			return nil
		}
		p.Type = ir.TypeOf(c)
		p.SetParent(c)
		return p
	}))
	return c, nil
}

func (g *Generator) function(d *descriptor.Descriptor, base ir.DeclBase, parent ir.Parent) (*ir.Function, error) {
	fn, err := ir.NewFunction(base)
	if err != nil {
		return nil, err
	}
	fn.Visibility = d.Visibility
	fn.IsInline = d.IsInline
	if fn.TypeParameters, err = typeParameters(d.TypeParameters, "function"); err != nil {
		return nil, err
	}
	for _, tp := range fn.TypeParameters {
		tp.SetParent(fn)
	}
	if outer, ok := parent.(*ir.Class); ok && d.HasDispatchReceiver() {
		p, err := ir.NewValueParameter(ir.NewDeclBase(ir.NewSymbol(sig.SymbolReceiverParameter, sig.Signature{}), "<this>", ir.OriginStub, 0, 0), -1)
		if err != nil {
			return nil, err
		}
		p.Type = ir.TypeOf(outer)
		p.SetParent(fn)
		fn.DispatchReceiver = p
	}
	if d.ExtensionReceiver != nil {
		if fn.ExtensionReceiver, err = g.valueParameter("<receiver>", -1, sig.SymbolReceiverParameter, *d.ExtensionReceiver, fn); err != nil {
			return nil, err
		}
	}
	for i, param := range d.ValueParameters {
		p, err := g.valueParameter(param.Name, i, sig.SymbolValueParameter, param.Type, fn)
		if err != nil {
			return nil, err
		}
		fn.ValueParameters = append(fn.ValueParameters, p)
	}
	if fn.ReturnType, err = g.typeOf(d.ReturnType); err != nil {
		return nil, err
	}
	return fn, nil
}

func (g *Generator) property(d *descriptor.Descriptor, base ir.DeclBase, parent ir.Parent) (*ir.Property, error) {
	p, err := ir.NewProperty(base)
	if err != nil {
		return nil, err
	}
	p.Visibility = d.Visibility
	p.IsConst = d.IsConst
	// Accessors are parented once the property itself is placed.
	accessor := func(acc *descriptor.Descriptor) (*ir.Function, error) {
		if acc == nil {
			return nil, nil
		}
		sym, err := g.symbol(acc)
		if err != nil {
			return nil, err
		}
		if sym.IsBound() {
			fn, ok := sym.Owner().(*ir.Function)
			if !ok {
				return nil, fmt.Errorf("accessor %v bound to %s", acc.Signature, ir.Render(sym.Owner()))
			}
			fn.CorrespondingProperty = p
			return fn, nil
		}
		fn, err := g.function(acc, ir.NewDeclBase(sym, acc.Name, base.Origin(), 0, 0), parent)
		if err != nil {
			return nil, err
		}
		fn.CorrespondingProperty = p
		return fn, nil
	}
	if p.Getter, err = accessor(d.Getter); err != nil {
		return nil, err
	}
	if p.Setter, err = accessor(d.Setter); err != nil {
		return nil, err
	}
	return p, nil
}

func (g *Generator) field(d *descriptor.Descriptor, base ir.DeclBase) (*ir.Field, error) {
	f, err := ir.NewField(base)
	if err != nil {
		return nil, err
	}
	if f.Type, err = g.typeOf(d.ReturnType); err != nil {
		return nil, err
	}
	return f, nil
}
