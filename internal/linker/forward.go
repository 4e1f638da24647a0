package linker

import (
	"fmt"

	"irlink/internal/descriptor"
	"irlink/internal/ir"
	"irlink/internal/klib"
	"irlink/internal/sig"
)

// Package prefixes of forward-declared native classes.
const (
	cNamesPackage    = "cnames"
	objCNamesPackage = "objcnames"
)

// forwardModuleDeserializer resolves forward-declared native classes. A
// class found in a real module is delegated there; otherwise a stub class
// is built once and reused.
type forwardModuleDeserializer struct {
	l        *Linker
	desc     *descriptor.Module
	fragment *ir.Module
	stubs    map[sig.Signature]*ir.Class
}

func newForwardModuleDeserializer(l *Linker, desc *descriptor.Module) *forwardModuleDeserializer {
	return &forwardModuleDeserializer{
		l:        l,
		desc:     desc,
		fragment: ir.NewModule(desc.Name),
		stubs:    make(map[sig.Signature]*ir.Class),
	}
}

func (d *forwardModuleDeserializer) Category() Category                                { return CategoryForward }
func (d *forwardModuleDeserializer) Descriptor() *descriptor.Module                    { return d.desc }
func (d *forwardModuleDeserializer) Library() *klib.Library                            { return nil }
func (d *forwardModuleDeserializer) ModuleFragment() *ir.Module                        { return d.fragment }
func (d *forwardModuleDeserializer) ModuleDependencies() ([]ModuleDeserializer, error) { return nil, nil }

func (d *forwardModuleDeserializer) Contains(s sig.Signature) bool {
	return s.IsPublic() && (s.PackageHasPrefix(cNamesPackage) || s.PackageHasPrefix(objCNamesPackage))
}

// AddModuleReachableTopLevel is a no-op: declarations are stubbed when
// their symbol is requested.
func (d *forwardModuleDeserializer) AddModuleReachableTopLevel(sig.Signature) {}

func (d *forwardModuleDeserializer) DeserializeSymbol(s sig.Signature, kind sig.SymbolKind) (*ir.Symbol, error) {
	if kind != sig.SymbolClass {
		return nil, fmt.Errorf("%v (%v): %w", s, kind, ErrNotForwardClass)
	}
	desc := d.desc.FindClassAcrossDependencies(s.Package, s.Decl)
	if desc == nil {
		return nil, fmt.Errorf("forward declaration %v: %w", s, ErrNoDeclaration)
	}
	if desc.Module != d.desc {
		actual, err := d.l.ResolveModuleDeserializer(desc.Module)
		if err != nil {
			return nil, fmt.Errorf("forward declaration %v: %w", s, err)
		}
		return actual.DeserializeSymbol(desc.Signature, kind)
	}
	if c, ok := d.stubs[s]; ok {
		return c.Symbol(), nil
	}
	c, err := d.l.stubs.GenerateClassStub(desc)
	if err != nil {
		return nil, err
	}
	c.SetOrigin(ir.OriginForwardDeclaration)
	d.stubs[s] = c
	return c.Symbol(), nil
}
