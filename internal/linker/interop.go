package linker

import (
	"fmt"

	"irlink/internal/descriptor"
	"irlink/internal/ir"
	"irlink/internal/klib"
	"irlink/internal/sig"
)

// cTypeDefinitionsFile names the synthetic file holding C enums and structs
// of one interop package.
const cTypeDefinitionsFile = "CTypeDefinitions"

// interopModuleDeserializer stubs the declarations of a native interop
// library from its descriptors.
type interopModuleDeserializer struct {
	l        *Linker
	desc     *descriptor.Module
	lib      *klib.Library
	finder   *descriptor.Finder
	fragment *ir.Module
	// files holds the C type definition file of each package.
	files map[string]*ir.File
}

func newInteropModuleDeserializer(l *Linker, desc *descriptor.Module, lib *klib.Library) *interopModuleDeserializer {
	return &interopModuleDeserializer{
		l:        l,
		desc:     desc,
		lib:      lib,
		finder:   descriptor.NewFinder(desc, descriptor.ModuleOnly),
		fragment: ir.NewModule(desc.Name),
		files:    make(map[string]*ir.File),
	}
}

func (d *interopModuleDeserializer) Category() Category             { return CategoryInterop }
func (d *interopModuleDeserializer) Descriptor() *descriptor.Module { return d.desc }
func (d *interopModuleDeserializer) Library() *klib.Library         { return d.lib }
func (d *interopModuleDeserializer) ModuleFragment() *ir.Module     { return d.fragment }

func (d *interopModuleDeserializer) Contains(s sig.Signature) bool {
	return s.IsPublic() && s.IsInterop() && d.finder.FindDescriptorBySignature(s) != nil
}

// AddModuleReachableTopLevel is a no-op: declarations are stubbed when
// their symbol is requested.
func (d *interopModuleDeserializer) AddModuleReachableTopLevel(sig.Signature) {}

// ModuleDependencies is the forward-declaration module, if the session has
// one.
func (d *interopModuleDeserializer) ModuleDependencies() ([]ModuleDeserializer, error) {
	if d.l.forward == nil {
		return nil, nil
	}
	return []ModuleDeserializer{d.l.forward}, nil
}

func (d *interopModuleDeserializer) DeserializeSymbol(s sig.Signature, kind sig.SymbolKind) (*ir.Symbol, error) {
	desc := d.finder.FindDescriptorBySignature(s)
	if desc == nil {
		return nil, fmt.Errorf("%v in %s: %w", s, d.desc.Name, ErrNoDeclaration)
	}
	var (
		decl ir.Declaration
		err  error
	)
	if desc.IsCEnumOrCStruct && desc.Parent == nil {
		decl, err = d.l.stubs.GenerateInto(desc, d.fileFor(desc.Package), ir.OriginCTypeDefinition)
	} else {
		decl, err = d.l.stubs.GenerateMemberStub(desc)
	}
	if err != nil {
		return nil, err
	}
	sym := decl.Symbol()
	if sym.Kind() != kind {
		return nil, fmt.Errorf("%v is a %v, not a %v: %w", s, sym.Kind(), kind, ErrNoDeclaration)
	}
	return sym, nil
}

func (d *interopModuleDeserializer) fileFor(pkg string) *ir.File {
	if f, ok := d.files[pkg]; ok {
		return f
	}
	f := ir.NewFile(cTypeDefinitionsFile, pkg)
	d.files[pkg] = f
	d.fragment.AddFile(f)
	return f
}
