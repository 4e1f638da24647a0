package linker

import (
	"fmt"

	"irlink/internal/descriptor"
	"irlink/internal/deser"
	"irlink/internal/ir"
	"irlink/internal/klib"
	"irlink/internal/layout"
	"irlink/internal/proto"
	"irlink/internal/sig"
	"irlink/internal/symtab"
	"irlink/internal/trace"
	"irlink/internal/xref"
)

// InlineFunctionOriginInfo locates the body of a reconstructed inline
// function in its library file.
type InlineFunctionOriginInfo struct {
	File       *ir.File
	Start, End int32
}

// cachedFile is the deserialization state of one file of a cached library,
// created when a reconstruction first needs it.
type cachedFile struct {
	file    *ir.File
	symbols *deser.SymbolDeserializer
	decls   *deser.DeclarationDeserializer
}

type lazyDependencies struct {
	deps []ModuleDeserializer
	err  error
}

// CachedModuleDeserializer serves a library that has a library cache.
// Declarations are stubs; inline function bodies and class field layouts
// are reconstructed from the cache on request.
type CachedModuleDeserializer struct {
	l        *Linker
	desc     *descriptor.Module
	lib      *klib.Library
	finder   *descriptor.Finder
	fragment *ir.Module
	deps     ir.Lazy[lazyDependencies]

	files               []*cachedFile
	references          map[sig.Signature]*xref.InlineFunctionReference
	classFields         map[sig.Signature]*xref.ClassFields
	inlineFunctionFiles map[*ir.ExternalPackageFragment]*ir.File
	reconstructed       map[*ir.Function]InlineFunctionOriginInfo
}

func newCachedModuleDeserializer(l *Linker, desc *descriptor.Module, lib *klib.Library) *CachedModuleDeserializer {
	d := &CachedModuleDeserializer{
		l:                   l,
		desc:                desc,
		lib:                 lib,
		finder:              descriptor.NewFinder(desc, descriptor.ModuleOnly),
		fragment:            ir.NewModule(desc.Name),
		files:               make([]*cachedFile, lib.FileCount()),
		inlineFunctionFiles: make(map[*ir.ExternalPackageFragment]*ir.File),
		reconstructed:       make(map[*ir.Function]InlineFunctionOriginInfo),
	}
	d.deps = ir.LazyOf(func() lazyDependencies {
		var out lazyDependencies
		for _, dep := range desc.AllDependencies() {
			md, err := l.ResolveModuleDeserializer(dep)
			if err != nil {
				out.err = err
				return out
			}
			out.deps = append(out.deps, md)
		}
		return out
	})
	return d
}

func (d *CachedModuleDeserializer) Category() Category             { return CategoryCached }
func (d *CachedModuleDeserializer) Descriptor() *descriptor.Module { return d.desc }
func (d *CachedModuleDeserializer) Library() *klib.Library         { return d.lib }
func (d *CachedModuleDeserializer) ModuleFragment() *ir.Module     { return d.fragment }

func (d *CachedModuleDeserializer) Contains(s sig.Signature) bool {
	return s.IsPublic() && d.finder.FindDescriptorBySignature(s) != nil
}

// AddModuleReachableTopLevel is a no-op: declarations are stubbed when
// their symbol is requested.
func (d *CachedModuleDeserializer) AddModuleReachableTopLevel(sig.Signature) {}

// ModuleDependencies resolves the transitive dependencies of the module on
// first use.
func (d *CachedModuleDeserializer) ModuleDependencies() ([]ModuleDeserializer, error) {
	deps := d.deps.Get()
	return deps.deps, deps.err
}

func (d *CachedModuleDeserializer) DeserializeSymbol(s sig.Signature, kind sig.SymbolKind) (*ir.Symbol, error) {
	desc := d.finder.FindDescriptorBySignature(s)
	if desc == nil {
		return nil, fmt.Errorf("%v in %s: %w", s, d.desc.Name, ErrNoDeclaration)
	}
	decl, err := d.l.stubs.GenerateMemberStub(desc)
	if err != nil {
		return nil, err
	}
	sym := decl.Symbol()
	if sym.Kind() != kind {
		return nil, fmt.Errorf("%v is a %v, not a %v: %w", s, sym.Kind(), kind, ErrNoDeclaration)
	}
	return sym, nil
}

func (d *CachedModuleDeserializer) file(index int32) (*cachedFile, error) {
	if index < 0 || int(index) >= len(d.files) {
		return nil, fmt.Errorf("%s: file #%d: %w", d.desc.Name, index, proto.ErrBadIndex)
	}
	if cf := d.files[index]; cf != nil {
		return cf, nil
	}
	reader := d.lib.Reader(int(index))
	record := d.lib.Files[index]
	cf := &cachedFile{file: ir.NewFile(record.Name, record.Package)}
	cf.file.Module = d.fragment
	cf.symbols = deser.NewSymbolDeserializer(reader, d.l.Resolve)
	cf.decls = deser.NewDeclarationDeserializer(reader, cf.symbols, d.l.builtins, deser.Options{Bodies: true, InlineBodies: true})
	d.files[index] = cf
	return cf, nil
}

// loadCache indexes the cached records by the signature of their
// declaration.
func (d *CachedModuleDeserializer) loadCache() error {
	if d.references != nil {
		return nil
	}
	c, err := d.l.caches.Cache(d.lib)
	if err != nil {
		return fmt.Errorf("%s: %w", d.desc.Name, err)
	}
	references := make(map[sig.Signature]*xref.InlineFunctionReference, len(c.InlineFunctionBodies))
	for i := range c.InlineFunctionBodies {
		ref := &c.InlineFunctionBodies[i]
		s, err := d.signature(ref.File, ref.FunctionSignature)
		if err != nil {
			return err
		}
		references[s] = ref
	}
	classFields := make(map[sig.Signature]*xref.ClassFields, len(c.ClassFields))
	for i := range c.ClassFields {
		rec := &c.ClassFields[i]
		s, err := d.signature(rec.File, rec.ClassSignature)
		if err != nil {
			return err
		}
		classFields[s] = rec
	}
	d.references, d.classFields = references, classFields
	return nil
}

func (d *CachedModuleDeserializer) signature(file, id int32) (sig.Signature, error) {
	cf, err := d.file(file)
	if err != nil {
		return sig.Signature{}, err
	}
	return cf.symbols.DeserializeSignature(id)
}

// rebind points the recorded local signature id at the live symbol.
func rebind(symbols *deser.SymbolDeserializer, live *ir.Symbol, id int32) error {
	s, err := symbols.DeserializeSignature(id)
	if err != nil {
		return err
	}
	symbols.ReferenceLocal(live, s)
	return nil
}

func rebindTypeParameters(symbols *deser.SymbolDeserializer, live []*ir.TypeParameter, ids []int32) error {
	if len(live) != len(ids) {
		return fmt.Errorf("%d type parameters, %d recorded: %w", len(live), len(ids), ErrParameterMismatch)
	}
	for i, p := range live {
		if err := rebind(symbols, p.Symbol(), ids[i]); err != nil {
			return err
		}
	}
	return nil
}

func rebindReceiver(symbols *deser.SymbolDeserializer, what string, p *ir.ValueParameter, id int32) error {
	switch {
	case p == nil && id == xref.InvalidIndex:
		return nil
	case p == nil || id == xref.InvalidIndex:
		return fmt.Errorf("%s receiver: %w", what, ErrParameterMismatch)
	}
	return rebind(symbols, p.Symbol(), id)
}

// outerTypeParameters lists the type parameters in scope of a member of c:
// those of c and of every class c is inner to, outermost first. It fails
// for classes that are not nested in a package fragment.
func outerTypeParameters(c *ir.Class) ([]*ir.TypeParameter, error) {
	outer := ir.OuterClasses(c, true)
	if _, ok := ir.FirstNonClassParent(outer[0]).(*ir.ExternalPackageFragment); !ok {
		return nil, fmt.Errorf("%s: %w", ir.Render(c), ErrLocalDeclaration)
	}
	var out []*ir.TypeParameter
	for _, oc := range outer {
		out = append(out, oc.TypeParameters...)
	}
	return out, nil
}

// DeserializeInlineFunction reconstructs the body and default values of the
// inline function stub fn from the library cache. Recorded parameters are
// rebound positionally to the live parameters of fn before the body is
// read. A function is reconstructed once; a function nested in another
// inline function shares the enclosing function's file.
func (d *CachedModuleDeserializer) DeserializeInlineFunction(fn *ir.Function) (InlineFunctionOriginInfo, error) {
	fragment := ir.PackageFragmentOf(fn)
	if fragment == nil {
		return InlineFunctionOriginInfo{}, fmt.Errorf("%s: not in a package fragment: %w", ir.Render(fn), ErrLocalDeclaration)
	}
	if info, ok := d.reconstructed[fn]; ok {
		return info, nil
	}
	for _, p := range ir.Parents(fn) {
		if outer, ok := p.(*ir.Function); ok && outer.IsInline {
			file, ok := d.inlineFunctionFiles[fragment]
			if !ok {
				return InlineFunctionOriginInfo{}, fmt.Errorf("%s: enclosing %s not reconstructed: %w", ir.Render(fn), ir.Render(outer), ErrMissingReference)
			}
			start, end := fn.Offsets()
			return InlineFunctionOriginInfo{File: file, Start: start, End: end}, nil
		}
	}

	span := d.l.spans.Begin(trace.ScopeSymbol, "reconstruct_inline", d.l.sessionID()).WithExtra("function", ir.QualifiedName(fn))
	info, err := d.reconstructInlineFunction(fn, fragment)
	if err != nil {
		span.End("error")
		return InlineFunctionOriginInfo{}, err
	}
	span.End("")
	d.reconstructed[fn] = info
	return info, nil
}

func (d *CachedModuleDeserializer) reconstructInlineFunction(fn *ir.Function, fragment *ir.ExternalPackageFragment) (InlineFunctionOriginInfo, error) {
	if err := d.loadCache(); err != nil {
		return InlineFunctionOriginInfo{}, err
	}
	ref, ok := d.references[fn.Signature()]
	if !ok {
		return InlineFunctionOriginInfo{}, fmt.Errorf("%s: %w", ir.Render(fn), ErrMissingReference)
	}
	cf, err := d.file(ref.File)
	if err != nil {
		return InlineFunctionOriginInfo{}, err
	}

	var typeParams []*ir.TypeParameter
	switch parent := fn.Parent().(type) {
	case *ir.Class:
		if typeParams, err = outerTypeParameters(parent); err != nil {
			return InlineFunctionOriginInfo{}, err
		}
	case *ir.ExternalPackageFragment:
	default:
		return InlineFunctionOriginInfo{}, fmt.Errorf("%s: %w", ir.Render(fn), ErrLocalDeclaration)
	}
	typeParams = append(typeParams, fn.TypeParameters...)

	symbols := cf.symbols
	if err := rebindTypeParameters(symbols, typeParams, ref.TypeParameterSigs); err != nil {
		return InlineFunctionOriginInfo{}, fmt.Errorf("%s: %w", ir.Render(fn), err)
	}
	if len(fn.ValueParameters) != len(ref.ValueParameterSigs) || len(ref.DefaultValues) != len(ref.ValueParameterSigs) {
		return InlineFunctionOriginInfo{}, fmt.Errorf("%s: %d value parameters, %d recorded: %w", ir.Render(fn), len(fn.ValueParameters), len(ref.ValueParameterSigs), ErrParameterMismatch)
	}
	for i, p := range fn.ValueParameters {
		if err := rebind(symbols, p.Symbol(), ref.ValueParameterSigs[i]); err != nil {
			return InlineFunctionOriginInfo{}, err
		}
	}
	if err := rebindReceiver(symbols, "extension", fn.ExtensionReceiver, ref.ExtensionReceiverSig); err != nil {
		return InlineFunctionOriginInfo{}, fmt.Errorf("%s: %w", ir.Render(fn), err)
	}
	if err := rebindReceiver(symbols, "dispatch", fn.DispatchReceiver, ref.DispatchReceiverSig); err != nil {
		return InlineFunctionOriginInfo{}, fmt.Errorf("%s: %w", ir.Render(fn), err)
	}

	var body *ir.Body
	if ref.Body != xref.InvalidIndex {
		if body, err = cf.decls.DeserializeStatementBody(ref.Body, fn); err != nil {
			return InlineFunctionOriginInfo{}, fmt.Errorf("%s body: %w", ir.Render(fn), err)
		}
	}
	defaults := make([]*ir.ExpressionBody, len(ref.DefaultValues))
	for i, idx := range ref.DefaultValues {
		if idx == xref.InvalidIndex {
			continue
		}
		if defaults[i], err = cf.decls.DeserializeExpressionBody(idx, fn); err != nil {
			return InlineFunctionOriginInfo{}, fmt.Errorf("%s default value #%d: %w", ir.Render(fn), i, err)
		}
	}
	if file, ok := d.inlineFunctionFiles[fragment]; ok && file != cf.file {
		return InlineFunctionOriginInfo{}, fmt.Errorf("%s: package %s already read from %s, not %s", ir.Render(fn), fragment.Package, file.Name, cf.file.Name)
	}

	fn.Body = body
	for i, p := range fn.ValueParameters {
		if defaults[i] != nil {
			p.DefaultValue = defaults[i]
		}
	}
	d.inlineFunctionFiles[fragment] = cf.file
	return InlineFunctionOriginInfo{File: cf.file, Start: ref.StartOffset, End: ref.EndOffset}, nil
}

// ReconstructInlineFunctions restores the body of every inline function
// stub of a cached library that the session has materialized. Restored
// bodies can reach further inline stubs, so it repeats until a pass adds
// nothing. It returns the number of functions reconstructed.
func (l *Linker) ReconstructInlineFunctions() (int, error) {
	cached := make(map[string]*CachedModuleDeserializer)
	for _, d := range l.deserializers {
		if c, ok := d.(*CachedModuleDeserializer); ok {
			cached[c.desc.Name] = c
		}
	}
	if len(cached) == 0 {
		return 0, nil
	}

	span := l.spans.Begin(trace.ScopeSession, "reconstruct_inline_functions", l.sessionID())
	total := 0
	for {
		n := 0
		// Len grows while bodies resolve new symbols; they are visited in
		// the same pass.
		for id := symtab.SymbolID(1); int(id) <= l.symbols.Len(); id++ {
			fn, d := l.inlineStub(cached, l.symbols.Get(id))
			if fn == nil {
				continue
			}
			if _, err := d.DeserializeInlineFunction(fn); err != nil {
				span.End("error")
				return total, err
			}
			n++
		}
		if err := l.LinkAll(); err != nil {
			span.End("error")
			return total, err
		}
		if n == 0 {
			break
		}
		total += n
	}
	span.End(fmt.Sprintf("functions=%d", total))
	return total, nil
}

// inlineStub returns the owner of sym when it is an inline function stub of
// a cached module that has not been reconstructed yet.
func (l *Linker) inlineStub(cached map[string]*CachedModuleDeserializer, sym *ir.Symbol) (*ir.Function, *CachedModuleDeserializer) {
	if sym == nil || !sym.IsBound() {
		return nil, nil
	}
	fn, ok := sym.Owner().(*ir.Function)
	if !ok || !fn.IsInline {
		return nil, nil
	}
	for _, p := range ir.Parents(fn) {
		if _, nested := p.(*ir.Function); nested {
			return nil, nil
		}
	}
	fragment := ir.PackageFragmentOf(fn)
	if fragment == nil {
		return nil, nil
	}
	d := cached[fragment.Module]
	if d == nil {
		return nil, nil
	}
	if _, done := d.reconstructed[fn]; done {
		return nil, nil
	}
	return fn, d
}

// DeserializeClassFields reconstructs the field layout of the class stub c
// from the library cache.
func (d *CachedModuleDeserializer) DeserializeClassFields(c *ir.Class) ([]layout.FieldInfo, error) {
	if err := d.loadCache(); err != nil {
		return nil, err
	}
	rec, ok := d.classFields[c.Signature()]
	if !ok {
		return nil, fmt.Errorf("%s: %w", ir.Render(c), ErrMissingClassFields)
	}
	cf, err := d.file(rec.File)
	if err != nil {
		return nil, err
	}
	typeParams, err := outerTypeParameters(c)
	if err != nil {
		return nil, err
	}
	if err := rebindTypeParameters(cf.symbols, typeParams, rec.TypeParameterSigs); err != nil {
		return nil, fmt.Errorf("%s: %w", ir.Render(c), err)
	}
	out := make([]layout.FieldInfo, 0, len(rec.Fields))
	for _, f := range rec.Fields {
		name, err := cf.decls.Reader().String(f.Name)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ir.Render(c), err)
		}
		typ, err := d.fieldType(cf, f)
		if err != nil {
			return nil, fmt.Errorf("%s field %s: %w", ir.Render(c), name, err)
		}
		out = append(out, layout.FieldInfo{
			Name:                name,
			Type:                typ,
			IsConst:             f.IsConst(),
			HasConstInitializer: f.HasConstInitializer(),
		})
	}
	return out, nil
}

// fieldType prefers the recorded type; a field without one is typed by its
// binary representation, or as the nullable top type.
func (d *CachedModuleDeserializer) fieldType(cf *cachedFile, f xref.FieldInfo) (ir.Type, error) {
	if f.Type != xref.InvalidIndex {
		return cf.decls.DeserializeType(f.Type)
	}
	b := d.l.builtins
	if f.BinaryType == xref.InvalidIndex {
		return b.AnyN(), nil
	}
	var name string
	switch layout.PrimitiveBinaryType(f.BinaryType) {
	case layout.BinaryBoolean:
		return ir.TypeOf(b.Boolean), nil
	case layout.BinaryByte:
		return ir.TypeOf(b.Byte), nil
	case layout.BinaryShort:
		return ir.TypeOf(b.Short), nil
	case layout.BinaryInt:
		return ir.TypeOf(b.Int), nil
	case layout.BinaryLong:
		return ir.TypeOf(b.Long), nil
	case layout.BinaryFloat:
		return ir.TypeOf(b.Float), nil
	case layout.BinaryDouble:
		return ir.TypeOf(b.Double), nil
	case layout.BinaryPointer:
		name = b.NativePtr.Name()
	case layout.BinaryVector128:
		name = b.Vector128.Name()
	default:
		return ir.Type{}, fmt.Errorf("binary type %d: %w", f.BinaryType, proto.ErrBadIndex)
	}
	sym, err := cf.symbols.DeserializePublicSymbol(ir.BuiltinSignature(name), sig.SymbolClass)
	if err != nil {
		return ir.Type{}, err
	}
	return ir.Type{Classifier: sym}, nil
}
