// Package linker assembles the IR of a program from serialized libraries.
//
// A Linker is one link session. Each library module gets a module
// deserializer chosen by selectCategory: ordinary libraries are deserialized
// from their archives on demand, interop and cached libraries are stubbed
// from descriptors, and forward-declared native classes are resolved to
// their real module or stubbed. Public signatures are resolved to session
// symbols; reaching a top-level declaration schedules it on its module's work
// queue, which LinkAll drains.
package linker

import (
	"fmt"
	"sort"
	"strings"

	"irlink/internal/compat"
	"irlink/internal/descriptor"
	"irlink/internal/deser"
	"irlink/internal/ir"
	"irlink/internal/klib"
	"irlink/internal/libcache"
	"irlink/internal/sig"
	"irlink/internal/stubgen"
	"irlink/internal/symtab"
	"irlink/internal/trace"
)

// maxReportedUnbound caps the signatures listed in ErrUnboundSymbols.
const maxReportedUnbound = 16

// Config configures a link session.
type Config struct {
	// CurrentModule is the module being compiled. It is linked like any other
	// but left out of Modules.
	CurrentModule *descriptor.Module
	// ForwardModule is the forward-declaration module, nil to disable
	// forward declarations.
	ForwardModule *descriptor.Module
	// Caches serves library caches; nil disables the cached deserializer.
	Caches *libcache.Registry
	// LazyCaches enables the cached deserializer for cached libraries.
	LazyCaches bool
	// Policy answers compatibility questions; nil means compat.DefaultPolicy.
	Policy compat.Policy
	// Builtins are adopted into the symbol table; nil creates a fresh set.
	Builtins *ir.Builtins
	// Tracer receives session spans; nil disables tracing.
	Tracer trace.Tracer
	// SymbolCapacity is a hint for the symbol table.
	SymbolCapacity uint32
}

// Linker is one link session. It is not safe for concurrent use.
type Linker struct {
	cfg      Config
	symbols  *symtab.Table
	builtins *ir.Builtins
	stubs    *stubgen.Generator
	caches   *libcache.Registry
	policy   compat.Policy
	spans    *trace.Session
	session  *trace.Span

	deserializers []ModuleDeserializer
	byModule      map[*descriptor.Module]ModuleDeserializer
	forward       *forwardModuleDeserializer
}

// New creates a session.
func New(cfg Config) (*Linker, error) {
	l := &Linker{
		cfg:      cfg,
		symbols:  symtab.New(cfg.SymbolCapacity),
		builtins: cfg.Builtins,
		caches:   cfg.Caches,
		policy:   cfg.Policy,
		spans:    trace.NewSession(cfg.Tracer),
		byModule: make(map[*descriptor.Module]ModuleDeserializer),
	}
	if l.builtins == nil {
		l.builtins = ir.NewBuiltins()
	}
	if l.policy == nil {
		l.policy = compat.DefaultPolicy{}
	}
	for _, c := range l.builtins.Classes() {
		if err := l.symbols.Adopt(c.Symbol()); err != nil {
			return nil, fmt.Errorf("adopt builtin %s: %w", c.Name(), err)
		}
	}
	l.stubs = stubgen.New(l.symbols, l.builtins, l)
	l.session = l.spans.Begin(trace.ScopeSession, "link", 0)
	if cfg.ForwardModule != nil {
		l.forward = newForwardModuleDeserializer(l, cfg.ForwardModule)
		l.register(l.forward)
	}
	return l, nil
}

// Symbols returns the session symbol table.
func (l *Linker) Symbols() *symtab.Table { return l.symbols }

// Builtins returns the session builtins.
func (l *Linker) Builtins() *ir.Builtins { return l.builtins }

// Stubs returns the session stub generator.
func (l *Linker) Stubs() *stubgen.Generator { return l.stubs }

// Close ends the session span.
func (l *Linker) Close() {
	if l.session != nil {
		l.session.End(fmt.Sprintf("symbols=%d", l.symbols.Len()))
		l.session = nil
	}
}

func (l *Linker) sessionID() uint64 {
	if l.session == nil {
		return 0
	}
	return l.session.ID()
}

func (l *Linker) register(d ModuleDeserializer) {
	l.deserializers = append(l.deserializers, d)
	l.byModule[d.Descriptor()] = d
}

// DeserializeModuleHeader selects and registers the deserializer of desc.
// A module registered before returns its existing fragment.
func (l *Linker) DeserializeModuleHeader(desc *descriptor.Module, lib *klib.Library, strategy deser.Strategy) (*ir.Module, error) {
	if d, ok := l.byModule[desc]; ok {
		return d.ModuleFragment(), nil
	}
	category, err := selectCategory(l, desc, lib)
	if err != nil {
		return nil, fmt.Errorf("module %s: %w", desc.Name, err)
	}
	span := l.spans.Begin(trace.ScopeModule, "module_header", l.sessionID()).
		WithExtra("module", desc.Name).
		WithExtra("category", category.String())
	var d ModuleDeserializer
	switch category {
	case CategoryForward:
		d = l.forward
	case CategoryInterop:
		d = newInteropModuleDeserializer(l, desc, lib)
	case CategoryCached:
		d = newCachedModuleDeserializer(l, desc, lib)
	case CategoryLibrary:
		d, err = newLibraryModuleDeserializer(l, desc, lib, strategy)
	}
	if err != nil {
		span.End("error")
		return nil, fmt.Errorf("module %s: %w", desc.Name, err)
	}
	l.register(d)
	span.End("")
	return d.ModuleFragment(), nil
}

// ResolveModuleDeserializer returns the registered deserializer of desc.
func (l *Linker) ResolveModuleDeserializer(desc *descriptor.Module) (ModuleDeserializer, error) {
	if d, ok := l.byModule[desc]; ok {
		return d, nil
	}
	return nil, fmt.Errorf("module %s has no deserializer: %w", desc.Name, ErrNoLibrary)
}

// owner finds the module that owns the top level of s. The forward module
// claims native class names first; every other signature must be claimed by
// exactly one module.
func (l *Linker) owner(s sig.Signature) (ModuleDeserializer, error) {
	top := s.TopLevel()
	if l.forward != nil && l.forward.Contains(top) {
		return l.forward, nil
	}
	var found ModuleDeserializer
	for _, d := range l.deserializers {
		if d.Category() == CategoryForward || !d.Contains(top) {
			continue
		}
		if found != nil {
			return nil, fmt.Errorf("%v: %s and %s: %w", s, found.Descriptor().Name, d.Descriptor().Name, ErrDuplicateOwner)
		}
		found = d
	}
	if found == nil {
		return nil, fmt.Errorf("%v: %w", s, ErrUnknownSignature)
	}
	return found, nil
}

// Resolve returns the session symbol of a public signature. Bound symbols are
// returned as is; otherwise the owning module reserves the symbol and
// schedules or materializes its declaration.
func (l *Linker) Resolve(s sig.Signature, kind sig.SymbolKind) (*ir.Symbol, error) {
	if !s.IsPublic() {
		return nil, fmt.Errorf("resolve %v: %w", s, symtab.ErrNotPublic)
	}
	if sym, ok := l.symbols.Lookup(s); ok && sym.IsBound() {
		if sym.Kind() != kind {
			return nil, fmt.Errorf("resolve %v as %v: %w", s, kind, symtab.ErrKindMismatch)
		}
		return sym, nil
	}
	d, err := l.owner(s)
	if err != nil {
		return nil, err
	}
	if l.spans.Enabled() {
		l.spans.Point(trace.ScopeSymbol, "resolve", s.String()+" -> "+d.Descriptor().Name, l.sessionID())
	}
	return d.DeserializeSymbol(s, kind)
}

// GetDeclaration resolves s, drains the work queues and returns the
// materialized declaration.
func (l *Linker) GetDeclaration(s sig.Signature, kind sig.SymbolKind) (ir.Declaration, error) {
	sym, err := l.Resolve(s, kind)
	if err != nil {
		return nil, err
	}
	if err := l.LinkAll(); err != nil {
		return nil, err
	}
	if !sym.IsBound() {
		return nil, fmt.Errorf("%v: %w", s, ErrNoDeclaration)
	}
	return sym.Owner(), nil
}

// LinkAll materializes every scheduled top-level declaration, including the
// ones scheduled while draining.
func (l *Linker) LinkAll() error {
	span := l.spans.Begin(trace.ScopeSession, "link_all", l.sessionID())
	passes := 0
	for {
		progressed := false
		for _, d := range l.deserializers {
			w, ok := d.(worker)
			if !ok || !w.pending() {
				continue
			}
			progressed = true
			if err := w.drain(); err != nil {
				span.End("error")
				return fmt.Errorf("module %s: %w", d.Descriptor().Name, err)
			}
		}
		if !progressed {
			break
		}
		passes++
	}
	span.End(fmt.Sprintf("passes=%d", passes))
	return nil
}

// PostProcess finishes the session: it drains the work queues, generates
// stubs for every symbol still unbound whose descriptor some module knows,
// and fails with ErrUnboundSymbols if any remain.
func (l *Linker) PostProcess() error {
	span := l.spans.Begin(trace.ScopeSession, "post_process", l.sessionID())
	if err := l.LinkAll(); err != nil {
		span.End("error")
		return err
	}
	l.stubs.UnboundSymbolGeneration = true
	defer func() { l.stubs.UnboundSymbolGeneration = false }()

	generated := 0
	for {
		progressed := false
		for _, sym := range l.symbols.Unbound() {
			desc := l.findDescriptor(sym.Signature())
			if desc == nil {
				continue
			}
			if _, err := l.stubs.GenerateMemberStub(desc); err != nil {
				span.End("error")
				return fmt.Errorf("stub for unbound %v: %w", sym.Signature(), err)
			}
			if sym.IsBound() {
				generated++
				progressed = true
			}
		}
		if err := l.LinkAll(); err != nil {
			span.End("error")
			return err
		}
		if !progressed {
			break
		}
	}
	if err := l.stubs.Err(); err != nil {
		span.End("error")
		return fmt.Errorf("stub generation: %w", err)
	}
	if unbound := l.symbols.Unbound(); len(unbound) > 0 {
		span.End("error")
		return unboundError(unbound)
	}
	span.End(fmt.Sprintf("stubs=%d", generated))
	return nil
}

func (l *Linker) findDescriptor(s sig.Signature) *descriptor.Descriptor {
	for _, d := range l.deserializers {
		if desc := d.Descriptor().Lookup(s); desc != nil {
			return desc
		}
	}
	return nil
}

func unboundError(unbound []*ir.Symbol) error {
	names := make([]string, 0, len(unbound))
	for _, sym := range unbound {
		names = append(names, sym.Signature().String())
	}
	sort.Strings(names)
	more := ""
	if len(names) > maxReportedUnbound {
		more = fmt.Sprintf(" and %d more", len(names)-maxReportedUnbound)
		names = names[:maxReportedUnbound]
	}
	return fmt.Errorf("%w: %s%s", ErrUnboundSymbols, strings.Join(names, ", "), more)
}

// Modules returns the linked modules by name, without the forward module and
// the current module.
func (l *Linker) Modules() map[string]*ir.Module {
	out := make(map[string]*ir.Module, len(l.deserializers))
	for _, d := range l.deserializers {
		if d.Category() == CategoryForward || (l.cfg.CurrentModule != nil && d.Descriptor() == l.cfg.CurrentModule) {
			continue
		}
		out[d.Descriptor().Name] = d.ModuleFragment()
	}
	return out
}

// Deserializers lists the registered module deserializers in registration
// order.
func (l *Linker) Deserializers() []ModuleDeserializer { return l.deserializers }

// CachedDeserializerFor returns the cached deserializer of desc.
func (l *Linker) CachedDeserializerFor(desc *descriptor.Module) (*CachedModuleDeserializer, error) {
	d, err := l.ResolveModuleDeserializer(desc)
	if err != nil {
		return nil, err
	}
	cached, ok := d.(*CachedModuleDeserializer)
	if !ok {
		return nil, fmt.Errorf("module %s is %v: %w", desc.Name, d.Category(), ErrNotCached)
	}
	return cached, nil
}

// BuildLibraryCache links desc completely and records the inline function
// references and class field layouts of its public declarations.
func (l *Linker) BuildLibraryCache(desc *descriptor.Module) (*libcache.Cache, error) {
	d, err := l.ResolveModuleDeserializer(desc)
	if err != nil {
		return nil, err
	}
	lib, ok := d.(*libraryModuleDeserializer)
	if !ok {
		return nil, fmt.Errorf("build cache of %s (%v): only ordinary libraries can be cached", desc.Name, d.Category())
	}
	span := l.spans.Begin(trace.ScopeModule, "build_cache", l.sessionID()).WithExtra("module", desc.Name)
	c, err := lib.buildCache()
	if err != nil {
		span.End("error")
		return nil, err
	}
	span.End(fmt.Sprintf("inline=%d classes=%d", len(c.InlineFunctionBodies), len(c.ClassFields)))
	return c, nil
}
