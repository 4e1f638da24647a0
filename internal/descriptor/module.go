package descriptor

import (
	"irlink/internal/sig"
)

// ForwardModuleName is the name of the synthetic forward-declaration module.
const ForwardModuleName = "<forward declarations>"

// Module is the descriptor of one library module.
type Module struct {
	Name      string
	IsForward bool

	deps    []*Module
	bySig   map[sig.Signature]*Descriptor
	classes map[string]*Descriptor
	all     []*Descriptor
}

// NewModule creates an empty module descriptor.
func NewModule(name string) *Module {
	return &Module{
		Name:    name,
		bySig:   make(map[sig.Signature]*Descriptor),
		classes: make(map[string]*Descriptor),
	}
}

// NewForwardModule creates the forward-declaration module.
func NewForwardModule() *Module {
	m := NewModule(ForwardModuleName)
	m.IsForward = true
	return m
}

// Add registers d together with its members and accessors.
func (m *Module) Add(d *Descriptor) *Descriptor {
	d.Module = m
	if d.Package == "" {
		d.Package = d.Signature.Package
	}
	if d.Name == "" {
		d.Name = d.Signature.Name()
	}
	if !d.Signature.IsZero() {
		m.bySig[d.Signature] = d
	}
	if d.Kind == KindClass {
		m.classes[classKey(d.Signature.Package, d.Signature.Decl)] = d
	}
	m.all = append(m.all, d)
	for _, member := range d.Members {
		member.Parent = d
		m.Add(member)
	}
	for _, acc := range []*Descriptor{d.Getter, d.Setter} {
		if acc != nil {
			acc.Parent = d.Parent
			acc.Property = d
			m.Add(acc)
		}
	}
	return d
}

func classKey(pkg, decl string) string { return pkg + "/" + decl }

// AddDependency appends direct dependencies.
func (m *Module) AddDependency(deps ...*Module) { m.deps = append(m.deps, deps...) }

// Dependencies returns the direct dependencies.
func (m *Module) Dependencies() []*Module { return m.deps }

// AllDependencies returns the transitive dependencies in breadth-first order,
// excluding m itself.
func (m *Module) AllDependencies() []*Module {
	seen := map[*Module]bool{m: true}
	var out []*Module
	queue := append([]*Module(nil), m.deps...)
	for len(queue) > 0 {
		dep := queue[0]
		queue = queue[1:]
		if seen[dep] {
			continue
		}
		seen[dep] = true
		out = append(out, dep)
		queue = append(queue, dep.deps...)
	}
	return out
}

// Lookup finds a descriptor declared in this module only.
func (m *Module) Lookup(s sig.Signature) *Descriptor { return m.bySig[s] }

// Descriptors lists every registered descriptor in registration order.
func (m *Module) Descriptors() []*Descriptor { return m.all }

// FindClassAcrossDependencies looks the class up in m, then in its transitive
// dependencies.
func (m *Module) FindClassAcrossDependencies(pkg, decl string) *Descriptor {
	key := classKey(pkg, decl)
	if d := m.classes[key]; d != nil {
		return d
	}
	for _, dep := range m.AllDependencies() {
		if d := dep.classes[key]; d != nil {
			return d
		}
	}
	return nil
}

// LookupMode selects how far a Finder searches.
type LookupMode uint8

const (
	ModuleOnly LookupMode = iota + 1
	WithDependencies
)

// Finder resolves signatures to descriptors.
type Finder struct {
	module *Module
	mode   LookupMode
}

// NewFinder creates a finder rooted at m.
func NewFinder(m *Module, mode LookupMode) *Finder {
	return &Finder{module: m, mode: mode}
}

// FindDescriptorBySignature returns the descriptor for s or nil.
func (f *Finder) FindDescriptorBySignature(s sig.Signature) *Descriptor {
	if d := f.module.Lookup(s); d != nil {
		return d
	}
	if f.mode == ModuleOnly {
		return nil
	}
	for _, dep := range f.module.AllDependencies() {
		if d := dep.Lookup(s); d != nil {
			return d
		}
	}
	return nil
}
