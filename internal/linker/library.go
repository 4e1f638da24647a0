package linker

import (
	"fmt"

	"irlink/internal/compat"
	"irlink/internal/descriptor"
	"irlink/internal/deser"
	"irlink/internal/ir"
	"irlink/internal/klib"
	"irlink/internal/proto"
	"irlink/internal/sig"
	"irlink/internal/trace"
)

// fileState is the deserialization state of one archive file.
type fileState struct {
	index   int
	file    *ir.File
	reader  proto.FileReader
	symbols *deser.SymbolDeserializer
	decls   *deser.DeclarationDeserializer
	// topLevels maps top-level signatures to declaration indices.
	topLevels map[sig.Signature]int32
	// private lists the top levels without a public signature; they are
	// materialized with the first public top level of the file.
	private []int32
	done    map[int32]bool
	touched bool
}

// libraryModuleDeserializer deserializes an ordinary library from its
// archive. Reached top levels are queued and materialized by drain.
type libraryModuleDeserializer struct {
	l        *Linker
	desc     *descriptor.Module
	lib      *klib.Library
	strategy deser.Strategy
	mode     compat.Mode
	fragment *ir.Module

	files []*fileState
	// index is the reversed top-level index: signature to owning file.
	index  map[sig.Signature]*fileState
	queue  []sig.Signature
	queued map[sig.Signature]bool
	// eager lists files to materialize completely.
	eager []*fileState
}

func newLibraryModuleDeserializer(l *Linker, desc *descriptor.Module, lib *klib.Library, strategy deser.Strategy) (*libraryModuleDeserializer, error) {
	d := &libraryModuleDeserializer{
		l:        l,
		desc:     desc,
		lib:      lib,
		strategy: strategy,
		mode:     l.policy.ModeFor(lib.ABIVersion()),
		fragment: ir.NewModule(desc.Name),
		index:    make(map[sig.Signature]*fileState),
		queued:   make(map[sig.Signature]bool),
	}
	for i := 0; i < lib.FileCount(); i++ {
		fs, err := d.fileHeader(i)
		if err != nil {
			return nil, err
		}
		d.files = append(d.files, fs)
	}
	if strategy.Eager() {
		d.eager = append(d.eager, d.files...)
	}
	return d, nil
}

func (d *libraryModuleDeserializer) fileHeader(i int) (*fileState, error) {
	reader := d.lib.Reader(i)
	record := d.lib.Files[i]
	fs := &fileState{
		index:     i,
		file:      ir.NewFile(record.Name, record.Package),
		reader:    reader,
		topLevels: make(map[sig.Signature]int32),
		done:      make(map[int32]bool),
	}
	fs.symbols = deser.NewSymbolDeserializer(reader, d.l.Resolve)
	fs.decls = deser.NewDeclarationDeserializer(reader, fs.symbols, d.l.builtins, d.strategy.Options())
	d.fragment.AddFile(fs.file)
	for j := 0; j < reader.DeclarationCount(); j++ {
		idx := int32(j) // #nosec G115 -- bounded by the declaration table
		id, err := reader.DeclarationID(idx)
		if err != nil {
			return nil, fmt.Errorf("file %s: %w", record.Name, err)
		}
		s, err := reader.Signature(id)
		if err != nil {
			return nil, fmt.Errorf("file %s: %w", record.Name, err)
		}
		if !s.IsPublic() {
			fs.private = append(fs.private, idx)
			continue
		}
		fs.topLevels[s] = idx
		if other, ok := d.index[s]; ok && other != fs {
			return nil, fmt.Errorf("%v declared in %s and %s: %w", s, other.file.Name, record.Name, ErrDuplicateOwner)
		}
		d.index[s] = fs
	}
	return fs, nil
}

func (d *libraryModuleDeserializer) Category() Category             { return CategoryLibrary }
func (d *libraryModuleDeserializer) Descriptor() *descriptor.Module { return d.desc }
func (d *libraryModuleDeserializer) Library() *klib.Library         { return d.lib }
func (d *libraryModuleDeserializer) ModuleFragment() *ir.Module     { return d.fragment }

func (d *libraryModuleDeserializer) Contains(s sig.Signature) bool {
	_, ok := d.index[s.TopLevel()]
	return ok
}

func (d *libraryModuleDeserializer) ModuleDependencies() ([]ModuleDeserializer, error) {
	out := make([]ModuleDeserializer, 0, len(d.desc.Dependencies()))
	for _, dep := range d.desc.Dependencies() {
		md, err := d.l.ResolveModuleDeserializer(dep)
		if err != nil {
			return nil, err
		}
		out = append(out, md)
	}
	return out, nil
}

// DeserializeSymbol queues the top level of s and reserves its symbol. The
// declaration is bound by the next drain.
func (d *libraryModuleDeserializer) DeserializeSymbol(s sig.Signature, kind sig.SymbolKind) (*ir.Symbol, error) {
	d.AddModuleReachableTopLevel(s)
	return d.l.symbols.Reference(s, kind)
}

func (d *libraryModuleDeserializer) AddModuleReachableTopLevel(s sig.Signature) {
	top := s.TopLevel()
	if d.queued[top] {
		return
	}
	d.queued[top] = true
	d.queue = append(d.queue, top)
}

func (d *libraryModuleDeserializer) pending() bool { return len(d.queue) > 0 || len(d.eager) > 0 }

// drain materializes queued top levels until the queue is empty.
// Deserialization may queue more.
func (d *libraryModuleDeserializer) drain() error {
	span := d.l.spans.Begin(trace.ScopeModule, "drain", d.l.sessionID()).WithExtra("module", d.desc.Name)
	n := 0
	for d.pending() {
		if len(d.queue) == 0 {
			fs := d.eager[0]
			d.eager = d.eager[1:]
			for idx := 0; idx < fs.reader.DeclarationCount(); idx++ {
				if err := d.materialize(fs, int32(idx)); err != nil { // #nosec G115 -- bounded by the declaration table
					span.End("error")
					return err
				}
			}
			fs.touched = true
			continue
		}
		top := d.queue[0]
		d.queue = d.queue[1:]
		fs, ok := d.index[top]
		if !ok {
			span.End("error")
			return fmt.Errorf("%v: %w", top, ErrNoDeclaration)
		}
		if err := d.materialize(fs, fs.topLevels[top]); err != nil {
			span.End("error")
			return err
		}
		n++
		if err := d.touch(fs); err != nil {
			span.End("error")
			return err
		}
	}
	span.End(fmt.Sprintf("top_levels=%d", n))
	return nil
}

// touch materializes the private top levels of fs the first time the file
// is reached.
func (d *libraryModuleDeserializer) touch(fs *fileState) error {
	if fs.touched {
		return nil
	}
	fs.touched = true
	d.l.spans.Point(trace.ScopeFile, "file", fs.file.Name, d.l.sessionID())
	for _, idx := range fs.private {
		if err := d.materialize(fs, idx); err != nil {
			return err
		}
	}
	return nil
}

func (d *libraryModuleDeserializer) materialize(fs *fileState, idx int32) error {
	if fs.done[idx] {
		return nil
	}
	fs.done[idx] = true
	record, err := fs.reader.Declaration(idx)
	if err != nil {
		return fmt.Errorf("file %s: %w", fs.file.Name, err)
	}
	decl, err := fs.decls.DeserializeDeclaration(record, fs.file)
	if err != nil {
		return fmt.Errorf("file %s: %w", fs.file.Name, err)
	}
	if decl != nil {
		fs.file.AddDeclaration(decl)
	}
	return nil
}

// fileOf returns the state of the file declaring the top level of s.
func (d *libraryModuleDeserializer) fileOf(s sig.Signature) (*fileState, *proto.Declaration, error) {
	top := s.TopLevel()
	fs, ok := d.index[top]
	if !ok {
		return nil, nil, fmt.Errorf("%v: %w", s, ErrNoDeclaration)
	}
	record, err := fs.reader.Declaration(fs.topLevels[top])
	if err != nil {
		return nil, nil, err
	}
	return fs, record, nil
}
