package linker

import (
	"fmt"

	"fortio.org/safecast"

	"irlink/internal/ir"
	"irlink/internal/layout"
	"irlink/internal/libcache"
	"irlink/internal/match"
	"irlink/internal/proto"
	"irlink/internal/xref"
)

func (fs *fileState) matchContext() match.Context {
	return match.Context{Strings: fs.reader, Signatures: fs.symbols}
}

// outerRecords walks the class records of outer, outermost first, starting
// at top. It returns the record of the innermost class and the type
// parameter signature ids of every class from the last non-inner one on.
func outerRecords(ctx match.Context, top *proto.Declaration, outer []*ir.Class) (*proto.Class, []int32, error) {
	if top.Kind != proto.DeclClass || top.Class == nil {
		return nil, nil, fmt.Errorf("%s: top-level record is a %v: %w", ir.Render(outer[0]), top.Kind, match.ErrDeclarationNotFound)
	}
	firstNotInner := 0
	for i, c := range outer {
		if !c.IsInner {
			firstNotInner = i
		}
	}
	var typeParams []int32
	record := top.Class
	for i := range outer {
		if i >= firstNotInner {
			for _, tp := range record.TypeParameters {
				typeParams = append(typeParams, tp.Base.Symbol.SignatureID())
			}
		}
		if i < len(outer)-1 {
			next, err := match.FindClass(ctx, record, outer[i+1])
			if err != nil {
				return nil, nil, err
			}
			record = next
		}
	}
	return record, typeParams, nil
}

func fileIndex(fs *fileState) (int32, error) {
	return safecast.Conv[int32](fs.index)
}

// BuildInlineFunctionReference records where the body of the inline
// function fn lives and which signatures its parameters have.
func (d *libraryModuleDeserializer) BuildInlineFunctionReference(fn *ir.Function) (xref.InlineFunctionReference, error) {
	var outer []*ir.Class
	anchor := ir.Declaration(fn)
	root := fn.Parent()
	if c, ok := fn.Parent().(*ir.Class); ok {
		outer = ir.OuterClasses(c, false)
		anchor, root = outer[0], outer[0].Parent()
	} else if p := fn.CorrespondingProperty; p != nil {
		anchor = p
	}
	if _, ok := root.(*ir.File); !ok {
		return xref.InlineFunctionReference{}, fmt.Errorf("%s: %w", ir.Render(fn), ErrLocalDeclaration)
	}
	fs, top, err := d.fileOf(anchor.Symbol().Signature())
	if err != nil {
		return xref.InlineFunctionReference{}, err
	}
	ctx := fs.matchContext()

	var (
		record     *proto.Function
		typeParams []int32
	)
	switch {
	case len(outer) > 0:
		var container *proto.Class
		if container, typeParams, err = outerRecords(ctx, top, outer); err != nil {
			return xref.InlineFunctionReference{}, err
		}
		record, err = match.FindInlineFunction(ctx, container, fn)
	case fn.CorrespondingProperty != nil:
		if top.Kind != proto.DeclProperty || top.Property == nil {
			return xref.InlineFunctionReference{}, fmt.Errorf("%s: top-level record is a %v: %w", ir.Render(fn), top.Kind, match.ErrDeclarationNotFound)
		}
		record, err = match.FindAccessor(top.Property, fn.CorrespondingProperty, fn)
	default:
		if top.Kind != proto.DeclFunction || top.Function == nil {
			return xref.InlineFunctionReference{}, fmt.Errorf("%s: top-level record is a %v: %w", ir.Render(fn), top.Kind, match.ErrDeclarationNotFound)
		}
		record = top.Function
	}
	if err != nil {
		return xref.InlineFunctionReference{}, err
	}

	for _, tp := range record.TypeParameters {
		typeParams = append(typeParams, tp.Base.Symbol.SignatureID())
	}
	file, err := fileIndex(fs)
	if err != nil {
		return xref.InlineFunctionReference{}, err
	}
	start, end := fn.Offsets()
	ref := xref.InlineFunctionReference{
		File:                 file,
		FunctionSignature:    record.Base.Symbol.SignatureID(),
		Body:                 xref.InvalidIndex,
		StartOffset:          start,
		EndOffset:            end,
		ExtensionReceiverSig: xref.InvalidIndex,
		DispatchReceiverSig:  xref.InvalidIndex,
		TypeParameterSigs:    typeParams,
		ValueParameterSigs:   make([]int32, 0, len(record.ValueParameters)),
		DefaultValues:        make([]int32, 0, len(record.ValueParameters)),
	}
	if record.HasBody {
		ref.Body = record.Body
	}
	for i := range record.ValueParameters {
		p := &record.ValueParameters[i]
		ref.ValueParameterSigs = append(ref.ValueParameterSigs, p.Base.Symbol.SignatureID())
		if p.HasDefault {
			ref.DefaultValues = append(ref.DefaultValues, p.DefaultValue)
		} else {
			ref.DefaultValues = append(ref.DefaultValues, xref.InvalidIndex)
		}
	}
	if fn.ExtensionReceiver != nil {
		if record.ExtensionReceiver == nil {
			return xref.InlineFunctionReference{}, fmt.Errorf("%s: extension receiver: %w", ir.Render(fn), ErrParameterMismatch)
		}
		ref.ExtensionReceiverSig = record.ExtensionReceiver.Base.Symbol.SignatureID()
	}
	if fn.DispatchReceiver != nil {
		if record.DispatchReceiver == nil {
			return xref.InlineFunctionReference{}, fmt.Errorf("%s: dispatch receiver: %w", ir.Render(fn), ErrParameterMismatch)
		}
		ref.DispatchReceiverSig = record.DispatchReceiver.Base.Symbol.SignatureID()
	}
	return ref, nil
}

// BuildClassFields records the field layout of c. Field types whose class
// is not exported get no type index; the binary type stands in for them.
func (d *libraryModuleDeserializer) BuildClassFields(c *ir.Class, fields []layout.FieldInfo) (xref.ClassFields, error) {
	outer := ir.OuterClasses(c, false)
	if _, ok := outer[0].Parent().(*ir.File); !ok {
		return xref.ClassFields{}, fmt.Errorf("%s: %w", ir.Render(c), ErrLocalDeclaration)
	}
	fs, top, err := d.fileOf(outer[0].Signature())
	if err != nil {
		return xref.ClassFields{}, err
	}
	record, typeParams, err := outerRecords(fs.matchContext(), top, outer)
	if err != nil {
		return xref.ClassFields{}, err
	}

	records := make(map[string]*proto.Field)
	addField := func(f *proto.Field) error {
		name, err := fs.reader.String(f.NameType.Name())
		if err != nil {
			return err
		}
		if _, dup := records[name]; dup {
			return fmt.Errorf("%s: field %s: %w", ir.Render(c), name, ErrDuplicateField)
		}
		records[name] = f
		return nil
	}
	for i := range record.Declarations {
		child := &record.Declarations[i]
		var err error
		switch {
		case child.Kind == proto.DeclField && child.Field != nil:
			err = addField(child.Field)
		case child.Kind == proto.DeclProperty && child.Property != nil && child.Property.BackingField != nil:
			err = addField(child.Property.BackingField)
		}
		if err != nil {
			return xref.ClassFields{}, err
		}
	}

	file, err := fileIndex(fs)
	if err != nil {
		return xref.ClassFields{}, err
	}
	out := xref.ClassFields{
		File:              file,
		ClassSignature:    record.Base.Symbol.SignatureID(),
		TypeParameterSigs: typeParams,
		Fields:            make([]xref.FieldInfo, 0, len(fields)),
	}
	for _, f := range fields {
		if f.Field == nil {
			return xref.ClassFields{}, fmt.Errorf("%s: field %s has no declaration", ir.Render(c), f.Name)
		}
		rec, ok := records[f.Name]
		if !ok {
			return xref.ClassFields{}, fmt.Errorf("%s: field %s: %w", ir.Render(c), f.Name, match.ErrDeclarationNotFound)
		}
		classifier := f.Type.Classifier
		if classifier == nil {
			return xref.ClassFields{}, fmt.Errorf("%s: field %s: type without classifier", ir.Render(c), f.Name)
		}
		info := xref.FieldInfo{
			Name:       rec.NameType.Name(),
			BinaryType: xref.InvalidIndex,
			Type:       rec.NameType.Type(),
		}
		if bt, ok := layout.PrimitiveBinaryTypeOf(f.Type, d.l.builtins); ok {
			info.BinaryType = int32(bt)
		}
		if cls, ok := classifier.Owner().(*ir.Class); ok && !d.l.policy.IsExported(cls, d.mode) {
			info.Type = xref.InvalidIndex
		}
		if f.IsConst {
			info.Flags |= xref.FlagIsConst
		}
		if f.HasConstInitializer {
			info.Flags |= xref.FlagConstInitializer
		}
		out.Fields = append(out.Fields, info)
	}
	return out, nil
}

// buildCache materializes the whole module and records every public inline
// function and class.
func (d *libraryModuleDeserializer) buildCache() (*libcache.Cache, error) {
	d.eager = append(d.eager, d.files...)
	if err := d.l.LinkAll(); err != nil {
		return nil, err
	}
	c := &libcache.Cache{}
	inline := func(fn *ir.Function) error {
		if fn == nil || !fn.IsInline || !fn.Signature().IsPublic() {
			return nil
		}
		ref, err := d.BuildInlineFunctionReference(fn)
		if err != nil {
			return err
		}
		c.InlineFunctionBodies = append(c.InlineFunctionBodies, ref)
		return nil
	}
	var walk func(decls []ir.Declaration) error
	walk = func(decls []ir.Declaration) error {
		for _, decl := range decls {
			switch x := decl.(type) {
			case *ir.Function:
				if err := inline(x); err != nil {
					return err
				}
			case *ir.Property:
				if err := inline(x.Getter); err != nil {
					return err
				}
				if err := inline(x.Setter); err != nil {
					return err
				}
			case *ir.Class:
				if !x.Signature().IsPublic() {
					continue
				}
				if !x.IsInterface {
					fields, err := d.BuildClassFields(x, layout.CollectFields(x))
					if err != nil {
						return err
					}
					c.ClassFields = append(c.ClassFields, fields)
				}
				if err := walk(x.Declarations()); err != nil {
					return err
				}
			}
		}
		return nil
	}
	for _, fs := range d.files {
		if err := walk(fs.file.Declarations); err != nil {
			return nil, fmt.Errorf("file %s: %w", fs.file.Name, err)
		}
	}
	return c, nil
}
