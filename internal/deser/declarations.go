package deser

import (
	"errors"
	"fmt"

	"irlink/internal/ir"
	"irlink/internal/proto"
)

// ErrBodyKind reports a body-table entry of the wrong kind.
var ErrBodyKind = errors.New("unexpected body kind")

// Options control which bodies are deserialized.
type Options struct {
	// Bodies enables every function body, initializer and default value.
	Bodies bool
	// InlineBodies enables bodies and default values of inline functions.
	InlineBodies bool
}

// DeclarationDeserializer builds IR declarations from the records of one
// file.
type DeclarationDeserializer struct {
	reader   proto.FileReader
	symbols  *SymbolDeserializer
	builtins *ir.Builtins
	opts     Options
	origin   ir.Origin
}

// NewDeclarationDeserializer creates a deserializer for one file.
func NewDeclarationDeserializer(reader proto.FileReader, symbols *SymbolDeserializer, builtins *ir.Builtins, opts Options) *DeclarationDeserializer {
	return &DeclarationDeserializer{
		reader:   reader,
		symbols:  symbols,
		builtins: builtins,
		opts:     opts,
		origin:   ir.OriginDeserialized,
	}
}

// Symbols returns the file's symbol deserializer.
func (d *DeclarationDeserializer) Symbols() *SymbolDeserializer { return d.symbols }

// Reader returns the file's record reader.
func (d *DeclarationDeserializer) Reader() proto.FileReader { return d.reader }

// DeserializeDeclaration materializes record under parent. Records of kind
// "other" yield nil.
func (d *DeclarationDeserializer) DeserializeDeclaration(record *proto.Declaration, parent ir.Parent) (ir.Declaration, error) {
	var (
		decl ir.Declaration
		err  error
	)
	switch record.Kind {
	case proto.DeclClass:
		decl, err = d.deserializeClass(record.Class, parent)
	case proto.DeclFunction:
		decl, err = d.deserializeFunction(record.Function, parent)
	case proto.DeclProperty:
		decl, err = d.deserializeProperty(record.Property, parent)
	case proto.DeclField:
		decl, err = d.deserializeField(record.Field, parent)
	case proto.DeclOther:
		return nil, nil
	default:
		return nil, fmt.Errorf("declaration kind %d: %w", record.Kind, proto.ErrBadIndex)
	}
	if err != nil {
		return nil, err
	}
	return decl, nil
}

func (d *DeclarationDeserializer) base(b proto.Base, name string) (ir.DeclBase, error) {
	sym, err := d.symbols.DeserializeSymbol(b.Symbol)
	if err != nil {
		return ir.DeclBase{}, err
	}
	return ir.NewDeclBase(sym, name, d.origin, b.Start, b.End), nil
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

func (d *DeclarationDeserializer) deserializeClass(record *proto.Class, parent ir.Parent) (*ir.Class, error) {
	if record == nil {
		return nil, fmt.Errorf("class record missing: %w", proto.ErrBadIndex)
	}
	name, err := d.reader.String(record.Name)
	if err != nil {
		return nil, err
	}
	base, err := d.base(record.Base, name)
	if err != nil {
		return nil, fmt.Errorf("class %s: %w", name, err)
	}
	c, err := ir.NewClass(base)
	if err != nil {
		return nil, err
	}
	c.SetParent(parent)
	c.Visibility = visibility(record.Base.Flags)
	c.IsInner = record.Base.Flags.Has(proto.FlagInner)
	c.IsValue = record.Base.Flags.Has(proto.FlagValueClass)
	c.IsInterface = record.Base.Flags.Has(proto.FlagInterface)

	// Type parameters first: supertypes and members may refer to them.
	if c.TypeParameters, err = d.deserializeTypeParameters(record.TypeParameters, c); err != nil {
		return nil, fmt.Errorf("%s: %w", ir.Render(c), err)
	}
	var this *ir.ValueParameter
	if record.ThisReceiver != nil {
		if this, err = d.deserializeValueParameter(record.ThisReceiver, -1, c, false); err != nil {
			return nil, fmt.Errorf("%s: %w", ir.Render(c), err)
		}
	}
	c.SetThisReceiver(ir.Ready(this))

	superTypes := make([]ir.Type, 0, len(record.SuperTypes))
	for _, idx := range record.SuperTypes {
		t, err := d.DeserializeType(idx)
		if err != nil {
			return nil, fmt.Errorf("%s supertype: %w", ir.Render(c), err)
		}
		superTypes = append(superTypes, t)
	}
	c.SetSuperTypes(ir.Ready(superTypes))

	if c.IsValue && record.InlineUnderlying != proto.NoIndex {
		t, err := d.DeserializeType(record.InlineUnderlying)
		if err != nil {
			return nil, fmt.Errorf("%s underlying type: %w", ir.Render(c), err)
		}
		c.InlineUnderlying = &t
	}

	members := make([]ir.Declaration, 0, len(record.Declarations))
	for i := range record.Declarations {
		m, err := d.DeserializeDeclaration(&record.Declarations[i], c)
		if err != nil {
			return nil, err
		}
		if m != nil {
			members = append(members, m)
		}
	}
	c.SetDeclarations(ir.Ready(members))
	return c, nil
}

func (d *DeclarationDeserializer) deserializeTypeParameters(records []proto.TypeParameter, parent ir.Declaration) ([]*ir.TypeParameter, error) {
	out := make([]*ir.TypeParameter, 0, len(records))
	for i := range records {
		r := &records[i]
		name, err := d.reader.String(r.Name)
		if err != nil {
			return nil, err
		}
		base, err := d.base(r.Base, name)
		if err != nil {
			return nil, fmt.Errorf("type parameter %s: %w", name, err)
		}
		p, err := ir.NewTypeParameter(base, i)
		if err != nil {
			return nil, err
		}
		p.SetParent(parentOf(parent))
		out = append(out, p)
	}
	// Bounds may refer to sibling parameters.
	for i := range records {
		for _, idx := range records[i].SuperTypes {
			t, err := d.DeserializeType(idx)
			if err != nil {
				return nil, fmt.Errorf("bound of %s: %w", out[i].Name(), err)
			}
			out[i].SuperTypes = append(out[i].SuperTypes, t)
		}
	}
	return out, nil
}

func parentOf(d ir.Declaration) ir.Parent {
	if p, ok := d.(ir.Parent); ok {
		return p
	}
	return nil
}

func (d *DeclarationDeserializer) deserializeValueParameter(r *proto.ValueParameter, index int, parent ir.Parent, withDefault bool) (*ir.ValueParameter, error) {
	name, err := d.reader.String(r.NameType.Name())
	if err != nil {
		return nil, err
	}
	base, err := d.base(r.Base, name)
	if err != nil {
		return nil, fmt.Errorf("parameter %s: %w", name, err)
	}
	p, err := ir.NewValueParameter(base, index)
	if err != nil {
		return nil, err
	}
	p.SetParent(parent)
	if p.Type, err = d.typeOrAny(r.NameType.Type()); err != nil {
		return nil, fmt.Errorf("parameter %s: %w", name, err)
	}
	if withDefault && r.HasDefault {
		if p.DefaultValue, err = d.DeserializeExpressionBody(r.DefaultValue, parent); err != nil {
			return nil, fmt.Errorf("default value of %s: %w", name, err)
		}
	}
	return p, nil
}

func (d *DeclarationDeserializer) deserializeFunction(record *proto.Function, parent ir.Parent) (*ir.Function, error) {
	if record == nil {
		return nil, fmt.Errorf("function record missing: %w", proto.ErrBadIndex)
	}
	name, err := d.reader.String(record.NameType.Name())
	if err != nil {
		return nil, err
	}
	base, err := d.base(record.Base, name)
	if err != nil {
		return nil, fmt.Errorf("function %s: %w", name, err)
	}
	fn, err := ir.NewFunction(base)
	if err != nil {
		return nil, err
	}
	fn.SetParent(parent)
	fn.Visibility = visibility(record.Base.Flags)
	fn.IsInline = record.IsInline()
	withBodies := d.opts.Bodies || (d.opts.InlineBodies && fn.IsInline)

	if fn.TypeParameters, err = d.deserializeTypeParameters(record.TypeParameters, fn); err != nil {
		return nil, fmt.Errorf("%s: %w", ir.Render(fn), err)
	}
	if record.DispatchReceiver != nil {
		if fn.DispatchReceiver, err = d.deserializeValueParameter(record.DispatchReceiver, -1, fn, false); err != nil {
			return nil, fmt.Errorf("%s: %w", ir.Render(fn), err)
		}
	}
	if record.ExtensionReceiver != nil {
		if fn.ExtensionReceiver, err = d.deserializeValueParameter(record.ExtensionReceiver, -1, fn, false); err != nil {
			return nil, fmt.Errorf("%s: %w", ir.Render(fn), err)
		}
	}
	for i := range record.ValueParameters {
		p, err := d.deserializeValueParameter(&record.ValueParameters[i], i, fn, withBodies)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ir.Render(fn), err)
		}
		fn.ValueParameters = append(fn.ValueParameters, p)
	}
	if typ := record.NameType.Type(); typ == proto.NoIndex {
		fn.ReturnType = ir.TypeOf(d.builtins.Unit)
	} else if fn.ReturnType, err = d.DeserializeType(typ); err != nil {
		return nil, fmt.Errorf("%s return type: %w", ir.Render(fn), err)
	}
	if withBodies && record.HasBody {
		if fn.Body, err = d.DeserializeStatementBody(record.Body, fn); err != nil {
			return nil, fmt.Errorf("%s body: %w", ir.Render(fn), err)
		}
	}
	return fn, nil
}

func (d *DeclarationDeserializer) deserializeProperty(record *proto.Property, parent ir.Parent) (*ir.Property, error) {
	if record == nil {
		return nil, fmt.Errorf("property record missing: %w", proto.ErrBadIndex)
	}
	name, err := d.reader.String(record.Name)
	if err != nil {
		return nil, err
	}
	base, err := d.base(record.Base, name)
	if err != nil {
		return nil, fmt.Errorf("property %s: %w", name, err)
	}
	p, err := ir.NewProperty(base)
	if err != nil {
		return nil, err
	}
	p.SetParent(parent)
	p.Visibility = visibility(record.Base.Flags)
	p.IsConst = record.Base.Flags.Has(proto.FlagConst)
	if record.Getter != nil {
		if p.Getter, err = d.deserializeFunction(record.Getter, parent); err != nil {
			return nil, err
		}
		p.Getter.CorrespondingProperty = p
	}
	if record.Setter != nil {
		if p.Setter, err = d.deserializeFunction(record.Setter, parent); err != nil {
			return nil, err
		}
		p.Setter.CorrespondingProperty = p
	}
	if record.BackingField != nil {
		if p.BackingField, err = d.deserializeField(record.BackingField, parent); err != nil {
			return nil, err
		}
		p.BackingField.Property = p
	}
	return p, nil
}

func (d *DeclarationDeserializer) deserializeField(record *proto.Field, parent ir.Parent) (*ir.Field, error) {
	if record == nil {
		return nil, fmt.Errorf("field record missing: %w", proto.ErrBadIndex)
	}
	name, err := d.reader.String(record.NameType.Name())
	if err != nil {
		return nil, err
	}
	base, err := d.base(record.Base, name)
	if err != nil {
		return nil, fmt.Errorf("field %s: %w", name, err)
	}
	f, err := ir.NewField(base)
	if err != nil {
		return nil, err
	}
	f.SetParent(parent)
	if f.Type, err = d.typeOrAny(record.NameType.Type()); err != nil {
		return nil, fmt.Errorf("%s: %w", ir.Render(f), err)
	}
	if d.opts.Bodies && record.HasInitializer {
		if f.Initializer, err = d.DeserializeExpressionBody(record.Initializer, parent); err != nil {
			return nil, fmt.Errorf("%s initializer: %w", ir.Render(f), err)
		}
	}
	return f, nil
}

func (d *DeclarationDeserializer) typeOrAny(index int32) (ir.Type, error) {
	if index == proto.NoIndex {
		return d.builtins.AnyN(), nil
	}
	return d.DeserializeType(index)
}

// DeserializeType materializes a type-table entry.
func (d *DeclarationDeserializer) DeserializeType(index int32) (ir.Type, error) {
	record, err := d.reader.Type(index)
	if err != nil {
		return ir.Type{}, err
	}
	classifier, err := d.symbols.DeserializeSymbol(record.Classifier)
	if err != nil {
		return ir.Type{}, fmt.Errorf("type #%d: %w", index, err)
	}
	t := ir.Type{Classifier: classifier, Nullable: record.Nullable}
	for _, arg := range record.Arguments {
		at, err := d.DeserializeType(arg)
		if err != nil {
			return ir.Type{}, err
		}
		t.Arguments = append(t.Arguments, at)
	}
	return t, nil
}

// DeserializeStatementBody materializes a statement body. Local
// declarations inside it are parented to parent.
func (d *DeclarationDeserializer) DeserializeStatementBody(index int32, parent ir.Parent) (*ir.Body, error) {
	record, err := d.reader.Body(index)
	if err != nil {
		return nil, err
	}
	if record.Kind != proto.BodyStatements {
		return nil, fmt.Errorf("body #%d: %w", index, ErrBodyKind)
	}
	body := &ir.Body{Statements: make([]*ir.Expression, 0, len(record.Statements))}
	for i := range record.Statements {
		e, err := d.deserializeExpression(&record.Statements[i], parent)
		if err != nil {
			return nil, fmt.Errorf("body #%d: %w", index, err)
		}
		body.Statements = append(body.Statements, e)
	}
	return body, nil
}

// DeserializeExpressionBody materializes a single-expression body such as a
// default value or initializer.
func (d *DeclarationDeserializer) DeserializeExpressionBody(index int32, parent ir.Parent) (*ir.ExpressionBody, error) {
	record, err := d.reader.Body(index)
	if err != nil {
		return nil, err
	}
	if record.Kind != proto.BodyExpression || len(record.Statements) != 1 {
		return nil, fmt.Errorf("expression body #%d: %w", index, ErrBodyKind)
	}
	e, err := d.deserializeExpression(&record.Statements[0], parent)
	if err != nil {
		return nil, fmt.Errorf("expression body #%d: %w", index, err)
	}
	return &ir.ExpressionBody{Expression: e}, nil
}

func (d *DeclarationDeserializer) deserializeExpression(record *proto.Expression, parent ir.Parent) (*ir.Expression, error) {
	e := &ir.Expression{Kind: ir.ExprKind(record.Kind), Value: record.Value}
	var err error
	if record.Type != proto.NoIndex {
		if e.Type, err = d.DeserializeType(record.Type); err != nil {
			return nil, err
		}
	}
	switch record.Kind {
	case proto.ExprString:
		if e.Text, err = d.reader.String(int32(record.Value)); err != nil { // #nosec G115 -- string index
			return nil, err
		}
	case proto.ExprGetValue, proto.ExprSetValue, proto.ExprCall, proto.ExprReturn:
		if e.Symbol, err = d.symbols.DeserializeSymbol(record.Symbol); err != nil {
			return nil, err
		}
	case proto.ExprDeclaration:
		if record.Declaration == nil {
			return nil, fmt.Errorf("declaration expression without declaration: %w", proto.ErrBadIndex)
		}
		if e.Declaration, err = d.DeserializeDeclaration(record.Declaration, parent); err != nil {
			return nil, err
		}
	}
	for i := range record.Args {
		arg, err := d.deserializeExpression(&record.Args[i], parent)
		if err != nil {
			return nil, err
		}
		e.Args = append(e.Args, arg)
	}
	return e, nil
}
