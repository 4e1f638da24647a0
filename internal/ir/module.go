package ir

// Module is the linked form of one library.
type Module struct {
	Name  string
	Files []*File
}

// NewModule creates an empty module.
func NewModule(name string) *Module { return &Module{Name: name} }

// AddFile appends f and sets its module.
func (m *Module) AddFile(f *File) {
	f.Module = m
	m.Files = append(m.Files, f)
}

// File holds the top-level declarations deserialized from one library file.
type File struct {
	Name         string
	Package      string
	Module       *Module
	Declarations []Declaration
}

// NewFile creates a file that is not yet attached to a module.
func NewFile(name, pkg string) *File { return &File{Name: name, Package: pkg} }

func (f *File) parentNode() {}

// AddDeclaration appends d and reparents it.
func (f *File) AddDeclaration(d Declaration) {
	d.SetParent(f)
	f.Declarations = append(f.Declarations, d)
}

// ExternalPackageFragment parents declarations produced by stub generation.
type ExternalPackageFragment struct {
	Module       string
	Package      string
	Declarations []Declaration
}

func (p *ExternalPackageFragment) parentNode() {}

// AddDeclaration appends d and reparents it.
func (p *ExternalPackageFragment) AddDeclaration(d Declaration) {
	d.SetParent(p)
	p.Declarations = append(p.Declarations, d)
}

// Type is a classifier reference with nullability and arguments.
type Type struct {
	Classifier *Symbol
	Nullable   bool
	Arguments  []Type
}

// IsZero reports an absent type.
func (t Type) IsZero() bool { return t.Classifier == nil }

// ClassOrNil returns the classifier's owner when it is a class.
func (t Type) ClassOrNil() *Class {
	if t.Classifier == nil {
		return nil
	}
	c, _ := t.Classifier.Owner().(*Class)
	return c
}

// ExprKind discriminates expressions.
type ExprKind uint8

const (
	ExprConst ExprKind = iota + 1
	ExprString
	ExprGetValue
	ExprSetValue
	ExprCall
	ExprReturn
	ExprBlock
	ExprDeclaration
)

// Expression is a statement or expression node.
type Expression struct {
	Kind        ExprKind
	Type        Type
	Symbol      *Symbol
	Value       int64
	Text        string
	Args        []*Expression
	Declaration Declaration
}

// Body is a statement body.
type Body struct {
	Statements []*Expression
}

// ExpressionBody wraps a single expression, e.g. a default value.
type ExpressionBody struct {
	Expression *Expression
}
