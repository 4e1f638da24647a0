package stubgen

import (
	"errors"
	"testing"

	"irlink/internal/descriptor"
	"irlink/internal/ir"
	"irlink/internal/sig"
	"irlink/internal/symtab"
)

func newGenerator(t *testing.T) (*Generator, *ir.Builtins, *symtab.Table) {
	t.Helper()
	table := symtab.New(0)
	b := ir.NewBuiltins()
	for _, c := range b.Classes() {
		if err := table.Adopt(c.Symbol()); err != nil {
			t.Fatalf("adopt: %v", err)
		}
	}
	return New(table, b, nil), b, table
}

func boxModule() (*descriptor.Module, *descriptor.Descriptor) {
	m := descriptor.NewModule("lib")
	intRef := descriptor.TypeRef{Classifier: ir.BuiltinSignature("Int")}
	box := &descriptor.Descriptor{
		Kind:           descriptor.KindClass,
		Signature:      sig.Public("p", "Box", 0, 0),
		TypeParameters: []string{"T"},
		SuperTypes:     []descriptor.TypeRef{{Classifier: ir.BuiltinSignature("Any")}},
		Members: []*descriptor.Descriptor{
			{
				Kind:            descriptor.KindFunction,
				Signature:       sig.Public("p", "Box.get", 1, 0),
				IsInline:        true,
				ValueParameters: []descriptor.Param{{Name: "i", Type: intRef}},
				ReturnType:      intRef,
			},
			{
				Kind:      descriptor.KindProperty,
				Signature: sig.Public("p", "Box.size", 0, 0),
				Getter: &descriptor.Descriptor{
					Kind:       descriptor.KindFunction,
					Signature:  sig.Public("p", "Box.size.<get-size>", 0, 0),
					Name:       "<get-size>",
					ReturnType: intRef,
				},
			},
		},
	}
	m.Add(box)
	return m, box
}

func TestGenerateMemberStubIsIdempotent(t *testing.T) {
	g, _, _ := newGenerator(t)
	_, box := boxModule()
	get := box.Members[0]

	first, err := g.GenerateMemberStub(get)
	if err != nil {
		t.Fatalf("GenerateMemberStub: %v", err)
	}
	second, err := g.GenerateMemberStub(get)
	if err != nil {
		t.Fatalf("GenerateMemberStub: %v", err)
	}
	if first != second {
		t.Fatalf("same descriptor produced two declarations")
	}

	fn := first.(*ir.Function)
	cls, ok := fn.Parent().(*ir.Class)
	if !ok || cls.Name() != "Box" {
		t.Fatalf("member parent = %v", fn.Parent())
	}
	if fn.DispatchReceiver == nil || fn.DispatchReceiver.Type.ClassOrNil() != cls {
		t.Fatalf("dispatch receiver not typed by the owning class")
	}
	if len(fn.ValueParameters) != 1 || fn.ValueParameters[0].Type.ClassOrNil().Name() != "Int" {
		t.Fatalf("value parameters not generated")
	}
	if cls.MembersComputed() {
		t.Fatalf("class members must stay lazy")
	}
	members := cls.Declarations()
	if len(members) != 2 || members[0] != first {
		t.Fatalf("lazy members did not reuse the existing stub: %v", members)
	}
	if err := g.Err(); err != nil {
		t.Fatalf("deferred errors: %v", err)
	}
}

func TestLazyFailuresAreCollected(t *testing.T) {
	g, _, _ := newGenerator(t)
	local := sig.FileLocal(sig.Public("p", "Bad", 0, 0), 3)
	bad := &descriptor.Descriptor{
		Kind:       descriptor.KindClass,
		Signature:  sig.Public("p", "Bad", 0, 0),
		SuperTypes: []descriptor.TypeRef{{Classifier: local}},
	}
	descriptor.NewModule("lib").Add(bad)

	cls, err := g.GenerateClassStub(bad)
	if err != nil {
		t.Fatalf("GenerateClassStub: %v", err)
	}
	if err := g.Err(); err != nil {
		t.Fatalf("error before supertypes were computed: %v", err)
	}
	if got := cls.SuperTypes(); len(got) != 0 {
		t.Fatalf("supertypes = %v, want none", got)
	}
	if err := g.Err(); !errors.Is(err, symtab.ErrNotPublic) {
		t.Fatalf("Err = %v, want ErrNotPublic", err)
	}
}

func TestGenerateClassStubPlacement(t *testing.T) {
	g, b, _ := newGenerator(t)
	_, box := boxModule()

	c, err := g.GenerateClassStub(box)
	if err != nil {
		t.Fatalf("GenerateClassStub: %v", err)
	}
	frag, ok := c.Parent().(*ir.ExternalPackageFragment)
	if !ok || frag.Module != "lib" || frag.Package != "p" {
		t.Fatalf("class parent = %v", c.Parent())
	}
	if c.Origin() != ir.OriginStub || len(c.TypeParameters) != 1 {
		t.Fatalf("unexpected class stub %s", ir.Render(c))
	}
	if st := c.SuperTypes(); len(st) != 1 || st[0].ClassOrNil() != b.Any {
		t.Fatalf("supertypes = %v", st)
	}
	if g.Fragment("lib", "p") != frag || len(g.Fragments()) != 1 {
		t.Fatalf("fragments not reused")
	}
	if _, err := g.GenerateClassStub(box.Members[0]); err == nil {
		t.Fatalf("expected error for non-class descriptor")
	}
}

func TestAccessorThroughProperty(t *testing.T) {
	g, _, _ := newGenerator(t)
	_, box := boxModule()
	getter := box.Members[1].Getter

	decl, err := g.GenerateMemberStub(getter)
	if err != nil {
		t.Fatalf("GenerateMemberStub: %v", err)
	}
	fn := decl.(*ir.Function)
	prop := fn.CorrespondingProperty
	if prop == nil || prop.Getter != fn {
		t.Fatalf("accessor not linked to its property")
	}
	if _, ok := fn.Parent().(*ir.Class); !ok {
		t.Fatalf("accessor parent = %v", fn.Parent())
	}
}

func TestGenerateIntoFile(t *testing.T) {
	g, _, _ := newGenerator(t)
	m := descriptor.NewModule("interop")
	d := m.Add(&descriptor.Descriptor{
		Kind:             descriptor.KindClass,
		Signature:        sig.Public("c", "Color", 0, sig.FlagNativeInterop),
		IsCEnumOrCStruct: true,
	})
	file := ir.NewFile("CTypeDefinitions", "c")
	decl, err := g.GenerateInto(d, file, ir.OriginCTypeDefinition)
	if err != nil {
		t.Fatalf("GenerateInto: %v", err)
	}
	if decl.Parent() != file || decl.Origin() != ir.OriginCTypeDefinition || len(file.Declarations) != 1 {
		t.Fatalf("unexpected placement of %s", ir.Render(decl))
	}
}
