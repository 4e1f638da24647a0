package layout

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"irlink/internal/ir"
)

func valueClass(t *testing.T, name string, underlying *ir.Type) *ir.Class {
	t.Helper()
	c := mustClass(t, name)
	c.IsValue = true
	c.InlineUnderlying = underlying
	return c
}

func TestLayoutOfTypes(t *testing.T) {
	b := ir.NewBuiltins()
	under := ir.TypeOf(b.Short)
	meters := valueClass(t, "Meters", &under)

	tests := []struct {
		name   string
		target Target
		typ    ir.Type
		want   TypeLayout
	}{
		{"byte", X86_64LinuxGNU(), ir.TypeOf(b.Byte), TypeLayout{Size: 1, Align: 1}},
		{"long", X86_64LinuxGNU(), ir.TypeOf(b.Long), TypeLayout{Size: 8, Align: 8}},
		{"vector", X86_64LinuxGNU(), ir.TypeOf(b.Vector128), TypeLayout{Size: 16, Align: 16}},
		{"reference", X86_64LinuxGNU(), ir.TypeOf(b.String), TypeLayout{Size: 8, Align: 8}},
		{"nullable int", ARM32LinuxGNUEABI(), ir.Type{Classifier: b.Int.Symbol(), Nullable: true}, TypeLayout{Size: 4, Align: 4}},
		{"native pointer", ARM32LinuxGNUEABI(), ir.TypeOf(b.NativePtr), TypeLayout{Size: 4, Align: 4}},
		{"value class", X86_64LinuxGNU(), ir.TypeOf(meters), TypeLayout{Size: 2, Align: 2}},
	}
	for _, tt := range tests {
		got, err := New(tt.target, b).LayoutOf(tt.typ)
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Fatalf("%s: layout mismatch (-want +got):\n%s", tt.name, diff)
		}
	}
}

func TestClassLayoutOffsets(t *testing.T) {
	b := ir.NewBuiltins()
	e := New(X86_64LinuxGNU(), b)
	got, err := e.ClassLayout([]FieldInfo{
		{Name: "flag", Type: ir.TypeOf(b.Boolean)},
		{Name: "count", Type: ir.TypeOf(b.Long)},
		{Name: "small", Type: ir.TypeOf(b.Short)},
		{Name: "next", Type: ir.TypeOf(b.Any)},
	})
	if err != nil {
		t.Fatalf("ClassLayout: %v", err)
	}
	want := TypeLayout{
		Size:         32,
		Align:        8,
		FieldOffsets: []int{0, 8, 16, 24},
		FieldAligns:  []int{1, 8, 2, 8},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("layout mismatch (-want +got):\n%s", diff)
	}

	empty, err := e.ClassLayout(nil)
	if err != nil || empty.Size != 0 || empty.Align != 1 {
		t.Fatalf("empty layout = %+v, %v", empty, err)
	}
}

func TestRecursiveValueClassReportsError(t *testing.T) {
	b := ir.NewBuiltins()
	first := valueClass(t, "First", nil)
	second := valueClass(t, "Second", nil)
	toSecond, toFirst := ir.TypeOf(second), ir.TypeOf(first)
	first.InlineUnderlying = &toSecond
	second.InlineUnderlying = &toFirst

	e := New(X86_64LinuxGNU(), b)
	_, err := e.ClassLayout([]FieldInfo{{Name: "loop", Type: ir.TypeOf(first)}})
	var layoutErr *LayoutError
	if !errors.As(err, &layoutErr) || layoutErr.Kind != LayoutErrRecursiveValueClass {
		t.Fatalf("ClassLayout err = %v, want recursive value class", err)
	}
	if diff := cmp.Diff([]string{"First", "Second", "First"}, layoutErr.Cycle); diff != "" {
		t.Fatalf("cycle mismatch (-want +got):\n%s", diff)
	}

	// The failure is cached for both classes.
	if _, err := e.LayoutOf(ir.TypeOf(second)); !errors.As(err, &layoutErr) {
		t.Fatalf("LayoutOf(Second) err = %v", err)
	}
}

func TestValueClassWithoutUnderlying(t *testing.T) {
	b := ir.NewBuiltins()
	broken := valueClass(t, "Broken", nil)
	_, err := New(X86_64LinuxGNU(), b).LayoutOf(ir.TypeOf(broken))
	var layoutErr *LayoutError
	if !errors.As(err, &layoutErr) || layoutErr.Kind != LayoutErrMissingUnderlying {
		t.Fatalf("LayoutOf err = %v, want missing underlying", err)
	}
}
