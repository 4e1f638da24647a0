package symtab

import (
	"errors"
	"testing"

	"irlink/internal/ir"
	"irlink/internal/sig"
)

func TestReferenceIsIdentityStable(t *testing.T) {
	table := New(0)
	s := sig.Public("p", "A", 0, 0)

	first, err := table.Reference(s, sig.SymbolClass)
	if err != nil {
		t.Fatalf("reference: %v", err)
	}
	second, err := table.Reference(s, sig.SymbolClass)
	if err != nil {
		t.Fatalf("reference: %v", err)
	}
	if first != second {
		t.Fatalf("expected the same symbol for the same signature")
	}
	if first.IsBound() {
		t.Fatalf("fresh slot must be reserved, not bound")
	}
	if got := table.Unbound(); len(got) != 1 || got[0] != first {
		t.Fatalf("unbound = %v", got)
	}

	if _, err := ir.NewClass(ir.NewDeclBase(first, "A", ir.OriginDeserialized, 0, 0)); err != nil {
		t.Fatalf("bind: %v", err)
	}
	if len(table.Unbound()) != 0 {
		t.Fatalf("expected no unbound symbols after binding")
	}
	if table.Len() != 1 {
		t.Fatalf("len = %d", table.Len())
	}
}

func TestReferenceErrors(t *testing.T) {
	table := New(4)
	if _, err := table.Reference(sig.ScopeLocal(1), sig.SymbolValueParameter); !errors.Is(err, ErrNotPublic) {
		t.Fatalf("expected ErrNotPublic, got %v", err)
	}
	s := sig.Public("p", "f", 1, 0)
	if _, err := table.Reference(s, sig.SymbolFunction); err != nil {
		t.Fatalf("reference: %v", err)
	}
	if _, err := table.Reference(s, sig.SymbolClass); !errors.Is(err, ErrKindMismatch) {
		t.Fatalf("expected ErrKindMismatch, got %v", err)
	}
}

func TestAdoptBuiltins(t *testing.T) {
	table := New(0)
	b := ir.NewBuiltins()
	for _, c := range b.Classes() {
		if err := table.Adopt(c.Symbol()); err != nil {
			t.Fatalf("adopt %s: %v", c.Name(), err)
		}
	}
	sym, ok := table.Lookup(ir.BuiltinSignature("Int"))
	if !ok || sym != b.Int.Symbol() {
		t.Fatalf("builtin Int not found")
	}
	if err := table.Adopt(ir.NewSymbol(sig.SymbolClass, ir.BuiltinSignature("Int"))); !errors.Is(err, ir.ErrAlreadyBound) {
		t.Fatalf("expected duplicate adopt to fail, got %v", err)
	}
}
