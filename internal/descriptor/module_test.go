package descriptor

import (
	"testing"

	"irlink/internal/sig"
)

func TestFinderModes(t *testing.T) {
	base := NewModule("base")
	app := NewModule("app")
	app.AddDependency(base)

	cls := base.Add(&Descriptor{
		Kind:      KindClass,
		Signature: sig.Public("b", "Box", 0, 0),
		Members: []*Descriptor{
			{Kind: KindFunction, Signature: sig.Public("b", "Box.get", 1, 0)},
		},
	})

	if got := NewFinder(app, ModuleOnly).FindDescriptorBySignature(cls.Signature); got != nil {
		t.Fatalf("module-only finder must not look into dependencies")
	}
	if got := NewFinder(app, WithDependencies).FindDescriptorBySignature(cls.Signature); got != cls {
		t.Fatalf("expected class from dependency, got %v", got)
	}
	member := base.Lookup(sig.Public("b", "Box.get", 1, 0))
	if member == nil || member.Parent != cls || member.Name != "get" || member.Module != base {
		t.Fatalf("member not registered correctly: %+v", member)
	}
	if !member.HasDispatchReceiver() {
		t.Fatalf("member function must have a dispatch receiver")
	}
	if got := app.FindClassAcrossDependencies("b", "Box"); got != cls {
		t.Fatalf("class lookup across dependencies failed")
	}
}

func TestAllDependenciesTransitive(t *testing.T) {
	a, b, c := NewModule("a"), NewModule("b"), NewModule("c")
	a.AddDependency(b)
	b.AddDependency(c, a)
	deps := a.AllDependencies()
	if len(deps) != 2 || deps[0] != b || deps[1] != c {
		t.Fatalf("deps = %v", deps)
	}
}
