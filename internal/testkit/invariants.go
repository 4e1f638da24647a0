// Package testkit holds IR invariant checks shared by tests.
package testkit

import (
	"fmt"

	"irlink/internal/ir"
)

// CheckModuleInvariants runs a minimal set of tree invariants on a linked
// module:
// 1) every file belongs to m
// 2) every declaration is parented to its container and owns its symbol
// 3) offsets are ordered
// 4) value parameter and return types have classifiers
// Class members are only checked once they have been computed.
func CheckModuleInvariants(m *ir.Module) error {
	if m == nil {
		return fmt.Errorf("nil module")
	}
	for _, f := range m.Files {
		if f.Module != m {
			return fmt.Errorf("file %s: module is %v, want %s", f.Name, moduleName(f.Module), m.Name)
		}
		if err := checkDeclarations(f, f.Declarations); err != nil {
			return fmt.Errorf("file %s: %w", f.Name, err)
		}
	}
	return nil
}

// CheckFragmentInvariants runs the declaration checks on stub fragments.
func CheckFragmentInvariants(fragments []*ir.ExternalPackageFragment) error {
	for _, f := range fragments {
		if err := checkDeclarations(f, f.Declarations); err != nil {
			return fmt.Errorf("fragment %s/%s: %w", f.Module, f.Package, err)
		}
	}
	return nil
}

func moduleName(m *ir.Module) string {
	if m == nil {
		return "<nil>"
	}
	return m.Name
}

func checkDeclarations(parent ir.Parent, decls []ir.Declaration) error {
	for _, d := range decls {
		if d == nil {
			return fmt.Errorf("nil declaration")
		}
		if d.Parent() != parent {
			return fmt.Errorf("%s: wrong parent", ir.Render(d))
		}
		if sym := d.Symbol(); sym == nil || sym.Owner() != d {
			return fmt.Errorf("%s: symbol not bound to declaration", ir.Render(d))
		}
		if start, end := d.Offsets(); end < start {
			return fmt.Errorf("%s: offsets %d > %d", ir.Render(d), start, end)
		}
		switch x := d.(type) {
		case *ir.Function:
			if err := checkFunction(x); err != nil {
				return err
			}
		case *ir.Property:
			for _, acc := range []*ir.Function{x.Getter, x.Setter} {
				if acc == nil {
					continue
				}
				if acc.CorrespondingProperty != x {
					return fmt.Errorf("%s: accessor not linked to property", ir.Render(acc))
				}
				if err := checkFunction(acc); err != nil {
					return err
				}
			}
		case *ir.Class:
			if !x.MembersComputed() {
				continue
			}
			if err := checkDeclarations(x, x.Declarations()); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkFunction(fn *ir.Function) error {
	if fn.ReturnType.IsZero() {
		return fmt.Errorf("%s: no return type", ir.Render(fn))
	}
	for i, p := range fn.ValueParameters {
		if p.Index != i {
			return fmt.Errorf("%s: parameter %s has index %d, want %d", ir.Render(fn), p.Name(), p.Index, i)
		}
		if p.Type.IsZero() {
			return fmt.Errorf("%s: parameter %s has no type", ir.Render(fn), p.Name())
		}
	}
	return nil
}
