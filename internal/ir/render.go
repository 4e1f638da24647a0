package ir

import (
	"fmt"
	"strings"
)

// Render describes d for error messages.
func Render(d Declaration) string {
	if d == nil {
		return "<nil>"
	}
	kind := "declaration"
	switch d.(type) {
	case *Class:
		kind = "class"
	case *Function:
		kind = "function"
	case *Property:
		kind = "property"
	case *Field:
		kind = "field"
	case *TypeParameter:
		kind = "type parameter"
	case *ValueParameter:
		kind = "value parameter"
	}
	if s := d.Symbol(); s != nil && !s.Signature().IsZero() {
		return fmt.Sprintf("%s %s [%v]", kind, QualifiedName(d), s.Signature())
	}
	return fmt.Sprintf("%s %s", kind, QualifiedName(d))
}

// QualifiedName joins the names of d and its declaration parents.
func QualifiedName(d Declaration) string {
	parts := []string{d.Name()}
	for p := d.Parent(); p != nil; {
		decl, ok := p.(Declaration)
		if !ok {
			switch f := p.(type) {
			case *File:
				if f.Package != "" {
					parts = append(parts, f.Package)
				}
			case *ExternalPackageFragment:
				if f.Package != "" {
					parts = append(parts, f.Package)
				}
			}
			break
		}
		parts = append(parts, decl.Name())
		p = decl.Parent()
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, ".")
}

// Parents returns the chain of parents of d, innermost first.
func Parents(d Declaration) []Parent {
	var out []Parent
	for p := d.Parent(); p != nil; {
		out = append(out, p)
		decl, ok := p.(Declaration)
		if !ok {
			break
		}
		p = decl.Parent()
	}
	return out
}

// PackageFragmentOf returns the external package fragment enclosing d, if any.
func PackageFragmentOf(d Declaration) *ExternalPackageFragment {
	for _, p := range Parents(d) {
		if f, ok := p.(*ExternalPackageFragment); ok {
			return f
		}
	}
	return nil
}

// FirstNonClassParent skips enclosing classes.
func FirstNonClassParent(c *Class) Parent {
	p := c.Parent()
	for {
		outer, ok := p.(*Class)
		if !ok {
			return p
		}
		p = outer.Parent()
	}
}

// OuterClasses returns c and its enclosing classes, outermost first. With
// onlyInner set, the walk stops after the first class that is not inner, so
// only classes whose type parameters are in scope are returned.
func OuterClasses(c *Class, onlyInner bool) []*Class {
	out := []*Class{c}
	cur := c
	for cur.IsInner || !onlyInner {
		outer, ok := cur.Parent().(*Class)
		if !ok {
			break
		}
		out = append(out, outer)
		cur = outer
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}
