// Package layout describes the field layout of classes: which storage slots a
// class has, their types and the primitive binary representation of a type.
package layout

import (
	"irlink/internal/ir"
)

// FieldInfo is one storage slot of a class layout. Field is nil for layouts
// reconstructed from a library cache.
type FieldInfo struct {
	Name                string
	Type                ir.Type
	IsConst             bool
	HasConstInitializer bool
	Field               *ir.Field
}

// CollectFields returns the storage slots declared directly in c, in
// declaration order: standalone fields and property backing fields.
func CollectFields(c *ir.Class) []FieldInfo {
	var out []FieldInfo
	for _, d := range c.Declarations() {
		switch decl := d.(type) {
		case *ir.Field:
			out = append(out, fieldInfo(decl, false))
		case *ir.Property:
			if decl.BackingField != nil {
				out = append(out, fieldInfo(decl.BackingField, decl.IsConst))
			}
		}
	}
	return out
}

func fieldInfo(f *ir.Field, isConst bool) FieldInfo {
	return FieldInfo{
		Name:                f.Name(),
		Type:                f.Type,
		IsConst:             isConst,
		HasConstInitializer: hasConstInitializer(f),
		Field:               f,
	}
}

func hasConstInitializer(f *ir.Field) bool {
	if f.Initializer == nil || f.Initializer.Expression == nil {
		return false
	}
	switch f.Initializer.Expression.Kind {
	case ir.ExprConst, ir.ExprString:
		return true
	}
	return false
}
