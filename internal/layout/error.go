package layout

import (
	"fmt"
	"strings"
)

// LayoutErrorKind enumerates layout calculation errors.
type LayoutErrorKind uint8

const (
	// LayoutErrRecursiveValueClass indicates value classes that wrap
	// themselves and so have no finite size.
	LayoutErrRecursiveValueClass LayoutErrorKind = iota + 1
	// LayoutErrMissingUnderlying indicates a value class without an
	// underlying type.
	LayoutErrMissingUnderlying
)

// LayoutError reports a layout that can't be computed.
type LayoutError struct {
	Kind  LayoutErrorKind
	Class string
	Cycle []string // for LayoutErrRecursiveValueClass
}

func (e *LayoutError) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch e.Kind {
	case LayoutErrRecursiveValueClass:
		if len(e.Cycle) == 0 {
			return fmt.Sprintf("recursive value class %s has infinite size", e.Class)
		}
		return fmt.Sprintf("recursive value class has infinite size (cycle: %s)", strings.Join(e.Cycle, " -> "))
	case LayoutErrMissingUnderlying:
		return fmt.Sprintf("value class %s has no underlying type", e.Class)
	default:
		return fmt.Sprintf("layout error kind=%d class %s", e.Kind, e.Class)
	}
}
