// Package compat decides, per library format version, which signature
// scheme is in use and which classifiers count as exported.
package compat

import (
	"fmt"
	"strconv"
	"strings"

	"irlink/internal/ir"
)

// ABIVersion is a library format version.
type ABIVersion struct {
	Major, Minor, Patch int
}

// Current is the format version written by this toolchain.
var Current = ABIVersion{Major: 1, Minor: 8, Patch: 0}

// newSignaturesSince is the first version using the current signature scheme.
var newSignaturesSince = ABIVersion{Major: 1, Minor: 6, Patch: 0}

// ParseABIVersion parses "major.minor.patch"; missing parts default to zero.
func ParseABIVersion(s string) (ABIVersion, error) {
	var v ABIVersion
	s = strings.TrimSpace(s)
	if s == "" {
		return Current, nil
	}
	parts := strings.Split(s, ".")
	if len(parts) > 3 {
		return v, fmt.Errorf("invalid abi version %q", s)
	}
	dst := []*int{&v.Major, &v.Minor, &v.Patch}
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return v, fmt.Errorf("invalid abi version %q", s)
		}
		*dst[i] = n
	}
	return v, nil
}

// Less orders versions.
func (v ABIVersion) Less(o ABIVersion) bool {
	if v.Major != o.Major {
		return v.Major < o.Major
	}
	if v.Minor != o.Minor {
		return v.Minor < o.Minor
	}
	return v.Patch < o.Patch
}

func (v ABIVersion) String() string { return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch) }

// Mode is the compatibility mode of one library.
type Mode struct {
	OldSignatures bool
}

// Policy answers compatibility questions for the linker.
type Policy interface {
	ModeFor(v ABIVersion) Mode
	IsExported(c *ir.Class, mode Mode) bool
}

// DefaultPolicy implements the toolchain's rules.
type DefaultPolicy struct{}

// ModeFor returns the mode for libraries written with version v.
func (DefaultPolicy) ModeFor(v ABIVersion) Mode {
	return Mode{OldSignatures: v.Less(newSignaturesSince)}
}

// IsExported reports whether c gets a public signature in mode. Private and
// local classes are never exported; under old signatures neither are classes
// nested in a non-exported class.
func (p DefaultPolicy) IsExported(c *ir.Class, mode Mode) bool {
	if c.Visibility == ir.Private || c.Visibility == ir.Local {
		return false
	}
	if !c.Symbol().Signature().IsPublic() {
		return false
	}
	if outer, ok := c.Parent().(*ir.Class); ok {
		if mode.OldSignatures {
			return p.IsExported(outer, mode)
		}
		return outer.Visibility != ir.Local
	}
	return true
}
