// Package version holds build information for the irlink CLI. The variables
// can be overridden at build time via -ldflags.
package version

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"irlink/internal/compat"
)

var (
	// Version is the semantic version of the CLI.
	Version = "0.1.0-dev"

	// GitCommit is an optional git commit hash.
	GitCommit = ""

	// BuildDate is an optional build date in ISO-8601.
	BuildDate = ""
)

var (
	majorColor = color.New(color.FgYellow, color.Bold)
	minorColor = color.New(color.FgGreen, color.Bold)
	patchColor = color.New(color.FgBlue, color.Bold)
)

// Colored renders Version with one color per component. Color output is
// controlled by color.NoColor.
func Colored() string {
	core, suffix, _ := strings.Cut(Version, "-")
	parts := strings.SplitN(core, ".", 3)
	if len(parts) != 3 {
		return Version
	}
	out := majorColor.Sprint(parts[0]) + "." + minorColor.Sprint(parts[1]) + "." + patchColor.Sprint(parts[2])
	if suffix != "" {
		out += "-" + suffix
	}
	return out
}

// Banner is the multi-line output of `irlink version`.
func Banner() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "irlink %s\n", Colored())
	fmt.Fprintf(&sb, "  library abi: %s\n", compat.Current)
	if GitCommit != "" {
		fmt.Fprintf(&sb, "  commit:      %s\n", GitCommit)
	}
	if BuildDate != "" {
		fmt.Fprintf(&sb, "  built:       %s\n", BuildDate)
	}
	return sb.String()
}
