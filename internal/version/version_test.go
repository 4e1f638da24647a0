package version

import (
	"strings"
	"testing"

	"github.com/fatih/color"
)

func withPlainColor(t *testing.T) {
	t.Helper()
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })
}

func TestColoredPlain(t *testing.T) {
	withPlainColor(t)
	orig := Version
	t.Cleanup(func() { Version = orig })

	for _, v := range []string{"0.1.0-dev", "1.2.3", "1.0.0-beta.1", "snapshot"} {
		Version = v
		if got := Colored(); got != v {
			t.Fatalf("Colored() = %q, want %q", got, v)
		}
	}
}

func TestBannerOptionalFields(t *testing.T) {
	withPlainColor(t)
	origCommit, origDate := GitCommit, BuildDate
	t.Cleanup(func() { GitCommit, BuildDate = origCommit, origDate })

	GitCommit, BuildDate = "", ""
	banner := Banner()
	if !strings.Contains(banner, "library abi: 1.8.0") {
		t.Fatalf("banner missing abi version:\n%s", banner)
	}
	if strings.Contains(banner, "commit:") || strings.Contains(banner, "built:") {
		t.Fatalf("banner shows empty optional fields:\n%s", banner)
	}

	GitCommit, BuildDate = "abc123", "2026-01-15T10:30:00Z"
	banner = Banner()
	if !strings.Contains(banner, "commit:      abc123") || !strings.Contains(banner, "built:       2026-01-15T10:30:00Z") {
		t.Fatalf("banner missing optional fields:\n%s", banner)
	}
}
