package layout

import "fmt"

// Target describes the pointer properties of an ABI target.
type Target struct {
	Triple   string // e.g. "x86_64-linux-gnu"
	PtrSize  int    // bytes
	PtrAlign int    // bytes
}

// X86_64LinuxGNU is the default 64-bit target.
func X86_64LinuxGNU() Target {
	return Target{Triple: "x86_64-linux-gnu", PtrSize: 8, PtrAlign: 8}
}

// ARM32LinuxGNUEABI is a 32-bit target.
func ARM32LinuxGNUEABI() Target {
	return Target{Triple: "arm-linux-gnueabihf", PtrSize: 4, PtrAlign: 4}
}

// ParseTarget returns the known target named triple.
func ParseTarget(triple string) (Target, error) {
	for _, t := range []Target{X86_64LinuxGNU(), ARM32LinuxGNUEABI()} {
		if t.Triple == triple {
			return t, nil
		}
	}
	return Target{}, fmt.Errorf("unknown target %q (expected x86_64-linux-gnu|arm-linux-gnueabihf)", triple)
}
