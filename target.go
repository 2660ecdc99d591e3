package capstonesys

import (
	"fmt"
	"runtime"
	"strings"
)

// Platform constants
const (
	platformWindows = "windows"
	platformDarwin  = "darwin"
)

// Target describes the platform the native library is built for.
//
// Targets are written as triples in the form arch-vendor-os[-env]:
//
//	x86_64-unknown-linux-gnu
//	aarch64-apple-darwin
//	x86_64-pc-windows-msvc
//	x86_64-unknown-freebsd
//
// Only the substrings that influence the build are interpreted; everything
// else is carried through unchanged in Triple.
type Target struct {
	Triple string // Full target triple as given
	Arch   string // First component (x86_64, aarch64, ...)
	Vendor string // Second component (pc, apple, unknown)
	OS     string // Third component (linux, darwin, windows, freebsd, ...)
	Env    string // Optional fourth component (gnu, msvc, musl)
}

// ParseTarget splits a target triple into its components.
func ParseTarget(triple string) (Target, error) {
	triple = strings.TrimSpace(triple)
	parts := strings.Split(triple, "-")
	if len(parts) < 3 {
		return Target{}, fmt.Errorf("invalid target triple %q: expected arch-vendor-os[-env]", triple)
	}

	t := Target{
		Triple: triple,
		Arch:   parts[0],
		Vendor: parts[1],
		OS:     parts[2],
	}
	if len(parts) > 3 {
		t.Env = strings.Join(parts[3:], "-")
	}
	return t, nil
}

// MustParseTarget is like ParseTarget but panics on malformed triples.
func MustParseTarget(triple string) Target {
	t, err := ParseTarget(triple)
	if err != nil {
		panic(err)
	}
	return t
}

// HostTarget returns the triple matching the running Go toolchain.
func HostTarget() Target {
	return targetFor(runtime.GOOS, runtime.GOARCH)
}

func targetFor(goos, goarch string) Target {
	arch := map[string]string{
		"amd64":   "x86_64",
		"386":     "i686",
		"arm64":   "aarch64",
		"arm":     "armv7",
		"ppc64le": "powerpc64le",
		"s390x":   "s390x",
		"riscv64": "riscv64gc",
	}[goarch]
	if arch == "" {
		arch = goarch
	}

	var triple string
	switch goos {
	case platformDarwin:
		triple = arch + "-apple-darwin"
	case platformWindows:
		// cgo on Windows goes through MinGW
		triple = arch + "-pc-windows-gnu"
	case "linux":
		triple = arch + "-unknown-linux-gnu"
	default:
		triple = arch + "-unknown-" + goos
	}
	return MustParseTarget(triple)
}

// String returns the target triple.
func (t Target) String() string {
	return t.Triple
}

// IsWindows reports whether the target OS is Windows.
func (t Target) IsWindows() bool {
	return t.OS == platformWindows
}

// IsMSVC reports whether the target uses the MSVC toolchain.
func (t Target) IsMSVC() bool {
	return strings.Contains(t.Triple, "windows-msvc")
}

// IsApple reports whether the target is an Apple platform.
func (t Target) IsApple() bool {
	return strings.Contains(t.Triple, "apple")
}

// IsBSD reports whether the target is one of the BSDs, whose system make
// is not GNU make.
func (t Target) IsBSD() bool {
	for _, bsd := range []string{"freebsd", "openbsd", "netbsd", "dragonfly", "bitrig"} {
		if strings.Contains(t.OS, bsd) {
			return true
		}
	}
	return false
}
