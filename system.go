package capstonesys

import (
	"context"
	"fmt"
	"strings"
)

const pkgConfigProgram = "pkg-config"

// SystemAcquirer finds a system-installed capstone through pkg-config.
//
// There is no fallback to the bundled sources: if pkg-config does not know
// the library the build stops. A system library is always linked dynamically.
type SystemAcquirer struct{}

// Name returns the acquirer name
func (a *SystemAcquirer) Name() string {
	return "System"
}

// RequiredTools returns the package registry query tool
func (a *SystemAcquirer) RequiredTools(config *BuildConfig) []ToolRequirement {
	if p := envOr(config, "PKG_CONFIG"); p != "" {
		return []ToolRequirement{{Name: p, Purpose: "library metadata lookup"}}
	}
	return []ToolRequirement{
		{
			Name:         pkgConfigProgram,
			Alternatives: []string{"pkgconf"},
			Purpose:      "library metadata lookup",
		},
	}
}

// CheckTools verifies that pkg-config is available
func (a *SystemAcquirer) CheckTools(config *BuildConfig) error {
	return CheckRequiredTools(a.RequiredTools(config))
}

// Acquire queries pkg-config for the include and library directories
func (a *SystemAcquirer) Acquire(ctx context.Context, config *BuildConfig, result *BuildResult) (*Acquisition, error) {
	name := config.libraryName()
	tc := toolCommand{
		step: "pkg-config",
		dir:  config.ManifestDir,
		name: resolveTool(a.RequiredTools(config)[0]),
		args: []string{"--cflags-only-I", "--libs-only-L", name},
	}

	out, err := outputTool(ctx, config, tc)
	if err != nil {
		return nil, discoveryError("find system library",
			fmt.Errorf("%w: could not find system %s: %v", ErrLibraryNotFound, name, err))
	}
	result.Output = append(result.Output, splitOutput([]byte(out))...)

	includes, libDirs := parsePkgConfigFlags(out)
	config.logger().Info("found system library", "name", name, "includes", includes, "libdirs", libDirs)

	return &Acquisition{
		LinkType:    Dynamic,
		IncludeDirs: includes,
		SearchDirs:  libDirs,
	}, nil
}

// parsePkgConfigFlags splits pkg-config output into -I and -L directories,
// keeping their order.
func parsePkgConfigFlags(out string) (includes, libDirs []string) {
	for _, field := range strings.Fields(out) {
		switch {
		case strings.HasPrefix(field, "-I"):
			includes = append(includes, strings.TrimPrefix(field, "-I"))
		case strings.HasPrefix(field, "-L"):
			libDirs = append(libDirs, strings.TrimPrefix(field, "-L"))
		}
	}
	return uniqueStrings(includes), uniqueStrings(libDirs)
}
