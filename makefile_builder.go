package capstonesys

import (
	"context"
	"fmt"
	"path/filepath"
)

// Make program names
const (
	makeProgram  = "make"
	gmakeProgram = "gmake"
)

// MakefileAcquirer builds the bundled capstone sources with the Makefile
// shipped in the source tree.
//
// This is the default on non-Windows targets. The static library produced
// in the source tree is copied into OutDir, which becomes the link search
// directory.
type MakefileAcquirer struct{}

// Name returns the acquirer name
func (a *MakefileAcquirer) Name() string {
	return "Makefile"
}

// RequiredTools returns the tools needed for Makefile builds
func (a *MakefileAcquirer) RequiredTools(config *BuildConfig) []ToolRequirement {
	return []ToolRequirement{
		{
			Name:    a.getMakeProgram(config),
			Purpose: "GNU make",
		},
		{
			Name:         "cc",
			Alternatives: []string{"gcc", "clang"},
			Purpose:      "C compiler",
		},
	}
}

// CheckTools verifies that make and a compiler are available
func (a *MakefileAcquirer) CheckTools(config *BuildConfig) error {
	return CheckRequiredTools(a.RequiredTools(config))
}

// Acquire builds capstone with make and copies the archive into OutDir
func (a *MakefileAcquirer) Acquire(ctx context.Context, config *BuildConfig, result *BuildResult) (*Acquisition, error) {
	return runCommonBuild(ctx, config, result, CommonBuildSteps{
		ConfigureFunc: a.noConfigure,
		BuildFunc:     a.runMake,
		FindFunc:      a.findLibrary,
	})
}

// noConfigure is a no-op since the bundled Makefile needs no configuration
func (a *MakefileAcquirer) noConfigure(_ context.Context, config *BuildConfig, _ string, result *BuildResult) error {
	if config.Verbose {
		result.Output = append(result.Output, "Using bundled Makefile, no configuration needed")
	}
	return nil
}

// runMake executes make in the source tree and copies the library to OutDir
func (a *MakefileAcquirer) runMake(ctx context.Context, config *BuildConfig, sourceDir string, result *BuildResult) error {
	var args []string
	if config.Parallel > 0 {
		args = append(args, fmt.Sprintf("-j%d", config.Parallel))
	}
	args = append(args, config.BuildArgs...)

	if err := runTool(ctx, config, result, toolCommand{
		step: "Make",
		dir:  sourceDir,
		env:  []string{"CAPSTONE_STATIC=yes", "CAPSTONE_SHARED=no"},
		name: a.getMakeProgram(config),
		args: args,
	}); err != nil {
		return err
	}

	libName := Static.LibraryFileName(config.Target, config.libraryName())
	src := filepath.Join(sourceDir, libName)
	dst := filepath.Join(config.OutDir, libName)
	if err := copyFile(src, dst); err != nil {
		return discoveryError("copy library", fmt.Errorf("failed to copy %s to %s: %w", src, config.OutDir, err))
	}
	return nil
}

// findLibrary returns the copied library in OutDir
func (a *MakefileAcquirer) findLibrary(config *BuildConfig, _ string) (string, error) {
	return filepath.Join(config.OutDir, Static.LibraryFileName(config.Target, config.libraryName())), nil
}

// getMakeProgram returns make, or gmake when the target OS ships BSD make
func (a *MakefileAcquirer) getMakeProgram(config *BuildConfig) string {
	if makeEnv := envOr(config, "MAKE"); makeEnv != "" {
		return makeEnv
	}

	if config.Target.IsBSD() {
		return gmakeProgram
	}
	return makeProgram
}
