package capstonesys

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Build tool constants
const (
	unixMakefiles  = "Unix Makefiles"
	mingwMakefiles = "MinGW Makefiles"
	cmakeProgram   = "cmake"
	cmakeBuildDir  = "build"
)

// CmakeAcquirer builds the bundled capstone sources with CMake.
//
// This is the default on Windows and is selected elsewhere with the
// "cmake" feature. The library is installed into OutDir, so the link search
// directory is OutDir/lib.
type CmakeAcquirer struct{}

// Name returns the acquirer name
func (a *CmakeAcquirer) Name() string {
	return "CMake"
}

// RequiredTools returns the tools needed for CMake builds
func (a *CmakeAcquirer) RequiredTools(_ *BuildConfig) []ToolRequirement {
	return []ToolRequirement{
		{Name: cmakeProgram, Purpose: "CMake build system"},
	}
}

// CheckTools verifies that cmake is available
func (a *CmakeAcquirer) CheckTools(config *BuildConfig) error {
	return CheckRequiredTools(a.RequiredTools(config))
}

// Acquire configures, builds and installs capstone with cmake
func (a *CmakeAcquirer) Acquire(ctx context.Context, config *BuildConfig, result *BuildResult) (*Acquisition, error) {
	return runCommonBuild(ctx, config, result, CommonBuildSteps{
		ConfigureFunc: a.runCmake,
		BuildFunc:     a.runBuild,
		FindFunc:      a.findLibrary,
	})
}

// runCmake executes cmake to configure the build tree
func (a *CmakeAcquirer) runCmake(ctx context.Context, config *BuildConfig, sourceDir string, result *BuildResult) error {
	buildDir := filepath.Join(config.OutDir, cmakeBuildDir)
	if err := os.MkdirAll(buildDir, 0o755); err != nil {
		return fmt.Errorf("creating cmake build directory: %w", err)
	}

	args := a.configureArgs(config, sourceDir, buildDir)

	return runTool(ctx, config, result, toolCommand{
		step: "CMake",
		dir:  buildDir,
		name: cmakeProgram,
		args: args,
	})
}

// configureArgs returns the cmake configure command line
func (a *CmakeAcquirer) configureArgs(config *BuildConfig, sourceDir, buildDir string) []string {
	args := []string{
		"-S", sourceDir,
		"-B", buildDir,
		fmt.Sprintf("-DCMAKE_INSTALL_PREFIX=%s", config.OutDir),
		"-DCMAKE_BUILD_TYPE=Release",
		"-DCAPSTONE_BUILD_SHARED=OFF",
		"-DCAPSTONE_BUILD_STATIC=ON",
		"-DCAPSTONE_BUILD_TESTS=OFF",
		"-DCAPSTONE_BUILD_CSTOOL=OFF",
	}

	// MSVC needs the static C runtime when the consumer links crt-static
	if config.staticCRT() {
		args = append(args, "-DCAPSTONE_BUILD_STATIC_RUNTIME=ON")
	}

	if generator := a.getGenerator(config); generator != "" {
		args = append(args, "-G", generator)
	}

	return append(args, config.BuildArgs...)
}

// runBuild executes the build and install commands
func (a *CmakeAcquirer) runBuild(ctx context.Context, config *BuildConfig, _ string, result *BuildResult) error {
	buildDir := filepath.Join(config.OutDir, cmakeBuildDir)

	args := []string{"--build", buildDir, "--config", "Release"}
	if config.Parallel > 0 {
		args = append(args, "--parallel", fmt.Sprintf("%d", config.Parallel))
	}

	if err := runTool(ctx, config, result, toolCommand{
		step: "CMake Build",
		dir:  buildDir,
		name: cmakeProgram,
		args: args,
	}); err != nil {
		return err
	}

	return runTool(ctx, config, result, toolCommand{
		step: "CMake Install",
		dir:  buildDir,
		name: cmakeProgram,
		args: []string{"--install", buildDir, "--config", "Release"},
	})
}

// findLibrary locates the installed static library
func (a *CmakeAcquirer) findLibrary(config *BuildConfig, _ string) (string, error) {
	name := Static.LibraryFileName(config.Target, config.libraryName())

	// GNUInstallDirs picks lib64 on some distributions
	for _, dir := range []string{"lib", "lib64"} {
		candidate := filepath.Join(config.OutDir, dir, name)
		if fileExists(candidate) {
			return candidate, nil
		}
	}

	return "", discoveryError("find library",
		fmt.Errorf("%w: %s not installed under %s", ErrLibraryNotFound, name, filepath.Join(config.OutDir, "lib")))
}

// getGenerator returns the CMake generator for the target
func (a *CmakeAcquirer) getGenerator(config *BuildConfig) string {
	if generator := envOr(config, "CMAKE_GENERATOR"); generator != "" {
		return generator
	}

	switch {
	case config.Target.IsMSVC():
		// Let cmake pick the newest Visual Studio it finds
		return ""
	case config.Target.IsWindows():
		return mingwMakefiles
	default:
		return unixMakefiles
	}
}
