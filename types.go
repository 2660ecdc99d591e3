package capstonesys

import (
	"context"
	"log/slog"
	"path/filepath"
)

// Default names used by the build.
const (
	DefaultLibraryName  = "capstone"
	DefaultHeaderName   = "capstone.h"
	DefaultBindingsFile = "capstone.go"
	DefaultCgoPackage   = "capstone"
	DefaultCgoFile      = "zcapstone_cgo.go"

	bundledSourceDir = "capstone"
	pregeneratedDir  = "pre_generated"
)

// BuildConfig contains configuration for one build invocation.
//
// A BuildConfig is assembled once at process start from environment
// variables, an optional config file and command line flags (see LoadConfig)
// and is not mutated afterwards.
//
// Source paths:
//   - ManifestDir: Root of the binding package (holds capstone/ and pre_generated/)
//   - OutDir: Build output directory; receives libraries, bindings and cgo flags
//   - SourceDir: Bundled capstone sources (default ManifestDir/capstone)
//   - SourceArchive: Optional .tar.xz/.tar.gz unpacked when SourceDir is absent
//
// Build selection:
//   - Target: Platform the library is built for
//   - TargetFeatures: CPU/target features (crt-static selects the static C runtime on MSVC)
//   - Features: Feature flags selecting acquisition strategy and bindgen
//   - UpdateBindings: Overwrite the checked-in pregenerated bindings
type BuildConfig struct {
	// Source paths
	ManifestDir     string // Root directory of the binding package
	OutDir          string // Build output directory
	SourceDir       string // Bundled capstone source tree
	SourceArchive   string // Optional archive with the bundled sources
	PregeneratedDir string // Directory holding the checked-in bindings

	// Target selection
	Target         Target   // Target platform
	TargetFeatures []string // Target feature string split on commas
	Features       Features // Build feature flags
	UpdateBindings bool     // Overwrite pregenerated bindings with fresh output

	// Naming
	LibraryName  string // Library name without prefix or extension
	HeaderName   string // Public header looked up in the include dirs
	BindingsFile string // File name of the generated declarations
	CgoPackage   string // Package clause of generated Go files

	// Bindgen
	BindgenCommand []string // Translator command template

	// Build arguments
	BuildArgs []string          // Additional build arguments
	Env       map[string]string // Environment variables for build tools

	// Build options
	Verbose  bool // Record commands and working directories in the output
	Debug    bool // Log at debug level (CAPSTONE_SYS_DEBUG)
	Parallel int  // Number of parallel jobs (0 = tool default)

	Logger *slog.Logger // Destination for progress logs; slog.Default() when nil
}

func (c *BuildConfig) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func (c *BuildConfig) sourceDir() string {
	if c.SourceDir != "" {
		return c.SourceDir
	}
	return filepath.Join(c.ManifestDir, bundledSourceDir)
}

func (c *BuildConfig) pregeneratedPath() string {
	dir := c.PregeneratedDir
	if dir == "" {
		dir = filepath.Join(c.ManifestDir, pregeneratedDir)
	}
	return filepath.Join(dir, c.bindingsFile())
}

func (c *BuildConfig) libraryName() string {
	if c.LibraryName != "" {
		return c.LibraryName
	}
	return DefaultLibraryName
}

func (c *BuildConfig) headerName() string {
	if c.HeaderName != "" {
		return c.HeaderName
	}
	return DefaultHeaderName
}

func (c *BuildConfig) bindingsFile() string {
	if c.BindingsFile != "" {
		return c.BindingsFile
	}
	return DefaultBindingsFile
}

func (c *BuildConfig) cgoPackage() string {
	if c.CgoPackage != "" {
		return c.CgoPackage
	}
	return DefaultCgoPackage
}

// hasTargetFeature reports whether feature appears in TargetFeatures.
func (c *BuildConfig) hasTargetFeature(feature string) bool {
	for _, f := range c.TargetFeatures {
		if f == feature {
			return true
		}
	}
	return false
}

// staticCRT reports whether the MSVC static C runtime was requested.
func (c *BuildConfig) staticCRT() bool {
	return c.Target.IsMSVC() && c.hasTargetFeature("crt-static")
}

// BuildResult contains the output and status of a build invocation.
//
// After Orchestrator.Run completes, this structure provides:
//   - The selected strategy and link type
//   - Output lines captured from external tools
//   - The link directives that were published
//   - Header and bindings locations
type BuildResult struct {
	Success           bool        // True if every step completed
	Strategy          Strategy    // Acquisition strategy that ran
	LinkType          LinkType    // Selected link mode
	Output            []string    // Lines of output from external tools
	HeaderSearchPaths []string    // Ordered include directories probed for the header
	HeaderPath        string      // Resolved header, empty when bindgen did not run
	BindingsPath      string      // Declarations file in OutDir
	Generated         bool        // True when bindings were generated rather than copied
	Directives        []Directive // Published link directives
	Error             error       // Error if build failed, nil otherwise
}

// Acquisition describes a located or freshly built native library.
type Acquisition struct {
	LinkType    LinkType // Link mode implied by the strategy
	IncludeDirs []string // Header search paths contributed by the strategy
	SearchDirs  []string // Directories for link-search directives
	Artifact    string   // Path to the built library, empty for system libraries
}

// CommonBuildSteps defines the configure/build/find pattern shared by the
// bundled acquirers.
//
//  1. Configure: Prepare the build tree (cmake configure, object dir, ...)
//  2. Build: Produce the static library
//  3. Find: Locate the library artifact and return its path
type CommonBuildSteps struct {
	// ConfigureFunc prepares the build (e.g., cmake configure)
	ConfigureFunc func(ctx context.Context, config *BuildConfig, sourceDir string, result *BuildResult) error

	// BuildFunc compiles the library (e.g., make, cmake --build)
	BuildFunc func(ctx context.Context, config *BuildConfig, sourceDir string, result *BuildResult) error

	// FindFunc locates the built library once the build completes
	FindFunc func(config *BuildConfig, sourceDir string) (string, error)
}
