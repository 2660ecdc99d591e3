package capstonesys

import "context"

// Acquirer defines how the native capstone library is made available to the
// link step.
//
// There is one Acquirer per Strategy: the system lookup and the three
// bundled builds (CMake, direct compile, make).
//
// # Acquirer Lifecycle
//
//  1. RequiredTools() - Orchestrator verifies the tools exist before running anything
//  2. Acquire() - Locates or builds the library
//
// # Example Implementation
//
//	type PrebuiltAcquirer struct{ Dir string }
//
//	func (a *PrebuiltAcquirer) Name() string { return "Prebuilt" }
//
//	func (a *PrebuiltAcquirer) Acquire(ctx context.Context, config *BuildConfig, result *BuildResult) (*Acquisition, error) {
//	    return &Acquisition{
//	        LinkType:   Static,
//	        SearchDirs: []string{a.Dir},
//	    }, nil
//	}
//
// # Thread Safety
//
// Acquirer implementations are stateless; all state lives in BuildConfig
// and BuildResult.
type Acquirer interface {
	// Name returns the human-readable name of this acquirer.
	//
	// This name is used in error messages and logs.
	// Examples: "System", "CMake", "Make"
	Name() string

	// Acquire makes the library available and reports where it lives.
	//
	// Bundled acquirers must return a SearchDirs entry containing the
	// artifact with the extension matching the returned LinkType.
	//
	// Output from external tools is appended to result.Output.
	Acquire(ctx context.Context, config *BuildConfig, result *BuildResult) (*Acquisition, error)
}
