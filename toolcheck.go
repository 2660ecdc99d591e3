package capstonesys

import (
	"fmt"
	"strings"
)

// ToolChecker is implemented by acquirers that run external tools.
//
// The orchestrator checks tools before acquisition starts so that a missing
// cmake or pkg-config fails the build before anything is written to OutDir.
//
// # Platform Support
//
// Tool alternatives handle platform differences:
//   - BSD targets: gmake instead of make
//   - MSVC targets: cl and lib instead of cc and ar
//
// # Consumer Usage
//
//	if checker, ok := acquirer.(ToolChecker); ok {
//	    if err := checker.CheckTools(config); err != nil {
//	        return fmt.Errorf("build tools missing: %w", err)
//	    }
//	}
type ToolChecker interface {
	// RequiredTools returns the list of tools needed for the configured target.
	RequiredTools(config *BuildConfig) []ToolRequirement

	// CheckTools verifies that all required tools are available.
	//
	// Returns nil if all required tools are found, or an error describing
	// which tools are missing. Optional tools don't cause errors if missing.
	CheckTools(config *BuildConfig) error
}

// ToolRequirement describes a build tool dependency.
//
// Required tool:
//
//	ToolRequirement{Name: "cmake", Purpose: "CMake build system"}
//
// Tool with alternatives:
//
//	ToolRequirement{Name: "cc", Alternatives: []string{"gcc", "clang"}, Purpose: "C compiler"}
type ToolRequirement struct {
	// Name is the primary tool binary name (e.g., "cmake", "pkg-config").
	Name string

	// Alternatives are alternative tool names that can satisfy this requirement.
	Alternatives []string

	// Optional indicates this tool is optional and won't cause an error if missing.
	Optional bool

	// Purpose is a human-readable description of why this tool is needed.
	Purpose string
}

// CheckToolAvailable checks if a tool is available in the system PATH.
func CheckToolAvailable(tool string) error {
	_, err := execLookPath(tool)
	if err != nil {
		return fmt.Errorf("%s not found in PATH", tool)
	}
	return nil
}

// CheckRequiredTools verifies all required tools are available.
//
// # Behavior
//
//   - Checks the primary tool name first
//   - If not found, tries each alternative tool in order
//   - Optional tools are checked but don't cause errors
//   - Returns all missing required tools in a single error
//
// # Error Format
//
// Single missing tool:
//
//	cmake (CMake build system) not found in PATH
//
// Multiple missing tools:
//
//	missing required tools: cmake (CMake build system), cc (C compiler)
func CheckRequiredTools(requirements []ToolRequirement) error {
	var missingTools []string

	for _, req := range requirements {
		found := CheckToolAvailable(req.Name) == nil

		if !found {
			for _, alt := range req.Alternatives {
				if CheckToolAvailable(alt) == nil {
					found = true
					break
				}
			}
		}

		if !found && !req.Optional {
			if req.Purpose != "" {
				missingTools = append(missingTools, fmt.Sprintf("%s (%s)", req.Name, req.Purpose))
			} else {
				missingTools = append(missingTools, req.Name)
			}
		}
	}

	if len(missingTools) == 0 {
		return nil
	}

	if len(missingTools) == 1 {
		return toolError("check tools", fmt.Errorf("%s not found in PATH", missingTools[0]))
	}

	return toolError("check tools", fmt.Errorf("missing required tools: %s", strings.Join(missingTools, ", ")))
}

// resolveTool returns the first available name among req.Name and its
// alternatives, or req.Name when none is on PATH.
func resolveTool(req ToolRequirement) string {
	for _, name := range append([]string{req.Name}, req.Alternatives...) {
		if CheckToolAvailable(name) == nil {
			return name
		}
	}
	return req.Name
}
