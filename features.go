package capstonesys

import (
	"fmt"
	"sort"
	"strings"
)

// Feature names accepted in CAPSTONE_FEATURES and config files.
const (
	FeatureGenerate = "generate"
	FeatureSystem   = "system"
	FeatureCMake    = "cmake"
	FeatureCompile  = "compile"
)

// Features holds the build feature flags.
type Features struct {
	Generate bool // Run the binding generator instead of using pregenerated bindings
	System   bool // Link the system-installed capstone instead of the bundled sources
	CMake    bool // Build the bundled sources with CMake
	Compile  bool // Compile the bundled sources directly with the C toolchain (Windows)
}

// ParseFeatures parses a comma or space separated feature list.
//
// The original binding crate feature names (use_bindgen, use_system_capstone,
// build_capstone_cmake) are accepted as aliases.
func ParseFeatures(list string) (Features, error) {
	var f Features
	fields := strings.FieldsFunc(list, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	for _, field := range fields {
		if err := f.Enable(field); err != nil {
			return Features{}, err
		}
	}
	return f, nil
}

// Enable turns on a single feature by name.
func (f *Features) Enable(name string) error {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case FeatureGenerate, "use_bindgen", "bindgen":
		f.Generate = true
	case FeatureSystem, "use_system_capstone":
		f.System = true
	case FeatureCMake, "build_capstone_cmake":
		f.CMake = true
	case FeatureCompile, "build_capstone_cc", "cc":
		f.Compile = true
	case "":
	default:
		return fmt.Errorf("unknown feature %q", name)
	}
	return nil
}

// Names returns the enabled features in sorted order.
func (f Features) Names() []string {
	var names []string
	if f.Generate {
		names = append(names, FeatureGenerate)
	}
	if f.System {
		names = append(names, FeatureSystem)
	}
	if f.CMake {
		names = append(names, FeatureCMake)
	}
	if f.Compile {
		names = append(names, FeatureCompile)
	}
	sort.Strings(names)
	return names
}

func (f Features) String() string {
	return strings.Join(f.Names(), ",")
}
