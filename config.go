package capstonesys

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config file names probed in the manifest directory.
var ConfigFileNames = []string{"capstone-sys.yaml", "capstone-sys.yml", "capstone-sys.toml"}

// toolEnvVars are passed through to the acquirers when set.
var toolEnvVars = []string{"PKG_CONFIG", "MAKE", "CMAKE_GENERATOR", "CC", "AR"}

// EnvVar documents one environment variable read by LoadConfig.
type EnvVar struct {
	Name        string
	Description string
}

// EnvVars lists every environment variable consulted when loading the config.
func EnvVars() []EnvVar {
	return []EnvVar{
		{"CAPSTONE_TARGET", "Target triple (default derived from the host)"},
		{"CAPSTONE_OUT_DIR", "Build output directory (default <manifest>/out/<target>)"},
		{"CAPSTONE_MANIFEST_DIR", "Root of the binding package (default working directory)"},
		{"CAPSTONE_TARGET_FEATURES", "Comma separated target features, e.g. crt-static"},
		{"CAPSTONE_FEATURES", "Comma separated build features: generate, system, cmake, compile"},
		{"UPDATE_CAPSTONE_BINDINGS", "Overwrite the pregenerated bindings with fresh output (any value, even 0, enables it)"},
		{"CAPSTONE_SOURCE_ARCHIVE", "Source archive unpacked when the bundled tree is missing"},
		{"CAPSTONE_BINDGEN_COMMAND", "Translator command template"},
		{"CAPSTONE_SYS_DEBUG", "Show additional debug information (e.g. CAPSTONE_SYS_DEBUG=1)"},
		{"PKG_CONFIG", "pkg-config program"},
		{"MAKE", "make program"},
		{"CMAKE_GENERATOR", "CMake generator"},
		{"CC", "C compiler for the compile feature"},
		{"AR", "Archiver for the compile feature"},
	}
}

// FileConfig is the layout of capstone-sys.yaml and capstone-sys.toml.
type FileConfig struct {
	Target         string            `yaml:"target" toml:"target"`
	OutDir         string            `yaml:"out_dir" toml:"out_dir"`
	SourceDir      string            `yaml:"source_dir" toml:"source_dir"`
	SourceArchive  string            `yaml:"source_archive" toml:"source_archive"`
	Features       []string          `yaml:"features" toml:"features"`
	TargetFeatures []string          `yaml:"target_features" toml:"target_features"`
	UpdateBindings bool              `yaml:"update_bindings" toml:"update_bindings"`
	LibraryName    string            `yaml:"library_name" toml:"library_name"`
	CgoPackage     string            `yaml:"package" toml:"package"`
	BindgenCommand []string          `yaml:"bindgen_command" toml:"bindgen_command"`
	BuildArgs      []string          `yaml:"build_args" toml:"build_args"`
	Env            map[string]string `yaml:"env" toml:"env"`
	Parallel       int               `yaml:"parallel" toml:"parallel"`
	Verbose        bool              `yaml:"verbose" toml:"verbose"`
	Debug          bool              `yaml:"debug" toml:"debug"`
}

// LoadConfig assembles a BuildConfig from an optional config file and the
// environment. Environment variables take precedence over the file.
//
// When path is empty the manifest directory is probed for ConfigFileNames.
// getenv is normally os.Getenv.
func LoadConfig(path string, getenv func(string) string) (*BuildConfig, error) {
	clean := func(key string) string {
		return strings.Trim(getenv(key), "\"' ")
	}

	config := &BuildConfig{
		ManifestDir: clean("CAPSTONE_MANIFEST_DIR"),
		Parallel:    runtime.NumCPU(),
		Env:         make(map[string]string),
	}
	if config.ManifestDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, configError("load config", fmt.Errorf("resolving working directory: %w", err))
		}
		config.ManifestDir = wd
	}

	if path == "" {
		path = findConfigFile(config.ManifestDir)
	}
	if path != "" {
		fc, err := ReadConfigFile(path)
		if err != nil {
			return nil, err
		}
		if err := fc.apply(config); err != nil {
			return nil, configError("load config", fmt.Errorf("%s: %w", path, err))
		}
	}

	if target := clean("CAPSTONE_TARGET"); target != "" {
		t, err := ParseTarget(target)
		if err != nil {
			return nil, configError("load config", err)
		}
		config.Target = t
	}
	if out := clean("CAPSTONE_OUT_DIR"); out != "" {
		config.OutDir = out
	}
	if tf := clean("CAPSTONE_TARGET_FEATURES"); tf != "" {
		config.TargetFeatures = splitTargetFeatures(tf)
	}
	if list := clean("CAPSTONE_FEATURES"); list != "" {
		features, err := ParseFeatures(list)
		if err != nil {
			return nil, configError("load config", err)
		}
		config.Features = features
	}
	// Presence alone enables the update, whatever the value.
	if getenv("UPDATE_CAPSTONE_BINDINGS") != "" {
		config.UpdateBindings = true
	}
	if archive := clean("CAPSTONE_SOURCE_ARCHIVE"); archive != "" {
		config.SourceArchive = archive
	}
	if command := clean("CAPSTONE_BINDGEN_COMMAND"); command != "" {
		config.BindgenCommand = strings.Fields(command)
	}
	if debug := clean("CAPSTONE_SYS_DEBUG"); debug != "" {
		d, err := strconv.ParseBool(debug)
		config.Debug = err != nil || d
	}
	for _, key := range toolEnvVars {
		if v := clean(key); v != "" {
			config.Env[key] = v
		}
	}

	if config.Target.Triple == "" {
		config.Target = HostTarget()
	}
	if config.OutDir == "" {
		config.OutDir = DefaultOutDir(config.ManifestDir, config.Target)
	}

	return config, nil
}

// DefaultOutDir is the output directory used when none is configured.
func DefaultOutDir(manifestDir string, target Target) string {
	return filepath.Join(manifestDir, "out", target.Triple)
}

func findConfigFile(dir string) string {
	for _, name := range ConfigFileNames {
		candidate := filepath.Join(dir, name)
		if fileExists(candidate) {
			return candidate
		}
	}
	return ""
}

// ReadConfigFile decodes a YAML or TOML config file, chosen by extension.
func ReadConfigFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, configError("read config", err)
	}

	var fc FileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fc)
	case ".toml":
		_, err = toml.Decode(string(data), &fc)
	default:
		err = fmt.Errorf("unsupported config file format %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, configError("read config", fmt.Errorf("%s: %w", path, err))
	}
	return &fc, nil
}

func (fc *FileConfig) apply(config *BuildConfig) error {
	if fc.Target != "" {
		t, err := ParseTarget(fc.Target)
		if err != nil {
			return err
		}
		config.Target = t
	}
	for _, name := range fc.Features {
		if err := config.Features.Enable(name); err != nil {
			return err
		}
	}

	config.OutDir = resolvePath(config.ManifestDir, fc.OutDir)
	config.SourceDir = resolvePath(config.ManifestDir, fc.SourceDir)
	config.SourceArchive = resolvePath(config.ManifestDir, fc.SourceArchive)
	config.TargetFeatures = fc.TargetFeatures
	config.UpdateBindings = fc.UpdateBindings
	config.LibraryName = fc.LibraryName
	config.CgoPackage = fc.CgoPackage
	config.BindgenCommand = fc.BindgenCommand
	config.BuildArgs = fc.BuildArgs
	config.Verbose = fc.Verbose
	config.Debug = fc.Debug
	if fc.Parallel > 0 {
		config.Parallel = fc.Parallel
	}
	for k, v := range fc.Env {
		config.Env[k] = v
	}
	return nil
}

// resolvePath makes a relative config file path relative to the manifest.
func resolvePath(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

func splitTargetFeatures(list string) []string {
	var features []string
	for _, f := range strings.Split(list, ",") {
		f = strings.TrimPrefix(strings.TrimSpace(f), "+")
		if f != "" {
			features = append(features, f)
		}
	}
	return features
}

// Validate rejects configurations that cannot produce a build. It runs
// before anything is written.
func (c *BuildConfig) Validate() error {
	var errs []error
	if c.ManifestDir == "" {
		errs = append(errs, errors.New("manifest directory is not set"))
	}
	if c.OutDir == "" {
		errs = append(errs, errors.New("output directory is not set"))
	}
	if c.Target.Triple == "" {
		errs = append(errs, errors.New("target is not set"))
	}
	if c.UpdateBindings && !c.Features.Generate {
		errs = append(errs, ErrUpdateWithoutGenerate)
	}
	if len(errs) > 0 {
		return configError("validate", errors.Join(errs...))
	}
	return nil
}
