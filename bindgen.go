package capstonesys

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultBindgenCommand runs c-for-go on the rendered manifest.
//
// Supported placeholders:
//
//	{{manifest}} - The translator manifest (YAML)
//	{{header}}   - The resolved entry header
//	{{outdir}}   - Scratch directory receiving the generated Go files
//	{{package}}  - Package name of the generated bindings
var DefaultBindgenCommand = []string{"c-for-go", "-nostamp", "-out", "{{outdir}}", "{{manifest}}"}

// BindingOptions configures one translator run.
type BindingOptions struct {
	Header             string    // Single entry header
	IncludeDirs        []string  // Header search paths, in order
	PackageName        string    // Package clause of the generated file
	DisableNamespacing bool      // Keep C names as-is instead of prefixing them
	GenerateComments   bool      // Carry doc comments from the header
	ConstifiedEnums    []string  // Enum type patterns emitted as constant groups
	AllowList          AllowList // Declarations to extract
	Constants          []string  // Enum member and macro patterns to extract
}

// DefaultBindingOptions returns the options used for capstone.h.
func DefaultBindingOptions(header string, includeDirs []string, packageName string) BindingOptions {
	return BindingOptions{
		Header:             header,
		IncludeDirs:        includeDirs,
		PackageName:        packageName,
		DisableNamespacing: true,
		GenerateComments:   true,
		ConstifiedEnums:    []string{regEnumPattern},
		AllowList:          BuildAllowList(ArchIncludes),
		Constants:          ConstantPatterns(ArchIncludes),
	}
}

// Translation is the output of one translator run.
type Translation struct {
	// Source is the merged Go declarations file.
	Source []byte

	// Support holds the C files the declarations' cgo preamble depends on
	// (cgo_helpers.h, cgo_helpers.c), keyed by file name. They are written
	// next to the declarations file.
	Support map[string][]byte
}

// Translator turns a C header into Go declarations.
type Translator interface {
	// Translate returns the generated bindings for opts.
	//
	// Output from external tools is appended to result.Output.
	Translate(ctx context.Context, config *BuildConfig, result *BuildResult, opts BindingOptions) (*Translation, error)
}

// CommandTranslator runs an external header-to-bindings tool.
//
// The tool is fed a c-for-go style manifest (GENERATOR, PARSER and
// TRANSLATOR sections) rendered from BindingOptions. Every Go file it
// writes below {{outdir}} is merged into a single declarations file; C
// headers and sources it writes are kept as support files.
type CommandTranslator struct {
	// Command is the command template; nil means DefaultBindgenCommand.
	Command []string
}

// Name returns the translator name
func (t *CommandTranslator) Name() string {
	return "Bindgen"
}

func (t *CommandTranslator) command(config *BuildConfig) []string {
	if len(t.Command) > 0 {
		return t.Command
	}
	if len(config.BindgenCommand) > 0 {
		return config.BindgenCommand
	}
	return DefaultBindgenCommand
}

// RequiredTools returns the translator binary
func (t *CommandTranslator) RequiredTools(config *BuildConfig) []ToolRequirement {
	return []ToolRequirement{{Name: t.command(config)[0], Purpose: "header-to-bindings translator"}}
}

// CheckTools verifies the translator binary is available
func (t *CommandTranslator) CheckTools(config *BuildConfig) error {
	return CheckRequiredTools(t.RequiredTools(config))
}

// Translate renders the manifest, runs the tool and merges its output
func (t *CommandTranslator) Translate(ctx context.Context, config *BuildConfig, result *BuildResult, opts BindingOptions) (*Translation, error) {
	if err := os.MkdirAll(config.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	workDir, err := os.MkdirTemp(config.OutDir, "bindgen-")
	if err != nil {
		return nil, fmt.Errorf("creating bindgen work directory: %w", err)
	}
	defer os.RemoveAll(workDir)

	manifest, err := RenderManifest(opts)
	if err != nil {
		return nil, err
	}
	manifestPath := filepath.Join(workDir, opts.PackageName+".yml")
	if err := os.WriteFile(manifestPath, manifest, 0o644); err != nil {
		return nil, fmt.Errorf("writing translator manifest: %w", err)
	}

	outDir := filepath.Join(workDir, "out")
	args := expandPlaceholders(t.command(config), map[string]string{
		"manifest": manifestPath,
		"header":   opts.Header,
		"outdir":   outDir,
		"package":  opts.PackageName,
	})

	if err := runTool(ctx, config, result, toolCommand{
		step: "Bindgen",
		dir:  workDir,
		name: args[0],
		args: args[1:],
	}); err != nil {
		return nil, err
	}

	files, support, err := collectOutput(outDir)
	if err != nil {
		return nil, toolError("Bindgen", err)
	}
	if len(files) == 0 {
		return nil, toolError("Bindgen", fmt.Errorf("translator produced no Go files in %s", outDir))
	}

	src, err := mergeGoFiles(opts.PackageName, filepath.Base(opts.Header), files)
	if err != nil {
		return nil, toolError("Bindgen", err)
	}

	translation := &Translation{Source: src, Support: make(map[string][]byte)}
	for _, path := range support {
		name := filepath.Base(path)
		if _, dup := translation.Support[name]; dup {
			return nil, toolError("Bindgen", fmt.Errorf("translator wrote %s more than once", name))
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, toolError("Bindgen", fmt.Errorf("reading support file: %w", err))
		}
		translation.Support[name] = data
	}
	return translation, nil
}

// expandPlaceholders substitutes {{key}} in every argument.
func expandPlaceholders(template []string, values map[string]string) []string {
	args := make([]string, len(template))
	for i, arg := range template {
		for key, value := range values {
			arg = strings.ReplaceAll(arg, "{{"+key+"}}", value)
		}
		args[i] = arg
	}
	return args
}

// supportExtensions are the translator outputs copied next to the bindings.
var supportExtensions = []string{".h", ".c"}

// collectOutput lists the Go files and the C support files below root.
func collectOutput(root string) (goFiles, support []string, err error) {
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		switch {
		case d.IsDir():
		case strings.HasSuffix(path, "_test.go"):
		case strings.HasSuffix(path, ".go"):
			goFiles = append(goFiles, path)
		case MatchesExtension(path, supportExtensions...):
			support = append(support, path)
		}
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return nil, nil, fmt.Errorf("collecting generated files: %w", err)
	}
	sort.Strings(goFiles)
	sort.Strings(support)
	return goFiles, support, nil
}

// translatorManifest mirrors the c-for-go manifest layout.
type translatorManifest struct {
	Generator  generatorSection  `yaml:"GENERATOR"`
	Parser     parserSection     `yaml:"PARSER"`
	Translator translatorSection `yaml:"TRANSLATOR"`
}

type generatorSection struct {
	PackageName        string          `yaml:"PackageName"`
	PackageDescription string          `yaml:"PackageDescription"`
	Includes           []string        `yaml:"Includes"`
	Options            map[string]bool `yaml:"Options,omitempty"`
}

type parserSection struct {
	IncludePaths []string `yaml:"IncludePaths"`
	SourcesPaths []string `yaml:"SourcesPaths"`
}

type translatorSection struct {
	ConstRules map[string]string         `yaml:"ConstRules"`
	Rules      map[string][]manifestRule `yaml:"Rules"`
}

type manifestRule struct {
	Action string `yaml:"action"`
	From   string `yaml:"from"`
}

// RenderManifest renders opts as a translator manifest.
//
// Allow-list patterns become function and type accept rules, constant
// patterns become const accept rules, and constified enum patterns become
// ignore rules on the type so their members surface as untyped constants.
func RenderManifest(opts BindingOptions) ([]byte, error) {
	if opts.Header == "" {
		return nil, configError("render manifest", fmt.Errorf("no entry header"))
	}

	m := translatorManifest{
		Generator: generatorSection{
			PackageName:        opts.PackageName,
			PackageDescription: fmt.Sprintf("Package %s provides Go bindings for %s.", opts.PackageName, filepath.Base(opts.Header)),
			Includes:           []string{filepath.Base(opts.Header)},
			Options: map[string]bool{
				"SafeStrings":  true,
				"KeepComments": opts.GenerateComments,
				"NoNamespace":  opts.DisableNamespacing,
			},
		},
		Parser: parserSection{
			IncludePaths: append([]string{filepath.Dir(opts.Header)}, opts.IncludeDirs...),
			SourcesPaths: []string{opts.Header},
		},
		Translator: translatorSection{
			ConstRules: map[string]string{
				"defines": "eval",
				"enum":    "eval",
			},
			Rules: map[string][]manifestRule{},
		},
	}
	m.Parser.IncludePaths = uniqueStrings(m.Parser.IncludePaths)

	for _, pattern := range opts.AllowList.Functions {
		m.Translator.Rules["function"] = append(m.Translator.Rules["function"], manifestRule{Action: "accept", From: pattern})
	}
	for _, pattern := range opts.AllowList.Types {
		m.Translator.Rules["type"] = append(m.Translator.Rules["type"], manifestRule{Action: "accept", From: pattern})
	}
	for _, pattern := range opts.Constants {
		m.Translator.Rules["const"] = append(m.Translator.Rules["const"], manifestRule{Action: "accept", From: pattern})
	}
	for _, pattern := range opts.ConstifiedEnums {
		m.Translator.Rules["type"] = append(m.Translator.Rules["type"], manifestRule{Action: "ignore", From: pattern})
	}

	out, err := yaml.Marshal(&m)
	if err != nil {
		return nil, fmt.Errorf("encoding translator manifest: %w", err)
	}
	return out, nil
}

// GenerateBindings locates the header, runs the translator and writes the
// declarations file and its support files to OutDir. When
// config.UpdateBindings is set the checked-in pregenerated copies are
// overwritten with the same bytes.
//
// It returns the resolved header and the path of the written bindings.
func GenerateBindings(ctx context.Context, config *BuildConfig, result *BuildResult, translator Translator, searchPaths []string) (header, bindings string, err error) {
	header, err = FindHeader(searchPaths, config.headerName())
	if err != nil {
		return "", "", err
	}

	opts := DefaultBindingOptions(header, searchPaths, config.cgoPackage())
	config.logger().Info("generating bindings", "header", header, "patterns", opts.AllowList.Len())

	translation, err := translator.Translate(ctx, config, result, opts)
	if err != nil {
		return header, "", err
	}

	if err := os.MkdirAll(config.OutDir, 0o755); err != nil {
		return header, "", fmt.Errorf("creating output directory: %w", err)
	}
	bindings = filepath.Join(config.OutDir, config.bindingsFile())
	if err := os.WriteFile(bindings, translation.Source, 0o644); err != nil {
		return header, "", fmt.Errorf("unable to write bindings: %w", err)
	}
	names := make([]string, 0, len(translation.Support))
	for name := range translation.Support {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(config.OutDir, name), translation.Support[name], 0o644); err != nil {
			return header, "", fmt.Errorf("unable to write %s: %w", name, err)
		}
	}

	if config.UpdateBindings {
		stored := config.pregeneratedPath()
		if err := copyFile(bindings, stored); err != nil {
			return header, bindings, fmt.Errorf("unable to update %s bindings: %w", config.libraryName(), err)
		}
		for _, name := range names {
			dst := filepath.Join(filepath.Dir(stored), name)
			if err := copyFile(filepath.Join(config.OutDir, name), dst); err != nil {
				return header, bindings, fmt.Errorf("unable to update %s: %w", name, err)
			}
		}
		config.logger().Info("updated pregenerated bindings", "path", stored, "support", names)
	}

	return header, bindings, nil
}
