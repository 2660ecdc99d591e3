package capstonesys

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"
)

const objectDir = "obj"

// CompileAcquirer compiles the bundled translation units directly with the
// target C toolchain and archives them into a static library.
//
// This path exists for Windows targets without CMake. Every translation unit
// needed by the enabled architecture backends is listed explicitly (see
// TranslationUnits); nothing is discovered from the source tree.
//
// # Toolchains
//
//   - windows-msvc: cl.exe compiles, lib.exe archives (capstone.lib)
//   - windows-gnu:  cc/gcc compiles, ar archives (libcapstone.a)
//
// CC and AR in the environment override the compiler and archiver.
type CompileAcquirer struct {
	// Archs restricts the compiled backends; nil means ArchIncludes.
	Archs []ArchDescriptor
}

// Name returns the acquirer name
func (a *CompileAcquirer) Name() string {
	return "Compile"
}

// RequiredTools returns the compiler and archiver for the target
func (a *CompileAcquirer) RequiredTools(config *BuildConfig) []ToolRequirement {
	return []ToolRequirement{a.compiler(config), a.archiver(config)}
}

// CheckTools verifies that the compiler and archiver are available
func (a *CompileAcquirer) CheckTools(config *BuildConfig) error {
	return CheckRequiredTools(a.RequiredTools(config))
}

// Acquire compiles every translation unit and archives the objects
func (a *CompileAcquirer) Acquire(ctx context.Context, config *BuildConfig, result *BuildResult) (*Acquisition, error) {
	return runCommonBuild(ctx, config, result, CommonBuildSteps{
		ConfigureFunc: a.prepareObjectDir,
		BuildFunc:     a.runCompile,
		FindFunc:      a.findLibrary,
	})
}

func (a *CompileAcquirer) archs() []ArchDescriptor {
	if a.Archs != nil {
		return a.Archs
	}
	return ArchIncludes
}

// prepareObjectDir creates a clean object directory under OutDir
func (a *CompileAcquirer) prepareObjectDir(_ context.Context, config *BuildConfig, _ string, result *BuildResult) error {
	dir := filepath.Join(config.OutDir, objectDir)
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("cleaning object directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating object directory: %w", err)
	}
	if config.Verbose {
		result.Output = append(result.Output, fmt.Sprintf("Object directory: %s", dir))
	}
	return nil
}

// runCompile compiles each translation unit, then archives the objects.
//
// Units are compiled with at most config.Parallel concurrent compiler
// processes (one when unset). Output is merged into result in unit order.
func (a *CompileAcquirer) runCompile(ctx context.Context, config *BuildConfig, sourceDir string, result *BuildResult) error {
	units := TranslationUnits(a.archs())
	objects := make([]string, len(units))
	outputs := make([][]string, len(units))
	compiler := resolveTool(a.compiler(config))

	limit := config.Parallel
	if limit < 1 {
		limit = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, unit := range units {
		i, unit := i, unit
		src := filepath.Join(sourceDir, filepath.FromSlash(unit))
		obj := filepath.Join(config.OutDir, objectDir, objectName(unit, config.Target))
		objects[i] = obj

		g.Go(func() error {
			local := &BuildResult{}
			err := runTool(gctx, config, local, toolCommand{
				step: "Compile " + unit,
				dir:  sourceDir,
				name: compiler,
				args: a.compileArgs(config, sourceDir, src, obj),
			})
			outputs[i] = local.Output
			return err
		})
	}

	err := g.Wait()
	for _, out := range outputs {
		result.Output = append(result.Output, out...)
	}
	if err != nil {
		return err
	}

	return a.runArchive(ctx, config, sourceDir, objects, result)
}

// compileArgs returns the compiler command line for one translation unit
func (a *CompileAcquirer) compileArgs(config *BuildConfig, sourceDir, src, obj string) []string {
	include := filepath.Join(sourceDir, "include")
	defines := archDefines(a.archs())

	if config.Target.IsMSVC() {
		args := []string{"/nologo", "/c", "/O2", "/W0", "/I" + include}
		for _, def := range defines {
			args = append(args, "/D"+def)
		}
		if config.staticCRT() {
			args = append(args, "/MT")
		} else {
			args = append(args, "/MD")
		}
		return append(args, "/Fo"+obj, src)
	}

	args := []string{"-c", "-O2", "-w", "-I" + include}
	for _, def := range defines {
		args = append(args, "-D"+def)
	}
	return append(args, "-o", obj, src)
}

// runArchive packs the compiled objects into the static library
func (a *CompileAcquirer) runArchive(ctx context.Context, config *BuildConfig, sourceDir string, objects []string, result *BuildResult) error {
	lib := filepath.Join(config.OutDir, Static.LibraryFileName(config.Target, config.libraryName()))
	archiver := resolveTool(a.archiver(config))

	var args []string
	if config.Target.IsMSVC() {
		args = append([]string{"/nologo", "/OUT:" + lib}, objects...)
	} else {
		args = append([]string{"rcs", lib}, objects...)
	}

	return runTool(ctx, config, result, toolCommand{
		step: "Archive",
		dir:  sourceDir,
		name: archiver,
		args: args,
	})
}

// findLibrary returns the archive written by runArchive
func (a *CompileAcquirer) findLibrary(config *BuildConfig, _ string) (string, error) {
	return filepath.Join(config.OutDir, Static.LibraryFileName(config.Target, config.libraryName())), nil
}

func (a *CompileAcquirer) compiler(config *BuildConfig) ToolRequirement {
	if cc := envOr(config, "CC"); cc != "" {
		return ToolRequirement{Name: cc, Purpose: "C compiler"}
	}
	if config.Target.IsMSVC() {
		return ToolRequirement{Name: "cl", Purpose: "MSVC C compiler"}
	}
	return ToolRequirement{
		Name:         "cc",
		Alternatives: []string{"gcc", "x86_64-w64-mingw32-gcc", "clang"},
		Purpose:      "C compiler",
	}
}

func (a *CompileAcquirer) archiver(config *BuildConfig) ToolRequirement {
	if ar := envOr(config, "AR"); ar != "" {
		return ToolRequirement{Name: ar, Purpose: "static library archiver"}
	}
	if config.Target.IsMSVC() {
		return ToolRequirement{Name: "lib", Purpose: "MSVC library manager"}
	}
	return ToolRequirement{
		Name:         "ar",
		Alternatives: []string{"x86_64-w64-mingw32-ar", "llvm-ar"},
		Purpose:      "static library archiver",
	}
}

// objectName flattens a unit path into a unique object file name
func objectName(unit string, target Target) string {
	base := strings.TrimSuffix(strings.ReplaceAll(unit, "/", "_"), ".c")
	if target.IsMSVC() {
		return base + ".obj"
	}
	return base + ".o"
}

// envOr returns key from config.Env, falling back to the process environment
func envOr(config *BuildConfig, key string) string {
	if v := config.Env[key]; v != "" {
		return v
	}
	return os.Getenv(key)
}
