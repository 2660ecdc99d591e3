package capstonesys

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

// newBundledConfig creates a manifest directory holding a minimal bundled
// source tree and returns a config building it for triple.
func newBundledConfig(t *testing.T, triple string) *BuildConfig {
	t.Helper()

	manifest := t.TempDir()
	include := filepath.Join(manifest, "capstone", "include", "capstone")
	if err := os.MkdirAll(include, 0o755); err != nil {
		t.Fatalf("failed to create include directory: %v", err)
	}
	if err := os.WriteFile(filepath.Join(include, "capstone.h"), []byte("int cs_version(int*, int*);\n"), 0o644); err != nil {
		t.Fatalf("failed to write header: %v", err)
	}

	pregenerated := filepath.Join(manifest, "pre_generated")
	if err := os.MkdirAll(pregenerated, 0o755); err != nil {
		t.Fatalf("failed to create pre_generated: %v", err)
	}
	if err := os.WriteFile(filepath.Join(pregenerated, "capstone.go"), []byte("package capstone\n\n// pregenerated\n"), 0o644); err != nil {
		t.Fatalf("failed to write pregenerated bindings: %v", err)
	}

	return &BuildConfig{
		ManifestDir: manifest,
		OutDir:      filepath.Join(manifest, "out"),
		Target:      MustParseTarget(triple),
		Env:         helperEnv(),
		Parallel:    2,
	}
}

func assertArtifactInSearchDir(t *testing.T, acq *Acquisition, target Target) {
	t.Helper()

	if acq.LinkType != Static {
		t.Errorf("expected static link type, got %s", acq.LinkType)
	}
	if !fileExists(acq.Artifact) {
		t.Fatalf("expected artifact %s to exist", acq.Artifact)
	}
	if !slices.Contains(acq.SearchDirs, filepath.Dir(acq.Artifact)) {
		t.Errorf("expected search dirs %v to contain %s", acq.SearchDirs, filepath.Dir(acq.Artifact))
	}
	if !MatchesExtension(acq.Artifact, Static.LibExtension(target)) {
		t.Errorf("artifact %s does not carry .%s", acq.Artifact, Static.LibExtension(target))
	}
}

func TestMakefileAcquirer(t *testing.T) {
	calls := fakeTools(t)
	config := newBundledConfig(t, "x86_64-unknown-linux-gnu")

	acq, err := (&MakefileAcquirer{}).Acquire(context.Background(), config, &BuildResult{})
	if err != nil {
		t.Fatalf("Acquire returned error: %v", err)
	}

	assertArtifactInSearchDir(t, acq, config.Target)
	if acq.Artifact != filepath.Join(config.OutDir, "libcapstone.a") {
		t.Errorf("expected artifact copied into OutDir, got %s", acq.Artifact)
	}
	if got := calls(); len(got) != 1 || got[0] != "make -j2" {
		t.Errorf("expected a single make -j2 call, got %v", got)
	}

	wantInclude := filepath.Join(config.ManifestDir, "capstone", "include")
	if len(acq.IncludeDirs) == 0 || acq.IncludeDirs[0] != wantInclude {
		t.Errorf("expected bundled include dir first, got %v", acq.IncludeDirs)
	}
}

func TestMakefileAcquirerUsesGmakeOnBSD(t *testing.T) {
	calls := fakeTools(t)
	config := newBundledConfig(t, "x86_64-unknown-freebsd")
	config.Parallel = 0

	if _, err := (&MakefileAcquirer{}).Acquire(context.Background(), config, &BuildResult{}); err != nil {
		t.Fatalf("Acquire returned error: %v", err)
	}
	if got := calls(); len(got) != 1 || got[0] != "gmake" {
		t.Errorf("expected gmake, got %v", got)
	}
}

func TestMakefileAcquirerFailure(t *testing.T) {
	fakeTools(t, "make")
	config := newBundledConfig(t, "x86_64-unknown-linux-gnu")

	_, err := (&MakefileAcquirer{}).Acquire(context.Background(), config, &BuildResult{})
	if err == nil {
		t.Fatal("expected error from failing make")
	}
	if !IsKind(err, KindTool) {
		t.Errorf("expected tool error, got %v", err)
	}
	if fileExists(filepath.Join(config.OutDir, "libcapstone.a")) {
		t.Error("no artifact should be copied after a failed build")
	}
}

func TestCmakeAcquirer(t *testing.T) {
	calls := fakeTools(t)
	config := newBundledConfig(t, "x86_64-unknown-linux-gnu")

	acq, err := (&CmakeAcquirer{}).Acquire(context.Background(), config, &BuildResult{})
	if err != nil {
		t.Fatalf("Acquire returned error: %v", err)
	}

	assertArtifactInSearchDir(t, acq, config.Target)
	if acq.SearchDirs[0] != filepath.Join(config.OutDir, "lib") {
		t.Errorf("expected OutDir/lib search dir, got %v", acq.SearchDirs)
	}

	got := calls()
	if len(got) != 3 {
		t.Fatalf("expected configure, build and install, got %v", got)
	}
	if !strings.Contains(got[0], "-DCAPSTONE_BUILD_SHARED=OFF") || !strings.Contains(got[0], "-DCMAKE_INSTALL_PREFIX="+config.OutDir) {
		t.Errorf("unexpected configure command %q", got[0])
	}
	if !strings.Contains(got[1], "--build") || !strings.Contains(got[1], "--parallel 2") {
		t.Errorf("unexpected build command %q", got[1])
	}
	if !strings.Contains(got[2], "--install") {
		t.Errorf("unexpected install command %q", got[2])
	}
}

func TestCmakeConfigureArgs(t *testing.T) {
	testCases := []struct {
		name           string
		triple         string
		targetFeatures []string
		staticRuntime  bool
		generator      string
	}{
		{"linux", "x86_64-unknown-linux-gnu", nil, false, unixMakefiles},
		{"mingw", "x86_64-pc-windows-gnu", []string{"crt-static"}, false, mingwMakefiles},
		{"msvc dynamic crt", "x86_64-pc-windows-msvc", nil, false, ""},
		{"msvc static crt", "x86_64-pc-windows-msvc", []string{"sse2", "crt-static"}, true, ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			config := &BuildConfig{
				OutDir:         "/out",
				Target:         MustParseTarget(tc.triple),
				TargetFeatures: tc.targetFeatures,
				Env:            map[string]string{},
			}
			args := (&CmakeAcquirer{}).configureArgs(config, "/src", "/out/build")

			if got := slices.Contains(args, "-DCAPSTONE_BUILD_STATIC_RUNTIME=ON"); got != tc.staticRuntime {
				t.Errorf("expected static runtime %v, got args %v", tc.staticRuntime, args)
			}

			i := slices.Index(args, "-G")
			switch {
			case tc.generator == "" && i >= 0:
				t.Errorf("expected no generator, got %v", args)
			case tc.generator != "" && (i < 0 || args[i+1] != tc.generator):
				t.Errorf("expected generator %q, got %v", tc.generator, args)
			}
		})
	}
}

func TestCompileAcquirer(t *testing.T) {
	testCases := []struct {
		triple   string
		compiler string
		archiver string
		artifact string
	}{
		{"x86_64-pc-windows-gnu", "cc", "ar", "libcapstone.a"},
		{"x86_64-pc-windows-msvc", "cl", "lib", "capstone.lib"},
	}

	for _, tc := range testCases {
		t.Run(tc.triple, func(t *testing.T) {
			calls := fakeTools(t)
			config := newBundledConfig(t, tc.triple)
			config.TargetFeatures = []string{"crt-static"}

			acquirer := &CompileAcquirer{Archs: ArchIncludes[:2]}
			acq, err := acquirer.Acquire(context.Background(), config, &BuildResult{})
			if err != nil {
				t.Fatalf("Acquire returned error: %v", err)
			}

			assertArtifactInSearchDir(t, acq, config.Target)
			if filepath.Base(acq.Artifact) != tc.artifact {
				t.Errorf("expected artifact %s, got %s", tc.artifact, acq.Artifact)
			}

			units := TranslationUnits(ArchIncludes[:2])
			got := calls()
			if len(got) != len(units)+1 {
				t.Fatalf("expected %d compiler calls and one archive call, got %d", len(units), len(got))
			}
			compiles := 0
			for _, call := range got[:len(units)] {
				if strings.HasPrefix(call, tc.compiler+" ") {
					compiles++
				}
			}
			if compiles != len(units) {
				t.Errorf("expected %d %s calls, got %v", len(units), tc.compiler, got)
			}
			if !strings.HasPrefix(got[len(got)-1], tc.archiver+" ") {
				t.Errorf("expected archive with %s, got %q", tc.archiver, got[len(got)-1])
			}
			if config.Target.IsMSVC() && !strings.Contains(got[0], "/MT") {
				t.Errorf("expected /MT for crt-static, got %q", got[0])
			}
		})
	}
}

func TestCompileAcquirerStopsOnCompilerFailure(t *testing.T) {
	calls := fakeTools(t, "cc")
	config := newBundledConfig(t, "x86_64-pc-windows-gnu")
	config.Parallel = 1

	_, err := (&CompileAcquirer{}).Acquire(context.Background(), config, &BuildResult{})
	if !IsKind(err, KindTool) {
		t.Fatalf("expected tool error, got %v", err)
	}
	for _, call := range calls() {
		if strings.HasPrefix(call, "ar ") {
			t.Errorf("archiver must not run after a failed compile, got %q", call)
		}
	}
}

func TestTranslationUnits(t *testing.T) {
	units := TranslationUnits(ArchIncludes)

	want := len(coreSources)
	for _, arch := range ArchIncludes {
		want += len(arch.Sources)
	}
	if len(units) != want {
		t.Errorf("expected %d units, got %d", want, len(units))
	}
	if !slices.Contains(units, "cs.c") || !slices.Contains(units, "arch/X86/X86Module.c") {
		t.Errorf("unexpected unit list %v", units)
	}

	objects := make(map[string]bool)
	for _, unit := range units {
		objects[objectName(unit, MustParseTarget("x86_64-pc-windows-gnu"))] = true
	}
	if len(objects) != len(units) {
		t.Error("object names must be unique per translation unit")
	}
}

func TestSystemAcquirer(t *testing.T) {
	calls := fakeTools(t)
	config := &BuildConfig{
		ManifestDir: t.TempDir(),
		Target:      MustParseTarget("x86_64-unknown-linux-gnu"),
		Env:         helperEnv(),
	}

	acq, err := (&SystemAcquirer{}).Acquire(context.Background(), config, &BuildResult{})
	if err != nil {
		t.Fatalf("Acquire returned error: %v", err)
	}

	if acq.LinkType != Dynamic {
		t.Errorf("expected dynamic link type, got %s", acq.LinkType)
	}
	if want := []string{"/usr/include/capstone", "/usr/include"}; !slices.Equal(acq.IncludeDirs, want) {
		t.Errorf("expected include dirs %v, got %v", want, acq.IncludeDirs)
	}
	if want := []string{"/usr/lib/capstone"}; !slices.Equal(acq.SearchDirs, want) {
		t.Errorf("expected search dirs %v, got %v", want, acq.SearchDirs)
	}
	if got := calls(); len(got) != 1 || got[0] != "pkg-config --cflags-only-I --libs-only-L capstone" {
		t.Errorf("unexpected pkg-config call %v", got)
	}
}

func TestSystemAcquirerPkgConfigOverride(t *testing.T) {
	calls := fakeTools(t)
	config := &BuildConfig{ManifestDir: t.TempDir(), Env: helperEnv()}
	config.Env["PKG_CONFIG"] = "x86_64-w64-mingw32-pkg-config"

	reqs := (&SystemAcquirer{}).RequiredTools(config)
	if len(reqs) != 1 || reqs[0].Name != "x86_64-w64-mingw32-pkg-config" || len(reqs[0].Alternatives) != 0 {
		t.Fatalf("expected only the configured pkg-config, got %+v", reqs)
	}

	// pkgconf on PATH must not stand in for the configured program.
	execLookPath = func(name string) (string, error) {
		if name == "pkgconf" {
			return "/usr/bin/pkgconf", nil
		}
		return "", errors.New("not found")
	}
	err := (&SystemAcquirer{}).CheckTools(config)
	if !IsKind(err, KindTool) || !strings.Contains(err.Error(), "x86_64-w64-mingw32-pkg-config") {
		t.Errorf("expected tool error naming the configured program, got %v", err)
	}

	_, _ = (&SystemAcquirer{}).Acquire(context.Background(), config, &BuildResult{})
	for _, call := range calls() {
		if strings.HasPrefix(call, "pkgconf ") {
			t.Errorf("expected the configured program to run, got %q", call)
		}
	}
}

func TestSystemAcquirerNotFound(t *testing.T) {
	fakeTools(t, "pkg-config")
	config := &BuildConfig{ManifestDir: t.TempDir(), Env: helperEnv()}

	_, err := (&SystemAcquirer{}).Acquire(context.Background(), config, &BuildResult{})
	if !errors.Is(err, ErrLibraryNotFound) {
		t.Fatalf("expected ErrLibraryNotFound, got %v", err)
	}
	if !IsKind(err, KindDiscovery) {
		t.Errorf("expected discovery error, got %v", err)
	}
}

func TestBundledAcquirerWithoutSources(t *testing.T) {
	fakeTools(t)
	config := &BuildConfig{
		ManifestDir: t.TempDir(),
		OutDir:      t.TempDir(),
		Target:      MustParseTarget("x86_64-unknown-linux-gnu"),
		Env:         helperEnv(),
	}

	_, err := (&MakefileAcquirer{}).Acquire(context.Background(), config, &BuildResult{})
	if !IsKind(err, KindDiscovery) {
		t.Errorf("expected discovery error for missing sources, got %v", err)
	}
}

func TestVerifyArtifactRejectsWrongExtension(t *testing.T) {
	dir := t.TempDir()
	artifact := filepath.Join(dir, "libcapstone.so")
	if err := os.WriteFile(artifact, []byte("elf"), 0o644); err != nil {
		t.Fatalf("failed to write artifact: %v", err)
	}

	config := &BuildConfig{Target: MustParseTarget("x86_64-unknown-linux-gnu")}
	if err := verifyArtifact(config, Static, artifact); !IsKind(err, KindDiscovery) {
		t.Errorf("expected discovery error for .so with static linking, got %v", err)
	}
	if err := verifyArtifact(config, Dynamic, artifact); err != nil {
		t.Errorf("expected .so to satisfy dynamic linking, got %v", err)
	}
	if err := verifyArtifact(config, Static, filepath.Join(dir, "missing.a")); !errors.Is(err, ErrLibraryNotFound) {
		t.Errorf("expected ErrLibraryNotFound, got %v", err)
	}
}

func TestCheckRequiredTools(t *testing.T) {
	origLookPath := execLookPath
	defer func() { execLookPath = origLookPath }()

	execLookPath = func(name string) (string, error) {
		if name == "gcc" {
			return "/usr/bin/gcc", nil
		}
		return "", errors.New("not found")
	}

	err := CheckRequiredTools([]ToolRequirement{
		{Name: "cc", Alternatives: []string{"gcc"}, Purpose: "C compiler"},
		{Name: "ccache", Optional: true},
	})
	if err != nil {
		t.Errorf("expected alternative and optional tools to pass, got %v", err)
	}

	err = CheckRequiredTools([]ToolRequirement{
		{Name: "cmake", Purpose: "CMake build system"},
		{Name: "make"},
	})
	if !IsKind(err, KindTool) {
		t.Fatalf("expected tool error, got %v", err)
	}
	if !strings.Contains(err.Error(), "missing required tools: cmake (CMake build system), make") {
		t.Errorf("unexpected message %q", err.Error())
	}

	if got := resolveTool(ToolRequirement{Name: "cc", Alternatives: []string{"gcc"}}); got != "gcc" {
		t.Errorf("expected resolveTool to pick gcc, got %s", got)
	}
}
