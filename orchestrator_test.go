package capstonesys

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestOrchestrator(config *BuildConfig, translator Translator) (*Orchestrator, *bytes.Buffer) {
	var directives bytes.Buffer
	orch := NewOrchestrator(config)
	orch.Translator = translator
	orch.Directives = &directives
	return orch, &directives
}

func TestOrchestratorBundledPregenerated(t *testing.T) {
	fakeTools(t)
	config := newBundledConfig(t, "x86_64-unknown-linux-gnu")
	orch, directives := newTestOrchestrator(config, &stubTranslator{})

	result, err := orch.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if !result.Success || result.Error != nil {
		t.Errorf("expected success, got %+v", result)
	}
	if result.Strategy != StrategyMake || result.LinkType != Static {
		t.Errorf("expected make/static, got %s/%s", result.Strategy, result.LinkType)
	}
	if result.Generated {
		t.Error("bindings must not be generated without the generate feature")
	}

	want, _ := os.ReadFile(config.pregeneratedPath())
	got, err := os.ReadFile(result.BindingsPath)
	if err != nil {
		t.Fatalf("failed to read bindings: %v", err)
	}
	if !bytes.Equal(want, got) {
		t.Error("expected output bindings to be byte-identical to the pregenerated file")
	}

	expected := "capstone-sys:link-search=native=" + config.OutDir + "\ncapstone-sys:link-lib=static=capstone\n"
	if directives.String() != expected {
		t.Errorf("expected directives:\n%s\ngot:\n%s", expected, directives.String())
	}

	// The search directory holds the artifact with the static extension.
	search := result.Directives[0].Value
	if !fileExists(filepath.Join(search, Static.LibraryFileName(config.Target, "capstone"))) {
		t.Errorf("expected artifact in %s", search)
	}
	if !fileExists(filepath.Join(config.OutDir, DefaultCgoFile)) {
		t.Error("expected cgo flags file to be written")
	}
}

func TestOrchestratorGenerateAndUpdate(t *testing.T) {
	fakeTools(t)
	config := newBundledConfig(t, "x86_64-unknown-linux-gnu")
	config.Features = Features{Generate: true, CMake: true}
	config.UpdateBindings = true
	stub := &stubTranslator{src: []byte("package capstone\n\n// generated\n")}
	orch, _ := newTestOrchestrator(config, stub)

	result, err := orch.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if result.Strategy != StrategyCMake || !result.Generated {
		t.Errorf("expected generated cmake build, got %+v", result)
	}
	if stub.runs != 1 {
		t.Errorf("expected translator to run once, got %d", stub.runs)
	}
	if !strings.HasSuffix(result.HeaderPath, filepath.Join("include", "capstone", "capstone.h")) {
		t.Errorf("unexpected header %s", result.HeaderPath)
	}

	fresh, _ := os.ReadFile(result.BindingsPath)
	stored, _ := os.ReadFile(config.pregeneratedPath())
	if !bytes.Equal(fresh, stub.src) || !bytes.Equal(stored, fresh) {
		t.Errorf("expected pregenerated bindings to equal fresh output, got %q", stored)
	}
}

func TestOrchestratorSystemLibrary(t *testing.T) {
	fakeTools(t)
	config := newBundledConfig(t, "aarch64-apple-darwin")
	config.Features = Features{System: true}
	orch, directives := newTestOrchestrator(config, &stubTranslator{})

	result, err := orch.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if result.LinkType != Dynamic {
		t.Errorf("expected dynamic link type, got %s", result.LinkType)
	}
	if result.HeaderSearchPaths[0] != "/usr/include/capstone" {
		t.Errorf("expected pkg-config include dirs, got %v", result.HeaderSearchPaths)
	}
	if !strings.Contains(directives.String(), "capstone-sys:link-lib=dylib=capstone\n") {
		t.Errorf("expected dylib directive, got %q", directives.String())
	}
}

func TestOrchestratorUpdateWithoutGenerateTouchesNothing(t *testing.T) {
	calls := fakeTools(t)
	config := newBundledConfig(t, "x86_64-unknown-linux-gnu")
	config.UpdateBindings = true
	before, _ := os.ReadFile(config.pregeneratedPath())
	orch, directives := newTestOrchestrator(config, &stubTranslator{})

	result, err := orch.Run(context.Background())
	if !errors.Is(err, ErrUpdateWithoutGenerate) {
		t.Fatalf("expected ErrUpdateWithoutGenerate, got %v", err)
	}
	if !IsKind(err, KindConfig) {
		t.Errorf("expected configuration error, got %v", err)
	}
	if result.Success || result.Error != err {
		t.Errorf("expected failed result carrying the error, got %+v", result)
	}

	if got := calls(); len(got) != 0 {
		t.Errorf("expected no tools to run, got %v", got)
	}
	if _, err := os.Stat(config.OutDir); !os.IsNotExist(err) {
		t.Errorf("expected output directory to be untouched, got %v", err)
	}
	after, _ := os.ReadFile(config.pregeneratedPath())
	if !bytes.Equal(before, after) {
		t.Error("pregenerated bindings were modified")
	}
	if directives.Len() != 0 {
		t.Errorf("expected no directives, got %q", directives.String())
	}
}

func TestOrchestratorStopsAtFirstFailure(t *testing.T) {
	fakeTools(t, "make")
	config := newBundledConfig(t, "x86_64-unknown-linux-gnu")
	stub := &stubTranslator{}
	orch, directives := newTestOrchestrator(config, stub)

	result, err := orch.Run(context.Background())
	if !IsKind(err, KindTool) {
		t.Fatalf("expected tool error, got %v", err)
	}
	if result.Success {
		t.Error("expected failed result")
	}
	if fileExists(filepath.Join(config.OutDir, DefaultBindingsFile)) {
		t.Error("bindings must not be written after a failed acquisition")
	}
	if directives.Len() != 0 {
		t.Errorf("expected no directives, got %q", directives.String())
	}
}

func TestOrchestratorMissingTools(t *testing.T) {
	fakeTools(t)
	execLookPath = func(name string) (string, error) {
		return "", errors.New("not found")
	}
	config := newBundledConfig(t, "x86_64-unknown-linux-gnu")
	orch, _ := newTestOrchestrator(config, &stubTranslator{})

	_, err := orch.Run(context.Background())
	if !IsKind(err, KindTool) {
		t.Fatalf("expected tool error, got %v", err)
	}
	for _, want := range []string{"missing required tools", "make (GNU make)", "cc (C compiler)"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in %v", want, err)
		}
	}

	orch.SkipToolCheck = true
	if _, err := orch.Run(context.Background()); err != nil {
		t.Errorf("expected build to pass with tool check skipped, got %v", err)
	}
}

type wrongLinkAcquirer struct{}

func (wrongLinkAcquirer) Name() string { return "Wrong" }

func (wrongLinkAcquirer) Acquire(context.Context, *BuildConfig, *BuildResult) (*Acquisition, error) {
	return &Acquisition{LinkType: Dynamic, SearchDirs: []string{"/usr/lib"}}, nil
}

func TestOrchestratorRejectsLinkTypeMismatch(t *testing.T) {
	config := newBundledConfig(t, "x86_64-unknown-linux-gnu")
	orch, _ := newTestOrchestrator(config, &stubTranslator{})
	orch.Factory.Register(StrategyMake, wrongLinkAcquirer{})

	_, err := orch.Run(context.Background())
	if !IsKind(err, KindConfig) {
		t.Errorf("expected configuration error for link type mismatch, got %v", err)
	}
}

func TestPlan(t *testing.T) {
	config := newBundledConfig(t, "x86_64-pc-windows-msvc")
	config.Features = Features{Generate: true}

	plan, err := NewOrchestrator(config).Plan()
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}

	if plan.Strategy != StrategyCMake || plan.LinkType != Static || plan.Acquirer != "CMake" {
		t.Errorf("unexpected plan %+v", plan)
	}
	if plan.Bindings != "generate" {
		t.Errorf("expected generate bindings, got %s", plan.Bindings)
	}
	if plan.SourceDir != filepath.Join(config.ManifestDir, "capstone") {
		t.Errorf("unexpected source dir %s", plan.SourceDir)
	}
	if _, err := os.Stat(config.OutDir); !os.IsNotExist(err) {
		t.Error("Plan must not create the output directory")
	}
}
