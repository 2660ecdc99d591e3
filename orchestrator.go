package capstonesys

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
)

// Orchestrator runs one build:
//
//	start → select link mode → acquire library → locate headers →
//	generate-or-copy bindings → publish link directives → end
//
// Every step either succeeds or stops the build; there are no retries.
type Orchestrator struct {
	Config     *BuildConfig
	Factory    *AcquirerFactory
	Translator Translator

	// Directives receives the capstone-sys:<directive> lines.
	Directives io.Writer

	// SkipToolCheck disables the PATH lookup of required tools.
	SkipToolCheck bool
}

// NewOrchestrator returns an orchestrator with the standard acquirers, the
// command translator and directives printed to stdout.
func NewOrchestrator(config *BuildConfig) *Orchestrator {
	return &Orchestrator{
		Config:     config,
		Factory:    NewAcquirerFactory(),
		Translator: &CommandTranslator{},
		Directives: os.Stdout,
	}
}

// Plan is the resolved build without side effects.
type Plan struct {
	Target         Target
	Features       Features
	Strategy       Strategy
	LinkType       LinkType
	Acquirer       string
	OutDir         string
	SourceDir      string
	Pregenerated   string
	Bindings       string // "generate" or "pregenerated"
	UpdateBindings bool
}

// Plan validates the configuration and resolves strategy and link mode.
// Nothing is executed and no file is touched.
func (o *Orchestrator) Plan() (*Plan, error) {
	config := o.Config
	if err := config.Validate(); err != nil {
		return nil, err
	}

	strategy, err := SelectStrategy(config.Features, config.Target)
	if err != nil {
		return nil, err
	}
	linkType, err := LinkTypeFor(strategy)
	if err != nil {
		return nil, err
	}
	acquirer, err := o.Factory.AcquirerFor(strategy)
	if err != nil {
		return nil, err
	}

	plan := &Plan{
		Target:         config.Target,
		Features:       config.Features,
		Strategy:       strategy,
		LinkType:       linkType,
		Acquirer:       acquirer.Name(),
		OutDir:         config.OutDir,
		Pregenerated:   config.pregeneratedPath(),
		Bindings:       "pregenerated",
		UpdateBindings: config.UpdateBindings,
	}
	if strategy.Bundled() {
		plan.SourceDir = config.sourceDir()
	}
	if config.Features.Generate {
		plan.Bindings = "generate"
	}
	return plan, nil
}

// Run executes the build and returns its result. The returned error is
// also stored in result.Error.
func (o *Orchestrator) Run(ctx context.Context) (*BuildResult, error) {
	result := &BuildResult{}
	if err := o.run(ctx, result); err != nil {
		result.Error = err
		return result, err
	}
	result.Success = true
	return result, nil
}

func (o *Orchestrator) run(ctx context.Context, result *BuildResult) error {
	config := o.Config
	log := config.logger()

	plan, err := o.Plan()
	if err != nil {
		return err
	}
	result.Strategy = plan.Strategy
	result.LinkType = plan.LinkType
	log.Info("selected link mode", "target", plan.Target, "strategy", plan.Strategy, "link", plan.LinkType)

	acquirer, err := o.Factory.AcquirerFor(plan.Strategy)
	if err != nil {
		return err
	}
	if err := o.checkTools(acquirer); err != nil {
		return err
	}

	if err := os.MkdirAll(config.OutDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	acq, err := acquirer.Acquire(ctx, config, result)
	if err != nil {
		return err
	}
	if err := checkAcquisition(config, plan, acq); err != nil {
		return err
	}
	log.Info("acquired library", "acquirer", acquirer.Name(), "artifact", acq.Artifact, "search", acq.SearchDirs)

	result.HeaderSearchPaths = uniqueStrings(acq.IncludeDirs)

	if config.Features.Generate {
		header, bindings, err := GenerateBindings(ctx, config, result, o.Translator, result.HeaderSearchPaths)
		result.HeaderPath = header
		if err != nil {
			return err
		}
		result.BindingsPath = bindings
		result.Generated = true
	} else {
		bindings, err := CopyPregenerated(config)
		if err != nil {
			return err
		}
		result.BindingsPath = bindings
		log.Info("using pregenerated bindings", "path", bindings)
	}

	publisher := &Publisher{Out: o.Directives}
	directives, err := publisher.Publish(config, acq, result.HeaderSearchPaths)
	if err != nil {
		return err
	}
	result.Directives = directives
	return nil
}

func (o *Orchestrator) checkTools(acquirer Acquirer) error {
	if o.SkipToolCheck {
		return nil
	}
	if checker, ok := acquirer.(ToolChecker); ok {
		if err := checker.CheckTools(o.Config); err != nil {
			return err
		}
	}
	if o.Config.Features.Generate {
		if checker, ok := o.Translator.(ToolChecker); ok {
			if err := checker.CheckTools(o.Config); err != nil {
				return err
			}
		}
	}
	return nil
}

// checkAcquisition verifies the acquirer honored the selected link mode and,
// for bundled builds, that a search directory holds the artifact.
func checkAcquisition(config *BuildConfig, plan *Plan, acq *Acquisition) error {
	if acq.LinkType != plan.LinkType {
		return configError("acquire", fmt.Errorf("%s strategy produced %s library, expected %s",
			plan.Strategy, acq.LinkType, plan.LinkType))
	}
	if !plan.Strategy.Bundled() {
		return nil
	}
	if err := verifyArtifact(config, acq.LinkType, acq.Artifact); err != nil {
		return err
	}
	if !slices.Contains(acq.SearchDirs, filepath.Dir(acq.Artifact)) {
		return discoveryError("acquire",
			fmt.Errorf("no link search directory contains %s", acq.Artifact))
	}
	return nil
}
