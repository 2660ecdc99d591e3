package capstonesys

import (
	"errors"
	"fmt"
	"sort"
)

// Strategy identifies how the native library is acquired.
type Strategy int

const (
	// StrategySystem uses a system-installed library found via pkg-config.
	StrategySystem Strategy = iota + 1
	// StrategyCMake builds the bundled sources with CMake.
	StrategyCMake
	// StrategyCompile compiles the bundled translation units directly.
	StrategyCompile
	// StrategyMake builds the bundled sources with make/gmake.
	StrategyMake
)

func (s Strategy) String() string {
	switch s {
	case StrategySystem:
		return "system"
	case StrategyCMake:
		return "cmake"
	case StrategyCompile:
		return "compile"
	case StrategyMake:
		return "make"
	default:
		return "unknown"
	}
}

// Bundled reports whether the strategy builds the bundled sources.
func (s Strategy) Bundled() bool {
	return s == StrategyCMake || s == StrategyCompile || s == StrategyMake
}

// strategyRule is one row of the strategy dispatch table.
type strategyRule struct {
	match    func(f Features, t Target) bool
	strategy Strategy
	err      error
}

// strategyRules is evaluated top to bottom; the first matching row wins.
// Contradictory feature combinations are rejected before any strategy is
// chosen so that no precedence between them is implied.
var strategyRules = []strategyRule{
	{
		match: func(f Features, _ Target) bool { return f.System && f.CMake },
		err:   errors.New("cmake feature is only valid when building bundled capstone"),
	},
	{
		match: func(f Features, _ Target) bool { return f.System && f.Compile },
		err:   errors.New("compile feature is only valid when building bundled capstone"),
	},
	{
		match: func(f Features, _ Target) bool { return f.CMake && f.Compile },
		err:   errors.New("cmake and compile features are mutually exclusive"),
	},
	{
		match: func(f Features, t Target) bool { return f.Compile && !t.IsWindows() },
		err:   fmt.Errorf("compile feature: %w", ErrUnsupportedPlatform),
	},
	{
		match:    func(f Features, _ Target) bool { return f.System },
		strategy: StrategySystem,
	},
	{
		match:    func(f Features, _ Target) bool { return f.CMake },
		strategy: StrategyCMake,
	},
	{
		match:    func(f Features, _ Target) bool { return f.Compile },
		strategy: StrategyCompile,
	},
	{
		match:    func(_ Features, t Target) bool { return t.IsWindows() },
		strategy: StrategyCMake,
	},
	{
		match:    func(Features, Target) bool { return true },
		strategy: StrategyMake,
	},
}

// linkTypes maps each strategy to the link mode it implies: a system
// library is always linked dynamically, a bundled build always statically.
var linkTypes = map[Strategy]LinkType{
	StrategySystem:  Dynamic,
	StrategyCMake:   Static,
	StrategyCompile: Static,
	StrategyMake:    Static,
}

// SelectStrategy returns the acquisition strategy for the feature flags
// and target.
func SelectStrategy(features Features, target Target) (Strategy, error) {
	for _, rule := range strategyRules {
		if !rule.match(features, target) {
			continue
		}
		if rule.err != nil {
			return 0, configError("select strategy", rule.err)
		}
		return rule.strategy, nil
	}
	return 0, configError("select strategy", ErrNoLinkType)
}

// SelectLinkMode returns the link mode implied by the feature flags and target.
//
// It fails with a configuration error when no link mode can be determined;
// this is never recoverable.
func SelectLinkMode(features Features, target Target) (LinkType, error) {
	strategy, err := SelectStrategy(features, target)
	if err != nil {
		return 0, err
	}
	return LinkTypeFor(strategy)
}

// LinkTypeFor returns the link mode a strategy produces.
func LinkTypeFor(strategy Strategy) (LinkType, error) {
	lt, ok := linkTypes[strategy]
	if !ok {
		return 0, configError("select link mode", ErrNoLinkType)
	}
	return lt, nil
}

// AcquirerFactory maps strategies to their Acquirer implementations.
//
// # Usage
//
//	factory := NewAcquirerFactory()
//	acquirer, err := factory.AcquirerFor(StrategyMake)
//
// Custom acquirers replace the defaults with Register:
//
//	factory.Register(StrategySystem, &MyAcquirer{})
//
// # Thread Safety
//
// AcquirerFactory is NOT thread-safe for registration.
// Register all acquirers before use.
type AcquirerFactory struct {
	acquirers map[Strategy]Acquirer
}

// NewAcquirerFactory creates a factory with all standard acquirers registered.
func NewAcquirerFactory() *AcquirerFactory {
	factory := &AcquirerFactory{}

	factory.Register(StrategySystem, &SystemAcquirer{})
	factory.Register(StrategyCMake, &CmakeAcquirer{})
	factory.Register(StrategyCompile, &CompileAcquirer{})
	factory.Register(StrategyMake, &MakefileAcquirer{})

	return factory
}

// Register sets the acquirer used for a strategy, replacing any previous one.
func (f *AcquirerFactory) Register(strategy Strategy, acquirer Acquirer) {
	if f.acquirers == nil {
		f.acquirers = make(map[Strategy]Acquirer)
	}
	f.acquirers[strategy] = acquirer
}

// AcquirerFor returns the acquirer registered for the strategy.
func (f *AcquirerFactory) AcquirerFor(strategy Strategy) (Acquirer, error) {
	acquirer, ok := f.acquirers[strategy]
	if !ok {
		return nil, configError("select acquirer", fmt.Errorf("no acquirer registered for strategy %s", strategy))
	}
	return acquirer, nil
}

// ListStrategies returns the registered strategies in ascending order.
func (f *AcquirerFactory) ListStrategies() []Strategy {
	strategies := make([]Strategy, 0, len(f.acquirers))
	for s := range f.acquirers {
		strategies = append(strategies, s)
	}
	sort.Slice(strategies, func(i, j int) bool { return strategies[i] < strategies[j] })
	return strategies
}
