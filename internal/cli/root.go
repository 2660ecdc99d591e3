package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	capstonesys "github.com/contriboss/capstone-sys-go"
	"github.com/contriboss/capstone-sys-go/internal/logutil"
)

var (
	cfgFile  string
	target   string
	outDir   string
	features []string
	jobs     int
	verbose  bool
	debug    bool

	config  *capstonesys.BuildConfig
	loadErr error
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "capstone-sys",
	Short: "Build and link the Capstone disassembly engine for Go",
	Long: `capstone-sys - Capstone build orchestrator

Locates or builds libcapstone, finds capstone.h, generates or copies the Go
bindings and writes the cgo link flags for the selected target.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute executes the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is capstone-sys.yaml or capstone-sys.toml in the manifest dir)")
	rootCmd.PersistentFlags().StringVar(&target, "target", "", "target triple (overrides CAPSTONE_TARGET)")
	rootCmd.PersistentFlags().StringVar(&outDir, "out-dir", "", "build output directory (overrides CAPSTONE_OUT_DIR)")
	rootCmd.PersistentFlags().StringSliceVar(&features, "features", nil, "build features: generate, system, cmake, compile")
	rootCmd.PersistentFlags().IntVarP(&jobs, "jobs", "j", 0, "number of parallel build jobs")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "record commands in the build output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.SetUsageTemplate(rootCmd.UsageTemplate() + envDocs())

	// Add commands
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(bindingsCmd)
	rootCmd.AddCommand(versionCmd)
}

// envDocs renders the environment variable section of the usage text.
func envDocs() string {
	var b strings.Builder
	b.WriteString("\nEnvironment Variables:\n\n")
	for _, v := range capstonesys.EnvVars() {
		fmt.Fprintf(&b, "    %-26s %s\n", v.Name, v.Description)
	}
	return b.String()
}

func initConfig() {
	config, loadErr = capstonesys.LoadConfig(cfgFile, os.Getenv)
	if loadErr != nil {
		return
	}
	loadErr = applyFlags(config)
	config.Logger = logutil.NewLogger(os.Stderr, logutil.Level(config.Debug))
	slog.SetDefault(config.Logger)
}

// applyFlags overrides the loaded config with command line flags.
func applyFlags(c *capstonesys.BuildConfig) error {
	if target != "" {
		t, err := capstonesys.ParseTarget(target)
		if err != nil {
			return err
		}
		// Keep a defaulted output directory in step with the new target.
		if c.OutDir == capstonesys.DefaultOutDir(c.ManifestDir, c.Target) {
			c.OutDir = capstonesys.DefaultOutDir(c.ManifestDir, t)
		}
		c.Target = t
	}
	if outDir != "" {
		c.OutDir = outDir
	}
	for _, name := range features {
		if err := c.Features.Enable(name); err != nil {
			return err
		}
	}
	if jobs > 0 {
		c.Parallel = jobs
	}
	if verbose {
		c.Verbose = true
	}
	if debug {
		c.Debug = true
	}
	return nil
}

// loadedConfig returns the config assembled by initConfig.
func loadedConfig() (*capstonesys.BuildConfig, error) {
	if loadErr != nil {
		return nil, loadErr
	}
	return config, nil
}
