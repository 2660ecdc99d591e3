package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	capstonesys "github.com/contriboss/capstone-sys-go"
)

var skipToolCheck bool

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Acquire libcapstone, prepare bindings and write link flags",
	Long: `Run the full build: select the link mode, locate or build libcapstone,
find capstone.h, generate or copy the bindings and publish the link
directives. Directives are printed to stdout as capstone-sys:<directive>.`,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().BoolVar(&skipToolCheck, "skip-tool-check", false, "do not check PATH for required tools")
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, err := loadedConfig()
	if err != nil {
		return err
	}

	orch := capstonesys.NewOrchestrator(cfg)
	orch.Directives = cmd.OutOrStdout()
	orch.SkipToolCheck = skipToolCheck

	result, err := orch.Run(cmd.Context())
	if err != nil {
		return err
	}

	cfg.Logger.Info("build finished",
		"strategy", result.Strategy,
		"link", result.LinkType,
		"bindings", result.BindingsPath,
		"generated", result.Generated)
	if cfg.Verbose {
		for _, line := range result.Output {
			fmt.Fprintln(cmd.ErrOrStderr(), line)
		}
	}
	return nil
}
