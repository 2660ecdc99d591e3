package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	capstonesys "github.com/contriboss/capstone-sys-go"
)

var (
	includeDirs    []string
	updateBindings bool
)

var bindingsCmd = &cobra.Command{
	Use:   "bindings",
	Short: "Generate the Go bindings from capstone.h",
	Long: `Run only the binding generator. The header is looked up in the --include
directories, or in the bundled source tree when none are given. With
--update the checked-in pre_generated bindings are overwritten.`,
	RunE: runBindings,
}

func init() {
	bindingsCmd.Flags().StringSliceVarP(&includeDirs, "include", "I", nil, "header search directories, in order")
	bindingsCmd.Flags().BoolVar(&updateBindings, "update", false, "overwrite the pregenerated bindings")
}

func runBindings(cmd *cobra.Command, args []string) error {
	cfg, err := loadedConfig()
	if err != nil {
		return err
	}
	cfg.Features.Generate = true
	if updateBindings {
		cfg.UpdateBindings = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	dirs := includeDirs
	if len(dirs) == 0 {
		if dirs, err = capstonesys.BundledIncludeDirs(cfg); err != nil {
			return err
		}
	}

	result := &capstonesys.BuildResult{}
	_, bindings, err := capstonesys.GenerateBindings(cmd.Context(), cfg, result, &capstonesys.CommandTranslator{}, dirs)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), bindings)
	return nil
}
