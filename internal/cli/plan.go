package cli

import (
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	capstonesys "github.com/contriboss/capstone-sys-go"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the resolved strategy, link mode and paths",
	Long:  `Resolve the build configuration without running any tool or touching any file.`,
	RunE:  runPlan,
}

func runPlan(cmd *cobra.Command, args []string) error {
	cfg, err := loadedConfig()
	if err != nil {
		return err
	}

	plan, err := capstonesys.NewOrchestrator(cfg).Plan()
	if err != nil {
		return err
	}

	features := plan.Features.String()
	if features == "" {
		features = "-"
	}
	data := [][]string{
		{"target", plan.Target.String()},
		{"features", features},
		{"strategy", plan.Strategy.String()},
		{"acquirer", plan.Acquirer},
		{"link", plan.LinkType.String()},
		{"out dir", plan.OutDir},
		{"bindings", plan.Bindings},
		{"pregenerated", plan.Pregenerated},
	}
	if plan.SourceDir != "" {
		data = append(data, []string{"source dir", plan.SourceDir})
	}
	if plan.UpdateBindings {
		data = append(data, []string{"update bindings", "yes"})
	}
	if len(cfg.TargetFeatures) > 0 {
		data = append(data, []string{"target features", strings.Join(cfg.TargetFeatures, ",")})
	}

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader([]string{"SETTING", "VALUE"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(data)
	table.Render()

	return nil
}
