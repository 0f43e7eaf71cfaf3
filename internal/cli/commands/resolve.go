package commands

import (
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sst/internal/project"
)

// NewResolveCommand creates the resolve command.
func NewResolveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <file>",
		Short: "Print a semantic model file with templates resolved",
		Long: `Resolve every template expression in one semantic model file and print
the parsed records as JSON.

Table, column and metric references are resolved against the whole project,
so metrics defined in other files can be composed.`,
		Example: `  sst resolve snowflake_semantic_models/metrics/revenue.yml`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}

			model, err := project.New(cmdCtx.Cfg, cmdCtx.Logger).ResolveFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return cmdCtx.Renderer.JSON(model)
		},
	}
}
