// Package commands implements the sst subcommands.
package commands

import (
	"context"
	"log/slog"

	"github.com/leapstack-labs/sst/internal/cli/output"
	"github.com/leapstack-labs/sst/internal/config"
	"github.com/spf13/cobra"
)

type stateKey struct{}

// State is what the root command prepares before a subcommand runs.
type State struct {
	Cfg    config.Config
	Logger *slog.Logger
	Mode   output.Mode
}

// WithState stores s in ctx.
func WithState(ctx context.Context, s *State) context.Context {
	return context.WithValue(ctx, stateKey{}, s)
}

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext builds the dependencies of cmd from the state prepared by
// the root command. Without one, defaults are loaded from the working
// directory and logs are discarded.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	s, ok := cmd.Context().Value(stateKey{}).(*State)
	if !ok || s == nil {
		cfg, err := config.Load("", cmd.Flags())
		if err != nil {
			return nil, err
		}
		s = &State{Cfg: cfg, Logger: slog.New(slog.DiscardHandler), Mode: output.ModeAuto}
	}

	return &CommandContext{
		Cfg:      s.Cfg,
		Logger:   s.Logger,
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), s.Mode),
	}, nil
}
