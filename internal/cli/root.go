// Package cli implements the commander command line.
package cli

import (
	"log/slog"

	"github.com/b97tsk/commander/internal/config"
	"github.com/b97tsk/commander/internal/logging"
	"github.com/spf13/cobra"
)

// app is the state shared by the subcommands.
type app struct {
	cfg    config.Config
	logger *slog.Logger
}

// NewRootCmd creates the root cobra command for the commander CLI.
func NewRootCmd() *cobra.Command {
	a := &app{cfg: config.DefaultConfig(), logger: logging.Discard()}

	root := &cobra.Command{
		Use:   "commander",
		Short: "Run tick-driven task scenarios",
		Long: `commander drives a cooperative, tick-driven task executor.

"run" replays a scenario file on a virtual clock and prints what happened.
"serve" ticks an executor on the wall clock and serves its live tasks over HTTP.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			a.logger = logging.NewLoggerWithWriter(logging.ParseLevel(a.cfg.LogLevel), a.cfg.LogFormat, cmd.ErrOrStderr())
			return nil
		},
		SilenceUsage: true,
	}

	a.cfg.BindFlags(root.PersistentFlags())

	root.AddCommand(
		a.newRunCmd(),
		a.newServeCmd(),
	)

	return root
}
