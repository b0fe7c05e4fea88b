package cli

import (
	"encoding/json"

	"github.com/b97tsk/commander/internal/scenario"
	"github.com/spf13/cobra"
)

func (a *app) newRunCmd() *cobra.Command {
	var ticks uint64
	var slice float64
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Replay a scenario on a virtual clock",
		Long: `Loads a scenario file, ticks an executor on a virtual clock until every
task has ended or the tick budget is spent, then prints the event log and
the final state of every task.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := scenario.Load(args[0])
			if err != nil {
				return err
			}

			rep, err := scenario.Run(cmd.Context(), sc, scenario.Options{
				Logger: a.logger,
				Ticks:  ticks,
				Slice:  slice,
			})
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rep)
			}
			return rep.Write(cmd.OutOrStdout())
		},
	}

	cmd.Flags().Uint64Var(&ticks, "ticks", 0, "Override the scenario's tick budget")
	cmd.Flags().Float64Var(&slice, "slice", 0, "Override the scenario's time slice per tick")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")

	return cmd
}
