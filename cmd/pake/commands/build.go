package commands

import (
	"os"

	"github.com/spf13/cobra"
	"go.trai.ch/pake/internal/adapters/telemetry/progrock"
	"go.trai.ch/pake/internal/app"
	"go.trai.ch/zerr"
)

func (c *CLI) newBuildCmd() *cobra.Command {
	var opts app.BuildOptions
	var trace string

	cmd := &cobra.Command{
		Use:   "build [targets...]",
		Short: "Build targets and everything they depend on",
		Long:  "Build the named targets, or \"" + app.DefaultTarget + "\" when none is given.",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			load, err := c.loadOptions()
			if err != nil {
				return err
			}
			opts.LoadOptions = load

			if trace != "" {
				f, err := os.Create(trace) //nolint:gosec // path is provided by user
				if err != nil {
					return zerr.With(zerr.Wrap(err, "failed to create trace file"), "path", trace)
				}
				recorder := progrock.NewRecorder(progrock.NewTraceWriter(f))
				defer func() {
					if err := recorder.Close(); err != nil {
						c.logger.Error(zerr.Wrap(err, "failed to close trace"))
					}
				}()
				opts.Telemetry = recorder
			}

			_, err = c.app.Build(cmd.Context(), args, opts)
			return err
		},
	}

	cmd.Flags().BoolVarP(&opts.DryRun, "dry-run", "n", false, "Report what would be built without running anything")
	cmd.Flags().IntVarP(&opts.Jobs, "jobs", "j", 0, "Number of actions to run in parallel (default: number of CPUs)")
	cmd.Flags().BoolVarP(&opts.KeepGoing, "keep-going", "k", false, "Keep building targets that do not depend on a failure")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "Default timeout for each command (0 means none)")
	cmd.Flags().StringVar(&trace, "trace", "", "Write a JSON line per finished target to this file")
	return cmd
}
