package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (c *CLI) newCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove built artifacts and the build history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			load, err := c.loadOptions()
			if err != nil {
				return err
			}
			removed, err := c.app.Clean(cmd.Context(), load)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "removed %d artifact(s)\n", len(removed))
			return nil
		},
	}
}
