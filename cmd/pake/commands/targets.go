package commands

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.trai.ch/pake/internal/core/domain"
)

func (c *CLI) newTargetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "targets",
		Short: "List declared targets and rule patterns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			load, err := c.loadOptions()
			if err != nil {
				return err
			}
			listing, err := c.app.Targets(cmd.Context(), load)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, t := range listing.Targets {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					t.Name, t.Kind, formatLastBuild(t.LastBuild), strings.Join(t.Dependencies, " "))
			}
			for _, pattern := range listing.Rules {
				_, _ = fmt.Fprintf(w, "%s\trule\t\t\n", pattern)
			}
			return w.Flush()
		},
	}
}

// formatLastBuild renders the recorded build time and a short content hash.
func formatLastBuild(info *domain.BuildInfo) string {
	if info == nil {
		return "-"
	}
	hash := info.ContentHash
	if len(hash) > 12 {
		hash = hash[:12]
	}
	return info.Timestamp.Local().Format(time.DateTime) + " " + hash
}
