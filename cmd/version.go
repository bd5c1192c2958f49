package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bnema/hangar/internal/app"
)

func newVersionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display the Hangar version, commit hash, and build date.`,
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			w := cmd.OutOrStdout()
			if short, _ := cmd.Flags().GetBool("short"); short {
				fmt.Fprintln(w, app.BuildVersion)
				return
			}
			fmt.Fprintf(w, "Hangar %s\n", app.BuildVersion)
			fmt.Fprintf(w, "Commit: %s\n", app.BuildCommit)
			fmt.Fprintf(w, "Built: %s\n", app.BuildDate)
		},
	}
	cmd.Flags().BoolP("short", "s", false, "Show only version number")
	return cmd
}
