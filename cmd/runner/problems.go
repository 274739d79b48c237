package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sakif/coderunner/internal/problems"
)

func newProblemsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "problems",
		Short: "List the built-in problems",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			catalog, err := problems.Load()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tDIFFICULTY\tCASES\tTITLE")
			for _, p := range catalog {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", p.ID, p.Difficulty, len(p.TestCases), p.Title)
			}
			return w.Flush()
		},
	}
}
