package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sakif/coderunner/internal/judge"
	"github.com/sakif/coderunner/internal/model"
	"github.com/sakif/coderunner/internal/problems"
)

func newJudgeCmd(root *rootOptions) *cobra.Command {
	var showInput bool

	cmd := &cobra.Command{
		Use:   "judge <problem> [file]",
		Short: "Judge a solution against a built-in problem",
		Long: `Run a solution against every test case of a built-in problem and print
the verdict for each. Exits 0 only when every case is accepted.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := findProblem(args[0])
			if err != nil {
				return err
			}
			code, err := readSource(cmd, args[1:])
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			b, err := root.startRunner(ctx)
			if err != nil {
				return err
			}
			defer b.Shutdown(context.WithoutCancel(ctx))

			report, err := judge.New(b, root.cfg.Judge.Parallelism, root.logger).Evaluate(ctx, p, code)
			if err != nil {
				return err
			}

			printReport(cmd, report, showInput)
			if report.Verdict != model.VerdictAccepted {
				return &exitError{code: 1}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showInput, "show-input", false, "print each case's input alongside its output")
	return cmd
}

func findProblem(id string) (*model.Problem, error) {
	catalog, err := problems.Load()
	if err != nil {
		return nil, err
	}
	for i := range catalog {
		if catalog[i].ID == id {
			return &catalog[i], nil
		}
	}
	return nil, fmt.Errorf("no problem %q (see \"runner problems\")", id)
}

func printReport(cmd *cobra.Command, report *judge.Report, showInput bool) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	header := "CASE\tVERDICT\tEXPECTED\tACTUAL\tTIME"
	if showInput {
		header = "CASE\tVERDICT\tINPUT\tEXPECTED\tACTUAL\tTIME"
	}
	fmt.Fprintln(w, header)

	for _, c := range report.Cases {
		cols := []string{fmt.Sprint(c.Index + 1), string(c.Verdict)}
		if showInput {
			cols = append(cols, oneLine(c.Input))
		}
		cols = append(cols, oneLine(c.Expected), oneLine(c.Actual), fmt.Sprintf("%dms", c.TimeMS))
		fmt.Fprintln(w, strings.Join(cols, "\t"))
	}
	w.Flush()

	fmt.Fprintf(cmd.OutOrStdout(), "\n%s (%d/%d passed)\n", report.Verdict, report.Passed, report.Total)
}

// oneLine keeps multi-line output from breaking the table.
func oneLine(s string) string {
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return "-"
	}
	return strings.ReplaceAll(s, "\n", `\n`)
}
