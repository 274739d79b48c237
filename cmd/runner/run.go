package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

func newRunCmd(root *rootOptions) *cobra.Command {
	var stdin string

	cmd := &cobra.Command{
		Use:   "run [file]",
		Short: "Compile and run one program",
		Long: `Compile and run a C program and print what it wrote.

The source is read from file, or from standard input when file is omitted or
"-". The command exits with the program's exit status.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := readSource(cmd, args)
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

			res, err := b.Run(ctx, code, stdin)
			if err != nil {
				return err
			}

			out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()
			if res.CompileOutput != "" {
				fmt.Fprintln(errOut, res.CompileOutput)
			}
			fmt.Fprint(out, res.Stdout)
			if res.Stderr != "" && res.Stderr != res.CompileOutput {
				fmt.Fprint(errOut, res.Stderr)
			}
			root.logger.Debug("run finished",
				slog.Int("exitCode", res.ExitCode),
				slog.Duration("duration", res.Duration))

			if res.ExitCode != 0 {
				return &exitError{code: res.ExitCode}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&stdin, "stdin", "", "text passed to the program's standard input")
	return cmd
}
