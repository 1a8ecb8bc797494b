package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wippyai/irflow"
	"github.com/wippyai/irflow/engine"
	"github.com/wippyai/irflow/internal/catalog"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Timeout time.Duration
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <procedure> [args...]",
		Short: "Build and run a procedure",
		Long: `Build and run a procedure.

Arguments are parsed according to the declared parameter types.

Example:
  irflow run quotient 7 2`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProcedure(opts, args[0], args[1:], cmd)
		},
	}

	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "cancel the run after this long (0 disables)")

	return cmd
}

// call compiles e and runs it with raw arguments.
func call(ctx context.Context, e catalog.Entry, raw []string, pooled bool) (any, error) {
	args, err := e.ParseArgs(raw)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "arguments", err)
	}
	p, err := e.Compile(pooled)
	if err != nil {
		return nil, WrapExitError(ExitFailure, "build "+e.Name(), err)
	}
	return irflow.Run(ctx, p, args...)
}

func runProcedure(opts *RunOptions, name string, raw []string, cmd *cobra.Command) error {
	e, err := catalog.Lookup(name)
	if err != nil {
		return WrapExitError(ExitCommandError, "run", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	v, err := call(ctx, e, raw, opts.Pooled)
	opts.log().Info("procedure finished",
		zap.String("procedure", name),
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(err),
	)

	out := cmd.OutOrStdout()
	if opts.Format == "json" {
		resp := Response{Status: "ok", Data: v}
		if err != nil {
			resp = Response{Status: "error", Error: err.Error(), Kind: string(engine.ClassifyError(err))}
		}
		if werr := writeJSON(out, resp); werr != nil {
			return werr
		}
		if err != nil {
			return &ExitError{Code: GetExitCode(err), Message: "run " + name, Err: err}
		}
		return nil
	}

	if err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return err
		}
		return WrapExitError(ExitFailure, "run "+name, err)
	}
	_, err = fmt.Fprintf(out, "%v\n", v)
	return err
}
