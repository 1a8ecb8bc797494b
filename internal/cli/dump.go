package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wippyai/irflow/internal/catalog"
	"github.com/wippyai/irflow/ir"
)

// DumpOptions holds flags for the dump command.
type DumpOptions struct {
	*RootOptions
	Draft bool
}

// NewDumpCommand creates the dump command.
func NewDumpCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DumpOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "dump <procedure>",
		Short: "Print the IR of a procedure",
		Long: `Print the IR of a procedure.

Asynchronous procedures are shown after lowering to a state machine unless
--draft is given.

Example:
  irflow dump ticks --draft`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Draft, "draft", false, "show the tree before lowering")

	return cmd
}

func dumpEntry(e catalog.Entry, draft bool) (string, error) {
	var (
		lam *ir.Lambda
		err error
	)
	if draft {
		lam, err = e.Draft()
	} else {
		lam, err = e.Build()
	}
	if err != nil {
		return "", err
	}
	return ir.Dump(lam), nil
}

func runDump(opts *DumpOptions, name string, cmd *cobra.Command) error {
	e, err := catalog.Lookup(name)
	if err != nil {
		return WrapExitError(ExitCommandError, "dump", err)
	}
	text, err := dumpEntry(e, opts.Draft)
	if err != nil {
		return WrapExitError(ExitFailure, "build "+name, err)
	}

	out := cmd.OutOrStdout()
	if opts.Format == "json" {
		return writeJSON(out, Response{Status: "ok", Data: map[string]any{
			"name":    name,
			"lowered": e.Signature.Async && !opts.Draft,
			"ir":      text,
		}})
	}
	_, err = fmt.Fprint(out, text)
	return err
}
