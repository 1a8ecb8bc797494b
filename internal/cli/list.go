package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wippyai/irflow/internal/catalog"
)

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List the sample procedures",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(rootOpts, cmd)
		},
	}
}

type procedureInfo struct {
	Name    string   `json:"name"`
	Params  []string `json:"params"`
	Result  string   `json:"result"`
	Async   bool     `json:"async"`
	Summary string   `json:"summary"`
}

func infoOf(e catalog.Entry) procedureInfo {
	info := procedureInfo{
		Name:    e.Name(),
		Params:  []string{},
		Result:  e.Signature.Result.String(),
		Async:   e.Signature.Async,
		Summary: e.Summary,
	}
	for _, p := range e.Signature.Params {
		info.Params = append(info.Params, p.Name+": "+p.Type.String())
	}
	return info
}

// signature renders an entry as name(params) -> result.
func signature(e catalog.Entry) string {
	info := infoOf(e)
	s := fmt.Sprintf("%s(%s) -> %s", info.Name, strings.Join(info.Params, ", "), info.Result)
	if info.Async {
		s += " async"
	}
	return s
}

func runList(opts *RootOptions, cmd *cobra.Command) error {
	entries := catalog.All()
	out := cmd.OutOrStdout()

	if opts.Format == "json" {
		infos := make([]procedureInfo, len(entries))
		for i, e := range entries {
			infos[i] = infoOf(e)
		}
		return writeJSON(out, Response{Status: "ok", Data: infos})
	}

	for _, e := range entries {
		fmt.Fprintf(out, "%-40s %s\n", signature(e), e.Summary)
	}
	return nil
}
