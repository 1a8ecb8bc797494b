// Package cli implements the irflow command.
package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wippyai/irflow"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	LogLevel   string
	Format     string // "text" | "json"
	Pooled     bool

	logger *zap.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the irflow CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "irflow",
		Short: "Build, lower and run sample procedures",
		Long: `irflow builds procedures from structured control flow, lowers
asynchronous ones to state machines and runs them.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.logger != nil {
				_ = opts.logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "YAML config file")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "warn", "log level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVar(&opts.Pooled, "pooled", false, "reuse state-machine instances")

	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewDumpCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewBrowseCommand(opts))

	return cmd
}

// setup merges the config file under explicitly set flags and installs the
// logger.
func (o *RootOptions) setup(cmd *cobra.Command) error {
	if o.ConfigPath != "" {
		cfg, err := LoadConfig(o.ConfigPath)
		if err != nil {
			return WrapExitError(ExitCommandError, "load config", err)
		}
		flags := cmd.Flags()
		if cfg.LogLevel != "" && !flags.Changed("log-level") {
			o.LogLevel = cfg.LogLevel
		}
		if cfg.Format != "" && !flags.Changed("format") {
			o.Format = cfg.Format
		}
		if cfg.Pooled && !flags.Changed("pooled") {
			o.Pooled = true
		}
	}

	if !slices.Contains(ValidFormats, o.Format) {
		return fmt.Errorf("invalid format %q: must be one of %v", o.Format, ValidFormats)
	}

	logger, err := newLogger(o.LogLevel, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	o.logger = logger
	irflow.SetLogger(logger)
	return nil
}

func (o *RootOptions) log() *zap.Logger {
	if o.logger == nil {
		return zap.NewNop()
	}
	return o.logger
}
