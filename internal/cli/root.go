package cli

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/qrv0/sparrow/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Verbose    bool
	Format     string // "json" | "text"

	cfg    *config.Config
	logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the sparrow CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "sparrow",
		Short: "sparrow - typed sparse-matrix primitives",
		Long:  "Run cuSPARSE-style gather, sort, conversion and sparse-dense product through a checked runtime.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return opts.load(cmd)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to YAML config")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewCoo2CsrCommand(opts))
	cmd.AddCommand(NewSortCommand(opts))
	cmd.AddCommand(NewGatherCommand(opts))
	cmd.AddCommand(NewGemmiCommand(opts))
	cmd.AddCommand(NewPackCommand(opts))
	cmd.AddCommand(NewVerifyCommand(opts))

	return cmd
}

// load reads the config and builds the diagnostic logger on stderr.
func (o *RootOptions) load(cmd *cobra.Command) error {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "load config", err)
	}
	if o.Verbose {
		cfg.Logging.Level = "debug"
	}
	o.cfg = cfg
	o.logger = cfg.Logging.Logger(cmd.ErrOrStderr())
	return nil
}

// config returns the loaded config, or defaults when a subcommand is run
// without the root command.
func (o *RootOptions) config() *config.Config {
	if o.cfg == nil {
		o.cfg = config.Default()
	}
	return o.cfg
}

func (o *RootOptions) log() *slog.Logger {
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o.logger
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	format := o.Format
	if format == "" {
		format = "text"
	}
	return &OutputFormatter{
		Format:    format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}
