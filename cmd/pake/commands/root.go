// Package commands implements the CLI commands for the pake build tool.
package commands

import (
	"context"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.trai.ch/pake/internal/app"
	"go.trai.ch/pake/internal/build"
	"go.trai.ch/pake/internal/core/domain"
	"go.trai.ch/pake/internal/core/ports"
	"go.trai.ch/zerr"
)

// jsonSwitcher is implemented by loggers that can switch to JSON output.
type jsonSwitcher interface {
	SetJSON(enable bool)
}

// CLI represents the command line interface for pake.
type CLI struct {
	app     *app.App
	logger  ports.Logger
	rootCmd *cobra.Command

	file      string
	directory string
	jsonLogs  bool
	defines   []string
}

// New creates a new CLI instance with the given app.
func New(a *app.App, logger ports.Logger) *CLI {
	rootCmd := &cobra.Command{
		Use:           "pake",
		Short:         "An incremental build tool driven by a pakefile",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       build.Version,
	}

	rootCmd.InitDefaultVersionFlag()
	rootCmd.Flags().Lookup("version").Usage = "Print the application version"

	rootCmd.InitDefaultHelpFlag()
	rootCmd.Flags().Lookup("help").Usage = "Show help for command"

	c := &CLI{
		app:     a,
		logger:  logger,
		rootCmd: rootCmd,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&c.file, "file", "f", "pakefile.yaml", "Path of the pakefile")
	flags.StringVarP(&c.directory, "directory", "C", "", "Change to this directory before doing anything")
	flags.BoolVar(&c.jsonLogs, "json-logs", false, "Emit logs as JSON")
	flags.StringArrayVarP(&c.defines, "define", "D", nil, "Override a variable (NAME=VALUE, repeatable)")

	rootCmd.PersistentPreRunE = func(_ *cobra.Command, _ []string) error {
		return c.setup()
	}

	rootCmd.AddCommand(c.newBuildCmd())
	rootCmd.AddCommand(c.newCleanCmd())
	rootCmd.AddCommand(c.newTargetsCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

func (c *CLI) setup() error {
	if c.jsonLogs {
		if s, ok := c.logger.(jsonSwitcher); ok {
			s.SetJSON(true)
		}
	}
	if c.directory != "" {
		if err := os.Chdir(c.directory); err != nil {
			return zerr.With(zerr.Wrap(err, "failed to change directory"), "directory", c.directory)
		}
	}
	return nil
}

func (c *CLI) loadOptions() (app.LoadOptions, error) {
	overrides, err := parseDefines(c.defines)
	if err != nil {
		return app.LoadOptions{}, err
	}
	return app.LoadOptions{File: c.file, Overrides: overrides}, nil
}

// parseDefines converts NAME=VALUE pairs into a map. Later pairs win.
func parseDefines(defines []string) (map[string]string, error) {
	if len(defines) == 0 {
		return nil, nil
	}
	overrides := make(map[string]string, len(defines))
	for _, d := range defines {
		name, value, ok := strings.Cut(d, "=")
		if !ok || name == "" {
			return nil, zerr.With(zerr.Wrap(domain.ErrInvalidOverride, "expected NAME=VALUE"), "define", d)
		}
		overrides[name] = value
	}
	return overrides, nil
}
