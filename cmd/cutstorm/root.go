package main

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/cutstorm/internal/app"
	"github.com/dshills/cutstorm/internal/config"
	"github.com/dshills/cutstorm/internal/logging"
)

// cli holds the state shared by every subcommand.
type cli struct {
	configPath string
	logLevel   string
	logFormat  string

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	cmd := &cobra.Command{
		Use:           "cutstorm",
		Short:         "Scriptable non-linear editing timeline",
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		Example: strings.TrimSpace(`
  # Run edit scripts and print the resulting timelines
  cutstorm replay intro.lua outro.lua

  # Print only the timeline length
  cutstorm replay --query meta.duration intro.lua

  # Record a script as a journal and replay it later
  cutstorm journal record intro.lua intro.yaml
  cutstorm journal play intro.yaml

  # Re-run scripts whenever they change
  cutstorm watch ./edits
`),
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&c.configPath, "config", "c", "", "settings file (.toml, .yaml)")
	flags.StringVar(&c.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.StringVar(&c.logFormat, "log-format", "", "log format (text, json)")

	cmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		return c.setup(cmd.ErrOrStderr())
	}

	cmd.AddCommand(
		newReplayCmd(c),
		newJournalCmd(c),
		newCheckCmd(c),
		newWatchCmd(c),
	)
	return cmd
}

// setup loads settings and builds the logger.
func (c *cli) setup(stderr io.Writer) error {
	cfg, err := config.Load(config.Options{Path: c.configPath})
	if err != nil {
		return err
	}
	if c.logLevel != "" {
		switch c.logLevel {
		case "debug", "info", "warn", "error":
			cfg.Logging.Level = c.logLevel
		default:
			return fmt.Errorf("invalid log level %q (must be debug, info, warn, or error)", c.logLevel)
		}
	}
	if c.logFormat != "" {
		cfg.Logging.Format = c.logFormat
	}
	c.cfg = cfg
	c.logger = logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: logging.Format(cfg.Logging.Format),
		Output: stderr,
	})
	return nil
}

func (c *cli) newSession(out io.Writer) (*app.Session, error) {
	return app.New(c.cfg, app.WithLogger(c.logger), app.WithOutput(out))
}

// outputOptions select how a dump is printed.
type outputOptions struct {
	format string
	query  string
}

func (o *outputOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.format, "format", "f", "json", "dump format (json, yaml)")
	cmd.Flags().StringVarP(&o.query, "query", "q", "", "print only this path of the dump, e.g. meta.duration")
}

func (o *outputOptions) validate() error {
	switch o.format {
	case "json", "yaml":
		return nil
	}
	return fmt.Errorf("unknown format %q (must be json or yaml)", o.format)
}

// render writes dump in the selected form.
func (o *outputOptions) render(w io.Writer, dump []byte) error {
	if o.query != "" {
		v, ok := app.Query(dump, o.query)
		if !ok {
			v = "null"
		}
		_, err := fmt.Fprintln(w, v)
		return err
	}
	if o.format == "yaml" {
		y, err := app.ToYAML(dump)
		if err != nil {
			return err
		}
		_, err = w.Write(y)
		return err
	}
	_, err := fmt.Fprintf(w, "%s\n", dump)
	return err
}

// isJournal reports whether path names a journal rather than a script.
func isJournal(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
