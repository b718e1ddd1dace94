// Package cli implements the orthoatlas command line interface: dataset
// queries run directly against local or object-store artifacts, plus the
// serve command that hosts the HTTP API. All diagnostic logging goes to
// stderr so stdout stays clean for command output.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/orthoatlas/orthoatlas/internal/config"
	"github.com/orthoatlas/orthoatlas/internal/infrastructure/monitoring/logging"
	"github.com/orthoatlas/orthoatlas/pkg/errors"
)

// Set at build time through -ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// cliContextKey keys the CLIContext stored on the cobra command context.
type cliContextKey struct{}

// RootOptions collects the persistent flag values shared by every subcommand.
type RootOptions struct {
	ConfigPath   string
	DataDir      string
	LogLevel     string
	OutputFormat string
	Verbose      bool
	NoColor      bool
	Timeout      time.Duration
}

// CLIContext is what a subcommand's RunE gets to work with: resolved config,
// a ready logger, and the rendering preferences.
type CLIContext struct {
	Config       *config.Config
	ConfigFile   string // resolved config file path, "" when env/defaults only
	Logger       logging.Logger
	OutputFormat string
	Verbose      bool
	NoColor      bool
	Timeout      time.Duration
}

// NewRootCommand assembles the orthoatlas command tree and its persistent
// flags.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:     "orthoatlas",
		Short:   "OrthoAtlas — cross-species orthology resolution and phylogenetic search",
		Long:    "OrthoAtlas resolves orthologous genes across species from an orthogroup\nclassification table, a species metadata mapping and a phylogenetic tree.\nQuery commands load the dataset artifacts directly; serve hosts the HTTP API.",
		Version: fmt.Sprintf("%s (commit %s, built %s)", Version, GitCommit, BuildDate),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return persistentPreRun(cmd, opts)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "config file path (default: ./orthoatlas.yaml)")
	pf.StringVarP(&opts.DataDir, "data-dir", "d", "", "load dataset artifacts from this directory, overriding the configured source")
	pf.StringVar(&opts.LogLevel, "log-level", "info", "minimum log level: debug, info, warn, or error")
	pf.StringVarP(&opts.OutputFormat, "output", "o", "text", "rendering: text, json, or table")
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "debug-level diagnostics on stderr")
	pf.BoolVar(&opts.NoColor, "no-color", false, "plain output without ANSI colors")
	pf.DurationVar(&opts.Timeout, "timeout", 30*time.Second, "dataset load and query timeout")

	cmd.AddCommand(
		NewSearchCmd(),
		NewOrthologuesCmd(),
		NewOrthogroupCmd(),
		NewSpeciesCmd(),
		NewStatsCmd(),
		NewServeCmd(),
	)

	return cmd
}

// persistentPreRun resolves config and logger once, before any RunE, and
// hangs the result on the command context for GetCLIContext.
func persistentPreRun(cmd *cobra.Command, opts *RootOptions) error {
	if opts.NoColor {
		color.NoColor = true
	}

	cfg, cfgFile, err := initConfig(opts)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	logger, err := initLogger(opts)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}

	cmd.SetContext(context.WithValue(cmd.Context(), cliContextKey{}, &CLIContext{
		Config:       cfg,
		ConfigFile:   cfgFile,
		Logger:       logger,
		OutputFormat: opts.OutputFormat,
		Verbose:      opts.Verbose,
		NoColor:      opts.NoColor,
		Timeout:      opts.Timeout,
	}))
	return nil
}

// initConfig resolves configuration in priority order flag > env > file >
// defaults, and reports which config file (if any) was read.  --data-dir
// rewrites the data source to the local filesystem afterwards, so a single
// flag is enough to point every query command at a directory of artifacts.
func initConfig(opts *RootOptions) (*config.Config, string, error) {
	var (
		cfg  *config.Config
		path string
		err  error
	)

	switch {
	case opts.ConfigPath != "":
		path = opts.ConfigPath
		cfg, err = config.LoadFromFile(path)
	default:
		if path = findConfigFile(); path != "" {
			cfg, err = config.LoadFromFile(path)
		} else {
			cfg, err = config.Load()
		}
	}
	if err != nil {
		return nil, "", err
	}

	if opts.DataDir != "" {
		cfg.DataSource.Kind = "fs"
		cfg.DataSource.Root = opts.DataDir
	}

	return cfg, path, nil
}

// findConfigFile probes the working directory, the user's home, and /etc in
// that order, returning the first config file that exists.
func findConfigFile() string {
	paths := []string{"./orthoatlas.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".orthoatlas", "config.yaml"))
	}
	paths = append(paths, "/etc/orthoatlas/config.yaml")

	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// initLogger builds the CLI logger: console encoding on stderr, so piped
// stdout carries nothing but command output.  --verbose forces debug.
func initLogger(opts *RootOptions) (logging.Logger, error) {
	level := strings.ToLower(opts.LogLevel)
	if opts.Verbose {
		level = "debug"
	}

	return logging.NewLogger(logging.LogConfig{
		Level:            level,
		Format:           "console",
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	})
}

// GetCLIContext returns the CLIContext placed on the command by the root's
// PersistentPreRunE.  It fails for commands executed outside the root tree,
// which in practice means a miswired test.
func GetCLIContext(cmd *cobra.Command) (*CLIContext, error) {
	ctx := cmd.Context()
	if ctx == nil {
		return nil, errors.Internal("command context is nil")
	}
	if cliCtx, ok := ctx.Value(cliContextKey{}).(*CLIContext); ok && cliCtx != nil {
		return cliCtx, nil
	}
	return nil, errors.Internal("CLI context not initialized; command executed outside the root command")
}

// Execute runs the root command. It is the entry point used by cmd/orthoatlas.
func Execute() error {
	root := NewRootCommand()
	if err := root.Execute(); err != nil {
		PrintError(root, err)
		return err
	}
	return nil
}

// PrintResult outputs data in the format selected by the global --output flag.
func PrintResult(cmd *cobra.Command, data interface{}) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		// No format preference without a context; JSON is always valid.
		return printJSON(cmd, data)
	}

	switch strings.ToLower(cliCtx.OutputFormat) {
	case "json":
		return printJSON(cmd, data)
	case "table":
		return printTable(cmd, data)
	default:
		return printText(cmd, data)
	}
}

// printJSON writes data as indented JSON.
func printJSON(cmd *cobra.Command, data interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// textRenderer is implemented by result wrappers that have a rich
// human-readable rendering for the default text format.
type textRenderer interface {
	RenderText(cmd *cobra.Command) error
}

// tableProvider is implemented by result wrappers that can render as a plain
// aligned table.
type tableProvider interface {
	TableHeaders() []string
	TableRows() [][]string
}

// printText prefers the value's own rich rendering and degrades to a plain
// string representation.
func printText(cmd *cobra.Command, data interface{}) error {
	w := cmd.OutOrStdout()
	switch v := data.(type) {
	case textRenderer:
		return v.RenderText(cmd)
	case string:
		fmt.Fprintln(w, v)
	case fmt.Stringer:
		fmt.Fprintln(w, v.String())
	default:
		fmt.Fprintf(w, "%+v\n", v)
	}
	return nil
}

// printTable outputs data as a plain aligned table if it implements
// tableProvider, otherwise falls back to text.
func printTable(cmd *cobra.Command, data interface{}) error {
	if tp, ok := data.(tableProvider); ok {
		fmt.Fprint(cmd.OutOrStdout(), FormatTable(tp.TableHeaders(), tp.TableRows()))
		return nil
	}

	return printText(cmd, data)
}

// PrintError reports err on stderr; a nil err prints nothing.
func PrintError(cmd *cobra.Command, err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err.Error())
}

// PrintSuccess confirms a state-changing command on stdout.
func PrintSuccess(cmd *cobra.Command, msg string) {
	fmt.Fprintf(cmd.OutOrStdout(), "OK: %s\n", msg)
}

// FormatTable renders headers and rows as an aligned ASCII table without
// borders, suitable for piping into cut or awk.  The rich bordered rendering
// for interactive use lives in each command's RenderText.
func FormatTable(headers []string, rows [][]string) string {
	if len(headers) == 0 {
		return ""
	}

	widths := make([]int, len(headers))
	measure := func(cells []string) {
		for i, cell := range cells {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}
	measure(headers)
	for _, row := range rows {
		measure(row)
	}

	var sb strings.Builder
	writeRow := func(cells []string) {
		for i := range headers {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			if i > 0 {
				sb.WriteString("  ")
			}
			fmt.Fprintf(&sb, "%-*s", widths[i], cell)
		}
		sb.WriteByte('\n')
	}

	writeRow(headers)
	rule := make([]string, len(headers))
	for i, w := range widths {
		rule[i] = strings.Repeat("-", w)
	}
	writeRow(rule)
	for _, row := range rows {
		writeRow(row)
	}

	return sb.String()
}

// truncateString shortens s to maxLen runes with an ellipsis marker.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
