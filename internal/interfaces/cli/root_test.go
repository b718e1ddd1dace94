package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	// Deterministic output regardless of the TTY the tests run under.
	color.NoColor = true
}

// runCommand executes the full root command with the given args and returns
// captured stdout and stderr.
func runCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	root := NewRootCommand()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append(args, "--log-level", "error"))

	err := root.Execute()
	return out.String(), errOut.String(), err
}

func TestNewRootCommand_Structure(t *testing.T) {
	cmd := NewRootCommand()

	assert.Equal(t, "orthoatlas", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotEmpty(t, cmd.Long)
	assert.Contains(t, cmd.Version, "dev")
}

func TestNewRootCommand_SubcommandRegistration(t *testing.T) {
	cmd := NewRootCommand()

	names := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}

	for _, want := range []string{"search", "orthologues", "orthogroup", "species", "stats", "serve"} {
		assert.True(t, names[want], "expected subcommand %q", want)
	}
}

func TestNewRootCommand_GlobalFlags(t *testing.T) {
	cmd := NewRootCommand()
	pf := cmd.PersistentFlags()

	tests := []struct {
		name      string
		shorthand string
		defValue  string
	}{
		{"config", "c", ""},
		{"data-dir", "d", ""},
		{"log-level", "", "info"},
		{"output", "o", "text"},
		{"verbose", "v", "false"},
		{"no-color", "", "false"},
		{"timeout", "", "30s"},
	}

	for _, tt := range tests {
		flag := pf.Lookup(tt.name)
		require.NotNil(t, flag, "flag %q should exist", tt.name)
		assert.Equal(t, tt.shorthand, flag.Shorthand, "flag %q shorthand", tt.name)
		assert.Equal(t, tt.defValue, flag.DefValue, "flag %q default", tt.name)
	}
}

func TestInitConfig_DataDirOverride(t *testing.T) {
	cfg, path, err := initConfig(&RootOptions{DataDir: "/srv/orthodata"})

	require.NoError(t, err)
	assert.Empty(t, path)
	assert.Equal(t, "fs", cfg.DataSource.Kind)
	assert.Equal(t, "/srv/orthodata", cfg.DataSource.Root)
}

func TestInitConfig_BadFileFails(t *testing.T) {
	_, _, err := initConfig(&RootOptions{ConfigPath: "/nonexistent/orthoatlas.yaml"})
	assert.Error(t, err)
}

func TestInitLogger(t *testing.T) {
	logger, err := initLogger(&RootOptions{LogLevel: "warn"})
	require.NoError(t, err)
	assert.NotNil(t, logger)

	logger, err = initLogger(&RootOptions{LogLevel: "info", Verbose: true})
	require.NoError(t, err)
	assert.NotNil(t, logger)
}

func TestGetCLIContext_Uninitialized(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())

	_, err := GetCLIContext(cmd)
	assert.Error(t, err)
}

func contextCmd(t *testing.T, format string) (*cobra.Command, *bytes.Buffer) {
	t.Helper()

	cmd := &cobra.Command{}
	var out bytes.Buffer
	cmd.SetOut(&out)
	ctx := context.WithValue(context.Background(), cliContextKey{}, &CLIContext{OutputFormat: format})
	cmd.SetContext(ctx)
	return cmd, &out
}

func TestPrintResult_JSON(t *testing.T) {
	cmd, out := contextCmd(t, "json")

	err := PrintResult(cmd, map[string]int{"leaves": 4})
	require.NoError(t, err)
	assert.JSONEq(t, `{"leaves": 4}`, out.String())
}

func TestPrintResult_TableUsesProvider(t *testing.T) {
	cmd, out := contextCmd(t, "table")

	err := PrintResult(cmd, searchResultList{})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "NODE")
	assert.Contains(t, out.String(), "SUPPORT")
}

func TestPrintResult_TextFallsBackToString(t *testing.T) {
	cmd, out := contextCmd(t, "text")

	err := PrintResult(cmd, "four leaves")
	require.NoError(t, err)
	assert.Equal(t, "four leaves\n", out.String())
}

func TestFormatTable(t *testing.T) {
	out := FormatTable(
		[]string{"CODE", "NAME"},
		[][]string{
			{"At", "Arabidopsis thaliana"},
			{"Os", "Oryza sativa"},
		},
	)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "CODE  NAME", strings.TrimRight(lines[0], " "))
	assert.Equal(t, "----  --------------------", lines[1])
	assert.Contains(t, lines[2], "At")
	assert.Contains(t, lines[2], "Arabidopsis thaliana")
}

func TestFormatTable_EmptyHeaders(t *testing.T) {
	assert.Empty(t, FormatTable(nil, [][]string{{"row"}}))
}

func TestFormatTable_ShortRowPads(t *testing.T) {
	out := FormatTable([]string{"A", "B"}, [][]string{{"only"}})
	assert.Contains(t, out, "only")

	// A row longer than the header list must not widen the table.
	out = FormatTable([]string{"A"}, [][]string{{"x", "spill"}})
	assert.NotContains(t, out, "spill")
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", truncateString("short", 10))
	assert.Equal(t, "lon...", truncateString("longer", 3))
}

func TestPrintError(t *testing.T) {
	cmd := &cobra.Command{}
	var errOut bytes.Buffer
	cmd.SetErr(&errOut)

	PrintError(cmd, assert.AnError)
	assert.Contains(t, errOut.String(), "Error:")

	errOut.Reset()
	PrintError(cmd, nil)
	assert.Empty(t, errOut.String())
}
