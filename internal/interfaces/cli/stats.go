package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/orthoatlas/orthoatlas/internal/application/dataset"
)

// NewStatsCmd creates the stats command: load the dataset and summarise it.
func NewStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Load the dataset and print its statistics",
		Args:  cobra.NoArgs,
		RunE:  runStats,
	}
}

func runStats(cmd *cobra.Command, args []string) error {
	eng, cliCtx, err := openEngine(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := queryContext(cmd, cliCtx)
	defer cancel()

	snap, err := eng.Data.Ensure(ctx)
	if err != nil {
		return err
	}

	return PrintResult(cmd, statsReport{Stats: snap.Stats()})
}

// statsReport wraps dataset statistics for output formatting.
type statsReport struct {
	dataset.Stats
}

func (r statsReport) pairs() [][2]string {
	degraded := "no"
	if r.Degraded {
		degraded = "yes"
	}
	return [][2]string{
		{"Version", r.Version},
		{"Source", r.Source},
		{"Loaded at", r.LoadedAt.Format(time.RFC3339)},
		{"Degraded", degraded},
		{"Orthogroups", strconv.Itoa(r.Orthogroups)},
		{"Species columns", strconv.Itoa(r.SpeciesColumns)},
		{"Curated species", strconv.Itoa(r.CuratedSpecies)},
		{"Synthesized names", strconv.Itoa(r.SynthesizedNames)},
		{"Gene mentions", strconv.Itoa(r.GeneMentions)},
		{"Index size", strconv.Itoa(r.IndexSize)},
		{"Index conflicts", strconv.Itoa(r.IndexConflicts)},
		{"Skipped table rows", strconv.Itoa(r.SkippedTableRows)},
		{"Skipped species lines", strconv.Itoa(r.SkippedSpeciesLines)},
		{"Tree leaves", strconv.Itoa(r.TreeLeaves)},
		{"Tree nodes", strconv.Itoa(r.TreeNodes)},
	}
}

func (r statsReport) TableHeaders() []string {
	return []string{"FIELD", "VALUE"}
}

func (r statsReport) TableRows() [][]string {
	pairs := r.pairs()
	rows := make([][]string, 0, len(pairs))
	for _, p := range pairs {
		rows = append(rows, []string{p[0], p[1]})
	}
	return rows
}

func (r statsReport) RenderText(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()

	for _, p := range r.pairs() {
		value := p[1]
		if p[0] == "Degraded" {
			if r.Degraded {
				value = color.RedString(value)
			} else {
				value = color.GreenString(value)
			}
		}
		fmt.Fprintf(out, "%-22s %s\n", p[0]+":", value)
	}
	return nil
}
