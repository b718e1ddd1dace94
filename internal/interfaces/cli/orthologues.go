package cli

import (
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/orthoatlas/orthoatlas/internal/application/orthology"
	"github.com/orthoatlas/orthoatlas/internal/infrastructure/monitoring/logging"
)

// NewOrthologuesCmd creates the orthologues command: the full cross-species
// report for a single query gene.
func NewOrthologuesCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "orthologues GENE_ID",
		Aliases: []string{"orthologs"},
		Short:   "Find the orthologues of a gene across all species",
		Long:    "Resolve the orthogroup containing GENE_ID and report every related gene\nby species, with per-species counts and the phylogenetic tree. A gene in\nno orthogroup reports a miss, not an error.",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOrthologues(cmd, args[0])
		},
	}
}

func runOrthologues(cmd *cobra.Command, geneID string) error {
	eng, cliCtx, err := openEngine(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := queryContext(cmd, cliCtx)
	defer cancel()

	cliCtx.Logger.Debug("searching orthologues", logging.String("gene_id", geneID))

	report, err := eng.Orthology.SearchOrthologues(ctx, geneID)
	if err != nil {
		return err
	}

	return PrintResult(cmd, orthologueReport{Result: *report})
}

// orthologueReport wraps the orthologue result for output formatting.
type orthologueReport struct {
	orthology.Result
}

func (r orthologueReport) TableHeaders() []string {
	return []string{"CODE", "SPECIES", "GENE"}
}

func (r orthologueReport) TableRows() [][]string {
	rows := make([][]string, 0, len(r.Orthologues))
	for _, o := range r.Orthologues {
		rows = append(rows, []string{o.SpeciesCode, o.SpeciesName, o.GeneID})
	}
	return rows
}

func (r orthologueReport) RenderText(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()

	if !r.Success {
		fmt.Fprintln(out, color.YellowString(r.Message))
		return nil
	}

	fmt.Fprintf(out, "\n=== Orthologues of %s (orthogroup %s) ===\n\n", r.GeneID, r.OrthogroupID)

	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Code", "Species", "Gene"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	for _, o := range r.Orthologues {
		table.Append([]string{o.SpeciesCode, o.SpeciesName, o.GeneID})
	}
	table.Render()

	fmt.Fprintln(out, "\nPer-species counts:")
	counts := tablewriter.NewWriter(out)
	counts.SetHeader([]string{"Code", "Species", "Orthologues"})
	counts.SetBorder(false)
	counts.SetAutoWrapText(false)
	for _, c := range r.Counts {
		n := strconv.Itoa(c.Count)
		if c.Count == 0 {
			n = color.YellowString(n)
		}
		counts.Append([]string{c.SpeciesCode, c.SpeciesName, n})
	}
	counts.Render()

	if r.Newick != "" {
		fmt.Fprintf(out, "\nTree: %s\n", r.Newick)
	}
	fmt.Fprintf(out, "\nTotal orthologues: %d\n", len(r.Orthologues))
	return nil
}
