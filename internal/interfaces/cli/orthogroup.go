package cli

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/orthoatlas/orthoatlas/internal/application/orthology"
)

// NewOrthogroupCmd creates the orthogroup command for direct orthogroup
// inspection.
func NewOrthogroupCmd() *cobra.Command {
	orthogroupCmd := &cobra.Command{
		Use:   "orthogroup",
		Short: "Inspect orthogroups",
		Long:  "Inspect an orthogroup's per-species gene lists and its tree view, or\nlook up which orthogroup contains a gene.",
	}

	genesCmd := &cobra.Command{
		Use:   "genes ORTHOGROUP_ID",
		Short: "List an orthogroup's genes grouped by species",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOrthogroupGenes(cmd, args[0])
		},
	}

	treeCmd := &cobra.Command{
		Use:   "tree ORTHOGROUP_ID",
		Short: "Show the tree with the orthogroup's species",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOrthogroupTree(cmd, args[0])
		},
	}

	ofCmd := &cobra.Command{
		Use:   "of GENE_ID",
		Short: "Look up which orthogroup contains a gene",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOrthogroupOf(cmd, args[0])
		},
	}

	orthogroupCmd.AddCommand(genesCmd, treeCmd, ofCmd)
	return orthogroupCmd
}

func runOrthogroupGenes(cmd *cobra.Command, orthogroupID string) error {
	eng, cliCtx, err := openEngine(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := queryContext(cmd, cliCtx)
	defer cancel()

	result, err := eng.Orthology.OrthogroupGenes(ctx, orthogroupID)
	if err != nil {
		return err
	}

	return PrintResult(cmd, orthogroupGenesView{GenesResult: *result})
}

func runOrthogroupTree(cmd *cobra.Command, orthogroupID string) error {
	eng, cliCtx, err := openEngine(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := queryContext(cmd, cliCtx)
	defer cancel()

	result, err := eng.Orthology.OrthogroupTree(ctx, orthogroupID)
	if err != nil {
		return err
	}

	return PrintResult(cmd, orthogroupTreeView{TreeResult: *result})
}

func runOrthogroupOf(cmd *cobra.Command, geneID string) error {
	eng, cliCtx, err := openEngine(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := queryContext(cmd, cliCtx)
	defer cancel()

	result, err := eng.Orthology.FindGeneOrthogroup(ctx, geneID)
	if err != nil {
		return err
	}

	return PrintResult(cmd, geneLookupView{LookupResult: *result})
}

// orthogroupGenesView wraps per-species gene lists for output formatting.
// Rows are ordered by species code for stable output.
type orthogroupGenesView struct {
	orthology.GenesResult
}

func (v orthogroupGenesView) sortedCodes() []string {
	codes := make([]string, 0, len(v.Genes))
	for code := range v.Genes {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

func (v orthogroupGenesView) TableHeaders() []string {
	return []string{"CODE", "SPECIES", "COUNT", "GENES"}
}

func (v orthogroupGenesView) TableRows() [][]string {
	codes := v.sortedCodes()
	rows := make([][]string, 0, len(codes))
	for _, code := range codes {
		genes := v.Genes[code]
		rows = append(rows, []string{
			code,
			v.SpeciesNames[code],
			strconv.Itoa(len(genes)),
			strings.Join(genes, ","),
		})
	}
	return rows
}

func (v orthogroupGenesView) RenderText(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()

	if len(v.Genes) == 0 {
		fmt.Fprintf(out, "Orthogroup %s has no genes.\n", v.OrthogroupID)
		return nil
	}

	fmt.Fprintf(out, "\n=== Genes in orthogroup %s ===\n\n", v.OrthogroupID)

	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Code", "Species", "Count", "Genes"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	total := 0
	for _, code := range v.sortedCodes() {
		genes := v.Genes[code]
		total += len(genes)
		table.Append([]string{
			code,
			v.SpeciesNames[code],
			strconv.Itoa(len(genes)),
			truncateString(strings.Join(genes, ","), 60),
		})
	}
	table.Render()

	fmt.Fprintf(out, "\nTotal genes: %d\n", total)
	return nil
}

// orthogroupTreeView wraps the tree view for output formatting.
type orthogroupTreeView struct {
	orthology.TreeResult
}

func (v orthogroupTreeView) TableHeaders() []string {
	return []string{"ORTHOGROUP", "SPECIES", "NEWICK"}
}

func (v orthogroupTreeView) TableRows() [][]string {
	return [][]string{{v.OrthogroupID, strings.Join(v.Species, ","), v.Newick}}
}

func (v orthogroupTreeView) RenderText(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Orthogroup: %s\n", v.OrthogroupID)
	fmt.Fprintf(out, "Species:    %s\n", strings.Join(v.Species, ", "))
	fmt.Fprintf(out, "Tree:       %s\n", v.Newick)
	return nil
}

// geneLookupView wraps the gene-to-orthogroup lookup for output formatting.
type geneLookupView struct {
	orthology.LookupResult
}

func (v geneLookupView) TableHeaders() []string {
	return []string{"GENE", "FOUND", "ORTHOGROUP"}
}

func (v geneLookupView) TableRows() [][]string {
	return [][]string{{v.GeneID, strconv.FormatBool(v.Found), v.OrthogroupID}}
}

func (v geneLookupView) RenderText(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	if !v.Found {
		fmt.Fprintln(out, color.YellowString("gene %s is not in any orthogroup", v.GeneID))
		return nil
	}
	fmt.Fprintf(out, "gene %s belongs to orthogroup %s\n", v.GeneID, v.OrthogroupID)
	return nil
}
