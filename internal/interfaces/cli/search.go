package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/orthoatlas/orthoatlas/internal/application/treesearch"
	"github.com/orthoatlas/orthoatlas/internal/infrastructure/monitoring/logging"
	"github.com/orthoatlas/orthoatlas/pkg/errors"
)

var searchLimit int

// NewSearchCmd creates the search command with one subcommand per search
// strategy over the phylogenetic tree.
func NewSearchCmd() *cobra.Command {
	searchCmd := &cobra.Command{
		Use:   "search",
		Short: "Search the phylogenetic tree",
		Long:  "Search the bound phylogenetic tree by gene placement, species name,\nclade membership, or find the lowest common ancestor of a species set.",
	}

	geneCmd := &cobra.Command{
		Use:   "gene GENE_ID",
		Short: "Find the tree placements of a gene's orthogroup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTreeSearch(cmd, treesearch.KindGene, args[0])
		},
	}

	speciesCmd := &cobra.Command{
		Use:   "species [QUERY]",
		Short: "Find species leaves by code or name substring",
		Long:  "Find species leaves whose code or resolved name contains QUERY.\nAn empty query lists every species leaf in tree order.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := ""
			if len(args) == 1 {
				query = args[0]
			}
			return runTreeSearch(cmd, treesearch.KindSpecies, query)
		},
	}

	cladeCmd := &cobra.Command{
		Use:   "clade QUERY",
		Short: "Find internal clades containing a matching species",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTreeSearch(cmd, treesearch.KindClade, args[0])
		},
	}

	ancestorCmd := &cobra.Command{
		Use:   "ancestor SPECIES SPECIES...",
		Short: "Find the lowest common ancestor of two or more species",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommonAncestor(cmd, args)
		},
	}

	for _, sub := range []*cobra.Command{geneCmd, speciesCmd, cladeCmd} {
		sub.Flags().IntVar(&searchLimit, "limit", 0, "maximum number of results (0 = unlimited)")
	}

	searchCmd.AddCommand(geneCmd, speciesCmd, cladeCmd, ancestorCmd)
	return searchCmd
}

func runTreeSearch(cmd *cobra.Command, kind treesearch.Kind, query string) error {
	if searchLimit < 0 {
		return errors.InvalidParam(fmt.Sprintf("limit must be >= 0, got %d", searchLimit))
	}

	eng, cliCtx, err := openEngine(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := queryContext(cmd, cliCtx)
	defer cancel()

	cliCtx.Logger.Debug("running tree search",
		logging.String("kind", string(kind)),
		logging.String("query", query),
		logging.Int("limit", searchLimit))

	results, err := eng.Tree.Search(ctx, kind, query, searchLimit)
	if err != nil {
		return err
	}

	return PrintResult(cmd, searchResultList{Results: results})
}

func runCommonAncestor(cmd *cobra.Command, species []string) error {
	eng, cliCtx, err := openEngine(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := queryContext(cmd, cliCtx)
	defer cancel()

	cliCtx.Logger.Debug("resolving common ancestor",
		logging.Strings("species", species))

	results, err := eng.Tree.FindCommonAncestor(ctx, species)
	if err != nil {
		return err
	}

	return PrintResult(cmd, searchResultList{Results: results})
}

// searchResultList wraps tree search results for output formatting.
type searchResultList struct {
	Results []treesearch.SearchResult `json:"results"`
}

func (l searchResultList) TableHeaders() []string {
	return []string{"NODE", "TYPE", "DISTANCE", "SUPPORT", "SPECIES", "GENES", "MEMBERS"}
}

func (l searchResultList) TableRows() [][]string {
	rows := make([][]string, 0, len(l.Results))
	for _, r := range l.Results {
		rows = append(rows, []string{
			r.NodeName,
			r.NodeType,
			formatBranchLength(r.DistanceToRoot),
			formatSupport(r.Support),
			strconv.Itoa(r.SpeciesCount),
			strconv.Itoa(r.GeneCount),
			strings.Join(r.CladeMembers, ","),
		})
	}
	return rows
}

func (l searchResultList) RenderText(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()

	if len(l.Results) == 0 {
		fmt.Fprintln(out, "No matching tree nodes found.")
		return nil
	}

	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Node", "Type", "Distance", "Support", "Species", "Genes", "Members"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	for _, r := range l.Results {
		table.Append([]string{
			r.NodeName,
			colorizeNodeType(r.NodeType),
			formatBranchLength(r.DistanceToRoot),
			formatSupport(r.Support),
			strconv.Itoa(r.SpeciesCount),
			strconv.Itoa(r.GeneCount),
			truncateString(strings.Join(r.CladeMembers, ","), 48),
		})
	}
	table.Render()

	fmt.Fprintf(out, "\nTotal results: %d\n", len(l.Results))
	return nil
}

func colorizeNodeType(nodeType string) string {
	if nodeType == treesearch.NodeTypeLeaf {
		return color.GreenString(nodeType)
	}
	return nodeType
}

// formatBranchLength renders a cumulative branch length without trailing
// zeros, matching how newick files carry them.
func formatBranchLength(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func formatSupport(support *float64) string {
	if support == nil {
		return "-"
	}
	return strconv.FormatFloat(*support, 'g', -1, 64)
}
