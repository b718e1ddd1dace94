package cli

import (
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/orthoatlas/orthoatlas/internal/application/dataset"
)

// NewSpeciesCmd creates the species command: the resolver check for one code
// or the full species column listing.
func NewSpeciesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "species [CODE]",
		Short: "List species columns or resolve a single species code",
		Long:  "Without arguments, list every species column with its resolved display\nname, gene total and tree presence. With CODE, resolve that code; codes\noutside the dataset still resolve to a synthesized fallback name.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return runSpeciesGet(cmd, args[0])
			}
			return runSpeciesList(cmd)
		},
	}
}

func runSpeciesList(cmd *cobra.Command) error {
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

	return PrintResult(cmd, speciesInfoList{Species: snap.SpeciesInfos()})
}

func runSpeciesGet(cmd *cobra.Command, code string) error {
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

	return PrintResult(cmd, speciesDetail{SpeciesInfo: snap.SpeciesInfoFor(code)})
}

// speciesInfoList wraps the species listing for output formatting.
type speciesInfoList struct {
	Species []dataset.SpeciesInfo `json:"species"`
}

func (l speciesInfoList) TableHeaders() []string {
	return []string{"CODE", "NAME", "FALLBACK", "GENES", "IN_TREE"}
}

func (l speciesInfoList) TableRows() [][]string {
	rows := make([][]string, 0, len(l.Species))
	for _, s := range l.Species {
		rows = append(rows, []string{
			s.Code,
			s.Name,
			strconv.FormatBool(s.Fallback),
			strconv.Itoa(s.GeneTotal),
			strconv.FormatBool(s.InTree),
		})
	}
	return rows
}

func (l speciesInfoList) RenderText(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()

	if len(l.Species) == 0 {
		fmt.Fprintln(out, "No species columns in the dataset.")
		return nil
	}

	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Code", "Name", "Genes", "In Tree"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	for _, s := range l.Species {
		name := s.Name
		if s.Fallback {
			// Synthesized names stand out so curators can spot metadata gaps.
			name = color.YellowString(name)
		}
		table.Append([]string{
			s.Code,
			name,
			strconv.Itoa(s.GeneTotal),
			strconv.FormatBool(s.InTree),
		})
	}
	table.Render()

	fmt.Fprintf(out, "\nTotal species: %d\n", len(l.Species))
	return nil
}

// speciesDetail wraps a single resolved species for output formatting.
type speciesDetail struct {
	dataset.SpeciesInfo
}

func (d speciesDetail) TableHeaders() []string {
	return []string{"CODE", "NAME", "FALLBACK", "GENES", "IN_TREE"}
}

func (d speciesDetail) TableRows() [][]string {
	return [][]string{{
		d.Code,
		d.Name,
		strconv.FormatBool(d.Fallback),
		strconv.Itoa(d.GeneTotal),
		strconv.FormatBool(d.InTree),
	}}
}

func (d speciesDetail) RenderText(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()

	name := d.Name
	if d.Fallback {
		name = color.YellowString(name + " (synthesized)")
	}

	fmt.Fprintf(out, "Code:     %s\n", d.Code)
	fmt.Fprintf(out, "Name:     %s\n", name)
	fmt.Fprintf(out, "Genes:    %d\n", d.GeneTotal)
	fmt.Fprintf(out, "In tree:  %t\n", d.InTree)
	return nil
}
