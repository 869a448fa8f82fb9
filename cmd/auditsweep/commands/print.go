package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"

	"auditsweep/internal/aggregate"
	"auditsweep/internal/utils"
)

// printSummary renders the module@version tallies on stdout.
func printSummary(artifact aggregate.Artifact) {
	fmt.Println()
	fmt.Println("Module@version summary:")
	fmt.Printf("Distinct module@versions : %d\n", artifact.Summary.DistinctModuleVersions)
	fmt.Printf("Total occurrences        : %d\n", artifact.Summary.TotalOccurrences)

	if len(artifact.Summary.Top) == 0 {
		return
	}

	tw := table.NewWriter()
	tw.AppendHeader(table.Row{"Module", "Version", "Count"})
	tw.AppendRows(utils.Map(artifact.Summary.Top, func(entry aggregate.TopEntry) table.Row {
		return table.Row{entry.Module, entry.Version, entry.Count}
	}))
	fmt.Println(tw.Render())
}
