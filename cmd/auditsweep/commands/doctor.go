package commands

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	depExec "auditsweep/internal/exec"
)

func NewDoctorCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose npm/node availability and PATH",
		Long: `Prints where npm and node resolve on PATH and which versions they
report. Run this when a scan aborts because the tooling is missing.`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			printDiagnostics()
		},
	}
}

// printDiagnostics reports npm/node resolution and the PATH entries the
// lookup walked. Also used right before the missing-tooling abort so the
// failure output carries everything needed to fix it.
func printDiagnostics() {
	tw := table.NewWriter()
	tw.AppendHeader(table.Row{"Tool", "Resolved Path", "Version"})

	for _, tool := range []string{"npm", "node"} {
		path, err := exec.LookPath(tool)
		if err != nil {
			tw.AppendRow(table.Row{tool, "(not found)", "-"})
			continue
		}
		tw.AppendRow(table.Row{tool, path, toolVersion(tool)})
	}

	fmt.Println(tw.Render())

	fmt.Println("PATH entries:")
	for _, entry := range filepath.SplitList(os.Getenv("PATH")) {
		fmt.Println("  " + entry)
	}
}

func toolVersion(tool string) string {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res, err := depExec.Run(ctx, tool, []string{"--version"}, "")
	if err != nil || res.ExitCode != 0 {
		return "(error)"
	}
	return strings.TrimSpace(res.Stdout)
}
