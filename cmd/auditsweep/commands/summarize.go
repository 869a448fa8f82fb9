package commands

import (
	"encoding/json"
	"log/slog"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"auditsweep/internal/aggregate"
	"auditsweep/internal/report"
)

func NewSummarizeCommand() *cobra.Command {
	summarizeCmd := &cobra.Command{
		Use:   "summarize <report.json>",
		Short: "Rebuild the module@version summary from an existing audit report",
		Long: `Reads an audit report written by 'auditsweep scan' and recomputes the
module@version summary from its retained issues. Useful for re-ranking an
old report with a different --top limit without re-auditing anything.`,
		Args: cobra.ExactArgs(1),
		RunE: runSummarize,
	}

	summarizeCmd.Flags().Int("top", 0, "Limit the summary listing to the first N module@versions (0 = all)")
	summarizeCmd.Flags().StringP("out", "o", "", "Summary output path (default derived from the report path)")

	return summarizeCmd
}

func runSummarize(cmd *cobra.Command, args []string) error {
	reportPath := args[0]

	data, err := os.ReadFile(reportPath)
	if err != nil {
		return errors.Wrapf(err, "could not read report %s", reportPath)
	}

	var rep report.Report
	if err := json.Unmarshal(data, &rep); err != nil {
		return errors.Wrapf(err, "%s is not an audit report", reportPath)
	}

	top, _ := cmd.Flags().GetInt("top")
	out, _ := cmd.Flags().GetString("out")
	if out == "" {
		out = report.SummaryFilename(reportPath)
	}

	artifact := aggregate.Summarize(rep, top)
	if err := artifact.Write(out); err != nil {
		return err
	}
	slog.Info("wrote module@version summary", "path", out,
		"distinct", artifact.Summary.DistinctModuleVersions,
		"occurrences", artifact.Summary.TotalOccurrences)

	printSummary(artifact)
	return nil
}
