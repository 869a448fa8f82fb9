package commands

import (
	"context"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"auditsweep/internal/aggregate"
	"auditsweep/internal/config"
	"auditsweep/internal/detect"
	"auditsweep/internal/model"
	"auditsweep/internal/report"
	"auditsweep/internal/scanners/npm"
	"auditsweep/internal/targets"
	"auditsweep/internal/utils"
)

// Exit codes kept stable for scripts wrapping the tool: 2 flags a bad
// start folder, 3 missing npm/node tooling.
const (
	exitBadStart     = 2
	exitMissingTools = 3
)

func NewScanCommand() *cobra.Command {
	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "Discover npm projects and audit each one",
		Long: `Walks the start folder for directories containing a package.json or
package-lock.json (skipping node_modules and virtualenv trees), runs
'npm audit --json' in each, and writes a timestamped report plus a
module@version summary of the critical issues found.

With --check-file, only issues matching the listed module@version targets
are kept.`,
		Args: cobra.NoArgs,
		RunE: runScan,
	}

	scanCmd.Flags().StringP("start", "s", ".", "Start folder to search for npm projects")
	scanCmd.Flags().StringP("check-file", "c", "", "JSON array of module@version targets; only matching issues are kept")
	scanCmd.Flags().StringP("out", "o", ".", "Directory the report files are written to")
	scanCmd.Flags().Int("timeout", config.DefaultTimeoutSec, "Per-project npm audit timeout in seconds")
	scanCmd.Flags().Int("top", 0, "Limit the summary listing to the first N module@versions (0 = all)")
	scanCmd.Flags().Bool("include-venvs", false, "Audit package.json files inside Python virtualenvs too")

	return scanCmd
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := config.Parse()
	if err != nil {
		return err
	}

	start, err := cfg.ResolveStart()
	if err != nil {
		slog.Error("start folder does not exist", "start", cfg.Start)
		os.Exit(exitBadStart)
	}

	npmPath, err := ensureTooling()
	if err != nil {
		slog.Error(err.Error())
		printDiagnostics()
		os.Exit(exitMissingTools)
	}

	var set targets.Set
	if cfg.CheckFile != "" {
		set, err = targets.Load(cfg.CheckFile)
		if err != nil {
			return err
		}
		slog.Info("loaded explicit module@version targets", "count", set.Len(), "file", cfg.CheckFile)
	}

	projects, err := detect.Projects(start, detect.Options{IncludeVenvs: cfg.IncludeVenvs})
	if err != nil {
		return errors.Wrap(err, "project discovery failed")
	}
	slog.Info("discovered npm projects", "count", len(projects), "start", start)

	auditor := npm.Auditor{
		Command: npm.DefaultCommand(npmPath, time.Duration(cfg.TimeoutSec)*time.Second),
		RawDir:  filepath.Join(cfg.OutDir, "raw"),
	}

	rep := report.New(start, len(projects))
	slog.Info("starting audit run", "run_id", rep.RunID)

	bar := progressbar.Default(int64(len(projects)))
	for _, project := range projects {
		rep.Append(auditProject(cmd.Context(), auditor, project, set))
		_ = bar.Add(1)
	}

	rep.Finalize()

	if err := os.MkdirAll(cfg.OutDir, 0755); err != nil {
		return errors.Wrapf(err, "could not create output directory %s", cfg.OutDir)
	}
	reportPath := filepath.Join(cfg.OutDir, report.Filename(start, time.Now()))
	if err := rep.Write(reportPath); err != nil {
		return err
	}
	slog.Info("wrote audit report",
		"path", reportPath,
		"projects", rep.Summary.TotalProjects,
		"critical_issues", rep.Summary.TotalCriticalIssues)

	artifact := aggregate.Summarize(*rep, cfg.Top)
	summaryPath := report.SummaryFilename(reportPath)
	if err := artifact.Write(summaryPath); err != nil {
		slog.Warn("could not write module@version summary", "err", err)
	} else {
		slog.Info("wrote module@version summary", "path", summaryPath)
	}

	printSummary(artifact)
	return nil
}

// auditProject audits one folder and folds the outcome into a report
// entry. Failures are recorded, never propagated: one broken project must
// not stop the sweep.
func auditProject(ctx context.Context, auditor npm.Auditor, folder string, set targets.Set) report.Entry {
	slog.Info("auditing", "folder", folder)

	entry := report.Entry{Folder: folder, CriticalIssues: []model.Issue{}}

	res := auditor.Audit(ctx, folder)
	if res.Failure != nil {
		slog.Warn("audit failed", "folder", folder, "kind", res.Failure.Kind)
		entry.Error = res.Failure
		return entry
	}

	entry.Raw = res.Data
	issues := npm.ExtractCritical(res.Data)
	// A check file whose entries were all dropped leaves an empty set;
	// that means "no filter", not "drop everything".
	if set.Len() > 0 {
		issues = utils.Filter(issues, func(issue model.Issue) bool {
			return targets.Matches(issue, set, folder)
		})
	}
	entry.CriticalIssues = append(entry.CriticalIssues, issues...)

	if len(entry.CriticalIssues) > 0 {
		slog.Warn("critical issues found", "folder", folder, "count", len(entry.CriticalIssues))
	}
	return entry
}

// ensureTooling resolves npm on PATH and verifies node is present too;
// auditing is pointless without both.
func ensureTooling() (string, error) {
	npmPath, err := exec.LookPath("npm")
	if err != nil {
		return "", errors.New("npm not found on PATH, aborting audits")
	}
	if _, err := exec.LookPath("node"); err != nil {
		return "", errors.New("node not found on PATH, aborting audits")
	}
	return npmPath, nil
}
