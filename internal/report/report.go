// Package report assembles and writes the per-run audit report.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"auditsweep/internal/model"
)

// Failure classification per audited project. The kind strings end up in
// the report's error field verbatim.
const (
	FailTimeout     = "timeout"
	FailNotFound    = "not_found"
	FailNpm         = "npm_failed"
	FailInvalidJSON = "invalid_json"
)

// Failure describes why one project's audit produced no data. Only the
// fields meaningful for the kind are populated: timeouts and missing
// binaries name the folder, npm failures the exit code and stderr, invalid
// output the captured streams.
type Failure struct {
	Kind       string `json:"error"`
	Folder     string `json:"folder,omitempty"`
	Message    string `json:"message,omitempty"`
	ReturnCode int    `json:"returncode,omitempty"`
	Stderr     string `json:"stderr,omitempty"`
	Stdout     string `json:"stdout,omitempty"`
}

// Entry is the outcome of auditing one project folder. Exactly one of
// Error or Raw is set; CriticalIssues is always present, empty on failure.
type Entry struct {
	Folder         string          `json:"folder"`
	Error          *Failure        `json:"error"`
	CriticalIssues []model.Issue   `json:"critical_issues"`
	Raw            json.RawMessage `json:"raw"`
}

// Totals are the run-level counters.
type Totals struct {
	TotalProjects       int `json:"total_projects"`
	TotalCriticalIssues int `json:"total_critical_issues"`
}

// Report is the full run artifact: one entry per discovered project plus
// run identity and totals.
type Report struct {
	Start           string  `json:"start"`
	RunID           string  `json:"run_id"`
	ProjectsScanned int     `json:"projects_scanned"`
	Results         []Entry `json:"results"`
	Summary         Totals  `json:"summary"`
	GeneratedAt     string  `json:"generated_at"`
}

// New starts a report for a run over projectCount discovered projects.
func New(start string, projectCount int) *Report {
	return &Report{
		Start:           start,
		RunID:           uuid.New().String(),
		ProjectsScanned: projectCount,
		Results:         make([]Entry, 0, projectCount),
	}
}

func (r *Report) Append(entry Entry) {
	r.Results = append(r.Results, entry)
}

// Finalize computes the run totals and stamps the generation time. The
// metadata sentinel counts like any retained issue, so a run whose audits
// only reported summary counts still shows a nonzero total.
func (r *Report) Finalize() {
	total := 0
	for _, entry := range r.Results {
		total += len(entry.CriticalIssues)
	}
	r.Summary = Totals{TotalProjects: r.ProjectsScanned, TotalCriticalIssues: total}
	r.GeneratedAt = time.Now().Format(time.RFC3339)
}

// Write marshals the report, indented, to path.
func (r *Report) Write(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal audit report")
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrapf(err, "failed to write audit report %s", path)
	}
	return nil
}

// Filename derives the report file name from the audited start folder and
// a timestamp, e.g. "audits-myrepo_20260825T153000+0200.json". A start
// folder with no usable base name falls back to "root".
func Filename(start string, now time.Time) string {
	base := filepath.Base(filepath.Clean(start))
	if base == "." || base == string(filepath.Separator) || base == "" {
		base = "root"
	}
	return fmt.Sprintf("audits-%s_%s.json", base, now.Format("20060102T150405-0700"))
}

// SummaryFilename derives the module@version summary path from the report
// path by appending "_critical_versions" before the extension.
func SummaryFilename(reportPath string) string {
	ext := filepath.Ext(reportPath)
	base := strings.TrimSuffix(reportPath, ext)
	if ext == "" {
		ext = ".json"
	}
	return base + "_critical_versions" + ext
}
