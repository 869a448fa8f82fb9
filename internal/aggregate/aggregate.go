// Package aggregate tallies retained issues into the module@version
// summary artifact.
package aggregate

import (
	"encoding/json"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"auditsweep/internal/manifest"
	"auditsweep/internal/report"
	"auditsweep/internal/utils"
)

// Artifact is the module@version summary written alongside the audit
// report. Counts keys are "module@version" with the module name in its
// original case; the version half is either a resolved installed version
// or the vulnerable range ("unknown" when neither exists).
type Artifact struct {
	Summary     Stats                `json:"summary"`
	Counts      map[string]int       `json:"counts"`
	Examples    map[string][]Example `json:"examples"`
	GeneratedAt string               `json:"generated_at"`
}

// Stats are the headline numbers plus the sorted listing.
type Stats struct {
	DistinctModuleVersions int        `json:"distinct_module_versions"`
	TotalOccurrences       int        `json:"total_occurrences"`
	Top                    []TopEntry `json:"top"`
}

// TopEntry is one row of the sorted module@version listing.
type TopEntry struct {
	Module  string `json:"module"`
	Version string `json:"version"`
	Count   int    `json:"count"`
}

// Example records where one occurrence of a module was pinned down. Path
// is nil when no manifest was found on disk and the vulnerable range (or
// "unknown") stood in for a concrete version.
type Example struct {
	Version string  `json:"version"`
	Path    *string `json:"path"`
}

// Summarize tallies module@version occurrences across every retained issue
// in the report. Versions are resolved from the issue's dependency-tree
// nodes where possible, falling back to the vulnerable range and finally
// to "unknown". Issues without a resolvable module name, the metadata
// sentinel among them, are skipped. limit > 0 truncates the sorted
// listing; the counts and examples maps always stay complete.
func Summarize(rep report.Report, limit int) Artifact {
	counts := map[string]int{}
	examples := map[string][]Example{}

	for _, entry := range rep.Results {
		for _, issue := range entry.CriticalIssues {
			name := issue.Name()
			if name == "" {
				continue
			}
			finding := issue.DecodeFinding()

			if res, ok := manifest.Resolve(finding.Nodes, entry.Folder); ok {
				counts[name+"@"+res.Version]++
				examples[name] = append(examples[name], Example{Version: res.Version, Path: utils.Ptr(res.Dir)})
				continue
			}

			rng := finding.Range
			if rng == "" {
				rng = issue.Range
			}
			if rng == "" {
				rng = "unknown"
			}
			counts[name+"@"+rng]++
			examples[name] = append(examples[name], Example{Version: rng})
		}
	}

	top := make([]TopEntry, 0, len(counts))
	for key, count := range counts {
		module, version, _ := strings.Cut(key, "@")
		top = append(top, TopEntry{Module: module, Version: version, Count: count})
	}
	sort.Slice(top, func(i, j int) bool {
		mi, mj := strings.ToLower(top[i].Module), strings.ToLower(top[j].Module)
		if mi != mj {
			return mi < mj
		}
		if top[i].Version != top[j].Version {
			return top[i].Version < top[j].Version
		}
		return top[i].Module < top[j].Module
	})
	if limit > 0 && len(top) > limit {
		top = top[:limit]
	}

	total := 0
	for _, count := range counts {
		total += count
	}

	return Artifact{
		Summary: Stats{
			DistinctModuleVersions: len(counts),
			TotalOccurrences:       total,
			Top:                    top,
		},
		Counts:      counts,
		Examples:    examples,
		GeneratedAt: time.Now().Format(time.RFC3339),
	}
}

// Write marshals the artifact, indented, to path.
func (a Artifact) Write(path string) error {
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal summary artifact")
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrapf(err, "failed to write summary artifact %s", path)
	}
	return nil
}
