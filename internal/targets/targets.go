// Package targets loads and matches explicit module@version check targets.
package targets

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/pkg/errors"

	"auditsweep/internal/manifest"
	"auditsweep/internal/model"
)

// Set is a membership-only collection of normalized module@version keys.
// The module half is lower-cased, the version half kept verbatim.
type Set map[string]struct{}

func (s Set) Contains(module, version string) bool {
	_, ok := s[module+"@"+version]
	return ok
}

func (s Set) Len() int {
	return len(s)
}

// Load reads a JSON array of "module@version" strings from path. A file
// that is not an array, or an array holding non-string elements, is a hard
// error: a malformed check file must abort the run before any audit starts.
// String entries without an "@" are dropped silently. The split is on the
// FIRST "@", so scoped names like "@babel/core@7.0.0" key under module ""
// with the scope folded into the version half.
func Load(path string) (Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load check file %s", path)
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrapf(err, "failed to load check file %s", path)
	}
	entries, ok := doc.([]any)
	if !ok {
		return nil, errors.Errorf("check file must contain a JSON array of targets: %s", path)
	}

	set := Set{}
	for _, entry := range entries {
		item, ok := entry.(string)
		if !ok {
			return nil, errors.Errorf("invalid check file entry (entries must be strings like 'module@version'): %v", entry)
		}
		if !strings.Contains(item, "@") {
			continue
		}
		mod, ver, _ := strings.Cut(item, "@")
		set[strings.ToLower(mod)+"@"+ver] = struct{}{}
	}
	return set, nil
}

// Matches reports whether the issue corresponds to any loaded target. The
// module name comes from the issue's resolution chain and is lower-cased;
// an issue without one can never match. Version evidence is then probed in
// priority order: via entries, the finding's installed version, its
// vulnerable range (or the issue's), and finally a version resolved from
// dependency-tree node paths on disk.
func Matches(issue model.Issue, set Set, projectRoot string) bool {
	name := issue.Name()
	if name == "" {
		return false
	}
	module := strings.ToLower(name)
	finding := issue.DecodeFinding()

	if matchesVia(finding.Via, module, set) {
		return true
	}

	if finding.Version != "" && set.Contains(module, finding.Version) {
		return true
	}

	rng := finding.Range
	if rng == "" {
		rng = issue.Range
	}
	if rng != "" && set.Contains(module, rng) {
		return true
	}

	if len(finding.Nodes) > 0 {
		if res, ok := manifest.Resolve(finding.Nodes, projectRoot); ok && set.Contains(module, res.Version) {
			return true
		}
	}

	return false
}

// matchesVia probes the finding's via list entry by entry. String entries
// are "name@version" with the version after the LAST "@", since scoped
// package names start with one themselves. Object entries carry
// name/version fields, the name defaulting to the issue's module. Entries
// of any other shape are skipped.
func matchesVia(via []json.RawMessage, module string, set Set) bool {
	for _, raw := range via {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			idx := strings.LastIndex(s, "@")
			if idx < 0 {
				continue
			}
			mod, ver := s[:idx], s[idx+1:]
			if strings.ToLower(mod) == module && set.Contains(module, ver) {
				return true
			}
			continue
		}

		var entry struct {
			Name    string `json:"name"`
			Version string `json:"version"`
		}
		_ = json.Unmarshal(raw, &entry)
		if entry.Version == "" {
			continue
		}
		name := entry.Name
		if name == "" {
			name = module
		}
		if strings.ToLower(name) == module && set.Contains(module, entry.Version) {
			return true
		}
	}
	return false
}
