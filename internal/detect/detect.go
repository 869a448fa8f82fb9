// Package detect discovers npm project directories under a start folder.
package detect

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Options tunes the discovery walk.
type Options struct {
	// IncludeVenvs keeps Python virtualenv trees in the walk. They
	// regularly embed package.json files nobody can act on, so discovery
	// skips them unless asked otherwise.
	IncludeVenvs bool
}

// Directories never worth descending into (match on any path component,
// case-insensitive). node_modules manifests belong to dependencies, not
// projects.
var ignoredComponents = map[string]struct{}{
	".git":         {},
	"node_modules": {},
}

// venvComponents are skipped unless Options.IncludeVenvs is set.
var venvComponents = map[string]struct{}{
	".venv":         {},
	"venv":          {},
	"env":           {},
	"site-packages": {},
}

// manifestNames mark a directory as an npm project.
var manifestNames = map[string]struct{}{
	"package.json":      {},
	"package-lock.json": {},
}

// Projects walks the tree under start and returns every directory that
// directly contains an npm manifest, absolute and sorted. A directory
// holding both manifest files is reported once.
func Projects(start string, opts Options) ([]string, error) {
	absStart, err := filepath.Abs(start)
	if err != nil {
		return nil, err
	}

	found := map[string]struct{}{}
	err = filepath.Walk(absStart, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			// An unreadable subtree cannot hold an auditable project;
			// skip it rather than aborting the whole discovery.
			if errors.Is(err, fs.ErrPermission) {
				return nil
			}
			return err
		}

		if info.IsDir() {
			if skipDir(path, opts) {
				return filepath.SkipDir
			}
			return nil
		}

		if _, ok := manifestNames[info.Name()]; ok {
			found[filepath.Dir(path)] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	projects := make([]string, 0, len(found))
	for dir := range found {
		projects = append(projects, dir)
	}
	sort.Strings(projects)
	return projects, nil
}

// skipDir decides whether the walk prunes at dir. The check runs over the
// full path's components, so starting the walk inside an excluded tree
// (a node_modules checkout, a virtualenv) yields no projects at all.
func skipDir(dir string, opts Options) bool {
	parts := strings.Split(dir, string(filepath.Separator))
	hasShare, hasJupyter := false, false
	for _, part := range parts {
		p := strings.ToLower(part)
		if _, ok := ignoredComponents[p]; ok {
			return true
		}
		if !opts.IncludeVenvs {
			if _, ok := venvComponents[p]; ok {
				return true
			}
			hasShare = hasShare || p == "share"
			hasJupyter = hasJupyter || p == "jupyter"
		}
	}
	// Jupyter data dirs (share/jupyter) ship example manifests.
	return hasShare && hasJupyter
}
