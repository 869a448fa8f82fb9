// Package manifest resolves installed package versions from package.json
// files on disk.
package manifest

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// maxWalkDepth bounds the upward walk from a dependency node path to the
// nearest package.json: the node path itself plus five ancestors.
const maxWalkDepth = 6

// Resolution is a version read from a package.json together with the
// directory the manifest lives in.
type Resolution struct {
	Version string
	Dir     string
}

// ReadVersion returns the version field of dir/package.json, or "" when the
// manifest is missing, unreadable or carries no version. Errors are
// swallowed on purpose: a broken manifest means "no version here", not a
// failure of the run.
func ReadVersion(dir string) string {
	data, err := os.ReadFile(filepath.Join(dir, "package.json"))
	if err != nil {
		return ""
	}
	var pkg struct {
		Version string `json:"version"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return ""
	}
	return pkg.Version
}

// Resolve maps dependency-tree node paths to an installed version by
// walking up from each node towards the filesystem root, at most
// maxWalkDepth levels, and returning the first manifest version found.
// Relative node paths are anchored at projectRoot, absolute ones are used
// as-is. The second return is false when every node is exhausted without a
// hit.
func Resolve(nodes []string, projectRoot string) (Resolution, bool) {
	for _, node := range nodes {
		cur := nodePath(node, projectRoot)
		for range maxWalkDepth {
			if info, err := os.Stat(cur); err == nil && info.IsDir() {
				if ver := ReadVersion(cur); ver != "" {
					return Resolution{Version: ver, Dir: cur}, true
				}
			}
			parent := filepath.Dir(cur)
			if parent == cur {
				break
			}
			cur = parent
		}
	}
	return Resolution{}, false
}

func nodePath(node, projectRoot string) string {
	if filepath.IsAbs(node) {
		return filepath.Clean(node)
	}
	return filepath.Join(projectRoot, node)
}
