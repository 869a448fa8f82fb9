package model

import "encoding/json"

// Issue is one normalized critical finding extracted from npm audit output.
// Issues come in two flavors: named issues carry a module name (or at least
// an advisory id) plus the finding payload they were extracted from, while
// the metadata sentinel carries only the audit metadata block and records
// that the audit summary counted criticals which were never itemized.
type Issue struct {
	ID         string          `json:"id,omitempty"`
	Title      string          `json:"title,omitempty"`
	ModuleName string          `json:"module_name,omitempty"`
	Severity   Severity        `json:"severity,omitempty"`
	URL        string          `json:"url,omitempty"`
	Range      string          `json:"range,omitempty"`
	Finding    json.RawMessage `json:"finding,omitempty"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
}

// Finding is the decoded view of an Issue's finding payload. Only the
// fields matching and version resolution care about are surfaced; the
// payload itself stays attached to the Issue verbatim.
type Finding struct {
	Name    string            `json:"name"`
	Version string            `json:"version"`
	Range   string            `json:"range"`
	Via     []json.RawMessage `json:"via"`
	Nodes   []string          `json:"nodes"`
}

// DecodeFinding decodes the finding payload best-effort: fields that do
// not fit keep their zero value, a malformed payload yields an empty view.
func (i Issue) DecodeFinding() Finding {
	var f Finding
	if len(i.Finding) > 0 {
		_ = json.Unmarshal(i.Finding, &f)
	}
	return f
}

// Name resolves the module name used for matching and aggregation: the
// explicit module_name first, the advisory id second, the finding payload's
// own name field last. Empty means the issue cannot be attributed to a
// module at all (the metadata sentinel, typically).
func (i Issue) Name() string {
	if i.ModuleName != "" {
		return i.ModuleName
	}
	if i.ID != "" {
		return i.ID
	}
	return i.DecodeFinding().Name
}
