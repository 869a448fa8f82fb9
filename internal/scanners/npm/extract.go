package npm

import (
	"encoding/json"
	"maps"
	"slices"

	"auditsweep/internal/model"
)

// The npm audit schema changed across major versions: npm <=6 reports an
// "advisories" map keyed by advisory id, npm >=7 a "vulnerabilities" map
// keyed by module name, and both carry a "metadata" block with severity
// totals. The three shapes are probed independently, so a payload carrying
// more than one contributes issues from each.

type auditDocument struct {
	Advisories      map[string]json.RawMessage `json:"advisories"`
	Vulnerabilities map[string]json.RawMessage `json:"vulnerabilities"`
	Metadata        json.RawMessage            `json:"metadata"`
}

type advisoryInfo struct {
	Severity string `json:"severity"`
	Vuln     struct {
		Severity string `json:"severity"`
	} `json:"vuln"`
	Title      string `json:"title"`
	ModuleName string `json:"module_name"`
	URL        string `json:"url"`
}

type vulnerabilityInfo struct {
	Severity string `json:"severity"`
}

type auditMetadata struct {
	Vulnerabilities struct {
		Critical float64 `json:"critical"`
	} `json:"vulnerabilities"`
}

// ExtractCritical pulls the critical-severity issues out of raw npm audit
// output. Entries of unknown shape are skipped individually rather than
// failing the extraction; a payload matching no known shape yields no
// issues. When the metadata block counts criticals, a metadata sentinel is
// appended even if the maps already itemized them, so a summary-only
// payload can never report zero.
func ExtractCritical(raw json.RawMessage) []model.Issue {
	issues := []model.Issue{}
	if len(raw) == 0 {
		return issues
	}

	var doc auditDocument
	_ = json.Unmarshal(raw, &doc)

	for _, id := range slices.Sorted(maps.Keys(doc.Advisories)) {
		info := doc.Advisories[id]
		var adv advisoryInfo
		_ = json.Unmarshal(info, &adv)

		severity := adv.Severity
		if severity == "" {
			severity = adv.Vuln.Severity
		}
		if sev, _ := model.ParseSeverity(severity); sev != model.SeverityCritical {
			continue
		}

		issues = append(issues, model.Issue{
			ID:         id,
			Title:      adv.Title,
			ModuleName: adv.ModuleName,
			Severity:   model.SeverityCritical,
			URL:        adv.URL,
			Finding:    info,
		})
	}

	for _, name := range slices.Sorted(maps.Keys(doc.Vulnerabilities)) {
		info := doc.Vulnerabilities[name]
		var vuln vulnerabilityInfo
		_ = json.Unmarshal(info, &vuln)

		if sev, _ := model.ParseSeverity(vuln.Severity); sev != model.SeverityCritical {
			continue
		}

		issues = append(issues, model.Issue{
			ModuleName: name,
			Severity:   model.SeverityCritical,
			Finding:    info,
		})
	}

	if len(doc.Metadata) > 0 {
		var meta auditMetadata
		_ = json.Unmarshal(doc.Metadata, &meta)
		if meta.Vulnerabilities.Critical != 0 {
			issues = append(issues, model.Issue{Metadata: doc.Metadata})
		}
	}

	return issues
}
