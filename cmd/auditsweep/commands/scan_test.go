package commands

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auditsweep/internal/report"
	"auditsweep/internal/scanners/npm"
	"auditsweep/internal/targets"
)

// criticalAuditor fakes an npm audit reporting one critical minimist issue.
func criticalAuditor() npm.Auditor {
	payload := `{"vulnerabilities":{"minimist":{"name":"minimist","severity":"critical","version":"1.2.0"}}}`
	return npm.Auditor{Command: npm.Command{Bin: "sh", Args: []string{"-c", "echo '" + payload + "'"}, Timeout: 5 * time.Second}}
}

func TestAuditProject(t *testing.T) {
	folder := t.TempDir()

	t.Run("keeps every issue when no targets are given", func(t *testing.T) {
		entry := auditProject(context.Background(), criticalAuditor(), folder, nil)

		require.Nil(t, entry.Error)
		require.Len(t, entry.CriticalIssues, 1)
		assert.Equal(t, "minimist", entry.CriticalIssues[0].ModuleName)
	})

	t.Run("a target list with no usable entries does not filter", func(t *testing.T) {
		entry := auditProject(context.Background(), criticalAuditor(), folder, targets.Set{})

		require.Nil(t, entry.Error)
		assert.Len(t, entry.CriticalIssues, 1)
	})

	t.Run("populated targets keep matches and drop the rest", func(t *testing.T) {
		hit := auditProject(context.Background(), criticalAuditor(), folder, targets.Set{"minimist@1.2.0": {}})
		assert.Len(t, hit.CriticalIssues, 1)

		miss := auditProject(context.Background(), criticalAuditor(), folder, targets.Set{"minimist@9.9.9": {}})
		assert.Empty(t, miss.CriticalIssues)
	})

	t.Run("failures are recorded on the entry, issues stay empty", func(t *testing.T) {
		broken := npm.Auditor{Command: npm.Command{Bin: "sh", Args: []string{"-c", "echo nope >&2; exit 2"}, Timeout: 5 * time.Second}}

		entry := auditProject(context.Background(), broken, folder, nil)

		require.NotNil(t, entry.Error)
		assert.Equal(t, report.FailNpm, entry.Error.Kind)
		assert.NotNil(t, entry.CriticalIssues)
		assert.Empty(t, entry.CriticalIssues)
	})
}
