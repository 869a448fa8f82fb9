package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auditsweep/internal/model"
)

func TestFilename(t *testing.T) {
	now := time.Date(2026, 8, 25, 15, 30, 0, 0, time.UTC)

	t.Run("uses the start folder base name", func(t *testing.T) {
		assert.Equal(t, "audits-myrepo_20260825T153000+0000.json", Filename("/home/dev/myrepo", now))
	})

	t.Run("trailing separators are ignored", func(t *testing.T) {
		assert.Equal(t, "audits-myrepo_20260825T153000+0000.json", Filename("/home/dev/myrepo/", now))
	})

	t.Run("the filesystem root falls back to root", func(t *testing.T) {
		assert.Equal(t, "audits-root_20260825T153000+0000.json", Filename("/", now))
	})
}

func TestSummaryFilename(t *testing.T) {
	assert.Equal(t, "/tmp/audits-x_1_critical_versions.json", SummaryFilename("/tmp/audits-x_1.json"))
	assert.Equal(t, "report_critical_versions.json", SummaryFilename("report"))
}

func TestReportFinalize(t *testing.T) {
	rep := New("/work/tree", 3)
	rep.Append(Entry{
		Folder:         "/work/tree/a",
		CriticalIssues: []model.Issue{{ModuleName: "open", Severity: model.SeverityCritical}},
	})
	rep.Append(Entry{
		Folder:         "/work/tree/b",
		Error:          &Failure{Kind: FailTimeout, Folder: "/work/tree/b"},
		CriticalIssues: []model.Issue{},
	})
	rep.Append(Entry{
		Folder: "/work/tree/c",
		CriticalIssues: []model.Issue{
			{ModuleName: "minimist", Severity: model.SeverityCritical},
			{Metadata: json.RawMessage(`{"vulnerabilities":{"critical":1}}`)},
		},
	})

	rep.Finalize()

	assert.Equal(t, 3, rep.Summary.TotalProjects)
	// The metadata sentinel counts toward the total.
	assert.Equal(t, 3, rep.Summary.TotalCriticalIssues)
	assert.NotEmpty(t, rep.GeneratedAt)
	assert.NotEmpty(t, rep.RunID)
}

func TestReportWrite(t *testing.T) {
	rep := New("/work/tree", 1)
	rep.Append(Entry{
		Folder:         "/work/tree/a",
		CriticalIssues: []model.Issue{},
		Raw:            json.RawMessage(`{"metadata":{}}`),
	})
	rep.Finalize()

	path := filepath.Join(t.TempDir(), "audits.json")
	require.NoError(t, rep.Write(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "/work/tree", decoded["start"])
	assert.Equal(t, float64(1), decoded["projects_scanned"])

	results := decoded["results"].([]any)
	require.Len(t, results, 1)
	entry := results[0].(map[string]any)

	// Failure-free entries keep explicit nulls and an empty issue list.
	assert.Nil(t, entry["error"])
	assert.Equal(t, []any{}, entry["critical_issues"])
	assert.NotNil(t, entry["raw"])
}

func TestFailureSerialization(t *testing.T) {
	t.Run("npm failures carry returncode and stderr only", func(t *testing.T) {
		out, err := json.Marshal(Failure{Kind: FailNpm, ReturnCode: 2, Stderr: "boom"})
		require.NoError(t, err)
		assert.JSONEq(t, `{"error":"npm_failed","returncode":2,"stderr":"boom"}`, string(out))
	})

	t.Run("timeouts carry the folder", func(t *testing.T) {
		out, err := json.Marshal(Failure{Kind: FailTimeout, Folder: "/p"})
		require.NoError(t, err)
		assert.JSONEq(t, `{"error":"timeout","folder":"/p"}`, string(out))
	})
}
