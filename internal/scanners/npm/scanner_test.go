package npm

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auditsweep/internal/report"
)

// fakeAudit builds an Auditor whose command is a shell snippet instead of
// the real npm binary.
func fakeAudit(script string, timeout time.Duration) Auditor {
	return Auditor{Command: Command{Bin: "sh", Args: []string{"-c", script}, Timeout: timeout}}
}

func TestAuditorAudit(t *testing.T) {
	folder := t.TempDir()

	t.Run("exit zero yields the audit payload", func(t *testing.T) {
		res := fakeAudit(`echo '{"vulnerabilities":{}}'`, 5*time.Second).Audit(context.Background(), folder)

		require.Nil(t, res.Failure)
		assert.JSONEq(t, `{"vulnerabilities":{}}`, string(res.Data))
	})

	t.Run("exit one still yields the payload", func(t *testing.T) {
		res := fakeAudit(`echo '{"metadata":{}}'; exit 1`, 5*time.Second).Audit(context.Background(), folder)

		require.Nil(t, res.Failure)
		assert.JSONEq(t, `{"metadata":{}}`, string(res.Data))
	})

	t.Run("empty stdout becomes an empty document", func(t *testing.T) {
		res := fakeAudit(`true`, 5*time.Second).Audit(context.Background(), folder)

		require.Nil(t, res.Failure)
		assert.Equal(t, "{}", string(res.Data))
	})

	t.Run("exit codes past one are npm failures", func(t *testing.T) {
		res := fakeAudit(`echo boom >&2; exit 2`, 5*time.Second).Audit(context.Background(), folder)

		require.NotNil(t, res.Failure)
		assert.Equal(t, report.FailNpm, res.Failure.Kind)
		assert.Equal(t, 2, res.Failure.ReturnCode)
		assert.Contains(t, res.Failure.Stderr, "boom")
		assert.Nil(t, res.Data)
	})

	t.Run("garbage stdout is an invalid_json failure", func(t *testing.T) {
		res := fakeAudit(`echo 'npm WARN this is not json'`, 5*time.Second).Audit(context.Background(), folder)

		require.NotNil(t, res.Failure)
		assert.Equal(t, report.FailInvalidJSON, res.Failure.Kind)
		assert.Contains(t, res.Failure.Stdout, "not json")
	})

	t.Run("overrunning the timeout is a timeout failure", func(t *testing.T) {
		res := fakeAudit(`sleep 2`, 100*time.Millisecond).Audit(context.Background(), folder)

		require.NotNil(t, res.Failure)
		assert.Equal(t, report.FailTimeout, res.Failure.Kind)
		assert.Equal(t, folder, res.Failure.Folder)
	})

	t.Run("a missing binary is a not_found failure", func(t *testing.T) {
		a := Auditor{Command: Command{Bin: "definitely-not-npm-12345", Timeout: time.Second}}

		res := a.Audit(context.Background(), folder)

		require.NotNil(t, res.Failure)
		assert.Equal(t, report.FailNotFound, res.Failure.Kind)
		assert.Equal(t, folder, res.Failure.Folder)
		assert.NotEmpty(t, res.Failure.Message)
	})

	t.Run("whitespace-only stdout is not rewritten", func(t *testing.T) {
		res := fakeAudit(`printf ' '`, 5*time.Second).Audit(context.Background(), folder)

		require.NotNil(t, res.Failure)
		assert.Equal(t, report.FailInvalidJSON, res.Failure.Kind)
	})
}

func TestAuditorRawMirror(t *testing.T) {
	folder := t.TempDir()

	t.Run("successful audits are mirrored under the raw dir", func(t *testing.T) {
		rawDir := filepath.Join(t.TempDir(), "raw")
		a := fakeAudit(`echo '{"advisories":{}}'`, 5*time.Second)
		a.RawDir = rawDir

		res := a.Audit(context.Background(), folder)

		require.Nil(t, res.Failure)
		mirrored, err := os.ReadFile(filepath.Join(rawDir, "npm-"+sanitizePath(folder)+".json"))
		require.NoError(t, err)
		assert.JSONEq(t, `{"advisories":{}}`, string(mirrored))
	})

	t.Run("failed audits are not mirrored", func(t *testing.T) {
		rawDir := filepath.Join(t.TempDir(), "raw")
		a := fakeAudit(`echo broken`, 5*time.Second)
		a.RawDir = rawDir

		res := a.Audit(context.Background(), folder)

		require.NotNil(t, res.Failure)
		_, err := os.Stat(rawDir)
		assert.True(t, os.IsNotExist(err))
	})
}

func TestSanitizePath(t *testing.T) {
	assert.Equal(t, "home_user_my_project", sanitizePath("/home/user/my project"))
	assert.Equal(t, "C__repos_app", sanitizePath(`C:\repos\app`))
}

func TestDefaultCommand(t *testing.T) {
	cmd := DefaultCommand("/usr/bin/npm", 60*time.Second)

	assert.Equal(t, "/usr/bin/npm", cmd.Bin)
	assert.Equal(t, []string{"audit", "--json"}, cmd.Args)
	assert.Equal(t, 60*time.Second, cmd.Timeout)
}
