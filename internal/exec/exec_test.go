package exec

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	t.Run("captures stdout and exit code zero", func(t *testing.T) {
		res, err := Run(context.Background(), "sh", []string{"-c", "echo hello"}, "")

		require.NoError(t, err)
		assert.Equal(t, 0, res.ExitCode)
		assert.Equal(t, "hello", strings.TrimSpace(res.Stdout))
	})

	t.Run("runs in the given working directory", func(t *testing.T) {
		dir := t.TempDir()

		res, err := Run(context.Background(), "pwd", nil, dir)

		require.NoError(t, err)
		assert.Contains(t, strings.TrimSpace(res.Stdout), dir)
	})

	t.Run("propagates nonzero exit codes", func(t *testing.T) {
		res, err := Run(context.Background(), "sh", []string{"-c", "echo oops >&2; exit 3"}, "")

		require.Error(t, err)
		assert.Equal(t, 3, res.ExitCode)
		assert.Equal(t, "oops", strings.TrimSpace(res.Stderr))
	})

	t.Run("missing executables map to 127", func(t *testing.T) {
		res, _ := Run(context.Background(), "nonexistentcommand12345", nil, "")

		assert.Equal(t, ExitNotFound, res.ExitCode)
	})

	t.Run("deadline kills map to 124", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		res, _ := Run(ctx, "sleep", []string{"2"}, "")
		if res.ExitCode == ExitNotFound {
			t.Skip("sleep not available, skipping timeout test")
		}

		assert.Equal(t, ExitTimeout, res.ExitCode)
	})
}
