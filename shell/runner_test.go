package shell_test

import (
	"bytes"
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/gruntwork-io/solarboat/shell"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireSh(t *testing.T) {
	t.Helper()

	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available on PATH")
	}
}

func TestRunSuccess(t *testing.T) {
	requireSh(t)
	t.Parallel()

	r := shell.New(nil)
	outcome := r.Run(context.Background(), shell.Options{
		Argv:    []string{"sh", "-c", "echo hello"},
		Timeout: 5 * time.Second,
	})

	require.Equal(t, shell.Success, outcome.Status)
	assert.Equal(t, 0, outcome.ExitCode)
	assert.Contains(t, outcome.Stdout, "hello")
	assert.GreaterOrEqual(t, outcome.Duration, time.Duration(0))
}

func TestRunFailureCapturesExitCode(t *testing.T) {
	requireSh(t)
	t.Parallel()

	r := shell.New(nil)
	outcome := r.Run(context.Background(), shell.Options{
		Argv:    []string{"sh", "-c", "exit 3"},
		Timeout: 5 * time.Second,
	})

	assert.Equal(t, shell.Failed, outcome.Status)
	assert.Equal(t, 3, outcome.ExitCode)
}

func TestRunTimeout(t *testing.T) {
	requireSh(t)
	t.Parallel()

	r := shell.New(nil)
	outcome := r.Run(context.Background(), shell.Options{
		Argv:    []string{"sh", "-c", "sleep 5"},
		Timeout: 100 * time.Millisecond,
	})

	assert.Equal(t, shell.TimedOut, outcome.Status)
}

func TestRunCancellation(t *testing.T) {
	requireSh(t)
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())

	r := shell.New(nil)

	done := make(chan shell.Outcome, 1)

	go func() {
		done <- r.Run(ctx, shell.Options{
			Argv:    []string{"sh", "-c", "sleep 5"},
			Timeout: 10 * time.Second,
		})
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case outcome := <-done:
		assert.Equal(t, shell.Skipped, outcome.Status)
		assert.Equal(t, "cancelled", outcome.SkipReason)
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not respect cancellation")
	}
}

func TestRunSpawnFailureYieldsSyntheticNegativeExitCode(t *testing.T) {
	t.Parallel()

	r := shell.New(nil)
	outcome := r.Run(context.Background(), shell.Options{
		Argv:    []string{"solarboat-definitely-not-a-real-binary"},
		Timeout: 5 * time.Second,
	})

	assert.Equal(t, shell.Failed, outcome.Status)
	assert.Negative(t, outcome.ExitCode)
}

func TestRunStreamingForwardsOutputLineByLine(t *testing.T) {
	requireSh(t)
	t.Parallel()

	var stdout, stderr bytes.Buffer

	r := shell.New(nil)
	outcome := r.Run(context.Background(), shell.Options{
		Argv:    []string{"sh", "-c", "echo out-line; echo err-line 1>&2"},
		Timeout: 5 * time.Second,
		Stream:  true,
		Stdout:  &stdout,
		Stderr:  &stderr,
	})

	require.Equal(t, shell.Success, outcome.Status)
	assert.Contains(t, stdout.String(), "out-line")
	assert.Contains(t, stderr.String(), "err-line")
	assert.Contains(t, outcome.Stdout, "out-line")
	assert.Contains(t, outcome.Stderr, "err-line")
}
