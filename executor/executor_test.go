package executor_test

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/gruntwork-io/solarboat/executor"
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

func sleepTask(modulePath string, op executor.Operation, seconds int) executor.Task {
	return executor.NewTask(modulePath, ".", "default", op, []string{"sh", "-c", "sleep " + itoa(seconds)}, 5*time.Second)
}

func itoa(n int) string {
	digits := "0123456789"
	if n == 0 {
		return "0"
	}

	out := []byte{}
	for n > 0 {
		out = append([]byte{digits[n%10]}, out...)
		n /= 10
	}

	return string(out)
}

// TestConcurrencyCapIsRespected runs ten one-module queues with a cap of 3
// and checks the wall-clock time implies the cap was actually enforced.
func TestConcurrencyCapIsRespected(t *testing.T) {
	requireSh(t)
	t.Parallel()

	const modules = 10

	queues := make([]executor.ModuleQueue, 0, modules)

	for i := 0; i < modules; i++ {
		queues = append(queues, executor.ModuleQueue{
			ModulePath: "module-" + itoa(i),
			Tasks:      []executor.Task{sleepTask("module-"+itoa(i), executor.Plan, 1)},
		})
	}

	r := shell.New(nil)
	e := executor.New(r, nil)

	start := time.Now()
	outcomes := e.Run(context.Background(), queues, executor.Options{Concurrency: 3})
	elapsed := time.Since(start)

	require.Len(t, outcomes, modules)

	for _, o := range outcomes {
		assert.Equal(t, shell.Success, o.Result.Status)
	}

	// 10 one-second tasks at a cap of 3 take at least ceil(10/3) == 4
	// rounds; a cap that was not enforced (effectively 10) would finish
	// in about one round.
	assert.GreaterOrEqual(t, elapsed, 3500*time.Millisecond)
}

// TestInitFailurePropagatesSkipToRemainingTasks checks that when a Module's
// init task fails, its later tasks are skipped with reason "init-failed"
// rather than run.
func TestInitFailurePropagatesSkipToRemainingTasks(t *testing.T) {
	requireSh(t)
	t.Parallel()

	initTask := executor.NewTask("m", ".", "default", executor.Init, []string{"sh", "-c", "exit 1"}, 5*time.Second)
	planTask := executor.NewTask("m", ".", "default", executor.Plan, []string{"sh", "-c", "echo should-not-run"}, 5*time.Second)
	applyTask := executor.NewTask("m", ".", "default", executor.Apply, []string{"sh", "-c", "echo should-not-run"}, 5*time.Second)

	queues := []executor.ModuleQueue{{
		ModulePath: "m",
		Tasks:      []executor.Task{initTask, planTask, applyTask},
	}}

	r := shell.New(nil)
	e := executor.New(r, nil)

	outcomes := e.Run(context.Background(), queues, executor.Options{Concurrency: 4})
	require.Len(t, outcomes, 3)

	assert.Equal(t, shell.Failed, outcomes[0].Result.Status)
	assert.False(t, outcomes[0].Skipped)

	assert.True(t, outcomes[1].Skipped)
	assert.Equal(t, "init-failed", outcomes[1].Result.SkipReason)

	assert.True(t, outcomes[2].Skipped)
	assert.Equal(t, "init-failed", outcomes[2].Result.SkipReason)
}

// TestCancellationSkipsNotYetStartedTasks checks that cancelling ctx causes
// tasks not yet started to be reported Skipped("cancelled") rather than
// left absent from the outcome list.
func TestCancellationSkipsNotYetStartedTasks(t *testing.T) {
	requireSh(t)
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	task := executor.NewTask("m", ".", "default", executor.Plan, []string{"sh", "-c", "echo hi"}, 5*time.Second)

	queues := []executor.ModuleQueue{{ModulePath: "m", Tasks: []executor.Task{task}}}

	r := shell.New(nil)
	e := executor.New(r, nil)

	outcomes := e.Run(ctx, queues, executor.Options{Concurrency: 1})
	require.Len(t, outcomes, 1)

	assert.True(t, outcomes[0].Skipped)
	assert.Equal(t, "cancelled", outcomes[0].Result.SkipReason)
}

// TestStreamingForcesSerialExecution checks that when Stream is set the
// concurrency cap is forced to 1 regardless of the requested value, so two
// modules' child processes never overlap.
func TestStreamingForcesSerialExecution(t *testing.T) {
	requireSh(t)
	t.Parallel()

	sleepScript := []string{"sh", "-c", "sleep 0.3"}

	queues := []executor.ModuleQueue{
		{ModulePath: "a", Tasks: []executor.Task{executor.NewTask("a", ".", "default", executor.Plan, sleepScript, 5*time.Second)}},
		{ModulePath: "b", Tasks: []executor.Task{executor.NewTask("b", ".", "default", executor.Plan, sleepScript, 5*time.Second)}},
	}

	r := shell.New(nil)
	e := executor.New(r, nil)

	start := time.Now()
	outcomes := e.Run(context.Background(), queues, executor.Options{Concurrency: 4, Stream: true})
	elapsed := time.Since(start)

	require.Len(t, outcomes, 2)

	for _, o := range outcomes {
		assert.Equal(t, shell.Success, o.Result.Status)
	}

	// Stream forces N=1, so the two 0.3s module tasks must run back to
	// back rather than overlapping.
	assert.GreaterOrEqual(t, elapsed, 550*time.Millisecond)
}

// TestEnqueueOrderIsPreservedAcrossModules asserts that even with multiple
// Modules running concurrently, Run's returned slice matches the original
// enqueue order.
func TestEnqueueOrderIsPreservedAcrossModules(t *testing.T) {
	requireSh(t)
	t.Parallel()

	queues := []executor.ModuleQueue{
		{ModulePath: "slow", Tasks: []executor.Task{
			executor.NewTask("slow", ".", "default", executor.Init, []string{"sh", "-c", "sleep 0.3"}, 5*time.Second),
			executor.NewTask("slow", ".", "default", executor.Plan, []string{"sh", "-c", "echo slow-plan"}, 5*time.Second),
		}},
		{ModulePath: "fast", Tasks: []executor.Task{
			executor.NewTask("fast", ".", "default", executor.Init, []string{"sh", "-c", "echo fast-init"}, 5*time.Second),
		}},
	}

	r := shell.New(nil)
	e := executor.New(r, nil)

	outcomes := e.Run(context.Background(), queues, executor.Options{Concurrency: 4})
	require.Len(t, outcomes, 3)

	assert.Equal(t, executor.Init, outcomes[0].Task.Operation)
	assert.Equal(t, "slow", outcomes[0].Task.ModulePath)
	assert.Equal(t, executor.Plan, outcomes[1].Task.Operation)
	assert.Equal(t, "slow", outcomes[1].Task.ModulePath)
	assert.Equal(t, executor.Init, outcomes[2].Task.Operation)
	assert.Equal(t, "fast", outcomes[2].Task.ModulePath)
}
