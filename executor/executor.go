package executor

import (
	"context"
	"io"

	"github.com/gruntwork-io/solarboat/internal/logging"
	"github.com/gruntwork-io/solarboat/shell"
	"github.com/gruntwork-io/solarboat/util"
)

// MinConcurrency and MaxConcurrency bound the executor's concurrency cap.
const (
	MinConcurrency = 1
	MaxConcurrency = 4
)

// Options configures one Executor.Run invocation.
type Options struct {
	// Concurrency is the requested cap N; it is clamped to
	// [MinConcurrency, MaxConcurrency] and then forced to 1 when Stream is
	// set, since interleaved output from more than one live child process
	// is unreadable.
	Concurrency int
	Stream      bool
	// Stdout/Stderr are where streamed output is forwarded when Stream is
	// true.
	Stdout, Stderr io.Writer
}

// Executor runs ModuleQueues with bounded parallelism across Modules and
// strict sequential order within a Module.
type Executor struct {
	Runner *shell.Runner
	Log    logging.Logger
}

// New returns an Executor backed by runner.
func New(runner *shell.Runner, l logging.Logger) *Executor {
	return &Executor{Runner: runner, Log: l}
}

// Run dispatches every queue's tasks, honoring ctx cancellation, and
// returns outcomes in the exact order tasks were enqueued, regardless of
// which Module finished first.
func (e *Executor) Run(ctx context.Context, queues []ModuleQueue, opts Options) []Outcome {
	n := opts.Concurrency
	if n < MinConcurrency {
		n = MinConcurrency
	}

	if n > MaxConcurrency {
		n = MaxConcurrency
	}

	if opts.Stream {
		n = 1
	}

	positions, total := indexByEnqueueOrder(queues)
	results := make([]Outcome, total)

	// util.WorkerPool bounds the number of in-flight module goroutines to
	// n; each goroutine still drains its own Module's queue sequentially,
	// so the cap is on concurrent Modules, not tasks.
	pool := util.NewWorkerPool(n)

	for qi, q := range queues {
		qi, q := qi, q

		pool.Submit(func() error {
			e.runQueue(ctx, qi, q, opts, positions, results)
			return nil
		})
	}

	_ = pool.Wait()

	return results
}

func (e *Executor) runQueue(ctx context.Context, queueIdx int, q ModuleQueue, opts Options, positions map[[2]int]int, results []Outcome) {
	initFailed := false

	for ti, task := range q.Tasks {
		pos := positions[[2]int{queueIdx, ti}]

		if ctx.Err() != nil {
			results[pos] = Outcome{Task: task, Skipped: true, Result: shell.Outcome{Status: shell.Skipped, SkipReason: "cancelled"}}
			continue
		}

		if initFailed {
			results[pos] = Outcome{Task: task, Skipped: true, Result: shell.Outcome{Status: shell.Skipped, SkipReason: "init-failed"}}
			continue
		}

		var taskLog logging.Logger
		if e.Log != nil {
			taskLog = e.Log.WithField("task", task.ID.String())
			taskLog.Infof("[%s/%s] running %s", task.ModulePath, task.Workspace, task.Operation)
		}

		runOpts := shell.Options{
			Dir:     task.ModuleDir,
			Argv:    task.Argv,
			Timeout: task.Timeout,
			Stream:  opts.Stream,
			Stdout:  opts.Stdout,
			Stderr:  opts.Stderr,
		}

		result := e.Runner.Run(ctx, runOpts)
		results[pos] = Outcome{Task: task, Result: result}

		if taskLog != nil {
			line := logging.StatusColor(result.Status.String()).Sprintf("%s", result.Status)
			taskLog.Infof("[%s/%s] %s finished: %s (%s)", task.ModulePath, task.Workspace, task.Operation, line, result.Duration)
		}

		if task.Operation == Init && result.Status != shell.Success {
			initFailed = true
		}
	}
}

// indexByEnqueueOrder assigns every (queue index, task index) pair a flat
// position matching the original enqueue order, so results can be written
// concurrently by worker goroutines and still come back in deterministic
// order.
func indexByEnqueueOrder(queues []ModuleQueue) (map[[2]int]int, int) {
	positions := map[[2]int]int{}
	pos := 0

	for qi, q := range queues {
		for ti := range q.Tasks {
			positions[[2]int{qi, ti}] = pos
			pos++
		}
	}

	return positions, pos
}
