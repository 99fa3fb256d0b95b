package orchestrator

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/gruntwork-io/solarboat/executor"
	"github.com/gruntwork-io/solarboat/internal/config"
	"github.com/gruntwork-io/solarboat/internal/errors"
	"github.com/gruntwork-io/solarboat/internal/module"
)

// RunOptions carries the flags shared by plan and apply once the affected
// set is known.
type RunOptions struct {
	Root      string
	Resolver  *config.Resolver
	Parallel  int
	Watch     bool
	OutputDir string
	DryRun    bool
	// Stdout/Stderr receive live-streamed child output when Watch is set;
	// nil is safe when Watch is false.
	Stdout, Stderr io.Writer
	// Timeouts overrides the per-phase defaults; zero fields keep them.
	Timeouts Timeouts
}

// Timeouts carries the per-phase subprocess timeouts.
type Timeouts struct {
	Init  time.Duration
	Plan  time.Duration
	Apply time.Duration
}

func (t Timeouts) withDefaults() Timeouts {
	if t.Init <= 0 {
		t.Init = DefaultInitTimeout
	}

	if t.Plan <= 0 {
		t.Plan = DefaultPlanTimeout
	}

	if t.Apply <= 0 {
		t.Apply = DefaultApplyTimeout
	}

	return t
}

// Plan builds one Init + per-workspace Plan task per affected module and
// runs them through the executor.
func (o *Orchestrator) Plan(ctx context.Context, affected []module.Module, opts RunOptions) ([]executor.Outcome, error) {
	if opts.OutputDir != "" && !filepath.IsAbs(opts.OutputDir) {
		// Each child runs with its working directory set to the module
		// directory, so a relative -out= path must be anchored here first.
		abs, err := filepath.Abs(opts.OutputDir)
		if err != nil {
			return nil, errors.WithStackTrace(err)
		}

		opts.OutputDir = abs
	}

	queues, err := o.buildQueues(ctx, affected, opts, executor.Plan)
	if err != nil {
		return nil, err
	}

	return o.dispatch(ctx, queues, opts), nil
}

// Apply builds one Init + per-workspace Apply (or Plan, when DryRun) task
// per affected module and runs them.
func (o *Orchestrator) Apply(ctx context.Context, affected []module.Module, opts RunOptions) ([]executor.Outcome, error) {
	op := executor.Apply
	if opts.DryRun {
		op = executor.Plan
	}

	queues, err := o.buildQueues(ctx, affected, opts, op)
	if err != nil {
		return nil, err
	}

	return o.dispatch(ctx, queues, opts), nil
}

func (o *Orchestrator) dispatch(ctx context.Context, queues []executor.ModuleQueue, opts RunOptions) []executor.Outcome {
	n := opts.Parallel
	if n <= 0 {
		n = 1
	}

	return o.Executor.Run(ctx, queues, executor.Options{
		Concurrency: n,
		Stream:      opts.Watch,
		Stdout:      opts.Stdout,
		Stderr:      opts.Stderr,
	})
}

// buildQueues enumerates workspaces for each module and constructs its
// task queue: Init, then for each non-ignored workspace a workspace-select
// step followed by the requested operation. The select step is omitted when
// the module lists only one workspace.
func (o *Orchestrator) buildQueues(ctx context.Context, affected []module.Module, opts RunOptions, op executor.Operation) ([]executor.ModuleQueue, error) {
	opts.Timeouts = opts.Timeouts.withDefaults()

	queues := make([]executor.ModuleQueue, 0, len(affected))

	for _, m := range affected {
		dir := filepath.Join(opts.Root, m.Path)

		if op == executor.Plan && opts.OutputDir != "" {
			if err := os.MkdirAll(filepath.Join(opts.OutputDir, m.Path), 0o755); err != nil {
				return nil, errors.WithStackTrace(err)
			}
		}

		workspaces, err := o.Workspace.List(ctx, dir)
		if err != nil {
			return nil, errors.WithStackTrace(err)
		}

		tasks := []executor.Task{
			executor.NewTask(m.Path, dir, "", executor.Init,
				[]string{"terraform", "init", "-input=false", "-no-color"}, opts.Timeouts.Init),
		}

		for _, ws := range workspaces {
			if opts.Resolver.IsIgnored(m.Path, ws) {
				continue
			}

			if len(workspaces) > 1 {
				tasks = append(tasks, executor.NewTask(m.Path, dir, ws, executor.Select,
					[]string{"terraform", "workspace", "select", ws}, workspaceSelectTimeout))
			}

			tasks = append(tasks, o.operationTask(m, dir, ws, op, opts))
		}

		queues = append(queues, executor.ModuleQueue{ModulePath: m.Path, Tasks: tasks})
	}

	return queues, nil
}

const workspaceSelectTimeout = 30 * time.Second

// operationTask builds the Plan or Apply task for one (module, workspace),
// including resolved -var-file arguments and, for plan, the -out plan
// artifact path under OutputDir/<module>/<workspace>.tfplan.
func (o *Orchestrator) operationTask(m module.Module, dir, ws string, op executor.Operation, opts RunOptions) executor.Task {
	varFiles := opts.Resolver.VarFilesFor(m.Path, ws)

	switch op {
	case executor.Apply:
		argv := []string{"terraform", "apply", "-auto-approve", "-input=false", "-no-color"}
		argv = appendVarFiles(argv, varFiles)

		return executor.NewTask(m.Path, dir, ws, executor.Apply, argv, opts.Timeouts.Apply)
	default:
		argv := []string{"terraform", "plan", "-input=false", "-no-color"}

		if opts.OutputDir != "" {
			argv = append(argv, "-out="+filepath.Join(opts.OutputDir, m.Path, ws+".tfplan"))
		}

		argv = appendVarFiles(argv, varFiles)

		return executor.NewTask(m.Path, dir, ws, executor.Plan, argv, opts.Timeouts.Plan)
	}
}

func appendVarFiles(argv []string, varFiles []string) []string {
	for _, vf := range varFiles {
		argv = append(argv, "-var-file="+vf)
	}

	return argv
}
