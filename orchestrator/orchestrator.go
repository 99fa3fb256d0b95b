// Package orchestrator is the top-level glue implementing the scan, plan,
// and apply operations: it wires the module scanner, dependency graph,
// impact analyzer, config store, workspace prober, and parallel executor
// together into the three commands the CLI exposes.
package orchestrator

import (
	"context"
	"time"

	"github.com/gruntwork-io/solarboat/executor"
	"github.com/gruntwork-io/solarboat/internal/errors"
	"github.com/gruntwork-io/solarboat/internal/graph"
	"github.com/gruntwork-io/solarboat/internal/impact"
	"github.com/gruntwork-io/solarboat/internal/logging"
	"github.com/gruntwork-io/solarboat/internal/module"
	"github.com/gruntwork-io/solarboat/shell"
)

// Default per-phase timeouts.
const (
	DefaultInitTimeout  = 300 * time.Second
	DefaultPlanTimeout  = 600 * time.Second
	DefaultApplyTimeout = 1800 * time.Second
)

// ChangeProber is the subset of gitprobe.Probe the Orchestrator needs,
// narrowed to an interface so tests can supply a fake without a real git
// working copy.
type ChangeProber interface {
	IsRepository(ctx context.Context) (bool, error)
	IsShallow(ctx context.Context) (bool, error)
	ChangedFiles(ctx context.Context, baseRef string) ([]string, error)
	ChangedFilesSince(ctx context.Context, n int) ([]string, error)
}

// WorkspaceLister is the subset of workspace.Prober the Orchestrator
// needs.
type WorkspaceLister interface {
	List(ctx context.Context, dir string) ([]string, error)
}

// Options carries the global flags shared by scan, plan, and apply.
type Options struct {
	Root          string
	DefaultBranch string
	All           bool
	RecentCommits int
}

// Orchestrator holds the collaborators every operation needs.
type Orchestrator struct {
	Git       ChangeProber
	Workspace WorkspaceLister
	Runner    *shell.Runner
	Executor  *executor.Executor
	Log       logging.Logger
}

// New wires an Orchestrator from its concrete collaborators.
func New(git ChangeProber, ws WorkspaceLister, runner *shell.Runner, exec *executor.Executor, l logging.Logger) *Orchestrator {
	return &Orchestrator{Git: git, Workspace: ws, Runner: runner, Executor: exec, Log: l}
}

// ScanResult is the output of discovery: every module found, the
// dependency graph built over them, the affected set this run must
// process, and whether the shallow-clone fallback fired.
type ScanResult struct {
	Modules         []module.Module
	Graph           *graph.Graph
	Affected        []module.Module
	UsedAllFallback bool
}

// Scan discovers modules, builds the graph, and computes the affected set.
// No subprocess other than git is invoked.
func (o *Orchestrator) Scan(ctx context.Context, opts Options) (*ScanResult, error) {
	modules, err := module.Scan(opts.Root)
	if err != nil {
		return nil, errors.WithStackTrace(err)
	}

	if len(modules) == 0 {
		return nil, &errors.ErrNoModulesFound{Root: opts.Root}
	}

	g, err := graph.Build(opts.Root, modules)
	if err != nil {
		return nil, errors.WithStackTrace(err)
	}

	if opts.All {
		return &ScanResult{Modules: modules, Graph: g, Affected: impact.Analyze(g, nil, true)}, nil
	}

	changed, usedFallback, err := o.changedFiles(ctx, opts)
	if err != nil {
		return nil, err
	}

	// usedFallback means the shallow-clone policy already decided to treat
	// every stateful module as affected; changed is nil in that case and
	// must not be fed to impact.Analyze as if it were a real (empty)
	// changed-file set.
	affected := impact.Analyze(g, changed, usedFallback)

	return &ScanResult{Modules: modules, Graph: g, Affected: affected, UsedAllFallback: usedFallback}, nil
}

// changedFiles implements the shallow-clone fallback policy: try the
// three-dot diff against DefaultBranch; on a shallow-clone failure, use
// RecentCommits if positive, else log and fall back to "treat everything
// as affected" by returning a nil changed-file set with usedFallback set.
// Scan interprets usedFallback by calling impact.Analyze with all=true
// rather than treating the nil slice as an empty Changed-File Set.
func (o *Orchestrator) changedFiles(ctx context.Context, opts Options) ([]string, bool, error) {
	isRepo, err := o.Git.IsRepository(ctx)
	if err != nil {
		return nil, false, errors.WithStackTrace(err)
	}

	if !isRepo {
		return nil, false, &errors.ErrNotAGitRepository{Dir: opts.Root}
	}

	files, err := o.Git.ChangedFiles(ctx, opts.DefaultBranch)
	if err == nil {
		return files, false, nil
	}

	if _, ok := err.(*errors.ErrShallowFallback); !ok {
		return nil, false, errors.WithStackTrace(err)
	}

	if opts.RecentCommits > 0 {
		if o.Log != nil {
			o.Log.Warnf("shallow clone: falling back to last %d commits", opts.RecentCommits)
		}

		files, err := o.Git.ChangedFilesSince(ctx, opts.RecentCommits)
		if err != nil {
			return nil, false, errors.WithStackTrace(err)
		}

		return files, false, nil
	}

	if o.Log != nil {
		o.Log.Warnf("shallow clone and no --recent-commits set: treating every stateful module as affected")
	}

	return nil, true, nil
}
