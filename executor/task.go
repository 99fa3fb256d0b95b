// Package executor consumes a queue of (module, workspace, operation)
// tasks grouped by module, dispatches them to the shell runner with a
// concurrency cap, and reports per-task outcomes in enqueue order.
package executor

import (
	"time"

	"github.com/google/uuid"

	"github.com/gruntwork-io/solarboat/shell"
)

// Operation identifies which terraform phase a Task runs.
type Operation int

const (
	Init Operation = iota
	Select
	Plan
	Apply
)

func (o Operation) String() string {
	switch o {
	case Init:
		return "init"
	case Select:
		return "workspace-select"
	case Plan:
		return "plan"
	case Apply:
		return "apply"
	default:
		return "unknown"
	}
}

// Task is a single scheduling unit: one terraform invocation for one
// (Module, Workspace, Operation) combination.
type Task struct {
	// ID uniquely identifies this task for log correlation across
	// concurrently running modules.
	ID uuid.UUID

	ModulePath string
	ModuleDir  string
	Workspace  string
	Operation  Operation

	// Argv is the full terraform command line, Argv[0] == "terraform".
	Argv []string

	Timeout time.Duration
}

// NewTask returns a Task with a freshly generated ID.
func NewTask(modulePath, moduleDir, workspace string, op Operation, argv []string, timeout time.Duration) Task {
	return Task{
		ID:         uuid.New(),
		ModulePath: modulePath,
		ModuleDir:  moduleDir,
		Workspace:  workspace,
		Operation:  op,
		Argv:       argv,
		Timeout:    timeout,
	}
}

// ModuleQueue is every Task belonging to one Module, in the order they must
// run: one Init task, then one workspace-select/Plan-or-Apply task pair per
// non-ignored workspace (only the Plan-or-Apply task when the module has a
// single workspace).
type ModuleQueue struct {
	ModulePath string
	Tasks      []Task
}

// Outcome pairs a Task with its Run Outcome.
type Outcome struct {
	Task    Task
	Result  shell.Outcome
	Skipped bool
}
