// Package cli configures the solarboat CLI app and its three subcommands:
// scan, plan, apply.
package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/gruntwork-io/solarboat/executor"
	"github.com/gruntwork-io/solarboat/internal/config"
	"github.com/gruntwork-io/solarboat/internal/errors"
	"github.com/gruntwork-io/solarboat/internal/gitprobe"
	"github.com/gruntwork-io/solarboat/internal/logging"
	"github.com/gruntwork-io/solarboat/internal/module"
	"github.com/gruntwork-io/solarboat/internal/workspace"
	"github.com/gruntwork-io/solarboat/orchestrator"
	"github.com/gruntwork-io/solarboat/shell"
)

// AppName is the binary name shown in help output.
const AppName = "solarboat"

// Exit code catalog: distinct codes for task failure, configuration
// errors, environment errors, and interrupted runs.
const (
	ExitSuccess     = 0
	ExitTaskFailure = 1
	ExitConfigError = 2
	ExitEnvError    = 3
	ExitInterrupted = 130
)

// globalFlags holds the resolved value of every global flag.
type globalFlags struct {
	Path          string
	ConfigPath    string
	NoConfig      bool
	DefaultBranch string
	RecentCommits int
	LogLevel      string
}

// NewApp builds the solarboat cli.App with its scan/plan/apply commands.
func NewApp() *cli.App {
	g := &globalFlags{}

	app := cli.NewApp()
	app.Name = AppName
	app.Usage = "orchestrates terraform init/plan/apply across every affected module in a repository"
	app.Flags = []cli.Flag{
		&cli.StringFlag{Name: "path", Value: ".", Usage: "root directory to scan for terraform modules", Destination: &g.Path},
		&cli.StringFlag{Name: "config", Usage: "explicit path to the solarboat config file", Destination: &g.ConfigPath},
		&cli.BoolFlag{Name: "no-config", Usage: "skip config discovery entirely and use empty defaults", Destination: &g.NoConfig},
		&cli.StringFlag{Name: "default-branch", Value: "main", Usage: "branch to diff against for change detection", Destination: &g.DefaultBranch},
		&cli.IntFlag{Name: "recent-commits", Usage: "fallback window (commits) when the default branch is unavailable in a shallow clone", Destination: &g.RecentCommits},
		&cli.StringFlag{Name: "log-level", Value: "info", Usage: "debug|info|warn|error", Destination: &g.LogLevel},
	}
	app.Commands = []*cli.Command{
		scanCommand(g),
		planCommand(g),
		applyCommand(g),
	}
	// urfave/cli's default exit handling always calls os.Exit(1) on a
	// non-nil action error; main.go needs the actual per-category code
	// (ExitCode below), so the app itself never exits the process.
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}

	return app
}

// runWithShutdown runs action under a context cancelled on SIGINT/SIGTERM.
// An errgroup pairs the command's own work with a goroutine that only
// watches for cancellation, so either finishing unwinds the other and the
// signal handler is released once the command returns.
func runWithShutdown(parent context.Context, l logging.Logger, action func(ctx context.Context) error) error {
	sigCtx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(sigCtx)

	var (
		actionErr   error
		interrupted bool
	)

	group.Go(func() error {
		actionErr = action(ctx)
		interrupted = sigCtx.Err() != nil
		// Releasing the signal context unblocks the watcher below.
		stop()

		return nil
	})

	group.Go(func() error {
		<-ctx.Done()
		return nil
	})

	_ = group.Wait()

	if actionErr == nil && interrupted {
		l.Warnf("interrupted, shutting down")
		return errInterrupted
	}

	return actionErr
}

// errInterrupted is a sentinel *exitError mapping to ExitInterrupted.
var errInterrupted = &exitError{code: ExitInterrupted, err: errors.New("interrupted")}

// exitError pins a process exit code to an error, used for conditions
// (interruption) that don't otherwise map to one of the sentinel error
// types in internal/errors.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

func wrapExit(code int, err error) error {
	if err == nil {
		return nil
	}

	return &exitError{code: code, err: err}
}

// ExitCode extracts the process exit code for err, defaulting to
// ExitTaskFailure for any error that doesn't carry one explicitly.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	// Sentinels may arrive wrapped with a stack trace, so match through
	// the wrapping rather than on the concrete type alone.
	var ee *exitError
	if stderrors.As(err, &ee) {
		return ee.code
	}

	var (
		configParse *errors.ErrConfigParse
		notRepo     *errors.ErrNotAGitRepository
		noBinary    *errors.ErrBinaryNotFound
		noModules   *errors.ErrNoModulesFound
	)

	switch {
	case stderrors.As(err, &configParse):
		return ExitConfigError
	case stderrors.As(err, &notRepo), stderrors.As(err, &noBinary):
		return ExitEnvError
	case stderrors.As(err, &noModules):
		return ExitSuccess
	default:
		return ExitTaskFailure
	}
}

// newLogger builds the shared Logger for a command invocation, colorized
// when attached to a terminal.
func newLogger(g *globalFlags) logging.Logger {
	return logging.New(logging.Options{Level: g.LogLevel, Color: true})
}

// discoverAndLoadConfig resolves and parses the config file, logging any
// validation warnings, and returns a ready-to-use Resolver.
func discoverAndLoadConfig(g *globalFlags, modules []module.Module, overrides config.CLIOverrides, l logging.Logger) (*config.Resolver, error) {
	path, found := config.Discover(config.DiscoverOptions{
		ExplicitPath: g.ConfigPath,
		NoConfig:     g.NoConfig,
		ScanRoot:     g.Path,
	})

	if !found {
		return config.NewResolver(nil, overrides), nil
	}

	store, err := config.Load(path, modules)
	if err != nil {
		return nil, wrapExit(ExitConfigError, err)
	}

	store.LogWarnings(l)

	return config.NewResolver(store, overrides), nil
}

// buildOrchestrator wires the git probe, workspace prober, shell runner,
// and executor into one Orchestrator. root must already be the resolved
// absolute scan root.
func buildOrchestrator(root string, l logging.Logger) *orchestrator.Orchestrator {
	probe := gitprobe.New(root, l)
	prober := workspace.New()
	runner := shell.New(l)
	exec := executor.New(runner, l)

	return orchestrator.New(probe, prober, runner, exec, l)
}

// resolveAbsRoot converts the --path flag to an absolute directory,
// failing fast if it doesn't exist.
func resolveAbsRoot(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", errors.WithStackTrace(err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return "", errors.Errorf("path %s does not exist or is not accessible: %v", abs, err)
	}

	if !info.IsDir() {
		return "", errors.Errorf("%s is not a directory", abs)
	}

	return abs, nil
}

// baseOrchestratorOptions builds orchestrator.Options shared by scan, plan,
// and apply from the resolved global flags and the --all flag.
func baseOrchestratorOptions(g *globalFlags, root string, all bool) orchestrator.Options {
	return orchestrator.Options{
		Root:          root,
		DefaultBranch: g.DefaultBranch,
		All:           all,
		RecentCommits: g.RecentCommits,
	}
}

// reportSummary prints the scan summary: counts, paths, classifications.
func reportSummary(w *cli.Context, l logging.Logger, result *orchestrator.ScanResult) {
	l.Infof("discovered %d module(s)", len(result.Modules))

	for _, m := range result.Modules {
		l.Infof("  %-8s %s", m.Kind, m.Path)
	}

	if result.UsedAllFallback {
		l.Warnf("shallow-clone fallback: treating every stateful module as affected")
	}

	l.Infof("affected set: %d module(s)", len(result.Affected))

	for _, m := range result.Affected {
		l.Infof("  %s", m.Path)
	}

	fmt.Fprintf(w.App.Writer, "modules=%d affected=%d\n", len(result.Modules), len(result.Affected))
}
