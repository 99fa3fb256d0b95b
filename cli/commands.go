package cli

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/gruntwork-io/solarboat/executor"
	"github.com/gruntwork-io/solarboat/internal/config"
	"github.com/gruntwork-io/solarboat/internal/errors"
	"github.com/gruntwork-io/solarboat/internal/logging"
	"github.com/gruntwork-io/solarboat/orchestrator"
	"github.com/gruntwork-io/solarboat/shell"
	"github.com/gruntwork-io/solarboat/util"
)

// scanSummary is the machine-readable twin of scan's human-readable
// summary, for consumers like PR-comment generators.
type scanSummary struct {
	Modules  []scanModule `json:"modules"`
	Affected []string     `json:"affected"`
}

type scanModule struct {
	Path string `json:"path"`
	Kind string `json:"kind"`
}

func scanCommand(g *globalFlags) *cli.Command {
	var all bool

	var format string

	return &cli.Command{
		Name:  "scan",
		Usage: "discover terraform modules and report the affected set, without invoking terraform",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "all", Usage: "treat every stateful module as affected", Destination: &all},
			&cli.StringFlag{Name: "format", Value: "text", Usage: "text|json", Destination: &format},
		},
		Action: func(cliCtx *cli.Context) error {
			l := newLogger(g)

			return runWithShutdown(cliCtx.Context, l, func(ctx context.Context) error {
				root, err := resolveAbsRoot(g.Path)
				if err != nil {
					return wrapExit(ExitEnvError, err)
				}

				orc := buildOrchestrator(root, l)

				result, err := orc.Scan(ctx, baseOrchestratorOptions(g, root, all))
				if err != nil {
					return classifyScanErr(err)
				}

				if format == "json" {
					return printScanJSON(cliCtx, result)
				}

				reportSummary(cliCtx, l, result)

				return nil
			})
		},
	}
}

func planCommand(g *globalFlags) *cli.Command {
	f := &runFlags{}

	return &cli.Command{
		Name:  "plan",
		Usage: "run terraform init and plan across every affected module and workspace",
		Flags: f.flags(true),
		Action: func(cliCtx *cli.Context) error {
			l := newLogger(g)

			return runWithShutdown(cliCtx.Context, l, func(ctx context.Context) error {
				return runPlanOrApply(ctx, cliCtx, g, f, l, false)
			})
		},
	}
}

func applyCommand(g *globalFlags) *cli.Command {
	f := &runFlags{}
	f.DryRun = true

	cmd := &cli.Command{
		Name:  "apply",
		Usage: "run terraform init and apply (or plan, when --dry-run) across every affected module and workspace",
	}
	cmd.Flags = append(f.flags(false), &cli.BoolFlag{
		Name:        "dry-run",
		Value:       true,
		Usage:       "plan instead of applying; defaults to true and must be explicitly disabled to apply for real",
		Destination: &f.DryRun,
	})
	cmd.Action = func(cliCtx *cli.Context) error {
		l := newLogger(g)

		return runWithShutdown(cliCtx.Context, l, func(ctx context.Context) error {
			return runPlanOrApply(ctx, cliCtx, g, f, l, true)
		})
	}

	return cmd
}

// runFlags holds the flags shared by plan and apply.
type runFlags struct {
	All              bool
	Watch            bool
	Parallel         int
	OutputDir        string
	IgnoreWorkspaces string
	VarFiles         string
	DryRun           bool
}

func (f *runFlags) flags(withOutputDir bool) []cli.Flag {
	flags := []cli.Flag{
		&cli.BoolFlag{Name: "all", Usage: "treat every stateful module as affected", Destination: &f.All},
		&cli.BoolFlag{Name: "watch", Usage: "stream terraform output live; forces --parallel=1", Destination: &f.Watch},
		&cli.IntFlag{Name: "parallel", Value: 1, Usage: "max concurrent modules, 1-4", Destination: &f.Parallel},
		&cli.StringFlag{Name: "ignore-workspaces", Usage: "comma-separated workspace names to skip, overriding config", Destination: &f.IgnoreWorkspaces},
		&cli.StringFlag{Name: "var-files", Usage: "comma-separated -var-file paths, overriding config", Destination: &f.VarFiles},
	}

	if withOutputDir {
		flags = append(flags, &cli.StringFlag{Name: "output-dir", Value: "terraform-plans", Usage: "directory plan binaries are written under", Destination: &f.OutputDir})
	}

	return flags
}

// runPlanOrApply implements the shared scan -> config -> workspace ->
// execute pipeline for both plan and apply.
func runPlanOrApply(ctx context.Context, cliCtx *cli.Context, g *globalFlags, f *runFlags, l logging.Logger, isApply bool) error {
	root, err := resolveAbsRoot(g.Path)
	if err != nil {
		return wrapExit(ExitEnvError, err)
	}

	orc := buildOrchestrator(root, l)

	result, err := orc.Scan(ctx, baseOrchestratorOptions(g, root, f.All))
	if err != nil {
		return classifyScanErr(err)
	}

	if len(result.Affected) == 0 {
		l.Infof("no affected modules; nothing to do")
		return nil
	}

	var cliOverride config.CLIOverrides
	if f.IgnoreWorkspaces != "" {
		cliOverride.IgnoreWorkspaces = util.RemoveDuplicatesFromList(util.SplitCSV(f.IgnoreWorkspaces))
	}

	if f.VarFiles != "" {
		// Duplicate -var-file entries are dropped rather than passed to
		// terraform twice; first occurrence wins, preserving the user's
		// override order.
		cliOverride.VarFiles = util.RemoveDuplicatesFromList(util.SplitCSV(f.VarFiles))
	}

	resolver, err := discoverAndLoadConfig(g, result.Modules, cliOverride, l)
	if err != nil {
		return err
	}

	runOpts := orchestrator.RunOptions{
		Root:     root,
		Resolver: resolver,
		Parallel: clampParallel(f.Parallel),
		Watch:    f.Watch,
		DryRun:   f.DryRun,
	}

	if f.Watch {
		runOpts.Stdout = cliCtx.App.Writer
		runOpts.Stderr = cliCtx.App.ErrWriter
	}

	var outcomes []executor.Outcome

	if isApply {
		o, err := orc.Apply(ctx, result.Affected, runOpts)
		if err != nil {
			return wrapExit(ExitTaskFailure, err)
		}

		outcomes = o
	} else {
		runOpts.OutputDir = f.OutputDir

		o, err := orc.Plan(ctx, result.Affected, runOpts)
		if err != nil {
			return wrapExit(ExitTaskFailure, err)
		}

		outcomes = o
	}

	return reportOutcomes(l, outcomes)
}

// reportOutcomes prints a one-line status per task and a concluding
// summary with counts by outcome, surfacing the captured tail of stderr
// for failed tasks, and returns a non-zero exit error if any task failed
// or timed out.
func reportOutcomes(l logging.Logger, outcomes []executor.Outcome) error {
	var success, failed, timedOut, skipped, cancelled int

	for _, o := range outcomes {
		status := o.Result.Status
		line := logging.StatusColor(status.String()).Sprintf("%s", status)

		if o.Result.SkipReason != "" {
			line += " (" + o.Result.SkipReason + ")"
		}

		l.Infof("[%s/%s] %s %s (%s)", o.Task.ModulePath, o.Task.Workspace, o.Task.Operation, line, o.Result.Duration)

		switch status {
		case shell.Success:
			success++
		case shell.Failed:
			failed++
			l.Errorf("[%s/%s] stderr tail: %s", o.Task.ModulePath, o.Task.Workspace, tail(o.Result.Stderr, 20))
		case shell.TimedOut:
			timedOut++
		case shell.Skipped:
			if o.Result.SkipReason == "cancelled" {
				cancelled++
			} else {
				skipped++
			}
		}
	}

	l.Infof("summary: %d success, %d failed, %d timed out, %d skipped, %d cancelled", success, failed, timedOut, skipped, cancelled)

	if failed > 0 || timedOut > 0 {
		return errTasksFailed
	}

	return nil
}

var errTasksFailed = &exitError{code: ExitTaskFailure, err: errors.New("one or more tasks did not succeed")}

// tail returns at most the last n lines of s.
func tail(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) <= n {
		return s
	}

	return strings.Join(lines[len(lines)-n:], "\n")
}

func clampParallel(n int) int {
	if n < 1 {
		return 1
	}

	if n > 4 {
		return 4
	}

	return n
}

func printScanJSON(cliCtx *cli.Context, result *orchestrator.ScanResult) error {
	summary := scanSummary{}

	for _, m := range result.Modules {
		summary.Modules = append(summary.Modules, scanModule{Path: m.Path, Kind: m.Kind.String()})
	}

	for _, m := range result.Affected {
		summary.Affected = append(summary.Affected, m.Path)
	}

	enc := json.NewEncoder(cliCtx.App.Writer)
	enc.SetIndent("", "  ")

	return enc.Encode(summary)
}

// classifyScanErr maps orchestrator.Scan's sentinel errors to exit codes;
// "no modules found" is not fatal.
func classifyScanErr(err error) error {
	return wrapExit(ExitCode(err), err)
}
