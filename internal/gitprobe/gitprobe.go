// Package gitprobe wraps the git binary to list changed files between two
// revisions and to verify a working copy is a repository.
package gitprobe

import (
	"bytes"
	"context"
	"os/exec"
	"strconv"
	"strings"

	"github.com/gruntwork-io/solarboat/internal/errors"
	"github.com/gruntwork-io/solarboat/internal/logging"
)

// Probe runs git commands against a working copy.
type Probe struct {
	Dir string
	Log logging.Logger
}

// New returns a Probe rooted at dir.
func New(dir string, l logging.Logger) *Probe {
	return &Probe{Dir: dir, Log: l}
}

// IsRepository reports whether Dir is inside a git working copy. A
// non-zero git exit is treated as "false", not an error; only a failure to
// spawn git at all (binary missing) is an error.
func (p *Probe) IsRepository(ctx context.Context) (bool, error) {
	_, err := p.run(ctx, "rev-parse", "--git-dir")
	if err == nil {
		return true, nil
	}

	var exitErr *exec.ExitError
	if isExitError(err, &exitErr) {
		return false, nil
	}

	return false, &errors.ErrBinaryNotFound{Name: "git"}
}

// IsShallow reports whether the working copy is a shallow clone.
func (p *Probe) IsShallow(ctx context.Context) (bool, error) {
	out, err := p.run(ctx, "rev-parse", "--is-shallow-repository")
	if err != nil {
		return false, errors.WithStackTrace(err)
	}

	return strings.TrimSpace(out) == "true", nil
}

// ChangedFiles returns the repository-relative paths changed between
// baseRef and HEAD using the three-dot diff form. If the base ref is
// unavailable locally and the repository is shallow, the caller should
// apply its fallback policy and may retry via ChangedFilesSince.
func (p *Probe) ChangedFiles(ctx context.Context, baseRef string) ([]string, error) {
	out, err := p.run(ctx, "diff", "--name-only", baseRef+"...HEAD")
	if err != nil {
		shallow, shallowErr := p.IsShallow(ctx)
		if shallowErr == nil && shallow {
			return nil, &errors.ErrShallowFallback{BaseRef: baseRef, Reason: "base ref unavailable in shallow clone"}
		}

		return nil, errors.WithStackTrace(err)
	}

	return splitLines(out), nil
}

// ChangedFilesSince returns files changed in the last n commits, used as
// the --recent-commits fallback on shallow clones. n is clamped to the
// history actually present, so asking for a deeper window than the clone
// holds degrades to diffing against the oldest reachable commit instead
// of a git "ambiguous argument" error.
func (p *Probe) ChangedFilesSince(ctx context.Context, n int) ([]string, error) {
	available, err := p.commitCount(ctx)
	if err != nil {
		return nil, errors.WithStackTrace(err)
	}

	if n > available-1 {
		if p.Log != nil {
			p.Log.Warnf("only %d commit(s) available; clamping --recent-commits window from %d", available, n)
		}

		n = available - 1
	}

	if n < 1 {
		// Single-commit history: there is no parent to diff against.
		return nil, nil
	}

	out, err := p.run(ctx, "diff", "--name-only", "HEAD~"+strconv.Itoa(n), "HEAD")
	if err != nil {
		return nil, errors.WithStackTrace(err)
	}

	return splitLines(out), nil
}

// commitCount reports how many commits are reachable from HEAD in this
// clone; on a shallow clone that is the truncated history, which is
// exactly the bound ChangedFilesSince needs.
func (p *Probe) commitCount(ctx context.Context) (int, error) {
	out, err := p.run(ctx, "rev-list", "--count", "HEAD")
	if err != nil {
		return 0, err
	}

	return strconv.Atoi(strings.TrimSpace(out))
}

func (p *Probe) run(ctx context.Context, args ...string) (string, error) {
	fullArgs := append([]string{"-C", p.Dir}, args...)

	cmd := exec.CommandContext(ctx, "git", fullArgs...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if p.Log != nil {
			p.Log.Debugf("git %s failed: %v (%s)", strings.Join(args, " "), err, stderr.String())
		}

		return "", err
	}

	return stdout.String(), nil
}

func splitLines(s string) []string {
	var out []string

	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}

	return out
}

func isExitError(err error, target **exec.ExitError) bool {
	ee, ok := err.(*exec.ExitError)
	if ok {
		*target = ee
	}

	return ok
}
