// Package workspace asks Terraform which workspaces exist for a given
// module directory.
package workspace

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/gruntwork-io/solarboat/internal/errors"
)

// DefaultListTimeout is the short timeout applied to `terraform workspace
// list`; listing workspaces should never take long.
const DefaultListTimeout = 30 * time.Second

// Prober runs `terraform workspace list` against a module directory.
type Prober struct {
	Timeout time.Duration
}

// New returns a Prober using DefaultListTimeout.
func New() *Prober {
	return &Prober{Timeout: DefaultListTimeout}
}

// List returns the ordered set of workspace names for the module at dir.
// A module that has never had workspaces created reports only "default".
func (p *Prober) List(ctx context.Context, dir string) ([]string, error) {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultListTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "terraform", "workspace", "list")
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, errors.Errorf("terraform workspace list in %s: %v (%s)", dir, err, stderr.String())
	}

	return parseWorkspaceList(stdout.String()), nil
}

// parseWorkspaceList trims each non-empty line and strips the leading "*"
// current-workspace indicator.
func parseWorkspaceList(output string) []string {
	var names []string

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		line = strings.TrimPrefix(line, "*")
		line = strings.TrimSpace(line)

		if line != "" {
			names = append(names, line)
		}
	}

	if len(names) == 0 {
		return []string{"default"}
	}

	return names
}
