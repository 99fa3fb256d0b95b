// Package impact combines a changed-file set with the dependency graph to
// produce the affected set of stateful modules a run must process.
package impact

import (
	"sort"
	"strings"

	"github.com/gruntwork-io/solarboat/internal/graph"
	"github.com/gruntwork-io/solarboat/internal/module"
)

// Analyze computes the affected set for the given changed files and graph.
// When all is true, every stateful module is returned regardless of
// changedFiles.
//
// The returned slice is ordered ascending by canonical path.
func Analyze(g *graph.Graph, changedFiles []string, all bool) []module.Module {
	if all {
		return statefulOnly(g.Modules)
	}

	directly := directlyChanged(g, changedFiles)
	if len(directly) == 0 {
		return nil
	}

	affectedIdx := g.Reachable(directly)

	var out []module.Module

	for _, i := range affectedIdx {
		if g.Modules[i].Kind == module.Stateful {
			out = append(out, g.Modules[i])
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })

	return out
}

// directlyChanged maps each changed file to the deepest module whose
// directory is a prefix of the path, and returns the deduplicated set of
// module indices so found. A change outside every module is ignored.
func directlyChanged(g *graph.Graph, changedFiles []string) []int {
	seen := map[int]bool{}

	var out []int

	for _, file := range changedFiles {
		idx, ok := deepestContainingModule(g, file)
		if !ok {
			continue
		}

		if !seen[idx] {
			seen[idx] = true
			out = append(out, idx)
		}
	}

	return out
}

func deepestContainingModule(g *graph.Graph, file string) (int, bool) {
	best := -1
	bestLen := -1

	for i, m := range g.Modules {
		if !isWithin(m.Path, file) {
			continue
		}

		if len(m.Path) > bestLen {
			best = i
			bestLen = len(m.Path)
		}
	}

	if best == -1 {
		return 0, false
	}

	return best, true
}

// isWithin reports whether file's path is inside the module directory at
// modulePath (or is exactly within it), treating "." as the project root.
func isWithin(modulePath, file string) bool {
	if modulePath == "." || modulePath == "" {
		return !strings.Contains(file, "/")
	}

	prefix := modulePath + "/"

	return strings.HasPrefix(file, prefix)
}

func statefulOnly(modules []module.Module) []module.Module {
	var out []module.Module

	for _, m := range modules {
		if m.Kind == module.Stateful {
			out = append(out, m)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })

	return out
}
