// Package graph implements the inter-module dependency graph and the
// reverse-reachability query the impact package builds on.
//
// The graph is represented as indices into a flat module table rather than
// a pointer graph: Edges[i] is the set of table indices that module i
// directly depends on (sources as a submodule).
package graph

import "github.com/gruntwork-io/solarboat/internal/module"

// Graph is a directed graph over a fixed, ordered set of Modules. Edges run
// from a dependent module to the modules it sources.
type Graph struct {
	Modules []module.Module
	// Edges[i] holds the deduplicated set of indices j such that Modules[i]
	// sources Modules[j].
	Edges [][]int

	index map[string]int
}

// New builds an empty Graph over the given modules, indexed by canonical
// path.
func New(modules []module.Module) *Graph {
	g := &Graph{
		Modules: modules,
		Edges:   make([][]int, len(modules)),
		index:   make(map[string]int, len(modules)),
	}

	for i, m := range modules {
		g.index[m.Path] = i
	}

	return g
}

// IndexOf returns the table index of the module at the given canonical
// path, and whether it was found.
func (g *Graph) IndexOf(path string) (int, bool) {
	i, ok := g.index[path]
	return i, ok
}

// AddEdge records that the module at fromIdx sources the module at toIdx,
// deduplicating against any edge already present.
func (g *Graph) AddEdge(fromIdx, toIdx int) {
	for _, existing := range g.Edges[fromIdx] {
		if existing == toIdx {
			return
		}
	}

	g.Edges[fromIdx] = append(g.Edges[fromIdx], toIdx)
}

// Reachable returns, for the reverse of the dependency edge, every module
// index that depends directly or transitively on any of the seed indices,
// including the seeds themselves.
//
// Implemented with an explicit visited slice and queue so that cycles
// among local modules (not expected from Terraform semantics, but not
// impossible in a malformed tree) cannot cause nontermination.
func (g *Graph) Reachable(seeds []int) []int {
	// reverse[j] holds every i such that Edges[i] contains j, i.e. every
	// module that depends on j.
	reverse := make([][]int, len(g.Modules))
	for i, outs := range g.Edges {
		for _, j := range outs {
			reverse[j] = append(reverse[j], i)
		}
	}

	visited := make([]bool, len(g.Modules))
	queue := make([]int, 0, len(seeds))

	for _, s := range seeds {
		if !visited[s] {
			visited[s] = true
			queue = append(queue, s)
		}
	}

	for head := 0; head < len(queue); head++ {
		current := queue[head]
		for _, dependent := range reverse[current] {
			if !visited[dependent] {
				visited[dependent] = true
				queue = append(queue, dependent)
			}
		}
	}

	out := make([]int, 0, len(queue))
	for i, v := range visited {
		if v {
			out = append(out, i)
		}
	}

	return out
}
