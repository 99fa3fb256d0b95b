package impact_test

import (
	"testing"

	"github.com/gruntwork-io/solarboat/internal/graph"
	"github.com/gruntwork-io/solarboat/internal/impact"
	"github.com/gruntwork-io/solarboat/internal/module"
	"github.com/stretchr/testify/assert"
)

func buildGraph(modules []module.Module, edges [][2]string) *graph.Graph {
	g := graph.New(modules)

	for _, e := range edges {
		from, _ := g.IndexOf(e[0])
		to, _ := g.IndexOf(e[1])
		g.AddEdge(from, to)
	}

	return g
}

// Changing a stateless leaf module affects the stateful module that
// transitively sources it.
func TestStatelessToStatefulPropagation(t *testing.T) {
	t.Parallel()

	modules := []module.Module{
		{Path: "mods/net", Kind: module.Stateless},
		{Path: "prod", Kind: module.Stateful},
	}

	g := buildGraph(modules, [][2]string{{"prod", "mods/net"}})

	affected := impact.Analyze(g, []string{"mods/net/main.tf"}, false)
	assert.Len(t, affected, 1)
	assert.Equal(t, "prod", affected[0].Path)
}

func TestAllFlagReturnsEveryStatefulModule(t *testing.T) {
	t.Parallel()

	modules := []module.Module{
		{Path: "a", Kind: module.Stateful},
		{Path: "b", Kind: module.Stateless},
		{Path: "c", Kind: module.Stateful},
	}

	g := graph.New(modules)

	affected := impact.Analyze(g, nil, true)
	assert.Len(t, affected, 2)
	assert.Equal(t, "a", affected[0].Path)
	assert.Equal(t, "c", affected[1].Path)
}

func TestChangeOutsideEveryModuleIsIgnored(t *testing.T) {
	t.Parallel()

	modules := []module.Module{{Path: "a", Kind: module.Stateful}}
	g := graph.New(modules)

	affected := impact.Analyze(g, []string{"README.md"}, false)
	assert.Empty(t, affected)
}

func TestAffectedSetIsSubsetOfStatefulModules(t *testing.T) {
	t.Parallel()

	modules := []module.Module{
		{Path: "leaf", Kind: module.Stateless},
		{Path: "mid", Kind: module.Stateless},
		{Path: "top", Kind: module.Stateful},
	}

	g := buildGraph(modules, [][2]string{{"top", "mid"}, {"mid", "leaf"}})

	affected := impact.Analyze(g, []string{"leaf/main.tf"}, false)
	require := assert.New(t)
	require.Len(affected, 1)
	require.Equal("top", affected[0].Path)

	for _, m := range affected {
		require.Equal(module.Stateful, m.Kind)
	}
}

func TestDirectlyChangedStatefulModuleIsIncludedEvenWithoutDependents(t *testing.T) {
	t.Parallel()

	modules := []module.Module{{Path: "solo", Kind: module.Stateful}}
	g := graph.New(modules)

	affected := impact.Analyze(g, []string{"solo/main.tf"}, false)
	assert.Len(t, affected, 1)
	assert.Equal(t, "solo", affected[0].Path)
}
