package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/specialistvlad/taskgraph/internal/dag"
	"github.com/specialistvlad/taskgraph/internal/node"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type source struct {
	names    []string
	upstream map[string][]string
}

func (s source) StepNames() []string           { return s.names }
func (s source) Upstream(name string) []string { return s.upstream[name] }

func setup(t *testing.T, src source) (*DefaultScheduler, map[string]*node.Node) {
	t.Helper()
	plan, err := dag.Resolve(context.Background(), src)
	require.NoError(t, err)
	nodes := make(map[string]*node.Node)
	for _, name := range src.names {
		nodes[name] = node.New(name, "t")
	}
	return New(plan, nodes), nodes
}

func run(t *testing.T, n *node.Node, err error) {
	t.Helper()
	require.NoError(t, n.Transition(node.Pending, node.Ready))
	require.NoError(t, n.Transition(node.Ready, node.Running))
	if err != nil {
		require.NoError(t, n.Fail(err))
		return
	}
	require.NoError(t, n.Transition(node.Running, node.Succeeded))
}

func names(nodes []*node.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Name
	}
	return out
}

func TestReady(t *testing.T) {
	// --- Arrange ---
	s, nodes := setup(t, source{
		names:    []string{"P", "Q", "R", "S"},
		upstream: map[string][]string{"Q": {"P"}, "S": {"Q", "R"}},
	})

	// --- Act & Assert ---
	assert.Equal(t, []string{"P", "R"}, names(s.Ready()))

	run(t, nodes["P"], nil)
	assert.Equal(t, []string{"Q", "R"}, names(s.Ready()))

	run(t, nodes["R"], nil)
	assert.Equal(t, []string{"Q"}, names(s.Ready()))

	run(t, nodes["Q"], nil)
	assert.Equal(t, []string{"S"}, names(s.Ready()))

	run(t, nodes["S"], nil)
	assert.Empty(t, s.Ready())
	assert.True(t, s.Stuck())
}

func TestReady_SkipsRunningSteps(t *testing.T) {
	s, nodes := setup(t, source{names: []string{"A", "B"}})
	require.NoError(t, nodes["A"].Transition(node.Pending, node.Ready))
	assert.Equal(t, []string{"B"}, names(s.Ready()))
	assert.False(t, s.Stuck())
}

func TestBlock(t *testing.T) {
	s, nodes := setup(t, source{
		names:    []string{"P", "Q", "R", "T"},
		upstream: map[string][]string{"Q": {"P"}, "T": {"Q"}},
	})

	run(t, nodes["P"], errors.New("boom"))
	assert.Equal(t, []string{"Q", "T"}, s.Block("P"))
	assert.Empty(t, s.Block("P"), "blocking twice reports nothing new")

	assert.Equal(t, "P", nodes["T"].BlockedBy())
	assert.Equal(t, node.Pending, nodes["Q"].Status())
	assert.Equal(t, []string{"R"}, names(s.Ready()))
	assert.False(t, s.Stuck())

	run(t, nodes["R"], nil)
	assert.Empty(t, s.Ready())
	assert.True(t, s.Stuck())
}
