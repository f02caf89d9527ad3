package dag

import (
	"container/heap"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/specialistvlad/taskgraph/internal/ctxlog"
	"github.com/specialistvlad/taskgraph/internal/taskerr"
)

// Source is anything that can describe a step graph: its step names in
// declaration order and, for each step, the steps it must wait for.
type Source interface {
	StepNames() []string
	Upstream(name string) []string
}

// Plan is a deterministic execution order together with the dependency
// edges it was derived from. It is immutable once built.
type Plan struct {
	Order []string
	graph *Graph
}

// Dependencies returns the direct upstream steps of name.
func (p *Plan) Dependencies(name string) []string {
	deps, _ := p.graph.Dependencies(name)
	return deps
}

// Dependents returns the direct downstream steps of name.
func (p *Plan) Dependents(name string) []string {
	deps, _ := p.graph.Dependents(name)
	return deps
}

// Downstream returns every step that transitively depends on name, in plan
// order.
func (p *Plan) Downstream(name string) []string {
	seen := map[string]bool{}
	var walk func(string)
	walk = func(id string) {
		for _, d := range p.Dependents(id) {
			if !seen[d] {
				seen[d] = true
				walk(d)
			}
		}
	}
	walk(name)

	var out []string
	for _, id := range p.Order {
		if seen[id] {
			out = append(out, id)
		}
	}
	return out
}

// Position returns the index of name in the plan, or -1.
func (p *Plan) Position(name string) int {
	return slices.Index(p.Order, name)
}

// Resolve builds the dependency graph of src and computes its plan. Among
// steps whose dependencies are satisfied, the one declared earliest runs
// first. A cycle, including a step depending on itself, fails with a cyclic
// dependency error naming one cycle.
func Resolve(ctx context.Context, src Source) (*Plan, error) {
	logger := ctxlog.FromContext(ctx)

	g := New()
	names := src.StepNames()
	for _, name := range names {
		g.AddNode(name)
	}
	for _, name := range names {
		for _, up := range src.Upstream(name) {
			if err := g.AddEdge(up, name); err != nil {
				return nil, fmt.Errorf("linking %s to %s: %w", up, name, err)
			}
		}
	}

	order, err := g.TopologicalSort()
	if err != nil {
		return nil, err
	}
	logger.Debug("Resolved execution plan.", "steps", g.Len(), "order", strings.Join(order, ","))
	return &Plan{Order: order, graph: g}, nil
}

// TopologicalSort orders the graph with Kahn's algorithm, using insertion
// order to choose among ready nodes.
func (g *Graph) TopologicalSort() ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	indeg := make([]int, len(g.order))
	for i, id := range g.order {
		indeg[i] = len(g.nodes[id].deps)
	}

	ready := &intMinHeap{}
	heap.Init(ready)
	for i := range indeg {
		if indeg[i] == 0 {
			heap.Push(ready, i)
		}
	}

	out := make([]string, 0, len(indeg))
	for ready.Len() > 0 {
		n := g.nodes[g.order[heap.Pop(ready).(int)]]
		out = append(out, n.id)
		for _, m := range n.dependents {
			indeg[m.index]--
			if indeg[m.index] == 0 {
				heap.Push(ready, m.index)
			}
		}
	}

	if len(out) == len(g.order) {
		return out, nil
	}
	path := g.findCycle()
	return nil, &taskerr.ValidationError{
		Kind: taskerr.ErrCyclicDependency,
		Step: path[0],
		Msg:  strings.Join(path, " -> "),
	}
}

type intMinHeap []int

func (h intMinHeap) Len() int           { return len(h) }
func (h intMinHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h intMinHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *intMinHeap) Push(x any)        { *h = append(*h, x.(int)) }
func (h *intMinHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
