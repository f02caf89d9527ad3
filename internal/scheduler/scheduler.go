package scheduler

import (
	"github.com/specialistvlad/taskgraph/internal/dag"
	"github.com/specialistvlad/taskgraph/internal/node"
)

// DefaultScheduler is the plan-ordered implementation of Scheduler.
type DefaultScheduler struct {
	plan  *dag.Plan
	nodes map[string]*node.Node
}

// New creates a scheduler over plan. nodes must hold one entry per step in
// the plan.
func New(plan *dag.Plan, nodes map[string]*node.Node) *DefaultScheduler {
	return &DefaultScheduler{plan: plan, nodes: nodes}
}

// Ready implements Scheduler.
func (s *DefaultScheduler) Ready() []*node.Node {
	var out []*node.Node
	for _, name := range s.plan.Order {
		n := s.nodes[name]
		if n.Status() != node.Pending || n.Blocked() {
			continue
		}
		if s.depsSucceeded(name) {
			out = append(out, n)
		}
	}
	return out
}

func (s *DefaultScheduler) depsSucceeded(name string) bool {
	for _, dep := range s.plan.Dependencies(name) {
		if s.nodes[dep].Status() != node.Succeeded {
			return false
		}
	}
	return true
}

// Block implements Scheduler.
func (s *DefaultScheduler) Block(failed string) []string {
	var blocked []string
	for _, name := range s.plan.Downstream(failed) {
		if s.nodes[name].Block(failed) {
			blocked = append(blocked, name)
		}
	}
	return blocked
}

// Stuck implements Scheduler.
func (s *DefaultScheduler) Stuck() bool {
	for _, name := range s.plan.Order {
		switch n := s.nodes[name]; n.Status() {
		case node.Ready, node.Running:
			return false
		case node.Pending:
			if !n.Blocked() {
				return false
			}
		}
	}
	return true
}

var _ Scheduler = (*DefaultScheduler)(nil)
