package scheduler

import "github.com/specialistvlad/taskgraph/internal/node"

// Scheduler analyzes the plan and node state to determine which steps are
// ready for execution.
type Scheduler interface {
	// Ready returns the Pending, unblocked steps whose dependencies have all
	// Succeeded, in plan order. It does not change any node state.
	Ready() []*node.Node

	// Block marks every transitive dependent of a failed step as blocked and
	// returns the names that were newly blocked, in plan order.
	Block(failed string) []string

	// Stuck reports whether no step can ever become ready again: every node
	// is terminal, blocked, or waiting on a step that is.
	Stuck() bool
}
