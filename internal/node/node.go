// Package node holds the per-step execution state machine.
package node

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Status represents the execution state of a step.
type Status int32

const (
	// Pending indicates the step is waiting for its dependencies.
	Pending Status = iota
	// Ready indicates every dependency succeeded and the step may be dispatched.
	Ready
	// Running indicates a worker is invoking the step's task.
	Running
	// Succeeded indicates the step completed and its outputs are stored.
	Succeeded
	// Failed indicates the task returned an error or produced an invalid output.
	Failed
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Ready:
		return "ready"
	case Running:
		return "running"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("status(%d)", int32(s))
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == Succeeded || s == Failed
}

var transitions = map[Status][]Status{
	Pending: {Ready},
	Ready:   {Running},
	Running: {Succeeded, Failed},
}

// Node tracks the runtime state of one step.
type Node struct {
	// Name is the step name from the graph document.
	Name string
	// Task is the task name the step invokes.
	Task string

	state atomic.Int32

	mu sync.Mutex
	// err is the failure recorded when the step moved to Failed.
	err error
	// blockedBy names the failed upstream step that kept this node Pending.
	blockedBy string
	started   time.Time
	finished  time.Time
	// blockOnce ensures only the first upstream failure is recorded.
	blockOnce sync.Once
}

// New creates a node in the Pending state.
func New(name, task string) *Node {
	return &Node{Name: name, Task: task}
}

// Status atomically retrieves the node's state.
func (n *Node) Status() Status {
	return Status(n.state.Load())
}

// Transition moves the node from one state to the next. It fails if the node
// is not in from, or if the move is not allowed by the state machine.
func (n *Node) Transition(from, to Status) error {
	allowed := false
	for _, s := range transitions[from] {
		if s == to {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("step %q: illegal transition %s -> %s", n.Name, from, to)
	}
	if !n.state.CompareAndSwap(int32(from), int32(to)) {
		return fmt.Errorf("step %q: expected state %s, found %s", n.Name, from, n.Status())
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	switch to {
	case Running:
		n.started = time.Now()
	case Succeeded, Failed:
		n.finished = time.Now()
	}
	return nil
}

// Fail moves a Running node to Failed and records err.
func (n *Node) Fail(err error) error {
	if terr := n.Transition(Running, Failed); terr != nil {
		return terr
	}
	n.mu.Lock()
	n.err = err
	n.mu.Unlock()
	return nil
}

// Block records that the node cannot run because upstream failed. The node
// stays Pending. It returns true the first time it is called.
func (n *Node) Block(upstream string) bool {
	var first bool
	n.blockOnce.Do(func() {
		n.mu.Lock()
		n.blockedBy = upstream
		n.mu.Unlock()
		first = true
	})
	return first
}

// Err returns the recorded failure, if any.
func (n *Node) Err() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.err
}

// BlockedBy returns the failed upstream step that blocked this node.
func (n *Node) BlockedBy() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.blockedBy
}

// Blocked reports whether an upstream failure blocked this node.
func (n *Node) Blocked() bool {
	return n.BlockedBy() != ""
}

// Duration returns how long the node ran. It is zero until the node finishes.
func (n *Node) Duration() time.Duration {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.started.IsZero() || n.finished.IsZero() {
		return 0
	}
	return n.finished.Sub(n.started)
}
