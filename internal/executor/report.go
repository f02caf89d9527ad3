package executor

import (
	"context"
	"time"

	"github.com/specialistvlad/taskgraph/internal/node"
)

// JobStatus is the overall outcome of a job run.
type JobStatus string

const (
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

// StepReport is the final state of one step.
type StepReport struct {
	Name   string
	Task   string
	Status node.Status
	// Err is the *taskerr.ExecutionError of a failed step.
	Err error
	// BlockedBy names the failed upstream step that kept this step pending.
	BlockedBy string
	Duration  time.Duration
}

// Report summarizes a job run.
type Report struct {
	Status JobStatus
	// Order lists steps in the order they were dispatched.
	Order []string
	// Steps holds one entry per step, in plan order.
	Steps []*StepReport
	// Outputs is a snapshot of the Runtime Output Store.
	Outputs  map[string]any
	Duration time.Duration
}

// Step returns the report of the named step.
func (r *Report) Step(name string) (*StepReport, bool) {
	for _, s := range r.Steps {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// Failed returns the names of the steps that failed, in plan order.
func (r *Report) Failed() []string {
	var out []string
	for _, s := range r.Steps {
		if s.Status == node.Failed {
			out = append(out, s.Name)
		}
	}
	return out
}

func (e *Executor) report(ctx context.Context, order []string, nodes map[string]*node.Node, started []string) *Report {
	r := &Report{
		Order:   started,
		Outputs: e.ec.Store.Snapshot(ctx),
	}
	for _, name := range order {
		n := nodes[name]
		r.Steps = append(r.Steps, &StepReport{
			Name:      n.Name,
			Task:      n.Task,
			Status:    n.Status(),
			Err:       n.Err(),
			BlockedBy: n.BlockedBy(),
			Duration:  n.Duration(),
		})
	}
	return r
}
