package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/specialistvlad/taskgraph/internal/ctxlog"
	"github.com/specialistvlad/taskgraph/internal/metrics"
	"github.com/specialistvlad/taskgraph/internal/node"
	"github.com/specialistvlad/taskgraph/internal/scheduler"
)

// Policy decides what happens to the rest of the graph when a step fails.
type Policy string

const (
	// Continue keeps running every step that does not depend on a failed one.
	Continue Policy = "continue"
	// FailFast stops dispatching as soon as any step fails.
	FailFast Policy = "fail-fast"
)

// ParsePolicy converts a configuration string into a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case Continue, FailFast:
		return Policy(s), nil
	case "":
		return Continue, nil
	}
	return "", fmt.Errorf("unknown failure policy %q (want %q or %q)", s, Continue, FailFast)
}

// Options tunes an Executor.
type Options struct {
	// Workers bounds how many steps run at once. Values below 1 mean 1.
	Workers int
	Policy  Policy
	// Metrics may be nil.
	Metrics *metrics.Metrics
}

// Executor orchestrates the execution of one job.
type Executor struct {
	ec   *ExecutionContext
	opts Options
	wg   sync.WaitGroup
}

// New creates an executor for the job described by ec.
func New(ec *ExecutionContext, opts Options) *Executor {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Policy == "" {
		opts.Policy = Continue
	}
	return &Executor{ec: ec, opts: opts}
}

type result struct {
	node *node.Node
	err  error
}

// Run executes every step it can and reports on all of them. The returned
// error is nil only when every step succeeded; otherwise it joins the step
// failures and, if the job was cancelled, the context error.
func (e *Executor) Run(ctx context.Context) (*Report, error) {
	logger := ctxlog.FromContext(ctx)
	start := time.Now()

	plan := e.ec.Plan
	nodes := make(map[string]*node.Node, len(plan.Order))
	for _, name := range plan.Order {
		step, _ := e.ec.Graph.Step(name)
		nodes[name] = node.New(name, step.Task.Name)
	}
	sched := scheduler.New(plan, nodes)

	workers := min(e.opts.Workers, max(len(plan.Order), 1))
	jobs := make(chan *node.Node)
	results := make(chan result, workers)
	logger.Debug("Starting workers.", "count", workers, "policy", e.opts.Policy)
	for i := 0; i < workers; i++ {
		e.wg.Add(1)
		go e.worker(ctx, jobs, results, i)
	}

	var (
		started   []string
		failures  []error
		inflight  int
		stopped   bool
		cancelled bool
	)
	for {
		if !stopped && ctx.Err() != nil {
			logger.Warn("Job cancelled, no further steps will be scheduled.", "running", inflight)
			stopped, cancelled = true, true
		}
		if !stopped {
			for _, n := range sched.Ready() {
				if inflight == workers {
					break
				}
				if err := n.Transition(node.Pending, node.Ready); err != nil {
					logger.Error("Unexpected scheduling state.", "step", n.Name, "error", err)
					continue
				}
				started = append(started, n.Name)
				inflight++
				jobs <- n
			}
		}
		if inflight == 0 {
			if !stopped && !sched.Stuck() {
				logger.Error("No step is ready but the job has unfinished steps.")
			}
			break
		}

		r := <-results
		inflight--
		e.finish(ctx, sched, r, &failures)
		if r.err != nil && e.opts.Policy == FailFast && !stopped {
			logger.Warn("Failing fast, no further steps will be scheduled.", "failed_step", r.node.Name)
			stopped = true
		}
	}
	close(jobs)
	e.wg.Wait()

	report := e.report(ctx, plan.Order, nodes, started)
	var runErr error
	switch {
	case len(failures) > 0:
		report.Status = JobFailed
		runErr = errors.Join(failures...)
	case cancelled:
		report.Status = JobCancelled
		runErr = fmt.Errorf("job cancelled: %w", context.Cause(ctx))
	default:
		report.Status = JobSucceeded
	}
	report.Duration = time.Since(start)
	e.opts.Metrics.ObserveJob(string(report.Status), report.Duration)
	return report, runErr
}

// finish applies a worker result to the node and the rest of the graph.
func (e *Executor) finish(ctx context.Context, sched scheduler.Scheduler, r result, failures *[]error) {
	logger := ctxlog.FromContext(ctx).With("step", r.node.Name)
	if r.err == nil {
		if err := r.node.Transition(node.Running, node.Succeeded); err != nil {
			logger.Error("Unexpected step state.", "error", err)
		}
		e.opts.Metrics.ObserveStep(r.node.Task, node.Succeeded.String(), r.node.Duration())
		return
	}

	if err := r.node.Fail(r.err); err != nil {
		logger.Error("Unexpected step state.", "error", err)
	}
	*failures = append(*failures, r.err)
	e.opts.Metrics.ObserveStep(r.node.Task, node.Failed.String(), r.node.Duration())
	logger.Error("Step failed.", "error", r.err)

	if blocked := sched.Block(r.node.Name); len(blocked) > 0 {
		logger.Warn("Dependent steps will not run.", "blocked", blocked)
	}
}
