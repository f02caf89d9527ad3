// Package executor runs a validated, planned task graph.
//
// A coordinator goroutine owns scheduling: it asks the scheduler for ready
// steps, hands them to a bounded pool of workers and applies the failure
// policy to every result. Workers resolve bindings, invoke the task callable
// and write outputs to the Runtime Output Store before reporting back, so a
// dependent is never dispatched before its inputs are visible.
//
// With a single worker, steps run exactly in plan order.
package executor
