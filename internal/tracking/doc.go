// Package tracking records what a job did for collaborators outside the
// engine: the parameter values a job ran with, metrics reported by tasks, and
// the storage location of every artifact.
//
// A Tracker travels in the context. Tasks reach it with FromContext, which
// never returns nil. Several sinks can be combined with Multi.
package tracking
