// Package registry provides the central "glue" between task declarations and
// the compiled Go code that implements them.
//
// Two tables live here. The Registry holds the Signatures declared by a
// graph document: a task's name, the plugin that implements it, and its
// typed inputs and outputs. The Handlers table maps plugin names to compiled
// Go callables and is populated by Modules at application startup.
//
// Before a job runs, every declared signature is checked against the
// Handlers table so that a task without an implementation is rejected during
// validation rather than discovered mid-run.
package registry
