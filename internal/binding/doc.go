// Package binding classifies the raw argument values of a step and resolves
// them to concrete inputs at run time.
//
// A string beginning with "$" is a reference: "$name" names a parameter or
// the sole output of a step, and "$step.output" names one output of a step.
// A leading "$$" escapes a literal dollar sign. Lists and mappings are
// composite bindings whose elements are classified recursively. Everything
// else is a literal.
package binding
