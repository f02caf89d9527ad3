/*
Package builder is the Parser/Validator. It turns a format-agnostic
config.Model into a validated *Graph that the dependency resolver and the
execution engine can run without further checks.

Validation is a multi-phase process that stops at the first error, in
declaration order:

 1. Types: user type definitions are registered with the job's
    types.Registry. Definitions may refer to each other in any order.

 2. Parameters and tasks: parameter types are resolved (or inferred from a
    scalar default) and task declarations become registry.Signatures. When
    handler lookups are supplied, every signature must have a compiled
    callable.

 3. Steps: names are checked for validity and uniqueness, and every step's
    task is looked up. Step names are indexed before any binding is
    classified, so a binding may refer to a step declared later.

 4. Bindings: each positional or named argument is matched to a declared
    input, classified as a literal, parameter reference, step reference or
    composite, and its static type is checked for assignability to the
    input's declared type. Finally every required input must be bound.

Artifact declarations are validated by BuildArtifacts in the same way,
against the already-built step graph.
*/
package builder
