// Package artifacts serializes step outputs once a job's step graph has
// finished.
//
// Artifacts read from the frozen Runtime Output Store and never from each
// other, so each one is resolved and written on its own: a missing source or
// a failing serializer affects only that artifact. Every location written is
// reported to the tracker in the context.
package artifacts
