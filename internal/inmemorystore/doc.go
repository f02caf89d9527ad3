// Package inmemorystore provides an ephemeral, thread-safe, in-memory
// implementation of nodestore.Store.
//
// Outputs live in a sync.Map: each key is written once and read many times by
// independent workers, which is the access pattern sync.Map is built for.
// Write-once is enforced with LoadOrStore, so two writers racing on a key
// cannot both win.
package inmemorystore
