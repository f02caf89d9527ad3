// Package dag is the Dependency Resolver. It holds a concurrency-safe
// directed graph keyed by string IDs and turns it into a deterministic
// execution plan.
//
// Nodes keep the order in which they were added. Every ordering decision
// breaks ties by that order, so the same graph always yields the same plan
// and, when the graph is cyclic, the same cycle witness.
package dag
