// Package scheduler decides which steps may run next.
//
// A step is ready when it is Pending, no upstream failure has blocked it, and
// every one of its dependencies has Succeeded. Ready steps are always
// returned in plan order, so a single worker executes the plan exactly as the
// dependency resolver produced it and several workers pick up independent
// branches in a reproducible order.
//
// The scheduler only reads node state; the executor owns every transition.
package scheduler
