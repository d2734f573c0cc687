// Package command defines the mirrorable command tree that autonomous
// routines are assembled from. Leaves wrap a Behavior supplied by the action
// layer; groups hold sequential and parallel children. Calling Mirror on a
// group marks it and every child attached at call time as mirrored, so one
// routine can be reused for both halves of a symmetric field.
//
// Trees are built once, mirrored, and then handed to the scheduler. Nothing in
// this package locks: construction, mirroring and execution are expected to
// happen in that order on a single goroutine.
package command
