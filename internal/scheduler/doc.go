// Package scheduler advances command trees one cycle at a time. A leaf runs
// Initialize on its first cycle, then Execute and IsFinished every cycle, and
// End once it completes or is interrupted. Within a group every parallel child
// starts on the group's first cycle, while sequential children run one at a
// time in insertion order. The group finishes when both lists are exhausted.
package scheduler
