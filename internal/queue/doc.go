// Package queue is the scoring core: it normalizes raw source records into a
// common scored representation (PriorityItem), aggregates per-dimension scores
// under a named weighting configuration, and applies the ranking/selection
// policy that produces the attention queue.
package queue
