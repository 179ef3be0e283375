// Package rank scores embedded items against a query vector and
// produces bounded, thresholded rankings.
//
// The ranker holds no state: it operates on caller-supplied snapshots,
// scales by linear scan (a few thousand items per project), and leaves
// persistence and indexing to its callers.
package rank
