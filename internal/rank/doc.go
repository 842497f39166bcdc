// Package rank scores stations by the revenue of a hypothetical sale of
// a cargo manifest. Candidates are computed on demand from cached market
// snapshots and never persisted; the same inputs always produce the same
// ranking.
package rank
