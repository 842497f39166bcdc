// Package scan orchestrates shell-by-shell market population around an
// origin system. A scan buckets every system within a radius into
// equal-volume shells, dispatches population tasks for the systems that
// are not known-fresh, and reports live progress computed from the
// freshness cache rather than from stored state.
package scan
