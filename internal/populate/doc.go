// Package populate implements the market populator: given a batch of
// system names, it fetches each system's eligible stations and their
// markets with a bounded worker pool, writing accepted snapshots into the
// freshness cache. One station's failure never aborts the batch; it is
// recorded in the outcome and the key stays Dirty or Unknown for a later
// attempt.
package populate
