// Package cache implements the market freshness cache.
//
// Every (system, station) key carries a three-valued freshness state:
// Unknown (never populated), Clean (current), Dirty (populated then
// invalidated by a feed event). A per-system aggregate drives scan
// planning: systems whose aggregate is not Clean need repopulation.
//
// Writers resolve conflicts with the source-priority rule alone: a
// feed-sourced snapshot is never replaced by a bulk-dump snapshot unless
// the dump is strictly newer. There are no locks or transactions beyond
// that rule.
//
// Two Store implementations exist: an in-memory map for tests and
// single-process runs, and a Redis store for deployments where the feed
// consumer and the scan service share state.
package cache
