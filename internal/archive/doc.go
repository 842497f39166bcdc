// Package archive streams accepted market snapshots into Postgres.
// Writes are batched; the cache is the source of truth and the archive
// is append-only history, so a lost batch is never fatal.
package archive
