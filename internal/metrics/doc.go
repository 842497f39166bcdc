// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - Provider fetch attempts, retries, and rate-limit stalls
//   - Feed event, drop, and reconnect counts
//   - Cache write acceptance by source
//   - Population task outcomes and queue depth
//   - Archive batch sizes and flush counts
package metrics
