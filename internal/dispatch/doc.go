// Package dispatch implements the asynchronous task queue for population
// batches.
//
// Population is fire-and-forget from the orchestrator's perspective:
// Enqueue hands a system-name batch to a bounded worker pool and returns a
// handle; Status and Result observe the task afterwards. Once dispatched a
// task runs to completion or fails; there is no cancellation. Finished
// task records are retained for a bounded window and then swept.
package dispatch
