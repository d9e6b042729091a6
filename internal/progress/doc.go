// Package progress carries run milestones from the worker pool to pluggable
// sinks. Workers emit events into a non-blocking Hub, which batches them on a
// background goroutine and fans each batch out to the log, Prometheus, the
// status API and Pub/Sub.
package progress
