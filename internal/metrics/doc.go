// Package metrics provides lock-free counters and latency histograms for the
// engine.
//
// Counters live in cache-line-padded uint64 slots and are incremented with
// sync/atomic. Histograms use 8 fixed buckets (5ms up to +Inf). Writes never
// allocate. Export (Prometheus, OTel) lives in metrics/export and reads
// [Snapshot] values.
package metrics
