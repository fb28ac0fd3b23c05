// Package prometheus renders engine metrics in Prometheus text exposition
// format.
//
// [NewPrometheusExporter] reads an [goMiniAuth.Engine] and exposes an
// [http.Handler] suitable for mounting at /metrics. Counters are named
// miniauth_*_total and latency histograms miniauth_*_latency_seconds. Nothing
// is registered in a global registry.
package prometheus
