// Package otel binds engine metrics to an OpenTelemetry [metric.Meter].
//
// Each counter becomes an Int64ObservableCounter and each latency bucket an
// Int64ObservableGauge. The caller owns the MeterProvider.
package otel
