// Package otel publishes engine metrics through an OpenTelemetry Meter.
//
// Every counter becomes an Int64ObservableCounter and each latency bucket
// an Int64ObservableGauge holding the cumulative count. One callback reads
// a snapshot per collection. The caller owns the MeterProvider.
package otel
