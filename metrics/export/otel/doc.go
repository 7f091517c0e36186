// Package otel bridges engine counters into OpenTelemetry as observable
// counters. Values are read from a snapshot at collection time, so the bridge
// adds no overhead to the hot path.
package otel
