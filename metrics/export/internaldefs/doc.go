// Package internaldefs holds the shared counter catalog used by the metric
// exporters. It exists so the Prometheus and OpenTelemetry exporters expose
// identical metric names and help text.
package internaldefs
