// Package observability provides logging and metrics support for the
// country report tool.
//
// # Logging
//
// Create a logger from configuration:
//
//	cfg := observability.LoggingConfig{
//	    Level:  "info",
//	    Format: "json",
//	    Output: "stdout",
//	}
//
//	logger := observability.NewLogger(cfg)
//	logger.Info().Str("country", "EC").Msg("report started")
//
// # Metrics
//
// The tool is a one-shot batch job, so metrics are not exposed over HTTP.
// They are collected on a private registry during the run and written to a
// Prometheus textfile at the end, in the format the node-exporter textfile
// collector understands:
//
//	metrics := observability.NewMetrics("countrystats")
//	metrics.APIRequests.WithLabelValues("works").Inc()
//	...
//	err := metrics.WriteTextfile("countrystats_metrics.prom")
//
// # Standard Fields
//
// Common log fields used across the tool:
//
//   - country: ISO 3166-1 alpha-2 country code of the report
//   - period: publication-year window ("2021-2026")
//   - step: pipeline step name (metadata, open_access, fields, ...)
//   - endpoint: OpenAlex endpoint (works, authors, institutions)
package observability
