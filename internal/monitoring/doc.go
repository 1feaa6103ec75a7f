/*
Package monitoring provides Prometheus metrics for the sandbox service.

# Overview

Tracks HTTP traffic, validation outcomes, execution terminal states and
their resource usage, and WebSocket streaming connections.

# Usage

	metrics := monitoring.NewMetrics(prometheus.DefaultRegisterer)

	// Gin middleware for HTTP metrics
	router.Use(monitoring.Middleware(metrics))

	// Record one execution outcome
	metrics.RecordExecution("success", res.Duration, res.MemoryUsed)

Metrics are exposed on the standard /metrics endpoint via promhttp.
*/
package monitoring
