// Package http implements the REST surface of the sandbox service:
// validation, execution, policy presets, health and aggregate statistics.
package http
