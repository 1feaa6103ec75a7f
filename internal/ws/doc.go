// Package ws provides WebSocket handling for streamed script execution.
//
// A client opens one connection and submits execute or validate requests;
// the server streams each execution's security events as they happen and
// finishes with the full result.
//
// Message Types (Client → Server):
//   - execute: run a script under a policy
//   - validate: static validation only
//   - ping: keep-alive ping
//
// Message Types (Server → Client):
//   - system: connection banner
//   - event: one security event of a running execution
//   - result: the final ExecutionResult
//   - validation: a ValidationResult verdict
//   - pong: keep-alive reply
//   - error: request-level error
//
// Example Usage:
//
//	handler := ws.NewHandler(sb, presets, cfg, logger, metrics)
//	router.GET("/stream", handler.HandleConnection)
package ws
