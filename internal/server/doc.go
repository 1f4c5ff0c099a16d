// Package server implements the HTTP and WebSocket surface of the chat hub.
//
// The implementation is organized into specialized files for configuration,
// the per-connection lifecycle, origin and rate limiting policy, routing, and
// HTTP handlers. All handlers and connections share one hub.Hub, injected
// through Server.
package server
