// Package api implements the loopback HTTP API and WebSocket event hub that
// the desktop shell talks to.
//
// This package provides:
//   - node commands: start, stop, liveness, owning account, log paging and export
//   - account and channel order CRUD plus encrypted mnemonic storage
//   - the close-request endpoint that drives the shutdown coordinator
//   - a WebSocket hub delivering node-status and shutdown progress events
//   - middleware: request ID, logging, recovery, CORS, body limit, JWT auth
//
// # Security
//
// The daemon binds to 127.0.0.1. Every route except /health requires the
// shell session token (HS256 JWT, sub=shell) as a bearer token. WebSocket
// connections authenticate with single-use tickets from POST /auth/ws-ticket
// so the token never appears in a URL.
//
// # Errors
//
// Error bodies are {"status", "code", "message"}. Node errors map to
// 409 (already running, not running), 501 (unsupported platform) and 500
// (spawn or i/o failure); see writeNodeError.
package api
