// Package auth issues and validates the bearer token the desktop shell uses
// to call the daemon.
//
// The daemon listens on loopback only, but any local process can reach a
// loopback port. At startup the daemon mints a JWT for the shell and writes
// it to a 0600 file the shell reads; every protected route checks the token
// signature and subject.
//
// WebSocket connections cannot carry an Authorization header from a
// browser context, so the shell trades its token for a short-lived
// single-use ticket (see TicketStore).
package auth
