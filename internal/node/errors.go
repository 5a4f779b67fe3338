package node

import "errors"

// Domain errors for the node package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, node.ErrAlreadyRunning) {
//	    // stop the current node first
//	}
var (
	// ErrAlreadyRunning is returned by Start while a node process is live.
	ErrAlreadyRunning = errors.New("node: already running")

	// ErrNotRunning is returned by Stop when no node process is live.
	ErrNotRunning = errors.New("node: not running")

	// ErrPlatformUnsupported is returned when this build cannot run a local node.
	ErrPlatformUnsupported = errors.New("node: local node not supported on this platform")

	// ErrSpawnFailed is returned when the operating system refuses to start the node.
	ErrSpawnFailed = errors.New("node: spawn failed")

	// ErrLockUnavailable is returned after a panic inside a supervisor operation.
	// The supervisor refuses all further operations until the application restarts.
	ErrLockUnavailable = errors.New("node: supervisor state unavailable")

	// ErrIO is returned when writing node logs fails.
	ErrIO = errors.New("node: i/o error")

	// ErrForceKillFailed is returned when the operating system rejects the kill.
	ErrForceKillFailed = errors.New("node: force kill failed")

	// ErrInvalidParams is returned when start parameters fail validation.
	ErrInvalidParams = errors.New("node: invalid start parameters")
)
