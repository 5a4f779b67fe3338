// Package shutdown drives the application close sequence while a local node
// may still be running.
//
// When the UI asks to close and the node is live, the Coordinator asks the
// node to stop, polls it for a bounded time, escalates to a forced kill and
// only then lets the window close. Progress is reported to the UI through an
// Emitter as "trigger-shutdown" and "update-shutdown-status" events.
//
// The supervisor lock is never held across the poll loop: each liveness
// check is an independent call, and the loop wakes early when the node exits.
//
// Timing is fixed policy: 30 polls 100ms apart, 500ms to settle after a
// forced kill, 500ms for the UI to animate before the window is released.
// Worst case the window closes about four seconds after the request.
package shutdown
