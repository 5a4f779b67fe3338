// Package node supervises the local rgb-lightning-node process.
//
// At most one node runs per application instance. The Supervisor is the
// single point of mutual exclusion for its lifecycle: every operation takes
// the same lock for its full duration, so a start can never interleave with
// another start or a stop.
//
// # Lifecycle
//
//	stopped ──Start──▶ starting ──▶ running ──Stop/Shutdown──▶ shutting_down
//	   ▲                               │                           │
//	   │                               │ unexpected exit           │ exit
//	   │                               ▼                           │
//	   └──────── Start ◀──────────── crashed                       │
//	   ◀───────────────────────────────────────────────────────────┘
//
// ForceKill moves any live state straight to stopped. A crashed node is
// never restarted automatically.
//
// # Output
//
// The node's stdout and stderr are merged and appended to the injected
// logcache.Cache one line at a time, in the order the node wrote them.
// SaveLogsToFile dumps whatever the cache currently holds, which may span
// several runs.
package node
