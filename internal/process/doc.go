// Package process owns a single operating-system child process.
//
// A Handle is created by Spawn and lives until the child has been reaped.
// It knows nothing about accounts or node state; the node supervisor wraps
// it and decides what an exit means.
//
// Features:
//   - Child placed in its own process group so signals reach its descendants
//   - stdout and stderr merged into one pipe, delivered line by line in the
//     order the child wrote them
//   - Graceful terminate and forced kill, both non-blocking
//   - Exit callback invoked after the last output line has been delivered
//
// Example usage:
//
//	h, err := process.Spawn(process.Config{
//	    Name:   "rgb-lightning-node",
//	    Binary: "/usr/local/bin/rgb-lightning-node",
//	    Args:   []string{"/data/alice", "--network", "regtest"},
//	    OnLine: cache.Append,
//	})
//	if err != nil {
//	    return err
//	}
//	_ = h.Terminate()
//	<-h.Done()
package process
