// Command kaleidod is the local control plane of the Kaleido desktop wallet.
//
// It supervises one rgb-lightning-node process per user account, stores
// accounts and channel orders in SQLite, and serves the desktop shell over
// a loopback HTTP API with a WebSocket event stream. When the shell asks to
// close, or the daemon receives SIGINT/SIGTERM, a running node is stopped
// gracefully and killed if it does not exit in time.
package main

import (
	"fmt"
	"os"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
