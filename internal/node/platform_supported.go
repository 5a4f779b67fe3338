//go:build (linux || darwin) && (amd64 || arm64)

package node

// LocalNodeSupported reports whether this build can run a local node.
func LocalNodeSupported() bool {
	return true
}
