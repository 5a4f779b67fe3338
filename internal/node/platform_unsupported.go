//go:build !((linux || darwin) && (amd64 || arm64))

package node

// LocalNodeSupported reports whether this build can run a local node.
// rgb-lightning-node is only published for linux and macOS on amd64/arm64.
func LocalNodeSupported() bool {
	return false
}
