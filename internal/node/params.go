package node

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// Network is the Bitcoin network the node runs against.
type Network string

const (
	NetworkRegtest Network = "regtest"
	NetworkSignet  Network = "signet"
	NetworkTestnet Network = "testnet"
	NetworkMainnet Network = "mainnet"
)

// ParseNetwork normalises a network name. Matching is case-insensitive.
func ParseNetwork(s string) (Network, error) {
	switch n := Network(strings.ToLower(strings.TrimSpace(s))); n {
	case NetworkRegtest, NetworkSignet, NetworkTestnet, NetworkMainnet:
		return n, nil
	default:
		return "", fmt.Errorf("%w: unknown network %q (use: regtest, signet, testnet, mainnet)", ErrInvalidParams, s)
	}
}

// StartParams is the configuration for one node run.
// It is recorded by the supervisor and not mutated after Start.
type StartParams struct {
	// Network is passed to the node's --network flag.
	Network Network `json:"network"`

	// DataPath is the node storage directory. Relative paths are resolved
	// under the supervisor's data root; empty means "<data root>/<account>".
	DataPath string `json:"datapath,omitempty"`

	// DaemonPort is the node's HTTP API listening port.
	DaemonPort int `json:"daemon_listening_port"`

	// PeerPort is the LDK peer-to-peer listening port.
	PeerPort int `json:"ldk_peer_listening_port"`
}

// Validate checks the parameters for errors.
func (p StartParams) Validate() error {
	if _, err := ParseNetwork(string(p.Network)); err != nil {
		return err
	}
	if p.DaemonPort < 1 || p.DaemonPort > 65535 {
		return fmt.Errorf("%w: daemon_listening_port must be between 1 and 65535", ErrInvalidParams)
	}
	if p.PeerPort < 1 || p.PeerPort > 65535 {
		return fmt.Errorf("%w: ldk_peer_listening_port must be between 1 and 65535", ErrInvalidParams)
	}
	if p.DaemonPort == p.PeerPort {
		return fmt.Errorf("%w: daemon and peer ports must differ", ErrInvalidParams)
	}
	if p.DataPath != "" && !filepath.IsAbs(p.DataPath) {
		if !filepath.IsLocal(p.DataPath) {
			return fmt.Errorf("%w: datapath %q escapes the data root", ErrInvalidParams, p.DataPath)
		}
		if filepath.Clean(p.DataPath) == "." {
			return fmt.Errorf("%w: datapath %q names the data root itself", ErrInvalidParams, p.DataPath)
		}
	}
	return nil
}

// ResolveDataDir returns the storage directory for this run.
func (p StartParams) ResolveDataDir(dataRoot, account string) string {
	switch {
	case p.DataPath == "":
		return filepath.Join(dataRoot, account)
	case filepath.IsAbs(p.DataPath):
		return filepath.Clean(p.DataPath)
	default:
		return filepath.Join(dataRoot, p.DataPath)
	}
}

// BuildArgs constructs the command-line arguments for rgb-lightning-node.
func (p StartParams) BuildArgs(dataDir string) []string {
	return []string{
		dataDir,
		"--daemon-listening-port", strconv.Itoa(p.DaemonPort),
		"--ldk-peer-listening-port", strconv.Itoa(p.PeerPort),
		"--network", string(p.Network),
	}
}

// validateAccountName rejects names that cannot be used as a directory name.
func validateAccountName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: account name is required", ErrInvalidParams)
	}
	if name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: account name %q is not a valid directory name", ErrInvalidParams, name)
	}
	return nil
}
