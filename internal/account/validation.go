package account

import (
	"fmt"
	"path/filepath"
	"strings"
)

const maxNameLength = 100

// Validate checks the fields required to persist an account.
func (a *Account) Validate() error {
	if err := ValidateName(a.Name); err != nil {
		return err
	}
	if strings.TrimSpace(a.Network) == "" {
		return fmt.Errorf("%w: network is required", ErrInvalidAccount)
	}
	if a.Datapath != "" {
		if !filepath.IsLocal(a.Datapath) {
			return fmt.Errorf("%w: datapath %q must be relative to the node data root", ErrInvalidAccount, a.Datapath)
		}
		if filepath.Clean(a.Datapath) == "." {
			return fmt.Errorf("%w: datapath %q names the node data root itself", ErrInvalidAccount, a.Datapath)
		}
	}
	return nil
}

// ValidateName rejects names that cannot double as a directory name.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidAccount)
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidAccount, maxNameLength)
	}
	if name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: name %q is not a valid directory name", ErrInvalidAccount, name)
	}
	return nil
}
