package account

import "errors"

var (
	// ErrAccountNotFound is returned when no account has the given name or ID.
	ErrAccountNotFound = errors.New("account not found")

	// ErrAccountExists is returned when creating an account whose name is taken.
	ErrAccountExists = errors.New("account already exists")

	// ErrInvalidAccount is returned when account fields fail validation.
	ErrInvalidAccount = errors.New("invalid account")

	// ErrNoMnemonic is returned when an account has no stored mnemonic.
	ErrNoMnemonic = errors.New("no mnemonic stored for account")
)
