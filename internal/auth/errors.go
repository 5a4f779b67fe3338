package auth

import "errors"

var (
	// ErrTokenInvalid is returned for a malformed, forged or expired token.
	ErrTokenInvalid = errors.New("invalid token")

	// ErrSecretTooShort is returned when a signing secret is under MinSecretLength.
	ErrSecretTooShort = errors.New("jwt secret too short")
)
