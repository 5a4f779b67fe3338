// Package mnemonic encrypts wallet recovery phrases at rest.
//
// A key is derived from the user's password with Argon2id and a random
// 16-byte salt, then the phrase is sealed with AES-256-GCM under a random
// 12-byte nonce. Ciphertext, salt and nonce are hex encoded for storage.
//
// The Argon2id cost matches the parameters existing wallets were encrypted
// with (m=19 MiB, t=2, p=1), so phrases stored before the Go daemon still
// decrypt.
package mnemonic

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// Argon2id and AES-GCM parameters.
const (
	argonTime    = 2         // iterations
	argonMemory  = 19 * 1024 // 19 MiB
	argonThreads = 1         // parallelism
	keyLen       = 32        // AES-256
	saltLen      = 16
	nonceLen     = 12
)

var (
	// ErrInvalidInput is returned for an empty phrase, password or field.
	ErrInvalidInput = errors.New("mnemonic: invalid input")

	// ErrDecryptionFailed is returned when the password is wrong or the
	// stored data has been altered.
	ErrDecryptionFailed = errors.New("mnemonic: invalid password or corrupted data")

	// ErrKeyDerivation is returned when the salt cannot be used.
	ErrKeyDerivation = errors.New("mnemonic: key derivation failed")

	// ErrEncryptionFailed is returned when sealing fails.
	ErrEncryptionFailed = errors.New("mnemonic: encryption failed")
)

// Sealed is an encrypted phrase, every field hex encoded.
type Sealed struct {
	Ciphertext string `json:"encrypted_mnemonic"`
	Salt       string `json:"salt"`
	Nonce      string `json:"nonce"`
}

// Encrypt seals phrase under a key derived from password.
func Encrypt(phrase, password string) (Sealed, error) {
	if phrase == "" {
		return Sealed{}, fmt.Errorf("%w: mnemonic cannot be empty", ErrInvalidInput)
	}
	if password == "" {
		return Sealed{}, fmt.Errorf("%w: password cannot be empty", ErrInvalidInput)
	}

	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return Sealed{}, fmt.Errorf("%w: generating salt: %w", ErrEncryptionFailed, err)
	}
	nonce := make([]byte, nonceLen)
	if _, err := rand.Read(nonce); err != nil {
		return Sealed{}, fmt.Errorf("%w: generating nonce: %w", ErrEncryptionFailed, err)
	}

	gcm, err := newGCM(deriveKey(password, salt))
	if err != nil {
		return Sealed{}, fmt.Errorf("%w: %w", ErrEncryptionFailed, err)
	}

	ct := gcm.Seal(nil, nonce, []byte(phrase), nil)
	return Sealed{
		Ciphertext: hex.EncodeToString(ct),
		Salt:       hex.EncodeToString(salt),
		Nonce:      hex.EncodeToString(nonce),
	}, nil
}

// Decrypt opens s with password and returns the phrase.
func Decrypt(s Sealed, password string) (string, error) {
	if s.Ciphertext == "" || s.Salt == "" || s.Nonce == "" || password == "" {
		return "", fmt.Errorf("%w: ciphertext, salt, nonce and password are required", ErrInvalidInput)
	}

	ct, err := hex.DecodeString(s.Ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: ciphertext: %w", ErrDecryptionFailed, err)
	}
	salt, err := hex.DecodeString(s.Salt)
	if err != nil {
		return "", fmt.Errorf("%w: salt: %w", ErrDecryptionFailed, err)
	}
	if len(salt) < 8 { //nolint:mnd // Argon2 minimum salt length
		return "", fmt.Errorf("%w: salt too short", ErrKeyDerivation)
	}
	nonce, err := hex.DecodeString(s.Nonce)
	if err != nil {
		return "", fmt.Errorf("%w: nonce: %w", ErrDecryptionFailed, err)
	}
	if len(nonce) != nonceLen {
		return "", fmt.Errorf("%w: nonce must be %d bytes", ErrDecryptionFailed, nonceLen)
	}

	gcm, err := newGCM(deriveKey(password, salt))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrDecryptionFailed, err)
	}

	plain, err := gcm.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}
	return string(plain), nil
}

func deriveKey(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, keyLen)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
