package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SubjectShell is the subject of tokens issued to the desktop shell.
const SubjectShell = "shell"

// MinSecretLength is the shortest accepted HS256 secret.
const MinSecretLength = 32

// defaultTTL applies when no token lifetime is configured.
const defaultTTL = 24 * time.Hour

// SessionClaims are the claims of a shell session token.
type SessionClaims struct {
	jwt.RegisteredClaims
	// InstanceID identifies the daemon process that issued the token.
	InstanceID string `json:"iid"`
}

// Issuer mints and validates shell session tokens with one HS256 secret.
type Issuer struct {
	secret     []byte
	ttl        time.Duration
	instanceID string
}

// NewIssuer creates an Issuer. ttl <= 0 selects a 24 hour lifetime.
func NewIssuer(secret string, ttl time.Duration) (*Issuer, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("%w: need at least %d characters", ErrSecretTooShort, MinSecretLength)
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, instanceID: uuid.NewString()}, nil
}

// InstanceID returns the ID stamped into every token from this Issuer.
func (i *Issuer) InstanceID() string {
	return i.instanceID
}

// Issue returns a signed token for subject.
func (i *Issuer) Issue(subject string) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
			ID:        uuid.NewString(),
		},
		InstanceID: i.instanceID,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("signing session token: %w", err)
	}
	return signed, nil
}

// Parse validates tokenString and returns its claims. The signature,
// expiry and a non-empty subject are checked.
func (i *Issuer) Parse(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(_ *jwt.Token) (any, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}
	return claims, nil
}

// GenerateSecret returns a random 256-bit secret, hex encoded.
func GenerateSecret() (string, error) {
	b := make([]byte, 32) //nolint:mnd // 256-bit secret
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}
