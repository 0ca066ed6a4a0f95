// Package secrets sources the HMAC key that signs and verifies ticket MACs.
// spec.md §9 flags the secret as hard-coded in the original source and notes
// that production deployments should source it from configuration or an
// OS-level secret store; this package is that seam.
package secrets

import (
	"context"
	"fmt"
	"os"
	"time"
)

// Provider retrieves a named secret. EnvProvider is the only implementation
// shipped here; the interface exists so a vault- or KMS-backed provider can
// be substituted without touching callers (grounded on the teacher's
// internal/secrets.SecretProvider interface, trimmed to the single-provider
// case an edge node needs).
type Provider interface {
	GetSecret(ctx context.Context, key string) ([]byte, error)
}

// ErrNotFound is returned when the named secret has no value.
type ErrNotFound struct {
	Key string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("secret %q not found", e.Key)
}

// redactedMask is the fixed replacement the teacher's Secret.Redact() uses
// in place of a secret's value.
const redactedMask = "[REDACTED]"

// Redact returns a loggable stand-in for a secret value: empty values are
// reported as such, non-empty ones are masked outright rather than
// partially shown, since an HMAC key has no safe-to-reveal prefix.
func Redact(value []byte) string {
	if len(value) == 0 {
		return "(empty)"
	}
	return redactedMask
}

// EnvProvider reads secrets from environment variables.
type EnvProvider struct {
	prefix string
}

// NewEnvProvider returns a Provider that looks up key as the environment
// variable prefix+key.
func NewEnvProvider(prefix string) *EnvProvider {
	return &EnvProvider{prefix: prefix}
}

// GetSecret implements Provider.
func (p *EnvProvider) GetSecret(ctx context.Context, key string) ([]byte, error) {
	envKey := p.prefix + key
	val, ok := os.LookupEnv(envKey)
	if !ok || val == "" {
		return nil, &ErrNotFound{Key: envKey}
	}
	return []byte(val), nil
}

// MustLoadHMACSecret loads the HMAC secret from the environment variable
// named by envVar and fails fast (the caller is expected to treat this as a
// fatal startup error, per spec.md §6's exit-code policy) if it is absent.
func MustLoadHMACSecret(envVar string) ([]byte, error) {
	p := NewEnvProvider("")
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return p.GetSecret(ctx, envVar)
}
