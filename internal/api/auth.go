package api

import (
	"context"
	"crypto/sha256"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/foxzi/recruitflow/internal/config"
)

// AnonymousUser owns every request when no keys are configured
const AnonymousUser = "anonymous"

// Caller is the authenticated identity of a request
type Caller struct {
	UserID  string
	KeyName string
}

type callerKey struct{}

// WithCaller attaches the caller to ctx
func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

// CallerFromContext returns the caller attached by the auth middleware
func CallerFromContext(ctx context.Context) Caller {
	c, _ := ctx.Value(callerKey{}).(Caller)
	return c
}

// KeyStore checks API keys against bcrypt hashes. Verified keys are
// remembered by digest so each request does not pay for bcrypt.
type KeyStore struct {
	keys []config.APIKey

	mu       sync.RWMutex
	verified map[[sha256.Size]byte]Caller
}

// NewKeyStore creates a key store over the configured keys
func NewKeyStore(keys []config.APIKey) *KeyStore {
	return &KeyStore{
		keys:     keys,
		verified: make(map[[sha256.Size]byte]Caller),
	}
}

// Enabled reports whether any key is configured
func (k *KeyStore) Enabled() bool {
	return len(k.keys) > 0
}

// Authenticate returns the caller owning token
func (k *KeyStore) Authenticate(token string) (Caller, bool) {
	if token == "" {
		return Caller{}, false
	}

	digest := sha256.Sum256([]byte(token))
	k.mu.RLock()
	c, ok := k.verified[digest]
	k.mu.RUnlock()
	if ok {
		return c, true
	}

	for _, key := range k.keys {
		if bcrypt.CompareHashAndPassword([]byte(key.Hash), []byte(token)) == nil {
			c := Caller{UserID: key.UserID, KeyName: key.Name}
			k.mu.Lock()
			k.verified[digest] = c
			k.mu.Unlock()
			return c, true
		}
	}
	return Caller{}, false
}

// HashKey returns the bcrypt hash stored in api.keys
func HashKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
