package session

import (
	"context"
	"sync"
	"time"
)

// TokenDenylist tracks revoked JWT IDs until the tokens would have expired
// anyway. Logged-out tokens land here so they stop working before their exp.
type TokenDenylist interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type memoryDenylist struct {
	mu      sync.Mutex
	revoked map[string]time.Time // jti -> expiry
}

var _ TokenDenylist = (*memoryDenylist)(nil)

// NewMemoryDenylist returns a process-local TokenDenylist for tests and
// single-instance deployments.
func NewMemoryDenylist() TokenDenylist {
	return &memoryDenylist{revoked: make(map[string]time.Time)}
}

func (dl *memoryDenylist) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	dl.mu.Lock()
	defer dl.mu.Unlock()
	dl.revoked[jti] = time.Now().Add(ttl)
	return nil
}

func (dl *memoryDenylist) IsRevoked(_ context.Context, jti string) (bool, error) {
	dl.mu.Lock()
	defer dl.mu.Unlock()
	exp, ok := dl.revoked[jti]
	if !ok {
		return false, nil
	}
	if time.Now().After(exp) {
		delete(dl.revoked, jti)
		return false, nil
	}
	return true, nil
}
