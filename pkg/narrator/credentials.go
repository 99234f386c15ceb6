package narrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// CredentialPool hands out upstream API credentials and rotates through
// them when one runs out of quota. It is owned by a backend binding and
// passed to it explicitly.
type CredentialPool struct {
	mu      sync.Mutex
	keys    []string
	current int
	rotated int // rotations since the last Reset
}

// NewCredentialPool builds a pool from the given keys. Blank keys and
// duplicates are dropped.
func NewCredentialPool(keys ...string) *CredentialPool {
	seen := make(map[string]bool, len(keys))
	p := &CredentialPool{}
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		p.keys = append(p.keys, k)
	}
	return p
}

// Len returns the number of usable credentials
func (p *CredentialPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.keys)
}

// CurrentCredential returns the credential in use, or "" for an empty pool
func (p *CredentialPool) CurrentCredential() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.keys) == 0 {
		return ""
	}
	return p.keys[p.current]
}

// Rotate advances to the next credential. It returns false once every
// credential has been tried since the last Reset.
func (p *CredentialPool) Rotate() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.rotated+1 >= len(p.keys) {
		return false
	}
	p.current = (p.current + 1) % len(p.keys)
	p.rotated++
	return true
}

// Reset starts a new rotation cycle from the current credential
func (p *CredentialPool) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rotated = 0
}

// WithRotation calls fn with the current credential, rotating on
// ErrQuotaExhausted. fn runs at most once per credential; when all are
// exhausted the quota error is returned wrapped in ErrUnavailable. Other
// errors are returned as is.
func WithRotation[T any](ctx context.Context, pool *CredentialPool, fn func(ctx context.Context, credential string) (T, error)) (T, error) {
	var zero T
	if pool == nil || pool.Len() == 0 {
		return zero, fmt.Errorf("%w: no credentials configured", ErrUnavailable)
	}
	pool.Reset()
	for {
		if err := ctx.Err(); err != nil {
			return zero, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		out, err := fn(ctx, pool.CurrentCredential())
		if err == nil {
			return out, nil
		}
		if !errors.Is(err, ErrQuotaExhausted) {
			return zero, err
		}
		if !pool.Rotate() {
			return zero, fmt.Errorf("%w: all %d credentials exhausted: %w", ErrUnavailable, pool.Len(), err)
		}
	}
}
