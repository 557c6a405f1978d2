// Package secure fetches the server's public key once and uses it to replace
// password field values with ciphertext before a form leaves the client.
package secure

import (
	"context"
	"strings"
	"sync"

	"geoform/internal/debug"
	appErrors "geoform/internal/errors"
)

// KeyFetcher retrieves the PEM encoded public key from the backend.
type KeyFetcher interface {
	PublicKey(ctx context.Context) (string, error)
}

// KeyFetcherFunc adapts a function to KeyFetcher.
type KeyFetcherFunc func(ctx context.Context) (string, error)

// PublicKey implements KeyFetcher.
func (f KeyFetcherFunc) PublicKey(ctx context.Context) (string, error) {
	return f(ctx)
}

// KeyState is the shared public key record consulted before encryption.
type KeyState struct {
	PublicKey string
	Loaded    bool
}

// KeySource exposes the current KeyState.
type KeySource interface {
	State() KeyState
}

// KeyProvider performs the single public key fetch. Its state is written once,
// when that fetch resolves, and never reset.
type KeyProvider struct {
	fetcher KeyFetcher

	once  sync.Once
	done  chan struct{}
	mu    sync.RWMutex
	state KeyState
	err   error
}

// NewKeyProvider returns a provider with no key loaded.
func NewKeyProvider(fetcher KeyFetcher) *KeyProvider {
	return &KeyProvider{
		fetcher: fetcher,
		done:    make(chan struct{}),
	}
}

// Initialize fetches the key. Only the first call does any work; later calls
// return immediately. Failures are logged and leave Loaded false.
func (p *KeyProvider) Initialize(ctx context.Context) {
	p.once.Do(func() {
		defer close(p.done)

		key, err := p.fetch(ctx)

		p.mu.Lock()
		defer p.mu.Unlock()
		if err != nil {
			p.err = err
			p.state = KeyState{}
			debug.Errorf("secure: public key unavailable: %v", err)
			return
		}
		p.state = KeyState{PublicKey: key, Loaded: true}
		debug.Log("secure: public key loaded")
	})
}

func (p *KeyProvider) fetch(ctx context.Context) (string, error) {
	if p.fetcher == nil {
		return "", appErrors.New(appErrors.CodeKeyLoad, "no key fetcher configured", nil)
	}
	key, err := p.fetcher.PublicKey(ctx)
	if err != nil {
		return "", appErrors.New(appErrors.CodeKeyLoad, "fetch public key", err)
	}
	if strings.TrimSpace(key) == "" {
		return "", appErrors.New(appErrors.CodeKeyLoad, "public key missing in response", nil)
	}
	return key, nil
}

// State returns the current key snapshot.
func (p *KeyProvider) State() KeyState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// Loaded reports whether a key is available.
func (p *KeyProvider) Loaded() bool {
	return p.State().Loaded
}

// Err returns the fault recorded by a failed initialization.
func (p *KeyProvider) Err() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.err
}

// Done is closed once Initialize has resolved, successfully or not.
func (p *KeyProvider) Done() <-chan struct{} {
	return p.done
}
