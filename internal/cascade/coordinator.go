package cascade

import (
	"context"
	"sync"
)

// Token identifies one request issued for a level. The zero Token is never live.
type Token struct {
	seq uint64
}

// IsZero reports whether t was never issued.
func (t Token) IsZero() bool {
	return t.seq == 0
}

// Coordinator owns the single live token of one level. Issuing a new token
// invalidates the previous one and cancels its context.
type Coordinator struct {
	mu     sync.Mutex
	seq    uint64
	live   uint64
	cancel context.CancelFunc
}

// NewCoordinator returns a coordinator with no live token.
func NewCoordinator() *Coordinator {
	return &Coordinator{}
}

// Issue invalidates the current token and returns a fresh one together with a
// context that is cancelled as soon as the token is superseded.
func (c *Coordinator) Issue(parent context.Context) (Token, context.Context) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidateLocked()
	c.seq++
	c.live = c.seq
	c.cancel = cancel
	return Token{seq: c.seq}, ctx
}

// Invalidate kills the current token without issuing another.
func (c *Coordinator) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidateLocked()
}

// Live reports whether t is still the level's current token.
func (c *Coordinator) Live(t Token) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !t.IsZero() && t.seq == c.live
}

// Release frees the context of t once its request has resolved. The token
// stays live; only a later Issue or Invalidate supersedes it.
func (c *Coordinator) Release(t Token) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t.IsZero() || t.seq != c.live || c.cancel == nil {
		return
	}
	c.cancel()
	c.cancel = nil
}

func (c *Coordinator) invalidateLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.live = 0
}
