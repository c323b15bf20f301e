// Package memory provides an in-process implementation of the persistence
// gateway used for tests and ephemeral environments.
package memory

import (
	"context"
	"sync"

	"momentum/pkg/domain"
)

// Compile-time contract assertion ensuring Gateway satisfies the domain interface.
var _ domain.Gateway = (*Gateway)(nil)

// Hooks intercept gateway calls. A non-nil error returned by a hook fails the
// call before the map is touched. Hooks may block to simulate slow storage.
type Hooks struct {
	BeforeGet    func(ctx context.Context, key string) error
	BeforeSet    func(ctx context.Context, key, value string) error
	BeforeRemove func(ctx context.Context, key string) error
}

// Gateway keeps values in a map guarded by a RWMutex.
type Gateway struct {
	mu     sync.RWMutex
	data   map[string]string
	writes map[string]int
	hooks  Hooks
}

// NewGateway constructs an empty gateway.
func NewGateway() *Gateway {
	return &Gateway{
		data:   make(map[string]string),
		writes: make(map[string]int),
	}
}

// SetHooks installs fault-injection hooks.
func (g *Gateway) SetHooks(h Hooks) {
	g.mu.Lock()
	g.hooks = h
	g.mu.Unlock()
}

func (g *Gateway) currentHooks() Hooks {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.hooks
}

// Get implements domain.Gateway.
func (g *Gateway) Get(ctx context.Context, key string) (string, bool, error) {
	if hook := g.currentHooks().BeforeGet; hook != nil {
		if err := hook(ctx, key); err != nil {
			return "", false, err
		}
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	v, ok := g.data[key]
	return v, ok, nil
}

// Set implements domain.Gateway.
func (g *Gateway) Set(ctx context.Context, key, value string) error {
	if hook := g.currentHooks().BeforeSet; hook != nil {
		if err := hook(ctx, key, value); err != nil {
			return err
		}
	}
	g.mu.Lock()
	g.data[key] = value
	g.writes[key]++
	g.mu.Unlock()
	return nil
}

// Remove implements domain.Gateway.
func (g *Gateway) Remove(ctx context.Context, key string) error {
	if hook := g.currentHooks().BeforeRemove; hook != nil {
		if err := hook(ctx, key); err != nil {
			return err
		}
	}
	g.mu.Lock()
	delete(g.data, key)
	g.mu.Unlock()
	return nil
}

// Seed writes a value directly, bypassing hooks and write counters.
func (g *Gateway) Seed(key, value string) {
	g.mu.Lock()
	g.data[key] = value
	g.mu.Unlock()
}

// Writes reports how many successful Set calls targeted key.
func (g *Gateway) Writes(key string) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.writes[key]
}

// Snapshot returns a copy of every stored value.
func (g *Gateway) Snapshot() map[string]string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make(map[string]string, len(g.data))
	for k, v := range g.data {
		out[k] = v
	}
	return out
}
