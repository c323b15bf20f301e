package core

import (
	"errors"
	"sync"
	"time"

	"momentum/pkg/domain"
)

// DefaultGuardCooldown is how long an entity stays locked after its
// operation finishes, absorbing repeated taps on the same control.
const DefaultGuardCooldown = 750 * time.Millisecond

// inflightGuard rejects a second mutation for an entity while the first is
// running or cooling down. Locks are always released by an explicit timer.
type inflightGuard struct {
	mu       sync.Mutex
	cooldown time.Duration
	active   map[string]*time.Timer
}

func newInflightGuard(cooldown time.Duration) *inflightGuard {
	return &inflightGuard{
		cooldown: cooldown,
		active:   make(map[string]*time.Timer),
	}
}

// acquire locks id and reports false when it is already held.
func (g *inflightGuard) acquire(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, held := g.active[id]; held {
		return false
	}
	g.active[id] = nil
	return true
}

// release schedules the unlock of id after the cooldown.
func (g *inflightGuard) release(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, held := g.active[id]; !held {
		return
	}
	if g.cooldown <= 0 {
		delete(g.active, id)
		return
	}
	var timer *time.Timer
	timer = time.AfterFunc(g.cooldown, func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		if g.active[id] == timer {
			delete(g.active, id)
		}
	})
	g.active[id] = timer
}

// settle releases id once its operation returns. An operation that failed
// because the entity does not exist unlocks at once, so a retry reports
// not found instead of a duplicate.
func (g *inflightGuard) settle(id string, err error) {
	if errors.Is(err, domain.ErrMissing) {
		g.mu.Lock()
		delete(g.active, id)
		g.mu.Unlock()
		return
	}
	g.release(id)
}

// held reports whether id is currently locked.
func (g *inflightGuard) held(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.active[id]
	return ok
}

// reset drops every lock and stops pending timers.
func (g *inflightGuard) reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for id, timer := range g.active {
		if timer != nil {
			timer.Stop()
		}
		delete(g.active, id)
	}
}
