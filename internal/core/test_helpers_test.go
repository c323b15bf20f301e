package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"momentum/internal/infra/persistence/memory"
)

// strPtr is a lightweight helper for pointer fields in core package tests.
func strPtr(v string) *string {
	return &v
}

// manualClock is a Clock that only moves when advanced.
type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// newTestService returns a service over a fresh memory gateway with guard
// cooldown disabled and a manual clock.
func newTestService(t *testing.T, opts ...ServiceOption) (*Service, *memory.Gateway, *manualClock) {
	t.Helper()
	gw := memory.NewGateway()
	clock := newManualClock()
	base := []ServiceOption{WithClock(clock), WithCooldown(0)}
	svc := NewService(gw, append(base, opts...)...)
	t.Cleanup(svc.Close)
	return svc, gw, clock
}

func mustAddGoal(t *testing.T, svc *Service, g Goal) Goal {
	t.Helper()
	created, _, err := svc.AddGoal(context.Background(), g)
	if err != nil {
		t.Fatalf("add goal %q: %v", g.Title, err)
	}
	return created
}

func mustAddProject(t *testing.T, svc *Service, p Project) Project {
	t.Helper()
	created, _, err := svc.AddProject(context.Background(), p)
	if err != nil {
		t.Fatalf("add project %q: %v", p.Title, err)
	}
	return created
}

func mustAddTask(t *testing.T, svc *Service, projectID, title string) Task {
	t.Helper()
	created, _, err := svc.AddTask(context.Background(), projectID, Task{Title: title})
	if err != nil {
		t.Fatalf("add task %q: %v", title, err)
	}
	return created
}

func mustGetProject(t *testing.T, svc *Service, id string) Project {
	t.Helper()
	p, err := svc.GetProject(context.Background(), id)
	if err != nil {
		t.Fatalf("get project %s: %v", id, err)
	}
	return p
}

func mustGetGoal(t *testing.T, svc *Service, id string) Goal {
	t.Helper()
	g, err := svc.GetGoal(context.Background(), id)
	if err != nil {
		t.Fatalf("get goal %s: %v", id, err)
	}
	return g
}
