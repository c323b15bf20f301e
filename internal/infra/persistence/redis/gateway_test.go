package redis

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"
)

// Integration tests run only when MOMENTUM_TEST_REDIS_ADDR points at a server.
func openTestGateway(t *testing.T) *Gateway {
	t.Helper()
	addr := os.Getenv("MOMENTUM_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("MOMENTUM_TEST_REDIS_ADDR not set")
	}
	prefix := fmt.Sprintf("momentum-test-%d:", time.Now().UnixNano())
	g, err := New(context.Background(), Options{Addr: addr, Prefix: prefix})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	t.Cleanup(func() { _ = g.Close() })
	return g
}

func TestGatewayRoundTrip(t *testing.T) {
	ctx := context.Background()
	g := openTestGateway(t)
	if _, found, err := g.Get(ctx, "goals"); err != nil || found {
		t.Fatalf("expected missing key, found=%v err=%v", found, err)
	}
	if err := g.Set(ctx, "goals", `[{"id":"g1"}]`); err != nil {
		t.Fatalf("set: %v", err)
	}
	v, found, err := g.Get(ctx, "goals")
	if err != nil || !found || v != `[{"id":"g1"}]` {
		t.Fatalf("unexpected get %q found=%v err=%v", v, found, err)
	}
	if err := g.Remove(ctx, "goals"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, found, _ := g.Get(ctx, "goals"); found {
		t.Fatalf("expected key removed")
	}
}

func TestNewFailsForUnreachableServer(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := New(ctx, Options{Addr: "127.0.0.1:1"})
	if err == nil || !strings.Contains(err.Error(), "ping redis") {
		t.Fatalf("expected ping error, got %v", err)
	}
}

func TestPrefixDefaults(t *testing.T) {
	g := NewWithClient(nil, "")
	if got := g.key("tasks"); got != DefaultPrefix+"tasks" {
		t.Fatalf("unexpected key %s", got)
	}
	if err := g.Close(); err != nil {
		t.Fatalf("close of borrowed client should be a no-op: %v", err)
	}
}
