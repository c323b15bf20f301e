package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"momentum/internal/infra/persistence/postgres/testutil"
)

func openStub(t *testing.T) (*Gateway, *testutil.StubConn) {
	t.Helper()
	db, conn := testutil.NewStubDB()
	restore := OverrideSQLOpen(func(driver, dsn string) (*sql.DB, error) {
		if driver != defaultDriver {
			t.Fatalf("unexpected driver %s", driver)
		}
		if dsn != defaultDSN {
			t.Fatalf("expected default dsn, got %s", dsn)
		}
		return db, nil
	})
	t.Cleanup(restore)
	g, err := New(context.Background(), "")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	return g, conn
}

func TestNewEnsuresStateTable(t *testing.T) {
	_, conn := openStub(t)
	var sawDDL bool
	for _, stmt := range conn.Execs {
		if strings.Contains(stmt, "CREATE TABLE IF NOT EXISTS state") && strings.Contains(stmt, "JSONB") {
			sawDDL = true
		}
	}
	if !sawDDL {
		t.Fatalf("expected state table DDL, got %v", conn.Execs)
	}
}

func TestGatewayUpsertGetRemove(t *testing.T) {
	ctx := context.Background()
	g, conn := openStub(t)

	if _, found, err := g.Get(ctx, "goals"); err != nil || found {
		t.Fatalf("expected missing key, found=%v err=%v", found, err)
	}
	if err := g.Set(ctx, "goals", `[{"id":"g1"}]`); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := g.Set(ctx, "goals", `[{"id":"g2"}]`); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := g.Set(ctx, "tasks", `[]`); err != nil {
		t.Fatalf("set tasks: %v", err)
	}
	if rows := conn.Rows("state"); len(rows) != 2 {
		t.Fatalf("expected one row per key, got %d", len(rows))
	}
	v, found, err := g.Get(ctx, "goals")
	if err != nil || !found || v != `[{"id":"g2"}]` {
		t.Fatalf("unexpected get %q found=%v err=%v", v, found, err)
	}
	if err := g.Remove(ctx, "goals"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, found, _ := g.Get(ctx, "goals"); found {
		t.Fatalf("expected goals removed")
	}
	if _, found, _ := g.Get(ctx, "tasks"); !found {
		t.Fatalf("expected tasks to survive")
	}
}

func TestGatewayPropagatesDriverErrors(t *testing.T) {
	ctx := context.Background()
	g, conn := openStub(t)
	conn.FailExec = true
	if err := g.Set(ctx, "goals", `[]`); err == nil || !strings.Contains(err.Error(), "upsert goals") {
		t.Fatalf("expected wrapped upsert error, got %v", err)
	}
	if err := g.Remove(ctx, "goals"); err == nil {
		t.Fatalf("expected remove error")
	}
	conn.FailExec = false
	conn.FailQuery = true
	if _, _, err := g.Get(ctx, "goals"); err == nil {
		t.Fatalf("expected get error")
	}
	conn.FailQuery = false
	conn.RowsErr = errors.New("broken cursor")
	if err := g.Set(ctx, "goals", `[]`); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, _, err := g.Get(ctx, "goals"); err == nil || !strings.Contains(err.Error(), "broken cursor") {
		t.Fatalf("expected iterate error, got %v", err)
	}
}

func TestNewFailsWhenPingFails(t *testing.T) {
	db, conn := testutil.NewStubDB()
	conn.FailPing = true
	restore := OverrideSQLOpen(func(string, string) (*sql.DB, error) { return db, nil })
	defer restore()
	if _, err := New(context.Background(), "postgres://example"); err == nil || !strings.Contains(err.Error(), "ping postgres") {
		t.Fatalf("expected ping error, got %v", err)
	}
}
