package logging

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"momentum/internal/core"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"":      zapcore.InfoLevel,
		"debug": zapcore.DebugLevel,
		"WARN":  zapcore.WarnLevel,
		"error": zapcore.ErrorLevel,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil {
			t.Fatalf("parse %q: %v", in, err)
		}
		if got != want {
			t.Fatalf("parse %q: expected %s got %s", in, want, got)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
	if _, err := New("loud"); err == nil {
		t.Fatalf("expected New to reject unknown level")
	}
}

func TestAdapterForwardsFields(t *testing.T) {
	obsCore, logs := observer.New(zapcore.DebugLevel)
	a := NewAdapter(zap.New(obsCore))
	a.Debug("d", "operation", "add_goal")
	a.Info("i")
	a.Warn("w", "rule", "link_map_integrity")
	a.Error("e", "error", "boom")

	entries := logs.All()
	if len(entries) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(entries))
	}
	if entries[0].Level != zapcore.DebugLevel || entries[0].ContextMap()["operation"] != "add_goal" {
		t.Fatalf("unexpected debug entry: %+v", entries[0])
	}
	if entries[2].Level != zapcore.WarnLevel || entries[2].ContextMap()["rule"] != "link_map_integrity" {
		t.Fatalf("unexpected warn entry: %+v", entries[2])
	}
	if entries[3].Level != zapcore.ErrorLevel {
		t.Fatalf("expected error level, got %s", entries[3].Level)
	}
}

func TestAdapterNilLogger(t *testing.T) {
	a := NewAdapter(nil)
	a.Error("ignored")
}

func TestServiceLogsThroughAdapter(t *testing.T) {
	obsCore, logs := observer.New(zapcore.DebugLevel)
	svc := core.NewInMemoryService(core.WithLogger(NewAdapter(zap.New(obsCore))))
	defer svc.Close()
	ctx := context.Background()

	goal, _, err := svc.AddGoal(ctx, core.Goal{Title: "Run a marathon", Domain: "health"})
	if err != nil {
		t.Fatalf("add goal: %v", err)
	}
	if logs.FilterMessage("operation completed").FilterField(zap.String("operation", core.OpAddGoal)).Len() != 1 {
		t.Fatalf("expected debug completion entry for add_goal")
	}
	if _, err := svc.DeleteGoal(ctx, "missing"); err == nil {
		t.Fatalf("expected not found error")
	}
	if logs.FilterLevelExact(zapcore.ErrorLevel).FilterMessage("operation failed").Len() != 1 {
		t.Fatalf("expected error entry for failed delete")
	}
	if goal.ID == "" {
		t.Fatalf("expected generated id")
	}
}
