package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrNotFoundMatchesErrMissing(t *testing.T) {
	err := fmt.Errorf("lookup: %w", ErrNotFound{Entity: EntityGoal, ID: "g1"})
	if !errors.Is(err, ErrMissing) {
		t.Fatalf("expected ErrMissing match")
	}
	if !strings.Contains(err.Error(), "goal g1 not found") {
		t.Fatalf("unexpected message: %v", err)
	}
}

func TestRuleViolationErrorCapacity(t *testing.T) {
	capacity := RuleViolationError{Result: Result{Violations: []Violation{
		{Rule: CapacityRulePrefix + "active_goals", Severity: SeverityBlock, Message: "active goal limit reached"},
	}}}
	if !errors.Is(capacity, ErrCapacityExceeded) {
		t.Fatalf("expected capacity match")
	}
	if !strings.Contains(capacity.Error(), "active goal limit reached") {
		t.Fatalf("unexpected message: %s", capacity.Error())
	}

	warnOnly := RuleViolationError{Result: Result{Violations: []Violation{
		{Rule: CapacityRulePrefix + "active_goals", Severity: SeverityWarn},
		{Rule: "custom", Severity: SeverityBlock},
	}}}
	if errors.Is(warnOnly, ErrCapacityExceeded) {
		t.Fatalf("only blocking capacity violations match")
	}
	if (RuleViolationError{}).Error() != "transaction blocked by rules" {
		t.Fatalf("unexpected empty message")
	}
}

func TestPersistenceErrorUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := error(&PersistenceError{Op: "set", Key: KeyGoals, Err: cause})
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to unwrap")
	}
	if !strings.Contains(err.Error(), `persist set "goals"`) {
		t.Fatalf("unexpected message: %v", err)
	}
}

type stubRule struct {
	name string
	res  Result
	err  error
}

func (r stubRule) Name() string { return r.name }

func (r stubRule) Evaluate(context.Context, RuleView, []Change) (Result, error) {
	return r.res, r.err
}

func TestRulesEngineMergesResults(t *testing.T) {
	engine := NewRulesEngine()
	engine.Register(stubRule{name: "a", res: Result{Violations: []Violation{{Rule: "a", Severity: SeverityWarn}}}})
	engine.Register(stubRule{name: "b", res: Result{Violations: []Violation{{Rule: "b", Severity: SeverityBlock}}}})
	res, err := engine.Evaluate(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(res.Violations) != 2 || !res.HasBlocking() {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(engine.Rules()) != 2 {
		t.Fatalf("expected two rules registered")
	}

	failing := NewRulesEngine()
	failing.Register(stubRule{name: "boom", err: errors.New("boom")})
	if _, err := failing.Evaluate(context.Background(), nil, nil); err == nil {
		t.Fatalf("expected rule error to propagate")
	}
}
