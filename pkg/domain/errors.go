package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissing matches every ErrNotFound value via errors.Is.
	ErrMissing = errors.New("entity not found")
	// ErrCapacityExceeded matches rule violations raised by capacity rules.
	ErrCapacityExceeded = errors.New("capacity exceeded")
	// ErrDuplicateOperation is returned when a mutation for the same entity is
	// already in flight. Callers treat it as an idempotent no-op.
	ErrDuplicateOperation = errors.New("operation already in progress")
	// ErrInvalidTimeRange is returned for time blocks that do not end after
	// they start.
	ErrInvalidTimeRange = errors.New("time block must end after it starts")
)

// CapacityRulePrefix namespaces the blocking rules that enforce tier limits.
const CapacityRulePrefix = "capacity."

// ErrNotFound is returned when an operation references an absent record.
type ErrNotFound struct {
	Entity EntityType
	ID     string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// Is lets errors.Is(err, ErrMissing) match any ErrNotFound.
func (e ErrNotFound) Is(target error) bool {
	return target == ErrMissing
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	var msgs []string
	for _, v := range e.Result.Violations {
		if v.Severity == SeverityBlock {
			msgs = append(msgs, v.Message)
		}
	}
	if len(msgs) == 0 {
		return "transaction blocked by rules"
	}
	return "transaction blocked by rules: " + strings.Join(msgs, "; ")
}

// Is reports ErrCapacityExceeded when a capacity rule blocked the transaction.
func (e RuleViolationError) Is(target error) bool {
	if target != ErrCapacityExceeded {
		return false
	}
	for _, v := range e.Result.Violations {
		if v.Severity == SeverityBlock && strings.HasPrefix(v.Rule, CapacityRulePrefix) {
			return true
		}
	}
	return false
}

// PersistenceError wraps a gateway failure. The in-memory state that
// triggered the write has already been committed when this is returned.
type PersistenceError struct {
	Op  string
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
