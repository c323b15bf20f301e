package core

import (
	"context"
	"errors"
	"time"

	"momentum/internal/infra/persistence/memory"
	"momentum/pkg/domain"
)

// DefaultDebounceWindow is how long a manual project progress edit shields
// the project from UpdateProjectProgressFromTasks.
const DefaultDebounceWindow = 2 * time.Second

// Service exposes the transactional operations of the consistency core.
type Service struct {
	store    *Store
	logger   Logger
	clock    Clock
	audit    AuditRecorder
	metrics  MetricsRecorder
	tracer   Tracer
	limits   Limits
	engine   *RulesEngine
	cooldown time.Duration
	debounce time.Duration

	goalDeletes    *inflightGuard
	projectUpdates *inflightGuard
}

// ServiceOption configures optional Service behaviour.
type ServiceOption func(*Service)

// WithLogger sets the structured logger.
func WithLogger(logger Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source used for timestamps and debouncing.
func WithClock(clock Clock) ServiceOption {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithAuditRecorder sets the audit sink for mutating operations.
func WithAuditRecorder(recorder AuditRecorder) ServiceOption {
	return func(s *Service) {
		if recorder != nil {
			s.audit = recorder
		}
	}
}

// WithMetricsRecorder sets the per-operation metrics sink.
func WithMetricsRecorder(recorder MetricsRecorder) ServiceOption {
	return func(s *Service) {
		if recorder != nil {
			s.metrics = recorder
		}
	}
}

// WithTracer sets the tracer.
func WithTracer(tracer Tracer) ServiceOption {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithLimits selects the capacity limits enforced by the default rules.
func WithLimits(limits Limits) ServiceOption {
	return func(s *Service) {
		s.limits = limits
	}
}

// WithRulesEngine replaces the default rules engine entirely.
func WithRulesEngine(engine *RulesEngine) ServiceOption {
	return func(s *Service) {
		s.engine = engine
	}
}

// WithCooldown sets how long in-flight guards hold a lock after release.
func WithCooldown(d time.Duration) ServiceOption {
	return func(s *Service) {
		s.cooldown = d
	}
}

// WithDebounceWindow sets the manual edit shield for task-derived project progress.
func WithDebounceWindow(d time.Duration) ServiceOption {
	return func(s *Service) {
		s.debounce = d
	}
}

// NewService constructs a service over the gateway. The in-memory state
// starts empty; call Load or use Open to hydrate it.
func NewService(gateway Gateway, opts ...ServiceOption) *Service {
	svc := &Service{
		logger:   noopLogger{},
		clock:    systemClock{},
		audit:    noopAuditRecorder{},
		metrics:  noopMetricsRecorder{},
		tracer:   noopTracer{},
		limits:   FreeTierLimits,
		cooldown: DefaultGuardCooldown,
		debounce: DefaultDebounceWindow,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	engine := svc.engine
	if engine == nil {
		engine = NewDefaultRulesEngine(svc.limits)
		svc.engine = engine
	}
	svc.store = NewStore(gateway, engine)
	svc.store.nowFn = func() time.Time { return svc.clock.Now().UTC() }
	svc.goalDeletes = newInflightGuard(svc.cooldown)
	svc.projectUpdates = newInflightGuard(svc.cooldown)
	return svc
}

// NewInMemoryService builds a service over a fresh memory gateway.
func NewInMemoryService(opts ...ServiceOption) *Service {
	return NewService(memory.NewGateway(), opts...)
}

// Open constructs a service, loads every collection from the gateway and
// reconciles the link map with the goalId stored on projects.
func Open(ctx context.Context, gateway Gateway, opts ...ServiceOption) (*Service, error) {
	svc := NewService(gateway, opts...)
	if err := svc.Load(ctx); err != nil {
		return nil, err
	}
	if _, err := svc.FixProjectGoalLinks(ctx); err != nil {
		return svc, err
	}
	return svc, nil
}

// Store returns the underlying store.
func (s *Service) Store() *Store {
	return s.store
}

// Limits returns the limits the default rules were built with.
func (s *Service) Limits() Limits {
	return s.limits
}

// Close releases guard timers.
func (s *Service) Close() {
	s.goalDeletes.reset()
	s.projectUpdates.reset()
}

// run wraps an operation with tracing, metrics, audit and logging.
func (s *Service) run(ctx context.Context, op string, fn func(context.Context) (string, Result, error)) (Result, error) {
	started := time.Now()
	ctx, span := s.tracer.Start(ctx, op)
	entityID, res, err := fn(ctx)
	duration := time.Since(started)
	span.End(err)
	s.metrics.Observe(ctx, op, err == nil, duration)

	switch {
	case err == nil:
		s.logger.Debug("operation completed", "operation", op, "entity_id", entityID, "duration", duration)
		s.logViolations(op, res)
		s.recordAuditSuccess(ctx, op, entityID, duration)
	case errors.Is(err, domain.ErrDuplicateOperation):
		s.logger.Debug("duplicate operation ignored", "operation", op, "entity_id", entityID)
	case IsPersistenceError(err):
		s.logger.Error("operation committed but not persisted", "operation", op, "entity_id", entityID, "error", err)
		s.recordAuditError(ctx, op, entityID, duration, err)
	default:
		s.logger.Error("operation failed", "operation", op, "entity_id", entityID, "error", err)
		s.recordAuditError(ctx, op, entityID, duration, err)
	}
	return res, err
}

func (s *Service) logViolations(op string, res Result) {
	for _, v := range res.Violations {
		switch v.Severity {
		case domain.SeverityWarn:
			s.logger.Warn("rule violation", "operation", op, "rule", v.Rule, "entity_id", v.EntityID, "message", v.Message)
		case domain.SeverityLog:
			s.logger.Info("rule notice", "operation", op, "rule", v.Rule, "entity_id", v.EntityID, "message", v.Message)
		}
	}
}

func (s *Service) recordAuditSuccess(ctx context.Context, op, entityID string, duration time.Duration) {
	meta, ok := auditedOperations[op]
	if !ok {
		return
	}
	s.audit.Record(ctx, AuditEntry{
		Operation: op,
		Entity:    meta.entity,
		Action:    meta.action,
		EntityID:  entityID,
		Status:    AuditStatusSuccess,
		Duration:  duration,
		Timestamp: s.clock.Now(),
	})
}

func (s *Service) recordAuditError(ctx context.Context, op, entityID string, duration time.Duration, err error) {
	meta, ok := auditedOperations[op]
	if !ok {
		return
	}
	s.audit.Record(ctx, AuditEntry{
		Operation: op,
		Entity:    meta.entity,
		Action:    meta.action,
		EntityID:  entityID,
		Status:    AuditStatusError,
		Error:     err.Error(),
		Duration:  duration,
		Timestamp: s.clock.Now(),
	})
}

// withinDebounce reports whether updatedAt falls inside the debounce window
// ending at now.
func (s *Service) withinDebounce(updatedAt *time.Time, now time.Time) bool {
	if updatedAt == nil || s.debounce <= 0 {
		return false
	}
	return now.Sub(*updatedAt) < s.debounce
}
