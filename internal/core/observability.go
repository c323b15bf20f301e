package core

import (
	"context"
	"time"

	"momentum/pkg/domain"
)

// Logger is the structured logging surface used by the service. Arguments
// are alternating key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Clock supplies timestamps for audit entries and debounce windows.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// MetricsRecorder observes the outcome of each service operation.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

type noopMetricsRecorder struct{}

func (noopMetricsRecorder) Observe(context.Context, string, bool, time.Duration) {}

// Tracer opens a span per service operation.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

// TraceSpan is ended with the operation error, if any.
type TraceSpan interface {
	End(err error)
}

type noopTracer struct{}

func (noopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End(error) {}

// AuditStatus records whether an audited operation succeeded.
type AuditStatus string

// Audit outcomes.
const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusError   AuditStatus = "error"
)

// AuditEntry describes one mutation performed through the service.
type AuditEntry struct {
	Operation string
	Entity    domain.EntityType
	Action    domain.Action
	EntityID  string
	Status    AuditStatus
	Error     string
	Duration  time.Duration
	Timestamp time.Time
}

// AuditRecorder receives audit entries for mutating operations.
type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry)
}

type noopAuditRecorder struct{}

func (noopAuditRecorder) Record(context.Context, AuditEntry) {}

// Service operation names reported to logs, metrics, traces and audit.
const (
	OpAddGoal                        = "add_goal"
	OpUpdateGoal                     = "update_goal"
	OpDeleteGoal                     = "delete_goal"
	OpAddProject                     = "add_project"
	OpUpdateProject                  = "update_project"
	OpDeleteProject                  = "delete_project"
	OpUpdateProjectProgress          = "update_project_progress"
	OpUpdateProjectProgressFromTasks = "update_project_progress_from_tasks"
	OpAddTask                        = "add_task"
	OpUpdateTask                     = "update_task"
	OpDeleteTask                     = "delete_task"
	OpAddTodo                        = "add_todo"
	OpUpdateTodo                     = "update_todo"
	OpDeleteTodo                     = "delete_todo"
	OpAddTimeBlock                   = "add_time_block"
	OpUpdateTimeBlock                = "update_time_block"
	OpDeleteTimeBlock                = "delete_time_block"
	OpLoad                           = "load"
	OpRefreshData                    = "refresh_data"
	OpFixProjectGoalLinks            = "fix_project_goal_links"
	OpCleanupOrphanedProjects        = "cleanup_orphaned_projects"
	OpAuditRelationships             = "audit_project_goal_relationships"
)

type operationMetadata struct {
	entity domain.EntityType
	action domain.Action
}

var auditedOperations = map[string]operationMetadata{
	OpAddGoal:                        {domain.EntityGoal, domain.ActionCreate},
	OpUpdateGoal:                     {domain.EntityGoal, domain.ActionUpdate},
	OpDeleteGoal:                     {domain.EntityGoal, domain.ActionDelete},
	OpAddProject:                     {domain.EntityProject, domain.ActionCreate},
	OpUpdateProject:                  {domain.EntityProject, domain.ActionUpdate},
	OpDeleteProject:                  {domain.EntityProject, domain.ActionDelete},
	OpUpdateProjectProgress:          {domain.EntityProject, domain.ActionUpdate},
	OpUpdateProjectProgressFromTasks: {domain.EntityProject, domain.ActionUpdate},
	OpAddTask:                        {domain.EntityTask, domain.ActionCreate},
	OpUpdateTask:                     {domain.EntityTask, domain.ActionUpdate},
	OpDeleteTask:                     {domain.EntityTask, domain.ActionDelete},
	OpAddTodo:                        {domain.EntityTodo, domain.ActionCreate},
	OpUpdateTodo:                     {domain.EntityTodo, domain.ActionUpdate},
	OpDeleteTodo:                     {domain.EntityTodo, domain.ActionDelete},
	OpAddTimeBlock:                   {domain.EntityTimeBlock, domain.ActionCreate},
	OpUpdateTimeBlock:                {domain.EntityTimeBlock, domain.ActionUpdate},
	OpDeleteTimeBlock:                {domain.EntityTimeBlock, domain.ActionDelete},
	OpFixProjectGoalLinks:            {domain.EntityLink, domain.ActionUpdate},
	OpCleanupOrphanedProjects:        {domain.EntityProject, domain.ActionUpdate},
	OpAuditRelationships:             {domain.EntityProject, domain.ActionUpdate},
}
