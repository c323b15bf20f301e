package core

import "momentum/pkg/domain"

type (
	EntityType         = domain.EntityType
	ProjectStatus      = domain.ProjectStatus
	Severity           = domain.Severity
	Goal               = domain.Goal
	Project            = domain.Project
	Task               = domain.Task
	Todo               = domain.Todo
	TimeBlock          = domain.TimeBlock
	LinkMap            = domain.LinkMap
	Change             = domain.Change
	Action             = domain.Action
	Violation          = domain.Violation
	Result             = domain.Result
	Rule               = domain.Rule
	RuleView           = domain.RuleView
	RulesEngine        = domain.RulesEngine
	RuleViolationError = domain.RuleViolationError
	ErrNotFound        = domain.ErrNotFound
	PersistenceError   = domain.PersistenceError
	Gateway            = domain.Gateway
)

const (
	EntityGoal      = domain.EntityGoal
	EntityProject   = domain.EntityProject
	EntityTask      = domain.EntityTask
	EntityTodo      = domain.EntityTodo
	EntityTimeBlock = domain.EntityTimeBlock
	EntityLink      = domain.EntityLink
)

const (
	StatusTodo       = domain.StatusTodo
	StatusInProgress = domain.StatusInProgress
	StatusDone       = domain.StatusDone
)

const (
	SeverityBlock = domain.SeverityBlock
	SeverityWarn  = domain.SeverityWarn
	SeverityLog   = domain.SeverityLog
)

const (
	ActionCreate = domain.ActionCreate
	ActionUpdate = domain.ActionUpdate
	ActionDelete = domain.ActionDelete
)

// NewRulesEngine constructs an empty engine.
func NewRulesEngine() *RulesEngine {
	return domain.NewRulesEngine()
}
