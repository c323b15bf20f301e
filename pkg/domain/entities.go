// Package domain defines the persisted productivity entities, the persistence
// gateway contract, and the pure derivation helpers (progress, domain
// taxonomy) used by the momentum consistency core.
package domain

import "time"

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records and error values.
const (
	// EntityGoal identifies a goal record.
	EntityGoal EntityType = "goal"
	// EntityProject identifies a project record.
	EntityProject EntityType = "project"
	// EntityTask identifies a task record.
	EntityTask EntityType = "task"
	// EntityTodo identifies a standalone to-do record.
	EntityTodo EntityType = "todo"
	// EntityTimeBlock identifies a calendar time block record.
	EntityTimeBlock EntityType = "time_block"
	// EntityLink identifies a project to goal link map entry.
	EntityLink EntityType = "link"
)

// ProjectStatus enumerates the project workflow states.
type ProjectStatus string

// Canonical project statuses. A project is done exactly when it is completed.
const (
	StatusTodo       ProjectStatus = "todo"
	StatusInProgress ProjectStatus = "in_progress"
	StatusDone       ProjectStatus = "done"
)

// Valid reports whether the status is one of the canonical values.
func (s ProjectStatus) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Goal is a top-level user objective. Progress is derived from linked projects
// unless the goal is manually completed.
type Goal struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Domain    string     `json:"domain"`
	Color     string     `json:"color"`
	Icon      string     `json:"icon"`
	Completed bool       `json:"completed"`
	Progress  int        `json:"progress"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// Project is a unit of work under a goal, or an independent project when
// GoalID is nil. GoalTitle caches the parent goal title.
type Project struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	GoalID      *string       `json:"goalId"`
	GoalTitle   string        `json:"goalTitle"`
	Status      ProjectStatus `json:"status"`
	Completed   bool          `json:"completed"`
	Progress    int           `json:"progress"`
	Domain      string        `json:"domain"`
	Color       string        `json:"color"`
	// Tasks is only honoured on creation; stored tasks live in the task collection.
	Tasks     []Task     `json:"tasks,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// Done reports whether the project counts as finished.
func (p Project) Done() bool {
	return p.Completed || p.Status == StatusDone
}

// LinkedTo reports whether the project references the given goal.
func (p Project) LinkedTo(goalID string) bool {
	return p.GoalID != nil && *p.GoalID == goalID
}

// Task is the smallest unit of work and always belongs to a project.
type Task struct {
	ID        string        `json:"id"`
	ProjectID string        `json:"projectId"`
	Title     string        `json:"title"`
	Completed bool          `json:"completed"`
	Status    ProjectStatus `json:"status,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// Done reports whether the task counts as completed for progress purposes.
func (t Task) Done() bool {
	return t.Completed || t.Status == StatusDone
}

// Todo is a standalone checklist item not linked to any project.
type Todo struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Notes     string     `json:"notes,omitempty"`
	Completed bool       `json:"completed"`
	DueDate   *time.Time `json:"dueDate,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// TimeBlock reserves a span of calendar time, optionally for a project.
type TimeBlock struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	ProjectID *string   `json:"projectId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// LinkMap is the secondary project ID to goal ID index kept alongside the
// GoalID field on projects.
type LinkMap map[string]string

// Clone returns an independent copy of the link map.
func (m LinkMap) Clone() LinkMap {
	out := make(LinkMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Change describes a single mutation recorded within a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported CRUD operations captured in audit trail.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// StringPtr returns a pointer to a copy of s.
func StringPtr(s string) *string {
	return &s
}
