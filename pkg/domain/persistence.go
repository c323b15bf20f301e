package domain

import "context"

// Fixed gateway keys under which each collection is persisted as JSON.
const (
	KeyGoals      = "goals"
	KeyProjects   = "projects"
	KeyTasks      = "tasks"
	KeyTodos      = "todos"
	KeyTimeBlocks = "timeBlocks"
	KeyLinkMap    = "projectGoalLinkMap"
)

// CollectionKeys lists every key in load order.
var CollectionKeys = []string{KeyGoals, KeyProjects, KeyTasks, KeyTodos, KeyTimeBlocks, KeyLinkMap}

// Gateway is the string-keyed persistence contract consumed by the
// consistency core. Get reports found=false for keys never written.
type Gateway interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}
