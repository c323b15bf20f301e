package core

import (
	"encoding/json"
	"fmt"
	"time"

	"momentum/pkg/domain"
)

// collections is the full in-memory image of every persisted key.
type collections struct {
	goals      []Goal
	projects   []Project
	tasks      []Task
	todos      []Todo
	timeBlocks []TimeBlock
	links      LinkMap
}

func newCollections() collections {
	return collections{
		goals:      []Goal{},
		projects:   []Project{},
		tasks:      []Task{},
		todos:      []Todo{},
		timeBlocks: []TimeBlock{},
		links:      LinkMap{},
	}
}

func (c collections) clone() collections {
	out := collections{
		goals:      make([]Goal, len(c.goals)),
		projects:   make([]Project, len(c.projects)),
		tasks:      make([]Task, len(c.tasks)),
		todos:      make([]Todo, len(c.todos)),
		timeBlocks: make([]TimeBlock, len(c.timeBlocks)),
		links:      c.links.Clone(),
	}
	for i, g := range c.goals {
		out.goals[i] = cloneGoal(g)
	}
	for i, p := range c.projects {
		out.projects[i] = cloneProject(p)
	}
	copy(out.tasks, c.tasks)
	for i, t := range c.todos {
		out.todos[i] = cloneTodo(t)
	}
	for i, b := range c.timeBlocks {
		out.timeBlocks[i] = cloneTimeBlock(b)
	}
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	cp := *t
	return &cp
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	cp := *s
	return &cp
}

func cloneGoal(g Goal) Goal {
	g.UpdatedAt = cloneTime(g.UpdatedAt)
	return g
}

func cloneProject(p Project) Project {
	p.GoalID = cloneString(p.GoalID)
	p.UpdatedAt = cloneTime(p.UpdatedAt)
	if p.Tasks != nil {
		p.Tasks = append([]Task(nil), p.Tasks...)
	}
	return p
}

func cloneTodo(t Todo) Todo {
	t.DueDate = cloneTime(t.DueDate)
	return t
}

func cloneTimeBlock(b TimeBlock) TimeBlock {
	b.ProjectID = cloneString(b.ProjectID)
	return b
}

// encode serializes the collection stored under key. Empty collections are
// written as "[]" or "{}" rather than null.
func (c *collections) encode(key string) (string, error) {
	var v any
	switch key {
	case domain.KeyGoals:
		v = nonNil(c.goals)
	case domain.KeyProjects:
		v = nonNil(c.projects)
	case domain.KeyTasks:
		v = nonNil(c.tasks)
	case domain.KeyTodos:
		v = nonNil(c.todos)
	case domain.KeyTimeBlocks:
		v = nonNil(c.timeBlocks)
	case domain.KeyLinkMap:
		if c.links == nil {
			v = LinkMap{}
		} else {
			v = c.links
		}
	default:
		return "", fmt.Errorf("unknown collection key %q", key)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", key, err)
	}
	return string(b), nil
}

// decode replaces the collection stored under key with the parsed payload.
func (c *collections) decode(key, payload string) error {
	data := []byte(payload)
	var err error
	switch key {
	case domain.KeyGoals:
		c.goals = []Goal{}
		err = json.Unmarshal(data, &c.goals)
	case domain.KeyProjects:
		c.projects = []Project{}
		err = json.Unmarshal(data, &c.projects)
	case domain.KeyTasks:
		c.tasks = []Task{}
		err = json.Unmarshal(data, &c.tasks)
	case domain.KeyTodos:
		c.todos = []Todo{}
		err = json.Unmarshal(data, &c.todos)
	case domain.KeyTimeBlocks:
		c.timeBlocks = []TimeBlock{}
		err = json.Unmarshal(data, &c.timeBlocks)
	case domain.KeyLinkMap:
		c.links = LinkMap{}
		err = json.Unmarshal(data, &c.links)
	default:
		return fmt.Errorf("unknown collection key %q", key)
	}
	if err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	c.fillNil()
	return nil
}

// fillNil replaces JSON nulls with empty collections.
func (c *collections) fillNil() {
	if c.goals == nil {
		c.goals = []Goal{}
	}
	if c.projects == nil {
		c.projects = []Project{}
	}
	if c.tasks == nil {
		c.tasks = []Task{}
	}
	if c.todos == nil {
		c.todos = []Todo{}
	}
	if c.timeBlocks == nil {
		c.timeBlocks = []TimeBlock{}
	}
	if c.links == nil {
		c.links = LinkMap{}
	}
}

func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}

func (c *collections) goalIndex(id string) int {
	for i := range c.goals {
		if c.goals[i].ID == id {
			return i
		}
	}
	return -1
}

func (c *collections) projectIndex(id string) int {
	for i := range c.projects {
		if c.projects[i].ID == id {
			return i
		}
	}
	return -1
}

func (c *collections) taskIndex(projectID, id string) int {
	for i := range c.tasks {
		if c.tasks[i].ID == id && c.tasks[i].ProjectID == projectID {
			return i
		}
	}
	return -1
}

func (c *collections) todoIndex(id string) int {
	for i := range c.todos {
		if c.todos[i].ID == id {
			return i
		}
	}
	return -1
}

func (c *collections) timeBlockIndex(id string) int {
	for i := range c.timeBlocks {
		if c.timeBlocks[i].ID == id {
			return i
		}
	}
	return -1
}

func (c *collections) projectsForGoal(goalID string) []Project {
	out := make([]Project, 0)
	for _, p := range c.projects {
		if p.LinkedTo(goalID) {
			out = append(out, cloneProject(p))
		}
	}
	return out
}

func (c *collections) tasksForProject(projectID string) []Task {
	out := make([]Task, 0)
	for _, t := range c.tasks {
		if t.ProjectID == projectID {
			out = append(out, t)
		}
	}
	return out
}

// collectionView exposes a read-only snapshot to rules.
type collectionView struct {
	state *collections
}

var _ RuleView = collectionView{}

func (v collectionView) ListGoals() []Goal {
	out := make([]Goal, 0, len(v.state.goals))
	for _, g := range v.state.goals {
		out = append(out, cloneGoal(g))
	}
	return out
}

func (v collectionView) ListProjects() []Project {
	out := make([]Project, 0, len(v.state.projects))
	for _, p := range v.state.projects {
		out = append(out, cloneProject(p))
	}
	return out
}

func (v collectionView) ListTasks() []Task {
	return append([]Task{}, v.state.tasks...)
}

func (v collectionView) ListTimeBlocks() []TimeBlock {
	out := make([]TimeBlock, 0, len(v.state.timeBlocks))
	for _, b := range v.state.timeBlocks {
		out = append(out, cloneTimeBlock(b))
	}
	return out
}

func (v collectionView) LinkMap() LinkMap {
	return v.state.links.Clone()
}

func (v collectionView) FindGoal(id string) (Goal, bool) {
	if i := v.state.goalIndex(id); i >= 0 {
		return cloneGoal(v.state.goals[i]), true
	}
	return Goal{}, false
}

func (v collectionView) FindProject(id string) (Project, bool) {
	if i := v.state.projectIndex(id); i >= 0 {
		return cloneProject(v.state.projects[i]), true
	}
	return Project{}, false
}
