package core

import (
	"context"

	"momentum/pkg/domain"
)

func (s *Service) snapshot() collections {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()
	return s.store.state.clone()
}

// Goals returns every goal in insertion order.
func (s *Service) Goals() []Goal {
	state := s.snapshot()
	return state.goals
}

// Projects returns every project in insertion order.
func (s *Service) Projects() []Project {
	state := s.snapshot()
	return state.projects
}

// Tasks returns every task in insertion order.
func (s *Service) Tasks() []Task {
	state := s.snapshot()
	return state.tasks
}

// Todos returns every to-do.
func (s *Service) Todos() []Todo {
	state := s.snapshot()
	return state.todos
}

// TimeBlocks returns every time block.
func (s *Service) TimeBlocks() []TimeBlock {
	state := s.snapshot()
	return state.timeBlocks
}

// LinkMap returns a copy of the project to goal link map.
func (s *Service) LinkMap() LinkMap {
	state := s.snapshot()
	return state.links
}

// GetGoal returns the goal with id.
func (s *Service) GetGoal(ctx context.Context, id string) (Goal, error) {
	var (
		goal Goal
		ok   bool
	)
	_ = s.store.View(ctx, func(v RuleView) error {
		goal, ok = v.FindGoal(id)
		return nil
	})
	if !ok {
		return Goal{}, notFound(EntityGoal, id)
	}
	return goal, nil
}

// GetProject returns the project with id.
func (s *Service) GetProject(ctx context.Context, id string) (Project, error) {
	var (
		project Project
		ok      bool
	)
	_ = s.store.View(ctx, func(v RuleView) error {
		project, ok = v.FindProject(id)
		return nil
	})
	if !ok {
		return Project{}, notFound(EntityProject, id)
	}
	return project, nil
}

// GetProjectsForGoal returns the projects whose goalId is goalID.
func (s *Service) GetProjectsForGoal(goalID string) []Project {
	state := s.snapshot()
	return state.projectsForGoal(goalID)
}

// GetTasksForProject returns the tasks of projectID.
func (s *Service) GetTasksForProject(projectID string) []Task {
	state := s.snapshot()
	return state.tasksForProject(projectID)
}

// CalculateGoalProgress derives a goal's progress from the current projects.
// Unknown goals report 0.
func (s *Service) CalculateGoalProgress(goalID string) int {
	state := s.snapshot()
	return domain.GoalProgress(goalID, state.projects)
}

// CalculateProjectProgress derives a project's progress from the current tasks.
func (s *Service) CalculateProjectProgress(projectID string) (int, error) {
	state := s.snapshot()
	i := state.projectIndex(projectID)
	if i < 0 {
		return 0, notFound(EntityProject, projectID)
	}
	return domain.ProjectProgress(state.projects[i], state.tasks), nil
}
