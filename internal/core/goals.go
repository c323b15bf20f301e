package core

import (
	"context"
	"strings"

	"momentum/pkg/domain"
)

// AddGoal normalizes and stores a new goal. Creating an incomplete goal past
// the active goal limit fails with a capacity error and stores nothing.
func (s *Service) AddGoal(ctx context.Context, goal Goal) (Goal, Result, error) {
	var created Goal
	res, err := s.run(ctx, OpAddGoal, func(ctx context.Context) (string, Result, error) {
		res, err := s.store.RunInTransaction(ctx, func(tx *Transaction) error {
			var err error
			created, err = tx.createGoal(goal)
			return err
		})
		return created.ID, res, err
	})
	return created, res, err
}

func (tx *Transaction) createGoal(g Goal) (Goal, error) {
	if g.ID == "" {
		g.ID = tx.store.newID()
	}
	if tx.state.goalIndex(g.ID) >= 0 {
		return Goal{}, duplicateID(EntityGoal, g.ID)
	}
	g.Title = strings.TrimSpace(g.Title)
	domain.NormalizeGoal(&g)
	if g.Completed {
		g.Progress = 100
	} else {
		g.Progress = 0
	}
	g.CreatedAt = tx.now
	g.UpdatedAt = nil
	tx.state.goals = append(tx.state.goals, cloneGoal(g))
	tx.markDirty(domain.KeyGoals)
	tx.recordChange(Change{Entity: EntityGoal, Action: ActionCreate, After: cloneGoal(g)})
	return g, nil
}

// UpdateGoal applies mutator to the goal, renormalizes it, recomputes its
// progress and cascades title, domain and color to every linked project.
// Linked projects keep their own status, completion and progress.
func (s *Service) UpdateGoal(ctx context.Context, id string, mutator func(*Goal) error) (Goal, Result, error) {
	var updated Goal
	res, err := s.run(ctx, OpUpdateGoal, func(ctx context.Context) (string, Result, error) {
		res, err := s.store.RunInTransaction(ctx, func(tx *Transaction) error {
			var err error
			updated, err = tx.updateGoal(id, mutator)
			return err
		})
		return id, res, err
	})
	return updated, res, err
}

func (tx *Transaction) updateGoal(id string, mutator func(*Goal) error) (Goal, error) {
	i := tx.state.goalIndex(id)
	if i < 0 {
		return Goal{}, notFound(EntityGoal, id)
	}
	before := cloneGoal(tx.state.goals[i])
	current := cloneGoal(before)
	if mutator != nil {
		if err := mutator(&current); err != nil {
			return Goal{}, err
		}
	}
	current.ID = id
	current.CreatedAt = before.CreatedAt
	current.Title = strings.TrimSpace(current.Title)
	domain.NormalizeGoal(&current)
	if current.Completed {
		current.Progress = 100
	} else {
		current.Progress = domain.GoalProgress(id, tx.state.projects)
	}
	now := tx.now
	current.UpdatedAt = &now
	tx.state.goals[i] = cloneGoal(current)
	tx.markDirty(domain.KeyGoals)
	tx.recordChange(Change{Entity: EntityGoal, Action: ActionUpdate, Before: before, After: cloneGoal(current)})

	for j, p := range tx.state.projects {
		if !p.LinkedTo(id) {
			continue
		}
		if p.GoalTitle == current.Title && p.Domain == current.Domain && p.Color == current.Color {
			continue
		}
		pBefore := cloneProject(p)
		p.GoalTitle = current.Title
		p.Domain = current.Domain
		p.Color = current.Color
		tx.state.projects[j] = p
		tx.markDirty(domain.KeyProjects)
		tx.recordChange(Change{Entity: EntityProject, Action: ActionUpdate, Before: pBefore, After: cloneProject(p)})
	}
	return current, nil
}

// DeleteGoal removes the goal and cascades to every project referencing it,
// every task under those projects and their link map entries. A second call
// for the same goal while the first is running or cooling down returns
// domain.ErrDuplicateOperation without touching state. A goal that does not
// exist skips the cooldown.
func (s *Service) DeleteGoal(ctx context.Context, id string) (Result, error) {
	return s.run(ctx, OpDeleteGoal, func(ctx context.Context) (string, Result, error) {
		if !s.goalDeletes.acquire(id) {
			return id, Result{}, domain.ErrDuplicateOperation
		}
		var (
			res Result
			err error
		)
		defer func() { s.goalDeletes.settle(id, err) }()
		res, err = s.store.RunInTransaction(ctx, func(tx *Transaction) error {
			return tx.deleteGoal(id)
		})
		return id, res, err
	})
}

func (tx *Transaction) deleteGoal(id string) error {
	i := tx.state.goalIndex(id)
	if i < 0 {
		return notFound(EntityGoal, id)
	}
	removedGoal := tx.state.goals[i]
	goals := make([]Goal, 0, len(tx.state.goals)-1)
	goals = append(goals, tx.state.goals[:i]...)
	goals = append(goals, tx.state.goals[i+1:]...)
	tx.state.goals = goals
	tx.recordChange(Change{Entity: EntityGoal, Action: ActionDelete, Before: cloneGoal(removedGoal)})

	validGoals := make(map[string]struct{}, len(goals))
	for _, g := range goals {
		validGoals[g.ID] = struct{}{}
	}

	// Projects survive only when independent or linked to a remaining goal.
	projects := make([]Project, 0, len(tx.state.projects))
	removedProjects := make(map[string]struct{})
	for _, p := range tx.state.projects {
		if p.GoalID != nil {
			if _, ok := validGoals[*p.GoalID]; !ok {
				removedProjects[p.ID] = struct{}{}
				tx.recordChange(Change{Entity: EntityProject, Action: ActionDelete, Before: cloneProject(p)})
				continue
			}
		}
		projects = append(projects, p)
	}
	tx.state.projects = projects

	surviving := make(map[string]struct{}, len(projects))
	for _, p := range projects {
		surviving[p.ID] = struct{}{}
	}
	tasks := make([]Task, 0, len(tx.state.tasks))
	for _, t := range tx.state.tasks {
		if _, ok := surviving[t.ProjectID]; !ok {
			tx.recordChange(Change{Entity: EntityTask, Action: ActionDelete, Before: t})
			continue
		}
		tasks = append(tasks, t)
	}
	tx.state.tasks = tasks

	links := make(LinkMap, len(tx.state.links))
	for projectID, goalID := range tx.state.links {
		_, projectOK := surviving[projectID]
		_, goalOK := validGoals[goalID]
		if projectOK && goalOK {
			links[projectID] = goalID
		}
	}
	tx.state.links = links

	tx.detachTimeBlocks(removedProjects)
	tx.markDirty(domain.KeyGoals, domain.KeyProjects, domain.KeyTasks, domain.KeyLinkMap)
	return nil
}
