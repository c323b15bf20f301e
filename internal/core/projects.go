package core

import (
	"context"
	"strings"

	"momentum/pkg/domain"
)

// AddProject stores a new project. A goalId that does not resolve falls back
// to a case-insensitive goalTitle match and otherwise leaves the project
// independent. Inline tasks move into the task collection and set the
// initial progress.
func (s *Service) AddProject(ctx context.Context, project Project) (Project, Result, error) {
	var created Project
	res, err := s.run(ctx, OpAddProject, func(ctx context.Context) (string, Result, error) {
		res, err := s.store.RunInTransaction(ctx, func(tx *Transaction) error {
			var err error
			created, err = tx.createProject(project)
			return err
		})
		return created.ID, res, err
	})
	return created, res, err
}

func (tx *Transaction) createProject(p Project) (Project, error) {
	if p.ID == "" {
		p.ID = tx.store.newID()
	}
	if tx.state.projectIndex(p.ID) >= 0 {
		return Project{}, duplicateID(EntityProject, p.ID)
	}
	p.Title = strings.TrimSpace(p.Title)
	tx.resolveProjectGoal(&p, true)

	switch {
	case p.Completed || p.Status == StatusDone:
		p.Completed = true
		p.Status = StatusDone
	case !p.Status.Valid():
		p.Status = StatusTodo
	}
	domain.NormalizeProject(&p)
	p.CreatedAt = tx.now
	p.UpdatedAt = nil

	inline := p.Tasks
	p.Tasks = nil
	for _, t := range inline {
		if _, err := tx.createTask(p.ID, t); err != nil {
			return Project{}, err
		}
	}
	p.Progress = domain.ProjectProgress(p, tx.state.tasks)

	tx.state.projects = append(tx.state.projects, cloneProject(p))
	tx.markDirty(domain.KeyProjects)
	tx.recordChange(Change{Entity: EntityProject, Action: ActionCreate, After: cloneProject(p)})

	if p.GoalID != nil {
		tx.setLink(p.ID, p.GoalID)
		tx.recalcGoal(*p.GoalID)
	}
	return p, nil
}

// resolveProjectGoal validates the goal reference on p. On a miss it tries
// goalTitle when allowTitleMatch is set and otherwise makes p independent.
// A linked project inherits domain and color from its goal when unset.
func (tx *Transaction) resolveProjectGoal(p *Project, allowTitleMatch bool) {
	if p.GoalID == nil || *p.GoalID == "" {
		p.GoalID = nil
		p.GoalTitle = ""
		return
	}
	var goal Goal
	if i := tx.state.goalIndex(*p.GoalID); i >= 0 {
		goal = tx.state.goals[i]
	} else if match, ok := tx.findGoalByTitle(p.GoalTitle); allowTitleMatch && ok {
		goal = match
		p.Domain = goal.Domain
		p.Color = goal.Color
	} else {
		p.GoalID = nil
		p.GoalTitle = ""
		return
	}
	p.GoalID = domain.StringPtr(goal.ID)
	p.GoalTitle = goal.Title
	if strings.TrimSpace(p.Domain) == "" {
		p.Domain = goal.Domain
	}
	if strings.TrimSpace(p.Color) == "" {
		p.Color = goal.Color
	}
}

// UpdateProject applies mutator to the project. A status the mutator leaves
// unchanged is preserved, done and completed are kept in step, the goal
// reference is revalidated and both the new and previous goal are
// recalculated. Concurrent updates to the same project return
// domain.ErrDuplicateOperation.
func (s *Service) UpdateProject(ctx context.Context, id string, mutator func(*Project) error) (Project, Result, error) {
	var updated Project
	res, err := s.run(ctx, OpUpdateProject, func(ctx context.Context) (string, Result, error) {
		if !s.projectUpdates.acquire(id) {
			return id, Result{}, domain.ErrDuplicateOperation
		}
		var (
			res Result
			err error
		)
		defer func() { s.projectUpdates.settle(id, err) }()
		res, err = s.store.RunInTransaction(ctx, func(tx *Transaction) error {
			var err error
			updated, err = tx.updateProject(id, mutator)
			return err
		})
		return id, res, err
	})
	return updated, res, err
}

func (tx *Transaction) updateProject(id string, mutator func(*Project) error) (Project, error) {
	i := tx.state.projectIndex(id)
	if i < 0 {
		return Project{}, notFound(EntityProject, id)
	}
	before := cloneProject(tx.state.projects[i])
	current := cloneProject(before)
	if mutator != nil {
		if err := mutator(&current); err != nil {
			return Project{}, err
		}
	}
	current.ID = id
	current.CreatedAt = before.CreatedAt
	current.Tasks = nil
	current.Title = strings.TrimSpace(current.Title)
	tx.resolveProjectGoal(&current, false)

	if !current.Status.Valid() {
		current.Status = before.Status
	}
	hasTasks := len(tx.state.tasksForProject(id)) > 0
	switch {
	case current.Status != before.Status:
		current.Completed = current.Status == StatusDone
	case current.Completed != before.Completed:
		if current.Completed {
			current.Status = StatusDone
		} else {
			current.Status = StatusTodo
			if hasTasks && domain.ProjectProgress(Project{ID: id}, tx.state.tasks) > 0 {
				current.Status = StatusInProgress
			}
		}
	}

	switch {
	case current.Completed:
		current.Progress = 100
	case hasTasks:
		current.Progress = domain.ProjectProgress(current, tx.state.tasks)
	case before.Completed && current.Progress == before.Progress:
		current.Progress = 0
	default:
		current.Progress = domain.ClampProgress(current.Progress)
	}

	domain.NormalizeProject(&current)
	now := tx.now
	current.UpdatedAt = &now
	tx.state.projects[i] = cloneProject(current)
	tx.markDirty(domain.KeyProjects)
	tx.recordChange(Change{Entity: EntityProject, Action: ActionUpdate, Before: before, After: cloneProject(current)})

	tx.setLink(id, current.GoalID)
	if current.GoalID != nil {
		tx.recalcGoal(*current.GoalID)
	}
	if before.GoalID != nil && (current.GoalID == nil || *current.GoalID != *before.GoalID) {
		tx.recalcGoal(*before.GoalID)
	}
	return current, nil
}

// DeleteProject removes the project, its tasks and its link map entry and
// recalculates the former goal.
func (s *Service) DeleteProject(ctx context.Context, id string) (Result, error) {
	return s.run(ctx, OpDeleteProject, func(ctx context.Context) (string, Result, error) {
		res, err := s.store.RunInTransaction(ctx, func(tx *Transaction) error {
			return tx.deleteProject(id)
		})
		return id, res, err
	})
}

func (tx *Transaction) deleteProject(id string) error {
	i := tx.state.projectIndex(id)
	if i < 0 {
		return notFound(EntityProject, id)
	}
	removed := tx.state.projects[i]
	projects := make([]Project, 0, len(tx.state.projects)-1)
	projects = append(projects, tx.state.projects[:i]...)
	projects = append(projects, tx.state.projects[i+1:]...)
	tx.state.projects = projects
	tx.markDirty(domain.KeyProjects)
	tx.recordChange(Change{Entity: EntityProject, Action: ActionDelete, Before: cloneProject(removed)})

	tasks := make([]Task, 0, len(tx.state.tasks))
	for _, t := range tx.state.tasks {
		if t.ProjectID == id {
			tx.markDirty(domain.KeyTasks)
			tx.recordChange(Change{Entity: EntityTask, Action: ActionDelete, Before: t})
			continue
		}
		tasks = append(tasks, t)
	}
	tx.state.tasks = tasks

	tx.setLink(id, nil)
	tx.detachTimeBlocks(map[string]struct{}{id: {}})
	if removed.GoalID != nil {
		tx.recalcGoal(*removed.GoalID)
	}
	return nil
}

// UpdateProjectProgress sets a manual progress value on a project without
// tasks-derived recomputation. Completed projects stay pinned at 100.
func (s *Service) UpdateProjectProgress(ctx context.Context, id string, progress int) (Project, Result, error) {
	var updated Project
	res, err := s.run(ctx, OpUpdateProjectProgress, func(ctx context.Context) (string, Result, error) {
		res, err := s.store.RunInTransaction(ctx, func(tx *Transaction) error {
			i := tx.state.projectIndex(id)
			if i < 0 {
				return notFound(EntityProject, id)
			}
			project := tx.state.projects[i]
			before := cloneProject(project)
			if project.Completed {
				progress = 100
			}
			project.Progress = domain.ClampProgress(progress)
			now := tx.now
			project.UpdatedAt = &now
			tx.state.projects[i] = project
			tx.markDirty(domain.KeyProjects)
			tx.recordChange(Change{Entity: EntityProject, Action: ActionUpdate, Before: before, After: cloneProject(project)})
			if project.GoalID != nil {
				tx.recalcGoal(*project.GoalID)
			}
			updated = cloneProject(project)
			return nil
		})
		return id, res, err
	})
	return updated, res, err
}

// UpdateProjectProgressFromTasks recomputes progress from the project's
// tasks unless the project was manually edited within the debounce window.
// The returned bool reports whether the recomputation ran.
func (s *Service) UpdateProjectProgressFromTasks(ctx context.Context, id string) (Project, bool, error) {
	var (
		updated Project
		applied bool
	)
	_, err := s.run(ctx, OpUpdateProjectProgressFromTasks, func(ctx context.Context) (string, Result, error) {
		res, err := s.store.RunInTransaction(ctx, func(tx *Transaction) error {
			i := tx.state.projectIndex(id)
			if i < 0 {
				return notFound(EntityProject, id)
			}
			project := tx.state.projects[i]
			if s.withinDebounce(project.UpdatedAt, tx.now) {
				s.logger.Debug("skipping task progress recalculation", "project_id", id, "updated_at", *project.UpdatedAt)
				updated = cloneProject(project)
				return nil
			}
			applied = true
			tx.recalcProjectFromTasks(id, true)
			updated = cloneProject(tx.state.projects[i])
			return nil
		})
		return id, res, err
	})
	return updated, applied, err
}
