package core

import (
	"context"
	"strings"

	"momentum/pkg/domain"
)

// AddTask stores a task under projectID and refreshes the project's progress.
// Only the progress value of the project is written.
func (s *Service) AddTask(ctx context.Context, projectID string, task Task) (Task, Result, error) {
	var created Task
	res, err := s.run(ctx, OpAddTask, func(ctx context.Context) (string, Result, error) {
		res, err := s.store.RunInTransaction(ctx, func(tx *Transaction) error {
			if tx.state.projectIndex(projectID) < 0 {
				return notFound(EntityProject, projectID)
			}
			var err error
			created, err = tx.createTask(projectID, task)
			if err != nil {
				return err
			}
			tx.recalcProjectFromTasks(projectID, false)
			return nil
		})
		return created.ID, res, err
	})
	return created, res, err
}

func (tx *Transaction) createTask(projectID string, t Task) (Task, error) {
	if t.ID == "" {
		t.ID = tx.store.newID()
	}
	if tx.state.taskIndex(projectID, t.ID) >= 0 {
		return Task{}, duplicateID(EntityTask, t.ID)
	}
	t.ProjectID = projectID
	t.Title = strings.TrimSpace(t.Title)
	mirrorTaskStatus(&t, Task{})
	t.CreatedAt = tx.now
	t.UpdatedAt = tx.now
	tx.state.tasks = append(tx.state.tasks, t)
	tx.markDirty(domain.KeyTasks)
	tx.recordChange(Change{Entity: EntityTask, Action: ActionCreate, After: t})
	return t, nil
}

// mirrorTaskStatus keeps the optional status in step with completed. A
// changed completed flag wins over a changed status.
func mirrorTaskStatus(t *Task, before Task) {
	switch {
	case t.Completed != before.Completed:
		if t.Completed {
			t.Status = StatusDone
		} else if t.Status == StatusDone || t.Status == "" {
			t.Status = StatusTodo
		}
	case t.Status != before.Status && t.Status.Valid():
		t.Completed = t.Status == StatusDone
	}
	if t.Status != "" && !t.Status.Valid() {
		t.Status = before.Status
	}
}

// UpdateTask applies mutator to a task of projectID and refreshes the
// project's progress.
func (s *Service) UpdateTask(ctx context.Context, projectID, taskID string, mutator func(*Task) error) (Task, Result, error) {
	var updated Task
	res, err := s.run(ctx, OpUpdateTask, func(ctx context.Context) (string, Result, error) {
		res, err := s.store.RunInTransaction(ctx, func(tx *Transaction) error {
			if tx.state.projectIndex(projectID) < 0 {
				return notFound(EntityProject, projectID)
			}
			i := tx.state.taskIndex(projectID, taskID)
			if i < 0 {
				return notFound(EntityTask, taskID)
			}
			before := tx.state.tasks[i]
			current := before
			if mutator != nil {
				if err := mutator(&current); err != nil {
					return err
				}
			}
			current.ID = taskID
			current.ProjectID = projectID
			current.CreatedAt = before.CreatedAt
			current.Title = strings.TrimSpace(current.Title)
			mirrorTaskStatus(&current, before)
			current.UpdatedAt = tx.now
			tx.state.tasks[i] = current
			tx.markDirty(domain.KeyTasks)
			tx.recordChange(Change{Entity: EntityTask, Action: ActionUpdate, Before: before, After: current})
			tx.recalcProjectFromTasks(projectID, false)
			updated = current
			return nil
		})
		return taskID, res, err
	})
	return updated, res, err
}

// DeleteTask removes a task. When it was the project's last task the
// project's progress is left as it was.
func (s *Service) DeleteTask(ctx context.Context, projectID, taskID string) (Result, error) {
	return s.run(ctx, OpDeleteTask, func(ctx context.Context) (string, Result, error) {
		res, err := s.store.RunInTransaction(ctx, func(tx *Transaction) error {
			if tx.state.projectIndex(projectID) < 0 {
				return notFound(EntityProject, projectID)
			}
			i := tx.state.taskIndex(projectID, taskID)
			if i < 0 {
				return notFound(EntityTask, taskID)
			}
			removed := tx.state.tasks[i]
			tasks := make([]Task, 0, len(tx.state.tasks)-1)
			tasks = append(tasks, tx.state.tasks[:i]...)
			tasks = append(tasks, tx.state.tasks[i+1:]...)
			tx.state.tasks = tasks
			tx.markDirty(domain.KeyTasks)
			tx.recordChange(Change{Entity: EntityTask, Action: ActionDelete, Before: removed})
			tx.recalcProjectFromTasks(projectID, true)
			return nil
		})
		return taskID, res, err
	})
}
