package core

import (
	"context"
	"strings"

	"momentum/pkg/domain"
)

// AddTodo stores a standalone to-do.
func (s *Service) AddTodo(ctx context.Context, todo Todo) (Todo, Result, error) {
	var created Todo
	res, err := s.run(ctx, OpAddTodo, func(ctx context.Context) (string, Result, error) {
		res, err := s.store.RunInTransaction(ctx, func(tx *Transaction) error {
			if todo.ID == "" {
				todo.ID = tx.store.newID()
			}
			if tx.state.todoIndex(todo.ID) >= 0 {
				return duplicateID(EntityTodo, todo.ID)
			}
			todo.Title = strings.TrimSpace(todo.Title)
			todo.CreatedAt = tx.now
			todo.UpdatedAt = tx.now
			created = cloneTodo(todo)
			tx.state.todos = append(tx.state.todos, cloneTodo(todo))
			tx.markDirty(domain.KeyTodos)
			tx.recordChange(Change{Entity: EntityTodo, Action: ActionCreate, After: cloneTodo(todo)})
			return nil
		})
		return created.ID, res, err
	})
	return created, res, err
}

// UpdateTodo applies mutator to a to-do.
func (s *Service) UpdateTodo(ctx context.Context, id string, mutator func(*Todo) error) (Todo, Result, error) {
	var updated Todo
	res, err := s.run(ctx, OpUpdateTodo, func(ctx context.Context) (string, Result, error) {
		res, err := s.store.RunInTransaction(ctx, func(tx *Transaction) error {
			i := tx.state.todoIndex(id)
			if i < 0 {
				return notFound(EntityTodo, id)
			}
			before := cloneTodo(tx.state.todos[i])
			current := cloneTodo(before)
			if mutator != nil {
				if err := mutator(&current); err != nil {
					return err
				}
			}
			current.ID = id
			current.CreatedAt = before.CreatedAt
			current.Title = strings.TrimSpace(current.Title)
			current.UpdatedAt = tx.now
			tx.state.todos[i] = cloneTodo(current)
			tx.markDirty(domain.KeyTodos)
			tx.recordChange(Change{Entity: EntityTodo, Action: ActionUpdate, Before: before, After: cloneTodo(current)})
			updated = current
			return nil
		})
		return id, res, err
	})
	return updated, res, err
}

// DeleteTodo removes a to-do.
func (s *Service) DeleteTodo(ctx context.Context, id string) (Result, error) {
	return s.run(ctx, OpDeleteTodo, func(ctx context.Context) (string, Result, error) {
		res, err := s.store.RunInTransaction(ctx, func(tx *Transaction) error {
			i := tx.state.todoIndex(id)
			if i < 0 {
				return notFound(EntityTodo, id)
			}
			removed := tx.state.todos[i]
			todos := make([]Todo, 0, len(tx.state.todos)-1)
			todos = append(todos, tx.state.todos[:i]...)
			todos = append(todos, tx.state.todos[i+1:]...)
			tx.state.todos = todos
			tx.markDirty(domain.KeyTodos)
			tx.recordChange(Change{Entity: EntityTodo, Action: ActionDelete, Before: removed})
			return nil
		})
		return id, res, err
	})
}

// AddTimeBlock schedules a time block. A project reference must resolve.
func (s *Service) AddTimeBlock(ctx context.Context, block TimeBlock) (TimeBlock, Result, error) {
	var created TimeBlock
	res, err := s.run(ctx, OpAddTimeBlock, func(ctx context.Context) (string, Result, error) {
		res, err := s.store.RunInTransaction(ctx, func(tx *Transaction) error {
			if block.ID == "" {
				block.ID = tx.store.newID()
			}
			if tx.state.timeBlockIndex(block.ID) >= 0 {
				return duplicateID(EntityTimeBlock, block.ID)
			}
			if err := tx.validateTimeBlock(&block); err != nil {
				return err
			}
			block.CreatedAt = tx.now
			block.UpdatedAt = tx.now
			created = cloneTimeBlock(block)
			tx.state.timeBlocks = append(tx.state.timeBlocks, cloneTimeBlock(block))
			tx.markDirty(domain.KeyTimeBlocks)
			tx.recordChange(Change{Entity: EntityTimeBlock, Action: ActionCreate, After: cloneTimeBlock(block)})
			return nil
		})
		return created.ID, res, err
	})
	return created, res, err
}

func (tx *Transaction) validateTimeBlock(b *TimeBlock) error {
	b.Title = strings.TrimSpace(b.Title)
	if !b.End.After(b.Start) {
		return domain.ErrInvalidTimeRange
	}
	if b.ProjectID != nil && *b.ProjectID == "" {
		b.ProjectID = nil
	}
	if b.ProjectID != nil && tx.state.projectIndex(*b.ProjectID) < 0 {
		return notFound(EntityProject, *b.ProjectID)
	}
	return nil
}

// UpdateTimeBlock applies mutator to a time block.
func (s *Service) UpdateTimeBlock(ctx context.Context, id string, mutator func(*TimeBlock) error) (TimeBlock, Result, error) {
	var updated TimeBlock
	res, err := s.run(ctx, OpUpdateTimeBlock, func(ctx context.Context) (string, Result, error) {
		res, err := s.store.RunInTransaction(ctx, func(tx *Transaction) error {
			i := tx.state.timeBlockIndex(id)
			if i < 0 {
				return notFound(EntityTimeBlock, id)
			}
			before := cloneTimeBlock(tx.state.timeBlocks[i])
			current := cloneTimeBlock(before)
			if mutator != nil {
				if err := mutator(&current); err != nil {
					return err
				}
			}
			current.ID = id
			current.CreatedAt = before.CreatedAt
			if err := tx.validateTimeBlock(&current); err != nil {
				return err
			}
			current.UpdatedAt = tx.now
			tx.state.timeBlocks[i] = cloneTimeBlock(current)
			tx.markDirty(domain.KeyTimeBlocks)
			tx.recordChange(Change{Entity: EntityTimeBlock, Action: ActionUpdate, Before: before, After: cloneTimeBlock(current)})
			updated = current
			return nil
		})
		return id, res, err
	})
	return updated, res, err
}

// DeleteTimeBlock removes a time block.
func (s *Service) DeleteTimeBlock(ctx context.Context, id string) (Result, error) {
	return s.run(ctx, OpDeleteTimeBlock, func(ctx context.Context) (string, Result, error) {
		res, err := s.store.RunInTransaction(ctx, func(tx *Transaction) error {
			i := tx.state.timeBlockIndex(id)
			if i < 0 {
				return notFound(EntityTimeBlock, id)
			}
			removed := tx.state.timeBlocks[i]
			blocks := make([]TimeBlock, 0, len(tx.state.timeBlocks)-1)
			blocks = append(blocks, tx.state.timeBlocks[:i]...)
			blocks = append(blocks, tx.state.timeBlocks[i+1:]...)
			tx.state.timeBlocks = blocks
			tx.markDirty(domain.KeyTimeBlocks)
			tx.recordChange(Change{Entity: EntityTimeBlock, Action: ActionDelete, Before: removed})
			return nil
		})
		return id, res, err
	})
}
