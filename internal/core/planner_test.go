package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"momentum/pkg/domain"
)

func TestTodoLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, gw, clock := newTestService(t)

	todo, _, err := svc.AddTodo(ctx, Todo{Title: "  buy milk "})
	if err != nil {
		t.Fatalf("add todo: %v", err)
	}
	if todo.ID == "" || todo.Title != "buy milk" {
		t.Fatalf("unexpected todo: %+v", todo)
	}

	clock.Advance(time.Minute)
	updated, _, err := svc.UpdateTodo(ctx, todo.ID, func(td *Todo) error {
		td.Completed = true
		td.ID = "rewritten"
		return nil
	})
	if err != nil {
		t.Fatalf("update todo: %v", err)
	}
	if updated.ID != todo.ID || !updated.Completed || !updated.UpdatedAt.After(updated.CreatedAt) {
		t.Fatalf("unexpected update: %+v", updated)
	}
	if gw.Writes(domain.KeyTodos) != 2 || gw.Writes(domain.KeyProjects) != 0 {
		t.Fatalf("todo writes should only touch the todo key")
	}

	if _, err := svc.DeleteTodo(ctx, todo.ID); err != nil {
		t.Fatalf("delete todo: %v", err)
	}
	if len(svc.Todos()) != 0 {
		t.Fatalf("expected no todos, got %+v", svc.Todos())
	}
	if _, err := svc.DeleteTodo(ctx, todo.ID); !errors.Is(err, domain.ErrMissing) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAddTodoRejectsDuplicateID(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)
	if _, _, err := svc.AddTodo(ctx, Todo{ID: "td1", Title: "one"}); err != nil {
		t.Fatalf("add todo: %v", err)
	}
	if _, _, err := svc.AddTodo(ctx, Todo{ID: "td1", Title: "two"}); err == nil {
		t.Fatalf("expected duplicate id error")
	}
	if len(svc.Todos()) != 1 {
		t.Fatalf("expected one todo")
	}
}

func TestTimeBlockValidation(t *testing.T) {
	ctx := context.Background()
	svc, _, clock := newTestService(t)
	start := clock.Now()

	if _, _, err := svc.AddTimeBlock(ctx, TimeBlock{Title: "backwards", Start: start, End: start}); !errors.Is(err, domain.ErrInvalidTimeRange) {
		t.Fatalf("expected invalid range, got %v", err)
	}
	if _, _, err := svc.AddTimeBlock(ctx, TimeBlock{Title: "ghost", Start: start, End: start.Add(time.Hour), ProjectID: strPtr("missing")}); !errors.Is(err, domain.ErrMissing) {
		t.Fatalf("expected unknown project to be rejected, got %v", err)
	}

	block, _, err := svc.AddTimeBlock(ctx, TimeBlock{Title: "loose", Start: start, End: start.Add(time.Hour), ProjectID: strPtr("")})
	if err != nil {
		t.Fatalf("add block: %v", err)
	}
	if block.ProjectID != nil {
		t.Fatalf("empty project reference should be cleared")
	}

	_, _, err = svc.UpdateTimeBlock(ctx, block.ID, func(b *TimeBlock) error {
		b.End = b.Start.Add(-time.Minute)
		return nil
	})
	if !errors.Is(err, domain.ErrInvalidTimeRange) {
		t.Fatalf("expected invalid range on update, got %v", err)
	}
	if got := svc.TimeBlocks()[0]; !got.End.Equal(start.Add(time.Hour)) {
		t.Fatalf("rejected update must not change the block: %+v", got)
	}
}

func TestTimeBlockProjectLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, _, clock := newTestService(t)
	project := mustAddProject(t, svc, Project{Title: "Deep work"})
	start := clock.Now()

	block, _, err := svc.AddTimeBlock(ctx, TimeBlock{Title: "focus", Start: start, End: start.Add(90 * time.Minute), ProjectID: strPtr(project.ID)})
	if err != nil {
		t.Fatalf("add block: %v", err)
	}
	moved, _, err := svc.UpdateTimeBlock(ctx, block.ID, func(b *TimeBlock) error {
		b.Start = b.Start.Add(time.Hour)
		b.End = b.End.Add(time.Hour)
		return nil
	})
	if err != nil {
		t.Fatalf("move block: %v", err)
	}
	if !moved.Start.Equal(start.Add(time.Hour)) || moved.CreatedAt != block.CreatedAt {
		t.Fatalf("unexpected moved block: %+v", moved)
	}

	if _, err := svc.DeleteProject(ctx, project.ID); err != nil {
		t.Fatalf("delete project: %v", err)
	}
	if got := svc.TimeBlocks()[0]; got.ProjectID != nil {
		t.Fatalf("expected block detached from deleted project, got %+v", got)
	}

	if _, err := svc.DeleteTimeBlock(ctx, block.ID); err != nil {
		t.Fatalf("delete block: %v", err)
	}
	if _, _, err := svc.UpdateTimeBlock(ctx, block.ID, nil); !errors.Is(err, domain.ErrMissing) {
		t.Fatalf("expected not found, got %v", err)
	}
}
