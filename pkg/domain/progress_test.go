package domain

import "testing"

func TestProjectProgress(t *testing.T) {
	tasks := []Task{
		{ProjectID: "p1", Completed: true},
		{ProjectID: "p1", Status: StatusDone},
		{ProjectID: "p1"},
		{ProjectID: "p2", Completed: true},
	}
	if got := ProjectProgress(Project{ID: "p1"}, tasks); got != 67 {
		t.Fatalf("expected 67, got %d", got)
	}
	if got := ProjectProgress(Project{ID: "p3"}, tasks); got != 0 {
		t.Fatalf("expected 0 without tasks, got %d", got)
	}
	pinned := Project{ID: "p1", Status: StatusDone, Completed: true}
	if got := ProjectProgress(pinned, tasks); got != 100 {
		t.Fatalf("expected done project pinned at 100, got %d", got)
	}
}

func TestGoalProgressCountsOnlyFinishedProjects(t *testing.T) {
	projects := []Project{
		{ID: "a", GoalID: StringPtr("g"), Completed: true, Status: StatusDone},
		{ID: "b", GoalID: StringPtr("g"), Progress: 90},
		{ID: "c", GoalID: StringPtr("g"), Status: StatusDone},
		{ID: "d", GoalID: StringPtr("other"), Completed: true},
		{ID: "e"},
	}
	if got := GoalProgress("g", projects); got != 67 {
		t.Fatalf("expected 67, got %d", got)
	}
	if got := GoalProgress("empty", projects); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

func TestClampProgress(t *testing.T) {
	for in, want := range map[int]int{-5: 0, 0: 0, 42: 42, 100: 100, 250: 100} {
		if got := ClampProgress(in); got != want {
			t.Fatalf("ClampProgress(%d)=%d want %d", in, got, want)
		}
	}
}
