package core

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"momentum/pkg/domain"
)

func expectCapacity(t *testing.T, err error, rule string) {
	t.Helper()
	if !errors.Is(err, domain.ErrCapacityExceeded) {
		t.Fatalf("expected capacity error, got %v", err)
	}
	var violation RuleViolationError
	if !errors.As(err, &violation) {
		t.Fatalf("expected rule violation error, got %T", err)
	}
	if len(violation.Result.Violations) == 0 || violation.Result.Violations[0].Rule != rule {
		t.Fatalf("expected %s violation, got %+v", rule, violation.Result.Violations)
	}
}

func TestActiveGoalCap(t *testing.T) {
	ctx := context.Background()
	svc, gw, _ := newTestService(t)
	var goals []Goal
	for i := 0; i < FreeTierLimits.ActiveGoals; i++ {
		goals = append(goals, mustAddGoal(t, svc, Goal{Title: fmt.Sprintf("Goal %d", i)}))
	}
	writes := gw.Writes(domain.KeyGoals)

	_, _, err := svc.AddGoal(ctx, Goal{Title: "One too many"})
	expectCapacity(t, err, RuleActiveGoalCap)
	if len(svc.Goals()) != FreeTierLimits.ActiveGoals || gw.Writes(domain.KeyGoals) != writes {
		t.Fatalf("blocked goal must not be stored or written")
	}

	if _, _, err := svc.AddGoal(ctx, Goal{Title: "Already done", Completed: true}); err != nil {
		t.Fatalf("completed goals do not count against the cap: %v", err)
	}
	if _, _, err := svc.UpdateGoal(ctx, goals[0].ID, func(g *Goal) error {
		g.Completed = true
		return nil
	}); err != nil {
		t.Fatalf("complete goal: %v", err)
	}
	if _, _, err := svc.AddGoal(ctx, Goal{Title: "Room again"}); err != nil {
		t.Fatalf("expected room after completing a goal: %v", err)
	}
}

func TestProjectsPerGoalCap(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)
	full := mustAddGoal(t, svc, Goal{Title: "Full"})
	other := mustAddGoal(t, svc, Goal{Title: "Other"})
	for i := 0; i < FreeTierLimits.ProjectsPerGoal; i++ {
		mustAddProject(t, svc, Project{Title: fmt.Sprintf("P%d", i), GoalID: strPtr(full.ID)})
	}

	_, _, err := svc.AddProject(ctx, Project{Title: "Overflow", GoalID: strPtr(full.ID)})
	expectCapacity(t, err, RuleProjectsPerGoal)

	mover := mustAddProject(t, svc, Project{Title: "Mover", GoalID: strPtr(other.ID)})
	_, _, err = svc.UpdateProject(ctx, mover.ID, func(p *Project) error {
		p.GoalID = strPtr(full.ID)
		return nil
	})
	expectCapacity(t, err, RuleProjectsPerGoal)
	if p := mustGetProject(t, svc, mover.ID); !p.LinkedTo(other.ID) {
		t.Fatalf("blocked relink must leave the project on its goal")
	}

	if _, _, err := svc.AddProject(ctx, Project{Title: "Independent"}); err != nil {
		t.Fatalf("independent projects are not capped: %v", err)
	}
	if _, _, err := svc.UpdateProject(ctx, mover.ID, func(p *Project) error {
		p.Title = "Still on other"
		return nil
	}); err != nil {
		t.Fatalf("updates without relink are not capped: %v", err)
	}
}

func TestTasksPerProjectCap(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)
	project := mustAddProject(t, svc, Project{Title: "Busy"})
	for i := 0; i < FreeTierLimits.TasksPerProject; i++ {
		mustAddTask(t, svc, project.ID, fmt.Sprintf("task %d", i))
	}
	_, _, err := svc.AddTask(ctx, project.ID, Task{Title: "overflow"})
	expectCapacity(t, err, RuleTasksPerProject)
	if n := len(svc.GetTasksForProject(project.ID)); n != FreeTierLimits.TasksPerProject {
		t.Fatalf("expected %d tasks, got %d", FreeTierLimits.TasksPerProject, n)
	}

	inline := make([]Task, FreeTierLimits.TasksPerProject+1)
	for i := range inline {
		inline[i] = Task{Title: fmt.Sprintf("inline %d", i)}
	}
	_, _, err = svc.AddProject(ctx, Project{Title: "Too big", Tasks: inline})
	expectCapacity(t, err, RuleTasksPerProject)
	if len(svc.Projects()) != 1 {
		t.Fatalf("blocked project must not be stored")
	}
}

func TestTimeBlocksPerWeekCap(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)
	monday := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	for i := 0; i < FreeTierLimits.TimeBlocksPerWeek; i++ {
		start := monday.Add(time.Duration(i) * 4 * time.Hour)
		if _, _, err := svc.AddTimeBlock(ctx, TimeBlock{Title: "focus", Start: start, End: start.Add(time.Hour)}); err != nil {
			t.Fatalf("add block %d: %v", i, err)
		}
	}
	sunday := time.Date(2026, 3, 8, 20, 0, 0, 0, time.UTC)
	_, _, err := svc.AddTimeBlock(ctx, TimeBlock{Title: "overflow", Start: sunday, End: sunday.Add(time.Hour)})
	expectCapacity(t, err, RuleTimeBlocksPerWeek)

	nextMonday := monday.AddDate(0, 0, 7)
	if _, _, err := svc.AddTimeBlock(ctx, TimeBlock{Title: "next week", Start: nextMonday, End: nextMonday.Add(time.Hour)}); err != nil {
		t.Fatalf("next week has its own budget: %v", err)
	}
}

func TestPremiumLimitsAreUnlimited(t *testing.T) {
	svc, _, _ := newTestService(t, WithLimits(LimitsForTier("premium")))
	for i := 0; i < FreeTierLimits.ActiveGoals+2; i++ {
		mustAddGoal(t, svc, Goal{Title: fmt.Sprintf("Goal %d", i)})
	}
	if svc.Limits() != PremiumLimits {
		t.Fatalf("expected premium limits, got %+v", svc.Limits())
	}
	if LimitsForTier("gold") != FreeTierLimits {
		t.Fatalf("unknown tiers fall back to free limits")
	}
}

func TestCustomRulesEngine(t *testing.T) {
	svc, _, _ := newTestService(t, WithRulesEngine(NewRulesEngine()))
	for i := 0; i < FreeTierLimits.ActiveGoals+1; i++ {
		mustAddGoal(t, svc, Goal{Title: fmt.Sprintf("Goal %d", i)})
	}
	if svc.Store().RulesEngine() == nil {
		t.Fatalf("expected engine wired into the store")
	}
}

func TestLinkMapIntegrityRuleReportsDrift(t *testing.T) {
	c := newCollections()
	c.goals = []Goal{{ID: "g1"}, {ID: "g2"}}
	c.projects = []Project{
		{ID: "p1", GoalID: strPtr("g1")},
		{ID: "p2", GoalID: strPtr("g2")},
	}
	c.links = LinkMap{"p2": "g1", "ghost": "g1"}

	res, err := NewLinkMapIntegrityRule().Evaluate(context.Background(), collectionView{state: &c}, nil)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(res.Violations) != 3 {
		t.Fatalf("expected missing, mismatched and dangling entries, got %+v", res.Violations)
	}
	for _, v := range res.Violations {
		if v.Severity != SeverityWarn || v.Entity != EntityLink {
			t.Fatalf("unexpected violation: %+v", v)
		}
	}
	if res.HasBlocking() {
		t.Fatalf("link drift must never block")
	}
}
