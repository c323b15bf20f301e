package core

import (
	"context"
	"fmt"
	"time"

	"momentum/pkg/domain"
)

// Capacity rule names. Each carries domain.CapacityRulePrefix so callers can
// match the resulting error with errors.Is(err, domain.ErrCapacityExceeded).
const (
	RuleActiveGoalCap     = domain.CapacityRulePrefix + "active_goals"
	RuleProjectsPerGoal   = domain.CapacityRulePrefix + "projects_per_goal"
	RuleTasksPerProject   = domain.CapacityRulePrefix + "tasks_per_project"
	RuleTimeBlocksPerWeek = domain.CapacityRulePrefix + "time_blocks_per_week"
)

// Capacity rules only fire for records created (or re-linked) in the
// transaction, so data loaded over the limit stays editable.

// NewActiveGoalCapRule blocks creating a goal once max incomplete goals exist.
func NewActiveGoalCapRule(max int) domain.Rule {
	return activeGoalCapRule{max: max}
}

type activeGoalCapRule struct{ max int }

func (activeGoalCapRule) Name() string { return RuleActiveGoalCap }

func (r activeGoalCapRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	if r.max <= 0 {
		return res, nil
	}
	var created []domain.Goal
	for _, change := range changes {
		if change.Entity != domain.EntityGoal || change.Action != domain.ActionCreate {
			continue
		}
		if g, ok := change.After.(domain.Goal); ok && !g.Completed {
			created = append(created, g)
		}
	}
	if len(created) == 0 {
		return res, nil
	}
	active := 0
	for _, g := range view.ListGoals() {
		if !g.Completed {
			active++
		}
	}
	if active > r.max {
		g := created[len(created)-1]
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     RuleActiveGoalCap,
			Severity: domain.SeverityBlock,
			Message:  fmt.Sprintf("active goal limit reached: %d/%d", active, r.max),
			Entity:   domain.EntityGoal,
			EntityID: g.ID,
		})
	}
	return res, nil
}

// NewProjectsPerGoalRule blocks linking more than max projects to one goal.
func NewProjectsPerGoalRule(max int) domain.Rule {
	return projectsPerGoalRule{max: max}
}

type projectsPerGoalRule struct{ max int }

func (projectsPerGoalRule) Name() string { return RuleProjectsPerGoal }

func (r projectsPerGoalRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	if r.max <= 0 {
		return res, nil
	}
	touched := make(map[string]string)
	for _, change := range changes {
		if change.Entity != domain.EntityProject || change.After == nil {
			continue
		}
		after, ok := change.After.(domain.Project)
		if !ok || after.GoalID == nil {
			continue
		}
		switch change.Action {
		case domain.ActionCreate:
			touched[*after.GoalID] = after.ID
		case domain.ActionUpdate:
			before, _ := change.Before.(domain.Project)
			if before.GoalID == nil || *before.GoalID != *after.GoalID {
				touched[*after.GoalID] = after.ID
			}
		}
	}
	if len(touched) == 0 {
		return res, nil
	}
	counts := make(map[string]int)
	for _, p := range view.ListProjects() {
		if p.GoalID != nil {
			counts[*p.GoalID]++
		}
	}
	for goalID, projectID := range touched {
		if n := counts[goalID]; n > r.max {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     RuleProjectsPerGoal,
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("goal %s project limit reached: %d/%d", goalID, n, r.max),
				Entity:   domain.EntityProject,
				EntityID: projectID,
			})
		}
	}
	return res, nil
}

// NewTasksPerProjectRule blocks adding more than max tasks to one project.
func NewTasksPerProjectRule(max int) domain.Rule {
	return tasksPerProjectRule{max: max}
}

type tasksPerProjectRule struct{ max int }

func (tasksPerProjectRule) Name() string { return RuleTasksPerProject }

func (r tasksPerProjectRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	if r.max <= 0 {
		return res, nil
	}
	touched := make(map[string]struct{})
	for _, change := range changes {
		if change.Entity != domain.EntityTask || change.Action != domain.ActionCreate {
			continue
		}
		if t, ok := change.After.(domain.Task); ok {
			touched[t.ProjectID] = struct{}{}
		}
	}
	if len(touched) == 0 {
		return res, nil
	}
	counts := make(map[string]int)
	for _, t := range view.ListTasks() {
		counts[t.ProjectID]++
	}
	for projectID := range touched {
		if n := counts[projectID]; n > r.max {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     RuleTasksPerProject,
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("project %s task limit reached: %d/%d", projectID, n, r.max),
				Entity:   domain.EntityProject,
				EntityID: projectID,
			})
		}
	}
	return res, nil
}

// NewTimeBlocksPerWeekRule blocks scheduling more than max blocks that start
// in the same ISO week.
func NewTimeBlocksPerWeekRule(max int) domain.Rule {
	return timeBlocksPerWeekRule{max: max}
}

type timeBlocksPerWeekRule struct{ max int }

func (timeBlocksPerWeekRule) Name() string { return RuleTimeBlocksPerWeek }

type isoWeek struct{ year, week int }

func weekOf(t time.Time) isoWeek {
	y, w := t.ISOWeek()
	return isoWeek{year: y, week: w}
}

func (r timeBlocksPerWeekRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	if r.max <= 0 {
		return res, nil
	}
	touched := make(map[isoWeek]string)
	for _, change := range changes {
		if change.Entity != domain.EntityTimeBlock || change.Action != domain.ActionCreate {
			continue
		}
		if b, ok := change.After.(domain.TimeBlock); ok {
			touched[weekOf(b.Start)] = b.ID
		}
	}
	if len(touched) == 0 {
		return res, nil
	}
	counts := make(map[isoWeek]int)
	for _, b := range view.ListTimeBlocks() {
		counts[weekOf(b.Start)]++
	}
	for week, blockID := range touched {
		if n := counts[week]; n > r.max {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     RuleTimeBlocksPerWeek,
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("week %d-W%02d time block limit reached: %d/%d", week.year, week.week, n, r.max),
				Entity:   domain.EntityTimeBlock,
				EntityID: blockID,
			})
		}
	}
	return res, nil
}
