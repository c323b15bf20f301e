package core

import (
	"context"
	"fmt"
	"sort"

	"momentum/pkg/domain"
)

// RepairReport summarizes the corrections made by the repair routines.
type RepairReport struct {
	RelinkedProjects  []string `json:"relinkedProjects,omitempty" yaml:"relinkedProjects,omitempty"`
	ClearedGoalLinks  []string `json:"clearedGoalLinks,omitempty" yaml:"clearedGoalLinks,omitempty"`
	FixedGoalTitles   []string `json:"fixedGoalTitles,omitempty" yaml:"fixedGoalTitles,omitempty"`
	DemotedProjects   []string `json:"demotedProjects,omitempty" yaml:"demotedProjects,omitempty"`
	DroppedTasks      []string `json:"droppedTasks,omitempty" yaml:"droppedTasks,omitempty"`
	AddedLinks        []string `json:"addedLinks,omitempty" yaml:"addedLinks,omitempty"`
	RemovedLinks      []string `json:"removedLinks,omitempty" yaml:"removedLinks,omitempty"`
	RecalculatedGoals []string `json:"recalculatedGoals,omitempty" yaml:"recalculatedGoals,omitempty"`
}

// Changed reports whether any correction was made.
func (r RepairReport) Changed() bool {
	return len(r.RelinkedProjects)+len(r.ClearedGoalLinks)+len(r.FixedGoalTitles)+
		len(r.DemotedProjects)+len(r.DroppedTasks)+len(r.AddedLinks)+len(r.RemovedLinks)+
		len(r.RecalculatedGoals) > 0
}

func (r *RepairReport) merge(other RepairReport) {
	r.RelinkedProjects = append(r.RelinkedProjects, other.RelinkedProjects...)
	r.ClearedGoalLinks = append(r.ClearedGoalLinks, other.ClearedGoalLinks...)
	r.FixedGoalTitles = append(r.FixedGoalTitles, other.FixedGoalTitles...)
	r.DemotedProjects = append(r.DemotedProjects, other.DemotedProjects...)
	r.DroppedTasks = append(r.DroppedTasks, other.DroppedTasks...)
	r.AddedLinks = append(r.AddedLinks, other.AddedLinks...)
	r.RemovedLinks = append(r.RemovedLinks, other.RemovedLinks...)
	r.RecalculatedGoals = append(r.RecalculatedGoals, other.RecalculatedGoals...)
}

// Load replaces the in-memory collections with the gateway contents.
func (s *Service) Load(ctx context.Context) error {
	_, err := s.run(ctx, OpLoad, func(ctx context.Context) (string, Result, error) {
		return "", Result{}, s.store.Load(ctx)
	})
	return err
}

// RefreshData reloads every collection and runs the repair routines in
// order: relationship audit, orphan demotion, orphan task removal and link
// map reconciliation.
func (s *Service) RefreshData(ctx context.Context) (RepairReport, error) {
	var report RepairReport
	_, err := s.run(ctx, OpRefreshData, func(ctx context.Context) (string, Result, error) {
		if err := s.store.Load(ctx); err != nil {
			return "", Result{}, err
		}
		res, err := s.store.RunInTransaction(ctx, func(tx *Transaction) error {
			report.merge(tx.auditRelationships())
			report.merge(tx.demoteOrphanedProjects())
			report.merge(tx.dropOrphanedTasks())
			report.merge(tx.reconcileLinks())
			report.merge(tx.recalcAllGoals())
			return nil
		})
		return "", res, err
	})
	if err == nil && report.Changed() {
		s.logger.Info("data refreshed with repairs", "report", report)
	}
	return report, err
}

// AuditProjectGoalRelationships re-links projects whose goal is missing by a
// case-insensitive goalTitle match, clears the link when no goal matches and
// corrects stale goalTitle caches. Nothing is written when nothing changed.
func (s *Service) AuditProjectGoalRelationships(ctx context.Context) (RepairReport, error) {
	return s.repair(ctx, OpAuditRelationships, func(tx *Transaction) RepairReport {
		report := tx.auditRelationships()
		report.merge(tx.recalcAllGoals())
		return report
	})
}

// FixProjectGoalLinks reconciles the link map with the goalId on projects.
// The project field is authoritative.
func (s *Service) FixProjectGoalLinks(ctx context.Context) (RepairReport, error) {
	return s.repair(ctx, OpFixProjectGoalLinks, func(tx *Transaction) RepairReport {
		return tx.reconcileLinks()
	})
}

// CleanupOrphanedProjects demotes projects whose goal no longer exists to
// independent projects. Unlike DeleteGoal it never deletes.
func (s *Service) CleanupOrphanedProjects(ctx context.Context) (RepairReport, error) {
	return s.repair(ctx, OpCleanupOrphanedProjects, func(tx *Transaction) RepairReport {
		return tx.demoteOrphanedProjects()
	})
}

func (s *Service) repair(ctx context.Context, op string, fn func(tx *Transaction) RepairReport) (RepairReport, error) {
	var report RepairReport
	_, err := s.run(ctx, op, func(ctx context.Context) (string, Result, error) {
		res, err := s.store.RunInTransaction(ctx, func(tx *Transaction) error {
			report = fn(tx)
			return nil
		})
		return "", res, err
	})
	if err == nil && report.Changed() {
		s.logger.Info("repair applied", "operation", op, "report", report)
	}
	return report, err
}

func (tx *Transaction) auditRelationships() RepairReport {
	var report RepairReport
	for i, p := range tx.state.projects {
		if p.GoalID == nil {
			continue
		}
		before := cloneProject(p)
		if gi := tx.state.goalIndex(*p.GoalID); gi >= 0 {
			if title := tx.state.goals[gi].Title; p.GoalTitle != title {
				p.GoalTitle = title
				report.FixedGoalTitles = append(report.FixedGoalTitles, p.ID)
			} else {
				continue
			}
		} else if goal, ok := tx.findGoalByTitle(p.GoalTitle); ok {
			p.GoalID = domain.StringPtr(goal.ID)
			p.GoalTitle = goal.Title
			report.RelinkedProjects = append(report.RelinkedProjects, p.ID)
		} else {
			p.GoalID = nil
			p.GoalTitle = ""
			report.ClearedGoalLinks = append(report.ClearedGoalLinks, p.ID)
		}
		tx.state.projects[i] = p
		tx.markDirty(domain.KeyProjects)
		tx.recordChange(Change{Entity: EntityProject, Action: ActionUpdate, Before: before, After: cloneProject(p)})
		if before.GoalID == nil || p.GoalID == nil || *before.GoalID != *p.GoalID {
			tx.setLink(p.ID, p.GoalID)
		}
	}
	return report
}

func (tx *Transaction) demoteOrphanedProjects() RepairReport {
	var report RepairReport
	for i, p := range tx.state.projects {
		if p.GoalID == nil || tx.state.goalIndex(*p.GoalID) >= 0 {
			continue
		}
		before := cloneProject(p)
		p.GoalID = nil
		p.GoalTitle = ""
		tx.state.projects[i] = p
		tx.markDirty(domain.KeyProjects)
		tx.recordChange(Change{Entity: EntityProject, Action: ActionUpdate, Before: before, After: cloneProject(p)})
		tx.setLink(p.ID, nil)
		report.DemotedProjects = append(report.DemotedProjects, p.ID)
	}
	return report
}

func (tx *Transaction) dropOrphanedTasks() RepairReport {
	var report RepairReport
	tasks := make([]Task, 0, len(tx.state.tasks))
	for _, t := range tx.state.tasks {
		if tx.state.projectIndex(t.ProjectID) < 0 {
			report.DroppedTasks = append(report.DroppedTasks, t.ID)
			tx.recordChange(Change{Entity: EntityTask, Action: ActionDelete, Before: t})
			continue
		}
		tasks = append(tasks, t)
	}
	if len(report.DroppedTasks) > 0 {
		tx.state.tasks = tasks
		tx.markDirty(domain.KeyTasks)
	}
	return report
}

func (tx *Transaction) reconcileLinks() RepairReport {
	var report RepairReport
	projectIDs := make([]string, 0, len(tx.state.links))
	for projectID := range tx.state.links {
		projectIDs = append(projectIDs, projectID)
	}
	sort.Strings(projectIDs)
	for _, projectID := range projectIDs {
		goalID := tx.state.links[projectID]
		pi := tx.state.projectIndex(projectID)
		switch {
		case pi < 0, tx.state.goalIndex(goalID) < 0:
			tx.setLink(projectID, nil)
			report.RemovedLinks = append(report.RemovedLinks, projectID)
		case !tx.state.projects[pi].LinkedTo(goalID):
			want := tx.state.projects[pi].GoalID
			if want != nil && tx.state.goalIndex(*want) >= 0 {
				tx.setLink(projectID, want)
				report.AddedLinks = append(report.AddedLinks, projectID)
			} else {
				tx.setLink(projectID, nil)
				report.RemovedLinks = append(report.RemovedLinks, projectID)
			}
		}
	}
	for _, p := range tx.state.projects {
		if p.GoalID == nil || tx.state.goalIndex(*p.GoalID) < 0 {
			continue
		}
		if _, ok := tx.state.links[p.ID]; ok {
			continue
		}
		tx.setLink(p.ID, p.GoalID)
		report.AddedLinks = append(report.AddedLinks, p.ID)
	}
	return report
}

func (tx *Transaction) recalcAllGoals() RepairReport {
	var report RepairReport
	for _, g := range append([]Goal(nil), tx.state.goals...) {
		tx.recalcGoal(g.ID)
		if i := tx.state.goalIndex(g.ID); i >= 0 && tx.state.goals[i].Progress != g.Progress {
			report.RecalculatedGoals = append(report.RecalculatedGoals, g.ID)
		}
	}
	return report
}

// Issue describes one invariant violation found by Inspect.
type Issue struct {
	Kind     string     `json:"kind" yaml:"kind"`
	Entity   EntityType `json:"entity" yaml:"entity"`
	EntityID string     `json:"entityId" yaml:"entityId"`
	Detail   string     `json:"detail" yaml:"detail"`
}

// Issue kinds reported by Inspect.
const (
	IssueDanglingGoal       = "dangling_goal"
	IssueOrphanTask         = "orphan_task"
	IssueStaleGoalTitle     = "stale_goal_title"
	IssueLinkMissing        = "link_missing"
	IssueLinkDangling       = "link_dangling"
	IssueLinkMismatch       = "link_mismatch"
	IssueStatusMismatch     = "status_mismatch"
	IssueProjectNotPinned   = "project_not_pinned"
	IssueGoalNotPinned      = "goal_not_pinned"
	IssueGoalProgressStale  = "goal_progress_stale"
	IssueProgressOutOfRange = "progress_out_of_range"
)

// InconsistencyReport lists every invariant violation in the current state.
type InconsistencyReport struct {
	Issues []Issue `json:"issues" yaml:"issues"`
}

// Consistent reports whether no issues were found.
func (r InconsistencyReport) Consistent() bool {
	return len(r.Issues) == 0
}

// Inspect checks the in-memory state against the data invariants without
// modifying it.
func (s *Service) Inspect(ctx context.Context) (InconsistencyReport, error) {
	report := InconsistencyReport{Issues: []Issue{}}
	err := s.store.View(ctx, func(v RuleView) error {
		goals := make(map[string]Goal)
		allProjects := v.ListProjects()
		for _, g := range v.ListGoals() {
			goals[g.ID] = g
			if g.Completed && g.Progress != 100 {
				report.add(IssueGoalNotPinned, EntityGoal, g.ID, fmt.Sprintf("completed goal has progress %d", g.Progress))
			}
			if derived := domain.GoalProgress(g.ID, allProjects); !g.Completed && g.Progress != derived {
				report.add(IssueGoalProgressStale, EntityGoal, g.ID, fmt.Sprintf("stored progress %d, derived %d", g.Progress, derived))
			}
			if g.Progress < 0 || g.Progress > 100 {
				report.add(IssueProgressOutOfRange, EntityGoal, g.ID, fmt.Sprintf("progress %d", g.Progress))
			}
		}
		projects := make(map[string]Project)
		for _, p := range v.ListProjects() {
			projects[p.ID] = p
			if p.GoalID != nil {
				if g, ok := goals[*p.GoalID]; !ok {
					report.add(IssueDanglingGoal, EntityProject, p.ID, fmt.Sprintf("goal %s does not exist", *p.GoalID))
				} else if p.GoalTitle != g.Title {
					report.add(IssueStaleGoalTitle, EntityProject, p.ID, fmt.Sprintf("goalTitle %q, goal title %q", p.GoalTitle, g.Title))
				}
			}
			if p.Completed != (p.Status == StatusDone) {
				report.add(IssueStatusMismatch, EntityProject, p.ID, fmt.Sprintf("status %s with completed=%t", p.Status, p.Completed))
			}
			if p.Completed && p.Progress != 100 {
				report.add(IssueProjectNotPinned, EntityProject, p.ID, fmt.Sprintf("completed project has progress %d", p.Progress))
			}
			if p.Progress < 0 || p.Progress > 100 {
				report.add(IssueProgressOutOfRange, EntityProject, p.ID, fmt.Sprintf("progress %d", p.Progress))
			}
		}
		for _, t := range v.ListTasks() {
			if _, ok := projects[t.ProjectID]; !ok {
				report.add(IssueOrphanTask, EntityTask, t.ID, fmt.Sprintf("project %s does not exist", t.ProjectID))
			}
		}
		links := v.LinkMap()
		linkIDs := make([]string, 0, len(links))
		for id := range links {
			linkIDs = append(linkIDs, id)
		}
		sort.Strings(linkIDs)
		for _, projectID := range linkIDs {
			goalID := links[projectID]
			p, ok := projects[projectID]
			_, goalOK := goals[goalID]
			switch {
			case !ok || !goalOK:
				report.add(IssueLinkDangling, EntityLink, projectID, fmt.Sprintf("entry points at goal %s", goalID))
			case !p.LinkedTo(goalID):
				report.add(IssueLinkMismatch, EntityLink, projectID, fmt.Sprintf("entry points at goal %s", goalID))
			}
		}
		for _, p := range v.ListProjects() {
			if p.GoalID == nil {
				continue
			}
			if _, ok := links[p.ID]; !ok {
				report.add(IssueLinkMissing, EntityLink, p.ID, fmt.Sprintf("no entry for goal %s", *p.GoalID))
			}
		}
		return nil
	})
	return report, err
}

func (r *InconsistencyReport) add(kind string, entity EntityType, id, detail string) {
	r.Issues = append(r.Issues, Issue{Kind: kind, Entity: entity, EntityID: id, Detail: detail})
}
