package core

import (
	"strings"

	"momentum/pkg/domain"
)

// setLink points the link map entry for projectID at goalID, or removes it
// when goalID is nil.
func (tx *Transaction) setLink(projectID string, goalID *string) {
	current, ok := tx.state.links[projectID]
	if goalID == nil {
		if !ok {
			return
		}
		delete(tx.state.links, projectID)
		tx.markDirty(domain.KeyLinkMap)
		tx.recordChange(Change{Entity: EntityLink, Action: ActionDelete, Before: linkEntry{projectID, current}})
		return
	}
	if ok && current == *goalID {
		return
	}
	tx.state.links[projectID] = *goalID
	tx.markDirty(domain.KeyLinkMap)
	change := Change{Entity: EntityLink, Action: ActionCreate, After: linkEntry{projectID, *goalID}}
	if ok {
		change.Action = ActionUpdate
		change.Before = linkEntry{projectID, current}
	}
	tx.recordChange(change)
}

// linkEntry is the payload recorded for link map changes.
type linkEntry struct {
	ProjectID string
	GoalID    string
}

// findGoalByTitle matches a goal title case-insensitively.
func (tx *Transaction) findGoalByTitle(title string) (Goal, bool) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Goal{}, false
	}
	for _, g := range tx.state.goals {
		if strings.EqualFold(strings.TrimSpace(g.Title), title) {
			return g, true
		}
	}
	return Goal{}, false
}

// recalcGoal refreshes a goal's derived progress from its linked projects.
// Completed goals are pinned at 100.
func (tx *Transaction) recalcGoal(goalID string) {
	i := tx.state.goalIndex(goalID)
	if i < 0 {
		return
	}
	goal := tx.state.goals[i]
	next := 100
	if !goal.Completed {
		next = domain.GoalProgress(goalID, tx.state.projects)
	}
	if goal.Progress == next {
		return
	}
	before := cloneGoal(goal)
	goal.Progress = next
	tx.state.goals[i] = goal
	tx.markDirty(domain.KeyGoals)
	tx.recordChange(Change{Entity: EntityGoal, Action: ActionUpdate, Before: before, After: cloneGoal(goal)})
}

// recalcProjectFromTasks writes the task-derived progress of a project and
// propagates to its goal. Status and completion are never touched. When
// keepWhenEmpty is set a project without tasks keeps its current progress.
func (tx *Transaction) recalcProjectFromTasks(projectID string, keepWhenEmpty bool) {
	i := tx.state.projectIndex(projectID)
	if i < 0 {
		return
	}
	project := tx.state.projects[i]
	if keepWhenEmpty && len(tx.state.tasksForProject(projectID)) == 0 {
		return
	}
	next := domain.ProjectProgress(project, tx.state.tasks)
	if project.Progress != next {
		before := cloneProject(project)
		project.Progress = next
		tx.state.projects[i] = project
		tx.markDirty(domain.KeyProjects)
		tx.recordChange(Change{Entity: EntityProject, Action: ActionUpdate, Before: before, After: cloneProject(project)})
	}
	if project.GoalID != nil {
		tx.recalcGoal(*project.GoalID)
	}
}

// detachTimeBlocks clears time block project references to removed projects.
func (tx *Transaction) detachTimeBlocks(removed map[string]struct{}) {
	if len(removed) == 0 {
		return
	}
	for i, b := range tx.state.timeBlocks {
		if b.ProjectID == nil {
			continue
		}
		if _, gone := removed[*b.ProjectID]; !gone {
			continue
		}
		before := cloneTimeBlock(b)
		b.ProjectID = nil
		b.UpdatedAt = tx.now
		tx.state.timeBlocks[i] = b
		tx.markDirty(domain.KeyTimeBlocks)
		tx.recordChange(Change{Entity: EntityTimeBlock, Action: ActionUpdate, Before: before, After: cloneTimeBlock(b)})
	}
}
