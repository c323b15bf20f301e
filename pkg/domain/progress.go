package domain

import "math"

// ProjectProgress derives a project's progress from its tasks. A project that
// is both done and completed is pinned at 100 regardless of task state.
func ProjectProgress(project Project, tasks []Task) int {
	if project.Status == StatusDone && project.Completed {
		return 100
	}
	total, done := 0, 0
	for _, t := range tasks {
		if t.ProjectID != project.ID {
			continue
		}
		total++
		if t.Done() {
			done++
		}
	}
	return percent(done, total)
}

// GoalProgress derives a goal's progress from its linked projects. Only fully
// completed projects count; partial task progress does not contribute.
func GoalProgress(goalID string, projects []Project) int {
	total, done := 0, 0
	for _, p := range projects {
		if !p.LinkedTo(goalID) {
			continue
		}
		total++
		if p.Done() {
			done++
		}
	}
	return percent(done, total)
}

// ClampProgress bounds a progress value to [0, 100].
func ClampProgress(v int) int {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}

func percent(done, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(done) / float64(total)))
}
