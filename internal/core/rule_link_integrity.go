package core

import (
	"context"
	"fmt"
	"sort"

	"momentum/pkg/domain"
)

// RuleLinkMapIntegrity names the warn-level link map consistency check.
const RuleLinkMapIntegrity = "link_map_integrity"

// NewLinkMapIntegrityRule warns when the link map disagrees with the goalId
// stored on projects. It never blocks; FixProjectGoalLinks repairs drift.
func NewLinkMapIntegrityRule() domain.Rule {
	return linkMapIntegrityRule{}
}

type linkMapIntegrityRule struct{}

func (linkMapIntegrityRule) Name() string { return RuleLinkMapIntegrity }

func (linkMapIntegrityRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	links := view.LinkMap()
	linked := make(map[string]string)
	for _, p := range view.ListProjects() {
		if p.GoalID != nil {
			linked[p.ID] = *p.GoalID
		}
	}

	projectIDs := make([]string, 0, len(links))
	for id := range links {
		projectIDs = append(projectIDs, id)
	}
	sort.Strings(projectIDs)
	for _, projectID := range projectIDs {
		goalID := links[projectID]
		want, ok := linked[projectID]
		switch {
		case !ok:
			res.Violations = append(res.Violations, linkViolation(projectID, fmt.Sprintf("link map entry for project %s has no linked project", projectID)))
		case want != goalID:
			res.Violations = append(res.Violations, linkViolation(projectID, fmt.Sprintf("link map maps project %s to goal %s but project references %s", projectID, goalID, want)))
		}
	}
	for projectID := range linked {
		if _, ok := links[projectID]; !ok {
			res.Violations = append(res.Violations, linkViolation(projectID, fmt.Sprintf("project %s missing from link map", projectID)))
		}
	}
	return res, nil
}

func linkViolation(projectID, message string) domain.Violation {
	return domain.Violation{
		Rule:     RuleLinkMapIntegrity,
		Severity: domain.SeverityWarn,
		Message:  message,
		Entity:   domain.EntityLink,
		EntityID: projectID,
	}
}
