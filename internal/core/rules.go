package core

// Limits caps how many records a tier may hold. Zero means unlimited.
type Limits struct {
	ActiveGoals       int `mapstructure:"activeGoals" json:"activeGoals" yaml:"activeGoals"`
	ProjectsPerGoal   int `mapstructure:"projectsPerGoal" json:"projectsPerGoal" yaml:"projectsPerGoal"`
	TasksPerProject   int `mapstructure:"tasksPerProject" json:"tasksPerProject" yaml:"tasksPerProject"`
	TimeBlocksPerWeek int `mapstructure:"timeBlocksPerWeek" json:"timeBlocksPerWeek" yaml:"timeBlocksPerWeek"`
}

// FreeTierLimits applies to accounts without a subscription.
var FreeTierLimits = Limits{
	ActiveGoals:       3,
	ProjectsPerGoal:   5,
	TasksPerProject:   20,
	TimeBlocksPerWeek: 25,
}

// PremiumLimits lifts every cap.
var PremiumLimits = Limits{}

// LimitsForTier maps a tier name to its limits. Unknown tiers get the free caps.
func LimitsForTier(tier string) Limits {
	if tier == "premium" {
		return PremiumLimits
	}
	return FreeTierLimits
}

// NewDefaultRulesEngine builds a rules engine with the capacity rules for the
// supplied limits and the link map integrity check.
func NewDefaultRulesEngine(limits Limits) *RulesEngine {
	engine := NewRulesEngine()
	engine.Register(NewActiveGoalCapRule(limits.ActiveGoals))
	engine.Register(NewProjectsPerGoalRule(limits.ProjectsPerGoal))
	engine.Register(NewTasksPerProjectRule(limits.TasksPerProject))
	engine.Register(NewTimeBlocksPerWeekRule(limits.TimeBlocksPerWeek))
	engine.Register(NewLinkMapIntegrityRule())
	return engine
}
