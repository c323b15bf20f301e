package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/do"
	"github.com/spf13/cobra"

	"momentum/internal/core"
)

// Version is overridden at build time.
var Version = "dev"

type rootOptions struct {
	configPath string
	output     string
	metrics    bool
	trace      bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:           "momentum",
		Short:         "Inspect and repair momentum goal, project and task data",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Config file (default ./momentum.yaml)")
	rootCmd.PersistentFlags().StringVarP(&opts.output, "output", "o", formatJSON, "Output format (json, yaml)")
	rootCmd.PersistentFlags().BoolVar(&opts.metrics, "metrics", false, "Print operation counters to stderr")
	rootCmd.PersistentFlags().BoolVar(&opts.trace, "trace", false, "Write one JSON span per service operation to stderr")

	rootCmd.AddCommand(inspectCmd(opts))
	rootCmd.AddCommand(repairCmd(opts))
	rootCmd.AddCommand(progressCmd(opts))
	return rootCmd
}

// withService builds the container, runs fn against the service and shuts
// every provided dependency down afterwards. When open is set the service is
// built through core.Open instead of starting empty.
func withService(cmd *cobra.Command, opts *rootOptions, open bool, fn func(ctx context.Context, svc *core.Service) error) (err error) {
	if _, err := formatFor(opts.output); err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	var trace io.Writer
	if opts.trace {
		trace = cmd.ErrOrStderr()
	}
	inj := buildContainer(ctx, opts.configPath, trace)
	defer func() {
		if shutdownErr := inj.Shutdown(); shutdownErr != nil && err == nil {
			err = shutdownErr
		}
	}()
	var h *serviceHandle
	if open {
		h, err = do.InvokeNamed[*serviceHandle](inj, openedService)
	} else {
		h, err = do.Invoke[*serviceHandle](inj)
	}
	if err != nil {
		return err
	}
	if err := fn(ctx, h.svc); err != nil {
		return err
	}
	if opts.metrics {
		reg := do.MustInvoke[*prometheus.Registry](inj)
		return writeMetrics(cmd.ErrOrStderr(), reg)
	}
	return nil
}

// errInconsistent is returned by inspect --strict when issues are found.
var errInconsistent = errors.New("data is inconsistent")

func inspectCmd(opts *rootOptions) *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Report invariant violations without modifying data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, opts, false, func(ctx context.Context, svc *core.Service) error {
				if err := svc.Load(ctx); err != nil {
					return err
				}
				report, err := svc.Inspect(ctx)
				if err != nil {
					return err
				}
				if err := render(cmd.OutOrStdout(), opts.output, report); err != nil {
					return err
				}
				if strict && !report.Consistent() {
					return fmt.Errorf("%w: %d issues", errInconsistent, len(report.Issues))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "Exit non-zero when issues are found")
	return cmd
}

const (
	routineRefresh  = "refresh"
	routineFixLinks = "fix-links"
	routineCleanup  = "cleanup"
	routineAudit    = "audit"
)

func repairCmd(opts *rootOptions) *cobra.Command {
	var routine string
	cmd := &cobra.Command{
		Use:   "repair",
		Short: "Run a repair routine and persist the corrections",
		Long: `Routines:
  refresh    reload and run every repair routine (default)
  fix-links  rebuild the project to goal link map
  cleanup    demote projects whose goal no longer exists
  audit      relink projects by goal title and fix cached titles`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			open := routine == routineCleanup || routine == routineAudit
			return withService(cmd, opts, open, func(ctx context.Context, svc *core.Service) error {
				report, err := runRoutine(ctx, svc, routine)
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), opts.output, report)
			})
		},
	}
	cmd.Flags().StringVarP(&routine, "routine", "r", routineRefresh, "Repair routine to run")
	return cmd
}

func runRoutine(ctx context.Context, svc *core.Service, routine string) (core.RepairReport, error) {
	switch routine {
	case routineRefresh:
		return svc.RefreshData(ctx)
	case routineFixLinks:
		if err := svc.Load(ctx); err != nil {
			return core.RepairReport{}, err
		}
		return svc.FixProjectGoalLinks(ctx)
	case routineCleanup:
		return svc.CleanupOrphanedProjects(ctx)
	case routineAudit:
		return svc.AuditProjectGoalRelationships(ctx)
	default:
		return core.RepairReport{}, fmt.Errorf("unknown repair routine %q", routine)
	}
}

type projectProgress struct {
	ID        string `json:"id" yaml:"id"`
	Title     string `json:"title" yaml:"title"`
	Status    string `json:"status" yaml:"status"`
	Completed bool   `json:"completed" yaml:"completed"`
	Progress  int    `json:"progress" yaml:"progress"`
	Tasks     int    `json:"tasks" yaml:"tasks"`
}

type goalProgress struct {
	ID         string            `json:"id" yaml:"id"`
	Title      string            `json:"title" yaml:"title"`
	Domain     string            `json:"domain" yaml:"domain"`
	Completed  bool              `json:"completed" yaml:"completed"`
	Progress   int               `json:"progress" yaml:"progress"`
	Calculated int               `json:"calculated" yaml:"calculated"`
	Projects   []projectProgress `json:"projects" yaml:"projects"`
}

func progressCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "progress [goal-id]",
		Short: "Show stored and calculated progress per goal",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, opts, false, func(ctx context.Context, svc *core.Service) error {
				if err := svc.Load(ctx); err != nil {
					return err
				}
				goals := svc.Goals()
				if len(args) == 1 {
					g, err := svc.GetGoal(ctx, args[0])
					if err != nil {
						return err
					}
					goals = []core.Goal{g}
				}
				out := make([]goalProgress, 0, len(goals))
				for _, g := range goals {
					out = append(out, summarizeGoal(svc, g))
				}
				sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
				return render(cmd.OutOrStdout(), opts.output, out)
			})
		},
	}
}

func summarizeGoal(svc *core.Service, g core.Goal) goalProgress {
	gp := goalProgress{
		ID:         g.ID,
		Title:      g.Title,
		Domain:     g.Domain,
		Completed:  g.Completed,
		Progress:   g.Progress,
		Calculated: svc.CalculateGoalProgress(g.ID),
		Projects:   []projectProgress{},
	}
	for _, p := range svc.GetProjectsForGoal(g.ID) {
		gp.Projects = append(gp.Projects, projectProgress{
			ID:        p.ID,
			Title:     p.Title,
			Status:    string(p.Status),
			Completed: p.Completed,
			Progress:  p.Progress,
			Tasks:     len(svc.GetTasksForProject(p.ID)),
		})
	}
	return gp
}
