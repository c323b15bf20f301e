package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"momentum/internal/core"
	"momentum/pkg/domain"
)

func seedDataDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		domain.KeyGoals: `[{"id":"g1","title":"Fitness","domain":"health","color":"#f00","completed":false,"progress":0,"createdAt":"2026-01-01T00:00:00Z"}]`,
		domain.KeyProjects: `[
			{"id":"p1","title":"Couch to 5k","goalId":"g-old","goalTitle":"fitness","status":"done","completed":true,"progress":100,"createdAt":"2026-01-01T00:00:00Z"},
			{"id":"p2","title":"Read more","goalId":"g-missing","goalTitle":"Gone","status":"todo","completed":false,"progress":0,"createdAt":"2026-01-01T00:00:00Z"}
		]`,
		domain.KeyTasks: `[{"id":"t1","projectId":"p-none","title":"stray","completed":false,"createdAt":"2026-01-01T00:00:00Z","updatedAt":"2026-01-01T00:00:00Z"}]`,
	}
	for key, body := range files {
		if err := os.WriteFile(filepath.Join(dir, key+".json"), []byte(body), 0o600); err != nil {
			t.Fatalf("seed %s: %v", key, err)
		}
	}
	return dir
}

func useFSStorage(t *testing.T, dir string) {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("MOMENTUM_STORAGE_DRIVER", "fs")
	t.Setenv("MOMENTUM_STORAGE_FSROOT", dir)
	t.Setenv("MOMENTUM_LOG_LEVEL", "error")
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestInspectReportsIssues(t *testing.T) {
	useFSStorage(t, seedDataDir(t))
	out, _, err := execute(t, "inspect")
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	var report core.InconsistencyReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode report: %v\n%s", err, out)
	}
	kinds := map[string]int{}
	for _, issue := range report.Issues {
		kinds[issue.Kind]++
	}
	if kinds[core.IssueDanglingGoal] != 2 || kinds[core.IssueOrphanTask] != 1 {
		t.Fatalf("unexpected issues: %+v", report.Issues)
	}

	_, _, err = execute(t, "inspect", "--strict")
	if !errors.Is(err, errInconsistent) {
		t.Fatalf("expected strict inspect to fail, got %v", err)
	}
}

func TestRepairRefreshPersistsCorrections(t *testing.T) {
	useFSStorage(t, seedDataDir(t))
	out, _, err := execute(t, "repair")
	if err != nil {
		t.Fatalf("repair: %v", err)
	}
	var report core.RepairReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode report: %v\n%s", err, out)
	}
	if len(report.RelinkedProjects) != 1 || report.RelinkedProjects[0] != "p1" {
		t.Fatalf("expected p1 relinked by title, got %+v", report)
	}
	if len(report.ClearedGoalLinks) != 1 || report.ClearedGoalLinks[0] != "p2" {
		t.Fatalf("expected p2 cleared, got %+v", report)
	}
	if len(report.DroppedTasks) != 1 || report.DroppedTasks[0] != "t1" {
		t.Fatalf("expected orphan task dropped, got %+v", report)
	}

	out, _, err = execute(t, "inspect", "--strict")
	if err != nil {
		t.Fatalf("expected consistent data after repair, got %v\n%s", err, out)
	}
}

func TestRepairCleanupReconcilesLinksFirst(t *testing.T) {
	dir := seedDataDir(t)
	linkPath := filepath.Join(dir, domain.KeyLinkMap+".json")
	if err := os.WriteFile(linkPath, []byte(`{"ghost":"g1"}`), 0o600); err != nil {
		t.Fatalf("seed link map: %v", err)
	}
	useFSStorage(t, dir)

	out, _, err := execute(t, "repair", "--routine", "cleanup")
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	var report core.RepairReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode report: %v\n%s", err, out)
	}
	if len(report.DemotedProjects) != 2 {
		t.Fatalf("expected p1 and p2 demoted, got %+v", report)
	}
	links, err := os.ReadFile(linkPath)
	if err != nil {
		t.Fatalf("read link map: %v", err)
	}
	if strings.Contains(string(links), "ghost") {
		t.Fatalf("expected stale link entry removed on open, got %s", links)
	}
}

func TestTraceWritesSpansToStderr(t *testing.T) {
	useFSStorage(t, seedDataDir(t))
	_, stderr, err := execute(t, "inspect", "--trace")
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if !strings.Contains(stderr, `"operation":"load"`) || !strings.Contains(stderr, `"outcome":"ok"`) {
		t.Fatalf("expected load span on stderr, got %q", stderr)
	}

	_, stderr, err = execute(t, "inspect")
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if strings.Contains(stderr, `"operation"`) {
		t.Fatalf("expected no spans without --trace, got %q", stderr)
	}
}

func TestRepairUnknownRoutine(t *testing.T) {
	useFSStorage(t, seedDataDir(t))
	_, _, err := execute(t, "repair", "--routine", "nuke")
	if err == nil || !strings.Contains(err.Error(), "unknown repair routine") {
		t.Fatalf("expected unknown routine error, got %v", err)
	}
}

func TestProgressYAMLAndMetrics(t *testing.T) {
	useFSStorage(t, seedDataDir(t))
	if _, _, err := execute(t, "repair", "-r", "audit"); err != nil {
		t.Fatalf("audit: %v", err)
	}
	out, stderr, err := execute(t, "progress", "g1", "-o", "yaml", "--metrics")
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	var goals []goalProgress
	if err := yaml.Unmarshal([]byte(out), &goals); err != nil {
		t.Fatalf("decode yaml: %v\n%s", err, out)
	}
	if len(goals) != 1 || goals[0].ID != "g1" {
		t.Fatalf("unexpected goals: %+v", goals)
	}
	if len(goals[0].Projects) != 1 || goals[0].Projects[0].ID != "p1" {
		t.Fatalf("expected relinked project under goal, got %+v", goals[0].Projects)
	}
	if goals[0].Calculated != 100 || goals[0].Progress != 100 {
		t.Fatalf("expected goal at 100 after audit, got %+v", goals[0])
	}
	if !strings.Contains(stderr, "momentum_operations_total{operation=load,status=success} 1") {
		t.Fatalf("expected load counter in metrics output, got %q", stderr)
	}
}

func TestProgressUnknownGoal(t *testing.T) {
	useFSStorage(t, seedDataDir(t))
	_, _, err := execute(t, "progress", "nope")
	if !errors.Is(err, domain.ErrMissing) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRejectsUnknownOutputFormat(t *testing.T) {
	useFSStorage(t, t.TempDir())
	if _, _, err := execute(t, "inspect", "-o", "xml"); err == nil {
		t.Fatalf("expected unsupported format error")
	}
}
