package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func runCLI(t *testing.T, args ...string) string {
	t.Helper()
	var stdout, stderr bytes.Buffer
	if err := run(context.Background(), args, &stdout, &stderr); err != nil {
		t.Fatalf("run %v: %v\nstderr:\n%s", args, err, stderr.String())
	}
	return stdout.String()
}

func TestTrainCommandWritesArtifacts(t *testing.T) {
	base := t.TempDir()
	runsDir := filepath.Join(base, "runs")

	out := runCLI(t, "train",
		"--store", "memory",
		"--runs-dir", runsDir,
		"--episodes", "1",
		"--log-level", "error",
	)
	if !strings.Contains(out, "run_id=") || !strings.Contains(out, "steps=100") {
		t.Fatalf("unexpected train output: %s", out)
	}
	if !strings.Contains(out, "artifacts="+runsDir) {
		t.Fatalf("expected artifacts under %s: %s", runsDir, out)
	}
	if _, err := os.Stat(filepath.Join(runsDir, "run_index.json")); err != nil {
		t.Fatalf("expected run index: %v", err)
	}
}

func TestBadgerStatePersistsAcrossCommands(t *testing.T) {
	base := t.TempDir()
	common := []string{
		"--store", "badger",
		"--db-path", filepath.Join(base, "db"),
		"--runs-dir", filepath.Join(base, "runs"),
		"--log-level", "error",
	}

	runCLI(t, append([]string{"train", "--episodes", "1"}, common...)...)

	out := runCLI(t, append([]string{"init"}, common...)...)
	if !strings.Contains(out, "loaded=true") {
		t.Fatalf("expected persisted table to load: %s", out)
	}

	var report struct {
		Status struct {
			Table struct {
				States int `json:"states"`
			} `json:"table"`
		} `json:"status"`
		Runs []struct {
			RunID string `json:"run_id"`
		} `json:"runs"`
	}
	out = runCLI(t, append([]string{"inspect"}, common...)...)
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode inspect output: %v\n%s", err, out)
	}
	if report.Status.Table.States == 0 || len(report.Runs) != 1 {
		t.Fatalf("unexpected inspect report: %+v", report)
	}

	var detail struct {
		Config struct {
			RunID string `json:"run_id"`
		} `json:"config"`
		Rewards []float64 `json:"rewards"`
	}
	out = runCLI(t, append([]string{"inspect", "--run", report.Runs[0].RunID}, common...)...)
	if err := json.Unmarshal([]byte(out), &detail); err != nil {
		t.Fatalf("decode run detail: %v\n%s", err, out)
	}
	if detail.Config.RunID != report.Runs[0].RunID || len(detail.Rewards) != 100 {
		t.Fatalf("unexpected run detail: run=%s rewards=%d", detail.Config.RunID, len(detail.Rewards))
	}

	runCLI(t, append([]string{"reset"}, common...)...)
	out = runCLI(t, append([]string{"init"}, common...)...)
	if !strings.Contains(out, "loaded=false") {
		t.Fatalf("expected empty table after reset: %s", out)
	}
}

func TestStepCommand(t *testing.T) {
	out := runCLI(t, "step", "--store", "memory", "--count", "3", "--log-level", "error")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 || !strings.HasPrefix(lines[2], "step=3 ") {
		t.Fatalf("unexpected step output: %q", out)
	}
}

func TestRunCommandStopsAfterDuration(t *testing.T) {
	out := runCLI(t, "run", "--store", "memory", "--duration", "100ms", "--speed", "100", "--log-level", "error")
	if !strings.Contains(out, "session=") {
		t.Fatalf("unexpected run output: %s", out)
	}
}

func TestUnknownCommandAndBadFlags(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if err := run(context.Background(), []string{"bogus"}, &stdout, &stderr); err == nil {
		t.Fatal("expected error for unknown command")
	}
	if err := run(context.Background(), []string{"train", "--store", "memory", "--episodes", "0", "--log-level", "error"}, &stdout, &stderr); err == nil {
		t.Fatal("expected error for zero episodes")
	}
	if err := run(context.Background(), []string{"init", "--store", "memory", "--log-format", "xml"}, &stdout, &stderr); err == nil {
		t.Fatal("expected error for unknown log format")
	}
}
