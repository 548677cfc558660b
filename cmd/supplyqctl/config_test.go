package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "supplyq.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigOverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
store:
  kind: sqlite
  path: /tmp/q.db
agent:
  epsilon: 0.25
  max_states: 500
simulation:
  steps_per_episode: 20
  speed: 10
log:
  format: json
`)
	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	want := defaultConfig()
	want.Store.Kind = "sqlite"
	want.Store.Path = "/tmp/q.db"
	epsilon := 0.25
	want.Agent.Epsilon = &epsilon
	want.Agent.MaxStates = 500
	want.Simulation.StepsPerEpisode = 20
	want.Simulation.Speed = 10
	want.Log.Format = "json"
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}

	opts := cfg.options(nil)
	if opts.Epsilon == nil || *opts.Epsilon != 0.25 || opts.StepsPerEpisode != 20 {
		t.Fatalf("unexpected options: %+v", opts)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	if _, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
	if _, err := loadConfig(writeConfig(t, "store: [")); err == nil {
		t.Fatal("expected error for malformed yaml")
	}
	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("load empty path: %v", err)
	}
	if diff := cmp.Diff(defaultConfig(), cfg); diff != "" {
		t.Fatalf("defaults mismatch (-want +got):\n%s", diff)
	}
}

func TestFlagsOverrideConfigFile(t *testing.T) {
	path := writeConfig(t, `
store:
  kind: sqlite
  path: from-file.db
agent:
  seed: 9
`)

	var got fileConfig
	flags := &globalFlags{}
	root := buildRootCmd(flags)
	capture := &cobra.Command{
		Use: "capture",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			got, err = resolveConfig(cmd, flags)
			return err
		},
	}
	root.AddCommand(capture)
	root.SetArgs([]string{"capture", "--config", path, "--store", "memory"})
	root.SetOut(&bytes.Buffer{})
	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}

	if got.Store.Kind != "memory" {
		t.Fatalf("flag did not override store kind: %q", got.Store.Kind)
	}
	if got.Store.Path != "from-file.db" {
		t.Fatalf("file value lost: %q", got.Store.Path)
	}
	if got.Agent.Seed != 9 {
		t.Fatalf("file seed lost: %d", got.Agent.Seed)
	}
}

func TestStoreKindFlagLeavesPathToBackendDefault(t *testing.T) {
	var got fileConfig
	flags := &globalFlags{}
	root := buildRootCmd(flags)
	root.AddCommand(&cobra.Command{
		Use: "capture",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			got, err = resolveConfig(cmd, flags)
			return err
		},
	})
	root.SetArgs([]string{"capture", "--store", "sqlite"})
	root.SetOut(&bytes.Buffer{})
	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}

	if got.Store.Kind != "sqlite" || got.Store.Path != "" {
		t.Fatalf("unexpected store config: %+v", got.Store)
	}
	if opts := got.options(nil); opts.DBPath != "" {
		t.Fatalf("expected backend default path, got %q", opts.DBPath)
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(logConfig{Level: "warn", Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	logger.Info("hidden")
	logger.Warn("shown", "component", "test")
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, `"msg":"shown"`) {
		t.Fatalf("unexpected log output: %s", out)
	}

	if _, err := newLogger(logConfig{Level: "loud"}, &buf); err == nil {
		t.Fatal("expected error for invalid level")
	}
}
