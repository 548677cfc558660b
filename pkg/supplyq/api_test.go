package supplyq

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func newTestClient(t *testing.T, opts Options) *Client {
	t.Helper()
	if opts.StoreKind == "" {
		opts.StoreKind = "memory"
	}
	if opts.RunsDir == "" {
		opts.RunsDir = filepath.Join(t.TempDir(), "runs")
	}
	if opts.StepsPerEpisode == 0 {
		opts.StepsPerEpisode = 10
	}
	opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	client, err := New(context.Background(), opts)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client
}

func TestClientTrainWritesArtifacts(t *testing.T) {
	client := newTestClient(t, Options{})

	summary, err := client.Train(context.Background(), TrainRequest{Episodes: 2})
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	if summary.TotalSteps != 20 || len(summary.EpisodeRewards) != 2 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.Table.States == 0 {
		t.Fatal("expected learned states")
	}
	for _, file := range []string{"config.json", "summary.json", "rewards.csv"} {
		if _, err := os.Stat(filepath.Join(summary.ArtifactsDir, file)); err != nil {
			t.Fatalf("expected artifact %s: %v", file, err)
		}
	}

	runs, err := client.Runs(context.Background(), RunsRequest{})
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if len(runs) != 1 || runs[0].RunID != summary.RunID || runs[0].Steps != 20 {
		t.Fatalf("unexpected run index: %+v", runs)
	}
}

func TestClientRunReadsArtifactsBack(t *testing.T) {
	client := newTestClient(t, Options{})

	summary, err := client.Train(context.Background(), TrainRequest{Episodes: 2})
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	detail, err := client.Run(context.Background(), summary.RunID)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if detail.Config.RunID != summary.RunID || detail.Config.Episodes != 2 {
		t.Fatalf("unexpected run config: %+v", detail.Config)
	}
	if len(detail.Rewards) != summary.TotalSteps {
		t.Fatalf("reward series: got=%d want=%d", len(detail.Rewards), summary.TotalSteps)
	}
	if detail.Summary.Count != summary.TotalSteps {
		t.Fatalf("unexpected run summary: %+v", detail.Summary)
	}

	if _, err := client.Run(context.Background(), "missing"); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestClientTrainSkipArtifacts(t *testing.T) {
	client := newTestClient(t, Options{})
	summary, err := client.Train(context.Background(), TrainRequest{Episodes: 1, SkipArtifacts: true})
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	if summary.ArtifactsDir != "" {
		t.Fatalf("expected no artifacts, got %s", summary.ArtifactsDir)
	}
	runs, err := client.Runs(context.Background(), RunsRequest{})
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if len(runs) != 0 {
		t.Fatalf("expected empty run index, got %+v", runs)
	}
}

func TestClientPersistsAcrossInstancesWithBadger(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "badger")

	first := newTestClient(t, Options{StoreKind: "badger", DBPath: dir})
	if _, err := first.Train(context.Background(), TrainRequest{Episodes: 1, SkipArtifacts: true}); err != nil {
		t.Fatalf("train: %v", err)
	}
	want := first.Status().Table
	if err := first.Close(); err != nil {
		t.Fatalf("close first client: %v", err)
	}

	second := newTestClient(t, Options{StoreKind: "badger", DBPath: dir})
	loaded, err := second.Init(context.Background())
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if !loaded {
		t.Fatal("expected table to load from badger")
	}
	if got := second.Status().Table; got != want {
		t.Fatalf("table stats: got=%+v want=%+v", got, want)
	}
}

func TestClientInMemoryBadgerLeavesNoDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "q.badger")

	client := newTestClient(t, Options{StoreKind: "badger", DBPath: dir, InMemory: true})
	if _, err := client.Step(context.Background()); err != nil {
		t.Fatalf("step: %v", err)
	}
	if err := client.Save(context.Background()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("in-memory badger created %s on disk (stat err=%v)", dir, err)
	}
}

func TestClientStepAndNodes(t *testing.T) {
	epsilon := 0.0
	client := newTestClient(t, Options{Epsilon: &epsilon})
	if got := client.Status().Epsilon; got != 0 {
		t.Fatalf("epsilon override ignored: %v", got)
	}

	inventory := -50.0
	if err := client.UpdateNode("ret_2", NodePatch{CurrentInventory: &inventory}); err != nil {
		t.Fatalf("update node: %v", err)
	}
	res, err := client.Step(context.Background())
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	// Greedy over an empty table picks the first action: order nothing at sup_1.
	if res.Action.NodeID != "sup_1" || res.Action.Quantity != 0 {
		t.Fatalf("unexpected action: %+v", res.Action)
	}
	if res.Outcome.Stockouts != 1 {
		t.Fatalf("expected one stockout, got %+v", res.Outcome)
	}
	if client.Status().Step != 1 {
		t.Fatalf("step counter: %d", client.Status().Step)
	}
}

func TestClientLiveModeBlocksTraining(t *testing.T) {
	client := newTestClient(t, Options{Speed: 1})
	if _, err := client.StartLive(0); err != nil {
		t.Fatalf("start live: %v", err)
	}
	if _, err := client.Train(context.Background(), TrainRequest{Episodes: 1}); !errors.Is(err, ErrModeBusy) {
		t.Fatalf("expected ErrModeBusy, got %v", err)
	}
	if err := client.StopLive(); err != nil {
		t.Fatalf("stop live: %v", err)
	}
	if err := client.StopLive(); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("expected ErrNotRunning, got %v", err)
	}
}

func TestNewRejectsUnknownStoreAndPreset(t *testing.T) {
	if _, err := New(context.Background(), Options{StoreKind: "etcd"}); err == nil {
		t.Fatal("expected unsupported store error")
	}
	if _, err := New(context.Background(), Options{StoreKind: "memory", Preset: "mars"}); err == nil {
		t.Fatal("expected unknown preset error")
	}
}
