package qlearn

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"supplyq/internal/model"
	"supplyq/internal/storage"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) storage.Store {
	t.Helper()
	store := storage.NewMemoryStore()
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("init store: %v", err)
	}
	return store
}

func TestAgentDefaults(t *testing.T) {
	agent := NewAgent(DefaultConfig())
	if agent.Epsilon() != DefaultEpsilon {
		t.Fatalf("unexpected epsilon: %v", agent.Epsilon())
	}
	actions := agent.PossibleActions(testS1, []string{"a", "b"}, 1000)
	if len(actions) != 12 {
		t.Fatalf("expected 12 actions, got %d", len(actions))
	}
	if got := agent.CalculateReward(1, 0, 0, 0); got != -100 {
		t.Fatalf("expected -100, got %v", got)
	}
}

func TestAgentUpdateMatchesRule(t *testing.T) {
	agent := NewAgent(Config{LearningRate: 0.1, DiscountFactor: 0.95, Logger: quietLogger()})
	agent.SetValue(testS1, testA1, 4)

	next := testS1.Clone()
	next.Demand[0] = 90
	if err := agent.Update(testS1, testA1, -20, next, []model.Action{testA1}); err != nil {
		t.Fatalf("update: %v", err)
	}
	want := 4 + 0.1*(-20-4)
	if got := agent.Value(testS1, testA1); math.Abs(got-want) > 1e-12 {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestAgentSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	source := NewAgent(Config{Store: store, Logger: quietLogger()})
	s2 := testS1.Clone()
	s2.Inventory[0] = -250
	values := map[model.Action]float64{testA1: -10, testA2: 3.25}
	for a, v := range values {
		source.SetValue(testS1, a, v)
		source.SetValue(s2, a, v*2)
	}
	if err := source.Save(ctx); err != nil {
		t.Fatalf("save: %v", err)
	}

	restored := NewAgent(Config{Store: store, Logger: quietLogger()})
	if !restored.Load(ctx) {
		t.Fatal("expected load to succeed")
	}
	for a, v := range values {
		if got := restored.Value(testS1, a); got != v {
			t.Fatalf("s1 %+v: expected %v, got %v", a, v, got)
		}
		if got := restored.Value(s2, a); got != v*2 {
			t.Fatalf("s2 %+v: expected %v, got %v", a, v*2, got)
		}
	}
	if diff := cmp.Diff(source.Snapshot(), restored.Snapshot()); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestAgentLoadMalformedPayloadResetsTable(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	if err := store.Put(ctx, DefaultSlot, []byte("{broken")); err != nil {
		t.Fatalf("put: %v", err)
	}

	agent := NewAgent(Config{Store: store, Logger: quietLogger()})
	agent.SetValue(testS1, testA1, 7)
	if agent.Load(ctx) {
		t.Fatal("expected load to report failure")
	}
	if stats := agent.TableStats(); stats.States != 0 {
		t.Fatalf("expected empty table, got %+v", stats)
	}
}

func TestAgentLoadMissingSlot(t *testing.T) {
	agent := NewAgent(Config{Store: newTestStore(t), Logger: quietLogger()})
	if agent.Load(context.Background()) {
		t.Fatal("expected missing slot to report false")
	}
	if agent.Value(testS1, testA1) != 0 {
		t.Fatal("expected empty table")
	}
}

func TestAgentLoadRejectsBucketMismatch(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	writer := NewAgent(Config{Store: store, Logger: quietLogger()})
	writer.SetValue(testS1, testA1, 1)
	if err := writer.Save(ctx); err != nil {
		t.Fatalf("save: %v", err)
	}

	reader := NewAgent(Config{
		Store:   store,
		Buckets: model.BucketWidths{Inventory: 50, Demand: 10, LeadTime: 1, Cost: 1000},
		Logger:  quietLogger(),
	})
	if reader.Load(ctx) {
		t.Fatal("expected bucket mismatch to reject the payload")
	}
}

func TestAgentSaveWithoutStore(t *testing.T) {
	agent := NewAgent(Config{Logger: quietLogger()})
	if err := agent.Save(context.Background()); err != nil {
		t.Fatalf("save without store: %v", err)
	}
	if agent.Load(context.Background()) {
		t.Fatal("load without store must report false")
	}
}

func TestAgentEmptyActionsAreRejected(t *testing.T) {
	agent := NewAgent(Config{Logger: quietLogger()})
	if _, err := agent.ChooseAction(testS1, nil); err == nil {
		t.Fatal("expected error for empty action set")
	}
}

func TestAgentRejectsOversizedState(t *testing.T) {
	agent := NewAgent(Config{Logger: quietLogger()})
	n := MaxNodes + 1
	big := model.State{
		Inventory: make([]float64, n),
		Demand:    make([]float64, n),
		LeadTimes: make([]float64, n),
		Costs:     make([]float64, n),
	}
	actions := []model.Action{{NodeID: "n0", Quantity: 0}}

	if _, err := agent.ChooseAction(big, actions); !errors.Is(err, ErrStateTooLarge) {
		t.Fatalf("choose: expected ErrStateTooLarge, got %v", err)
	}
	if err := agent.Update(big, actions[0], -1, big, actions); !errors.Is(err, ErrStateTooLarge) {
		t.Fatalf("update: expected ErrStateTooLarge, got %v", err)
	}
	if agent.TableStats().States != 0 {
		t.Fatal("oversized state reached the table")
	}
}
