package qlearn

import (
	"errors"
	"math"
	"testing"

	"supplyq/internal/model"
)

func TestLearnerUpdateFromZero(t *testing.T) {
	enc := NewEncoder(DefaultBuckets())
	table := NewValueTable(0)
	learner := Learner{LearningRate: 0.1, DiscountFactor: 0.95}

	next := testS1.Clone()
	next.Inventory[0] = 950
	newQ, err := learner.Update(table, enc, testS1, testA1, -100, next, []model.Action{testA1, testA2})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if newQ != -10 {
		t.Fatalf("expected -10, got %v", newQ)
	}
	if got := table.Get(enc.State(testS1), enc.Action(testA1)); got != -10 {
		t.Fatalf("expected stored -10, got %v", got)
	}
}

func TestLearnerUsesMaxNextValue(t *testing.T) {
	enc := NewEncoder(DefaultBuckets())
	table := NewValueTable(0)
	learner := Learner{LearningRate: 0.5, DiscountFactor: 0.9}

	next := testS1.Clone()
	next.Inventory[0] = 1500
	table.Set(enc.State(next), enc.Action(testA1), -4)
	table.Set(enc.State(next), enc.Action(testA2), 2)
	table.Set(enc.State(testS1), enc.Action(testA2), 1)

	newQ, err := learner.Update(table, enc, testS1, testA2, 3, next, []model.Action{testA1, testA2})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	want := 1 + 0.5*(3+0.9*2-1)
	if math.Abs(newQ-want) > 1e-12 {
		t.Fatalf("expected %v, got %v", want, newQ)
	}
}

func TestLearnerNegativeNextValues(t *testing.T) {
	enc := NewEncoder(DefaultBuckets())
	table := NewValueTable(0)
	learner := Learner{LearningRate: 1, DiscountFactor: 1}

	next := testS1.Clone()
	next.Inventory[0] = 2500
	table.Set(enc.State(next), enc.Action(testA1), -8)
	table.Set(enc.State(next), enc.Action(testA2), -3)

	newQ, err := learner.Update(table, enc, testS1, testA1, 0, next, []model.Action{testA1, testA2})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if newQ != -3 {
		t.Fatalf("expected max over negative next values (-3), got %v", newQ)
	}
}

func TestLearnerEmptyNextActions(t *testing.T) {
	enc := NewEncoder(DefaultBuckets())
	table := NewValueTable(0)
	_, err := Learner{LearningRate: 0.1, DiscountFactor: 0.95}.Update(table, enc, testS1, testA1, -1, testS1, nil)
	if !errors.Is(err, ErrEmptyActionSet) {
		t.Fatalf("expected ErrEmptyActionSet, got %v", err)
	}
	if table.Len() != 0 {
		t.Fatal("table must be untouched on failed update")
	}
}
