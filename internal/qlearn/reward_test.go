package qlearn

import "testing"

func TestRewardSingleStockout(t *testing.T) {
	if got := Reward(1, 0, 0, 0); got != -100 {
		t.Fatalf("expected -100, got %v", got)
	}
}

func TestRewardCombinesPenalties(t *testing.T) {
	got := Reward(2, 1000, 3, 10000)
	want := -200.0 - 100.0 - 150.0 - 10.0
	if got != want {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestRewardWeightsOverride(t *testing.T) {
	w := RewardWeights{Stockout: 1, Holding: 1, Delay: 1, Cost: 1}
	if got := w.Reward(1, 2, 3, 4); got != -10 {
		t.Fatalf("expected -10, got %v", got)
	}
}
