package qlearn

import (
	"errors"
	"math/rand"

	"supplyq/internal/model"
)

var ErrEmptyActionSet = errors.New("qlearn: empty action set")

// EpsilonGreedy explores uniformly with probability Epsilon and otherwise picks
// the highest-valued action. Ties go to the earliest action in the slice.
type EpsilonGreedy struct {
	Epsilon float64
	Rand    *rand.Rand
}

func (p EpsilonGreedy) Choose(table *ValueTable, enc Encoder, state StateKey, actions []model.Action) (model.Action, error) {
	if len(actions) == 0 {
		return model.Action{}, ErrEmptyActionSet
	}
	if p.Rand.Float64() < p.Epsilon {
		return actions[p.Rand.Intn(len(actions))], nil
	}

	best := actions[0]
	bestValue := table.Get(state, enc.Action(best))
	for _, action := range actions[1:] {
		if value := table.Get(state, enc.Action(action)); value > bestValue {
			best = action
			bestValue = value
		}
	}
	return best, nil
}
