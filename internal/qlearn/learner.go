package qlearn

import "supplyq/internal/model"

const (
	DefaultLearningRate   = 0.1
	DefaultDiscountFactor = 0.95
	DefaultEpsilon        = 0.1
)

// Learner applies the one-step Q-learning rule
//
//	Q(s,a) += α·(r + γ·max_a' Q(s',a') − Q(s,a))
type Learner struct {
	LearningRate   float64
	DiscountFactor float64
}

// Update writes the new value for (state, action) and returns it. An empty
// nextActions leaves the table untouched.
func (l Learner) Update(
	table *ValueTable,
	enc Encoder,
	state model.State,
	action model.Action,
	reward float64,
	nextState model.State,
	nextActions []model.Action,
) (float64, error) {
	if len(nextActions) == 0 {
		return 0, ErrEmptyActionSet
	}

	nextKey := enc.State(nextState)
	maxNextQ := table.Get(nextKey, enc.Action(nextActions[0]))
	for _, next := range nextActions[1:] {
		if q := table.Get(nextKey, enc.Action(next)); q > maxNextQ {
			maxNextQ = q
		}
	}

	stateKey := enc.State(state)
	actionKey := enc.Action(action)
	currentQ := table.Get(stateKey, actionKey)
	newQ := currentQ + l.LearningRate*(reward+l.DiscountFactor*maxNextQ-currentQ)
	table.Set(stateKey, actionKey, newQ)
	return newQ, nil
}
