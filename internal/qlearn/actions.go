package qlearn

import "supplyq/internal/model"

const DefaultQuantitySteps = 5

// GenerateActions lists steps+1 evenly spaced order quantities in [0, maxQuantity]
// for every node, node-major in the order given. Policy tie-breaking depends on
// this ordering.
func GenerateActions(nodeIDs []string, maxQuantity float64, steps int) []model.Action {
	if steps <= 0 {
		steps = DefaultQuantitySteps
	}
	actions := make([]model.Action, 0, len(nodeIDs)*(steps+1))
	for _, id := range nodeIDs {
		for i := 0; i <= steps; i++ {
			actions = append(actions, model.Action{
				NodeID:   id,
				Quantity: float64(i) * maxQuantity / float64(steps),
			})
		}
	}
	return actions
}
