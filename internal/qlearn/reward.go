package qlearn

// RewardWeights are the per-unit penalties applied to a step outcome. Service
// failures (stockouts, delay) weigh far more than holding and transport cost.
type RewardWeights struct {
	Stockout float64 `json:"stockout"`
	Holding  float64 `json:"holding"`
	Delay    float64 `json:"delay"`
	Cost     float64 `json:"cost"`
}

func DefaultRewardWeights() RewardWeights {
	return RewardWeights{
		Stockout: 100,
		Holding:  0.1,
		Delay:    50,
		Cost:     0.001,
	}
}

func (w RewardWeights) Reward(stockouts, holdingCost, deliveryDelay, totalCost float64) float64 {
	return -w.Stockout*stockouts - w.Holding*holdingCost - w.Delay*deliveryDelay - w.Cost*totalCost
}

// Reward scores an outcome with DefaultRewardWeights. Inputs are not validated.
func Reward(stockouts, holdingCost, deliveryDelay, totalCost float64) float64 {
	return DefaultRewardWeights().Reward(stockouts, holdingCost, deliveryDelay, totalCost)
}
