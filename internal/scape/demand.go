package scape

import "math/rand"

const DefaultMaxDemand = 100

// DemandSampler draws synthetic per-node demand uniformly from [0, Max).
type DemandSampler struct {
	Max  float64
	Rand *rand.Rand
}

func NewDemandSampler(maxDemand float64, rng *rand.Rand) DemandSampler {
	if maxDemand <= 0 {
		maxDemand = DefaultMaxDemand
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return DemandSampler{Max: maxDemand, Rand: rng}
}

func (d DemandSampler) Sample(n int) []float64 {
	demand := make([]float64, n)
	for i := range demand {
		demand[i] = d.Rand.Float64() * d.Max
	}
	return demand
}
