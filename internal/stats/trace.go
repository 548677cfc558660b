package stats

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// EpisodeTrace is an append-only record of per-step rewards. It is observation
// only and never feeds back into learning.
type EpisodeTrace struct {
	rewards []float64
}

func NewEpisodeTrace(capacity int) *EpisodeTrace {
	if capacity < 0 {
		capacity = 0
	}
	return &EpisodeTrace{rewards: make([]float64, 0, capacity)}
}

func (t *EpisodeTrace) Append(reward float64) {
	t.rewards = append(t.rewards, reward)
}

func (t *EpisodeTrace) Len() int {
	return len(t.rewards)
}

func (t *EpisodeTrace) Rewards() []float64 {
	return append([]float64(nil), t.rewards...)
}

func (t *EpisodeTrace) Summary() Summary {
	return Summarize(t.rewards)
}

type Summary struct {
	Count  int     `json:"count"`
	Total  float64 `json:"total"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Last   float64 `json:"last"`
}

// Summarize reduces a reward series. The zero Summary is returned for an empty
// series.
func Summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}
	summary := Summary{
		Count: len(values),
		Total: floats.Sum(values),
		Min:   floats.Min(values),
		Max:   floats.Max(values),
		Last:  values[len(values)-1],
	}
	if len(values) == 1 {
		summary.Mean = values[0]
		return summary
	}
	summary.Mean, summary.StdDev = stat.MeanStdDev(values, nil)
	return summary
}
