package qlearn

import (
	"math"

	"supplyq/internal/model"
)

// MaxNodes bounds the node count a StateKey can describe.
const MaxNodes = 16

// nonFiniteBucket is the bucket for NaN, ±Inf and values beyond int64 range.
const nonFiniteBucket int64 = math.MinInt64

const maxBucket = float64(1 << 63)

// StateKey is the discretized form of a model.State. Slots past Nodes stay zero,
// so keys of equal node count compare field by field.
type StateKey struct {
	Nodes     int
	Inventory [MaxNodes]int64
	Demand    [MaxNodes]int64
	LeadTime  [MaxNodes]int64
	Cost      [MaxNodes]int64
}

// ActionKey is the discretized form of a model.Action; quantities are kept to
// a thousandth of a unit.
type ActionKey struct {
	Node          string
	QuantityMilli int64
}

func (k ActionKey) Action() model.Action {
	return model.Action{NodeID: k.Node, Quantity: float64(k.QuantityMilli) / 1000}
}

func DefaultBuckets() model.BucketWidths {
	return model.BucketWidths{
		Inventory: 100,
		Demand:    10,
		LeadTime:  1,
		Cost:      1000,
	}
}

// Encoder maps states and actions onto table keys using fixed bucket widths.
type Encoder struct {
	buckets model.BucketWidths
}

func NewEncoder(buckets model.BucketWidths) Encoder {
	return Encoder{buckets: normalizeBuckets(buckets)}
}

func (e Encoder) Buckets() model.BucketWidths {
	return e.buckets
}

// State encodes s. Values past MaxNodes are ignored, so callers must reject
// larger states (Agent does); a field shorter than Inventory encodes its
// missing entries as zero.
func (e Encoder) State(s model.State) StateKey {
	var key StateKey
	n := min(s.Len(), MaxNodes)
	key.Nodes = n
	for i := 0; i < n; i++ {
		key.Inventory[i] = bucket(at(s.Inventory, i), e.buckets.Inventory)
		key.Demand[i] = bucket(at(s.Demand, i), e.buckets.Demand)
		key.LeadTime[i] = bucket(at(s.LeadTimes, i), e.buckets.LeadTime)
		key.Cost[i] = bucket(at(s.Costs, i), e.buckets.Cost)
	}
	return key
}

func (e Encoder) Action(a model.Action) ActionKey {
	return ActionKey{Node: a.NodeID, QuantityMilli: bucket(a.Quantity*1000+0.5, 1)}
}

func bucket(v, width float64) int64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nonFiniteBucket
	}
	f := math.Floor(v / width)
	if f >= maxBucket || f < -maxBucket {
		return nonFiniteBucket
	}
	return int64(f)
}

func at(values []float64, i int) float64 {
	if i < len(values) {
		return values[i]
	}
	return 0
}

func normalizeBuckets(b model.BucketWidths) model.BucketWidths {
	def := DefaultBuckets()
	if !(b.Inventory > 0) || math.IsInf(b.Inventory, 0) {
		b.Inventory = def.Inventory
	}
	if !(b.Demand > 0) || math.IsInf(b.Demand, 0) {
		b.Demand = def.Demand
	}
	if !(b.LeadTime > 0) || math.IsInf(b.LeadTime, 0) {
		b.LeadTime = def.LeadTime
	}
	if !(b.Cost > 0) || math.IsInf(b.Cost, 0) {
		b.Cost = def.Cost
	}
	return b
}
