package qlearn

import (
	"cmp"
	"container/list"
	"slices"
)

// ValueTable is a sparse Q-table. Unwritten pairs read as zero. With a positive
// maxStates the least-recently-updated state is evicted to make room for a new
// one; otherwise the table grows without bound.
//
// ValueTable is not safe for concurrent use.
type ValueTable struct {
	maxStates int
	values    map[StateKey]map[ActionKey]float64

	// Recency is tracked only when maxStates > 0. Front is the most recent.
	recency   *list.List
	positions map[StateKey]*list.Element
}

func NewValueTable(maxStates int) *ValueTable {
	t := &ValueTable{maxStates: max(maxStates, 0)}
	t.Reset()
	return t
}

func (t *ValueTable) Get(s StateKey, a ActionKey) float64 {
	return t.values[s][a]
}

func (t *ValueTable) Set(s StateKey, a ActionKey, v float64) {
	row, ok := t.values[s]
	if !ok {
		if t.maxStates > 0 && len(t.values) >= t.maxStates {
			t.evictOldest()
		}
		row = make(map[ActionKey]float64)
		t.values[s] = row
	}
	row[a] = v
	t.touch(s)
}

// Len reports the number of distinct states.
func (t *ValueTable) Len() int {
	return len(t.values)
}

// Entries reports the number of stored state-action pairs.
func (t *ValueTable) Entries() int {
	n := 0
	for _, row := range t.values {
		n += len(row)
	}
	return n
}

func (t *ValueTable) MaxStates() int {
	return t.maxStates
}

func (t *ValueTable) Reset() {
	t.values = make(map[StateKey]map[ActionKey]float64)
	if t.maxStates > 0 {
		t.recency = list.New()
		t.positions = make(map[StateKey]*list.Element)
	}
}

// Range visits every pair in a deterministic order: states by field, then
// actions by node and quantity.
func (t *ValueTable) Range(fn func(s StateKey, a ActionKey, v float64)) {
	states := make([]StateKey, 0, len(t.values))
	for s := range t.values {
		states = append(states, s)
	}
	slices.SortFunc(states, compareStateKeys)

	for _, s := range states {
		row := t.values[s]
		actions := make([]ActionKey, 0, len(row))
		for a := range row {
			actions = append(actions, a)
		}
		slices.SortFunc(actions, compareActionKeys)
		for _, a := range actions {
			fn(s, a, row[a])
		}
	}
}

func (t *ValueTable) touch(s StateKey) {
	if t.maxStates <= 0 {
		return
	}
	if el, ok := t.positions[s]; ok {
		t.recency.MoveToFront(el)
		return
	}
	t.positions[s] = t.recency.PushFront(s)
}

func (t *ValueTable) evictOldest() {
	el := t.recency.Back()
	if el == nil {
		return
	}
	s := el.Value.(StateKey)
	t.recency.Remove(el)
	delete(t.positions, s)
	delete(t.values, s)
}

func compareStateKeys(a, b StateKey) int {
	if c := cmp.Compare(a.Nodes, b.Nodes); c != 0 {
		return c
	}
	if c := slices.Compare(a.Inventory[:], b.Inventory[:]); c != 0 {
		return c
	}
	if c := slices.Compare(a.Demand[:], b.Demand[:]); c != 0 {
		return c
	}
	if c := slices.Compare(a.LeadTime[:], b.LeadTime[:]); c != 0 {
		return c
	}
	return slices.Compare(a.Cost[:], b.Cost[:])
}

func compareActionKeys(a, b ActionKey) int {
	if c := cmp.Compare(a.Node, b.Node); c != 0 {
		return c
	}
	return cmp.Compare(a.QuantityMilli, b.QuantityMilli)
}
