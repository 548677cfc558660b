package qlearn

import (
	"context"
	"errors"
	"fmt"

	"supplyq/internal/model"
	"supplyq/internal/storage"
)

var errBucketMismatch = errors.New("bucket widths differ from encoder")

// Save writes the full table to the agent's slot. It is a no-op without a store.
func (a *Agent) Save(ctx context.Context) error {
	if a.store == nil {
		return nil
	}
	payload, err := storage.EncodeValueTable(a.Snapshot())
	if err != nil {
		return fmt.Errorf("encode value table: %w", err)
	}
	if err := a.store.Put(ctx, a.slot, payload); err != nil {
		return fmt.Errorf("save value table %s: %w", a.slot, err)
	}
	return nil
}

// Load replaces the table with the persisted one and reports whether it did.
// A missing, unreadable or incompatible payload leaves an empty table; the
// cause is logged, never returned.
func (a *Agent) Load(ctx context.Context) bool {
	if a.store == nil {
		return false
	}
	payload, ok, err := a.store.Get(ctx, a.slot)
	if err != nil {
		a.logger.Warn("value table load failed", "slot", a.slot, "error", err)
		a.table.Reset()
		return false
	}
	if !ok {
		a.table.Reset()
		return false
	}
	record, err := storage.DecodeValueTable(payload)
	if err == nil {
		err = a.Restore(record)
	}
	if err != nil {
		a.logger.Warn("discarding persisted value table", "slot", a.slot, "error", err)
		a.table.Reset()
		return false
	}
	a.logger.Info("value table loaded", "slot", a.slot, "states", a.table.Len())
	return true
}

// DeleteSaved removes the persisted slot.
func (a *Agent) DeleteSaved(ctx context.Context) error {
	if a.store == nil {
		return nil
	}
	return a.store.Delete(ctx, a.slot)
}

// Snapshot converts the table into its persisted form.
func (a *Agent) Snapshot() model.ValueTableRecord {
	record := model.ValueTableRecord{
		VersionedRecord: model.VersionedRecord{
			SchemaVersion: storage.CurrentSchemaVersion,
			CodecVersion:  storage.CurrentCodecVersion,
		},
		Buckets: a.encoder.Buckets(),
		States:  []model.StateValues{},
	}

	var current *model.StateValues
	var currentKey StateKey
	a.table.Range(func(s StateKey, k ActionKey, v float64) {
		if current == nil || s != currentKey {
			record.States = append(record.States, stateValuesFromKey(s))
			current = &record.States[len(record.States)-1]
			currentKey = s
			record.NodeCount = max(record.NodeCount, s.Nodes)
		}
		action := k.Action()
		current.Actions = append(current.Actions, model.ActionValue{
			NodeID:   action.NodeID,
			Quantity: action.Quantity,
			Value:    v,
		})
	})
	return record
}

// Restore replaces the table with record. On error the table is unchanged.
func (a *Agent) Restore(record model.ValueTableRecord) error {
	if record.Buckets != a.encoder.Buckets() {
		return errBucketMismatch
	}
	if record.NodeCount < 0 || record.NodeCount > MaxNodes {
		return fmt.Errorf("node count %d out of range", record.NodeCount)
	}

	restored := NewValueTable(a.table.MaxStates())
	for i, sv := range record.States {
		key, err := stateKeyFromValues(sv)
		if err != nil {
			return fmt.Errorf("state %d: %w", i, err)
		}
		for _, av := range sv.Actions {
			action := model.Action{NodeID: av.NodeID, Quantity: av.Quantity}
			restored.Set(key, a.encoder.Action(action), av.Value)
		}
	}
	a.table = restored
	return nil
}

func stateValuesFromKey(s StateKey) model.StateValues {
	return model.StateValues{
		Inventory: append([]int64(nil), s.Inventory[:s.Nodes]...),
		Demand:    append([]int64(nil), s.Demand[:s.Nodes]...),
		LeadTimes: append([]int64(nil), s.LeadTime[:s.Nodes]...),
		Costs:     append([]int64(nil), s.Cost[:s.Nodes]...),
	}
}

func stateKeyFromValues(sv model.StateValues) (StateKey, error) {
	n := len(sv.Inventory)
	if n > MaxNodes {
		return StateKey{}, fmt.Errorf("node count %d exceeds %d", n, MaxNodes)
	}
	if len(sv.Demand) != n || len(sv.LeadTimes) != n || len(sv.Costs) != n {
		return StateKey{}, errors.New("field lengths differ")
	}
	key := StateKey{Nodes: n}
	copy(key.Inventory[:], sv.Inventory)
	copy(key.Demand[:], sv.Demand)
	copy(key.LeadTime[:], sv.LeadTimes)
	copy(key.Cost[:], sv.Costs)
	return key, nil
}
