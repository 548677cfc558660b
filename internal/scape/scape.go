package scape

import (
	"errors"
	"fmt"
	"math"

	"supplyq/internal/model"
)

var (
	ErrNonFinite      = errors.New("scape: non-finite node value")
	ErrUnknownNode    = errors.New("scape: unknown node")
	ErrDuplicateNode  = errors.New("scape: duplicate node id")
	ErrEmptyNetwork   = errors.New("scape: network has no nodes")
	ErrUnknownPreset  = errors.New("scape: unknown preset")
	ErrDemandMismatch = errors.New("scape: demand length differs from node count")
)

// HoldingCostRate is the per-unit cost of keeping positive inventory for a step.
const HoldingCostRate = 0.1

// Outcome carries the four reward inputs measured after an action is applied.
type Outcome struct {
	Stockouts     float64 `json:"stockouts"`
	HoldingCost   float64 `json:"holding_cost"`
	DeliveryDelay float64 `json:"delivery_delay"`
	TotalCost     float64 `json:"total_cost"`
}

// Network is the mutable node data the controller acts on. It is not safe for
// concurrent use.
type Network struct {
	nodes []model.Node
	index map[string]int
}

func NewNetwork(nodes []model.Node) (*Network, error) {
	if len(nodes) == 0 {
		return nil, ErrEmptyNetwork
	}
	n := &Network{
		nodes: make([]model.Node, len(nodes)),
		index: make(map[string]int, len(nodes)),
	}
	for i, node := range nodes {
		if node.ID == "" {
			return nil, fmt.Errorf("node id is required at index %d", i)
		}
		if _, exists := n.index[node.ID]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateNode, node.ID)
		}
		if err := checkFinite(node); err != nil {
			return nil, err
		}
		n.nodes[i] = node
		n.index[node.ID] = i
	}
	return n, nil
}

func (n *Network) Len() int {
	return len(n.nodes)
}

func (n *Network) IDs() []string {
	ids := make([]string, len(n.nodes))
	for i, node := range n.nodes {
		ids[i] = node.ID
	}
	return ids
}

func (n *Network) Nodes() []model.Node {
	return append([]model.Node(nil), n.nodes...)
}

func (n *Network) Node(id string) (model.Node, bool) {
	i, ok := n.index[id]
	if !ok {
		return model.Node{}, false
	}
	return n.nodes[i], true
}

func (n *Network) Inventories() []float64 {
	inventory := make([]float64, len(n.nodes))
	for i, node := range n.nodes {
		inventory[i] = node.CurrentInventory
	}
	return inventory
}

func (n *Network) Clone() *Network {
	clone := &Network{
		nodes: append([]model.Node(nil), n.nodes...),
		index: make(map[string]int, len(n.index)),
	}
	for id, i := range n.index {
		clone.index[id] = i
	}
	return clone
}

// Apply adds the ordered quantity to the node's inventory. Actions for unknown
// nodes change nothing and report false.
func (n *Network) Apply(action model.Action) bool {
	i, ok := n.index[action.NodeID]
	if !ok {
		return false
	}
	n.nodes[i].CurrentInventory += action.Quantity
	return true
}

func (n *Network) Outcome() Outcome {
	var out Outcome
	for _, node := range n.nodes {
		if node.CurrentInventory < 0 {
			out.Stockouts++
		}
		out.HoldingCost += math.Max(0, node.CurrentInventory) * HoldingCostRate
		out.DeliveryDelay += math.Max(0, node.LeadTime-leadTimeAllowance(node.Type))
		out.TotalCost += node.Cost
	}
	return out
}

// State snapshots the network with the given per-node demand.
func (n *Network) State(demand []float64) (model.State, error) {
	if len(demand) != len(n.nodes) {
		return model.State{}, fmt.Errorf("%w: %d != %d", ErrDemandMismatch, len(demand), len(n.nodes))
	}
	state := model.State{
		Inventory: make([]float64, len(n.nodes)),
		Demand:    append([]float64(nil), demand...),
		LeadTimes: make([]float64, len(n.nodes)),
		Costs:     make([]float64, len(n.nodes)),
	}
	for i, node := range n.nodes {
		state.Inventory[i] = node.CurrentInventory
		state.LeadTimes[i] = node.LeadTime
		state.Costs[i] = node.Cost
	}
	return state, nil
}

// NodePatch is a partial node update; nil fields are left unchanged.
type NodePatch struct {
	Name             *string  `json:"name,omitempty"`
	Capacity         *float64 `json:"capacity,omitempty"`
	CurrentInventory *float64 `json:"current_inventory,omitempty"`
	LeadTime         *float64 `json:"lead_time,omitempty"`
	Cost             *float64 `json:"cost,omitempty"`
	Reliability      *float64 `json:"reliability,omitempty"`
}

func (n *Network) UpdateNode(id string, patch NodePatch) error {
	i, ok := n.index[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, id)
	}
	node := n.nodes[i]
	if patch.Name != nil {
		node.Name = *patch.Name
	}
	if patch.Capacity != nil {
		node.Capacity = *patch.Capacity
	}
	if patch.CurrentInventory != nil {
		node.CurrentInventory = *patch.CurrentInventory
	}
	if patch.LeadTime != nil {
		node.LeadTime = *patch.LeadTime
	}
	if patch.Cost != nil {
		node.Cost = *patch.Cost
	}
	if patch.Reliability != nil {
		node.Reliability = *patch.Reliability
	}
	if err := checkFinite(node); err != nil {
		return err
	}
	n.nodes[i] = node
	return nil
}

// leadTimeAllowance is the lead time a node may have before it counts as
// delayed.
func leadTimeAllowance(t model.NodeType) float64 {
	if t == model.NodeSupplier {
		return 3
	}
	return 2
}

func checkFinite(node model.Node) error {
	for _, v := range []float64{node.Capacity, node.CurrentInventory, node.LeadTime, node.Cost, node.Reliability} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: node %s", ErrNonFinite, node.ID)
		}
	}
	return nil
}
