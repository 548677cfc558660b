package model

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

type NodeType string

const (
	NodeSupplier     NodeType = "supplier"
	NodeManufacturer NodeType = "manufacturer"
	NodeDistributor  NodeType = "distributor"
	NodeRetailer     NodeType = "retailer"
)

// Node is one supply-chain site as supplied by the surrounding application.
type Node struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Type             NodeType `json:"type"`
	Location         string   `json:"location,omitempty"`
	Capacity         float64  `json:"capacity"`
	CurrentInventory float64  `json:"current_inventory"`
	LeadTime         float64  `json:"lead_time"`
	Cost             float64  `json:"cost"`
	Reliability      float64  `json:"reliability"`
}

// State is the agent's view of the network. All four slices are indexed by node
// and share one length.
type State struct {
	Inventory []float64 `json:"inventory"`
	Demand    []float64 `json:"demand"`
	LeadTimes []float64 `json:"lead_times"`
	Costs     []float64 `json:"costs"`
}

func (s State) Len() int {
	return len(s.Inventory)
}

func (s State) Clone() State {
	return State{
		Inventory: append([]float64(nil), s.Inventory...),
		Demand:    append([]float64(nil), s.Demand...),
		LeadTimes: append([]float64(nil), s.LeadTimes...),
		Costs:     append([]float64(nil), s.Costs...),
	}
}

// Action orders Quantity units for the node NodeID.
type Action struct {
	NodeID   string  `json:"node_id"`
	Quantity float64 `json:"quantity"`
}

// ValueTableRecord is the persisted form of a Q-table.
type ValueTableRecord struct {
	VersionedRecord
	Buckets   BucketWidths  `json:"buckets"`
	NodeCount int           `json:"node_count"`
	States    []StateValues `json:"states"`
}

type BucketWidths struct {
	Inventory float64 `json:"inventory"`
	Demand    float64 `json:"demand"`
	LeadTime  float64 `json:"lead_time"`
	Cost      float64 `json:"cost"`
}

// StateValues holds the bucket indices of one discretized state together with
// every action value recorded for it. Index i of a field covers
// [i*width, (i+1)*width) for that field's width in BucketWidths.
type StateValues struct {
	Inventory []int64       `json:"inventory"`
	Demand    []int64       `json:"demand"`
	LeadTimes []int64       `json:"lead_times"`
	Costs     []int64       `json:"costs"`
	Actions   []ActionValue `json:"actions"`
}

type ActionValue struct {
	NodeID   string  `json:"node_id"`
	Quantity float64 `json:"quantity"`
	Value    float64 `json:"value"`
}
