package scape

import (
	"fmt"
	"strings"

	"supplyq/internal/model"
)

const DefaultPreset = "default"

// Preset returns a fresh copy of a named node set.
func Preset(name string) ([]model.Node, error) {
	switch strings.TrimSpace(strings.ToLower(name)) {
	case "", DefaultPreset:
		return DefaultNodes(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownPreset, name)
	}
}

// DefaultNodes is a seven-site chain: two suppliers feeding two plants, one
// distribution centre and two retailers.
func DefaultNodes() []model.Node {
	return []model.Node{
		{ID: "sup_1", Name: "Raw Materials Supplier A", Type: model.NodeSupplier, Location: "Shanghai, China", Capacity: 1000, CurrentInventory: 750, LeadTime: 5, Cost: 100, Reliability: 85},
		{ID: "sup_2", Name: "Raw Materials Supplier B", Type: model.NodeSupplier, Location: "Jakarta, Indonesia", Capacity: 800, CurrentInventory: 400, LeadTime: 7, Cost: 80, Reliability: 75},
		{ID: "man_1", Name: "Manufacturing Plant 1", Type: model.NodeManufacturer, Location: "Shenzhen, China", Capacity: 1200, CurrentInventory: 300, LeadTime: 3, Cost: 200, Reliability: 90},
		{ID: "man_2", Name: "Manufacturing Plant 2", Type: model.NodeManufacturer, Location: "Ho Chi Minh City, Vietnam", Capacity: 800, CurrentInventory: 250, LeadTime: 4, Cost: 180, Reliability: 82},
		{ID: "dist_1", Name: "Distribution Center A", Type: model.NodeDistributor, Location: "Singapore", Capacity: 1500, CurrentInventory: 900, LeadTime: 2, Cost: 120, Reliability: 95},
		{ID: "ret_1", Name: "Retail Center 1", Type: model.NodeRetailer, Location: "Sydney, Australia", Capacity: 500, CurrentInventory: 350, LeadTime: 1, Cost: 150, Reliability: 92},
		{ID: "ret_2", Name: "Retail Center 2", Type: model.NodeRetailer, Location: "Melbourne, Australia", Capacity: 450, CurrentInventory: 300, LeadTime: 1, Cost: 140, Reliability: 94},
	}
}
