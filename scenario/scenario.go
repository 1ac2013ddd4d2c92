// Package scenario holds the disruption-scenario model: user-declared
// events collected into a pending batch, and the engine that cascades
// their effects through a supply-chain graph snapshot.
package scenario

import (
	"fmt"
	"strconv"

	"chaintwin/graph"
)

// Type is the category of a declared disruption.
type Type string

const (
	SupplyDelay     Type = "SUPPLY_DELAY"
	DemandChange    Type = "DEMAND_CHANGE"
	InventoryIssue  Type = "INVENTORY_ISSUE"
	ProductionIssue Type = "PRODUCTION_ISSUE"
)

// Params is the per-type parameter set of a scenario. Each scenario type
// has its own variant, so the engine's switch stays exhaustive.
type Params interface {
	Type() Type
	// Describe renders the display string shown in the pending list.
	Describe(nodeName string) string
}

// SupplyDelayParams describes a logistics delay at a supplier.
type SupplyDelayParams struct {
	DelayDays    int     `json:"delayDays"`
	SupplyVolume float64 `json:"supplyVolume"`
}

func (SupplyDelayParams) Type() Type { return SupplyDelay }

func (p SupplyDelayParams) Describe(nodeName string) string {
	return fmt.Sprintf("%s 物流延期 %d 天", nodeName, p.DelayDays)
}

// DemandChangeParams describes a demand swing at a customer.
type DemandChangeParams struct {
	DemandChange int    `json:"demandChange"` // percent, negative = drop
	DeliveryDate string `json:"deliveryDate"`
}

func (DemandChangeParams) Type() Type { return DemandChange }

func (p DemandChangeParams) Describe(nodeName string) string {
	return fmt.Sprintf("%s 需求调整 %d%%", nodeName, p.DemandChange)
}

// ProductionIssueParams describes a production-line outage at a base.
type ProductionIssueParams struct {
	DowntimeDays   int `json:"downtimeDays"`
	EfficiencyLoss int `json:"efficiencyLoss"` // percent
}

func (ProductionIssueParams) Type() Type { return ProductionIssue }

func (p ProductionIssueParams) Describe(nodeName string) string {
	return fmt.Sprintf("%s 产线故障停机 %d 天", nodeName, p.DowntimeDays)
}

// InventoryIssueParams describes an inventory threshold breach.
type InventoryIssueParams struct {
	CurrentLevel float64 `json:"currentLevel"`
	Threshold    float64 `json:"threshold"`
}

func (InventoryIssueParams) Type() Type { return InventoryIssue }

func (p InventoryIssueParams) Describe(nodeName string) string {
	return fmt.Sprintf("%s 库存超限 (当前: %s)", nodeName, strconv.FormatFloat(p.CurrentLevel, 'f', -1, 64))
}

// Config is one declared disruption, pending until run or removed.
type Config struct {
	ID             string `json:"id"`
	TargetNodeID   string `json:"targetNodeId"`
	TargetNodeName string `json:"targetNodeName"`
	Description    string `json:"description"`
	Params         Params `json:"parameters"`
}

// DefaultParams returns the pre-filled parameter set for a scenario type
// when a target node is first selected.
func DefaultParams(t Type, node *graph.Node) Params {
	switch t {
	case SupplyDelay:
		vol := 5000.0
		if node != nil && node.InventoryLevel > 0 {
			vol = node.InventoryLevel * 0.5
		}
		return SupplyDelayParams{DelayDays: 7, SupplyVolume: vol}
	case DemandChange:
		return DemandChangeParams{DemandChange: -20, DeliveryDate: "2024-W44"}
	case ProductionIssue:
		return ProductionIssueParams{DowntimeDays: 3, EfficiencyLoss: 50}
	case InventoryIssue:
		level := 10000.0
		if node != nil && node.InventoryLevel > 0 {
			level = node.InventoryLevel * 1.5
		}
		return InventoryIssueParams{CurrentLevel: level, Threshold: 12000}
	default:
		return nil
	}
}
