package scenario

import (
	"fmt"

	"github.com/shopspring/decimal"

	"chaintwin/graph"
)

// UpstreamRow describes one inbound flow into the anomalous node set,
// joined with the source node for display.
type UpstreamRow struct {
	LinkKey        string          `json:"linkKey"`
	NodeID         string          `json:"nodeId"`
	Name           string          `json:"name"`
	Type           graph.NodeType  `json:"type"`
	Status         graph.Status    `json:"status"`
	InventoryLevel float64         `json:"inventoryLevel"`
	Volume         float64         `json:"volume"`
	ETA            string          `json:"eta"`
}

// DownstreamRow describes one outbound flow from the anomalous node set,
// joined with the target node.
type DownstreamRow struct {
	LinkKey       string         `json:"linkKey"`
	NodeID        string         `json:"nodeId"`
	Name          string         `json:"name"`
	Type          graph.NodeType `json:"type"`
	Status        graph.Status   `json:"status"`
	ImpactLevel   string         `json:"impactLevel"` // "Low" or "High"
	PendingOrders int            `json:"pendingOrders"`
	Volume        float64        `json:"volume"`
}

// Impact is the aggregated upstream/downstream view for a node set.
type Impact struct {
	Upstream   []UpstreamRow   `json:"upstream"`
	Downstream []DownstreamRow `json:"downstream"`
}

// upstreamETA is a display placeholder; there is no live logistics feed.
const upstreamETA = "2-3 天"

// Aggregate joins every link touching the selected node set with the node
// on the far side. Links whose far side does not resolve are skipped.
func Aggregate(nodes []graph.Node, g graph.GraphData) Impact {
	selected := make(map[string]bool, len(nodes))
	for i := range nodes {
		selected[nodes[i].ID] = true
	}

	var out Impact
	for i := range g.Links {
		l := &g.Links[i]

		if selected[l.Target] {
			if src := g.NodeByID(l.Source); src != nil {
				out.Upstream = append(out.Upstream, UpstreamRow{
					LinkKey:        l.Key(i),
					NodeID:         src.ID,
					Name:           src.Name,
					Type:           src.Type,
					Status:         src.Status,
					InventoryLevel: src.InventoryLevel,
					Volume:         l.Value,
					ETA:            upstreamETA,
				})
			}
		}

		if selected[l.Source] {
			if dst := g.NodeByID(l.Target); dst != nil {
				impact := "High"
				if dst.Status == graph.StatusNormal {
					impact = "Low"
				}
				out.Downstream = append(out.Downstream, DownstreamRow{
					LinkKey:       l.Key(i),
					NodeID:        dst.ID,
					Name:          dst.Name,
					Type:          dst.Type,
					Status:        dst.Status,
					ImpactLevel:   impact,
					PendingOrders: len(dst.ActiveOrders),
					Volume:        l.Value,
				})
			}
		}
	}
	return out
}

// Plan is one canned remediation option. Metrics are static per option;
// only the description reflects the anomalous node count. This is a
// presentation stub, not an optimizer.
type Plan struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Cost         decimal.Decimal `json:"cost"`
	TimeDays     int             `json:"timeDays"`
	Satisfaction int             `json:"satisfaction"` // percent
	Risk         string          `json:"risk"`
}

// GeneratePlans returns the fixed conservative/balanced/aggressive trio.
func GeneratePlans(nodes []graph.Node) []Plan {
	scope := fmt.Sprintf("覆盖 %d 个异常节点", len(nodes))
	return []Plan{
		{
			ID:           "plan-conservative",
			Name:         "保守方案",
			Description:  "维持现有排产，延后非关键订单，" + scope,
			Cost:         decimal.NewFromInt(120000),
			TimeDays:     14,
			Satisfaction: 72,
			Risk:         "low",
		},
		{
			ID:           "plan-balanced",
			Name:         "均衡方案",
			Description:  "部分订单转移至备用基地，加急物流补货，" + scope,
			Cost:         decimal.NewFromInt(260000),
			TimeDays:     7,
			Satisfaction: 86,
			Risk:         "medium",
		},
		{
			ID:           "plan-aggressive",
			Name:         "激进方案",
			Description:  "全量切换备用供应商并空运关键物料，" + scope,
			Cost:         decimal.NewFromInt(480000),
			TimeDays:     3,
			Satisfaction: 95,
			Risk:         "high",
		},
	}
}
