package scenario

import (
	"chaintwin/graph"
	"chaintwin/logger"
)

// Engine cascades a batch of scenarios through a graph snapshot.
//
// Run is a pure function over its inputs: the baseline is never mutated,
// the same batch against the same baseline always produces the same
// output, and unresolvable node or link references are skipped silently.
type Engine struct {
	// InventoryImpact is the fraction of inventory a first-order hit
	// removes from a downstream base.
	InventoryImpact float64
}

func NewEngine() *Engine {
	return &Engine{InventoryImpact: 0.3}
}

// Run applies every scenario in list order against a deep copy of the
// baseline and returns the resulting snapshot. Order matters for
// cumulative counters: each distinct effect increments ActiveAlerts.
func (e *Engine) Run(scenarios []Config, baseline graph.GraphData) graph.GraphData {
	working := baseline.Clone()

	for i := range scenarios {
		cfg := &scenarios[i]
		target := working.NodeByID(cfg.TargetNodeID)
		if target == nil {
			logger.Warn(logger.StatusCasc, "Scenario target %s not in graph, skipping", cfg.TargetNodeID)
			continue
		}

		switch p := cfg.Params.(type) {
		case SupplyDelayParams:
			e.applySupplyDelay(&working, target)
		case DemandChangeParams:
			e.applyDemandChange(target, p)
		case ProductionIssueParams:
			e.applyProductionIssue(&working, target, p)
		case InventoryIssueParams:
			e.applyInventoryIssue(target, p)
		default:
			logger.Warn(logger.StatusCasc, "Unknown scenario params for %s, skipping", cfg.TargetNodeID)
		}
	}

	return working
}

// applySupplyDelay runs the two-hop cascade: the supplier goes critical,
// every directly fed base degrades (status, alerts, inventory), and every
// customer fed by those bases picks up a warning.
func (e *Engine) applySupplyDelay(g *graph.GraphData, target *graph.Node) {
	target.Status = graph.StatusCritical
	target.ActiveAlerts++

	for _, firstHop := range g.OutgoingLinks(target.ID) {
		firstHop.Status = graph.StatusCritical

		base := g.NodeByID(firstHop.Target)
		if base == nil {
			continue
		}
		base.Status = base.Status.Escalate(graph.StatusWarning)
		base.ActiveAlerts++
		base.InventoryLevel = reduceInventory(base.InventoryLevel, e.InventoryImpact)

		for _, secondHop := range g.OutgoingLinks(base.ID) {
			// Link status at the second hop is a flat assignment, not an
			// escalation.
			secondHop.Status = graph.StatusWarning

			customer := g.NodeByID(secondHop.Target)
			if customer == nil {
				continue
			}
			customer.Status = customer.Status.Escalate(graph.StatusWarning)
			customer.ActiveAlerts++
		}
	}
}

// applyDemandChange adjusts the target's demand signal in place. Demand
// swings do not cascade through links; the forecast is an input to
// planning, not a flow.
func (e *Engine) applyDemandChange(target *graph.Node, p DemandChangeParams) {
	target.Status = target.Status.Escalate(graph.StatusWarning)
	target.ActiveAlerts++
	target.DemandForecast = target.DemandForecast * (1 + float64(p.DemandChange)/100)
	if target.DemandForecast < 0 {
		target.DemandForecast = 0
	}
}

// applyProductionIssue degrades the base and warns its direct customers.
// A production outage has no supplier-side effect, so the cascade stops
// after one hop.
func (e *Engine) applyProductionIssue(g *graph.GraphData, target *graph.Node, p ProductionIssueParams) {
	target.Status = graph.StatusCritical
	target.ActiveAlerts++

	lossFactor := 1 - float64(p.EfficiencyLoss)/100
	if lossFactor < 0 {
		lossFactor = 0
	}
	target.CapacityUtilization *= lossFactor
	for i := range target.ProductionLines {
		target.ProductionLines[i].Status = graph.StatusCritical
		target.ProductionLines[i].Utilization *= lossFactor
	}

	for _, link := range g.OutgoingLinks(target.ID) {
		link.Status = graph.StatusWarning

		customer := g.NodeByID(link.Target)
		if customer == nil {
			continue
		}
		customer.Status = customer.Status.Escalate(graph.StatusWarning)
		customer.ActiveAlerts++
	}
}

// applyInventoryIssue records the declared level on the target and flags
// it when the threshold is breached. Target-only: an inventory breach is
// local until a planner acts on it.
func (e *Engine) applyInventoryIssue(target *graph.Node, p InventoryIssueParams) {
	target.InventoryLevel = p.CurrentLevel
	if p.CurrentLevel > p.Threshold {
		target.Status = target.Status.Escalate(graph.StatusWarning)
		target.ActiveAlerts++
	}
}

func reduceInventory(level, impact float64) float64 {
	reduced := level * (1 - impact)
	if reduced < 0 {
		return 0
	}
	return reduced
}
