package scenario

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chaintwin/graph"
)

// chainBaseline builds the canonical sup-0 → base-0 → cust-0 chain.
func chainBaseline() graph.GraphData {
	return graph.GraphData{
		Nodes: []graph.Node{
			{ID: "sup-0", Name: "供应商", Type: graph.NodeTypeSupplier, Status: graph.StatusNormal, InventoryLevel: 5000},
			{ID: "base-0", Name: "基地", Type: graph.NodeTypeBase, Status: graph.StatusNormal, InventoryLevel: 1000},
			{ID: "cust-0", Name: "客户", Type: graph.NodeTypeCustomer, Status: graph.StatusNormal, DemandForecast: 3000},
		},
		Links: []graph.Link{
			{Source: "sup-0", Target: "base-0", Value: 800, Type: graph.LinkTypeMaterial, Status: graph.StatusNormal},
			{Source: "base-0", Target: "cust-0", Value: 600, Type: graph.LinkTypeCell, Status: graph.StatusNormal},
		},
	}
}

func supplyDelayScenario(targetID string) Config {
	return Config{
		ID:           "s1",
		TargetNodeID: targetID,
		Description:  "供应商 物流延期 7 天",
		Params:       SupplyDelayParams{DelayDays: 7},
	}
}

func TestRun_SupplyDelayCascade(t *testing.T) {
	baseline := chainBaseline()
	result := NewEngine().Run([]Config{supplyDelayScenario("sup-0")}, baseline)

	sup := result.NodeByID("sup-0")
	require.NotNil(t, sup)
	assert.Equal(t, graph.StatusCritical, sup.Status)
	assert.Equal(t, 1, sup.ActiveAlerts)

	base := result.NodeByID("base-0")
	require.NotNil(t, base)
	assert.Equal(t, graph.StatusWarning, base.Status)
	assert.Equal(t, 1, base.ActiveAlerts)
	assert.InDelta(t, 700, base.InventoryLevel, 1e-9, "inventory drops by the impact fraction")

	cust := result.NodeByID("cust-0")
	require.NotNil(t, cust)
	assert.Equal(t, graph.StatusWarning, cust.Status)
	assert.Equal(t, 1, cust.ActiveAlerts)

	assert.Equal(t, graph.StatusCritical, result.Links[0].Status, "sup-0→base-0 link")
	assert.Equal(t, graph.StatusWarning, result.Links[1].Status, "base-0→cust-0 link")
}

func TestRun_DoesNotMutateBaseline(t *testing.T) {
	baseline := chainBaseline()
	want := chainBaseline()

	NewEngine().Run([]Config{supplyDelayScenario("sup-0")}, baseline)

	assert.Equal(t, want, baseline, "baseline must be untouched after a run")
}

func TestRun_Deterministic(t *testing.T) {
	baseline := chainBaseline()
	batch := []Config{
		supplyDelayScenario("sup-0"),
		{
			ID:           "s2",
			TargetNodeID: "cust-0",
			Params:       DemandChangeParams{DemandChange: -20},
		},
	}

	first := NewEngine().Run(batch, baseline)
	second := NewEngine().Run(batch, baseline)

	assert.Equal(t, first, second, "two runs over the same inputs must match field for field")
}

func TestRun_CriticalIsSticky(t *testing.T) {
	// cust-0 is hit directly (critical) by one scenario and would only get
	// a warning from the cascade of the next one.
	baseline := chainBaseline()
	batch := []Config{
		supplyDelayScenario("cust-0"), // marks cust-0 critical (no outgoing links)
		supplyDelayScenario("sup-0"),  // second-order would assign warning
	}

	result := NewEngine().Run(batch, baseline)

	cust := result.NodeByID("cust-0")
	require.NotNil(t, cust)
	assert.Equal(t, graph.StatusCritical, cust.Status, "warning must not erase critical")
	assert.Equal(t, 2, cust.ActiveAlerts, "both effects still count")
}

func TestRun_DanglingReferencesAreSkipped(t *testing.T) {
	baseline := chainBaseline()
	baseline.Links = append(baseline.Links,
		graph.Link{Source: "sup-0", Target: "ghost", Type: graph.LinkTypeMaterial, Status: graph.StatusNormal},
		graph.Link{Source: "ghost-2", Target: "base-0", Type: graph.LinkTypeMaterial, Status: graph.StatusNormal},
	)

	var result graph.GraphData
	require.NotPanics(t, func() {
		result = NewEngine().Run([]Config{supplyDelayScenario("sup-0")}, baseline)
	})

	// The dangling link still gets its first-order status flip; only the
	// node-side effects are skipped.
	assert.Equal(t, graph.StatusCritical, result.Links[2].Status)
	assert.Nil(t, result.NodeByID("ghost"))
}

func TestRun_UnknownTargetIsSkipped(t *testing.T) {
	baseline := chainBaseline()
	result := NewEngine().Run([]Config{supplyDelayScenario("nope")}, baseline)
	assert.Equal(t, baseline, result, "unknown target must leave the graph unchanged")
}

func TestRun_BatchOrderAccumulatesAlerts(t *testing.T) {
	baseline := chainBaseline()
	batch := []Config{
		supplyDelayScenario("sup-0"),
		supplyDelayScenario("sup-0"),
	}

	result := NewEngine().Run(batch, baseline)

	sup := result.NodeByID("sup-0")
	assert.Equal(t, 2, sup.ActiveAlerts)

	base := result.NodeByID("base-0")
	assert.Equal(t, 2, base.ActiveAlerts)
	// 30% off twice: 1000 → 700 → 490
	assert.InDelta(t, 490, base.InventoryLevel, 1e-9)
}

func TestRun_DemandChange(t *testing.T) {
	baseline := chainBaseline()
	result := NewEngine().Run([]Config{{
		ID:           "d1",
		TargetNodeID: "cust-0",
		Params:       DemandChangeParams{DemandChange: -20},
	}}, baseline)

	cust := result.NodeByID("cust-0")
	assert.Equal(t, graph.StatusWarning, cust.Status)
	assert.Equal(t, 1, cust.ActiveAlerts)
	assert.InDelta(t, 2400, cust.DemandForecast, 1e-9)

	// Demand swings stay local
	assert.Equal(t, graph.StatusNormal, result.NodeByID("base-0").Status)
}

func TestRun_ProductionIssue(t *testing.T) {
	baseline := chainBaseline()
	base := baseline.NodeByID("base-0")
	base.CapacityUtilization = 80
	base.ProductionLines = []graph.ProductionLine{
		{ID: "l1", Name: "1号线", Utilization: 90, Status: graph.StatusNormal},
	}

	result := NewEngine().Run([]Config{{
		ID:           "p1",
		TargetNodeID: "base-0",
		Params:       ProductionIssueParams{DowntimeDays: 3, EfficiencyLoss: 50},
	}}, baseline)

	got := result.NodeByID("base-0")
	assert.Equal(t, graph.StatusCritical, got.Status)
	assert.InDelta(t, 40, got.CapacityUtilization, 1e-9)
	assert.Equal(t, graph.StatusCritical, got.ProductionLines[0].Status)
	assert.InDelta(t, 45, got.ProductionLines[0].Utilization, 1e-9)

	cust := result.NodeByID("cust-0")
	assert.Equal(t, graph.StatusWarning, cust.Status)
	assert.Equal(t, 1, cust.ActiveAlerts)
	assert.Equal(t, graph.StatusWarning, result.Links[1].Status)
}

func TestRun_InventoryIssue(t *testing.T) {
	baseline := chainBaseline()

	result := NewEngine().Run([]Config{{
		ID:           "i1",
		TargetNodeID: "base-0",
		Params:       InventoryIssueParams{CurrentLevel: 15000, Threshold: 12000},
	}}, baseline)

	got := result.NodeByID("base-0")
	assert.Equal(t, graph.StatusWarning, got.Status)
	assert.Equal(t, 1, got.ActiveAlerts)
	assert.Equal(t, 15000.0, got.InventoryLevel)

	// Below the threshold nothing is flagged
	calm := NewEngine().Run([]Config{{
		ID:           "i2",
		TargetNodeID: "base-0",
		Params:       InventoryIssueParams{CurrentLevel: 9000, Threshold: 12000},
	}}, baseline)
	assert.Equal(t, graph.StatusNormal, calm.NodeByID("base-0").Status)
	assert.Equal(t, 0, calm.NodeByID("base-0").ActiveAlerts)
}

func TestRun_ParallelRoutesEachCount(t *testing.T) {
	baseline := chainBaseline()
	// Second parallel sup-0 → base-0 route
	baseline.Links = append(baseline.Links, graph.Link{
		Source: "sup-0", Target: "base-0", Value: 300, Type: graph.LinkTypePack, Status: graph.StatusNormal,
	})

	result := NewEngine().Run([]Config{supplyDelayScenario("sup-0")}, baseline)

	base := result.NodeByID("base-0")
	assert.Equal(t, 2, base.ActiveAlerts, "each parallel route increments separately")
	// 30% off twice
	assert.InDelta(t, 490, base.InventoryLevel, 1e-9)
}
