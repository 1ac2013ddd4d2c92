package scenario

import (
	"testing"

	"chaintwin/graph"
)

func analysisGraph() graph.GraphData {
	return graph.GraphData{
		Nodes: []graph.Node{
			{ID: "sup-0", Name: "供应商A", Type: graph.NodeTypeSupplier, Status: graph.StatusNormal, InventoryLevel: 4000},
			{ID: "base-0", Name: "基地", Type: graph.NodeTypeBase, Status: graph.StatusCritical, InventoryLevel: 700},
			{ID: "cust-0", Name: "客户A", Type: graph.NodeTypeCustomer, Status: graph.StatusNormal,
				ActiveOrders: []graph.Order{{ID: "o1"}, {ID: "o2"}}},
			{ID: "cust-1", Name: "客户B", Type: graph.NodeTypeCustomer, Status: graph.StatusWarning},
		},
		Links: []graph.Link{
			{Source: "sup-0", Target: "base-0", Value: 800, Type: graph.LinkTypeMaterial},
			{Source: "base-0", Target: "cust-0", Value: 600, Type: graph.LinkTypeCell},
			{Source: "base-0", Target: "cust-1", Value: 300, Type: graph.LinkTypePack},
			{Source: "base-0", Target: "ghost", Value: 100, Type: graph.LinkTypePack},
		},
	}
}

func TestAggregate(t *testing.T) {
	g := analysisGraph()
	anomalous := []graph.Node{*g.NodeByID("base-0")}

	impact := Aggregate(anomalous, g)

	if len(impact.Upstream) != 1 {
		t.Fatalf("upstream rows = %d, want 1", len(impact.Upstream))
	}
	up := impact.Upstream[0]
	if up.NodeID != "sup-0" || up.InventoryLevel != 4000 || up.ETA != "2-3 天" {
		t.Errorf("unexpected upstream row: %+v", up)
	}
	if up.LinkKey != "sup-0|base-0|material|0" {
		t.Errorf("linkKey = %q", up.LinkKey)
	}

	// ghost target is skipped; two resolvable downstream rows remain
	if len(impact.Downstream) != 2 {
		t.Fatalf("downstream rows = %d, want 2", len(impact.Downstream))
	}
	if impact.Downstream[0].NodeID != "cust-0" {
		t.Fatalf("row order must follow link order, got %+v", impact.Downstream)
	}
	if impact.Downstream[0].ImpactLevel != "Low" {
		t.Errorf("normal target must be Low impact, got %s", impact.Downstream[0].ImpactLevel)
	}
	if impact.Downstream[0].PendingOrders != 2 {
		t.Errorf("pendingOrders = %d, want 2", impact.Downstream[0].PendingOrders)
	}
	if impact.Downstream[1].ImpactLevel != "High" {
		t.Errorf("warning target must be High impact, got %s", impact.Downstream[1].ImpactLevel)
	}
	if impact.Downstream[1].PendingOrders != 0 {
		t.Errorf("missing orders must count 0, got %d", impact.Downstream[1].PendingOrders)
	}
}

func TestGeneratePlans(t *testing.T) {
	g := analysisGraph()
	nodes := []graph.Node{*g.NodeByID("base-0"), *g.NodeByID("cust-1")}

	plans := GeneratePlans(nodes)
	if len(plans) != 3 {
		t.Fatalf("plans = %d, want exactly 3", len(plans))
	}

	// Node count shows up in the description only; metrics are static.
	again := GeneratePlans(nodes[:1])
	for i := range plans {
		if !plans[i].Cost.Equal(again[i].Cost) || plans[i].TimeDays != again[i].TimeDays ||
			plans[i].Satisfaction != again[i].Satisfaction || plans[i].Risk != again[i].Risk {
			t.Errorf("plan %d metrics must not depend on node count", i)
		}
		if plans[i].Description == again[i].Description {
			t.Errorf("plan %d description should reflect node count", i)
		}
	}

	risks := []string{plans[0].Risk, plans[1].Risk, plans[2].Risk}
	want := []string{"low", "medium", "high"}
	for i := range risks {
		if risks[i] != want[i] {
			t.Errorf("risk[%d] = %s, want %s", i, risks[i], want[i])
		}
	}
}
