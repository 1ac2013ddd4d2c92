package importer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chaintwin/graph"
)

func seededModel() *graph.Model {
	return graph.NewModel(graph.GraphData{
		Nodes: []graph.Node{
			{ID: "sup-0", Name: "宁德供应商", Type: graph.NodeTypeSupplier, Status: graph.StatusNormal, InventoryLevel: 800},
			{ID: "base-0", Name: "华东基地", Type: graph.NodeTypeBase, Status: graph.StatusNormal, InventoryLevel: 1200},
		},
		Links: []graph.Link{
			{Source: "sup-0", Target: "base-0", Value: 300, Type: graph.LinkTypeMaterial, Status: graph.StatusNormal},
		},
	})
}

func TestImportTopology_ReplacesGraph(t *testing.T) {
	model := seededModel()
	im := New(model)

	payload := `{
		"nodes": [
			{"id": "n-1", "name": "新供应商", "type": "SUPPLIER", "inventoryLevel": 500, "inventoryCapacity": 2000, "demandForecast": 0},
			{"id": "n-2", "name": "新基地", "type": "BASE", "inventoryLevel": 900, "inventoryCapacity": 5000, "demandForecast": 1200}
		],
		"links": [
			{"source": "n-1", "target": "n-2", "value": 250, "type": "material"}
		]
	}`

	require.NoError(t, im.Import(SlotTopology, []byte(payload)))

	g := model.Snapshot()
	require.Len(t, g.Nodes, 2)
	require.Len(t, g.Links, 1)
	assert.Nil(t, g.NodeByID("sup-0"), "old nodes must be gone after a topology import")
	assert.Equal(t, graph.StatusNormal, g.NodeByID("n-1").Status)
	assert.Equal(t, graph.LinkTypeMaterial, g.Links[0].Type)
	assert.Equal(t, "导入成功", im.Status()[SlotTopology])
}

func TestImportTopology_MalformedJSONLeavesModelUntouched(t *testing.T) {
	model := seededModel()
	before := model.Snapshot()
	im := New(model)

	err := im.Import(SlotTopology, []byte(`{"nodes": [`))
	require.Error(t, err)

	after := model.Snapshot()
	assert.Equal(t, before, after)
	assert.True(t, strings.HasPrefix(im.Status()[SlotTopology], "导入失败: "))
}

func TestImportTopology_RejectsUnknownNodeType(t *testing.T) {
	model := seededModel()
	im := New(model)

	payload := `{"nodes": [{"id": "n-1", "name": "x", "type": "WAREHOUSE", "inventoryLevel": 0, "inventoryCapacity": 0, "demandForecast": 0}]}`
	require.Error(t, im.Import(SlotTopology, []byte(payload)))

	g := model.Snapshot()
	assert.NotNil(t, g.NodeByID("sup-0"), "validation failure must not replace the graph")
}

func TestImportInventory_PatchesExistingNodes(t *testing.T) {
	model := seededModel()
	im := New(model)

	payload := `[{"nodeId": "base-0", "inventoryLevel": 4200, "inventoryCapacity": 9000}]`
	require.NoError(t, im.Import(SlotInventory, []byte(payload)))

	g := model.Snapshot()
	base := g.NodeByID("base-0")
	assert.Equal(t, 4200.0, base.InventoryLevel)
	assert.Equal(t, 9000.0, base.InventoryCapacity)
	assert.Equal(t, 800.0, g.NodeByID("sup-0").InventoryLevel, "untouched nodes keep their figures")
}

func TestImportInventory_UnknownNodeFailsWhole(t *testing.T) {
	model := seededModel()
	im := New(model)

	payload := `[
		{"nodeId": "base-0", "inventoryLevel": 4200, "inventoryCapacity": 0},
		{"nodeId": "ghost", "inventoryLevel": 100, "inventoryCapacity": 0}
	]`
	require.Error(t, im.Import(SlotInventory, []byte(payload)))

	g := model.Snapshot()
	assert.Equal(t, 1200.0, g.NodeByID("base-0").InventoryLevel, "a partial batch must not apply")
}

func TestImportOrders_ReplacesOrderBook(t *testing.T) {
	model := seededModel()
	im := New(model)

	payload := `[{"nodeId": "base-0", "orders": [
		{"id": "ord-9", "product": "电芯", "quantity": 120, "amount": 360000.50, "dueWeek": "2024-W45", "status": "进行中"}
	]}]`
	require.NoError(t, im.Import(SlotOrders, []byte(payload)))

	snap := model.Snapshot()
	base := snap.NodeByID("base-0")
	require.Len(t, base.ActiveOrders, 1)
	assert.Equal(t, "ord-9", base.ActiveOrders[0].ID)
	assert.Equal(t, "360000.5", base.ActiveOrders[0].Amount.String())
}

func TestImportOrders_RejectsZeroQuantity(t *testing.T) {
	model := seededModel()
	im := New(model)

	payload := `[{"nodeId": "base-0", "orders": [{"id": "ord-9", "product": "电芯", "quantity": 0, "amount": 1}]}]`
	require.Error(t, im.Import(SlotOrders, []byte(payload)))
	snap := model.Snapshot()
	assert.Empty(t, snap.NodeByID("base-0").ActiveOrders)
}

func TestImportProduction_ReplacesLines(t *testing.T) {
	model := seededModel()
	im := New(model)

	payload := `[{"nodeId": "base-0", "lines": [
		{"id": "line-1", "name": "电芯一线", "product": "电芯", "utilization": 85}
	]}]`
	require.NoError(t, im.Import(SlotProduction, []byte(payload)))

	snap := model.Snapshot()
	base := snap.NodeByID("base-0")
	require.Len(t, base.ProductionLines, 1)
	assert.Equal(t, 85.0, base.ProductionLines[0].Utilization)
	assert.Equal(t, graph.StatusNormal, base.ProductionLines[0].Status)
}

func TestImport_UnknownSlot(t *testing.T) {
	im := New(seededModel())
	require.Error(t, im.Import(Slot("telemetry"), []byte(`{}`)))
}

func TestImportFile_MissingFile(t *testing.T) {
	im := New(seededModel())
	require.Error(t, im.ImportFile(SlotTopology, "does-not-exist.json"))
	assert.True(t, strings.HasPrefix(im.Status()[SlotTopology], "读取失败: "))
}
