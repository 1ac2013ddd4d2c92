// Package importer handles the JSON upload boundary: four data slots
// parsed, validated, and applied to the in-memory model as whole-snapshot
// replacements. A failed import reports a per-slot status string and
// leaves current state untouched.
package importer

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"chaintwin/graph"
	"chaintwin/logger"
)

// Slot names the four import categories.
type Slot string

const (
	SlotTopology   Slot = "topology"
	SlotInventory  Slot = "inventory"
	SlotOrders     Slot = "orders"
	SlotProduction Slot = "production"
)

// Slots lists every slot in display order.
var Slots = []Slot{SlotTopology, SlotInventory, SlotOrders, SlotProduction}

// Importer validates uploads and applies them to the model. Last status
// per slot is kept for the panel display.
type Importer struct {
	model    *graph.Model
	validate *validator.Validate

	mu     sync.Mutex
	status map[Slot]string
}

func New(model *graph.Model) *Importer {
	return &Importer{
		model:    model,
		validate: validator.New(),
		status:   make(map[Slot]string),
	}
}

// topologyPayload is a full graph replacement.
type topologyPayload struct {
	Nodes []topologyNode `json:"nodes" validate:"required,min=1,dive"`
	Links []topologyLink `json:"links" validate:"dive"`
}

type topologyNode struct {
	ID                string  `json:"id" validate:"required"`
	Name              string  `json:"name" validate:"required"`
	Type              string  `json:"type" validate:"required,oneof=SUPPLIER BASE CUSTOMER"`
	InventoryLevel    float64 `json:"inventoryLevel" validate:"gte=0"`
	InventoryCapacity float64 `json:"inventoryCapacity" validate:"gte=0"`
	DemandForecast    float64 `json:"demandForecast" validate:"gte=0"`
}

type topologyLink struct {
	Source string  `json:"source" validate:"required"`
	Target string  `json:"target" validate:"required"`
	Value  float64 `json:"value" validate:"gte=0"`
	Type   string  `json:"type" validate:"required,oneof=material cell pack"`
}

// inventoryPayload patches inventory figures onto existing nodes.
type inventoryPayload []struct {
	NodeID            string  `json:"nodeId" validate:"required"`
	InventoryLevel    float64 `json:"inventoryLevel" validate:"gte=0"`
	InventoryCapacity float64 `json:"inventoryCapacity" validate:"gte=0"`
}

// ordersPayload replaces the active orders of existing nodes.
type ordersPayload []struct {
	NodeID string `json:"nodeId" validate:"required"`
	Orders []struct {
		ID       string  `json:"id" validate:"required"`
		Product  string  `json:"product" validate:"required"`
		Quantity float64 `json:"quantity" validate:"gt=0"`
		Amount   float64 `json:"amount" validate:"gte=0"`
		DueWeek  string  `json:"dueWeek"`
		Status   string  `json:"status"`
	} `json:"orders" validate:"dive"`
}

// productionPayload replaces the production lines of existing nodes.
type productionPayload []struct {
	NodeID string `json:"nodeId" validate:"required"`
	Lines  []struct {
		ID          string  `json:"id" validate:"required"`
		Name        string  `json:"name" validate:"required"`
		Product     string  `json:"product"`
		Utilization float64 `json:"utilization" validate:"gte=0,lte=100"`
	} `json:"lines" validate:"dive"`
}

// ImportFile reads and imports one slot from a file on disk.
func (im *Importer) ImportFile(slot Slot, filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		im.setStatus(slot, fmt.Sprintf("读取失败: %v", err))
		return err
	}
	return im.Import(slot, data)
}

// Import parses and applies one slot. On any parse or validation error the
// model is left exactly as it was.
func (im *Importer) Import(slot Slot, data []byte) error {
	var err error
	switch slot {
	case SlotTopology:
		err = im.importTopology(data)
	case SlotInventory:
		err = im.importInventory(data)
	case SlotOrders:
		err = im.importOrders(data)
	case SlotProduction:
		err = im.importProduction(data)
	default:
		err = fmt.Errorf("unknown import slot %q", slot)
	}

	if err != nil {
		im.setStatus(slot, fmt.Sprintf("导入失败: %v", err))
		logger.Error(logger.StatusImp, "Import %s failed: %v", slot, err)
		return err
	}
	im.setStatus(slot, "导入成功")
	logger.Success("Import %s applied", slot)
	return nil
}

func (im *Importer) importTopology(data []byte) error {
	var payload topologyPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	if err := im.validate.Struct(&payload); err != nil {
		return err
	}

	var g graph.GraphData
	for _, n := range payload.Nodes {
		g.Nodes = append(g.Nodes, graph.Node{
			ID:                n.ID,
			Name:              n.Name,
			Type:              graph.NodeType(n.Type),
			Status:            graph.StatusNormal,
			InventoryLevel:    n.InventoryLevel,
			InventoryCapacity: n.InventoryCapacity,
			DemandForecast:    n.DemandForecast,
		})
	}
	for _, l := range payload.Links {
		g.Links = append(g.Links, graph.Link{
			Source: l.Source,
			Target: l.Target,
			Value:  l.Value,
			Type:   graph.LinkType(l.Type),
			Status: graph.StatusNormal,
		})
	}

	im.model.Replace(g)
	return nil
}

func (im *Importer) importInventory(data []byte) error {
	var payload inventoryPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	for i := range payload {
		if err := im.validate.Struct(&payload[i]); err != nil {
			return err
		}
	}

	snapshot := im.model.Snapshot()
	for _, entry := range payload {
		node := snapshot.NodeByID(entry.NodeID)
		if node == nil {
			return fmt.Errorf("unknown node %q", entry.NodeID)
		}
		node.InventoryLevel = entry.InventoryLevel
		if entry.InventoryCapacity > 0 {
			node.InventoryCapacity = entry.InventoryCapacity
		}
	}

	im.model.Replace(snapshot)
	return nil
}

func (im *Importer) importOrders(data []byte) error {
	var payload ordersPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	for i := range payload {
		if err := im.validate.Struct(&payload[i]); err != nil {
			return err
		}
	}

	snapshot := im.model.Snapshot()
	for _, entry := range payload {
		node := snapshot.NodeByID(entry.NodeID)
		if node == nil {
			return fmt.Errorf("unknown node %q", entry.NodeID)
		}
		node.ActiveOrders = nil
		for _, o := range entry.Orders {
			node.ActiveOrders = append(node.ActiveOrders, graph.Order{
				ID:       o.ID,
				Product:  o.Product,
				Quantity: o.Quantity,
				Amount:   decimal.NewFromFloat(o.Amount),
				DueWeek:  o.DueWeek,
				Status:   o.Status,
			})
		}
	}

	im.model.Replace(snapshot)
	return nil
}

func (im *Importer) importProduction(data []byte) error {
	var payload productionPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	for i := range payload {
		if err := im.validate.Struct(&payload[i]); err != nil {
			return err
		}
	}

	snapshot := im.model.Snapshot()
	for _, entry := range payload {
		node := snapshot.NodeByID(entry.NodeID)
		if node == nil {
			return fmt.Errorf("unknown node %q", entry.NodeID)
		}
		node.ProductionLines = nil
		for _, l := range entry.Lines {
			node.ProductionLines = append(node.ProductionLines, graph.ProductionLine{
				ID:          l.ID,
				Name:        l.Name,
				Product:     l.Product,
				Utilization: l.Utilization,
				Status:      graph.StatusNormal,
			})
		}
	}

	im.model.Replace(snapshot)
	return nil
}

func (im *Importer) setStatus(slot Slot, msg string) {
	im.mu.Lock()
	defer im.mu.Unlock()
	im.status[slot] = msg
}

// Status returns the last status string per slot.
func (im *Importer) Status() map[Slot]string {
	im.mu.Lock()
	defer im.mu.Unlock()
	out := make(map[Slot]string, len(im.status))
	for k, v := range im.status {
		out[k] = v
	}
	return out
}
