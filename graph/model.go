package graph

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/shopspring/decimal"

	"chaintwin/logger"
)

// NodeType represents the category of a node.
type NodeType string

const (
	NodeTypeSupplier NodeType = "SUPPLIER"
	NodeTypeBase     NodeType = "BASE"
	NodeTypeCustomer NodeType = "CUSTOMER"
	// Declared for parity with production-line detail blocks; not used as a
	// top-level node type.
	NodeTypeProductionLine NodeType = "PRODUCTION_LINE"
)

// Status represents the alert state of a node or link.
type Status string

const (
	StatusNormal   Status = "normal"
	StatusWarning  Status = "warning"
	StatusCritical Status = "critical"
)

// Escalate returns the worse of the current and proposed status.
// Critical is sticky: a warning never downgrades a critical node.
func (s Status) Escalate(to Status) Status {
	if s == StatusCritical {
		return StatusCritical
	}
	if to == StatusCritical {
		return StatusCritical
	}
	if s == StatusWarning || to == StatusWarning {
		return StatusWarning
	}
	return StatusNormal
}

// LinkType represents the kind of flow carried by a link.
type LinkType string

const (
	LinkTypeMaterial LinkType = "material"
	LinkTypeCell     LinkType = "cell"
	LinkTypePack     LinkType = "pack"
)

// ForecastPoint is one week of demand forecast for a node.
type ForecastPoint struct {
	Week  string  `json:"week"`
	Value float64 `json:"value"`
}

// SalesPoint is one week of realized sales.
type SalesPoint struct {
	Week   string  `json:"week"`
	Actual float64 `json:"actual"`
	Target float64 `json:"target"`
}

// Order is an active order attached to a customer or base node.
type Order struct {
	ID       string          `json:"id"`
	Product  string          `json:"product"`
	Quantity float64         `json:"quantity"`
	Amount   decimal.Decimal `json:"amount"`
	DueWeek  string          `json:"dueWeek"`
	Status   string          `json:"status"`
}

// ProductionLine is a detail block on a base node.
type ProductionLine struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Product     string  `json:"product"`
	Utilization float64 `json:"utilization"`
	Status      Status  `json:"status"`
}

// Node represents an entity in the supply chain.
type Node struct {
	ID                  string           `json:"id"`
	Name                string           `json:"name"`
	Type                NodeType         `json:"type"`
	Status              Status           `json:"status"`
	InventoryLevel      float64          `json:"inventoryLevel"`
	InventoryCapacity   float64          `json:"inventoryCapacity"`
	CapacityUtilization float64          `json:"capacityUtilization"`
	DemandForecast      float64          `json:"demandForecast"`
	DeliveryAccuracy    float64          `json:"deliveryAccuracy"`
	OnTimeRate          float64          `json:"onTimeRate"`
	ActiveAlerts        int              `json:"activeAlerts"`
	Forecast            []ForecastPoint  `json:"forecast,omitempty"`
	Sales               []SalesPoint     `json:"sales,omitempty"`
	ActiveOrders        []Order          `json:"activeOrders,omitempty"`
	ProductionLines     []ProductionLine `json:"productionLines,omitempty"`
	SupplyingBases      []string         `json:"supplyingBases,omitempty"`
}

// Link represents a directed, typed flow between two nodes. Source and
// target are node ids and are not guaranteed to resolve; consumers must
// tolerate dangling references.
type Link struct {
	Source string   `json:"source"`
	Target string   `json:"target"`
	Value  float64  `json:"value"`
	Type   LinkType `json:"type"`
	Status Status   `json:"status"`
}

// Key identifies a link for reporting. Parallel routes sharing
// (source,target,type) are disambiguated by positional index.
func (l Link) Key(index int) string {
	return fmt.Sprintf("%s|%s|%s|%d", l.Source, l.Target, l.Type, index)
}

// GraphData is a nodes+links snapshot. Immutable by convention: consumers
// replace whole snapshots rather than patching them in place.
type GraphData struct {
	Nodes []Node `json:"nodes"`
	Links []Link `json:"links"`
}

// NodeByID returns a pointer into the snapshot's node slice, or nil.
func (g *GraphData) NodeByID(id string) *Node {
	for i := range g.Nodes {
		if g.Nodes[i].ID == id {
			return &g.Nodes[i]
		}
	}
	return nil
}

// OutgoingLinks returns pointers to every link whose source is id.
func (g *GraphData) OutgoingLinks(id string) []*Link {
	var out []*Link
	for i := range g.Links {
		if g.Links[i].Source == id {
			out = append(out, &g.Links[i])
		}
	}
	return out
}

// IncomingLinks returns pointers to every link whose target is id.
func (g *GraphData) IncomingLinks(id string) []*Link {
	var in []*Link
	for i := range g.Links {
		if g.Links[i].Target == id {
			in = append(in, &g.Links[i])
		}
	}
	return in
}

// Clone returns a deep copy of the snapshot. Simulations run against a
// clone so the canonical baseline is never mutated.
func (g *GraphData) Clone() GraphData {
	out := GraphData{
		Nodes: make([]Node, len(g.Nodes)),
		Links: make([]Link, len(g.Links)),
	}
	copy(out.Links, g.Links)
	for i, n := range g.Nodes {
		nc := n
		nc.Forecast = append([]ForecastPoint(nil), n.Forecast...)
		nc.Sales = append([]SalesPoint(nil), n.Sales...)
		nc.ActiveOrders = append([]Order(nil), n.ActiveOrders...)
		nc.ProductionLines = append([]ProductionLine(nil), n.ProductionLines...)
		nc.SupplyingBases = append([]string(nil), n.SupplyingBases...)
		out.Nodes[i] = nc
	}
	return out
}

// Model owns the canonical graph snapshot for the session. All views read
// through Snapshot; mutation happens only via Replace.
type Model struct {
	mu   sync.RWMutex
	data GraphData
}

// NewModel wraps an initial snapshot.
func NewModel(data GraphData) *Model {
	return &Model{data: data}
}

// Snapshot returns a deep copy of the current graph.
func (m *Model) Snapshot() GraphData {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.Clone()
}

// Replace swaps in a new snapshot wholesale.
func (m *Model) Replace(data GraphData) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = data
}

// Counts returns node and link totals for status displays.
func (m *Model) Counts() (nodes, links int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data.Nodes), len(m.data.Links)
}

// Save writes the current snapshot to a JSON file.
func (m *Model) Save(filename string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, err := json.MarshalIndent(m.data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0644)
}

// Load reads a snapshot from a JSON file.
func Load(filename string) (GraphData, error) {
	var g GraphData
	data, err := os.ReadFile(filename)
	if err != nil {
		return g, err
	}
	if err := json.Unmarshal(data, &g); err != nil {
		return g, err
	}
	if dangling := g.danglingLinkCount(); dangling > 0 {
		logger.Warn(logger.StatusLink, "Loaded graph has %d dangling link reference(s)", dangling)
	}
	return g, nil
}

func (g *GraphData) danglingLinkCount() int {
	ids := make(map[string]bool, len(g.Nodes))
	for i := range g.Nodes {
		ids[g.Nodes[i].ID] = true
	}
	count := 0
	for i := range g.Links {
		if !ids[g.Links[i].Source] || !ids[g.Links[i].Target] {
			count++
		}
	}
	return count
}

// String returns a summary of the snapshot.
func (g *GraphData) String() string {
	return fmt.Sprintf("Graph(Nodes: %d, Links: %d)", len(g.Nodes), len(g.Links))
}
