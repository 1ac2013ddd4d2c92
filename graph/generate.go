package graph

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"
)

var (
	supplierNames = []string{"华东电芯供应", "南方材料集团", "北区隔膜厂", "西部电解液", "沿海结构件"}
	baseNames     = []string{"华南生产基地", "华东生产基地", "西南生产基地"}
	customerNames = []string{"星辰汽车", "远航储能", "天枢电子", "国越重工", "蓝湾新能源", "盛泰动力"}
	products      = []string{"LFP-280Ah", "NCM-50Ah", "Pack-96S", "Cell-M3"}
)

// Generate builds a synthetic supply-chain snapshot: suppliers feeding
// production bases feeding customers. Seed 0 uses the current time, so
// data differs per session; a fixed seed gives a reproducible topology.
func Generate(seed int64) GraphData {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	r := rand.New(rand.NewSource(seed))

	var g GraphData

	weeks := make([]string, 8)
	for i := range weeks {
		weeks[i] = fmt.Sprintf("2024-W%02d", 40+i)
	}

	for i, name := range supplierNames {
		g.Nodes = append(g.Nodes, Node{
			ID:                fmt.Sprintf("sup-%d", i),
			Name:              name,
			Type:              NodeTypeSupplier,
			Status:            StatusNormal,
			InventoryLevel:    float64(4000 + r.Intn(8000)),
			InventoryCapacity: 15000,
			DeliveryAccuracy:  90 + r.Float64()*10,
			OnTimeRate:        88 + r.Float64()*12,
		})
	}

	for i, name := range baseNames {
		n := Node{
			ID:                  fmt.Sprintf("base-%d", i),
			Name:                name,
			Type:                NodeTypeBase,
			Status:              StatusNormal,
			InventoryLevel:      float64(6000 + r.Intn(6000)),
			InventoryCapacity:   20000,
			CapacityUtilization: 60 + r.Float64()*35,
			OnTimeRate:          90 + r.Float64()*10,
		}
		for l := 0; l < 2+r.Intn(2); l++ {
			n.ProductionLines = append(n.ProductionLines, ProductionLine{
				ID:          fmt.Sprintf("%s-line-%d", n.ID, l),
				Name:        fmt.Sprintf("%s %d号线", name, l+1),
				Product:     products[r.Intn(len(products))],
				Utilization: 55 + r.Float64()*40,
				Status:      StatusNormal,
			})
		}
		g.Nodes = append(g.Nodes, n)
	}

	for i, name := range customerNames {
		n := Node{
			ID:             fmt.Sprintf("cust-%d", i),
			Name:           name,
			Type:           NodeTypeCustomer,
			Status:         StatusNormal,
			DemandForecast: float64(2000 + r.Intn(6000)),
		}
		for _, w := range weeks {
			base := n.DemandForecast * (0.8 + r.Float64()*0.4)
			n.Forecast = append(n.Forecast, ForecastPoint{Week: w, Value: base})
			n.Sales = append(n.Sales, SalesPoint{
				Week:   w,
				Actual: base * (0.85 + r.Float64()*0.25),
				Target: base,
			})
		}
		for o := 0; o < 1+r.Intn(3); o++ {
			qty := float64(500 + r.Intn(2000))
			n.ActiveOrders = append(n.ActiveOrders, Order{
				ID:       fmt.Sprintf("ord-%d-%d", i, o),
				Product:  products[r.Intn(len(products))],
				Quantity: qty,
				Amount:   decimal.NewFromFloat(qty * (450 + r.Float64()*150)).Round(2),
				DueWeek:  weeks[r.Intn(len(weeks))],
				Status:   "in_production",
			})
		}
		g.Nodes = append(g.Nodes, n)
	}

	// Every base draws material from 2-3 suppliers.
	for b := range baseNames {
		baseID := fmt.Sprintf("base-%d", b)
		picked := r.Perm(len(supplierNames))[:2+r.Intn(2)]
		for _, s := range picked {
			g.Links = append(g.Links, Link{
				Source: fmt.Sprintf("sup-%d", s),
				Target: baseID,
				Value:  float64(800 + r.Intn(3000)),
				Type:   LinkTypeMaterial,
				Status: StatusNormal,
			})
		}
	}

	// Every customer is served by 1-2 bases, mixed cell and pack flows.
	for c := range customerNames {
		custID := fmt.Sprintf("cust-%d", c)
		picked := r.Perm(len(baseNames))[:1+r.Intn(2)]
		for _, b := range picked {
			baseID := fmt.Sprintf("base-%d", b)
			lt := LinkTypeCell
			if r.Intn(2) == 0 {
				lt = LinkTypePack
			}
			g.Links = append(g.Links, Link{
				Source: baseID,
				Target: custID,
				Value:  float64(500 + r.Intn(2500)),
				Type:   lt,
				Status: StatusNormal,
			})
			if cn := g.NodeByID(custID); cn != nil {
				cn.SupplyingBases = append(cn.SupplyingBases, baseID)
			}
		}
	}

	return g
}
