package graph

import (
	"fmt"
	"strings"
)

// ToDOT returns the snapshot in Graphviz DOT format.
func (g *GraphData) ToDOT() string {
	var w strings.Builder
	w.WriteString("digraph ChainTwin {\n")
	w.WriteString("  rankdir=LR;\n")
	w.WriteString("  node [shape=box, style=filled, fontname=\"Arial\"];\n")

	for i := range g.Nodes {
		n := &g.Nodes[i]
		color := "lightgrey"
		switch n.Type {
		case NodeTypeSupplier:
			color = "lightblue"
		case NodeTypeBase:
			color = "lightyellow"
		case NodeTypeCustomer:
			color = "lightgreen"
		}
		switch n.Status {
		case StatusCritical:
			color = "salmon"
		case StatusWarning:
			color = "orange"
		}

		label := fmt.Sprintf("%s\n(%s)", n.Name, n.Type)
		if n.InventoryLevel > 0 {
			label += fmt.Sprintf("\nInv: %.0f", n.InventoryLevel)
		}
		if n.ActiveAlerts > 0 {
			label += fmt.Sprintf("\nAlerts: %d", n.ActiveAlerts)
		}

		w.WriteString(fmt.Sprintf("  \"%s\" [label=\" %s \", fillcolor=\" %s \"];\n", n.ID, label, color))
	}

	for i := range g.Links {
		l := &g.Links[i]
		style := "solid"
		switch l.Status {
		case StatusCritical:
			style = "bold"
		case StatusWarning:
			style = "dashed"
		}
		w.WriteString(fmt.Sprintf("  \"%s\" -> \"%s\" [label=\" %s \", weight=%.2f, style=%s];\n", l.Source, l.Target, l.Type, l.Value, style))
	}

	w.WriteString("}\n")
	return w.String()
}
