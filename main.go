package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"chaintwin/assist"
	"chaintwin/config"
	"chaintwin/connectors"
	"chaintwin/constraint"
	"chaintwin/graph"
	"chaintwin/importer"
	"chaintwin/llm"
	"chaintwin/logger"
	"chaintwin/scenario"
	"chaintwin/server"
	"chaintwin/tui"
)

// app owns all shared mutable state. Views and the hub only ever see
// snapshots; mutation goes through the command handlers below.
type app struct {
	baseline  graph.GraphData
	model     *graph.Model
	builder   *scenario.Builder
	engine    *scenario.Engine
	store     *constraint.Store
	assistant *assist.Assistant
	importer  *importer.Importer
	conns     *connectors.Set
	hub       *server.Hub
	tui       *tui.TUI
}

func main() {
	loadEnv()

	if err := config.Load(); err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(config.Global.Logging.Level, config.Global.Logging.EnableColors)

	tuiApp := tui.New()

	go func() {
		if err := tuiApp.Start(); err != nil {
			fmt.Printf("TUI Error: %v\n", err)
			os.Exit(1)
		}
	}()

	// Give TUI a moment to initialize
	time.Sleep(100 * time.Millisecond)

	logger.SetOutput(tuiApp.NewWriter())
	logger.SetTUIMode(true)

	logger.Info(logger.StatusInit, "%s v%s", config.Global.App.Name, config.Global.App.Version)
	logger.Info(logger.StatusInit, "Supply Chain Digital Twin - Scenario Impact Simulation")

	// 1. Graph: synthetic twin regenerated each session
	baseline := graph.Generate(config.Global.Simulation.Seed)
	logger.Success("Twin generated: %s", baseline.String())

	// 2. Rule store: reload persisted rules or seed the defaults
	store, err := constraint.LoadStore(config.Global.Persistence.RulesFile)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn(logger.StatusWarn, "Failed to load rules: %v", err)
		}
		store = constraint.NewStore(constraint.SeedCategories()...)
		logger.Info(logger.StatusInit, "Rule store seeded with built-in categories")
	} else {
		logger.Success("Loaded %d rule(s) from %s", store.Count(), config.Global.Persistence.RulesFile)
	}

	a := &app{
		baseline:  baseline,
		model:     graph.NewModel(baseline.Clone()),
		builder:   scenario.NewBuilder(),
		engine:    scenario.NewEngine(),
		store:     store,
		assistant: assist.New(llm.NewClient()),
		conns: connectors.NewSet(
			config.Global.Connectors.ERPEndpoint,
			config.Global.Connectors.MESEndpoint,
			config.Global.Connectors.Enabled,
		),
		hub: server.NewHub(),
		tui: tuiApp,
	}
	a.engine.InventoryImpact = config.Global.Simulation.InventoryImpact
	a.importer = importer.New(a.model)

	// 3. Websocket server for the visual frontend
	a.hub.SetModel(a.model)
	go a.hub.Run()
	server.StartServer(a.hub, config.Global.Server.Port)
	a.hub.Broadcast("rule_update", a.store.Categories())

	// 4. Stats ticker
	go func() {
		for range time.Tick(2 * time.Second) {
			nodes, links := a.model.Counts()
			tuiApp.UpdateStats(nodes, links, len(a.builder.Pending()), a.store.Count())
		}
	}()

	for input := range tuiApp.GetCommandChannel() {
		a.handleCommand(input)
	}
}

func (a *app) handleCommand(input string) {
	parts := strings.Fields(strings.TrimSpace(input))
	if len(parts) == 0 {
		return
	}

	switch parts[0] {
	case "show":
		a.printGraph()
	case "node":
		if len(parts) < 2 {
			logger.Warn(logger.StatusWarn, "Usage: node <NodeID>")
			return
		}
		a.printNode(parts[1])
	case "scenario":
		a.addScenario(parts[1:])
	case "scenarios":
		a.printScenarios()
	case "drop":
		if len(parts) < 2 {
			logger.Warn(logger.StatusWarn, "Usage: drop <ScenarioID>")
			return
		}
		a.builder.Remove(parts[1])
		a.hub.Broadcast("scenario_pending", a.builder.Pending())
	case "clear":
		a.builder.Clear()
		a.hub.Broadcast("scenario_pending", a.builder.Pending())
		logger.Info(logger.StatusScen, "Pending scenarios cleared")
	case "run":
		a.runSimulation()
	case "reset":
		a.model.Replace(a.baseline.Clone())
		a.hub.Broadcast("graph_update", a.model.Snapshot())
		logger.Success("Twin reset to clean baseline")
	case "analyze":
		a.analyze(parts[1:])
	case "plans":
		a.printPlans()
	case "rules":
		a.printRules()
	case "rule":
		if len(parts) < 2 {
			logger.Warn(logger.StatusWarn, "Usage: rule <free-text rule statement>")
			return
		}
		a.learnRule(strings.Join(parts[1:], " "))
	case "toggle":
		if len(parts) < 3 {
			logger.Warn(logger.StatusWarn, "Usage: toggle <CategoryID> <RuleID>")
			return
		}
		enabled, ok := a.store.Toggle(parts[1], parts[2])
		if !ok {
			logger.Warn(logger.StatusRule, "Rule %s not found in %s", parts[2], parts[1])
			return
		}
		label := parts[2]
		if item, found := a.store.Find(parts[2]); found {
			label = item.Label
		}
		logger.Info(logger.StatusRule, "Rule %s enabled=%v", label, enabled)
		a.saveRules()
		a.hub.Broadcast("rule_update", a.store.Categories())
	case "ask":
		if len(parts) < 2 {
			logger.Warn(logger.StatusWarn, "Usage: ask <question or rule statement>")
			return
		}
		a.ask(strings.Join(parts[1:], " "))
	case "cancel":
		a.assistant.Cancel()
		logger.Info(logger.StatusChat, "Pending assistant request cancelled")
	case "import":
		if len(parts) < 3 {
			logger.Warn(logger.StatusWarn, "Usage: import <topology|inventory|orders|production> <file.json>")
			return
		}
		a.runImport(importer.Slot(parts[1]), parts[2])
	case "imports":
		a.printImportStatus()
	case "connectors":
		a.printConnectors()
	case "save":
		if len(parts) < 2 {
			logger.Warn(logger.StatusWarn, "Usage: save <filename.json>")
			return
		}
		if err := a.model.Save(parts[1]); err != nil {
			logger.Error(logger.StatusErr, "Error saving graph: %v", err)
		} else {
			logger.Success("Graph saved to %s", parts[1])
		}
	case "load":
		if len(parts) < 2 {
			logger.Warn(logger.StatusWarn, "Usage: load <filename.json>")
			return
		}
		g, err := graph.Load(parts[1])
		if err != nil {
			logger.Error(logger.StatusErr, "Error loading graph: %v", err)
			return
		}
		a.baseline = g
		a.model.Replace(g.Clone())
		a.hub.Broadcast("graph_update", a.model.Snapshot())
		logger.Success("Graph loaded from %s (%s)", parts[1], g.String())
	case "export":
		if len(parts) < 2 {
			logger.Warn(logger.StatusWarn, "Usage: export <filename.dot>")
			return
		}
		snapshot := a.model.Snapshot()
		if err := os.WriteFile(parts[1], []byte(snapshot.ToDOT()), 0644); err != nil {
			logger.Error(logger.StatusErr, "Error exporting DOT: %v", err)
		} else {
			logger.Success("Graph exported to %s", parts[1])
		}
	case "exit", "quit", "q":
		a.saveRules()
		logger.Info(logger.StatusOK, "Shutting down...")
		a.tui.Stop()
	case "help", "?":
		a.printHelp()
	default:
		logger.Warn(logger.StatusWarn, "Unknown command: %s (type 'help' for commands)", parts[0])
	}
}

// scenarioTypeAliases maps command shorthand to scenario types.
var scenarioTypeAliases = map[string]scenario.Type{
	"delay":      scenario.SupplyDelay,
	"demand":     scenario.DemandChange,
	"production": scenario.ProductionIssue,
	"inventory":  scenario.InventoryIssue,
}

func (a *app) addScenario(args []string) {
	if len(args) < 2 {
		logger.Warn(logger.StatusWarn, "Usage: scenario <delay|demand|production|inventory> <NodeID> [value]")
		return
	}

	st, ok := scenarioTypeAliases[args[0]]
	if !ok {
		logger.Warn(logger.StatusWarn, "Unknown scenario type %q", args[0])
		return
	}

	snapshot := a.model.Snapshot()
	target := snapshot.NodeByID(args[1])
	if target == nil {
		logger.Warn(logger.StatusScen, "Node %s not found", args[1])
		return
	}

	params := scenario.DefaultParams(st, target)
	if len(args) >= 3 {
		params = overrideParams(params, args[2])
	}

	a.builder.Add(target, params)
	a.hub.Broadcast("scenario_pending", a.builder.Pending())
}

// overrideParams applies the optional numeric argument onto the primary
// field of the default parameter set.
func overrideParams(params scenario.Params, arg string) scenario.Params {
	switch p := params.(type) {
	case scenario.SupplyDelayParams:
		if v, err := strconv.Atoi(arg); err == nil {
			p.DelayDays = v
		}
		return p
	case scenario.DemandChangeParams:
		if v, err := strconv.Atoi(arg); err == nil {
			p.DemandChange = v
		}
		return p
	case scenario.ProductionIssueParams:
		if v, err := strconv.Atoi(arg); err == nil {
			p.DowntimeDays = v
		}
		return p
	case scenario.InventoryIssueParams:
		if v, err := strconv.ParseFloat(arg, 64); err == nil {
			p.CurrentLevel = v
		}
		return p
	default:
		return params
	}
}

func (a *app) runSimulation() {
	pending := a.builder.Pending()
	if len(pending) == 0 {
		logger.Warn(logger.StatusScen, "No pending scenarios; add one with 'scenario'")
		return
	}

	logger.Info(logger.StatusCasc, "Simulating %d scenario(s)...", len(pending))
	// Artificial delay: the cascade itself is synchronous and instant.
	time.Sleep(time.Duration(config.Global.Simulation.UIDelayMs) * time.Millisecond)

	result := a.engine.Run(pending, a.baseline)

	a.model.Replace(result)
	a.builder.Clear()
	a.hub.Broadcast("simulation_result", result)
	a.hub.Broadcast("graph_update", result)
	a.hub.Broadcast("scenario_pending", a.builder.Pending())

	critical, warning := 0, 0
	for i := range result.Nodes {
		switch result.Nodes[i].Status {
		case graph.StatusCritical:
			critical++
		case graph.StatusWarning:
			warning++
		}
	}
	logger.Success("Simulation complete: %d critical, %d warning node(s)", critical, warning)
}

// anomalousNodes returns either the named nodes or, with no ids given,
// every non-normal node in the current snapshot.
func (a *app) anomalousNodes(ids []string, snapshot graph.GraphData) []graph.Node {
	var nodes []graph.Node
	if len(ids) > 0 {
		for _, id := range ids {
			if n := snapshot.NodeByID(id); n != nil {
				nodes = append(nodes, *n)
			}
		}
		return nodes
	}
	for i := range snapshot.Nodes {
		if snapshot.Nodes[i].Status != graph.StatusNormal {
			nodes = append(nodes, snapshot.Nodes[i])
		}
	}
	return nodes
}

func (a *app) analyze(ids []string) {
	snapshot := a.model.Snapshot()
	nodes := a.anomalousNodes(ids, snapshot)
	if len(nodes) == 0 {
		logger.Info(logger.StatusCasc, "No anomalous nodes to analyze")
		return
	}

	impact := scenario.Aggregate(nodes, snapshot)
	logger.Plain("")
	logger.Section(fmt.Sprintf("Impact Analysis (%d node(s))", len(nodes)))
	logger.Plain("Upstream:")
	for _, r := range impact.Upstream {
		logger.Plain("  %s (%s) status=%s inventory=%.0f eta=%s", r.Name, r.Type, r.Status, r.InventoryLevel, r.ETA)
	}
	logger.Plain("Downstream:")
	for _, r := range impact.Downstream {
		logger.Plain("  %s (%s) impact=%s pendingOrders=%d", r.Name, r.Type, r.ImpactLevel, r.PendingOrders)
	}
	a.hub.Broadcast("impact_analysis", impact)
}

func (a *app) printPlans() {
	snapshot := a.model.Snapshot()
	nodes := a.anomalousNodes(nil, snapshot)
	plans := scenario.GeneratePlans(nodes)
	logger.Plain("")
	logger.Section("Remediation Plans")
	for _, p := range plans {
		logger.Plain("  [%s] %s - 成本 %s 元, %d 天, 满足率 %d%%, 风险 %s", p.ID, p.Name, p.Cost.StringFixed(0), p.TimeDays, p.Satisfaction, p.Risk)
		logger.Plain("      %s", p.Description)
	}
}

func (a *app) learnRule(text string) {
	token := a.assistant.Begin()
	go func() {
		item := a.assistant.Extract(text)
		if !a.assistant.Alive(token) {
			logger.Info(logger.StatusChat, "Stale extraction result dropped")
			return
		}
		a.store.Upsert(item)
		a.saveRules()
		a.hub.Broadcast("rule_update", a.store.Categories())
	}()
}

func (a *app) ask(text string) {
	token := a.assistant.Begin()
	go func() {
		outcome := a.assistant.Chat(text)
		if !a.assistant.Alive(token) {
			logger.Info(logger.StatusChat, "Stale chat reply dropped")
			return
		}
		logger.Info(logger.StatusChat, "%s", outcome.Reply)
		a.hub.Broadcast("chat_reply", outcome.Reply)
		if outcome.Rule != nil {
			a.store.Upsert(*outcome.Rule)
			a.saveRules()
			a.hub.Broadcast("rule_update", a.store.Categories())
		}
	}()
}

func (a *app) runImport(slot importer.Slot, filename string) {
	if err := a.importer.ImportFile(slot, filename); err != nil {
		return
	}
	// Imports replace the baseline too: the next run simulates from the
	// imported data.
	a.baseline = a.model.Snapshot()
	a.hub.Broadcast("graph_update", a.model.Snapshot())
}

func (a *app) printImportStatus() {
	status := a.importer.Status()
	logger.Plain("")
	logger.Section("Import Status")
	for _, slot := range importer.Slots {
		msg, ok := status[slot]
		if !ok {
			msg = "-"
		}
		logger.Plain("  %-12s %s", slot, msg)
	}
}

func (a *app) printConnectors() {
	logger.Plain("")
	logger.Section("Connectors")
	for _, line := range a.conns.StatusLines() {
		logger.Plain("  %s", line)
	}
	for _, c := range []*connectors.Client{a.conns.ERP, a.conns.MES} {
		if err := c.Ping(); err != nil {
			logger.Info(logger.StatusConn, "%v", err)
		}
	}
}

func (a *app) saveRules() {
	if err := a.store.Save(config.Global.Persistence.RulesFile); err != nil {
		logger.Warn(logger.StatusSave, "Failed to save rules: %v", err)
	}
}

func (a *app) printGraph() {
	snapshot := a.model.Snapshot()
	logger.Plain("")
	logger.Section("Nodes")
	for i := range snapshot.Nodes {
		n := &snapshot.Nodes[i]
		logger.Plain("[%s] %s (%s) status=%s alerts=%d inventory=%.0f", n.ID, n.Name, n.Type, n.Status, n.ActiveAlerts, n.InventoryLevel)
	}
	logger.Plain("")
	logger.Section("Links")
	for i := range snapshot.Links {
		l := &snapshot.Links[i]
		logger.Plain("%s → %s (%.0f) [%s] status=%s", l.Source, l.Target, l.Value, l.Type, l.Status)
	}
}

func (a *app) printNode(id string) {
	snapshot := a.model.Snapshot()
	n := snapshot.NodeByID(id)
	if n == nil {
		logger.Warn(logger.StatusNode, "Node %s not found", id)
		return
	}
	logger.Plain("")
	logger.Section(fmt.Sprintf("%s (%s)", n.Name, n.Type))
	logger.Plain("  status=%s alerts=%d", n.Status, n.ActiveAlerts)
	logger.Plain("  inventory=%.0f / %.0f", n.InventoryLevel, n.InventoryCapacity)
	logger.Plain("  capacity=%.1f%% demand=%.0f onTime=%.1f%%", n.CapacityUtilization, n.DemandForecast, n.OnTimeRate)
	for _, pl := range n.ProductionLines {
		logger.Plain("  line %s (%s) util=%.1f%% status=%s", pl.Name, pl.Product, pl.Utilization, pl.Status)
	}
	for _, o := range n.ActiveOrders {
		logger.Plain("  order %s %s x%.0f 金额 %s 交期 %s", o.ID, o.Product, o.Quantity, o.Amount.StringFixed(0), o.DueWeek)
	}
	for _, l := range snapshot.IncomingLinks(n.ID) {
		logger.Plain("  ← %s (%.0f %s) status=%s", l.Source, l.Value, l.Type, l.Status)
	}
	for _, l := range snapshot.OutgoingLinks(n.ID) {
		logger.Plain("  → %s (%.0f %s) status=%s", l.Target, l.Value, l.Type, l.Status)
	}
}

func (a *app) printScenarios() {
	pending := a.builder.Pending()
	logger.Plain("")
	logger.Section(fmt.Sprintf("Pending Scenarios (%d)", len(pending)))
	for _, cfg := range pending {
		logger.Plain("  [%s] %s", cfg.ID, cfg.Description)
	}
}

func (a *app) printRules() {
	logger.Plain("")
	logger.Section("Constraint Rules")
	for _, cat := range a.store.Categories() {
		logger.Plain("%s (%s)", cat.Name, cat.ID)
		for _, item := range cat.Items {
			mark := " "
			if item.Enabled {
				mark = "x"
			}
			logger.Plain("  [%s] %s [%s/%s] %s", mark, item.ID, item.ImpactLevel, item.Source, item.Label)
		}
	}
}

func (a *app) printHelp() {
	logger.Plain("")
	logger.Section("Available Commands")
	logger.Plain("  show                      - Show all nodes and links")
	logger.Plain("  node <ID>                 - Show node detail")
	logger.Plain("  scenario <type> <ID> [v]  - Add a pending scenario (delay|demand|production|inventory)")
	logger.Plain("  scenarios                 - List pending scenarios")
	logger.Plain("  drop <ScenarioID>         - Remove a pending scenario")
	logger.Plain("  clear                     - Clear pending scenarios")
	logger.Plain("  run                       - Run the pending batch against the baseline")
	logger.Plain("  reset                     - Restore the clean baseline")
	logger.Plain("  analyze [ID...]           - Upstream/downstream impact of anomalous nodes")
	logger.Plain("  plans                     - Show remediation plan options")
	logger.Plain("  rules                     - List constraint rules")
	logger.Plain("  rule <text>               - Extract a rule from free text via LLM")
	logger.Plain("  toggle <Cat> <RuleID>     - Enable/disable a rule")
	logger.Plain("  ask <text>                - Chat with the assistant (may learn rules)")
	logger.Plain("  cancel                    - Drop any in-flight assistant request")
	logger.Plain("  import <slot> <file>      - Import JSON data (topology|inventory|orders|production)")
	logger.Plain("  imports                   - Show import status per slot")
	logger.Plain("  connectors                - Show ERP/MES connector state")
	logger.Plain("  save/load <file.json>     - Persist or restore the graph")
	logger.Plain("  export <file.dot>         - Export the graph to Graphviz")
	logger.Plain("  exit                      - Quit")
}

func loadEnv() {
	file, err := os.Open(".env")
	if err != nil {
		// .env file is optional in some environments, so we just return if not found
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if idx := strings.Index(value, "#"); idx != -1 {
			value = strings.TrimSpace(value[:idx])
		}

		value = strings.Trim(value, `"'`)

		os.Setenv(key, value)
	}
}
