package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`
	Simulation struct {
		InventoryImpact float64 `yaml:"inventory_impact"` // fraction of inventory lost per first-order hit
		UIDelayMs       int     `yaml:"ui_delay_ms"`      // artificial "simulating" delay shown in the console
		Seed            int64   `yaml:"seed"`             // mock data seed, 0 = time-based
	} `yaml:"simulation"`
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Connectors struct {
		ERPEndpoint string `yaml:"erp_endpoint"`
		MESEndpoint string `yaml:"mes_endpoint"`
		Enabled     bool   `yaml:"enabled"`
	} `yaml:"connectors"`
	Persistence struct {
		RulesFile string `yaml:"rules_file"`
		GraphFile string `yaml:"graph_file"`
	} `yaml:"persistence"`
	Logging struct {
		Level        string `yaml:"level"`
		EnableColors bool   `yaml:"enable_colors"`
	} `yaml:"logging"`
}

var Global Config

// Load reads the config.yaml file. Missing file leaves defaults in place.
func Load() error {
	applyDefaults()
	data, err := os.ReadFile("config.yaml")
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, &Global)
}

func applyDefaults() {
	Global.App.Name = "ChainTwin"
	Global.App.Version = "0.1"
	Global.Simulation.InventoryImpact = 0.3
	Global.Simulation.UIDelayMs = 800
	Global.Server.Port = ":8090"
	Global.Persistence.RulesFile = "chaintwin_rules.json"
	Global.Persistence.GraphFile = "chaintwin_graph.json"
	Global.Logging.Level = "info"
	Global.Logging.EnableColors = true
}
