// Package connectors holds the ERP/MES integration stubs. Live data feeds
// are out of scope; the clients exist so endpoints can be configured and
// probed, and so the panel can show connector state.
package connectors

import (
	"fmt"
	"net/http"
	"time"

	"chaintwin/logger"
)

// Client probes one external system endpoint.
type Client struct {
	Name     string
	Endpoint string
	Enabled  bool
	HTTP     *http.Client
}

func NewClient(name, endpoint string, enabled bool) *Client {
	return &Client{
		Name:     name,
		Endpoint: endpoint,
		Enabled:  enabled,
		HTTP: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Ping checks endpoint reachability. Disabled or unconfigured connectors
// report that state without touching the network.
func (c *Client) Ping() error {
	if !c.Enabled {
		return fmt.Errorf("%s connector disabled", c.Name)
	}
	if c.Endpoint == "" {
		return fmt.Errorf("%s endpoint not configured", c.Name)
	}

	resp, err := c.HTTP.Get(c.Endpoint)
	if err != nil {
		return fmt.Errorf("%s unreachable: %w", c.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("%s returned status %d", c.Name, resp.StatusCode)
	}
	logger.Info(logger.StatusConn, "%s reachable at %s", c.Name, c.Endpoint)
	return nil
}

// Set bundles the configured connectors.
type Set struct {
	ERP *Client
	MES *Client
}

func NewSet(erpEndpoint, mesEndpoint string, enabled bool) *Set {
	return &Set{
		ERP: NewClient("ERP", erpEndpoint, enabled),
		MES: NewClient("MES", mesEndpoint, enabled),
	}
}

// StatusLines renders one display line per connector.
func (s *Set) StatusLines() []string {
	lines := make([]string, 0, 2)
	for _, c := range []*Client{s.ERP, s.MES} {
		state := "未启用"
		if c.Enabled {
			state = c.Endpoint
			if state == "" {
				state = "未配置"
			}
		}
		lines = append(lines, fmt.Sprintf("%s: %s", c.Name, state))
	}
	return lines
}
