package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/voltbridge/ocpp-gateway/core/metrics"
	infraledger "github.com/voltbridge/ocpp-gateway/infra/ledger"
	"github.com/voltbridge/ocpp-gateway/infra/mqtt"
)

type Config struct {
	MQTT    mqtt.Config    `json:"mqtt"`
	Gateway GatewayConfig  `json:"gateway"`
	Ledger  LedgerConfig   `json:"ledger"`
	Metrics metrics.Config `json:"metrics"`
	API     APIConfig      `json:"api"`
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("OCPP_", ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "ocpp_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.Gateway.SetDefaults()
	cfg.Ledger.SetDefaults()
	cfg.Metrics.SetDefaults()
	cfg.API.SetDefaults()
	if err := cfg.Gateway.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Ledger.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// GatewayConfig defines the routing parameters of the gateway itself.
type GatewayConfig struct {
	// InboundTopic is the subscription filter for device traffic. The
	// single-level wildcard segment carries the device identity.
	InboundTopic string `json:"inbound_topic"`
	// HeartbeatIntervalSeconds is returned in boot notification replies.
	HeartbeatIntervalSeconds int `json:"heartbeat_interval_seconds"`
	// CommandTTLSeconds bounds how long an issued command may wait for its
	// reply before the ledger entry expires.
	CommandTTLSeconds int `json:"command_ttl_seconds"`
	// ShadowEnabled mirrors state merges onto the device shadow topic.
	ShadowEnabled bool `json:"shadow_enabled"`
}

// SetDefaults applies sane defaults.
func (c *GatewayConfig) SetDefaults() {
	if c.InboundTopic == "" {
		c.InboundTopic = "ocpp/+/in"
	}
	if c.HeartbeatIntervalSeconds == 0 {
		c.HeartbeatIntervalSeconds = 10
	}
	if c.CommandTTLSeconds == 0 {
		c.CommandTTLSeconds = 120
	}
}

// Validate checks mandatory fields.
func (c GatewayConfig) Validate() error {
	if !strings.Contains(c.InboundTopic, "+") {
		return fmt.Errorf("inbound_topic %q needs a wildcard segment for the device identity", c.InboundTopic)
	}
	if c.HeartbeatIntervalSeconds < 0 || c.CommandTTLSeconds < 0 {
		return fmt.Errorf("negative interval")
	}
	return nil
}

// LedgerConfig selects and configures the pending-command ledger backend.
type LedgerConfig struct {
	// Backend selects the ledger type: "memory" or "redis".
	Backend string             `json:"backend"`
	Redis   infraledger.Config `json:"redis"`
	// ExpireIntervalSeconds is the sweep period for backends without native
	// key expiry.
	ExpireIntervalSeconds int `json:"expire_interval_seconds"`
}

// SetDefaults applies sane defaults.
func (c *LedgerConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "memory"
	}
	if c.ExpireIntervalSeconds == 0 {
		c.ExpireIntervalSeconds = 30
	}
	c.Redis.SetDefaults()
}

// Validate checks mandatory fields.
func (c LedgerConfig) Validate() error {
	if c.Backend != "memory" && c.Backend != "redis" {
		return fmt.Errorf("unknown ledger backend %s", c.Backend)
	}
	return nil
}

// APIConfig defines the HTTP API server settings.
type APIConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr"`
}

// SetDefaults applies sane defaults.
func (c *APIConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
}
