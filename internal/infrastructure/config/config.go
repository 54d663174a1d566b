package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the Zigbridge adapter.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	MQTT      MQTTConfig      `yaml:"mqtt"`
	Filters   FilterConfig    `yaml:"filters"`
	Endpoints EndpointConfig  `yaml:"endpoints"`
	Logging   LoggingConfig   `yaml:"logging"`
	History   HistoryConfig   `yaml:"history"`
	Debug     bool            `yaml:"debug"`
	DataDir   string          `yaml:"data_dir"`
	Inject    InjectConfig    `yaml:"inject"`
	Lifecycle LifecycleConfig `yaml:"lifecycle"`
}

// MQTTConfig contains broker connection settings for the Zigbee2MQTT gateway.
type MQTTConfig struct {
	// Host is the broker address including scheme prefix.
	// Supported schemes: mqtt://, mqtts://, ws://, wss://, mqtt+unix://
	Host string `yaml:"host"`

	// Port is the broker port. Ignored for mqtt+unix:// hosts.
	Port int `yaml:"port"`

	// ProtocolVersion selects the MQTT protocol level: 3, 4 or 5.
	ProtocolVersion int `yaml:"protocol_version"`

	// Topic is the Zigbee2MQTT base topic (default "zigbee2mqtt").
	Topic string `yaml:"topic"`

	// ClientID identifies this client to the broker.
	// When empty a random "<topic>_<16-hex>" ID is generated.
	ClientID string `yaml:"client_id"`

	Username string `yaml:"username"`
	Password string `yaml:"password"`

	TLS MQTTTLSConfig `yaml:"tls"`

	// ConnectTimeout bounds the Start() wait for the retained bridge
	// topics, in seconds. Default 60.
	ConnectTimeout int `yaml:"connect_timeout"`
}

// MQTTTLSConfig contains TLS material for mqtts:// and wss:// connections.
type MQTTTLSConfig struct {
	// CA is the path to a PEM CA bundle. Optional.
	CA string `yaml:"ca"`

	// Cert and Key enable mutual TLS when both are set.
	Cert string `yaml:"cert"`
	Key  string `yaml:"key"`

	// RejectUnauthorized controls server certificate verification.
	// Defaults to true when a CA is omitted.
	RejectUnauthorized *bool `yaml:"reject_unauthorized"`
}

// FilterConfig controls which gateway entities and features are exposed.
type FilterConfig struct {
	// WhiteList restricts exposure to the named entities. Empty allows all.
	// Entries may be friendly names or IEEE addresses.
	WhiteList []string `yaml:"white_list"`

	// BlackList hides the named entities. Takes precedence over WhiteList.
	BlackList []string `yaml:"black_list"`

	// SwitchList, LightList and OutletList force device-type resolution
	// for the named entities.
	SwitchList []string `yaml:"switch_list"`
	LightList  []string `yaml:"light_list"`
	OutletList []string `yaml:"outlet_list"`

	// FeatureBlackList drops the named features on every device
	// (e.g. "device_temperature", "update").
	FeatureBlackList []string `yaml:"feature_black_list"`

	// DeviceFeatureBlackList drops features per friendly name.
	DeviceFeatureBlackList map[string][]string `yaml:"device_feature_black_list"`
}

// EndpointConfig controls northbound endpoint naming and scene exposure.
type EndpointConfig struct {
	// Postfix disambiguates endpoint names across multiple adapter
	// instances. At most 3 characters.
	Postfix string `yaml:"postfix"`

	// ScenesType selects how group scenes are exposed:
	// light, outlet, switch or mounted_switch.
	ScenesType string `yaml:"scenes_type"`

	// ScenesPrefix prepends the owning entity name to scene names.
	ScenesPrefix bool `yaml:"scenes_prefix"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// HistoryConfig contains the optional InfluxDB attribute-history sink settings.
type HistoryConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// InjectConfig points at JSON files replayed on startup for test harnesses.
type InjectConfig struct {
	// Devices is a path to a JSON bridge-devices snapshot.
	Devices string `yaml:"devices"`

	// Payloads is a path to a JSON map of friendly name → payload.
	Payloads string `yaml:"payloads"`
}

// LifecycleConfig controls shutdown behaviour.
type LifecycleConfig struct {
	// UnregisterOnShutdown removes all bridged endpoints from the host
	// fabric during shutdown instead of leaving them offline.
	UnregisterOnShutdown bool `yaml:"unregister_on_shutdown"`
}

// Valid scenes_type values.
var validScenesTypes = map[string]bool{
	"light":          true,
	"outlet":         true,
	"switch":         true,
	"mounted_switch": true,
}

// maxPostfixLength bounds the endpoint name postfix.
const maxPostfixLength = 3

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: ZIGBRIDGE_SECTION_KEY
// For example: ZIGBRIDGE_MQTT_HOST, ZIGBRIDGE_MQTT_PASSWORD
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		MQTT: MQTTConfig{
			Host:            "mqtt://localhost",
			Port:            1883,
			ProtocolVersion: 4,
			Topic:           "zigbee2mqtt",
			ConnectTimeout:  60,
		},
		Endpoints: EndpointConfig{
			ScenesType: "light",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		History: HistoryConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		DataDir: "./data",
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: ZIGBRIDGE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ZIGBRIDGE_MQTT_HOST"); v != "" {
		cfg.MQTT.Host = v
	}
	if v := os.Getenv("ZIGBRIDGE_MQTT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.MQTT.Port = port
		}
	}
	if v := os.Getenv("ZIGBRIDGE_MQTT_TOPIC"); v != "" {
		cfg.MQTT.Topic = v
	}
	if v := os.Getenv("ZIGBRIDGE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Username = v
	}
	if v := os.Getenv("ZIGBRIDGE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Password = v
	}
	if v := os.Getenv("ZIGBRIDGE_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("ZIGBRIDGE_HISTORY_TOKEN"); v != "" {
		cfg.History.Token = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.MQTT.Host == "" {
		errs = append(errs, "mqtt.host is required")
	}
	if c.MQTT.Port < 1 || c.MQTT.Port > 65535 {
		errs = append(errs, "mqtt.port must be between 1 and 65535")
	}
	switch c.MQTT.ProtocolVersion {
	case 3, 4, 5:
	default:
		errs = append(errs, "mqtt.protocol_version must be 3, 4 or 5")
	}
	if c.MQTT.Topic == "" {
		errs = append(errs, "mqtt.topic is required")
	}
	if c.MQTT.ConnectTimeout < 1 {
		errs = append(errs, "mqtt.connect_timeout must be positive")
	}

	if len(c.Endpoints.Postfix) > maxPostfixLength {
		errs = append(errs, "endpoints.postfix must be at most 3 characters")
	}
	if c.Endpoints.ScenesType != "" && !validScenesTypes[c.Endpoints.ScenesType] {
		errs = append(errs, "endpoints.scenes_type must be one of: light, outlet, switch, mounted_switch")
	}

	if c.History.Enabled {
		if c.History.URL == "" {
			errs = append(errs, "history.url is required when history is enabled")
		}
		if c.History.Bucket == "" {
			errs = append(errs, "history.bucket is required when history is enabled")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetConnectTimeout returns the bridge startup wait deadline as a Duration.
func (c *MQTTConfig) GetConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeout) * time.Second
}
