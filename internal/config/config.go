package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration for the sigfox-server process.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	API         APIConfig         `yaml:"api"`
	Database    DatabaseConfig    `yaml:"database"`
	NATS        NATSConfig        `yaml:"nats"`
	JWT         JWTConfig         `yaml:"jwt"`
	Log         LogConfig         `yaml:"log"`
	Gateway     GatewayConfig     `yaml:"gateway"`
	Integration IntegrationConfig `yaml:"integration"`
}

// ServerConfig identifies the running process.
type ServerConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// APIConfig configures the HTTP API listener.
type APIConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig configures the Postgres frame-log/device-registry store.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// NATSConfig configures the internal pub/sub bus that carries decoded
// uplinks and downlink-send requests between the API, gateway listener
// and integration forwarder.
type NATSConfig struct {
	URL               string        `yaml:"url"`
	ClientID          string        `yaml:"client_id"`
	Username          string        `yaml:"username"`
	Password          string        `yaml:"password"`
	MaxReconnects     int           `yaml:"max_reconnects"`
	ReconnectInterval time.Duration `yaml:"reconnect_interval"`
}

// JWTConfig configures bearer-token auth on the device-registry and
// brute-force endpoints.
type JWTConfig struct {
	Secret         string        `yaml:"secret"`
	AccessTokenTTL time.Duration `yaml:"access_token_ttl"`
}

// LogConfig configures zerolog.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "console" or "json"
}

// GatewayConfig configures the UDP listener that receives raw on-air
// uplink frames (preamble + bytes) from a base-station simulator,
// standing in for the radio front-end the codec core deliberately
// excludes.
type GatewayConfig struct {
	UDPBind       string        `yaml:"udp_bind"`
	StatsInterval time.Duration `yaml:"stats_interval"`
	ReadTimeout   time.Duration `yaml:"read_timeout"`
}

// IntegrationConfig configures forwarding of decoded uplinks to an
// operator-owned system, mirroring the two transports the teacher's
// application integrations support.
type IntegrationConfig struct {
	HTTP HTTPIntegrationConfig `yaml:"http"`
	MQTT MQTTIntegrationConfig `yaml:"mqtt"`
}

// HTTPIntegrationConfig posts decoded-uplink JSON to Endpoint.
type HTTPIntegrationConfig struct {
	Enabled  bool              `yaml:"enabled"`
	Endpoint string            `yaml:"endpoint"`
	Headers  map[string]string `yaml:"headers"`
	Timeout  time.Duration     `yaml:"timeout"`
}

// MQTTIntegrationConfig publishes decoded-uplink JSON to an MQTT broker.
type MQTTIntegrationConfig struct {
	Enabled      bool   `yaml:"enabled"`
	BrokerURL    string `yaml:"broker_url"`
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	TopicPattern string `yaml:"topic_pattern"` // supports {devid}
	QoS          byte   `yaml:"qos"`
}

// Load reads and parses filename, then applies environment overrides.
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.applyEnvOverrides()
	cfg.setDefaults()

	return &cfg, nil
}

// applyEnvOverrides lets common deployment knobs be set without editing
// the YAML file, matching the teacher's convention for secrets in
// particular.
func (c *Config) applyEnvOverrides() {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		c.Database.DSN = dsn
	}
	if natsURL := os.Getenv("NATS_URL"); natsURL != "" {
		c.NATS.URL = natsURL
	}
	if jwtSecret := os.Getenv("JWT_SECRET"); jwtSecret != "" {
		c.JWT.Secret = jwtSecret
	}
	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		c.Log.Level = logLevel
	}
}

func (c *Config) setDefaults() {
	if c.Server.Name == "" {
		c.Server.Name = "sigfox-server"
	}
	if c.API.Port == 0 {
		c.API.Port = 8080
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 25
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.NATS.URL == "" {
		c.NATS.URL = "nats://localhost:4222"
	}
	if c.JWT.AccessTokenTTL == 0 {
		c.JWT.AccessTokenTTL = time.Hour
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Gateway.UDPBind == "" {
		c.Gateway.UDPBind = ":1700"
	}
	if c.Gateway.ReadTimeout == 0 {
		c.Gateway.ReadTimeout = 5 * time.Second
	}
	if c.Integration.HTTP.Timeout == 0 {
		c.Integration.HTTP.Timeout = 10 * time.Second
	}
}

// PrintConfigSummary prints a short human-readable summary at startup.
func (c *Config) PrintConfigSummary() {
	fmt.Printf("=== sigfox-server configuration ===\n")
	fmt.Printf("Server: %s v%s\n", c.Server.Name, c.Server.Version)
	fmt.Printf("API: %s:%d\n", c.API.Host, c.API.Port)
	fmt.Printf("Gateway UDP bind: %s\n", c.Gateway.UDPBind)
	fmt.Printf("NATS: %s\n", c.NATS.URL)
	if c.Integration.HTTP.Enabled {
		fmt.Printf("Integration HTTP: %s\n", c.Integration.HTTP.Endpoint)
	}
	if c.Integration.MQTT.Enabled {
		fmt.Printf("Integration MQTT: %s\n", c.Integration.MQTT.BrokerURL)
	}
	fmt.Printf("====================================\n")
}
