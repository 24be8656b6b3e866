package table

import (
	"fmt"
	"time"
)

// Backend names accepted by Open.
const (
	BackendMemory    = "memory"    // In-process only
	BackendWebSocket = "websocket" // Client of a table server
	BackendServer    = "server"    // Embedded table server
	BackendMQTT      = "mqtt"      // Retained topics on an MQTT broker
)

// Config holds table connection configuration.
type Config struct {
	// Backend selects the transport. See the Backend* constants.
	Backend string `yaml:"backend" json:"backend"`

	// Namespace prefixes every vision key.
	// Default: "Vision"
	Namespace string `yaml:"namespace" json:"namespace"`

	// URL is the table server WebSocket endpoint for the websocket backend.
	// Example: "ws://roborio-4607-frc.local:5810/ws/table"
	URL string `yaml:"url" json:"url"`

	// Listen is the address the embedded server binds to.
	Listen string `yaml:"listen" json:"listen"`

	// Broker is the MQTT broker host:port.
	Broker string `yaml:"broker" json:"broker"`

	// TopicRoot prefixes every MQTT topic.
	TopicRoot string `yaml:"topic_root" json:"topic_root"`

	// QoS is the MQTT quality of service for writes.
	QoS byte `yaml:"qos" json:"qos"`

	// ReconnectInterval is how often to attempt reconnection on failure.
	ReconnectInterval time.Duration `yaml:"reconnect_interval" json:"reconnect_interval"`

	// MaxReconnectAttempts is the maximum number of reconnection attempts.
	// 0 means unlimited.
	MaxReconnectAttempts int `yaml:"max_reconnect_attempts" json:"max_reconnect_attempts"`

	// WriteTimeout bounds a single remote write.
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Backend:              BackendMemory,
		Namespace:            DefaultNamespace,
		URL:                  "ws://localhost:5810/ws/table",
		Listen:               ":5810",
		Broker:               "localhost:1883",
		TopicRoot:            "frc",
		QoS:                  1,
		ReconnectInterval:    2 * time.Second,
		MaxReconnectAttempts: 0, // Unlimited
		WriteTimeout:         2 * time.Second,
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendMemory:
	case BackendWebSocket:
		if c.URL == "" {
			return fmt.Errorf("url is required for the websocket backend")
		}
	case BackendServer:
		if c.Listen == "" {
			return fmt.Errorf("listen is required for the server backend")
		}
	case BackendMQTT:
		if c.Broker == "" {
			return fmt.Errorf("broker is required for the mqtt backend")
		}
		if c.QoS > 2 {
			return fmt.Errorf("qos must be 0, 1 or 2, got %d", c.QoS)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.Backend)
	}
	if c.ReconnectInterval <= 0 {
		return fmt.Errorf("reconnect_interval must be positive")
	}
	return nil
}
