package table

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/teslashibe/go-goalvision/pkg/protocol"
	"github.com/vmihailenco/msgpack/v5"
)

// MQTTStore keeps the table as retained MQTT messages, one topic per key.
// Payloads are msgpack-encoded values.
type MQTTStore struct {
	cfg    Config
	logger *slog.Logger
	mirror *Memory
	Client mqtt.Client

	// connectWait is how long Connect waits for the first session before
	// leaving the client to retry in the background.
	connectWait time.Duration

	mu        sync.RWMutex
	connected bool
	errors    uint64
}

// NewMQTTStore creates an MQTT-backed table.
// Call Connect to join the broker.
func NewMQTTStore(cfg Config, logger *slog.Logger) *MQTTStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &MQTTStore{
		cfg:    cfg,
		logger:      logger.With("component", "table_mqtt"),
		mirror:      NewMemory(),
		connectWait: 5 * time.Second,
	}
}

// Topic returns the MQTT topic carrying key.
func (m *MQTTStore) Topic(key string) string {
	if m.cfg.TopicRoot == "" {
		return key
	}
	return m.cfg.TopicRoot + "/" + key
}

// keyFromTopic reverses Topic.
func (m *MQTTStore) keyFromTopic(topic string) (string, bool) {
	if m.cfg.TopicRoot == "" {
		return topic, topic != ""
	}
	key, ok := strings.CutPrefix(topic, m.cfg.TopicRoot+"/")
	return key, ok && key != ""
}

func (m *MQTTStore) subscription() string {
	if m.cfg.TopicRoot == "" {
		return "#"
	}
	return m.cfg.TopicRoot + "/#"
}

// Connect establishes connection to the MQTT broker and subscribes to the table.
// A broker that is not reachable yet is not an error: the client keeps
// retrying in the background and writes fail with ErrNotConnected meanwhile.
func (m *MQTTStore) Connect(ctx context.Context) error {
	clientID := "goalvision-" + uuid.NewString()[:8]

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", m.cfg.Broker))
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(m.cfg.ReconnectInterval)
	opts.SetMaxReconnectInterval(30 * time.Second)

	// Subscriptions do not survive a clean reconnect, so resubscribe each time
	opts.OnConnect = func(c mqtt.Client) {
		m.setConnected(true)
		token := c.Subscribe(m.subscription(), m.cfg.QoS, m.handleMessage)
		if token.WaitTimeout(5*time.Second) && token.Error() != nil {
			m.logger.Error("mqtt subscribe failed", "topic", m.subscription(), "error", token.Error())
		}
		m.logger.Info("mqtt connection established",
			"broker", m.cfg.Broker,
			"client_id", clientID,
			"topic", m.subscription())
	}

	opts.OnConnectionLost = func(c mqtt.Client, err error) {
		m.setConnected(false)
		m.logger.Warn("mqtt connection lost, will auto-reconnect",
			"error", err,
			"broker", m.cfg.Broker)
	}

	m.Client = mqtt.NewClient(opts)

	m.logger.Info("connecting to mqtt broker", "broker", m.cfg.Broker)

	token := m.Client.Connect()
	select {
	case <-token.Done():
	case <-ctx.Done():
		m.Client.Disconnect(0)
		return ctx.Err()
	case <-time.After(m.connectWait):
		m.logger.Warn("mqtt broker not reachable yet, retrying in background", "broker", m.cfg.Broker)
		return nil
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connection failed: %w", err)
	}
	return nil
}

func (m *MQTTStore) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	key, ok := m.keyFromTopic(msg.Topic())
	if !ok {
		return
	}
	if len(msg.Payload()) == 0 {
		return // Retained entry cleared
	}
	v, err := decodeValue(msg.Payload())
	if err != nil {
		m.logger.Debug("bad table payload", "topic", msg.Topic(), "error", err)
		return
	}
	m.mirror.Set(key, v)
}

func (m *MQTTStore) put(key string, v Value) error {
	m.mirror.Set(key, v)

	if !m.isConnected() {
		m.countError()
		return ErrNotConnected
	}

	payload, err := encodeValue(v)
	if err != nil {
		m.countError()
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}

	token := m.Client.Publish(m.Topic(key), m.cfg.QoS, true, payload)
	go m.awaitPublish(key, token)
	return nil
}

// awaitPublish counts a write that the broker fails or does not acknowledge
// within WriteTimeout. Writers never wait on the broker.
func (m *MQTTStore) awaitPublish(key string, token mqtt.Token) {
	if !token.WaitTimeout(m.cfg.WriteTimeout) {
		m.countError()
		m.logger.Debug("mqtt publish not acknowledged", "key", key, "error", ErrPublishTimeout)
		return
	}
	if err := token.Error(); err != nil {
		m.countError()
		m.logger.Debug("mqtt publish failed", "key", key, "error", err)
	}
}

func encodeValue(v Value) ([]byte, error) {
	return msgpack.Marshal(v)
}

func decodeValue(b []byte) (Value, error) {
	var v Value
	if err := msgpack.Unmarshal(b, &v); err != nil {
		return Value{}, err
	}
	if err := v.Validate(); err != nil {
		return Value{}, err
	}
	return v, nil
}

func (m *MQTTStore) GetNumber(key string, def float64) float64 { return m.mirror.GetNumber(key, def) }
func (m *MQTTStore) GetBoolean(key string, def bool) bool       { return m.mirror.GetBoolean(key, def) }
func (m *MQTTStore) GetRaw(key string) ([]byte, bool)           { return m.mirror.GetRaw(key) }
func (m *MQTTStore) GetNumberArray(key string, def []float64) []float64 {
	return m.mirror.GetNumberArray(key, def)
}

func (m *MQTTStore) PutNumber(key string, v float64) error {
	return m.put(key, protocol.NumberValue(v))
}

func (m *MQTTStore) PutBoolean(key string, v bool) error {
	return m.put(key, protocol.BooleanValue(v))
}

func (m *MQTTStore) PutNumberArray(key string, v []float64) error {
	return m.put(key, protocol.NumberArrayValue(v))
}

func (m *MQTTStore) PutRaw(key string, v []byte) error {
	return m.put(key, protocol.RawValue(v))
}

// Errors returns the number of failed writes.
func (m *MQTTStore) Errors() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.errors
}

// Close disconnects from the broker.
func (m *MQTTStore) Close() error {
	// Disconnect also stops a client still retrying its first connect.
	if m.Client != nil {
		m.Client.Disconnect(250) // 250ms grace period
		m.logger.Info("mqtt disconnected")
	}
	m.setConnected(false)
	return nil
}

func (m *MQTTStore) setConnected(v bool) {
	m.mu.Lock()
	m.connected = v
	m.mu.Unlock()
}

func (m *MQTTStore) isConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

func (m *MQTTStore) countError() {
	m.mu.Lock()
	m.errors++
	m.mu.Unlock()
}
