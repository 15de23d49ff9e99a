// Package emitter publishes periodic pipeline status over MQTT.
// Entirely optional: the pipeline runs the same with no broker configured.
package emitter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/visiona/framecast/internal/metrics"
)

// connectTimeout bounds the initial broker handshake.
const connectTimeout = 5 * time.Second

// Status is the JSON payload published on each tick.
type Status struct {
	Role    string           `json:"role"` // "streamer" or "viewer"
	Uptime  string           `json:"uptime"`
	Metrics metrics.Snapshot `json:"metrics"`
}

// StatusEmitter periodically publishes metrics snapshots to an MQTT topic.
type StatusEmitter struct {
	client   mqtt.Client
	topic    string
	interval time.Duration
	role     string
	snapshot func() metrics.Snapshot
	started  time.Time
}

// New creates an emitter for the given broker ("host:port") and topic.
// snapshot is polled on every tick.
func New(broker, topic, role string, interval time.Duration, snapshot func() metrics.Snapshot) *StatusEmitter {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", broker))
	opts.SetClientID(fmt.Sprintf("framecast-%s-%s", role, uuid.NewString()[:8]))
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(mqtt.Client) {
		slog.Info("mqtt connection established", "broker", broker, "topic", topic)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		slog.Warn("mqtt connection lost", "broker", broker, "error", err)
	}

	return &StatusEmitter{
		client:   mqtt.NewClient(opts),
		topic:    topic,
		interval: interval,
		role:     role,
		snapshot: snapshot,
	}
}

// Connect establishes the broker connection.
func (e *StatusEmitter) Connect() error {
	token := e.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("emitter: connect timeout after %s", connectTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("emitter: connect: %w", err)
	}
	e.started = time.Now()
	return nil
}

// Run publishes a status message every interval until ctx is cancelled.
// Publish failures are logged and skipped; status is best-effort.
func (e *StatusEmitter) Run(ctx context.Context) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.publish()
		}
	}
}

func (e *StatusEmitter) publish() {
	status := Status{
		Role:    e.role,
		Uptime:  time.Since(e.started).Round(time.Second).String(),
		Metrics: e.snapshot(),
	}

	payload, err := json.Marshal(status)
	if err != nil {
		slog.Error("status marshal failed", "error", err)
		return
	}

	token := e.client.Publish(e.topic, 0, false, payload)
	if token.WaitTimeout(time.Second) && token.Error() != nil {
		slog.Warn("status publish failed", "error", token.Error())
	}
}

// Close disconnects from the broker.
func (e *StatusEmitter) Close() {
	e.client.Disconnect(250)
	slog.Info("mqtt emitter closed")
}
