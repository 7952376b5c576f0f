// Package transmit ships dispatch records off the sampler.
package transmit

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/itohio/fanguard/pkg/config"
	"github.com/itohio/fanguard/pkg/dispatch"
	"github.com/itohio/fanguard/pkg/power"
)

var (
	_ dispatch.Transmitter = (*MQTT)(nil)
	_ power.Radio          = (*MQTT)(nil)
)

// MQTT publishes records as JSON to a broker. All publishes happen on the
// goroutine started by Start.
type MQTT struct {
	cfg    config.MQTTConfig
	logger *slog.Logger

	sending sync.Mutex // held for the duration of one publish
	done    chan struct{}
}

// NewMQTT creates an MQTT transmitter. An empty client ID is replaced by a
// random one.
func NewMQTT(cfg config.MQTTConfig, logger *slog.Logger) *MQTT {
	if cfg.ClientID == "" {
		cfg.ClientID = "fanguard-" + uuid.NewString()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &MQTT{
		cfg:    cfg,
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Start implements dispatch.Transmitter.
func (m *MQTT) Start(ctx context.Context, records <-chan dispatch.Record, redeliver func() (dispatch.Record, bool)) {
	connected := make(chan struct{}, 1)

	opts := mqtt.NewClientOptions().
		AddBroker(m.cfg.Broker).
		SetClientID(m.cfg.ClientID).
		SetConnectTimeout(m.cfg.ConnectTimeout).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetOnConnectHandler(func(mqtt.Client) {
			select {
			case connected <- struct{}{}:
			default:
			}
		}).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			m.logger.Warn("MQTT connection lost", "error", err)
		})

	client := mqtt.NewClient(opts)
	client.Connect()

	go m.run(ctx, client, records, connected, redeliver)
}

// Done is closed once the transmitter has disconnected.
func (m *MQTT) Done() <-chan struct{} { return m.done }

// Quiesce implements power.Radio by waiting for an in-flight publish.
func (m *MQTT) Quiesce() {
	m.sending.Lock()
	defer m.sending.Unlock()
}

func (m *MQTT) run(ctx context.Context, client mqtt.Client, records <-chan dispatch.Record, connected <-chan struct{}, redeliver func() (dispatch.Record, bool)) {
	defer close(m.done)
	defer client.Disconnect(250)

	m.logger.Info("transmission started", "broker", m.cfg.Broker, "client_id", m.cfg.ClientID, "topic", m.cfg.Topic)

	for {
		select {
		case <-ctx.Done():
			return
		case <-connected:
			m.logger.Info("connected to MQTT")
			m.redeliver(client, redeliver)
		case rec := <-records:
			m.publish(client, rec)
			if client.IsConnected() {
				m.redeliver(client, redeliver)
			}
		}
	}
}

// redeliver publishes the latched anomaly if it has not been taken yet.
func (m *MQTT) redeliver(client mqtt.Client, take func() (dispatch.Record, bool)) {
	if rec, ok := take(); ok {
		m.logger.Info("redelivering anomaly", "time_stamp", rec.TimestampMs)
		m.publish(client, rec)
	}
}

func (m *MQTT) publish(client mqtt.Client, rec dispatch.Record) {
	m.sending.Lock()
	defer m.sending.Unlock()

	payload, err := json.Marshal(rec)
	if err != nil {
		m.logger.Error("json marshal error", "error", err)
		return
	}

	token := client.Publish(m.cfg.Topic, m.cfg.QoS, false, payload)
	if !token.WaitTimeout(m.cfg.PublishTimeout) {
		m.logger.Warn("MQTT publish timed out", "time_stamp", rec.TimestampMs)
		return
	}
	if err := token.Error(); err != nil {
		m.logger.Error("MQTT publish error", "error", err, "time_stamp", rec.TimestampMs)
		return
	}
	m.logger.Debug("record sent", "time_stamp", rec.TimestampMs, "anomaly", rec.Anomaly)
}
