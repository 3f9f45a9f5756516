// Package mirror republishes every reported sample to an MQTT broker so
// local consumers can follow the device without polling the API.
package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"PiTelemetry/telemetry"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
	quiesceMillis  = 250
)

// ErrPublishTimeout is returned when the broker did not acknowledge in time.
var ErrPublishTimeout = errors.New("mqtt publish timed out")

// MQTT publishes samples to <prefix>/<deviceId>/<kind>.
type MQTT struct {
	client mqtt.Client
	prefix string
}

// Dial connects to broker (e.g. tcp://localhost:1883).
func Dial(broker, clientID, prefix string) (*MQTT, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetConnectTimeout(connectTimeout).
		SetAutoReconnect(true)
	c := mqtt.NewClient(opts)
	token := c.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("mqtt connect to %s: timed out", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect to %s: %w", broker, err)
	}
	return New(c, prefix), nil
}

// New wraps an already configured client.
func New(c mqtt.Client, prefix string) *MQTT {
	return &MQTT{client: c, prefix: strings.Trim(prefix, "/")}
}

// Topic returns the topic a sample is published on.
func (m *MQTT) Topic(s telemetry.Sample) string {
	return fmt.Sprintf("%s/%s/%s", m.prefix, s.Device(), s.Kind())
}

// Publish sends s with QoS 0, not retained.
func (m *MQTT) Publish(ctx context.Context, s telemetry.Sample) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return err
	}
	token := m.client.Publish(m.Topic(s), 0, false, payload)
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(publishTimeout):
		return ErrPublishTimeout
	}
}

// Close disconnects after letting queued messages drain briefly.
func (m *MQTT) Close() error {
	m.client.Disconnect(quiesceMillis)
	return nil
}
