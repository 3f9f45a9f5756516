package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

// API groups the submit and health paths of one ingestion module.
type API struct {
	Name   string
	Submit string
	Health string
}

var (
	SensorAPI = API{Name: "dht11-sensor", Submit: "/dht11-sensor/readings", Health: "/dht11-sensor/health"}
	HostAPI   = API{Name: "pi-health", Submit: "/pi-health/readings", Health: "/pi-health/health"}
)

func LatestReadingPath(deviceID string) string {
	return "/dht11-sensor/readings/latest/" + url.PathEscape(deviceID)
}

func StatsPath(deviceID string, hours int) string {
	return fmt.Sprintf("/dht11-sensor/stats/%s?hours=%d", url.PathEscape(deviceID), hours)
}

func DeviceStatusPath(deviceID string) string {
	return "/pi-health/status/" + url.PathEscape(deviceID)
}

func RecommendationsPath(deviceID string) string {
	return "/pi-health/recommendations/" + url.PathEscape(deviceID)
}

const CriticalAlertsPath = "/pi-health/alerts/critical"

// DeviceStatus is the server's assessment of a host.
type DeviceStatus struct {
	Status      string   `json:"status"`
	HealthScore *float64 `json:"healthScore"`
}

// Recommendation is one advice line. The server may send plain strings or
// objects; objects are kept as their JSON text.
type Recommendation string

func (r *Recommendation) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*r = Recommendation(s)
		return nil
	}
	*r = Recommendation(b)
	return nil
}

// Alert is a critical alert raised by the server.
type Alert struct {
	DeviceID     string `json:"deviceId,omitempty"`
	AlertMessage string `json:"alertMessage"`
}

// LatestReading is the last reading the server stored for a sensor.
type LatestReading struct {
	Temperature *float64 `json:"temperature"`
	Humidity    *float64 `json:"humidity"`
}

// Stats summarises the readings of a sensor over a window.
type Stats struct {
	Count int `json:"count"`
}

func (c *Client) DeviceStatus(ctx context.Context, deviceID string) (DeviceStatus, error) {
	var s DeviceStatus
	err := c.get(ctx, DeviceStatusPath(deviceID), &s)
	return s, err
}

func (c *Client) Recommendations(ctx context.Context, deviceID string) ([]Recommendation, error) {
	var body struct {
		Recommendations []Recommendation `json:"recommendations"`
	}
	err := c.get(ctx, RecommendationsPath(deviceID), &body)
	return body.Recommendations, err
}

func (c *Client) CriticalAlerts(ctx context.Context) ([]Alert, error) {
	var alerts []Alert
	err := c.get(ctx, CriticalAlertsPath, &alerts)
	return alerts, err
}

func (c *Client) LatestReading(ctx context.Context, deviceID string) (LatestReading, error) {
	var r LatestReading
	err := c.get(ctx, LatestReadingPath(deviceID), &r)
	return r, err
}

func (c *Client) Stats(ctx context.Context, deviceID string, hours int) (Stats, error) {
	var s Stats
	err := c.get(ctx, StatsPath(deviceID, hours), &s)
	return s, err
}
