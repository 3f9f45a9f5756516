package telemetry

import (
	"log/slog"
	"time"
)

// Reading is one validated temperature/humidity measurement.
type Reading struct {
	DeviceID    string    `json:"deviceId"`
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
	Timestamp   Timestamp `json:"timestamp"`
	GPIOPin     int       `json:"gpioPin"`
	SensorType  string    `json:"sensorType"`
	Location    Location  `json:"location"`
}

func NewReading(dev Device, temperature, humidity float64, date time.Time) Reading {
	return Reading{
		DeviceID:    dev.ID,
		Temperature: temperature,
		Humidity:    humidity,
		Timestamp:   Timestamp(date),
		GPIOPin:     dev.GPIOPin,
		SensorType:  dev.SensorType,
		Location:    dev.Location,
	}
}

func (r Reading) Kind() Kind     { return KindReading }
func (r Reading) Device() string { return r.DeviceID }

func (r Reading) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Float64("temperature", r.Temperature),
		slog.Float64("humidity", r.Humidity),
		slog.String("timestamp", r.Timestamp.String()),
	)
}
