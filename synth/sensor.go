package synth

import (
	"math/rand"
	"time"

	"PiTelemetry/telemetry"
)

// SensorModel produces DHT11-like readings for an indoor room: warmest in
// the afternoon, with humidity moving opposite to temperature.
type SensorModel struct {
	Temperature Wave
	Humidity    Wave
}

var DefaultSensorModel = SensorModel{
	Temperature: Wave{Base: 22, Amplitude: 3, Phase: 6, Noise: 0.5, Min: -10, Max: 50},
	Humidity:    Wave{Base: 45, Amplitude: -10, Phase: 6, Noise: 1, Min: 20, Max: 80},
}

// Sample returns one reading for now, rounded to one decimal.
func (m SensorModel) Sample(dev telemetry.Device, now time.Time, rnd *rand.Rand) telemetry.Reading {
	hour := HourOfDay(now)
	temp := telemetry.Round(m.Temperature.At(hour, rnd), 1)
	hum := telemetry.Round(m.Humidity.At(hour, rnd), 1)
	return telemetry.NewReading(dev, temp, hum, now)
}
