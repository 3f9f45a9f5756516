package synth

import (
	"math"
	"math/rand"
	"time"

	"PiTelemetry/telemetry"
)

// HealthModel produces Raspberry Pi host metrics following a daily load
// pattern. Uptime counts from BootTime, which is fixed for the life of the
// simulator.
type HealthModel struct {
	BootTime time.Time
}

var (
	cpuTemperatureWave = Wave{Base: 45, Amplitude: 10, Phase: 6, Noise: 2, Min: 20, Max: 85}
	diskWave           = Wave{Base: 60, Noise: 2, Min: 40, Max: 95}
)

const (
	usageAmplitude = 20
	usagePhase     = 8
)

// NewHealthModel returns a model whose simulated host booted up to a day
// before now.
func NewHealthModel(now time.Time, rnd *rand.Rand) HealthModel {
	up := time.Duration(uniform(rnd, 3600, 86400) * float64(time.Second))
	return HealthModel{BootTime: now.Add(-up)}
}

// Sample returns one rounded health sample for now.
func (m HealthModel) Sample(dev telemetry.Device, now time.Time, rnd *rand.Rand) telemetry.HealthSample {
	hour := HourOfDay(now)
	swing := diurnal(hour, usageAmplitude, usagePhase)

	h := telemetry.NewHealthSample(dev, now)
	h.CPUTemperature = cpuTemperatureWave.At(hour, rnd)
	h.CPUUsage = clamp(30+swing+uniform(rnd, -5, 5), 5, 95)
	h.MemoryUsage = clamp(50+0.8*swing+uniform(rnd, -3, 3), 20, 90)
	h.DiskUsage = diskWave.At(hour, rnd)

	h.LoadAverage1m = math.Max(0.1, h.CPUUsage/100*2+uniform(rnd, -0.5, 0.5))
	h.LoadAverage5m = math.Max(0, h.LoadAverage1m*0.8+uniform(rnd, -0.2, 0.2))
	h.LoadAverage15m = math.Max(0, h.LoadAverage5m*0.9+uniform(rnd, -0.1, 0.1))

	h.NetworkUpload = uniform(rnd, 0, 10)
	h.NetworkDownload = uniform(rnd, 0, 20)
	h.Uptime = math.Max(0, now.Sub(m.BootTime).Seconds())

	voltage := 4.8 + uniform(rnd, -0.2, 0.2)
	frequency := 1400 + uniform(rnd, -100, 100)
	h.Voltage = &voltage
	h.Frequency = &frequency

	return h.Rounded()
}
