package acquire

import (
	"context"
	"log/slog"

	"PiTelemetry/clock"
	"PiTelemetry/telemetry"
)

// HostMetrics is one getter per host metric. Getters may fail
// independently.
type HostMetrics interface {
	CPUTemperature(ctx context.Context) (float64, error)
	CPUUsage(ctx context.Context) (float64, error)
	MemoryUsage(ctx context.Context) (float64, error)
	DiskUsage(ctx context.Context) (float64, error)
	Network(ctx context.Context) (upload, download float64, err error)
	Uptime(ctx context.Context) (float64, error)
	LoadAverages(ctx context.Context) (l1, l5, l15 float64, err error)
	Voltage(ctx context.Context) (float64, error)
	Frequency(ctx context.Context) (float64, error)
}

// BestEffort collects every HostMetrics value once. A failing getter
// contributes 0, or is left out for voltage and frequency; Acquire itself
// never fails.
type BestEffort struct {
	Metrics HostMetrics
	Device  telemetry.Device
	Clock   clock.Clock
	Log     *slog.Logger
}

func (b *BestEffort) Acquire(ctx context.Context) (telemetry.Sample, error) {
	h := telemetry.NewHealthSample(b.Device, b.Clock.Now())

	h.CPUTemperature = b.scalar(ctx, "cpuTemperature", b.Metrics.CPUTemperature)
	h.CPUUsage = b.scalar(ctx, "cpuUsage", b.Metrics.CPUUsage)
	h.MemoryUsage = b.scalar(ctx, "memoryUsage", b.Metrics.MemoryUsage)
	h.DiskUsage = b.scalar(ctx, "diskUsage", b.Metrics.DiskUsage)

	up, down, err := b.Metrics.Network(ctx)
	if err != nil {
		b.Log.Error("collecting metric", "metric", "network", "err", err)
		up, down = 0, 0
	}
	h.NetworkUpload, h.NetworkDownload = up, down

	h.Uptime = b.scalar(ctx, "uptime", b.Metrics.Uptime)

	l1, l5, l15, err := b.Metrics.LoadAverages(ctx)
	if err != nil {
		b.Log.Error("collecting metric", "metric", "loadAverage", "err", err)
		l1, l5, l15 = 0, 0, 0
	}
	h.LoadAverage1m, h.LoadAverage5m, h.LoadAverage15m = l1, l5, l15

	h.Voltage = b.optional(ctx, "voltage", b.Metrics.Voltage)
	h.Frequency = b.optional(ctx, "frequency", b.Metrics.Frequency)

	return h.Rounded(), nil
}

func (b *BestEffort) scalar(ctx context.Context, name string, get func(context.Context) (float64, error)) float64 {
	v, err := get(ctx)
	if err != nil {
		b.Log.Error("collecting metric", "metric", name, "err", err)
		return 0
	}
	return v
}

// optional metrics are expected to be missing off a Raspberry Pi, so a
// failure is only logged at debug level.
func (b *BestEffort) optional(ctx context.Context, name string, get func(context.Context) (float64, error)) *float64 {
	v, err := get(ctx)
	if err != nil {
		b.Log.Debug("metric unavailable", "metric", name, "err", err)
		return nil
	}
	return &v
}
