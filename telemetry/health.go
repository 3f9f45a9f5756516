package telemetry

import (
	"log/slog"
	"time"
)

// HealthSample is one snapshot of host metrics. Voltage and Frequency are
// nil when the platform cannot report them and are then left out of the
// payload entirely.
type HealthSample struct {
	DeviceID        string    `json:"deviceId"`
	CPUTemperature  float64   `json:"cpuTemperature"`
	CPUUsage        float64   `json:"cpuUsage"`
	MemoryUsage     float64   `json:"memoryUsage"`
	DiskUsage       float64   `json:"diskUsage"`
	NetworkUpload   float64   `json:"networkUpload"`
	NetworkDownload float64   `json:"networkDownload"`
	Uptime          float64   `json:"uptime"`
	LoadAverage1m   float64   `json:"loadAverage1m"`
	LoadAverage5m   float64   `json:"loadAverage5m"`
	LoadAverage15m  float64   `json:"loadAverage15m"`
	Voltage         *float64  `json:"voltage,omitempty"`
	Frequency       *float64  `json:"frequency,omitempty"`
	Timestamp       Timestamp `json:"timestamp"`
	Location        Location  `json:"location"`
}

func NewHealthSample(dev Device, date time.Time) HealthSample {
	return HealthSample{
		DeviceID:  dev.ID,
		Timestamp: Timestamp(date),
		Location:  dev.Location,
	}
}

// Rounded returns a copy with wire precision applied: two decimals for
// every metric, three for voltage and whole MHz for frequency.
func (h HealthSample) Rounded() HealthSample {
	for _, f := range []*float64{
		&h.CPUTemperature, &h.CPUUsage, &h.MemoryUsage, &h.DiskUsage,
		&h.NetworkUpload, &h.NetworkDownload, &h.Uptime,
		&h.LoadAverage1m, &h.LoadAverage5m, &h.LoadAverage15m,
	} {
		*f = Round(*f, 2)
	}
	if h.Voltage != nil {
		v := Round(*h.Voltage, 3)
		h.Voltage = &v
	}
	if h.Frequency != nil {
		v := Round(*h.Frequency, 0)
		h.Frequency = &v
	}
	return h
}

func (h HealthSample) Kind() Kind     { return KindHealth }
func (h HealthSample) Device() string { return h.DeviceID }

func (h HealthSample) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Float64("cpuTemperature", h.CPUTemperature),
		slog.Float64("cpuUsage", h.CPUUsage),
		slog.Float64("memoryUsage", h.MemoryUsage),
		slog.Float64("diskUsage", h.DiskUsage),
		slog.Float64("loadAverage1m", h.LoadAverage1m),
	}
	if h.Voltage != nil {
		attrs = append(attrs, slog.Float64("voltage", *h.Voltage))
	}
	if h.Frequency != nil {
		attrs = append(attrs, slog.Float64("frequency", *h.Frequency))
	}
	return slog.GroupValue(attrs...)
}
