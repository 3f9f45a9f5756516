package sidecar

import (
	"context"
	"log/slog"

	"PiTelemetry/ingest"
)

// HostQueries is the part of the ingestion client the host sidecars use.
type HostQueries interface {
	DeviceStatus(ctx context.Context, deviceID string) (ingest.DeviceStatus, error)
	Recommendations(ctx context.Context, deviceID string) ([]ingest.Recommendation, error)
	CriticalAlerts(ctx context.Context) ([]ingest.Alert, error)
}

// SensorQueries is the part of the ingestion client the sensor sidecars use.
type SensorQueries interface {
	LatestReading(ctx context.Context, deviceID string) (ingest.LatestReading, error)
	Stats(ctx context.Context, deviceID string, hours int) (ingest.Stats, error)
}

// maxLoggedAlerts caps how many alert messages are written per query.
const maxLoggedAlerts = 3

func DeviceStatus(api HostQueries, deviceID string) Query {
	return Query{Name: "deviceStatus", Run: func(ctx context.Context, log *slog.Logger) error {
		st, err := api.DeviceStatus(ctx, deviceID)
		if err != nil {
			return err
		}
		attrs := []any{"status", st.Status}
		if st.HealthScore != nil {
			attrs = append(attrs, "healthScore", *st.HealthScore)
		}
		log.Info("device status", attrs...)
		return nil
	}}
}

func Recommendations(api HostQueries, deviceID string) Query {
	return Query{Name: "recommendations", Run: func(ctx context.Context, log *slog.Logger) error {
		recs, err := api.Recommendations(ctx, deviceID)
		if err != nil {
			return err
		}
		for _, rec := range recs {
			log.Info("system recommendation", "recommendation", string(rec))
		}
		return nil
	}}
}

func CriticalAlerts(api HostQueries) Query {
	return Query{Name: "criticalAlerts", Run: func(ctx context.Context, log *slog.Logger) error {
		alerts, err := api.CriticalAlerts(ctx)
		if err != nil {
			return err
		}
		if len(alerts) == 0 {
			return nil
		}
		log.Warn("critical alerts", "count", len(alerts))
		for _, a := range alerts[:min(len(alerts), maxLoggedAlerts)] {
			msg := a.AlertMessage
			if msg == "" {
				msg = "No message"
			}
			log.Warn("critical alert", "message", msg)
		}
		return nil
	}}
}

func LatestReading(api SensorQueries, deviceID string) Query {
	return Query{Name: "latestReading", Run: func(ctx context.Context, log *slog.Logger) error {
		r, err := api.LatestReading(ctx, deviceID)
		if err != nil {
			return err
		}
		attrs := []any{}
		if r.Temperature != nil {
			attrs = append(attrs, "temperature", *r.Temperature)
		}
		if r.Humidity != nil {
			attrs = append(attrs, "humidity", *r.Humidity)
		}
		log.Info("latest reading", attrs...)
		return nil
	}}
}

func Stats(api SensorQueries, deviceID string, hours int) Query {
	return Query{Name: "stats", Run: func(ctx context.Context, log *slog.Logger) error {
		s, err := api.Stats(ctx, deviceID, hours)
		if err != nil {
			return err
		}
		log.Info("reading stats", "count", s.Count, "hours", hours)
		return nil
	}}
}
