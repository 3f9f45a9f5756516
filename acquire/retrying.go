package acquire

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"PiTelemetry/clock"
	"PiTelemetry/telemetry"
	"PiTelemetry/validate"
)

// Raw is an unvalidated sensor read. Either field may be nil when the
// driver returned nothing for it.
type Raw struct {
	Temperature *float64
	Humidity    *float64
}

// SensorSource is a physical (or fake) temperature/humidity sensor.
type SensorSource interface {
	Read(ctx context.Context) (Raw, error)
}

// Retrying reads a SensorSource up to MaxRetries times per cycle and
// returns the first reading whose temperature and humidity both validate.
type Retrying struct {
	Source     SensorSource
	Device     telemetry.Device
	MaxRetries int
	Backoff    time.Duration
	Clock      clock.Clock
	Log        *slog.Logger
}

func (r *Retrying) Acquire(ctx context.Context) (telemetry.Sample, error) {
	attempts := max(r.MaxRetries, 1)
	var last error
	for attempt := 1; attempt <= attempts; attempt++ {
		reading, err := r.attempt(ctx, attempt)
		if err == nil {
			return reading, nil
		}
		last = err
		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-r.Clock.After(r.Backoff):
		}
	}
	return nil, fmt.Errorf("%w after %d attempts: %w", ErrNoReading, attempts, last)
}

func (r *Retrying) attempt(ctx context.Context, attempt int) (telemetry.Reading, error) {
	raw, err := r.Source.Read(ctx)
	if err != nil {
		r.Log.Error("sensor read failed", "attempt", attempt, "err", err)
		return telemetry.Reading{}, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}

	temp := validate.Temperature.Classify(raw.Temperature)
	hum := validate.Humidity.Classify(raw.Humidity)
	for _, res := range []validate.Result{temp, hum} {
		switch res.Status {
		case validate.Missing:
			r.Log.Warn("sensor returned no value", "attempt", attempt, "check", res)
			return telemetry.Reading{}, fmt.Errorf("%s %s", res.Metric, res.Status)
		case validate.OutOfRange:
			r.Log.Warn("sensor value out of range", "attempt", attempt, "check", res)
			return telemetry.Reading{}, fmt.Errorf("%s %s: %v", res.Metric, res.Status, res.Value)
		}
	}

	return telemetry.NewReading(r.Device, temp.Value, hum.Value, r.Clock.Now()), nil
}
