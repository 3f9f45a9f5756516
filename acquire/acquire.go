// Package acquire turns a data source into one sample per cycle. The
// sensor path retries until it gets a plausible value, the host path
// never fails and the simulator path synthesises values from the clock.
package acquire

import (
	"context"
	"errors"

	"PiTelemetry/telemetry"
)

var (
	// ErrNoReading is returned when every attempt of a cycle failed.
	ErrNoReading = errors.New("no valid reading")
	// ErrSourceUnavailable wraps driver errors from a SensorSource.
	ErrSourceUnavailable = errors.New("sensor source unavailable")
)

// Acquirer produces the sample for one cycle.
type Acquirer interface {
	Acquire(ctx context.Context) (telemetry.Sample, error)
}

// AcquirerFunc adapts a function to Acquirer.
type AcquirerFunc func(ctx context.Context) (telemetry.Sample, error)

func (f AcquirerFunc) Acquire(ctx context.Context) (telemetry.Sample, error) { return f(ctx) }
