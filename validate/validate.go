// Package validate classifies raw sensor values before they are allowed
// into a reading.
package validate

import (
	"fmt"
	"log/slog"
	"math"
)

// Status is the outcome of classifying a single value.
type Status int

const (
	Valid Status = iota
	Missing
	OutOfRange
)

func (s Status) String() string {
	switch s {
	case Valid:
		return "valid"
	case Missing:
		return "missing"
	case OutOfRange:
		return "out of range"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Result carries the status together with the value it was computed for.
// Value is only meaningful when Status is Valid or OutOfRange.
type Result struct {
	Metric string
	Status Status
	Value  float64
}

func (r Result) OK() bool { return r.Status == Valid }

func (r Result) LogValue() slog.Value {
	if r.Status == Missing {
		return slog.GroupValue(slog.String("metric", r.Metric), slog.String("status", r.Status.String()))
	}
	return slog.GroupValue(
		slog.String("metric", r.Metric),
		slog.String("status", r.Status.String()),
		slog.Float64("value", r.Value),
	)
}

// Bounds is an inclusive plausibility range for one metric.
type Bounds struct {
	Metric   string
	Min, Max float64
}

// Physical ranges a DHT-class sensor can legitimately report.
var (
	Temperature = Bounds{Metric: "temperature", Min: -100, Max: 100}
	Humidity    = Bounds{Metric: "humidity", Min: 0, Max: 100}
)

// Classify reports whether v is present and inside b. A nil pointer and NaN
// are both Missing; infinities are OutOfRange.
func (b Bounds) Classify(v *float64) Result {
	if v == nil || math.IsNaN(*v) {
		return Result{Metric: b.Metric, Status: Missing}
	}
	if *v < b.Min || *v > b.Max {
		return Result{Metric: b.Metric, Status: OutOfRange, Value: *v}
	}
	return Result{Metric: b.Metric, Status: Valid, Value: *v}
}
