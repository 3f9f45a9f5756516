// Package telemetry holds the samples the agents report and the device
// metadata used to stamp them.
package telemetry

import (
	"log/slog"
	"math"
	"time"
)

// TimeLayout is ISO 8601 in UTC with a literal trailing Z.
const TimeLayout = "2006-01-02T15:04:05.999999Z"

// Kind names the variant a sample belongs to.
type Kind string

const (
	KindReading Kind = "reading"
	KindHealth  Kind = "health"
)

// Sample is anything an Acquirer produces and a Reporter submits.
type Sample interface {
	slog.LogValuer
	Kind() Kind
	Device() string
}

// Location is the fixed position of a device.
type Location struct {
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
}

// Device is the static metadata stamped onto every sample.
type Device struct {
	ID         string
	Location   Location
	GPIOPin    int
	SensorType string
}

// Timestamp marshals as TimeLayout regardless of the zone it was taken in.
type Timestamp time.Time

func (t Timestamp) Time() time.Time { return time.Time(t) }

func (t Timestamp) String() string { return time.Time(t).UTC().Format(TimeLayout) }

func (t Timestamp) MarshalJSON() ([]byte, error) {
	b := make([]byte, 0, len(TimeLayout)+2)
	b = append(b, '"')
	b = time.Time(t).UTC().AppendFormat(b, TimeLayout)
	return append(b, '"'), nil
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	parsed, err := time.Parse(`"`+time.RFC3339Nano+`"`, string(b))
	if err != nil {
		return err
	}
	*t = Timestamp(parsed)
	return nil
}

// Round rounds v half away from zero to the given number of decimal places.
func Round(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}
