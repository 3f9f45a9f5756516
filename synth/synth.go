// Package synth generates synthetic but temporally plausible telemetry:
// every signal follows a 24 hour sine wave with uniform noise and is
// clamped to a physical range.
package synth

import (
	"math"
	"math/rand"
	"time"
)

// Wave is clamp(Base + Amplitude·sin((hour−Phase)·π/12) + U(−Noise, Noise), Min, Max).
type Wave struct {
	Base      float64
	Amplitude float64
	Phase     float64 // hour of day at which the wave crosses Base going up
	Noise     float64
	Min, Max  float64
}

// At evaluates the wave at a fractional hour of day.
func (w Wave) At(hour float64, rnd *rand.Rand) float64 {
	v := w.Base + diurnal(hour, w.Amplitude, w.Phase) + uniform(rnd, -w.Noise, w.Noise)
	return clamp(v, w.Min, w.Max)
}

// HourOfDay returns the fractional hour of t in its own location.
func HourOfDay(t time.Time) float64 {
	h, m, s := t.Clock()
	return float64(h) + float64(m)/60 + (float64(s)+float64(t.Nanosecond())/1e9)/3600
}

// NewRand returns the generator a simulator draws its noise from. The same
// seed always yields the same sequence.
func NewRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

func diurnal(hour, amplitude, phase float64) float64 {
	return amplitude * math.Sin((hour-phase)*math.Pi/12)
}

func uniform(rnd *rand.Rand, lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return lo + rnd.Float64()*(hi-lo)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
