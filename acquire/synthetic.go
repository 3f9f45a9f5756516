package acquire

import (
	"context"
	"math/rand"
	"sync"

	"PiTelemetry/clock"
	"PiTelemetry/synth"
	"PiTelemetry/telemetry"
)

// SyntheticReading produces simulated sensor readings.
type SyntheticReading struct {
	Model  synth.SensorModel
	Device telemetry.Device
	Clock  clock.Clock
	Rand   *rand.Rand

	mu sync.Mutex
}

func (s *SyntheticReading) Acquire(ctx context.Context) (telemetry.Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Model.Sample(s.Device, s.Clock.Now(), s.Rand), nil
}

// SyntheticHealth produces simulated host health samples.
type SyntheticHealth struct {
	Model  synth.HealthModel
	Device telemetry.Device
	Clock  clock.Clock
	Rand   *rand.Rand

	mu sync.Mutex
}

func (s *SyntheticHealth) Acquire(ctx context.Context) (telemetry.Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Model.Sample(s.Device, s.Clock.Now(), s.Rand), nil
}
