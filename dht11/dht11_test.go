package dht11

import (
	"errors"
	"testing"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/physic"
)

func bitsOf(frame [5]byte) []time.Duration {
	highs := []time.Duration{80 * time.Microsecond}
	for _, b := range frame {
		for i := 7; i >= 0; i-- {
			if b&(1<<i) != 0 {
				highs = append(highs, 70*time.Microsecond)
			} else {
				highs = append(highs, 27*time.Microsecond)
			}
		}
	}
	return highs
}

func TestDecodePulses(t *testing.T) {
	want := [5]byte{45, 0, 22, 5, 72}
	got, err := decodePulses(bitsOf(want))
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("decodePulses = %v, want %v", got, want)
	}

	if _, err := decodePulses(bitsOf(want)[:30]); !errors.Is(err, ErrTimeout) {
		t.Errorf("short frame: err = %v, want ErrTimeout", err)
	}
}

func TestParseFrame(t *testing.T) {
	tests := []struct {
		name     string
		frame    [5]byte
		wantTemp int
		wantRH   int
		wantErr  error
	}{
		{"nominal", [5]byte{48, 0, 22, 5, 75}, 225, 480, nil},
		{"negative", [5]byte{30, 0, 3, 0x80 | 2, 0x80 + 35}, -32, 300, nil},
		{"just below zero", [5]byte{40, 0, 1, 0x85, 40 + 1 + 0x85}, -15, 400, nil},
		{"tenths nibble only", [5]byte{40, 0, 1, 0x75, 40 + 1 + 0x75}, 15, 400, nil},
		{"checksum wraps", [5]byte{200, 0, 100, 0, 44}, 1000, 2000, nil},
		{"bad checksum", [5]byte{48, 0, 22, 5, 74}, 0, 0, ErrChecksum},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			temp, rh, err := parseFrame(tt.frame)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if temp != tt.wantTemp || rh != tt.wantRH {
				t.Errorf("parseFrame = (%d, %d), want (%d, %d)", temp, rh, tt.wantTemp, tt.wantRH)
			}
		})
	}
}

// scriptedPin queues the sensor's answer once the host releases the line.
type scriptedPin struct {
	*gpiotest.Pin
	levels []gpio.Level
}

func (p *scriptedPin) In(pull gpio.Pull, edge gpio.Edge) error {
	if err := p.Pin.In(pull, edge); err != nil {
		return err
	}
	for _, l := range p.levels {
		p.EdgesChan <- l
	}
	return nil
}

func TestSense(t *testing.T) {
	old := doSleep
	doSleep = func(time.Duration) {}
	t.Cleanup(func() { doSleep = old })

	frame := [5]byte{48, 0, 22, 5, 75}
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	// The preamble low, then a rise and fall for every high period. One
	// timestamp is taken per edge.
	levels := []gpio.Level{gpio.Low}
	times := []time.Time{start}
	at := start.Add(80 * time.Microsecond)
	for _, h := range bitsOf(frame) {
		levels = append(levels, gpio.High, gpio.Low)
		times = append(times, at, at.Add(h))
		at = at.Add(h + 50*time.Microsecond)
	}

	pin := &scriptedPin{
		Pin:    &gpiotest.Pin{N: "GPIO4", Num: 4, EdgesChan: make(chan gpio.Level, len(levels))},
		levels: levels,
	}
	dev, err := New(pin)
	if err != nil {
		t.Fatal(err)
	}
	i := 0
	dev.now = func() time.Time {
		if i < len(times) {
			i++
			return times[i-1]
		}
		return at
	}

	var e physic.Env
	if err := dev.Sense(&e); err != nil {
		t.Fatal(err)
	}
	if got := e.Temperature.Celsius(); got < 22.49 || got > 22.51 {
		t.Errorf("temperature = %v °C, want 22.5", got)
	}
	if e.Humidity != 48*physic.PercentRH {
		t.Errorf("humidity = %v, want 48%%rH", e.Humidity)
	}
	if err := dev.Halt(); err != nil {
		t.Fatal(err)
	}
}

func TestSenseNoAnswer(t *testing.T) {
	old := doSleep
	doSleep = func(time.Duration) {}
	t.Cleanup(func() { doSleep = old })

	pin := &gpiotest.Pin{N: "GPIO4", Num: 4, EdgesChan: make(chan gpio.Level, 1)}
	dev, err := New(pin)
	if err != nil {
		t.Fatal(err)
	}
	var e physic.Env
	if err := dev.Sense(&e); !errors.Is(err, ErrTimeout) {
		t.Fatalf("Sense() = %v, want ErrTimeout", err)
	}
}
