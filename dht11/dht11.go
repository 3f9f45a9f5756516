// Package dht11 reads an Aosong DHT11 temperature/humidity sensor over its
// single-wire protocol using a periph GPIO pin.
//
// The protocol is timing based: the host pulls the line low for at least
// 18ms, the sensor answers with an 80µs low/80µs high preamble and then
// sends 40 bits. Every bit starts with a ~50µs low; the following high
// lasts ~27µs for a 0 and ~70µs for a 1.
package dht11

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

var (
	// ErrTimeout means the sensor did not send a complete frame.
	ErrTimeout = errors.New("dht11: incomplete frame")
	// ErrChecksum means the frame arrived but its parity byte is wrong.
	ErrChecksum = errors.New("dht11: checksum mismatch")
)

const (
	startPulse  = 18 * time.Millisecond
	edgeTimeout = 2 * time.Millisecond
	// bitThreshold separates a 0 (~27µs high) from a 1 (~70µs high).
	bitThreshold = 50 * time.Microsecond
	// minInterval is the shortest time between two conversions the
	// sensor tolerates.
	minInterval = time.Second
	maxEdges    = 2 * (1 + 1 + 40 + 1)
)

// Dev is a handle to a DHT11 on one GPIO pin.
type Dev struct {
	pin gpio.PinIO

	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

// New returns a DHT11 on pin p. The line is left idle (high).
func New(p gpio.PinIO) (*Dev, error) {
	if err := p.Out(gpio.High); err != nil {
		return nil, fmt.Errorf("dht11: %w", err)
	}
	return &Dev{pin: p, now: time.Now}, nil
}

func (d *Dev) String() string {
	return fmt.Sprintf("DHT11{%s}", d.pin)
}

// Halt releases the line.
func (d *Dev) Halt() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pin.In(gpio.PullUp, gpio.NoEdge)
}

// Sense triggers one conversion and fills Temperature and Humidity.
func (d *Dev) Sense(e *physic.Env) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.last.IsZero() {
		if wait := minInterval - d.now().Sub(d.last); wait > 0 {
			doSleep(wait)
		}
	}
	defer func() { d.last = d.now() }()

	if err := d.pin.Out(gpio.Low); err != nil {
		return fmt.Errorf("dht11: %w", err)
	}
	doSleep(startPulse)
	if err := d.pin.In(gpio.PullUp, gpio.BothEdges); err != nil {
		return fmt.Errorf("dht11: %w", err)
	}

	frame, err := decodePulses(d.readPulses())
	if err != nil {
		return err
	}
	temp, rh, err := parseFrame(frame)
	if err != nil {
		return err
	}
	e.Temperature = physic.ZeroCelsius + physic.Temperature(temp)*100*physic.MilliCelsius
	e.Humidity = physic.RelativeHumidity(rh) * physic.MilliRH
	return nil
}

// readPulses returns the duration of every high period seen on the line
// until it goes quiet.
func (d *Dev) readPulses() []time.Duration {
	highs := make([]time.Duration, 0, 41)
	var rose time.Time
	for i := 0; i < maxEdges; i++ {
		if !d.pin.WaitForEdge(edgeTimeout) {
			break
		}
		at := d.now()
		if d.pin.Read() == gpio.High {
			rose = at
			continue
		}
		if !rose.IsZero() {
			highs = append(highs, at.Sub(rose))
			rose = time.Time{}
		}
	}
	return highs
}

// decodePulses turns the last 40 high periods into a frame. Anything
// before them is the sensor preamble.
func decodePulses(highs []time.Duration) ([5]byte, error) {
	var frame [5]byte
	if len(highs) < 40 {
		return frame, fmt.Errorf("%w: %d of 40 bits", ErrTimeout, len(highs))
	}
	bits := highs[len(highs)-40:]
	for i, h := range bits {
		frame[i/8] <<= 1
		if h > bitThreshold {
			frame[i/8] |= 1
		}
	}
	return frame, nil
}

// parseFrame validates the checksum and returns temperature and humidity
// in tenths of a unit.
func parseFrame(b [5]byte) (tempTenths, rhTenths int, err error) {
	if b[0]+b[1]+b[2]+b[3] != b[4] {
		return 0, 0, fmt.Errorf("%w: got %#02x want %#02x", ErrChecksum, b[4], b[0]+b[1]+b[2]+b[3])
	}
	rhTenths = int(b[0])*10 + int(b[1])
	// Byte 3 carries the sign in bit 7 and the tenths in its low nibble.
	tempTenths = int(b[2])*10 + int(b[3]&0x0F)
	if b[3]&0x80 != 0 {
		tempTenths = -tempTenths
	}
	return tempTenths, rhTenths, nil
}

var doSleep = time.Sleep

var _ conn.Resource = &Dev{}
