// Package sensors opens the physical temperature/humidity sensors an agent
// can read from and exposes them as an acquire.SensorSource.
package sensors

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/aldernero/scd4x"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"PiTelemetry/acquire"
	"PiTelemetry/bme680"
	"PiTelemetry/dht11"
	"PiTelemetry/telemetry"
)

// Supported drivers.
const (
	DHT11       = "dht11"
	BME680      = "bme680"
	BME680SCD4x = "bme680-scd4x"
)

// Config selects and wires a sensor.
type Config struct {
	Driver  string
	GPIO    string // pin name for DHT11, e.g. GPIO4
	I2CBus  string // bus name for i2creg, empty for the first one
	I2CAddr uint16
}

type envSensor interface {
	Sense(e *physic.Env) error
	Halt() error
}

// humiditySensor overrides the relative humidity of the env sensor.
type humiditySensor interface {
	Humidity() (float64, error)
	Halt() error
}

// Device describes the sensor on readings. Only the DHT11 sits on a GPIO
// pin; I²C sensors report pin 0.
func (c Config) Device(id string, loc telemetry.Location) telemetry.Device {
	dev := telemetry.Device{ID: id, Location: loc}
	switch c.Driver {
	case DHT11:
		dev.SensorType = "DHT11"
		dev.GPIOPin = pinNumber(c.GPIO)
	case BME680, BME680SCD4x:
		dev.SensorType = "BME680"
	}
	return dev
}

// pinNumber returns the BCM number of a pin name like GPIO4, or 0.
func pinNumber(name string) int {
	n, err := strconv.Atoi(strings.TrimPrefix(strings.ToUpper(name), "GPIO"))
	if err != nil {
		return 0
	}
	return n
}

// Source reads temperature and humidity from an opened sensor.
type Source struct {
	name     string
	env      envSensor
	humidity humiditySensor
	bus      io.Closer
}

// Open initialises the host drivers and the requested sensor. Any error is
// fatal for a hardware agent.
func Open(cfg Config) (*Source, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}

	switch cfg.Driver {
	case DHT11:
		p := gpioreg.ByName(cfg.GPIO)
		if p == nil {
			return nil, fmt.Errorf("gpio pin %q not found", cfg.GPIO)
		}
		dev, err := dht11.New(p)
		if err != nil {
			return nil, err
		}
		return &Source{name: dev.String(), env: dev}, nil

	case BME680, BME680SCD4x:
		bus, err := i2creg.Open(cfg.I2CBus)
		if err != nil {
			return nil, fmt.Errorf("couldn't open I2C device: %w", err)
		}
		opts := bme680.DefaultOpts
		dev, err := bme680.NewI2C(bus, cfg.I2CAddr, &opts)
		if err != nil {
			bus.Close()
			return nil, err
		}
		s := &Source{name: dev.String(), env: dev, bus: bus}
		if cfg.Driver == BME680SCD4x {
			scd, err := openSCD4x(bus)
			if err != nil {
				dev.Halt()
				bus.Close()
				return nil, err
			}
			s.humidity = scd
			s.name += "+SCD4x"
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown sensor driver %q", cfg.Driver)
}

func (s *Source) String() string { return s.name }

// Read takes one measurement. Values are only converted, never checked.
func (s *Source) Read(ctx context.Context) (acquire.Raw, error) {
	if err := ctx.Err(); err != nil {
		return acquire.Raw{}, err
	}
	var e physic.Env
	if err := s.env.Sense(&e); err != nil {
		return acquire.Raw{}, err
	}
	temp := e.Temperature.Celsius()
	hum := float64(e.Humidity) / float64(physic.PercentRH)
	if s.humidity != nil {
		rh, err := s.humidity.Humidity()
		if err != nil {
			return acquire.Raw{}, fmt.Errorf("error while reading SCD4x data: %w", err)
		}
		hum = rh
	}
	return acquire.Raw{Temperature: &temp, Humidity: &hum}, nil
}

// Close halts the sensors and releases the bus.
func (s *Source) Close() error {
	var errs []error
	if s.humidity != nil {
		errs = append(errs, s.humidity.Halt())
	}
	errs = append(errs, s.env.Halt())
	if s.bus != nil {
		errs = append(errs, s.bus.Close())
	}
	return errors.Join(errs...)
}

type scdHumidity struct {
	dev *scd4x.SCD4x
}

func openSCD4x(bus i2c.BusCloser) (*scdHumidity, error) {
	sensor, err := scd4x.SensorInit(bus, false)
	if err != nil {
		return nil, fmt.Errorf("scd4x init: %w", err)
	}
	if err := sensor.StopMeasurements(); err != nil {
		return nil, fmt.Errorf("error while trying to stop periodic measurements: %w", err)
	}
	if err := sensor.StartMeasurements(); err != nil {
		return nil, fmt.Errorf("error while trying to start periodic measurements: %w", err)
	}
	// give the sensor time to wake up
	time.Sleep(time.Second)
	return &scdHumidity{dev: sensor}, nil
}

func (s *scdHumidity) Humidity() (float64, error) {
	data, err := s.dev.ReadMeasurement()
	if err != nil {
		return 0, err
	}
	return data.Rh, nil
}

func (s *scdHumidity) Halt() error { return s.dev.StopMeasurements() }
