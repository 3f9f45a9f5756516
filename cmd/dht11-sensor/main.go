// Command dht11-sensor reads a temperature/humidity sensor wired to the Pi
// and reports every valid reading to the ingestion API.
package main

import (
	"context"
	"io"
	"time"

	"PiTelemetry/acquire"
	"PiTelemetry/agent"
	"PiTelemetry/clock"
	"PiTelemetry/config"
	"PiTelemetry/ingest"
	"PiTelemetry/internal/cli"
	"PiTelemetry/sensors"
)

// lazySource opens the sensor during preflight, so a hardware failure
// stops the agent before its first cycle.
type lazySource struct {
	cfg sensors.Config
	src *sensors.Source
}

func (l *lazySource) open(context.Context) error {
	src, err := sensors.Open(l.cfg)
	if err != nil {
		return err
	}
	l.src = src
	return nil
}

func (l *lazySource) Read(ctx context.Context) (acquire.Raw, error) {
	return l.src.Read(ctx)
}

func (l *lazySource) Close() error {
	if l.src == nil {
		return nil
	}
	return l.src.Close()
}

func main() {
	cfg := config.Defaults("pi4-dht11-001", 2*time.Second)
	opts := config.DefaultSensorOptions()
	cli.MustLoad(&cfg, config.Group{Name: "Sensor Options", Data: &opts})

	log, logFile := cfg.NewLogger()
	log = log.With("deviceId", cfg.DeviceID)
	cli.WarnIfNotRoot(log, "GPIO and I2C access usually needs root")

	src := &lazySource{cfg: sensors.Config{
		Driver:  opts.Driver,
		GPIO:    opts.GPIO,
		I2CBus:  opts.I2CBus,
		I2CAddr: opts.I2CAddr,
	}}
	dev := src.cfg.Device(cfg.DeviceID, cfg.Location())

	clk := clock.Real()
	mirror, mirrorCloser := cli.Mirror(&cfg, ingest.SensorAPI.Name, log)

	p := &agent.Process{
		Log:        log,
		DeviceID:   cfg.DeviceID,
		StatusAddr: cfg.StatusAddr,
		Closers:    []io.Closer{logFile, src},
	}
	if mirrorCloser != nil {
		p.Closers = append(p.Closers, mirrorCloser)
	}
	p.Loop = agent.New(agent.Deps{
		Name:      ingest.SensorAPI.Name,
		Log:       log,
		Clock:     clk,
		Interval:  time.Duration(cfg.Interval),
		Preflight: src.open,
		Acquirer: &acquire.Retrying{
			Source:     src,
			Device:     dev,
			MaxRetries: cfg.MaxRetries,
			Backoff:    time.Duration(cfg.Backoff),
			Clock:      clk,
			Log:        log,
		},
		Reporter: cli.Reporter(&cfg, ingest.SensorAPI),
		Mirror:   mirror,
	})
	cli.Run(p)
}
