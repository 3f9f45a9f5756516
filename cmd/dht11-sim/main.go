// Command dht11-sim reports simulated DHT11 readings for a Pi without the
// sensor attached.
package main

import (
	"io"
	"time"

	"PiTelemetry/acquire"
	"PiTelemetry/agent"
	"PiTelemetry/clock"
	"PiTelemetry/config"
	"PiTelemetry/ingest"
	"PiTelemetry/internal/cli"
	"PiTelemetry/sidecar"
	"PiTelemetry/synth"
	"PiTelemetry/telemetry"
)

func main() {
	cfg := config.Defaults("pi4-dht11-001", 2*time.Second)
	opts := config.DefaultSimOptions()
	cli.MustLoad(&cfg, config.Group{Name: "Simulator Options", Data: &opts})

	log, logFile := cfg.NewLogger()
	log = log.With("deviceId", cfg.DeviceID)

	clk := clock.Real()
	seed := opts.Seed
	if seed == 0 {
		seed = clk.Now().UnixNano()
	}
	log.Info("simulating sensor", "seed", seed)

	dev := telemetry.Device{ID: cfg.DeviceID, Location: cfg.Location(), GPIOPin: 4, SensorType: "DHT11"}
	reporter := cli.Reporter(&cfg, ingest.SensorAPI)
	mirror, mirrorCloser := cli.Mirror(&cfg, ingest.SensorAPI.Name, log)

	p := &agent.Process{
		Log:        log,
		DeviceID:   cfg.DeviceID,
		StatusAddr: cfg.StatusAddr,
		Closers:    []io.Closer{logFile},
	}
	if mirrorCloser != nil {
		p.Closers = append(p.Closers, mirrorCloser)
	}
	p.Loop = agent.New(agent.Deps{
		Name:      ingest.SensorAPI.Name,
		Log:       log,
		Clock:     clk,
		Interval:  time.Duration(cfg.Interval),
		Preflight: reporter.Probe,
		Acquirer: &acquire.SyntheticReading{
			Model:  synth.DefaultSensorModel,
			Device: dev,
			Clock:  clk,
			Rand:   synth.NewRand(seed),
		},
		Reporter: reporter,
		Mirror:   mirror,
		Startup: &sidecar.Runner{
			Queries: []sidecar.Query{sidecar.Stats(reporter.Client, cfg.DeviceID, 1)},
			Log:     log,
		},
		Sidecars: &sidecar.Runner{
			Strategy: &sidecar.Probabilistic{P: opts.SidecarP, Rand: synth.NewRand(seed + 1)},
			Queries: []sidecar.Query{
				sidecar.LatestReading(reporter.Client, cfg.DeviceID),
				sidecar.Stats(reporter.Client, cfg.DeviceID, 1),
			},
			Log: log,
		},
	})
	cli.Run(p)
}
