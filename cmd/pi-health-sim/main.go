// Command pi-health-sim reports simulated Raspberry Pi health metrics.
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
	cfg := config.Defaults("pi4-device-001", 30*time.Second)
	opts := config.DefaultSimOptions()
	cli.MustLoad(&cfg, config.Group{Name: "Simulator Options", Data: &opts})

	log, logFile := cfg.NewLogger()
	log = log.With("deviceId", cfg.DeviceID)

	clk := clock.Real()
	seed := opts.Seed
	if seed == 0 {
		seed = clk.Now().UnixNano()
	}
	rnd := synth.NewRand(seed)
	model := synth.NewHealthModel(clk.Now(), rnd)
	log.Info("simulating host", "seed", seed, "bootTime", model.BootTime)

	dev := telemetry.Device{ID: cfg.DeviceID, Location: cfg.Location()}
	reporter := cli.Reporter(&cfg, ingest.HostAPI)
	mirror, mirrorCloser := cli.Mirror(&cfg, ingest.HostAPI.Name, log)

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
		Name:      ingest.HostAPI.Name,
		Log:       log,
		Clock:     clk,
		Interval:  time.Duration(cfg.Interval),
		Preflight: reporter.Probe,
		Acquirer: &acquire.SyntheticHealth{
			Model:  model,
			Device: dev,
			Clock:  clk,
			Rand:   rnd,
		},
		Reporter: reporter,
		Mirror:   mirror,
		Startup: &sidecar.Runner{
			Queries: []sidecar.Query{
				sidecar.DeviceStatus(reporter.Client, cfg.DeviceID),
				sidecar.Recommendations(reporter.Client, cfg.DeviceID),
			},
			Log: log,
		},
		Sidecars: &sidecar.Runner{
			Strategy: &sidecar.Probabilistic{P: opts.SidecarP, Rand: synth.NewRand(seed + 1)},
			Queries: []sidecar.Query{
				sidecar.DeviceStatus(reporter.Client, cfg.DeviceID),
				sidecar.Recommendations(reporter.Client, cfg.DeviceID),
				sidecar.CriticalAlerts(reporter.Client),
			},
			Log: log,
		},
	})
	cli.Run(p)
}
