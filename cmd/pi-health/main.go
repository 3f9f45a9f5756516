// Command pi-health reports the health of the Raspberry Pi it runs on and
// periodically asks the API for the device status and recommendations.
package main

import (
	"io"
	"time"

	"PiTelemetry/acquire"
	"PiTelemetry/agent"
	"PiTelemetry/clock"
	"PiTelemetry/config"
	"PiTelemetry/hostmetrics"
	"PiTelemetry/ingest"
	"PiTelemetry/internal/cli"
	"PiTelemetry/sidecar"
	"PiTelemetry/telemetry"
)

const sidecarPeriod = 5 * time.Minute

func main() {
	cfg := config.Defaults("pi4-device-001", 30*time.Second)
	cli.MustLoad(&cfg)

	log, logFile := cfg.NewLogger()
	log = log.With("deviceId", cfg.DeviceID)
	cli.WarnIfNotRoot(log, "some host metrics need root")

	dev := telemetry.Device{ID: cfg.DeviceID, Location: cfg.Location()}
	reporter := cli.Reporter(&cfg, ingest.HostAPI)
	queries := []sidecar.Query{
		sidecar.DeviceStatus(reporter.Client, cfg.DeviceID),
		sidecar.Recommendations(reporter.Client, cfg.DeviceID),
	}

	clk := clock.Real()
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
		Acquirer: &acquire.BestEffort{
			Metrics: hostmetrics.New(),
			Device:  dev,
			Clock:   clk,
			Log:     log,
		},
		Reporter: reporter,
		Mirror:   mirror,
		Startup:  &sidecar.Runner{Queries: queries, Log: log},
		Sidecars: &sidecar.Runner{
			Strategy: sidecar.TimeWindow{Period: sidecarPeriod, Interval: time.Duration(cfg.Interval)},
			Queries:  queries,
			Log:      log,
		},
	})
	cli.Run(p)
}
