// Package cli holds the start-up steps shared by the agent binaries.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"

	"PiTelemetry/agent"
	"PiTelemetry/config"
	"PiTelemetry/ingest"
	"PiTelemetry/mirror"
)

// MustLoad loads cfg and the option groups from the process arguments. It
// exits 0 after printing help and 2 on any other configuration error.
func MustLoad(cfg *config.Config, groups ...config.Group) {
	err := config.Load(os.Args[1:], cfg, groups...)
	if err == nil {
		return
	}
	if flags.WroteHelp(err) {
		os.Exit(agent.ExitOK)
	}
	var ferr *flags.Error
	if !errors.As(err, &ferr) {
		// go-flags already printed its own errors
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(agent.ExitConfig)
}

// WarnIfNotRoot logs a warning when the process lacks root privileges.
func WarnIfNotRoot(log *slog.Logger, reason string) {
	if os.Geteuid() != 0 {
		log.Warn("not running as root", "reason", reason)
	}
}

// Reporter builds the API client for one ingestion module.
func Reporter(cfg *config.Config, api ingest.API) *ingest.Reporter {
	c := ingest.NewClient(cfg.APIBaseURL, time.Duration(cfg.Timeout),
		ingest.WithToken(cfg.APIToken),
		ingest.WithUserAgent("PiTelemetry/"+api.Name),
	)
	return ingest.NewReporter(c, api)
}

// Mirror connects the optional MQTT mirror. A broker that cannot be reached
// disables mirroring instead of stopping the agent.
func Mirror(cfg *config.Config, name string, log *slog.Logger) (agent.Publisher, io.Closer) {
	if cfg.MQTTBroker == "" {
		return nil, nil
	}
	m, err := mirror.Dial(cfg.MQTTBroker, name+"-"+cfg.DeviceID, cfg.MQTTTopic)
	if err != nil {
		log.Warn("mqtt mirror disabled", "broker", cfg.MQTTBroker, "err", err)
		return nil, nil
	}
	log.Info("mirroring samples", "broker", cfg.MQTTBroker, "prefix", cfg.MQTTTopic)
	return m, m
}

// Run executes p until SIGINT or SIGTERM and exits with its status.
func Run(p *agent.Process) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := p.Execute(ctx)
	stop()
	os.Exit(code)
}
