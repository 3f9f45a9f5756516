// Package config loads agent configuration from defaults, an optional YAML
// file, environment variables and command-line flags, in that order of
// precedence, and validates the result.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jessevdk/go-flags"
	"gopkg.in/yaml.v3"

	"PiTelemetry/telemetry"
)

// Config is shared by every agent and simulator.
type Config struct {
	ConfigFile string `long:"config" env:"PIAGENT_CONFIG" description:"YAML configuration file" yaml:"-"`

	// API Options
	APIBaseURL string   `short:"u" long:"api-url" env:"PIAGENT_API_URL" default-mask:"http://localhost:3000" description:"Base URL of the ingestion API" yaml:"apiUrl" validate:"required,url"`
	APIToken   string   `long:"api-token" env:"PIAGENT_API_TOKEN" default-mask:"-" description:"Bearer token sent to the API" yaml:"apiToken"`
	Timeout    Duration `long:"timeout" env:"PIAGENT_TIMEOUT" default-mask:"10s" description:"Timeout of a submit request" yaml:"timeout" validate:"gt=0"`

	// Device Options
	DeviceID  string  `short:"d" long:"device-id" env:"PIAGENT_DEVICE_ID" description:"Device identifier stamped on every sample" yaml:"deviceId" validate:"required,max=128"`
	Latitude  float64 `long:"latitude" env:"PIAGENT_LATITUDE" default-mask:"-23.5505" description:"Device latitude" yaml:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `long:"longitude" env:"PIAGENT_LONGITUDE" default-mask:"-46.6333" description:"Device longitude" yaml:"longitude" validate:"gte=-180,lte=180"`

	// Loop Options
	Interval   Duration `short:"I" long:"interval" env:"PIAGENT_INTERVAL" description:"Interval between samples, in seconds or as a duration (30, 30s)" yaml:"interval" validate:"gt=0"`
	MaxRetries int      `long:"max-retries" env:"PIAGENT_MAX_RETRIES" default-mask:"3" description:"Sensor reads per cycle" yaml:"maxRetries" validate:"gte=1,lte=10"`
	Backoff    Duration `long:"backoff" env:"PIAGENT_BACKOFF" default-mask:"1s" description:"Wait between sensor reads" yaml:"backoff" validate:"gte=0"`

	// Output Options
	LogFile    string `long:"log-file" env:"PIAGENT_LOG_FILE" description:"Also write the log to this file" yaml:"logFile"`
	LogLevel   string `long:"log-level" env:"PIAGENT_LOG_LEVEL" default-mask:"info" description:"debug, info, warn or error" yaml:"logLevel" validate:"oneof=debug info warn error"`
	StatusAddr string `long:"status-addr" env:"PIAGENT_STATUS_ADDR" default-mask:"disabled" description:"Serve loop status on this address, e.g. 127.0.0.1:27315" yaml:"statusAddr" validate:"omitempty,hostname_port"`
	MQTTBroker string `long:"mqtt-broker" env:"PIAGENT_MQTT_BROKER" default-mask:"disabled" description:"Mirror samples to this MQTT broker, e.g. tcp://localhost:1883" yaml:"mqttBroker" validate:"omitempty,url"`
	MQTTTopic  string `long:"mqtt-topic" env:"PIAGENT_MQTT_TOPIC" default-mask:"pitelemetry" description:"MQTT topic prefix" yaml:"mqttTopic" validate:"required_with=MQTTBroker"`
}

// Defaults returns the settings every variant starts from.
func Defaults(deviceID string, interval time.Duration) Config {
	return Config{
		APIBaseURL: "http://localhost:3000",
		Timeout:    Duration(10 * time.Second),
		DeviceID:   deviceID,
		Latitude:   -23.5505,
		Longitude:  -46.6333,
		Interval:   Duration(interval),
		MaxRetries: 3,
		Backoff:    Duration(time.Second),
		LogLevel:   "info",
		MQTTTopic:  "pitelemetry",
	}
}

// Location returns the configured coordinates.
func (c *Config) Location() telemetry.Location {
	return telemetry.Location{Latitude: c.Latitude, Longitude: c.Longitude}
}

// Group is an extra set of options a binary adds to the shared ones. Its
// fields take go-flags, yaml and validate tags like Config.
type Group struct {
	Name string
	Data any
}

// Load fills cfg, which must hold the defaults, and every group from the
// config file, the environment and args. A help request is returned as a
// *flags.Error of type flags.ErrHelp.
func Load(args []string, cfg *Config, groups ...Group) error {
	var pre struct {
		ConfigFile string `long:"config" env:"PIAGENT_CONFIG"`
	}
	// A malformed --config is reported by the full parse below.
	_, perr := flags.NewParser(&pre, flags.IgnoreUnknown).ParseArgs(args)
	if perr == nil && pre.ConfigFile != "" {
		if err := loadFile(pre.ConfigFile, cfg, groups); err != nil {
			return err
		}
	}

	parser := flags.NewParser(cfg, flags.Default)
	for _, g := range groups {
		if _, err := parser.AddGroup(g.Name, "", g.Data); err != nil {
			return err
		}
	}
	if _, err := parser.ParseArgs(args); err != nil {
		return err
	}

	if err := Validate(cfg); err != nil {
		return err
	}
	for _, g := range groups {
		if err := Validate(g.Data); err != nil {
			return err
		}
	}
	return nil
}

func loadFile(path string, cfg *Config, groups []Group) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	for _, g := range groups {
		if err := yaml.Unmarshal(b, g.Data); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
	}
	return nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := fld.Tag.Get("long")
		if name == "" {
			return fld.Name
		}
		return "--" + name
	})
	return v
}

// Validate checks the validate tags of s and reports every failing option.
func Validate(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", fe.Field(), fe.Tag(), fe.Value()))
	}
	sort.Strings(msgs)
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}
