package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jessevdk/go-flags"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agent.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg := Defaults("pi4-dht11-001", 2*time.Second)
	if err := Load(nil, &cfg); err != nil {
		t.Fatal(err)
	}
	want := Defaults("pi4-dht11-001", 2*time.Second)
	if cfg != want {
		t.Errorf("Load(nil) changed defaults:\n got %+v\nwant %+v", cfg, want)
	}
	if loc := cfg.Location(); loc.Latitude != -23.5505 || loc.Longitude != -46.6333 {
		t.Errorf("Location() = %+v", loc)
	}
}

func TestLoadPrecedence(t *testing.T) {
	path := writeFile(t, `
apiUrl: http://api.local:3000
deviceId: from-file
interval: 5s
maxRetries: 5
latitude: 10.5
sensor: bme680
i2cAddr: 0x77
`)
	t.Setenv("PIAGENT_DEVICE_ID", "from-env")
	t.Setenv("PIAGENT_MAX_RETRIES", "7")

	cfg := Defaults("pi4-dht11-001", 2*time.Second)
	sensor := DefaultSensorOptions()
	err := Load([]string{"--config", path, "--max-retries", "9", "--i2cdev", "/dev/i2c-1"}, &cfg, Group{Name: "Sensor Options", Data: &sensor})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"file over default", cfg.APIBaseURL, "http://api.local:3000"},
		{"file duration", cfg.Interval, Duration(5 * time.Second)},
		{"file latitude", cfg.Latitude, 10.5},
		{"env over file", cfg.DeviceID, "from-env"},
		{"flag over env", cfg.MaxRetries, 9},
		{"default kept", cfg.Backoff, Duration(time.Second)},
		{"group from file", sensor.Driver, "bme680"},
		{"hex address", sensor.I2CAddr, uint16(0x77)},
		{"group flag", sensor.I2CBus, "/dev/i2c-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestIntervalFormats(t *testing.T) {
	tests := []struct {
		name string
		args []string
		env  string
		want time.Duration
	}{
		{"bare seconds", []string{"--interval", "30"}, "", 30 * time.Second},
		{"short flag", []string{"-I", "5"}, "", 5 * time.Second},
		{"fractional seconds", []string{"--interval", "0.5"}, "", 500 * time.Millisecond},
		{"go duration", []string{"--interval", "2m"}, "", 2 * time.Minute},
		{"env seconds", nil, "45", 45 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.env != "" {
				t.Setenv("PIAGENT_INTERVAL", tt.env)
			}
			cfg := Defaults("pi4-device-001", 30*time.Second)
			if err := Load(tt.args, &cfg); err != nil {
				t.Fatal(err)
			}
			if got := time.Duration(cfg.Interval); got != tt.want {
				t.Errorf("interval = %v, want %v", got, tt.want)
			}
		})
	}

	path := writeFile(t, "interval: 10\nbackoff: 250ms\n")
	cfg := Defaults("pi4-device-001", 30*time.Second)
	if err := Load([]string{"--config", path}, &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Interval != Duration(10*time.Second) || cfg.Backoff != Duration(250*time.Millisecond) {
		t.Errorf("file durations = %v, %v", cfg.Interval, cfg.Backoff)
	}

	if err := Load([]string{"--interval", "soon"}, &cfg); err == nil {
		t.Error("Load accepted --interval soon")
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"zero interval", []string{"--interval", "0s"}, "--interval"},
		{"bad url", []string{"--api-url", "not a url"}, "--api-url"},
		{"too many retries", []string{"--max-retries", "11"}, "--max-retries"},
		{"latitude", []string{"--latitude", "91"}, "--latitude"},
		{"log level", []string{"--log-level", "loud"}, "--log-level"},
		{"empty device", []string{"--device-id", ""}, "--device-id"},
		{"sensor driver", []string{"--sensor", "dht22"}, "--sensor"},
		{"i2c address", []string{"--i2c-addr", "40"}, "--i2c-addr"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults("pi4-dht11-001", 2*time.Second)
			sensor := DefaultSensorOptions()
			err := Load(tt.args, &cfg, Group{Name: "Sensor Options", Data: &sensor})
			if err == nil {
				t.Fatal("Load() accepted invalid configuration")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not name %s", err, tt.want)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg := Defaults("pi4-device-001", 30*time.Second)
	err := Load([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")}, &cfg)
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load() = %v, want ErrNotExist", err)
	}
}

func TestLoadHelp(t *testing.T) {
	cfg := Defaults("pi4-device-001", 30*time.Second)
	stdout := os.Stdout
	os.Stdout, _ = os.OpenFile(os.DevNull, os.O_WRONLY, 0)
	defer func() { os.Stdout = stdout }()

	err := Load([]string{"--help"}, &cfg)
	if !flags.WroteHelp(err) {
		t.Errorf("Load(--help) = %v, want help error", err)
	}
}

func TestLoggerFallsBackToStdout(t *testing.T) {
	var out bytes.Buffer
	log, closer := newLogger(&out, filepath.Join(t.TempDir(), "no", "such", "dir", "agent.log"), "info")
	defer closer.Close()
	log.Info("hello")
	s := out.String()
	if !strings.Contains(s, "failed to open log file") || !strings.Contains(s, "msg=hello") {
		t.Errorf("unexpected output:\n%s", s)
	}
}

func TestLoggerWritesFile(t *testing.T) {
	var out bytes.Buffer
	path := filepath.Join(t.TempDir(), "agent.log")
	log, closer := newLogger(&out, path, "warn")
	log.Info("dropped")
	log.Warn("kept")
	if err := closer.Close(); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(b, out.Bytes()) {
		t.Errorf("file and stdout differ:\nfile %q\nout  %q", b, out.String())
	}
	if strings.Contains(string(b), "dropped") || !strings.Contains(string(b), "kept") {
		t.Errorf("level not applied:\n%s", b)
	}
}
