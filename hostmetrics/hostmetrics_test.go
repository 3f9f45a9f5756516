package hostmetrics

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseMilliCelsius(t *testing.T) {
	got, err := parseMilliCelsius("47236\n")
	if err != nil {
		t.Fatal(err)
	}
	if got != 47.236 {
		t.Errorf("parseMilliCelsius = %v, want 47.236", got)
	}
	if _, err := parseMilliCelsius("hot"); err == nil {
		t.Error("expected error for garbage")
	}
}

func TestParseVcgencmd(t *testing.T) {
	tests := []struct {
		name    string
		parse   func(string) (float64, error)
		in      string
		want    float64
		wantErr bool
	}{
		{"volts", parseVolts, "volt=0.8500V\n", 0.85, false},
		{"volts garbage", parseVolts, "VCHI initialization failed", 0, true},
		{"clock", parseClockMHz, "frequency(48)=1500345728\n", 1500.345728, false},
		{"clock garbage", parseClockMHz, "", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.parse(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrUnavailable) {
				t.Errorf("err = %v, want ErrUnavailable", err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNetRates(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	prev := netCounters{at: at, sent: 0, recv: 1024 * 1024}
	cur := netCounters{at: at.Add(2 * time.Second), sent: 2 * 1024 * 1024, recv: 5 * 1024 * 1024}

	up, down := netRates(prev, cur)
	if up != 1 || down != 2 {
		t.Errorf("netRates = (%v, %v), want (1, 2)", up, down)
	}

	up, down = netRates(cur, prev)
	if up != 0 || down != 0 {
		t.Errorf("reset counters gave (%v, %v)", up, down)
	}
}

func TestCollectorCPUTemperature(t *testing.T) {
	path := filepath.Join(t.TempDir(), "temp")
	if err := os.WriteFile(path, []byte("51540\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	c := New()
	c.ThermalZone = path
	got, err := c.CPUTemperature(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got != 51.54 {
		t.Errorf("CPUTemperature = %v, want 51.54", got)
	}

	c.ThermalZone = filepath.Join(t.TempDir(), "missing")
	if _, err := c.CPUTemperature(context.Background()); err == nil {
		t.Error("expected error for missing thermal zone")
	}
}

func TestCollectorVcgencmd(t *testing.T) {
	c := New()
	c.run = func(_ context.Context, name string, args ...string) ([]byte, error) {
		if name != DefaultVcgencmd {
			t.Errorf("ran %q", name)
		}
		switch args[0] {
		case "measure_volts":
			return []byte("volt=0.8625V\n"), nil
		case "measure_clock":
			return []byte("frequency(48)=1800000000\n"), nil
		}
		return nil, errors.New("unknown command")
	}
	v, err := c.Voltage(context.Background())
	if err != nil || v != 0.8625 {
		t.Errorf("Voltage = %v, %v", v, err)
	}
	f, err := c.Frequency(context.Background())
	if err != nil || f != 1800 {
		t.Errorf("Frequency = %v, %v", f, err)
	}

	c.run = func(context.Context, string, ...string) ([]byte, error) {
		return nil, errors.New("executable file not found")
	}
	if _, err := c.Voltage(context.Background()); err == nil {
		t.Error("expected error without vcgencmd")
	}
}
