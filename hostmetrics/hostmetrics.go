// Package hostmetrics collects Raspberry Pi host metrics: gopsutil for the
// portable ones, the thermal zone in sysfs for the SoC temperature and
// vcgencmd for core voltage and ARM clock.
package hostmetrics

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/net"
)

const (
	DefaultThermalZone = "/sys/class/thermal/thermal_zone0/temp"
	DefaultVcgencmd    = "vcgencmd"

	commandTimeout = 5 * time.Second
	bytesPerMB     = 1024 * 1024
)

// ErrUnavailable is returned for metrics the platform cannot provide.
var ErrUnavailable = errors.New("metric unavailable")

// Collector reads live metrics from the running host.
type Collector struct {
	ThermalZone string
	Vcgencmd    string
	DiskPath    string
	// CPUInterval is how long CPU usage is sampled for.
	CPUInterval time.Duration

	now func() time.Time
	run func(ctx context.Context, name string, args ...string) ([]byte, error)

	mu      sync.Mutex
	lastNet *netCounters
}

type netCounters struct {
	at         time.Time
	sent, recv uint64
}

// New returns a Collector with the Raspberry Pi defaults.
func New() *Collector {
	return &Collector{
		ThermalZone: DefaultThermalZone,
		Vcgencmd:    DefaultVcgencmd,
		DiskPath:    "/",
		CPUInterval: time.Second,
		now:         time.Now,
		run:         runCommand,
	}
}

func (c *Collector) CPUTemperature(ctx context.Context) (float64, error) {
	b, err := os.ReadFile(c.ThermalZone)
	if err != nil {
		return 0, err
	}
	return parseMilliCelsius(string(b))
}

func (c *Collector) CPUUsage(ctx context.Context) (float64, error) {
	p, err := cpu.PercentWithContext(ctx, c.CPUInterval, false)
	if err != nil {
		return 0, err
	}
	if len(p) == 0 {
		return 0, ErrUnavailable
	}
	return p[0], nil
}

func (c *Collector) MemoryUsage(ctx context.Context) (float64, error) {
	v, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, err
	}
	return v.UsedPercent, nil
}

func (c *Collector) DiskUsage(ctx context.Context) (float64, error) {
	u, err := disk.UsageWithContext(ctx, c.DiskPath)
	if err != nil {
		return 0, err
	}
	return u.UsedPercent, nil
}

// Network returns the upload and download rate in MB/s since the previous
// call. The first call only primes the counters and returns zero.
func (c *Collector) Network(ctx context.Context) (upload, download float64, err error) {
	counters, err := net.IOCountersWithContext(ctx, false)
	if err != nil {
		return 0, 0, err
	}
	if len(counters) == 0 {
		return 0, 0, ErrUnavailable
	}
	cur := netCounters{at: c.now(), sent: counters[0].BytesSent, recv: counters[0].BytesRecv}

	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.lastNet
	c.lastNet = &cur
	if prev == nil {
		return 0, 0, nil
	}
	upload, download = netRates(*prev, cur)
	return upload, download, nil
}

func (c *Collector) Uptime(ctx context.Context) (float64, error) {
	up, err := host.UptimeWithContext(ctx)
	if err != nil {
		return 0, err
	}
	return float64(up), nil
}

func (c *Collector) LoadAverages(ctx context.Context) (l1, l5, l15 float64, err error) {
	avg, err := load.AvgWithContext(ctx)
	if err != nil {
		return 0, 0, 0, err
	}
	return avg.Load1, avg.Load5, avg.Load15, nil
}

// Voltage returns the SoC core voltage in volts.
func (c *Collector) Voltage(ctx context.Context) (float64, error) {
	out, err := c.run(ctx, c.Vcgencmd, "measure_volts", "core")
	if err != nil {
		return 0, err
	}
	return parseVolts(string(out))
}

// Frequency returns the ARM clock in MHz.
func (c *Collector) Frequency(ctx context.Context) (float64, error) {
	out, err := c.run(ctx, c.Vcgencmd, "measure_clock", "arm")
	if err != nil {
		return 0, err
	}
	return parseClockMHz(string(out))
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return out, nil
}

func netRates(prev, cur netCounters) (upload, download float64) {
	elapsed := cur.at.Sub(prev.at).Seconds()
	if elapsed <= 0 || cur.sent < prev.sent || cur.recv < prev.recv {
		// counter reset or clock step
		return 0, 0
	}
	upload = float64(cur.sent-prev.sent) / bytesPerMB / elapsed
	download = float64(cur.recv-prev.recv) / bytesPerMB / elapsed
	return upload, download
}

func parseMilliCelsius(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("thermal zone: %w", err)
	}
	return v / 1000, nil
}

var (
	voltsRe = regexp.MustCompile(`volt=([0-9.]+)V`)
	clockRe = regexp.MustCompile(`frequency\(\d+\)=(\d+)`)
)

// parseVolts parses "volt=0.8500V".
func parseVolts(s string) (float64, error) {
	m := voltsRe.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("%w: unexpected vcgencmd output %q", ErrUnavailable, strings.TrimSpace(s))
	}
	return strconv.ParseFloat(m[1], 64)
}

// parseClockMHz parses "frequency(48)=1500345728" into MHz.
func parseClockMHz(s string) (float64, error) {
	m := clockRe.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("%w: unexpected vcgencmd output %q", ErrUnavailable, strings.TrimSpace(s))
	}
	hz, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, err
	}
	return hz / 1e6, nil
}
