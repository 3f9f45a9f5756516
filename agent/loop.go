// Package agent runs the acquire, report and sidecar cycle shared by every
// telemetry agent and simulator.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"PiTelemetry/acquire"
	"PiTelemetry/clock"
	"PiTelemetry/sidecar"
	"PiTelemetry/telemetry"
)

// State is the lifecycle position of a Loop.
type State int

const (
	Uninitialized State = iota
	Ready
	Running
	Stopped
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Ready:
		return "ready"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

var (
	// ErrPreflight means the agent cannot start. It is the only error that
	// should end the process with a non-zero status.
	ErrPreflight = errors.New("preflight failed")
	// ErrCycleAborted is returned by Run when a cycle panicked.
	ErrCycleAborted = errors.New("cycle aborted")
	// ErrStopped is returned when Run is called on a stopped loop.
	ErrStopped = errors.New("agent stopped")
	// ErrNotReady is returned when Run is called before a successful Init.
	ErrNotReady = errors.New("agent not initialized")
)

// Reporter submits one sample.
type Reporter interface {
	Report(ctx context.Context, s telemetry.Sample) error
}

// Publisher receives every sample that was reported successfully.
type Publisher interface {
	Publish(ctx context.Context, s telemetry.Sample) error
}

// Deps is everything a Loop needs. Sidecars, Startup and Mirror are
// optional.
type Deps struct {
	Name      string
	Log       *slog.Logger
	Clock     clock.Clock
	Interval  time.Duration
	Preflight func(ctx context.Context) error
	Acquirer  acquire.Acquirer
	Reporter  Reporter
	Mirror    Publisher
	// Startup runs once, unconditionally, when the loop starts.
	Startup *sidecar.Runner
	// Sidecars run after a successful report whenever their strategy is due.
	Sidecars *sidecar.Runner
}

// Stats are the loop counters exposed on the status endpoint.
type Stats struct {
	Cycles          uint64     `json:"cycles"`
	Reported        uint64     `json:"reported"`
	ReportFailures  uint64     `json:"reportFailures"`
	AcquireFailures uint64     `json:"acquireFailures"`
	SidecarRuns     uint64     `json:"sidecarRuns"`
	StartedAt       time.Time  `json:"startedAt"`
	LastReport      *time.Time `json:"lastReport,omitempty"`
}

// Loop is a single-threaded agent: cycles never overlap and every step of
// a cycle runs in the goroutine that called Run.
type Loop struct {
	deps Deps
	log  *slog.Logger

	mu    sync.Mutex
	state State
	stats Stats
}

func New(d Deps) *Loop {
	if d.Clock == nil {
		d.Clock = clock.Real()
	}
	if d.Log == nil {
		d.Log = slog.Default()
	}
	return &Loop{deps: d, log: d.Log.With("agent", d.Name)}
}

func (l *Loop) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *Loop) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats
}

func (l *Loop) setState(s State) {
	l.mu.Lock()
	l.state = s
	l.mu.Unlock()
}

// Init runs the preflight check. On failure the loop stays
// Uninitialized and the error wraps ErrPreflight.
func (l *Loop) Init(ctx context.Context) error {
	switch l.State() {
	case Ready:
		return nil
	case Running, Stopped:
		return fmt.Errorf("init in state %s", l.State())
	}
	if l.deps.Preflight != nil {
		if err := l.deps.Preflight(ctx); err != nil {
			l.log.Error("preflight failed", "err", err)
			return fmt.Errorf("%w: %w", ErrPreflight, err)
		}
	}
	l.setState(Ready)
	l.log.Info("preflight passed")
	return nil
}

// Run cycles until ctx is cancelled or a cycle panics. A cancelled context
// is a normal shutdown and returns nil.
func (l *Loop) Run(ctx context.Context) error {
	l.mu.Lock()
	switch l.state {
	case Stopped:
		l.mu.Unlock()
		return ErrStopped
	case Uninitialized, Running:
		st := l.state
		l.mu.Unlock()
		return fmt.Errorf("%w: state %s", ErrNotReady, st)
	}
	l.state = Running
	l.stats.StartedAt = l.deps.Clock.Now()
	l.mu.Unlock()

	l.log.Info("agent started", "interval", l.deps.Interval)
	defer l.shutdown()

	if err := l.startup(ctx); err != nil {
		return err
	}

	for {
		if ctx.Err() != nil {
			return nil
		}
		if err := l.cycle(ctx); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-l.deps.Clock.After(l.deps.Interval):
		}
	}
}

func (l *Loop) shutdown() {
	l.setState(Stopped)
	st := l.Stats()
	l.log.Info("shutting down", "cycles", st.Cycles, "reported", st.Reported,
		"reportFailures", st.ReportFailures, "acquireFailures", st.AcquireFailures)
	l.log.Info("agent stopped")
}

// abortOnPanic turns a panic in the running step into ErrCycleAborted.
func (l *Loop) abortOnPanic(step string, err *error) {
	if r := recover(); r != nil {
		l.log.Error(step+" panicked", "panic", r, "stack", string(debug.Stack()))
		*err = fmt.Errorf("%w: %v", ErrCycleAborted, r)
	}
}

// startup runs the startup queries once under the same panic boundary as
// a cycle.
func (l *Loop) startup(ctx context.Context) (err error) {
	defer l.abortOnPanic("startup", &err)
	l.deps.Startup.RunAll(ctx)
	return nil
}

// cycle runs acquire, report, mirror and sidecars once. Failures are
// logged and swallowed; only a panic is returned, as ErrCycleAborted.
func (l *Loop) cycle(ctx context.Context) (err error) {
	defer l.abortOnPanic("cycle", &err)

	l.mu.Lock()
	l.stats.Cycles++
	l.mu.Unlock()

	sample, err := l.deps.Acquirer.Acquire(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		l.mu.Lock()
		l.stats.AcquireFailures++
		l.mu.Unlock()
		l.log.Warn("no valid sample this cycle", "err", err)
		return nil
	}

	if err := l.deps.Reporter.Report(ctx, sample); err != nil {
		l.mu.Lock()
		l.stats.ReportFailures++
		l.mu.Unlock()
		l.log.Warn("report failed", "err", err)
		return nil
	}

	now := l.deps.Clock.Now()
	l.mu.Lock()
	l.stats.Reported++
	l.stats.LastReport = &now
	l.mu.Unlock()
	l.log.Info("sample reported", "sample", sample)

	if l.deps.Mirror != nil {
		if err := l.deps.Mirror.Publish(ctx, sample); err != nil {
			l.log.Warn("mirror publish failed", "err", err)
		}
	}

	if l.deps.Sidecars.MaybeRun(ctx, now) {
		l.mu.Lock()
		l.stats.SidecarRuns++
		l.mu.Unlock()
	}
	return nil
}
