// Package sidecar runs informational API queries alongside the report
// loop. Their results are only logged; a failing query never affects the
// loop.
package sidecar

import (
	"context"
	"log/slog"
	"math"
	"math/rand"
	"sync"
	"time"
)

// Strategy decides whether sidecars run in the cycle at now.
type Strategy interface {
	Due(now time.Time) bool
}

// TimeWindow is due when the wall clock falls in the first Interval of
// every Period. With Interval equal to the cycle length it fires about
// once per Period.
type TimeWindow struct {
	Period   time.Duration
	Interval time.Duration
}

func (w TimeWindow) Due(now time.Time) bool {
	if w.Period <= 0 {
		return false
	}
	secs := float64(now.UnixNano()) / float64(time.Second)
	return math.Mod(secs, w.Period.Seconds()) < w.Interval.Seconds()
}

// Probabilistic is due with probability P on every call.
type Probabilistic struct {
	P    float64
	Rand *rand.Rand

	mu sync.Mutex
}

func (p *Probabilistic) Due(time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Rand.Float64() < p.P
}

// Query is one named sidecar request.
type Query struct {
	Name string
	Run  func(ctx context.Context, log *slog.Logger) error
}

// Runner executes its queries sequentially when the strategy says so.
type Runner struct {
	Strategy Strategy
	Queries  []Query
	Log      *slog.Logger
}

// MaybeRun runs every query if the strategy is due at now and reports
// whether it did.
func (r *Runner) MaybeRun(ctx context.Context, now time.Time) bool {
	if r == nil || r.Strategy == nil || !r.Strategy.Due(now) {
		return false
	}
	r.RunAll(ctx)
	return true
}

// RunAll runs every query regardless of the strategy.
func (r *Runner) RunAll(ctx context.Context) {
	if r == nil {
		return
	}
	for _, q := range r.Queries {
		if ctx.Err() != nil {
			return
		}
		if err := q.Run(ctx, r.Log); err != nil {
			r.Log.Warn("sidecar query failed", "query", q.Name, "err", err)
		}
	}
}
