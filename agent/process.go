package agent

import (
	"context"
	"errors"
	"io"
	"log/slog"
)

// Exit codes of an agent process.
const (
	ExitOK        = 0
	ExitPreflight = 1
	ExitConfig    = 2
)

// Process owns the outer life of one agent binary: preflight, the optional
// status server, the loop and the release of its resources.
type Process struct {
	Loop       *Loop
	Log        *slog.Logger
	DeviceID   string
	StatusAddr string
	// Closers are released in reverse order once the loop has stopped.
	Closers []io.Closer
}

// Execute runs the process until ctx is cancelled and returns the exit code.
func (p *Process) Execute(ctx context.Context) int {
	defer p.close()

	if err := p.Loop.Init(ctx); err != nil {
		return ExitPreflight
	}

	if p.StatusAddr != "" {
		srv := NewStatusServer(p.StatusAddr, p.DeviceID, p.Loop, p.Log)
		srv.Start()
		defer srv.Shutdown()
	}

	err := p.Loop.Run(ctx)
	switch {
	case err == nil:
	case errors.Is(err, ErrCycleAborted):
		p.Log.Error("cycle aborted, stopping", "err", err)
	default:
		p.Log.Error("loop failed", "err", err)
	}
	return ExitOK
}

func (p *Process) close() {
	for i := len(p.Closers) - 1; i >= 0; i-- {
		if err := p.Closers[i].Close(); err != nil {
			p.Log.Warn("release failed", "err", err)
		}
	}
}
