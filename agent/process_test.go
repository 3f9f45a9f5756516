package agent

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"PiTelemetry/acquire"
	"PiTelemetry/clock"
	"PiTelemetry/telemetry"
)

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func TestProcessExitCodes(t *testing.T) {
	panicking := acquire.AcquirerFunc(func(context.Context) (telemetry.Sample, error) {
		panic("boom")
	})
	failing := func(context.Context) error { return errors.New("api down") }

	tests := []struct {
		name      string
		preflight func(context.Context) error
		want      int
		wantRan   bool
	}{
		{name: "preflight failure", preflight: failing, want: ExitPreflight},
		{name: "aborted cycle", want: ExitOK, wantRan: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := newLogger(&buf)
			var released []string
			p := &Process{
				Loop: New(Deps{
					Name:      "test",
					Log:       log,
					Clock:     clock.NewStep(start),
					Interval:  time.Second,
					Preflight: tt.preflight,
					Acquirer:  panicking,
					Reporter:  &countingReporter{},
				}),
				Log: log,
				Closers: []io.Closer{
					closerFunc(func() error { released = append(released, "bus"); return nil }),
					closerFunc(func() error { released = append(released, "mirror"); return errors.New("already closed") }),
				},
			}
			if got := p.Execute(context.Background()); got != tt.want {
				t.Errorf("Execute() = %d, want %d", got, tt.want)
			}
			if ran := p.Loop.Stats().Cycles > 0; ran != tt.wantRan {
				t.Errorf("loop ran = %v, want %v", ran, tt.wantRan)
			}
			if len(released) != 2 || released[0] != "mirror" || released[1] != "bus" {
				t.Errorf("release order = %v", released)
			}
			if !bytes.Contains(buf.Bytes(), []byte("release failed")) {
				t.Errorf("close error not logged:\n%s", buf.String())
			}
		})
	}
}
