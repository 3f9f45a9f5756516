package ingest

import (
	"context"

	"PiTelemetry/telemetry"
)

// Reporter submits samples of one variant. It makes exactly one attempt
// per call; a failed sample is dropped by the caller.
type Reporter struct {
	Client *Client
	API    API
}

func NewReporter(c *Client, api API) *Reporter {
	return &Reporter{Client: c, API: api}
}

// Report returns nil only when the API answered 201.
func (r *Reporter) Report(ctx context.Context, s telemetry.Sample) error {
	return r.Client.Submit(ctx, r.API.Submit, s)
}

// Probe is the preflight check of the API this reporter submits to.
func (r *Reporter) Probe(ctx context.Context) error {
	return r.Client.Probe(ctx, r.API.Health)
}
