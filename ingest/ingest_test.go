package ingest_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"PiTelemetry/ingest"
	"PiTelemetry/ingest/ingesttest"
	"PiTelemetry/telemetry"
)

var reading = telemetry.NewReading(
	telemetry.Device{ID: "pi4-dht11-001", GPIOPin: 4, SensorType: "DHT11"},
	22.5, 48.0, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
)

func TestReporterStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
		ok     bool
	}{
		{"created", http.StatusCreated, true},
		{"ok is not enough", http.StatusOK, false},
		{"bad request", http.StatusBadRequest, false},
		{"server error", http.StatusInternalServerError, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := ingesttest.NewServer()
			defer srv.Close()
			srv.SetSubmitStatus(tt.status)

			r := ingest.NewReporter(ingest.NewClient(srv.URL, time.Second), ingest.SensorAPI)
			err := r.Report(context.Background(), reading)
			if tt.ok {
				if err != nil {
					t.Fatalf("Report() = %v", err)
				}
			} else {
				var httpErr *ingest.HTTPError
				if !errors.As(err, &httpErr) {
					t.Fatalf("Report() = %v, want *HTTPError", err)
				}
				if httpErr.GetStatusCode() != tt.status {
					t.Errorf("status = %d, want %d", httpErr.StatusCode, tt.status)
				}
			}
			if n := srv.Count(http.MethodPost, "/dht11-sensor/readings"); n != 1 {
				t.Errorf("submitted %d times, want exactly 1", n)
			}
		})
	}
}

func TestReporterPayloadAndHeaders(t *testing.T) {
	srv := ingesttest.NewServer()
	defer srv.Close()

	c := ingest.NewClient(srv.URL+"/", time.Second, ingest.WithToken("s3cret"), ingest.WithUserAgent("test-agent"))
	if err := ingest.NewReporter(c, ingest.SensorAPI).Report(context.Background(), reading); err != nil {
		t.Fatal(err)
	}

	reqs := srv.Requests()
	if len(reqs) != 1 {
		t.Fatalf("got %d requests", len(reqs))
	}
	h := reqs[0].Header
	if got := h.Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q", got)
	}
	if got := h.Get("Authorization"); got != "Bearer s3cret" {
		t.Errorf("Authorization = %q", got)
	}
	if got := h.Get("User-Agent"); got != "test-agent" {
		t.Errorf("User-Agent = %q", got)
	}
	if _, err := uuid.Parse(h.Get("X-Request-ID")); err != nil {
		t.Errorf("X-Request-ID %q is not a UUID: %v", h.Get("X-Request-ID"), err)
	}

	var body map[string]any
	if err := json.Unmarshal(reqs[0].Body, &body); err != nil {
		t.Fatal(err)
	}
	if body["temperature"] != 22.5 || body["humidity"] != 48.0 || body["deviceId"] != "pi4-dht11-001" {
		t.Errorf("unexpected payload %s", reqs[0].Body)
	}
	if body["timestamp"] != "2024-03-01T12:00:00Z" {
		t.Errorf("timestamp = %v", body["timestamp"])
	}
}

func TestReporterTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	r := ingest.NewReporter(ingest.NewClient(url, time.Second), ingest.HostAPI)
	err := r.Report(context.Background(), reading)
	if !errors.Is(err, ingest.ErrTransport) {
		t.Fatalf("Report() = %v, want ErrTransport", err)
	}
}

func TestReporterTimeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(block)

	r := ingest.NewReporter(ingest.NewClient(srv.URL, 50*time.Millisecond), ingest.SensorAPI)
	if err := r.Report(context.Background(), reading); !errors.Is(err, ingest.ErrTransport) {
		t.Fatalf("Report() = %v, want ErrTransport", err)
	}
}

func TestProbe(t *testing.T) {
	srv := ingesttest.NewServer()
	defer srv.Close()
	r := ingest.NewReporter(ingest.NewClient(srv.URL, time.Second), ingest.HostAPI)

	if err := r.Probe(context.Background()); err != nil {
		t.Fatalf("Probe() = %v", err)
	}
	if srv.Count(http.MethodGet, "/pi-health/health") != 1 {
		t.Error("probe did not hit /pi-health/health")
	}

	srv.SetHealthStatus(http.StatusServiceUnavailable)
	if err := r.Probe(context.Background()); err == nil {
		t.Error("Probe() succeeded on 503")
	}
}

func TestQueries(t *testing.T) {
	srv := ingesttest.NewServer()
	defer srv.Close()
	score := 87.5
	temp, hum := 21.3, 55.0
	srv.SetDeviceStatus(ingest.DeviceStatus{Status: "healthy", HealthScore: &score})
	srv.SetRecommendations("Improve cooling", "Free disk space")
	srv.SetAlerts(ingest.Alert{AlertMessage: "CPU temperature critical"})
	srv.SetLatest(ingest.LatestReading{Temperature: &temp, Humidity: &hum})
	srv.SetStats(ingest.Stats{Count: 1800})

	c := ingest.NewClient(srv.URL, time.Second)
	ctx := context.Background()

	st, err := c.DeviceStatus(ctx, "pi 4")
	if err != nil || st.Status != "healthy" || *st.HealthScore != 87.5 {
		t.Errorf("DeviceStatus = %+v, %v", st, err)
	}
	recs, err := c.Recommendations(ctx, "pi4-device-001")
	if err != nil || len(recs) != 2 || recs[0] != "Improve cooling" {
		t.Errorf("Recommendations = %v, %v", recs, err)
	}
	alerts, err := c.CriticalAlerts(ctx)
	if err != nil || len(alerts) != 1 || alerts[0].AlertMessage != "CPU temperature critical" {
		t.Errorf("CriticalAlerts = %v, %v", alerts, err)
	}
	latest, err := c.LatestReading(ctx, "pi4-dht11-001")
	if err != nil || *latest.Temperature != 21.3 {
		t.Errorf("LatestReading = %+v, %v", latest, err)
	}
	stats, err := c.Stats(ctx, "pi4-dht11-001", 1)
	if err != nil || stats.Count != 1800 {
		t.Errorf("Stats = %+v, %v", stats, err)
	}

	var statsReq, statusReq ingesttest.Request
	for _, r := range srv.Requests() {
		switch {
		case r.Path == "/dht11-sensor/stats/pi4-dht11-001":
			statsReq = r
		case r.Path == "/pi-health/status/pi 4":
			statusReq = r
		}
	}
	if statsReq.Query != "hours=1" {
		t.Errorf("stats query = %q, want hours=1", statsReq.Query)
	}
	if statusReq.Method == "" {
		t.Error("escaped device id did not reach the status route")
	}
}

func TestRecommendationObjects(t *testing.T) {
	var recs []ingest.Recommendation
	if err := json.Unmarshal([]byte(`["plain",{"message":"obj"}]`), &recs); err != nil {
		t.Fatal(err)
	}
	if recs[0] != "plain" || recs[1] != `{"message":"obj"}` {
		t.Errorf("recs = %q", recs)
	}
}
