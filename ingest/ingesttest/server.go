// Package ingesttest provides an in-memory ingestion API for tests.
package ingesttest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/gorilla/mux"

	"PiTelemetry/ingest"
)

// Request is one request the fake API received.
type Request struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   []byte
}

// Server records every request and answers with canned responses.
type Server struct {
	*httptest.Server

	mu              sync.Mutex
	requests        []Request
	submitStatus    int
	healthStatus    int
	queryStatus     int
	status          ingest.DeviceStatus
	recommendations []string
	alerts          []ingest.Alert
	latest          ingest.LatestReading
	stats           ingest.Stats
}

// NewServer starts a fake API that accepts every submit with 201.
func NewServer() *Server {
	s := &Server{
		submitStatus: http.StatusCreated,
		healthStatus: http.StatusOK,
		queryStatus:  http.StatusOK,
	}
	s.Server = httptest.NewServer(s.router())
	return s
}

func (s *Server) router() http.Handler {
	r := mux.NewRouter()
	r.Use(s.record)

	r.HandleFunc("/dht11-sensor/readings", s.submit).Methods(http.MethodPost)
	r.HandleFunc("/pi-health/readings", s.submit).Methods(http.MethodPost)
	r.HandleFunc("/{module:dht11-sensor|pi-health}/health", s.health).Methods(http.MethodGet)

	r.HandleFunc("/dht11-sensor/readings/latest/{deviceId}", s.query(func() any { return s.latest })).Methods(http.MethodGet)
	r.HandleFunc("/dht11-sensor/stats/{deviceId}", s.query(func() any { return s.stats })).Methods(http.MethodGet)
	r.HandleFunc("/pi-health/status/{deviceId}", s.query(func() any { return s.status })).Methods(http.MethodGet)
	r.HandleFunc("/pi-health/recommendations/{deviceId}", s.query(func() any {
		return map[string]any{"recommendations": s.recommendations}
	})).Methods(http.MethodGet)
	r.HandleFunc("/pi-health/alerts/critical", s.query(func() any { return s.alerts })).Methods(http.MethodGet)
	return r
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Header: r.Header.Clone(),
			Body:   body,
		})
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	code := s.submitStatus
	s.mu.Unlock()
	writeJSON(w, code, map[string]string{"message": http.StatusText(code)})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	code := s.healthStatus
	s.mu.Unlock()
	writeJSON(w, code, map[string]string{"status": "ok", "module": mux.Vars(r)["module"]})
}

func (s *Server) query(body func() any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		code, v := s.queryStatus, body()
		s.mu.Unlock()
		writeJSON(w, code, v)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) SetSubmitStatus(code int) { s.mu.Lock(); s.submitStatus = code; s.mu.Unlock() }
func (s *Server) SetHealthStatus(code int) { s.mu.Lock(); s.healthStatus = code; s.mu.Unlock() }
func (s *Server) SetQueryStatus(code int)  { s.mu.Lock(); s.queryStatus = code; s.mu.Unlock() }

func (s *Server) SetDeviceStatus(st ingest.DeviceStatus) { s.mu.Lock(); s.status = st; s.mu.Unlock() }
func (s *Server) SetRecommendations(r ...string)         { s.mu.Lock(); s.recommendations = r; s.mu.Unlock() }
func (s *Server) SetAlerts(a ...ingest.Alert)            { s.mu.Lock(); s.alerts = a; s.mu.Unlock() }
func (s *Server) SetLatest(l ingest.LatestReading)       { s.mu.Lock(); s.latest = l; s.mu.Unlock() }
func (s *Server) SetStats(st ingest.Stats)               { s.mu.Lock(); s.stats = st; s.mu.Unlock() }

// Requests returns a copy of everything received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// Count returns how many requests hit method and path.
func (s *Server) Count(method, path string) int {
	n := 0
	for _, r := range s.Requests() {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

// Submitted returns the bodies posted to path, in order.
func (s *Server) Submitted(path string) []json.RawMessage {
	var out []json.RawMessage
	for _, r := range s.Requests() {
		if r.Method == http.MethodPost && r.Path == path {
			out = append(out, json.RawMessage(r.Body))
		}
	}
	return out
}
