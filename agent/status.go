package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

const (
	statusTimeout   = 2 * time.Second
	shutdownTimeout = 4 * time.Second
)

// Status is the JSON document served on GET /.
type Status struct {
	Agent    string  `json:"agent"`
	DeviceID string  `json:"deviceId"`
	State    string  `json:"state"`
	Interval float64 `json:"intervalSeconds"`
	Stats    Stats   `json:"stats"`
}

// StatusServer exposes the state of a Loop over HTTP.
type StatusServer struct {
	loop     *Loop
	deviceID string
	log      *slog.Logger
	srv      *http.Server
}

func NewStatusServer(addr, deviceID string, loop *Loop, log *slog.Logger) *StatusServer {
	s := &StatusServer{loop: loop, deviceID: deviceID, log: log}
	s.srv = &http.Server{
		Addr:         addr,
		ReadTimeout:  statusTimeout,
		WriteTimeout: statusTimeout,
		IdleTimeout:  120 * time.Second,
		Handler:      s.Handler(),
	}
	return s
}

func (s *StatusServer) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/", s.status).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.healthz).Methods(http.MethodGet)
	return r
}

func (s *StatusServer) status(w http.ResponseWriter, r *http.Request) {
	st := Status{
		Agent:    s.loop.deps.Name,
		DeviceID: s.deviceID,
		State:    s.loop.State().String(),
		Interval: s.loop.deps.Interval.Seconds(),
		Stats:    s.loop.Stats(),
	}
	jsonStr, err := json.Marshal(st)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(jsonStr); err != nil {
		s.log.Warn("couldn't send response", "err", err)
	}
}

func (s *StatusServer) healthz(w http.ResponseWriter, r *http.Request) {
	if s.loop.State() != Running {
		http.Error(w, s.loop.State().String(), http.StatusServiceUnavailable)
		return
	}
	fmt.Fprintln(w, "ok")
}

// Start serves in the background until Shutdown.
func (s *StatusServer) Start() {
	go func() {
		host, port, _ := net.SplitHostPort(s.srv.Addr)
		if host == "0.0.0.0" || host == "" {
			if ip, err := outboundIP(); err == nil {
				// resolve local IP for easier debugging
				s.log.Info("status server listening", "addr", net.JoinHostPort(ip.String(), port))
			} else {
				s.log.Info("status server listening", "addr", s.srv.Addr)
			}
		} else {
			s.log.Info("status server listening", "addr", s.srv.Addr)
		}

		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("status server failed", "err", err)
		}
	}()
}

// Shutdown gives in-flight requests up to four seconds.
func (s *StatusServer) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	// Doesn't block if no connections, but will otherwise wait until the timeout deadline.
	_ = s.srv.Shutdown(ctx)
}

func outboundIP() (net.IP, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	return conn.LocalAddr().(*net.UDPAddr).IP, nil
}
