// Package remotetest runs an in-process control server that speaks the same
// protocol as the chamber hardware server. It keeps the relay states and a
// queue of sensor readings so tests can drive the chamber end to end.
package remotetest

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/amp-labs/chamber/remote"
)

// Reading is one temperature/humidity sample served by the fake sensor.
type Reading struct {
	TemperatureF     float64
	RelativeHumidity float64
}

// Server is a fake control server. The zero value is not usable; call NewServer.
type Server struct {
	*httptest.Server

	mu          sync.Mutex
	initialized *remote.InitializeRequest
	fan         bool
	humidifier  bool
	readings    []Reading
	last        Reading
	actions     []remote.ActRequest
	overrides   map[string]http.HandlerFunc
}

// NewServer starts a server that is closed when the test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()

	srv := &Server{overrides: make(map[string]http.HandlerFunc)}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /initialize", srv.route("/initialize", srv.handleInitialize))
	mux.HandleFunc("POST /act", srv.route("/act", srv.handleAct))

	srv.Server = httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv
}

// DeviceConfig returns a remote.Config pointing at this server with the default
// wiring.
func (s *Server) DeviceConfig() remote.Config {
	cfg := remote.DefaultConfig()

	host, port, err := net.SplitHostPort(s.Listener.Addr().String())
	if err == nil {
		cfg.Address = host

		if p, err := strconv.ParseUint(port, 10, 16); err == nil {
			cfg.Port = uint16(p)
		}
	}

	return cfg
}

// Client returns a remote.Client talking to this server.
func (s *Server) Client(opts ...remote.ClientOption) *remote.Client {
	return remote.NewClient(s.DeviceConfig(), append([]remote.ClientOption{remote.WithBaseURL(s.URL)}, opts...)...)
}

// QueueReadings appends samples. Each humidity read consumes one sample;
// once the queue is empty the last sample is served forever.
func (s *Server) QueueReadings(readings ...Reading) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.readings = append(s.readings, readings...)
}

// Override replaces the handler for path ("/initialize" or "/act"). A nil
// handler restores the default behavior.
func (s *Server) Override(path string, h http.HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h == nil {
		delete(s.overrides, path)

		return
	}

	s.overrides[path] = h
}

// FailWith makes every request to path answer with status.
func (s *Server) FailWith(path string, status int) {
	s.Override(path, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
	})
}

// Initialized returns the last accepted configuration, or nil.
func (s *Server) Initialized() *remote.InitializeRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.initialized
}

func (s *Server) Fan() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.fan
}

func (s *Server) Humidifier() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.humidifier
}

// Actions returns every accepted /act request in arrival order.
func (s *Server) Actions() []remote.ActRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]remote.ActRequest, len(s.actions))
	copy(out, s.actions)

	return out
}

func (s *Server) route(path string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		override := s.overrides[path]
		s.mu.Unlock()

		if override != nil {
			override(w, r)

			return
		}

		next(w, r)
	}
}

func (s *Server) handleInitialize(w http.ResponseWriter, r *http.Request) {
	var req remote.InitializeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)

		return
	}

	for _, module := range []string{remote.SensorModule, remote.FanModule, remote.HumidifierModule} {
		if _, ok := req.Modules[module]; !ok {
			http.Error(w, "missing module "+module, http.StatusBadRequest)

			return
		}
	}

	s.mu.Lock()
	s.initialized = &req
	s.mu.Unlock()

	writeJSON(w, map[string]any{})
}

func (s *Server) handleAct(w http.ResponseWriter, r *http.Request) {
	var req remote.ActRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)

		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized == nil {
		http.Error(w, "not initialized", http.StatusNotFound)

		return
	}

	switch {
	case req.Action == remote.ActionSet && req.Config != nil &&
		(req.Module == remote.FanModule || req.Module == remote.HumidifierModule):
		if req.Module == remote.FanModule {
			s.fan = req.Config.High
		} else {
			s.humidifier = req.Config.High
		}

		s.actions = append(s.actions, req)
		writeJSON(w, map[string]any{})

	case req.Module == remote.SensorModule && req.Action == remote.ActionTemperature:
		s.actions = append(s.actions, req)
		writeJSON(w, map[string]float64{"result": s.peek().TemperatureF})

	case req.Module == remote.SensorModule && req.Action == remote.ActionHumidity:
		s.actions = append(s.actions, req)
		writeJSON(w, map[string]float64{"result": s.pop().RelativeHumidity})

	default:
		http.Error(w, "unknown module or action", http.StatusNotFound)
	}
}

func (s *Server) peek() Reading {
	if len(s.readings) > 0 {
		return s.readings[0]
	}

	return s.last
}

func (s *Server) pop() Reading {
	if len(s.readings) > 0 {
		s.last = s.readings[0]
		s.readings = s.readings[1:]
	}

	return s.last
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
