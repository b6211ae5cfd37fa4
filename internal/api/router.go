package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/nerrad567/aha-recorder/internal/panel"
)

// buildRouter wires the middleware chain and every route listed in the
// package documentation.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(
		s.requestIDMiddleware,
		s.loggingMiddleware,
		s.recoveryMiddleware,
		middleware.RequestSize(maxRequestBodySize),
	)

	r.Get("/api/v1/health", s.handleHealth)
	r.Get("/api/v1/devices", s.handleListDevices)
	r.Get("/api/v1/devices/{id}", s.handleGetDevice)
	r.Get("/ws", s.handleWebSocket)

	r.Handle("/dashboard/*", http.StripPrefix("/dashboard", panel.Handler(s.cfg.DashboardDir)))
	r.Handle("/dashboard", http.RedirectHandler("/dashboard/", http.StatusMovedPermanently))
	r.Handle("/", http.RedirectHandler("/dashboard/", http.StatusFound))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "no such route")
	})
	return r
}

// healthStatus is the body of GET /api/v1/health. LastTick and Devices
// stay empty until the first snapshot arrives.
type healthStatus struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Clients  int    `json:"clients"`
	LastTick int64  `json:"last_tick,omitempty"`
	Devices  *int   `json:"devices,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	h := healthStatus{Status: "ok", Version: s.version, Clients: s.hub.ClientCount()}
	if tick, snap, ok := s.Latest(); ok {
		n := snap.Len()
		h.LastTick, h.Devices = tick.Unix(), &n
	}
	writeJSON(w, http.StatusOK, h)
}
