package api

import (
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/aha-recorder/internal/device"
)

// SnapshotPayload is the JSON form of one tick's device list, shared by
// GET /api/v1/devices and the WebSocket "snapshot" message.
type SnapshotPayload struct {
	Tick      int64           `json:"tick"`
	FetchedAt time.Time       `json:"fetched_at"`
	Count     int             `json:"count"`
	Devices   []device.Device `json:"devices"`
}

func newSnapshotPayload(tick time.Time, snap *device.Snapshot) SnapshotPayload {
	return SnapshotPayload{
		Tick:      tick.Unix(),
		FetchedAt: snap.FetchedAt().UTC(),
		Count:     snap.Len(),
		Devices:   snap.Devices(),
	}
}

// handleListDevices returns the latest snapshot.
func (s *Server) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	tick, snap, ok := s.Latest()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "no device list received yet")
		return
	}
	writeJSON(w, http.StatusOK, newSnapshotPayload(tick, snap))
}

// handleGetDevice returns one device of the latest snapshot.
// Identifiers contain spaces, so clients send them URL-escaped.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id, err := url.PathUnescape(chi.URLParam(r, "id"))
	if err != nil || id == "" {
		writeError(w, http.StatusBadRequest, "invalid device identifier")
		return
	}

	_, snap, ok := s.Latest()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "no device list received yet")
		return
	}

	d, found := snap.Find(id)
	if !found {
		writeError(w, http.StatusNotFound, "device not found: "+id)
		return
	}
	writeJSON(w, http.StatusOK, d)
}
