package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/aha-recorder/internal/device"
	"github.com/nerrad567/aha-recorder/internal/infrastructure/config"
	"github.com/nerrad567/aha-recorder/internal/infrastructure/logging"
)

func testLogger() *logging.Logger {
	return &logging.Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// testServer creates an unstarted Server and an httptest server for its router.
func testServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()

	cfg := config.DefaultWebConfig()
	cfg.Listen = "127.0.0.1:0"
	srv := New(cfg, testLogger(), "test")

	ctx, cancel := context.WithCancel(context.Background())
	go srv.hub.Run(ctx)

	ts := httptest.NewServer(srv.buildRouter())
	t.Cleanup(func() {
		cancel()
		ts.Close()
	})
	return srv, ts
}

func testSnapshot() *device.Snapshot {
	return device.NewSnapshot(time.Unix(1760000000, 0), []device.Device{
		{
			Kind:        device.KindDevice,
			Common:      device.Common{Identifier: "08761 0000434", ID: 17, Name: "Socket", Present: true},
			Temperature: &device.Temperature{Celsius: 215},
			Powermeter:  &device.Powermeter{Voltage: 230000, Power: 4500, Energy: 1234},
		},
		{
			Kind:   device.KindGroup,
			Common: device.Common{Identifier: "grp03F0A0-3D6C7A80E", ID: 900, Name: "Living room"},
		},
	})
}

func getJSON(t *testing.T, url string, v any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("decoding %s: %v", url, err)
		}
	}
	return resp
}

// =============================================================================
// REST Tests
// =============================================================================

func TestHealth(t *testing.T) {
	srv, ts := testServer(t)

	var body map[string]any
	resp := getJSON(t, ts.URL+"/api/v1/health", &body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	if body["status"] != "ok" || body["version"] != "test" {
		t.Errorf("body = %v", body)
	}
	if _, ok := body["last_tick"]; ok {
		t.Error("last_tick reported before any snapshot")
	}

	srv.Publish(time.Unix(1760000010, 0), testSnapshot())
	body = nil
	getJSON(t, ts.URL+"/api/v1/health", &body)
	if body["last_tick"] != float64(1760000010) || body["devices"] != float64(2) {
		t.Errorf("body after publish = %v", body)
	}
}

func TestRequestID(t *testing.T) {
	_, ts := testServer(t)

	tests := []struct {
		name string
		sent string
	}{
		{name: "generated", sent: ""},
		{name: "preserves client", sent: "client-id-42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/v1/health", nil)
			if tt.sent != "" {
				req.Header.Set("X-Request-ID", tt.sent)
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatalf("request: %v", err)
			}
			resp.Body.Close()

			got := resp.Header.Get("X-Request-ID")
			switch {
			case tt.sent != "" && got != tt.sent:
				t.Errorf("X-Request-ID = %q, want %q", got, tt.sent)
			case tt.sent == "" && len(got) != 2*requestIDBytes:
				t.Errorf("generated X-Request-ID = %q", got)
			}
		})
	}
}

func TestNotFound(t *testing.T) {
	_, ts := testServer(t)

	var e Error
	resp := getJSON(t, ts.URL+"/api/v1/nothing", &e)
	if resp.StatusCode != http.StatusNotFound || e.Code != ErrCodeNotFound {
		t.Errorf("status = %d, body = %+v", resp.StatusCode, e)
	}
}

func TestDevices_BeforeFirstTick(t *testing.T) {
	_, ts := testServer(t)

	for _, path := range []string{"/api/v1/devices", "/api/v1/devices/08761%200000434"} {
		var e Error
		resp := getJSON(t, ts.URL+path, &e)
		if resp.StatusCode != http.StatusServiceUnavailable || e.Code != ErrCodeUnavailable {
			t.Errorf("GET %s: status = %d, body = %+v", path, resp.StatusCode, e)
		}
	}
}

func TestListDevices(t *testing.T) {
	srv, ts := testServer(t)
	srv.Publish(time.Unix(1760000010, 0), testSnapshot())

	var body SnapshotPayload
	resp := getJSON(t, ts.URL+"/api/v1/devices", &body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if body.Tick != 1760000010 || body.Count != 2 || len(body.Devices) != 2 {
		t.Fatalf("body = %+v", body)
	}
	if !body.FetchedAt.Equal(time.Unix(1760000000, 0)) {
		t.Errorf("FetchedAt = %v", body.FetchedAt)
	}
	first := body.Devices[0]
	if first.Identifier != "08761 0000434" || first.Temperature == nil || first.Temperature.Celsius != 215 {
		t.Errorf("first device = %+v", first)
	}
	if body.Devices[1].Kind != device.KindGroup || body.Devices[1].Powermeter != nil {
		t.Errorf("second device = %+v", body.Devices[1])
	}
}

func TestGetDevice(t *testing.T) {
	srv, ts := testServer(t)
	srv.Publish(time.Now(), testSnapshot())

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantName   string
	}{
		{name: "escaped space", path: "/api/v1/devices/08761%200000434", wantStatus: http.StatusOK, wantName: "Socket"},
		{name: "group", path: "/api/v1/devices/grp03F0A0-3D6C7A80E", wantStatus: http.StatusOK, wantName: "Living room"},
		{name: "unknown", path: "/api/v1/devices/nope", wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d device.Device
			resp := getJSON(t, ts.URL+tt.path, &d)
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if tt.wantName != "" && d.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", d.Name, tt.wantName)
			}
		})
	}
}

func TestDashboard(t *testing.T) {
	_, ts := testServer(t)

	for _, path := range []string{"/", "/dashboard", "/dashboard/"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		body, _ := io.ReadAll(resp.Body) //nolint:errcheck
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "<!DOCTYPE html>") {
			t.Errorf("GET %s: status = %d, want the dashboard page", path, resp.StatusCode)
		}
	}
}

func TestRecovery(t *testing.T) {
	srv, _ := testServer(t)
	h := srv.recoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

// =============================================================================
// WebSocket Tests
// =============================================================================

func dialWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) WSMessage {
	t.Helper()
	//nolint:errcheck
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg WSMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	return msg
}

func waitForClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for h.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("ClientCount() = %d, want %d", h.ClientCount(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWebSocket_Broadcast(t *testing.T) {
	srv, ts := testServer(t)
	conn := dialWS(t, ts)
	waitForClients(t, srv.hub, 1)

	srv.Publish(time.Unix(1760000010, 0), testSnapshot())

	msg := readMessage(t, conn)
	if msg.Type != WSTypeSnapshot {
		t.Fatalf("Type = %q, want snapshot", msg.Type)
	}
	payload, ok := msg.Payload.(map[string]any)
	if !ok {
		t.Fatalf("Payload = %T", msg.Payload)
	}
	if payload["tick"] != float64(1760000010) || payload["count"] != float64(2) {
		t.Errorf("payload = %v", payload)
	}
}

func TestWebSocket_LatestOnConnect(t *testing.T) {
	srv, ts := testServer(t)
	srv.Publish(time.Unix(1760000010, 0), testSnapshot())

	conn := dialWS(t, ts)
	if msg := readMessage(t, conn); msg.Type != WSTypeSnapshot {
		t.Errorf("Type = %q, want snapshot", msg.Type)
	}
}

func TestWebSocket_Ping(t *testing.T) {
	_, ts := testServer(t)
	conn := dialWS(t, ts)

	if err := conn.WriteJSON(WSMessage{Type: WSTypePing, ID: "p1"}); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	msg := readMessage(t, conn)
	if msg.Type != WSTypePong || msg.ID != "p1" {
		t.Errorf("answer = %+v, want pong p1", msg)
	}

	if err := conn.WriteJSON(WSMessage{Type: "subscribe", ID: "s1"}); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	if msg := readMessage(t, conn); msg.Type != WSTypeError {
		t.Errorf("answer to unknown type = %+v, want error", msg)
	}
}

func TestHub_ClientDisconnects(t *testing.T) {
	srv, ts := testServer(t)
	conn := dialWS(t, ts)
	waitForClients(t, srv.hub, 1)

	conn.Close()
	waitForClients(t, srv.hub, 0)

	// Broadcasting with no clients must not block or panic.
	srv.Publish(time.Now(), testSnapshot())
}

// =============================================================================
// Lifecycle Tests
// =============================================================================

func TestStartClose(t *testing.T) {
	cfg := config.DefaultWebConfig()
	cfg.Listen = "127.0.0.1:0"
	srv := New(cfg, testLogger(), "test")

	if err := srv.HealthCheck(context.Background()); !errors.Is(err, ErrNotStarted) {
		t.Errorf("HealthCheck() before Start error = %v, want ErrNotStarted", err)
	}
	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := srv.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	resp, err := http.Get("http://" + srv.Addr() + "/api/v1/health")
	if err != nil {
		t.Fatalf("GET health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	if err := srv.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := http.Get("http://" + srv.Addr() + "/api/v1/health"); err == nil {
		t.Error("server still answering after Close()")
	}
}

func TestStart_AddressInUse(t *testing.T) {
	cfg := config.DefaultWebConfig()
	cfg.Listen = "127.0.0.1:0"
	first := New(cfg, testLogger(), "test")
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer first.Close()

	cfg.Listen = first.Addr()
	if err := New(cfg, testLogger(), "test").Start(context.Background()); err == nil {
		t.Error("Start() on a bound address expected error")
	}
}

func TestHealthCheck_Cancelled(t *testing.T) {
	srv := New(config.DefaultWebConfig(), testLogger(), "test")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := srv.HealthCheck(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("HealthCheck() error = %v, want context.Canceled", err)
	}
}

func TestClose_NotStarted(t *testing.T) {
	if err := New(config.DefaultWebConfig(), testLogger(), "test").Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
