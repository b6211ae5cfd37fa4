package aha

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/nerrad567/aha-recorder/internal/infrastructure/errchain"
	"github.com/nerrad567/aha-recorder/internal/infrastructure/logging"
)

const (
	testChallenge = "1234567z"
	testSID       = "a1b2c3d4e5f60718"
)

func sessionXML(sid string, blockTime int, rights string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="utf-8"?>`+
		`<SessionInfo><SID>%s</SID><Challenge>%s</Challenge><BlockTime>%d</BlockTime><Rights>%s</Rights></SessionInfo>`,
		sid, testChallenge, blockTime, rights)
}

const homeAutoRights = `<Name>NAS</Name><Access>2</Access><Name>HomeAuto</Name><Access>2</Access>`

// fakeGateway is a scripted /login_sid.lua and /webservices endpoint.
type fakeGateway struct {
	mu       sync.Mutex
	requests []*http.Request

	// login answers by request number (0 = challenge request).
	login []string

	devices string
	status  int
}

func (g *fakeGateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	g.requests = append(g.requests, r)
	n := len(g.requests) - 1
	g.mu.Unlock()

	if g.status != 0 {
		w.WriteHeader(g.status)
		return
	}

	switch r.URL.Path {
	case loginPath:
		if n >= len(g.login) {
			http.Error(w, "unexpected login request", http.StatusInternalServerError)
			return
		}
		io.WriteString(w, g.login[n]) //nolint:errcheck
	case homeAutoPath:
		io.WriteString(w, g.devices) //nolint:errcheck
	default:
		http.NotFound(w, r)
	}
}

func (g *fakeGateway) requestCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.requests)
}

func newTestClient(t *testing.T, gw *fakeGateway) *Client {
	t.Helper()
	srv := httptest.NewServer(gw)
	t.Cleanup(srv.Close)

	logger := &logging.Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	c, err := New(srv.URL+"/", WithLogger(logger))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestResponse(t *testing.T) {
	tests := []struct {
		name      string
		challenge string
		password  string
		want      string
	}{
		{
			name:      "gateway reference vector",
			challenge: "1234567z",
			password:  "äbc",
			want:      "1234567z-9e224a41eeefa284df7bb0f26c2913e2",
		},
		{
			name:      "ascii password",
			challenge: "1234567z",
			password:  "testpwd",
			want:      "1234567z-650b72c6ff7576d7721daa519760126d",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Response(tt.challenge, tt.password); got != tt.want {
				t.Errorf("Response(%q, %q) = %q, want %q", tt.challenge, tt.password, got, tt.want)
			}
			if Response(tt.challenge, tt.password) != Response(tt.challenge, tt.password) {
				t.Error("Response() must be deterministic")
			}
		})
	}
}

func TestAuthenticate_Success(t *testing.T) {
	gw := &fakeGateway{login: []string{
		sessionXML(NoSession, 0, ""),
		sessionXML(testSID, 0, homeAutoRights),
	}}
	c := newTestClient(t, gw)

	sid, err := c.Authenticate(context.Background(), "admin", "testpwd")
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if sid != testSID {
		t.Errorf("sid = %q, want %q", sid, testSID)
	}

	if gw.requestCount() != 2 {
		t.Fatalf("requests = %d, want 2", gw.requestCount())
	}
	second := gw.requests[1].URL.Query()
	if second.Get("username") != "admin" {
		t.Errorf("username = %q, want admin", second.Get("username"))
	}
	if want := Response(testChallenge, "testpwd"); second.Get("response") != want {
		t.Errorf("response = %q, want %q", second.Get("response"), want)
	}
	if len(gw.requests[0].URL.Query()) != 0 {
		t.Errorf("challenge request carried credentials: %v", gw.requests[0].URL.RawQuery)
	}
}

func TestAuthenticate_ExistingSession(t *testing.T) {
	gw := &fakeGateway{login: []string{sessionXML(testSID, 0, "")}}
	c := newTestClient(t, gw)

	sid, err := c.Authenticate(context.Background(), "admin", "secret")
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if sid != testSID {
		t.Errorf("sid = %q, want %q", sid, testSID)
	}
	if gw.requestCount() != 1 {
		t.Errorf("requests = %d, want 1 (no second round)", gw.requestCount())
	}
}

func TestAuthenticate_InvalidCredentials(t *testing.T) {
	gw := &fakeGateway{login: []string{
		sessionXML(NoSession, 0, ""),
		sessionXML(NoSession, 8, ""),
	}}
	c := newTestClient(t, gw)

	_, err := c.Authenticate(context.Background(), "admin", "wrong")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("Authenticate() error = %v, want ErrInvalidCredentials", err)
	}
	var ice *InvalidCredentialsError
	if !errors.As(err, &ice) || ice.BlockTime != 8 {
		t.Errorf("error = %#v, want BlockTime 8", err)
	}
	if !strings.Contains(err.Error(), "8s") {
		t.Errorf("error message %q should mention the block time", err.Error())
	}
}

func TestAuthenticate_InsufficientPermission(t *testing.T) {
	gw := &fakeGateway{login: []string{
		sessionXML(NoSession, 0, ""),
		sessionXML(testSID, 0, `<Name>NAS</Name><Access>2</Access><Name>App</Name><Access>1</Access>`),
	}}
	c := newTestClient(t, gw)

	_, err := c.Authenticate(context.Background(), "admin", "testpwd")
	if !errors.Is(err, ErrInsufficientPermission) {
		t.Fatalf("Authenticate() error = %v, want ErrInsufficientPermission", err)
	}
}

func TestAuthenticate_HTTPFailure(t *testing.T) {
	gw := &fakeGateway{status: http.StatusServiceUnavailable}
	c := newTestClient(t, gw)

	_, err := c.Authenticate(context.Background(), "admin", "testpwd")
	if !errors.Is(err, ErrFetchFailed) || !errors.Is(err, ErrUnexpectedStatus) {
		t.Fatalf("Authenticate() error = %v, want ErrFetchFailed/ErrUnexpectedStatus", err)
	}
}

func TestNew_TagsLoggerOnce(t *testing.T) {
	gw := &fakeGateway{login: []string{
		sessionXML(NoSession, 0, ""),
		sessionXML(testSID, 0, homeAutoRights),
	}}
	srv := httptest.NewServer(gw)
	defer srv.Close()

	var buf bytes.Buffer
	logger := &logging.Logger{Logger: slog.New(slog.NewTextHandler(&buf, nil))}
	c, err := New(srv.URL, WithLogger(logger))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := c.Authenticate(context.Background(), "admin", "testpwd"); err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}

	line := buf.String()
	if !strings.Contains(line, "logged in to gateway") {
		t.Fatalf("log = %q, want the login line", line)
	}
	if n := strings.Count(line, "component=aha"); n != 1 {
		t.Errorf("component=aha appears %d times in %q, want 1", n, line)
	}
}

func TestAuthenticate_UnreachableKeepsCauses(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	c, err := New(addr)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	_, err = c.Authenticate(context.Background(), "admin", "testpwd")
	if !errors.Is(err, ErrFetchFailed) {
		t.Fatalf("Authenticate() error = %v, want ErrFetchFailed", err)
	}

	chain := errchain.Messages(err)
	if len(chain) < 3 {
		t.Fatalf("chain = %q, want the transport causes on their own lines", chain)
	}
	if chain[0] != "aha: fetch failed: GET /login_sid.lua" {
		t.Errorf("chain[0] = %q", chain[0])
	}
}

func TestAuthenticate_MalformedAnswer(t *testing.T) {
	gw := &fakeGateway{login: []string{"<html>not a session</html>"}}
	c := newTestClient(t, gw)

	_, err := c.Authenticate(context.Background(), "admin", "testpwd")
	if !errors.Is(err, ErrFetchFailed) {
		t.Fatalf("Authenticate() error = %v, want ErrFetchFailed", err)
	}
}

func TestParseSessionInfo(t *testing.T) {
	doc := sessionXML(testSID, 3,
		`<Name>BoxAdmin</Name><Access>2</Access>`+
			`<Name>Dial</Name><Access>2</Access>`+
			`<Name>HomeAuto</Name><Access>7</Access>`+
			`<Name>Phone</Name><Access>1</Access>`)

	info, err := ParseSessionInfo(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("ParseSessionInfo() error = %v", err)
	}
	if info.SID != testSID || info.Challenge != testChallenge || info.BlockTime != 3 {
		t.Errorf("info = %+v", info)
	}

	want := []Permission{
		{Kind: BoxAdmin, Level: ReadWrite},
		{Kind: Phone, Level: Read},
	}
	if len(info.Permissions) != len(want) {
		t.Fatalf("Permissions = %+v, want %+v (unparseable pairs dropped)", info.Permissions, want)
	}
	for i := range want {
		if info.Permissions[i] != want[i] {
			t.Errorf("Permissions[%d] = %+v, want %+v", i, info.Permissions[i], want[i])
		}
	}
	if info.Has(HomeAuto) {
		t.Error("Has(HomeAuto) = true for an unparseable level")
	}
}

func TestParseSessionInfo_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "wrong root", doc: `<devicelist/>`},
		{name: "missing SID", doc: `<SessionInfo><Challenge>x</Challenge><BlockTime>0</BlockTime><Rights/></SessionInfo>`},
		{name: "missing rights", doc: `<SessionInfo><SID>0</SID><Challenge>x</Challenge><BlockTime>0</BlockTime></SessionInfo>`},
		{name: "negative block time", doc: `<SessionInfo><SID>0</SID><Challenge>x</Challenge><BlockTime>-1</BlockTime><Rights/></SessionInfo>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseSessionInfo(strings.NewReader(tt.doc)); err == nil {
				t.Error("ParseSessionInfo() expected error, got nil")
			}
		})
	}
}

func TestDeviceList(t *testing.T) {
	gw := &fakeGateway{devices: `<devicelist version="1">` +
		`<device identifier="08761 0000434" id="17" functionbitmask="2944" fwversion="04.25" manufacturer="AVM" productname="FRITZ!DECT 200">` +
		`<present>1</present><name>Socket</name>` +
		`<powermeter><voltage>230051</voltage><power>4810</power><energy>1234</energy></powermeter>` +
		`<temperature><celsius>215</celsius><offset>-5</offset></temperature></device>` +
		`</devicelist>`}
	c := newTestClient(t, gw)

	snap, err := c.DeviceList(context.Background(), testSID)
	if err != nil {
		t.Fatalf("DeviceList() error = %v", err)
	}
	if snap.Len() != 1 {
		t.Fatalf("snap.Len() = %d, want 1", snap.Len())
	}
	d, ok := snap.Find("08761 0000434")
	if !ok || d.Temperature == nil || d.Powermeter == nil {
		t.Fatalf("device = %+v", d)
	}

	q := gw.requests[0].URL.Query()
	if gw.requests[0].URL.Path != homeAutoPath || q.Get("sid") != testSID || q.Get("switchcmd") != "getdevicelistinfos" {
		t.Errorf("request = %s", gw.requests[0].URL)
	}
}

func TestDeviceList_Errors(t *testing.T) {
	tests := []struct {
		name string
		gw   *fakeGateway
	}{
		{name: "forbidden", gw: &fakeGateway{status: http.StatusForbidden}},
		{name: "garbage", gw: &fakeGateway{devices: "<devicelist><device></devicelist>"}},
		{name: "invalid device", gw: &fakeGateway{devices: `<devicelist><device identifier="x"/></devicelist>`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.gw)
			_, err := c.DeviceList(context.Background(), testSID)
			if !errors.Is(err, ErrFetchFailed) {
				t.Fatalf("DeviceList() error = %v, want ErrFetchFailed", err)
			}
		})
	}
}

func TestNew_InvalidURL(t *testing.T) {
	for _, raw := range []string{"fritz.box", "ftp://fritz.box", "://"} {
		if _, err := New(raw); err == nil {
			t.Errorf("New(%q) expected error", raw)
		}
	}
}

func TestNew_TrimsTrailingSlash(t *testing.T) {
	c, err := New("http://fritz.box/")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if c.BaseURL() != "http://fritz.box" {
		t.Errorf("BaseURL() = %q", c.BaseURL())
	}
}
